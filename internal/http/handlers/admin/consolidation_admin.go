package admin

import (
	"strconv"
	"strings"

	"github.com/despensa-next/internal/http/response"
	"github.com/despensa-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ConsolidateRequest 汇总请求；delivery_date 为空时按截单规则，all_dates 表示全量汇总
type ConsolidateRequest struct {
	DeliveryDate string `json:"delivery_date"`
	AllDates     bool   `json:"all_dates"`
	RunID        string `json:"run_id"`
}

// Consolidate 触发一次需求汇总，?async=true 时推送到队列
func (h *Handler) Consolidate(c *gin.Context) {
	var req ConsolidateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body", nil)
			return
		}
	}
	date, err := parseDateNullable(req.DeliveryDate)
	if err != nil {
		respondError(c, service.ErrInvalidDateFilter)
		return
	}
	input := service.ConsolidateInput{
		DeliveryDate: date,
		AllDates:     req.AllDates,
		RunID:        strings.TrimSpace(req.RunID),
	}
	ctx := requestContext(c)

	async, _ := strconv.ParseBool(c.DefaultQuery("async", "false"))
	if async {
		result, err := h.ConsolidationDispatcher.Dispatch(ctx, input, operator(c))
		if err != nil {
			respondError(c, err)
			return
		}
		response.SuccessWithMsg(c, "queued", result)
		return
	}

	report, err := h.ConsolidationService.Consolidate(ctx, input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, report)
}

// PreviewCutoff 查看当前截单规则与目标配送日
func (h *Handler) PreviewCutoff(c *gin.Context) {
	response.Success(c, h.CutoffService.Resolve(requestContext(c)))
}
