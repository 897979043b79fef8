package admin

import (
	"strings"

	handlershared "github.com/despensa-next/internal/http/handlers/shared"
	"github.com/despensa-next/internal/http/response"
	"github.com/despensa-next/internal/repository"
	"github.com/despensa-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListTasks 采购任务进度列表
func (h *Handler) ListTasks(c *gin.Context) {
	page, pageSize := handlershared.PaginationQuery(c)
	date, err := parseDateNullable(c.Query("delivery_date"))
	if err != nil {
		respondError(c, service.ErrInvalidDateFilter)
		return
	}
	productID, ok := handlershared.ParseUintQuery(c, "product_id")
	if !ok {
		return
	}

	items, total, err := h.ProcurementTaskService.List(requestContext(c), repository.TaskListFilter{
		Page:         page,
		PageSize:     pageSize,
		DeliveryDate: date,
		Status:       strings.TrimSpace(c.Query("status")),
		ProductID:    productID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithPage(c, items, response.NewPagination(page, pageSize, total))
}

// GetTask 采购任务详情（进度与采购记录）
func (h *Handler) GetTask(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.ProcurementTaskService.Get(requestContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, detail)
}

// SubstituteRequest 商品替换请求
type SubstituteRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// SubstituteTask 将任务改为采购另一商品
func (h *Handler) SubstituteTask(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req SubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "product_id is required", nil)
		return
	}
	task, err := h.SubstitutionService.Substitute(requestContext(c), service.SubstituteInput{
		TaskID:    id,
		ProductID: req.ProductID,
		Operator:  operator(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, service.ProgressOf(task))
}
