package admin

import (
	"strings"

	handlershared "github.com/despensa-next/internal/http/handlers/shared"
	"github.com/despensa-next/internal/http/response"
	"github.com/despensa-next/internal/repository"
	"github.com/despensa-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListProviders 供应商列表
func (h *Handler) ListProviders(c *gin.Context) {
	page, pageSize := handlershared.PaginationQuery(c)
	providers, total, err := h.ProviderService.List(requestContext(c), repository.ProviderListFilter{
		Page:     page,
		PageSize: pageSize,
		Category: strings.TrimSpace(c.Query("category")),
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithPage(c, providers, response.NewPagination(page, pageSize, total))
}

// ResolveProvider 按 ID 或名称查找供应商，不存在时快速新建
func (h *Handler) ResolveProvider(c *gin.Context) {
	var req service.ProviderInput
	if err := c.ShouldBindJSON(&req); err != nil || req.IsEmpty() {
		respondError(c, service.ErrProviderInvalid)
		return
	}
	provider, created, err := h.ProviderService.Resolve(requestContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"provider": provider, "created": created})
}
