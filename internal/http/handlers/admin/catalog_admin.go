package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/despensa-next/internal/http/handlers/shared"
	"github.com/despensa-next/internal/http/response"
	"github.com/despensa-next/internal/repository"
	"github.com/despensa-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ListProducts 商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := handlershared.PaginationQuery(c)
	onlyActive, _ := strconv.ParseBool(c.DefaultQuery("only_active", "false"))
	products, total, err := h.CatalogService.ListProducts(requestContext(c), repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Category:   strings.TrimSpace(c.Query("category")),
		Search:     strings.TrimSpace(c.Query("search")),
		OnlyActive: onlyActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithPage(c, products, response.NewPagination(page, pageSize, total))
}

// CreateProductRequest 创建商品请求
type CreateProductRequest struct {
	SKU      string `json:"sku" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
	Unit     string `json:"unit" binding:"required"`
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrProductInvalid)
		return
	}
	product, err := h.CatalogService.CreateProduct(requestContext(c), service.CreateProductInput{
		SKU:      req.SKU,
		Name:     req.Name,
		Category: req.Category,
		Unit:     req.Unit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, product)
}

// SetProductActiveRequest 上下架请求
type SetProductActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetProductActive 商品上下架
func (h *Handler) SetProductActive(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req SetProductActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "is_active is required", nil)
		return
	}
	product, err := h.CatalogService.SetProductActive(requestContext(c), id, *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, product)
}

// ListConversionFactors 商品的单位换算
func (h *Handler) ListConversionFactors(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	factors, err := h.ConversionService.ListFactors(requestContext(c), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, factors)
}

// UpsertConversionFactorRequest 登记换算请求
type UpsertConversionFactorRequest struct {
	FromUnit string          `json:"from_unit"`
	ToUnit   string          `json:"to_unit"`
	Factor   decimal.Decimal `json:"factor"`
}

// UpsertConversionFactor 登记或覆盖单位换算
func (h *Handler) UpsertConversionFactor(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpsertConversionFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrConversionFactorInvalid)
		return
	}
	factor, err := h.ConversionService.UpsertFactor(requestContext(c), service.UpsertConversionFactorInput{
		ProductID: productID,
		FromUnit:  req.FromUnit,
		ToUnit:    req.ToUnit,
		Factor:    req.Factor,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, factor)
}

// DeleteConversionFactor 删除单位换算
func (h *Handler) DeleteConversionFactor(c *gin.Context) {
	id, ok := parseIDParam(c, "factor_id")
	if !ok {
		return
	}
	if err := h.ConversionService.DeleteFactor(requestContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}
