package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/despensa-next/internal/http/response"
	"github.com/despensa-next/internal/service"

	"github.com/gin-gonic/gin"
)

// RecordPurchase 记录一次采购（multipart：字段 + evidence 文件）
func (h *Handler) RecordPurchase(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	quantity, err := parseQuantityNullable(c.PostForm("quantity"))
	if err != nil {
		respondBadRequest(c, "quantity is invalid", nil)
		return
	}
	unitPrice, err := parseMoneyNullable(c.PostForm("unit_price"))
	if err != nil {
		respondBadRequest(c, "unit_price is invalid", nil)
		return
	}
	pickupAt, err := parseTimeNullable(c.PostForm("estimated_pickup_at"), h.CutoffService.Location())
	if err != nil {
		respondBadRequest(c, "estimated_pickup_at is invalid", nil)
		return
	}
	providerInput := service.ProviderInput{
		Name:     c.PostForm("provider_name"),
		Location: c.PostForm("provider_location"),
		TaxID:    c.PostForm("provider_tax_id"),
		Contact:  c.PostForm("provider_contact"),
		Category: c.PostForm("provider_category"),
	}
	if raw := strings.TrimSpace(c.PostForm("provider_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			respondBadRequest(c, "provider_id is invalid", nil)
			return
		}
		providerInput.ID = uint(id)
	}

	input := service.RecordPurchaseInput{
		TaskID:            taskID,
		Quantity:          quantity,
		UnitPrice:         unitPrice,
		Provider:          providerInput,
		PurchaseUnit:      c.PostForm("purchase_unit"),
		EstimatedPickupAt: pickupAt,
		RecordedBy:        operator(c),
	}

	fileHeader, err := c.FormFile("evidence")
	switch {
	case err == nil:
		file, openErr := fileHeader.Open()
		if openErr != nil {
			respondError(c, openErr)
			return
		}
		defer file.Close()
		input.Evidence = &service.EvidenceUpload{
			Filename: fileHeader.Filename,
			Size:     fileHeader.Size,
			Content:  file,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		respondBadRequest(c, "evidence is invalid", nil)
		return
	}

	result, err := h.PurchaseService.RecordPurchase(requestContext(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// ListPurchases 任务的采购记录
func (h *Handler) ListPurchases(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	purchases, err := h.PurchaseService.ListPurchases(requestContext(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, purchases)
}
