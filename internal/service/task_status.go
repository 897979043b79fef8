package service

import (
	"github.com/despensa-next/internal/constants"
	"github.com/despensa-next/internal/models"

	"github.com/shopspring/decimal"
)

// DeriveTaskStatus 由需求量与已采购量推导任务状态，未采购时恒为 pending
func DeriveTaskStatus(requested, purchased decimal.Decimal) string {
	switch {
	case !purchased.IsPositive():
		return constants.TaskStatusPending
	case purchased.GreaterThanOrEqual(requested):
		return constants.TaskStatusCompleted
	default:
		return constants.TaskStatusPartial
	}
}

// TaskProgress 任务进度视图，超采部分单独列出不做截断
type TaskProgress struct {
	TaskID            uint            `json:"task_id"`
	DemandProductID   uint            `json:"demand_product_id"`
	ProductID         uint            `json:"product_id"`
	OriginalProductID *uint           `json:"original_product_id,omitempty"`
	VariantLabel      *string         `json:"variant_label"`
	DeliveryDate      models.Date     `json:"delivery_date"`
	Unit              string          `json:"unit"`
	Requested         models.Quantity `json:"total_requested"`
	Purchased         models.Quantity `json:"total_purchased"`
	Remaining         models.Quantity `json:"remaining"`
	Overage           models.Quantity `json:"overage"`
	Ratio             decimal.Decimal `json:"completion_ratio"`
	Status            string          `json:"status"`
	ProductName       string          `json:"product_name,omitempty"`
}

// ProgressOf 计算任务进度
func ProgressOf(task *models.ProcurementTask) TaskProgress {
	if task == nil {
		return TaskProgress{}
	}
	requested := task.TotalRequested.Decimal
	purchased := task.TotalPurchased.Decimal
	diff := requested.Sub(purchased)

	remaining := decimal.Zero
	overage := decimal.Zero
	if diff.IsPositive() {
		remaining = diff
	} else {
		overage = diff.Neg()
	}

	ratio := decimal.Zero
	switch {
	case requested.IsPositive():
		ratio = purchased.DivRound(requested, constants.QuantityScale)
	case purchased.IsPositive():
		ratio = decimal.NewFromInt(1)
	}

	progress := TaskProgress{
		TaskID:            task.ID,
		DemandProductID:   task.DemandProductID,
		ProductID:         task.ProductID,
		OriginalProductID: task.OriginalProductID,
		VariantLabel:      task.VariantLabel,
		DeliveryDate:      task.DeliveryDate,
		Unit:              task.Unit,
		Requested:         task.TotalRequested,
		Purchased:         task.TotalPurchased,
		Remaining:         models.NewQuantity(remaining),
		Overage:           models.NewQuantity(overage),
		Ratio:             ratio,
		Status:            DeriveTaskStatus(requested, purchased),
	}
	if task.Product != nil {
		progress.ProductName = task.Product.Name
	}
	return progress
}
