package constants

// 订单状态常量
const (
	OrderStatusDraft               = "draft"
	OrderStatusApproved            = "approved"
	OrderStatusReadyForProcurement = "ready_for_procurement"
	OrderStatusInDelivery          = "in_delivery"
	OrderStatusDelivered           = "delivered"
	OrderStatusCanceled            = "canceled"
)

// 采购任务状态常量
const (
	TaskStatusPending   = "pending"
	TaskStatusPartial   = "partial"
	TaskStatusCompleted = "completed"
)

// 采购记录状态常量
const (
	PurchaseStatusPendingPickup = "pending_pickup"
	PurchaseStatusPickedUp      = "picked_up"
)

// 队列与任务常量
const (
	QueueDefault                 = "default"
	QueueCritical                = "critical"
	TaskProcurementConsolidation = "procurement:consolidate"
)

// 设置键
const (
	SettingKeyProcurementConfig = "procurement_config"
	SettingFieldCutoffEnabled   = "cutoff_enabled"
)

// 采购流程默认值
const (
	DefaultCutoffHour  = 18
	DefaultTimezone    = "Local"
	DeliveryDateLayout = "2006-01-02"
	QuantityScale      = 4
	MoneyScale         = 2
	VariantKeyNone     = ""
	VariantKeyPrefix   = "v:"
)

// DefaultActionableOrderStatuses 参与汇总的订单状态
var DefaultActionableOrderStatuses = []string{
	OrderStatusApproved,
	OrderStatusReadyForProcurement,
}
