package models

import (
	"time"
)

// Purchase 采购记录表（只追加，不修改）
type Purchase struct {
	ID                uint      `gorm:"primarykey" json:"id"`                                    // 主键
	TaskID            uint      `gorm:"index;not null" json:"task_id"`                           // 采购任务ID
	ProductID         uint      `gorm:"index;not null" json:"product_id"`                        // 实际采购商品
	VariantLabel      *string   `gorm:"type:varchar(120)" json:"variant_label"`                  // 规格
	ProviderID        uint      `gorm:"index;not null" json:"provider_id"`                       // 供应商ID
	Quantity          Quantity  `gorm:"type:decimal(20,4);not null" json:"quantity"`             // 采购数量（采购单位）
	PurchaseUnit      string    `gorm:"type:varchar(32);not null" json:"purchase_unit"`          // 采购单位
	ConvertedQuantity Quantity  `gorm:"type:decimal(20,4);not null" json:"converted_quantity"`   // 折算数量（任务规范单位）
	UnitPrice         Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"` // 单价
	TotalCost         Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_cost"` // 总价
	EvidenceRef       string    `gorm:"type:varchar(500);not null" json:"evidence_ref"`          // 凭证引用（照片/小票）
	EstimatedPickupAt time.Time `gorm:"index;not null" json:"estimated_pickup_at"`               // 预计取货时间
	Status            string    `gorm:"type:varchar(32);index;not null" json:"status"`           // 取货状态
	RecordedBy        string    `gorm:"type:varchar(100)" json:"recorded_by,omitempty"`          // 记录人
	CreatedAt         time.Time `gorm:"index" json:"created_at"`                                 // 创建时间
	Provider          *Provider `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`         // 供应商
}

// TableName 指定表名
func (Purchase) TableName() string {
	return "purchases"
}
