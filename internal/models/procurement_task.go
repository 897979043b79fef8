package models

import (
	"time"
)

// ProcurementTask 采购任务表：某商品/规格在某配送日的需求量与已采购量
// (demand_product_id, variant_key, delivery_date) 唯一
type ProcurementTask struct {
	ID                uint      `gorm:"primarykey" json:"id"`                                                              // 主键
	DemandProductID   uint      `gorm:"not null;uniqueIndex:idx_procurement_task_key,priority:1" json:"demand_product_id"` // 汇总需求所属商品（不随替换变化）
	VariantKey        string    `gorm:"type:varchar(130);not null;default:'';uniqueIndex:idx_procurement_task_key,priority:2" json:"-"`
	DeliveryDate      Date      `gorm:"type:varchar(10);not null;uniqueIndex:idx_procurement_task_key,priority:3;index" json:"delivery_date"` // 配送日
	ProductID         uint      `gorm:"index;not null" json:"product_id"`                                                                     // 当前采购商品
	VariantLabel      *string   `gorm:"type:varchar(120)" json:"variant_label"`                                                               // 规格
	TotalRequested    Quantity  `gorm:"type:decimal(20,4);not null;default:0" json:"total_requested"`                                         // 需求总量（规范单位）
	TotalPurchased    Quantity  `gorm:"type:decimal(20,4);not null;default:0" json:"total_purchased"`                                         // 已采购总量（规范单位）
	Unit              string    `gorm:"type:varchar(32);not null" json:"unit"`                                                                // 规范单位
	Status            string    `gorm:"type:varchar(20);index;not null" json:"status"`                                                        // 状态
	OriginalProductID *uint     `gorm:"index" json:"original_product_id,omitempty"`                                                           // 替换前的原商品
	CreatedAt         time.Time `gorm:"index" json:"created_at"`                                                                              // 创建时间
	UpdatedAt         time.Time `gorm:"index" json:"updated_at"`                                                                              // 更新时间

	Product   *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 当前商品
	Purchases []Purchase `gorm:"foreignKey:TaskID" json:"purchases,omitempty"`  // 采购记录
}

// TableName 指定表名
func (ProcurementTask) TableName() string {
	return "procurement_tasks"
}
