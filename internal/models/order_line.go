package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderLine 订单行表，数量为商品规范单位
type OrderLine struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                  // 主键
	OrderID      uint           `gorm:"index;not null" json:"order_id"`                        // 订单ID
	ProductID    uint           `gorm:"index;not null" json:"product_id"`                      // 商品ID
	VariantLabel *string        `gorm:"type:varchar(120)" json:"variant_label"`                // 规格（空表示无规格）
	Quantity     Quantity       `gorm:"type:decimal(20,4);not null;default:0" json:"quantity"` // 数量（规范单位）
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                            // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间
}

// TableName 指定表名
func (OrderLine) TableName() string {
	return "order_lines"
}

// DemandLine 汇总时读取的订单行投影（已携带父订单配送日）
type DemandLine struct {
	OrderID      uint
	ProductID    uint
	VariantLabel *string
	Quantity     Quantity
	DeliveryDate Date
}
