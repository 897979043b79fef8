package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 客户订单表（由订单录入模块维护，本模块只读）
type Order struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                 // 主键
	OrderNo      string         `gorm:"uniqueIndex;not null" json:"order_no"`                 // 订单编号
	ClientID     uint           `gorm:"index" json:"client_id"`                               // 客户ID
	DeliveryDate Date           `gorm:"type:varchar(10);index;not null" json:"delivery_date"` // 配送日
	Status       string         `gorm:"type:varchar(32);index;not null" json:"status"`        // 订单状态
	Notes        string         `gorm:"type:text" json:"notes,omitempty"`                     // 备注
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                              // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                       // 软删除时间
	Lines        []OrderLine    `gorm:"foreignKey:OrderID" json:"lines,omitempty"`            // 订单行
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
