package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品目录表
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`                    // 主键
	SKU       string         `gorm:"uniqueIndex;not null" json:"sku"`         // 商品编码
	Name      string         `gorm:"type:varchar(200);not null" json:"name"`  // 名称
	Category  string         `gorm:"type:varchar(100);index" json:"category"` // 分类
	Unit      string         `gorm:"type:varchar(32);not null" json:"unit"`   // 规范单位
	IsActive  bool           `gorm:"default:true;index" json:"is_active"`     // 是否可采购
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                 // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                              // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                          // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
