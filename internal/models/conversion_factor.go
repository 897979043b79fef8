package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConversionFactor 单位换算表：quantity_in_to_unit = quantity_in_from_unit * factor
type ConversionFactor struct {
	ID        uint            `gorm:"primarykey" json:"id"`                                                                        // 主键
	ProductID uint            `gorm:"not null;uniqueIndex:idx_conversion_factor_key,priority:1" json:"product_id"`                 // 商品ID
	FromUnit  string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_conversion_factor_key,priority:2" json:"from_unit"` // 源单位
	ToUnit    string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_conversion_factor_key,priority:3" json:"to_unit"`   // 目标单位
	Factor    decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"factor"`                                                   // 换算系数
	CreatedAt time.Time       `json:"created_at"`                                                                                  // 创建时间
	UpdatedAt time.Time       `json:"updated_at"`                                                                                  // 更新时间
}

// TableName 指定表名
func (ConversionFactor) TableName() string {
	return "conversion_factors"
}
