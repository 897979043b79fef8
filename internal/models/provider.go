package models

import (
	"time"
)

// Provider 供应商（采购对象）
type Provider struct {
	ID        uint      `gorm:"primarykey" json:"id"`                            // 主键
	Name      string    `gorm:"type:varchar(200);not null;index" json:"name"`    // 名称
	NameKey   string    `gorm:"type:varchar(200);uniqueIndex;not null" json:"-"` // 归一化名称（唯一）
	Location  string    `gorm:"type:varchar(255)" json:"location"`               // 位置
	TaxID     string    `gorm:"type:varchar(64)" json:"tax_id"`                  // 税号
	Contact   string    `gorm:"type:varchar(120)" json:"contact"`                // 联系方式
	Category  string    `gorm:"type:varchar(100);index" json:"category"`         // 类别
	CreatedAt time.Time `gorm:"index" json:"created_at"`                         // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                      // 更新时间
}

// TableName 指定表名
func (Provider) TableName() string {
	return "providers"
}
