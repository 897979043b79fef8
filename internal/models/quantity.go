package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/despensa-next/internal/constants"

	"github.com/shopspring/decimal"
)

// Quantity 数量类型（保留 4 位小数），用于规范单位与采购单位的数量
type Quantity struct {
	decimal.Decimal
}

// NewQuantity 从 decimal 创建数量
func NewQuantity(value decimal.Decimal) Quantity {
	return Quantity{Decimal: value.Round(constants.QuantityScale)}
}

// NewQuantityFromInt 从整数创建数量
func NewQuantityFromInt(value int64) Quantity {
	return Quantity{Decimal: decimal.NewFromInt(value)}
}

// NewQuantityFromString 解析数量字符串
func NewQuantityFromString(value string) (Quantity, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Quantity{}, err
	}
	return NewQuantity(d), nil
}

// Add 数量相加
func (q Quantity) Add(other Quantity) Quantity {
	return NewQuantity(q.Decimal.Add(other.Decimal))
}

// Sub 数量相减
func (q Quantity) Sub(other Quantity) Quantity {
	return NewQuantity(q.Decimal.Sub(other.Decimal))
}

// MarshalJSON 输出定长小数字符串
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

// UnmarshalJSON 解析数量（字符串或数字）
func (q *Quantity) UnmarshalJSON(b []byte) error {
	d, err := decodeDecimalJSON(b)
	if err != nil {
		return err
	}
	q.Decimal = d.Round(constants.QuantityScale)
	return nil
}

// Value 用于数据库写入
func (q Quantity) Value() (driver.Value, error) {
	return q.Decimal.Round(constants.QuantityScale).Value()
}

// Scan 用于数据库读取
func (q *Quantity) Scan(value interface{}) error {
	if err := q.Decimal.Scan(value); err != nil {
		return err
	}
	q.Decimal = q.Decimal.Round(constants.QuantityScale)
	return nil
}

// String 去除多余零的数量表示
func (q Quantity) String() string {
	return q.Decimal.Round(constants.QuantityScale).String()
}
