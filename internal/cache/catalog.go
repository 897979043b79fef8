package cache

import (
	"context"
	"fmt"

	"github.com/despensa-next/internal/models"
)

// ProductSnapshot 商品目录快照，只缓存采购所需字段
type ProductSnapshot struct {
	ID       uint   `json:"id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
	IsActive bool   `json:"is_active"`
}

func productKey(productID uint) string {
	return fmt.Sprintf("catalog:product:%d", productID)
}

// BuildProductSnapshot 从商品模型构建快照
func BuildProductSnapshot(product *models.Product) *ProductSnapshot {
	if product == nil {
		return nil
	}
	return &ProductSnapshot{
		ID:       product.ID,
		SKU:      product.SKU,
		Name:     product.Name,
		Category: product.Category,
		Unit:     product.Unit,
		IsActive: product.IsActive,
	}
}

// ToModel 还原为商品模型
func (s *ProductSnapshot) ToModel() *models.Product {
	if s == nil {
		return nil
	}
	return &models.Product{
		ID:       s.ID,
		SKU:      s.SKU,
		Name:     s.Name,
		Category: s.Category,
		Unit:     s.Unit,
		IsActive: s.IsActive,
	}
}

// GetProduct 读取商品快照
func GetProduct(ctx context.Context, productID uint) (*ProductSnapshot, bool, error) {
	var snapshot ProductSnapshot
	hit, err := GetJSON(ctx, productKey(productID), &snapshot)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &snapshot, true, nil
}

// SetProduct 写入商品快照
func SetProduct(ctx context.Context, snapshot *ProductSnapshot) error {
	if snapshot == nil || snapshot.ID == 0 {
		return nil
	}
	return SetJSON(ctx, productKey(snapshot.ID), snapshot, catalogTTL)
}

// DelProduct 删除商品快照
func DelProduct(ctx context.Context, productID uint) error {
	return Del(ctx, productKey(productID))
}
