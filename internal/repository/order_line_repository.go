package repository

import (
	"context"

	"github.com/despensa-next/internal/models"

	"gorm.io/gorm"
)

// OrderLineRepository 订单行数据访问接口（订单由录入模块维护，此处只读取需求）
type OrderLineRepository interface {
	ListDemand(ctx context.Context, filter DemandFilter) ([]models.DemandLine, error)
	CreateOrder(ctx context.Context, order *models.Order, lines []models.OrderLine) error
	WithTx(tx *gorm.DB) OrderLineRepository
}

// GormOrderLineRepository GORM 实现
type GormOrderLineRepository struct {
	db *gorm.DB
}

// NewOrderLineRepository 创建订单行仓库
func NewOrderLineRepository(db *gorm.DB) *GormOrderLineRepository {
	return &GormOrderLineRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderLineRepository) WithTx(tx *gorm.DB) OrderLineRepository {
	if tx == nil {
		return r
	}
	return &GormOrderLineRepository{db: tx}
}

// ListDemand 读取父订单处于可汇总状态的订单行，并携带父订单配送日
func (r *GormOrderLineRepository) ListDemand(ctx context.Context, filter DemandFilter) ([]models.DemandLine, error) {
	if len(filter.Statuses) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).
		Table("order_lines AS ol").
		Select("ol.order_id, ol.product_id, ol.variant_label, ol.quantity, o.delivery_date").
		Joins("JOIN orders o ON o.id = ol.order_id AND o.deleted_at IS NULL").
		Where("ol.deleted_at IS NULL").
		Where("o.status IN ?", filter.Statuses)
	if filter.DeliveryDate != nil {
		query = query.Where("o.delivery_date = ?", *filter.DeliveryDate)
	}

	var lines []models.DemandLine
	if err := query.Order("ol.id ASC").Scan(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// CreateOrder 创建订单与订单行（供种子数据与测试使用）
func (r *GormOrderLineRepository) CreateOrder(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		for i := range lines {
			lines[i].OrderID = order.ID
		}
		return tx.Create(&lines).Error
	})
}
