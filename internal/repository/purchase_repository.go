package repository

import (
	"context"

	"github.com/despensa-next/internal/models"

	"gorm.io/gorm"
)

// PurchaseRepository 采购记录数据访问接口（只追加）
type PurchaseRepository interface {
	Create(ctx context.Context, purchase *models.Purchase) error
	ListByTask(ctx context.Context, taskID uint) ([]models.Purchase, error)
	WithTx(tx *gorm.DB) PurchaseRepository
}

// GormPurchaseRepository GORM 实现
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository 创建采购记录仓库
func NewPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPurchaseRepository) WithTx(tx *gorm.DB) PurchaseRepository {
	if tx == nil {
		return r
	}
	return &GormPurchaseRepository{db: tx}
}

// Create 创建采购记录
func (r *GormPurchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

// ListByTask 按写入顺序返回任务的采购记录
func (r *GormPurchaseRepository) ListByTask(ctx context.Context, taskID uint) ([]models.Purchase, error) {
	var purchases []models.Purchase
	if err := r.db.WithContext(ctx).
		Preload("Provider").
		Where("task_id = ?", taskID).
		Order("id ASC").
		Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}
