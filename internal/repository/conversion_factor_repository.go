package repository

import (
	"context"
	"errors"
	"time"

	"github.com/despensa-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversionFactorRepository 单位换算数据访问接口，单位参数需已归一化
type ConversionFactorRepository interface {
	Find(ctx context.Context, productID uint, fromUnit, toUnit string) (*models.ConversionFactor, error)
	ListByProduct(ctx context.Context, productID uint) ([]models.ConversionFactor, error)
	Upsert(ctx context.Context, factor *models.ConversionFactor) error
	Delete(ctx context.Context, id uint) (int64, error)
	WithTx(tx *gorm.DB) ConversionFactorRepository
}

// GormConversionFactorRepository GORM 实现
type GormConversionFactorRepository struct {
	db *gorm.DB
}

// NewConversionFactorRepository 创建单位换算仓库
func NewConversionFactorRepository(db *gorm.DB) *GormConversionFactorRepository {
	return &GormConversionFactorRepository{db: db}
}

// WithTx 绑定事务
func (r *GormConversionFactorRepository) WithTx(tx *gorm.DB) ConversionFactorRepository {
	if tx == nil {
		return r
	}
	return &GormConversionFactorRepository{db: tx}
}

// Find 精确匹配 (product_id, from_unit, to_unit)
func (r *GormConversionFactorRepository) Find(ctx context.Context, productID uint, fromUnit, toUnit string) (*models.ConversionFactor, error) {
	var factor models.ConversionFactor
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND from_unit = ? AND to_unit = ?", productID, fromUnit, toUnit).
		First(&factor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &factor, nil
}

// ListByProduct 获取商品的全部换算
func (r *GormConversionFactorRepository) ListByProduct(ctx context.Context, productID uint) ([]models.ConversionFactor, error) {
	var factors []models.ConversionFactor
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("from_unit ASC, to_unit ASC").
		Find(&factors).Error; err != nil {
		return nil, err
	}
	return factors, nil
}

// Upsert 按 (product_id, from_unit, to_unit) 写入或覆盖换算系数
func (r *GormConversionFactorRepository) Upsert(ctx context.Context, factor *models.ConversionFactor) error {
	if factor == nil {
		return nil
	}
	factor.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "from_unit"}, {Name: "to_unit"}},
		DoUpdates: clause.AssignmentColumns([]string{"factor", "updated_at"}),
	}).Create(factor).Error
	if err != nil {
		return err
	}
	if factor.ID != 0 {
		return nil
	}
	// 冲突更新时部分驱动不回填主键
	stored, err := r.Find(ctx, factor.ProductID, factor.FromUnit, factor.ToUnit)
	if err != nil {
		return err
	}
	if stored != nil {
		*factor = *stored
	}
	return nil
}

// Delete 删除换算
func (r *GormConversionFactorRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.ConversionFactor{}, id)
	return result.RowsAffected, result.Error
}
