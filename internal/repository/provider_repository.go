package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/despensa-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProviderRepository 供应商数据访问接口
type ProviderRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Provider, error)
	GetByNameKey(ctx context.Context, nameKey string) (*models.Provider, error)
	List(ctx context.Context, filter ProviderListFilter) ([]models.Provider, int64, error)
	Create(ctx context.Context, provider *models.Provider) error
	CreateIfAbsent(ctx context.Context, provider *models.Provider) (bool, error)
	WithTx(tx *gorm.DB) ProviderRepository
}

// GormProviderRepository GORM 实现
type GormProviderRepository struct {
	db *gorm.DB
}

// NewProviderRepository 创建供应商仓库
func NewProviderRepository(db *gorm.DB) *GormProviderRepository {
	return &GormProviderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProviderRepository) WithTx(tx *gorm.DB) ProviderRepository {
	if tx == nil {
		return r
	}
	return &GormProviderRepository{db: tx}
}

// GetByID 按 ID 获取供应商
func (r *GormProviderRepository) GetByID(ctx context.Context, id uint) (*models.Provider, error) {
	var provider models.Provider
	if err := r.db.WithContext(ctx).First(&provider, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &provider, nil
}

// GetByNameKey 按归一化名称获取供应商
func (r *GormProviderRepository) GetByNameKey(ctx context.Context, nameKey string) (*models.Provider, error) {
	var provider models.Provider
	if err := r.db.WithContext(ctx).Where("name_key = ?", nameKey).First(&provider).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &provider, nil
}

// List 供应商列表
func (r *GormProviderRepository) List(ctx context.Context, filter ProviderListFilter) ([]models.Provider, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Provider{})
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(r.db, "name", "location", "tax_id")
		query = query.Where(condition, repeatLikeArgs("%"+search+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var providers []models.Provider
	if err := query.Order("name ASC, id ASC").Find(&providers).Error; err != nil {
		return nil, 0, err
	}
	return providers, total, nil
}

// Create 创建供应商，名称冲突返回 gorm.ErrDuplicatedKey
func (r *GormProviderRepository) Create(ctx context.Context, provider *models.Provider) error {
	return r.db.WithContext(ctx).Create(provider).Error
}

// CreateIfAbsent 名称不存在时创建供应商，返回是否新建。
// 冲突以 ON CONFLICT DO NOTHING 处理，不会中止所在事务。
func (r *GormProviderRepository) CreateIfAbsent(ctx context.Context, provider *models.Provider) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name_key"}}, DoNothing: true}).
		Create(provider)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
