package service

import (
	"context"
	"errors"
	"strings"

	"github.com/despensa-next/internal/cache"
	"github.com/despensa-next/internal/logger"
	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/repository"

	"gorm.io/gorm"
)

// CatalogService 商品目录服务（只读为主，带 Redis 快照缓存）
type CatalogService struct {
	repo repository.ProductRepository
}

// CreateProductInput 创建商品输入
type CreateProductInput struct {
	SKU      string
	Name     string
	Category string
	Unit     string
}

// NewCatalogService 创建商品目录服务
func NewCatalogService(repo repository.ProductRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// GetProduct 按 ID 获取商品，缓存失败不影响读取
func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	if id == 0 {
		return nil, ErrProductNotFound
	}
	if snapshot, hit, err := cache.GetProduct(ctx, id); err != nil {
		logger.FromContext(ctx).Warnw("catalog_cache_get_failed", "product_id", id, "error", err)
	} else if hit {
		return snapshot.ToModel(), nil
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if err := cache.SetProduct(ctx, cache.BuildProductSnapshot(product)); err != nil {
		logger.FromContext(ctx).Warnw("catalog_cache_set_failed", "product_id", id, "error", err)
	}
	return product, nil
}

// ListProducts 商品列表
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductListFilter) ([]models.Product, int64, error) {
	return s.repo.List(ctx, filter)
}

// CreateProduct 创建商品，SKU 已存在时返回已有商品
func (s *CatalogService) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	sku := strings.TrimSpace(input.SKU)
	name := strings.TrimSpace(input.Name)
	unit := NormalizeUnit(input.Unit)
	if sku == "" || name == "" || unit == "" {
		return nil, ErrProductInvalid
	}
	product := &models.Product{
		SKU:      sku,
		Name:     name,
		Category: strings.TrimSpace(input.Category),
		Unit:     unit,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		existing, getErr := s.repo.GetBySKU(ctx, sku)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, err
		}
		return existing, nil
	}
	return product, nil
}

// SetProductActive 上下架商品并清理缓存
func (s *CatalogService) SetProductActive(ctx context.Context, id uint, active bool) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	product.IsActive = active
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	if err := cache.DelProduct(ctx, id); err != nil {
		logger.FromContext(ctx).Warnw("catalog_cache_del_failed", "product_id", id, "error", err)
	}
	return product, nil
}
