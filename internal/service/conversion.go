package service

import (
	"context"
	"strings"

	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/repository"

	"github.com/shopspring/decimal"
)

const conversionFactorScale = 8

// NormalizeUnit 归一化单位标签（去空白、小写）
func NormalizeUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}

// ConversionService 单位换算服务
type ConversionService struct {
	repo    repository.ConversionFactorRepository
	catalog *CatalogService
}

// UpsertConversionFactorInput 写入换算输入
type UpsertConversionFactorInput struct {
	ProductID uint
	FromUnit  string
	ToUnit    string
	Factor    decimal.Decimal
}

// NewConversionService 创建单位换算服务
func NewConversionService(repo repository.ConversionFactorRepository, catalog *CatalogService) *ConversionService {
	return &ConversionService{repo: repo, catalog: catalog}
}

// Convert 将采购数量换算为任务规范单位。
// 单位相同直接返回原值；不同且无换算记录时返回 ConversionUnresolvedError，不做 1:1 假设。
func (s *ConversionService) Convert(ctx context.Context, productID uint, quantity models.Quantity, fromUnit, toUnit string) (models.Quantity, error) {
	from := NormalizeUnit(fromUnit)
	to := NormalizeUnit(toUnit)
	if from == to {
		return quantity, nil
	}
	factor, err := s.repo.Find(ctx, productID, from, to)
	if err != nil {
		return models.Quantity{}, err
	}
	if factor == nil {
		return models.Quantity{}, &ConversionUnresolvedError{ProductID: productID, FromUnit: from, ToUnit: to}
	}
	return models.NewQuantity(quantity.Decimal.Mul(factor.Factor)), nil
}

// UpsertFactor 登记或覆盖换算系数
func (s *ConversionService) UpsertFactor(ctx context.Context, input UpsertConversionFactorInput) (*models.ConversionFactor, error) {
	from := NormalizeUnit(input.FromUnit)
	to := NormalizeUnit(input.ToUnit)
	if input.ProductID == 0 || from == "" || to == "" || from == to {
		return nil, ErrConversionFactorInvalid
	}
	factor := input.Factor.Round(conversionFactorScale)
	if !factor.IsPositive() {
		return nil, ErrConversionFactorInvalid
	}
	if s.catalog != nil {
		if _, err := s.catalog.GetProduct(ctx, input.ProductID); err != nil {
			return nil, err
		}
	}
	row := &models.ConversionFactor{
		ProductID: input.ProductID,
		FromUnit:  from,
		ToUnit:    to,
		Factor:    factor,
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// ListFactors 获取商品的全部换算
func (s *ConversionService) ListFactors(ctx context.Context, productID uint) ([]models.ConversionFactor, error) {
	return s.repo.ListByProduct(ctx, productID)
}

// DeleteFactor 删除换算
func (s *ConversionService) DeleteFactor(ctx context.Context, id uint) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConversionFactorNotFound
	}
	return nil
}
