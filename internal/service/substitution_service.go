package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/despensa-next/internal/constants"
	"github.com/despensa-next/internal/logger"
	"github.com/despensa-next/internal/metrics"
	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/repository"
)

// SubstituteInput 商品替换输入
type SubstituteInput struct {
	TaskID    uint
	ProductID uint
	Operator  string
}

// SubstitutionService 商品替换管理
type SubstitutionService struct {
	taskRepo   repository.ProcurementTaskRepository
	catalog    *CatalogService
	conversion *ConversionService
	metrics    *metrics.Registry
}

// NewSubstitutionService 创建商品替换服务
func NewSubstitutionService(taskRepo repository.ProcurementTaskRepository, catalog *CatalogService, conversion *ConversionService, registry *metrics.Registry) *SubstitutionService {
	return &SubstitutionService{taskRepo: taskRepo, catalog: catalog, conversion: conversion, metrics: registry}
}

// Substitute 将未完成任务改为采购另一商品。
// 首次替换前的商品保留在 original_product_id；需求量与已采购量不变，也不会触发重新汇总。
// 替换商品单位与需求商品不同时，必须已登记替换商品从需求单位到其单位的换算，供后续汇总折算需求量。
func (s *SubstitutionService) Substitute(ctx context.Context, input SubstituteInput) (*models.ProcurementTask, error) {
	task, err := s.taskRepo.GetByID(ctx, input.TaskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if task.Status == constants.TaskStatusCompleted {
		return nil, ErrTaskCompleted
	}
	if input.ProductID == task.ProductID {
		return nil, ErrSubstituteSameProduct
	}

	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}

	unit := NormalizeUnit(product.Unit)
	if err := s.checkDemandConvertible(ctx, task, product.ID, unit); err != nil {
		return nil, err
	}

	affected, err := s.taskRepo.Substitute(ctx, task.ID, product.ID, unit)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// 读取后任务被并发采购完成或删除
		current, getErr := s.taskRepo.GetByID(ctx, task.ID)
		if getErr != nil {
			return nil, getErr
		}
		if current == nil {
			return nil, ErrTaskNotFound
		}
		return nil, ErrTaskCompleted
	}

	updated, err := s.taskRepo.GetByID(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrTaskNotFound
	}
	s.metrics.ObserveSubstitution()
	logger.FromContext(ctx).Infow("task_product_substituted",
		"task_id", task.ID,
		"from_product_id", task.ProductID,
		"to_product_id", product.ID,
		"original_product_id", updated.OriginalProductID,
		"unit", updated.Unit,
		"operator", strings.TrimSpace(input.Operator),
	)
	return updated, nil
}

func (s *SubstitutionService) checkDemandConvertible(ctx context.Context, task *models.ProcurementTask, productID uint, unit string) error {
	demand, err := s.catalog.GetProduct(ctx, task.DemandProductID)
	if err != nil {
		return err
	}
	if NormalizeUnit(demand.Unit) == unit {
		return nil
	}
	_, err = s.conversion.Convert(ctx, productID, models.NewQuantityFromInt(1), demand.Unit, unit)
	if errors.Is(err, ErrConversionUnresolved) {
		return fmt.Errorf("%w: %w", ErrSubstituteUnitChanged, err)
	}
	return err
}
