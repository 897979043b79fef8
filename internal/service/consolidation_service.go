package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/despensa-next/internal/config"
	"github.com/despensa-next/internal/constants"
	"github.com/despensa-next/internal/logger"
	"github.com/despensa-next/internal/metrics"
	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 单个汇总键的处理结果
const (
	KeyOutcomeCreated   = "created"
	KeyOutcomeUpdated   = "updated"
	KeyOutcomeUnchanged = "unchanged"
)

// ConsolidationKey 汇总键 (商品, 规格, 配送日)
type ConsolidationKey struct {
	ProductID    uint        `json:"product_id"`
	VariantKey   string      `json:"-"`
	DeliveryDate models.Date `json:"delivery_date"`
}

// VariantLabel 还原规格标签
func (k ConsolidationKey) VariantLabel() *string {
	return models.VariantFromKey(k.VariantKey)
}

// String 便于日志输出
func (k ConsolidationKey) String() string {
	return fmt.Sprintf("%d/%q/%s", k.ProductID, k.VariantKey, k.DeliveryDate)
}

// ConsolidationFailure 单个键的失败信息，不影响其他键
type ConsolidationFailure struct {
	Key          ConsolidationKey `json:"key"`
	VariantLabel *string          `json:"variant_label"`
	Error        string           `json:"error"`
	Err          error            `json:"-"`
}

// ConsolidationReport 一次汇总的结果
type ConsolidationReport struct {
	RunID        string                 `json:"run_id"`
	DeliveryDate *models.Date           `json:"delivery_date"`
	Cutoff       *CutoffResolution      `json:"cutoff,omitempty"`
	LinesRead    int                    `json:"lines_read"`
	Keys         int                    `json:"keys"`
	Created      int                    `json:"created"`
	Updated      int                    `json:"updated"`
	Unchanged    int                    `json:"unchanged"`
	Failures     []ConsolidationFailure `json:"failures"`
	Canceled     bool                   `json:"canceled"`
	StartedAt    time.Time              `json:"started_at"`
	FinishedAt   time.Time              `json:"finished_at"`
}

// Result 汇总结果标签
func (r *ConsolidationReport) Result() string {
	switch {
	case r == nil:
		return metrics.ResultFailed
	case r.Canceled:
		return metrics.ResultCanceled
	case len(r.Failures) > 0:
		return metrics.ResultPartial
	default:
		return metrics.ResultOK
	}
}

// ConsolidateInput 汇总输入；DeliveryDate 为空时由截单规则决定，AllDates 表示不按配送日过滤
type ConsolidateInput struct {
	DeliveryDate *models.Date
	AllDates     bool
	RunID        string
}

// ConsolidationService 需求汇总引擎
type ConsolidationService struct {
	lineRepo   repository.OrderLineRepository
	taskRepo   repository.ProcurementTaskRepository
	catalog    *CatalogService
	conversion *ConversionService
	cutoff     *CutoffService
	cfg        config.ProcurementConfig
	metrics    *metrics.Registry
}

// NewConsolidationService 创建需求汇总服务
func NewConsolidationService(
	lineRepo repository.OrderLineRepository,
	taskRepo repository.ProcurementTaskRepository,
	catalog *CatalogService,
	conversion *ConversionService,
	cutoff *CutoffService,
	cfg config.ProcurementConfig,
	registry *metrics.Registry,
) *ConsolidationService {
	return &ConsolidationService{
		lineRepo:   lineRepo,
		taskRepo:   taskRepo,
		catalog:    catalog,
		conversion: conversion,
		cutoff:     cutoff,
		cfg:        cfg,
		metrics:    registry,
	}
}

// Consolidate 按 (商品, 规格, 配送日) 汇总可采购订单行，并幂等地创建或更新采购任务。
// 每个键独立读写，单键失败记入报告后继续；取消时已提交的键保持不变并返回 ctx 错误。
func (s *ConsolidationService) Consolidate(ctx context.Context, input ConsolidateInput) (*ConsolidationReport, error) {
	runID := input.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logger.WithFields(ctx, "run_id", runID)
	log := logger.FromContext(ctx)

	report := &ConsolidationReport{
		RunID:     runID,
		Failures:  make([]ConsolidationFailure, 0),
		StartedAt: time.Now(),
	}
	defer func() {
		report.FinishedAt = time.Now()
		s.metrics.ObserveConsolidation(report.Result(), report.Created, report.Updated, report.Unchanged, len(report.Failures), report.FinishedAt.Sub(report.StartedAt))
	}()

	filter := repository.DemandFilter{Statuses: s.actionableStatuses()}
	switch {
	case input.DeliveryDate != nil:
		date := *input.DeliveryDate
		filter.DeliveryDate = &date
	case !input.AllDates && s.cfg.FilterByDate && s.cutoff != nil:
		resolution := s.cutoff.Resolve(ctx)
		date := resolution.DeliveryDate
		filter.DeliveryDate = &date
		report.Cutoff = &resolution
	}
	report.DeliveryDate = filter.DeliveryDate

	lines, err := s.lineRepo.ListDemand(ctx, filter)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Canceled = true
			return report, ctxErr
		}
		log.Errorw("consolidation_demand_read_failed", "error", err)
		return report, fmt.Errorf("%w: %v", ErrDemandReadFailed, err)
	}
	report.LinesRead = len(lines)

	keys, sums := groupDemand(lines)
	report.Keys = len(keys)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			report.Canceled = true
			log.Warnw("consolidation_canceled",
				"processed", report.Created+report.Updated+report.Unchanged+len(report.Failures),
				"keys", report.Keys,
			)
			return report, err
		}

		outcome, err := s.upsertKey(ctx, key, sums[key])
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				report.Canceled = true
				return report, ctxErr
			}
			log.Warnw("consolidation_key_failed",
				"product_id", key.ProductID,
				"variant_key", key.VariantKey,
				"delivery_date", key.DeliveryDate.String(),
				"error", err,
			)
			report.Failures = append(report.Failures, ConsolidationFailure{
				Key:          key,
				VariantLabel: key.VariantLabel(),
				Error:        err.Error(),
				Err:          err,
			})
			continue
		}
		switch outcome {
		case KeyOutcomeCreated:
			report.Created++
		case KeyOutcomeUpdated:
			report.Updated++
		default:
			report.Unchanged++
		}
	}

	log.Infow("consolidation_finished",
		"delivery_date", dateString(report.DeliveryDate),
		"lines", report.LinesRead,
		"keys", report.Keys,
		"created", report.Created,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"failed", len(report.Failures),
	)
	return report, nil
}

// upsertKey 单键读改写：不存在则创建，存在则覆盖需求量；并发创建冲突时回读后更新
func (s *ConsolidationService) upsertKey(ctx context.Context, key ConsolidationKey, requested models.Quantity) (string, error) {
	existing, err := s.taskRepo.GetByKey(ctx, key.ProductID, key.VariantKey, key.DeliveryDate)
	if err != nil {
		return "", err
	}
	if existing == nil {
		product, err := s.catalog.GetProduct(ctx, key.ProductID)
		if err != nil {
			return "", err
		}
		task := &models.ProcurementTask{
			DemandProductID: key.ProductID,
			VariantKey:      key.VariantKey,
			DeliveryDate:    key.DeliveryDate,
			ProductID:       product.ID,
			VariantLabel:    key.VariantLabel(),
			TotalRequested:  requested,
			TotalPurchased:  models.NewQuantityFromInt(0),
			Unit:            NormalizeUnit(product.Unit),
			Status:          constants.TaskStatusPending,
		}
		err = s.taskRepo.Create(ctx, task)
		if err == nil {
			return KeyOutcomeCreated, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", err
		}
		existing, err = s.taskRepo.GetByKey(ctx, key.ProductID, key.VariantKey, key.DeliveryDate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return "", ErrTaskUpdateFailed
		}
	}

	requested, err = s.inTaskUnit(ctx, existing, requested)
	if err != nil {
		return "", err
	}
	if existing.TotalRequested.Equal(requested.Decimal) {
		return KeyOutcomeUnchanged, nil
	}
	affected, err := s.taskRepo.UpdateRequested(ctx, existing.ID, requested)
	if err != nil {
		return "", err
	}
	if affected == 0 {
		return "", ErrTaskNotFound
	}
	return KeyOutcomeUpdated, nil
}

// inTaskUnit 需求量以需求商品单位求和；任务被替换为其他单位的商品后按替换商品的换算系数折算
func (s *ConsolidationService) inTaskUnit(ctx context.Context, task *models.ProcurementTask, requested models.Quantity) (models.Quantity, error) {
	if task.ProductID == task.DemandProductID {
		return requested, nil
	}
	demand, err := s.catalog.GetProduct(ctx, task.DemandProductID)
	if err != nil {
		return models.Quantity{}, err
	}
	return s.conversion.Convert(ctx, task.ProductID, requested, demand.Unit, task.Unit)
}

func (s *ConsolidationService) actionableStatuses() []string {
	if len(s.cfg.ActionableStatuses) > 0 {
		return s.cfg.ActionableStatuses
	}
	return constants.DefaultActionableOrderStatuses
}

// groupDemand 按汇总键求和，键按配送日、商品、规格排序
func groupDemand(lines []models.DemandLine) ([]ConsolidationKey, map[ConsolidationKey]models.Quantity) {
	sums := make(map[ConsolidationKey]decimal.Decimal)
	for _, line := range lines {
		key := ConsolidationKey{
			ProductID:    line.ProductID,
			VariantKey:   models.VariantKey(line.VariantLabel),
			DeliveryDate: line.DeliveryDate,
		}
		sums[key] = sums[key].Add(line.Quantity.Decimal)
	}

	keys := make([]ConsolidationKey, 0, len(sums))
	result := make(map[ConsolidationKey]models.Quantity, len(sums))
	for key, sum := range sums {
		keys = append(keys, key)
		result[key] = models.NewQuantity(sum)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.DeliveryDate != b.DeliveryDate {
			return a.DeliveryDate.Before(b.DeliveryDate)
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		return a.VariantKey < b.VariantKey
	})
	return keys, result
}

func dateString(date *models.Date) string {
	if date == nil {
		return ""
	}
	return date.String()
}
