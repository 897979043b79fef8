package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/despensa-next/internal/config"
	"github.com/despensa-next/internal/constants"
	"github.com/despensa-next/internal/metrics"
	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/provider"
	"github.com/despensa-next/internal/queue"
	"github.com/despensa-next/internal/repository"
	"github.com/despensa-next/internal/service"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupWorkerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := models.Open("sqlite", dsn, &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Order{}, &models.OrderLine{}, &models.Product{}, &models.ProcurementTask{}, &models.Setting{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := config.ProcurementConfig{
		CutoffEnabled:      true,
		CutoffHour:         constants.DefaultCutoffHour,
		Timezone:           "UTC",
		ActionableStatuses: constants.DefaultActionableOrderStatuses,
	}
	c := &provider.Container{
		Metrics:              metrics.NewRegistry(),
		OrderLineRepo:        repository.NewOrderLineRepository(db),
		ProductRepo:          repository.NewProductRepository(db),
		ConversionFactorRepo: repository.NewConversionFactorRepository(db),
		ProcurementTaskRepo:  repository.NewProcurementTaskRepository(db),
		SettingRepo:          repository.NewSettingRepository(db),
	}
	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.CatalogService = service.NewCatalogService(c.ProductRepo)
	c.ConversionService = service.NewConversionService(c.ConversionFactorRepo, c.CatalogService)
	c.CutoffService = service.NewCutoffService(c.SettingService, cfg)
	c.ConsolidationService = service.NewConsolidationService(c.OrderLineRepo, c.ProcurementTaskRepo, c.CatalogService, c.ConversionService, c.CutoffService, cfg, c.Metrics)
	return NewConsumer(c), db
}

func TestHandleConsolidationRunsSweep(t *testing.T) {
	consumer, db := setupWorkerTest(t)
	ctx := context.Background()
	date := models.Date{Year: 2026, Month: time.March, Day: 10}

	product, err := consumer.CatalogService.CreateProduct(ctx, service.CreateProductInput{SKU: "CAFE", Name: "Cafe", Unit: "kg"})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	order := &models.Order{OrderNo: "ORD-1", Status: constants.OrderStatusApproved, DeliveryDate: date}
	lines := []models.OrderLine{{ProductID: product.ID, Quantity: models.NewQuantityFromInt(7)}}
	if err := consumer.OrderLineRepo.CreateOrder(ctx, order, lines); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	task, err := queue.NewConsolidationTask(queue.ConsolidationPayload{RunID: "run-1", DeliveryDate: date.String()})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if err := consumer.handleConsolidation(ctx, task); err != nil {
		t.Fatalf("handle consolidation failed: %v", err)
	}

	var stored models.ProcurementTask
	if err := db.Where("demand_product_id = ?", product.ID).First(&stored).Error; err != nil {
		t.Fatalf("task not created: %v", err)
	}
	if !stored.TotalRequested.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("unexpected requested quantity: %s", stored.TotalRequested)
	}
}

func TestHandleConsolidationSkipsRetryOnBadPayload(t *testing.T) {
	consumer, _ := setupWorkerTest(t)

	err := consumer.handleConsolidation(context.Background(), asynq.NewTask(queue.TaskProcurementConsolidation, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed payload should skip retry, got %v", err)
	}

	task, _ := queue.NewConsolidationTask(queue.ConsolidationPayload{RunID: "run-2", DeliveryDate: "10/03/2026"})
	err = consumer.handleConsolidation(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) || !errors.Is(err, service.ErrInvalidDateFilter) {
		t.Fatalf("invalid date should skip retry, got %v", err)
	}
}
