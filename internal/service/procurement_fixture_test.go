package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/despensa-next/internal/config"
	"github.com/despensa-next/internal/constants"
	"github.com/despensa-next/internal/metrics"
	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type procurementTestEnv struct {
	db            *gorm.DB
	metrics       *metrics.Registry
	evidence      *fakeEvidenceStore
	settings      *SettingService
	catalog       *CatalogService
	conversion    *ConversionService
	cutoff        *CutoffService
	consolidation *ConsolidationService
	purchases     *PurchaseService
	substitution  *SubstitutionService
	tasks         *ProcurementTaskService
	taskRepo      *repository.GormProcurementTaskRepository
	lineRepo      *repository.GormOrderLineRepository
}

func setupProcurementTest(t *testing.T) *procurementTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:procurement_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := models.Open("sqlite", dsn, &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	cfg := config.ProcurementConfig{
		CutoffEnabled:      true,
		CutoffHour:         constants.DefaultCutoffHour,
		Timezone:           "UTC",
		ActionableStatuses: constants.DefaultActionableOrderStatuses,
		FilterByDate:       false,
	}
	registry := metrics.NewRegistry()
	taskRepo := repository.NewProcurementTaskRepository(db)
	lineRepo := repository.NewOrderLineRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	settings := NewSettingService(repository.NewSettingRepository(db))
	catalog := NewCatalogService(repository.NewProductRepository(db))
	conversion := NewConversionService(repository.NewConversionFactorRepository(db), catalog)
	cutoff := NewCutoffService(settings, cfg)
	evidence := newFakeEvidenceStore()

	return &procurementTestEnv{
		db:            db,
		metrics:       registry,
		evidence:      evidence,
		settings:      settings,
		catalog:       catalog,
		conversion:    conversion,
		cutoff:        cutoff,
		consolidation: NewConsolidationService(lineRepo, taskRepo, catalog, conversion, cutoff, cfg, registry),
		purchases:     NewPurchaseService(taskRepo, purchaseRepo, repository.NewProviderRepository(db), conversion, evidence, registry),
		substitution:  NewSubstitutionService(taskRepo, catalog, conversion, registry),
		tasks:         NewProcurementTaskService(taskRepo, purchaseRepo),
		taskRepo:      taskRepo,
		lineRepo:      lineRepo,
	}
}

func (env *procurementTestEnv) createProduct(t *testing.T, sku, unit string) *models.Product {
	t.Helper()
	product, err := env.catalog.CreateProduct(context.Background(), CreateProductInput{
		SKU:      sku,
		Name:     "Producto " + sku,
		Category: "abarrotes",
		Unit:     unit,
	})
	if err != nil {
		t.Fatalf("create product %s failed: %v", sku, err)
	}
	return product
}

func (env *procurementTestEnv) createOrder(t *testing.T, no, status string, date models.Date, lines ...models.OrderLine) *models.Order {
	t.Helper()
	order := &models.Order{OrderNo: no, Status: status, DeliveryDate: date}
	if err := env.lineRepo.CreateOrder(context.Background(), order, lines); err != nil {
		t.Fatalf("create order %s failed: %v", no, err)
	}
	return order
}

func (env *procurementTestEnv) reloadTask(t *testing.T, id uint) *models.ProcurementTask {
	t.Helper()
	task, err := env.taskRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload task failed: %v", err)
	}
	if task == nil {
		t.Fatalf("task %d not found", id)
	}
	return task
}

func (env *procurementTestEnv) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := env.db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count rows failed: %v", err)
	}
	return count
}

func line(productID uint, quantity string) models.OrderLine {
	return models.OrderLine{ProductID: productID, Quantity: qty(quantity)}
}

func variantLine(productID uint, label string, quantity string) models.OrderLine {
	return models.OrderLine{ProductID: productID, VariantLabel: &label, Quantity: qty(quantity)}
}

func qty(value string) models.Quantity {
	return models.NewQuantity(decimal.RequireFromString(value))
}

func qtyPtr(value string) *models.Quantity {
	q := qty(value)
	return &q
}

func moneyPtr(value string) *models.Money {
	m := models.NewMoneyFromDecimal(decimal.RequireFromString(value))
	return &m
}

func testDeliveryDate() models.Date {
	return models.Date{Year: 2026, Month: time.March, Day: 10}
}

func pngEvidence() *EvidenceUpload {
	return &EvidenceUpload{Filename: "recibo.png", Size: int64(len(pngHeader)), Content: bytes.NewReader(pngHeader)}
}

func validPurchaseInput(taskID uint, quantity, unit string) RecordPurchaseInput {
	pickup := time.Date(2026, time.March, 10, 7, 0, 0, 0, time.UTC)
	return RecordPurchaseInput{
		TaskID:            taskID,
		Quantity:          qtyPtr(quantity),
		UnitPrice:         moneyPtr("12.50"),
		Provider:          ProviderInput{Name: "Central de Abasto Bodega 4", Location: "Pasillo H"},
		PurchaseUnit:      unit,
		EstimatedPickupAt: &pickup,
		Evidence:          pngEvidence(),
		RecordedBy:        "comprador-1",
	}
}

type fakeEvidenceStore struct {
	mu      sync.Mutex
	onSave  func()
	saveErr error
	saved   []string
	deleted []string
	seq     int
}

func newFakeEvidenceStore() *fakeEvidenceStore {
	return &fakeEvidenceStore{}
}

func (s *fakeEvidenceStore) Save(ctx context.Context, upload EvidenceUpload) (string, error) {
	if s.onSave != nil {
		s.onSave()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.seq++
	ref := fmt.Sprintf("/evidence/%d-%s", s.seq, upload.Filename)
	s.saved = append(s.saved, ref)
	return ref, nil
}

func (s *fakeEvidenceStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, ref)
	return nil
}

type mockSettingRepo struct {
	mu     sync.Mutex
	data   map[string]models.JSON
	getErr error
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{data: make(map[string]models.JSON)}
}

func (m *mockSettingRepo) GetByKey(_ context.Context, key string) (*models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	value, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func (m *mockSettingRepo) Upsert(_ context.Context, key string, value models.JSON) (*models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

var errSettingStoreDown = errors.New("settings store unavailable")
