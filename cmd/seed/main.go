package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/despensa-next/internal/config"
	"github.com/despensa-next/internal/constants"
	"github.com/despensa-next/internal/logger"
	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/provider"
	"github.com/despensa-next/internal/repository"
	"github.com/despensa-next/internal/service"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedLine struct {
	sku      string
	variant  *string
	quantity int64
}

type seedOrder struct {
	orderNo string
	client  uint
	status  string
	lines   []seedLine
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	// 连接数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	container := provider.NewContainer(cfg)
	defer container.Close()
	ctx := context.Background()

	// 商品目录
	products := []service.CreateProductInput{
		{SKU: "TOM-001", Name: "Jitomate saladet", Category: "verdura", Unit: "kg"},
		{SKU: "ONI-001", Name: "Cebolla blanca", Category: "verdura", Unit: "kg"},
		{SKU: "CHI-001", Name: "Chile", Category: "verdura", Unit: "kg"},
		{SKU: "CIL-001", Name: "Cilantro", Category: "hierba", Unit: "manojo"},
		{SKU: "TOM-002", Name: "Jitomate bola", Category: "verdura", Unit: "kg"},
	}
	productIDs := make(map[string]uint, len(products))
	for _, input := range products {
		product, err := container.CatalogService.CreateProduct(ctx, input)
		if err != nil {
			stdLog.Printf("Failed to create product %s: %v", input.SKU, err)
			continue
		}
		productIDs[product.SKU] = product.ID
		stdLog.Printf("Product ready: %s (#%d)", product.SKU, product.ID)
	}

	// 单位换算：1 bulto = 2 kg，1 caja = 20 kg
	factors := []struct {
		sku    string
		from   string
		to     string
		factor string
	}{
		{sku: "TOM-001", from: "bulto", to: "kg", factor: "2"},
		{sku: "TOM-001", from: "caja", to: "kg", factor: "20"},
		{sku: "TOM-002", from: "caja", to: "kg", factor: "18"},
		{sku: "ONI-001", from: "costal", to: "kg", factor: "25"},
	}
	for _, item := range factors {
		productID, ok := productIDs[item.sku]
		if !ok {
			continue
		}
		if _, err := container.ConversionService.UpsertFactor(ctx, service.UpsertConversionFactorInput{
			ProductID: productID,
			FromUnit:  item.from,
			ToUnit:    item.to,
			Factor:    decimal.RequireFromString(item.factor),
		}); err != nil {
			stdLog.Printf("Failed to upsert factor %s %s->%s: %v", item.sku, item.from, item.to, err)
		}
	}

	// 供应商
	providers := []service.ProviderInput{
		{Name: "Bodega Central de Abasto", Location: "Nave I, pasillo 3", Category: "verdura"},
		{Name: "Hierbas Don Chema", Location: "Nave K, local 12", Category: "hierba"},
	}
	for _, input := range providers {
		item, created, err := container.ProviderService.Resolve(ctx, input)
		if err != nil {
			stdLog.Printf("Failed to resolve provider %s: %v", input.Name, err)
			continue
		}
		stdLog.Printf("Provider ready: %s (#%d, created=%v)", item.Name, item.ID, created)
	}

	// 订单：配送日取当前截单规则负责的日期，jitomate 合计 100 kg
	resolution := container.CutoffService.Resolve(ctx)
	serrano := "serrano"
	orders := []seedOrder{
		{orderNo: "DSP-0001", client: 1, status: constants.OrderStatusApproved, lines: []seedLine{
			{sku: "TOM-001", quantity: 60},
			{sku: "ONI-001", quantity: 15},
			{sku: "CHI-001", variant: &serrano, quantity: 3},
		}},
		{orderNo: "DSP-0002", client: 2, status: constants.OrderStatusReadyForProcurement, lines: []seedLine{
			{sku: "TOM-001", quantity: 40},
			{sku: "CIL-001", quantity: 12},
			{sku: "CHI-001", quantity: 2},
		}},
		{orderNo: "DSP-0003", client: 3, status: constants.OrderStatusDraft, lines: []seedLine{
			{sku: "TOM-001", quantity: 500},
		}},
	}
	for _, order := range orders {
		if err := seedOrderWithLines(ctx, container.OrderLineRepo, order, resolution.DeliveryDate, productIDs); err != nil {
			stdLog.Printf("Failed to seed order %s: %v", order.orderNo, err)
		}
	}

	// 汇总生成采购任务
	report, err := container.ConsolidationService.Consolidate(ctx, service.ConsolidateInput{
		DeliveryDate: &resolution.DeliveryDate,
	})
	if err != nil {
		stdLog.Fatalf("Failed to consolidate demand: %v", err)
	}
	fmt.Printf("Seed completed at %s: delivery_date=%s created=%d updated=%d unchanged=%d failed=%d\n",
		time.Now().Format(time.RFC3339),
		resolution.DeliveryDate,
		report.Created,
		report.Updated,
		report.Unchanged,
		len(report.Failures),
	)
}

func seedOrderWithLines(ctx context.Context, repo repository.OrderLineRepository, order seedOrder, date models.Date, productIDs map[string]uint) error {
	var existing models.Order
	err := models.DB.WithContext(ctx).Where("order_no = ?", order.orderNo).First(&existing).Error
	if err == nil {
		logger.Infow("seed_order_exists", "order_no", order.orderNo)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	lines := make([]models.OrderLine, 0, len(order.lines))
	for _, line := range order.lines {
		productID, ok := productIDs[line.sku]
		if !ok {
			return fmt.Errorf("unknown sku %s", line.sku)
		}
		lines = append(lines, models.OrderLine{
			ProductID:    productID,
			VariantLabel: line.variant,
			Quantity:     models.NewQuantityFromInt(line.quantity),
		})
	}
	return repo.CreateOrder(ctx, &models.Order{
		OrderNo:      order.orderNo,
		ClientID:     order.client,
		DeliveryDate: date,
		Status:       order.status,
	}, lines)
}
