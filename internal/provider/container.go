package provider

import (
	"github.com/despensa-next/internal/cache"
	"github.com/despensa-next/internal/config"
	"github.com/despensa-next/internal/logger"
	"github.com/despensa-next/internal/metrics"
	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/queue"
	"github.com/despensa-next/internal/repository"
	"github.com/despensa-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Metrics     *metrics.Registry

	// Repositories
	OrderLineRepo        repository.OrderLineRepository
	ProductRepo          repository.ProductRepository
	ProcurementTaskRepo  repository.ProcurementTaskRepository
	PurchaseRepo         repository.PurchaseRepository
	ProviderRepo         repository.ProviderRepository
	ConversionFactorRepo repository.ConversionFactorRepository
	SettingRepo          repository.SettingRepository

	// Services
	EvidenceStore           service.EvidenceStore
	SettingService          *service.SettingService
	CatalogService          *service.CatalogService
	ConversionService       *service.ConversionService
	ProviderService         *service.ProviderService
	CutoffService           *service.CutoffService
	ConsolidationService    *service.ConsolidationService
	ConsolidationDispatcher *service.ConsolidationDispatcher
	PurchaseService         *service.PurchaseService
	SubstitutionService     *service.SubstitutionService
	ProcurementTaskService  *service.ProcurementTaskService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Metrics:     metrics.NewRegistry(),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.OrderLineRepo = repository.NewOrderLineRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.ProcurementTaskRepo = repository.NewProcurementTaskRepository(db)
	c.PurchaseRepo = repository.NewPurchaseRepository(db)
	c.ProviderRepo = repository.NewProviderRepository(db)
	c.ConversionFactorRepo = repository.NewConversionFactorRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
}

func (c *Container) initServices() {
	procurement := c.Config.Procurement

	c.EvidenceStore = service.NewLocalEvidenceStore(c.Config.Evidence)
	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.CatalogService = service.NewCatalogService(c.ProductRepo)
	c.ConversionService = service.NewConversionService(c.ConversionFactorRepo, c.CatalogService)
	c.ProviderService = service.NewProviderService(c.ProviderRepo)
	c.CutoffService = service.NewCutoffService(c.SettingService, procurement)
	c.ConsolidationService = service.NewConsolidationService(c.OrderLineRepo, c.ProcurementTaskRepo, c.CatalogService, c.ConversionService, c.CutoffService, procurement, c.Metrics)
	c.ConsolidationDispatcher = service.NewConsolidationDispatcher(c.QueueClient)
	c.PurchaseService = service.NewPurchaseService(c.ProcurementTaskRepo, c.PurchaseRepo, c.ProviderRepo, c.ConversionService, c.EvidenceStore, c.Metrics)
	c.SubstitutionService = service.NewSubstitutionService(c.ProcurementTaskRepo, c.CatalogService, c.ConversionService, c.Metrics)
	c.ProcurementTaskService = service.NewProcurementTaskService(c.ProcurementTaskRepo, c.PurchaseRepo)
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
