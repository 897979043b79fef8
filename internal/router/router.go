package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/despensa-next/internal/cache"
	"github.com/despensa-next/internal/config"
	adminhandlers "github.com/despensa-next/internal/http/handlers/admin"
	"github.com/despensa-next/internal/http/response"
	"github.com/despensa-next/internal/logger"
	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/provider"

	"github.com/gin-gonic/gin"
)

const adminRoutePrefix = "/api/v1/admin/"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "dsp"
	}
	consolidateRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:consolidate", redisPrefix),
		WindowSeconds: cfg.Security.ConsolidationRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ConsolidationRateLimit.MaxRequests,
		Message:       "consolidation triggered too often",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// 采购凭证
	if prefix := strings.TrimSpace(cfg.Evidence.PublicPrefix); prefix != "" && strings.TrimSpace(cfg.Evidence.Dir) != "" {
		r.Static(prefix, cfg.Evidence.Dir)
	}

	r.GET("/healthz", healthz)
	if c.Metrics != nil {
		r.GET("/metrics", gin.WrapH(c.Metrics.Handler()))
	}

	apiV1 := r.Group("/api/v1")
	{
		admin := apiV1.Group("/admin")
		{
			// 需求汇总与截单
			admin.POST("/consolidations", RateLimitMiddleware(cache.Client(), consolidateRule, KeyByIPAndHeader(operatorHeader)), adminHandler.Consolidate)
			admin.GET("/cutoff", adminHandler.PreviewCutoff)

			// 采购任务
			admin.GET("/tasks", adminHandler.ListTasks)
			admin.GET("/tasks/:id", adminHandler.GetTask)
			admin.POST("/tasks/:id/purchases", adminHandler.RecordPurchase)
			admin.GET("/tasks/:id/purchases", adminHandler.ListPurchases)
			admin.POST("/tasks/:id/substitution", adminHandler.SubstituteTask)

			// 商品与单位换算
			admin.GET("/products", adminHandler.ListProducts)
			admin.POST("/products", adminHandler.CreateProduct)
			admin.PATCH("/products/:id/active", adminHandler.SetProductActive)
			admin.GET("/products/:id/conversions", adminHandler.ListConversionFactors)
			admin.PUT("/products/:id/conversions", adminHandler.UpsertConversionFactor)
			admin.DELETE("/conversions/:factor_id", adminHandler.DeleteConversionFactor)

			// 供应商
			admin.GET("/providers", adminHandler.ListProviders)
			admin.POST("/providers/resolve", adminHandler.ResolveProvider)

			// 设置
			admin.GET("/settings/procurement", adminHandler.GetProcurementSetting)
			admin.PUT("/settings/procurement", adminHandler.UpdateProcurementSetting)

			admin.GET("/routes", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminRouteCatalog(r))
			})
		}
	}

	return r
}

func healthz(c *gin.Context) {
	status := gin.H{"database": "ok", "redis": "disabled"}
	code := http.StatusOK
	ctx := c.Request.Context()
	if models.DB == nil {
		status["database"] = "uninitialized"
		code = http.StatusServiceUnavailable
	} else if sqlDB, err := models.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status["database"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if cache.Enabled() {
		status["redis"] = "ok"
		if err := cache.Ping(ctx); err != nil {
			status["redis"] = "unavailable"
		}
	}
	c.JSON(code, status)
}

type adminRouteCatalogItem struct {
	Module string `json:"module"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// buildAdminRouteCatalog 列出已注册的管理端接口，按模块排序
func buildAdminRouteCatalog(r *gin.Engine) []adminRouteCatalogItem {
	if r == nil {
		return []adminRouteCatalogItem{}
	}
	routes := r.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminRouteCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, adminRoutePrefix) {
			continue
		}
		key := method + ":" + item.Path
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, adminRouteCatalogItem{
			Module: deriveAdminRouteModule(item.Path),
			Method: method,
			Path:   item.Path,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Path == items[j].Path {
				return items[i].Method < items[j].Method
			}
			return items[i].Path < items[j].Path
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminRouteModule(path string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(path), adminRoutePrefix)
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if segments[0] == "conversions" {
		return "products"
	}
	return segments[0]
}
