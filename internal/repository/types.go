package repository

import "github.com/despensa-next/internal/models"

// DemandFilter 读取需求订单行的过滤条件
type DemandFilter struct {
	Statuses     []string     // 参与汇总的订单状态，为空时不返回任何行
	DeliveryDate *models.Date // 为空表示不按配送日过滤
}

// TaskListFilter 查询采购任务列表的过滤条件
type TaskListFilter struct {
	Page         int
	PageSize     int
	DeliveryDate *models.Date
	Status       string
	ProductID    uint
	WithProduct  bool
}

// TaskTarget 任务当前采购的商品与单位，用于条件更新
type TaskTarget struct {
	ProductID uint
	Unit      string
}

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	Category   string
	Search     string
	OnlyActive bool
}

// ProviderListFilter 查询供应商列表的过滤条件
type ProviderListFilter struct {
	Page     int
	PageSize int
	Category string
	Search   string
}
