package repository

import "gorm.io/gorm"

// maxListPageSize 单页上限；HTTP 层另有更小的上限，CLI 直接走仓库时依赖这里
const maxListPageSize = 500

// applyPagination 按页取数。pageSize <= 0 表示不分页，页码小于 1 视为第一页
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	pageSize = min(pageSize, maxListPageSize)
	page = max(page, 1)
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
