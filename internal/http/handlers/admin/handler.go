package admin

import "github.com/despensa-next/internal/provider"

// Handler 采购管理接口处理器入口
// 说明：该处理器供采购员与运营后台使用。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
