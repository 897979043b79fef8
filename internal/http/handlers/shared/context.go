package shared

import (
	"context"
	"strconv"
	"strings"

	"github.com/despensa-next/internal/http/response"
	"github.com/despensa-next/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestContext 返回挂载 request_id 的请求 context
func RequestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if logger.RequestIDFromContext(ctx) != "" {
		return ctx
	}
	if requestID := c.GetString("request_id"); requestID != "" {
		return logger.WithFields(ctx, "request_id", requestID)
	}
	return ctx
}

// ParseUintParam 读取路径中的正整数 ID，非法时直接写出 400
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		RespondErrorWithMsg(c, response.CodeBadRequest, name+" is invalid", nil)
		return 0, false
	}
	return uint(value), true
}

// ParseUintQuery 读取可选的正整数查询参数，缺省返回 0
func ParseUintQuery(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		RespondErrorWithMsg(c, response.CodeBadRequest, name+" is invalid", nil)
		return 0, false
	}
	return uint(value), true
}

// Operator 操作人标识，来自 X-Operator 请求头
func Operator(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("X-Operator"))
}
