package admin

import (
	"context"
	"strings"
	"time"

	handlershared "github.com/despensa-next/internal/http/handlers/shared"
	"github.com/despensa-next/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func requestContext(c *gin.Context) context.Context {
	return handlershared.RequestContext(c)
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	return handlershared.ParseUintParam(c, name)
}

func operator(c *gin.Context) string {
	return handlershared.Operator(c)
}

// parseDateNullable 解析 YYYY-MM-DD，空串返回 nil
func parseDateNullable(raw string) (*models.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

// parseQuantityNullable 解析数量，空串返回 nil 由业务层判定缺失
func parseQuantityNullable(raw string) (*models.Quantity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	q, err := models.NewQuantityFromString(raw)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func parseMoneyNullable(raw string) (*models.Money, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	m := models.NewMoneyFromDecimal(d)
	return &m, nil
}

// parseTimeNullable 支持 RFC3339 与 "2006-01-02 15:04"（按配送中心时区）
func parseTimeNullable(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
