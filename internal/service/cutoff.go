package service

import (
	"context"
	"time"

	"github.com/despensa-next/internal/config"
	"github.com/despensa-next/internal/constants"
	"github.com/despensa-next/internal/logger"
	"github.com/despensa-next/internal/models"
)

// 截单开关来源
const (
	CutoffSourceSetting  = "setting"
	CutoffSourceDefault  = "default"
	CutoffSourceFallback = "fallback"
)

// CutoffRule 截单规则，每次操作读取一次后显式传入
type CutoffRule struct {
	Enabled bool
	Hour    int
}

// ResolveDeliveryDate 计算当前采购班次负责的配送日。
// 规则关闭时固定返回次日；开启时本地时间到达截单时刻返回次日，否则返回当日。
func ResolveDeliveryDate(now time.Time, loc *time.Location, rule CutoffRule) models.Date {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	today := models.DateOf(local)
	if !rule.Enabled {
		return today.AddDays(1)
	}
	hour := rule.Hour
	if hour < 0 || hour > 23 {
		hour = constants.DefaultCutoffHour
	}
	if local.Hour() >= hour {
		return today.AddDays(1)
	}
	return today
}

// CutoffResolution 截单解析结果
type CutoffResolution struct {
	DeliveryDate models.Date `json:"delivery_date"`
	Enabled      bool        `json:"cutoff_enabled"`
	CutoffHour   int         `json:"cutoff_hour"`
	Source       string      `json:"source"`
	EvaluatedAt  time.Time   `json:"evaluated_at"`
}

// CutoffService 截单窗口服务
type CutoffService struct {
	settings *SettingService
	cfg      config.ProcurementConfig
	loc      *time.Location
	now      func() time.Time
}

// NewCutoffService 创建截单窗口服务
func NewCutoffService(settings *SettingService, cfg config.ProcurementConfig) *CutoffService {
	return &CutoffService{
		settings: settings,
		cfg:      cfg,
		loc:      cfg.Location(),
		now:      time.Now,
	}
}

// WithClock 替换时钟
func (s *CutoffService) WithClock(now func() time.Time) *CutoffService {
	if now == nil {
		return s
	}
	clone := *s
	clone.now = now
	return &clone
}

// Location 返回配送中心时区
func (s *CutoffService) Location() *time.Location {
	if s == nil || s.loc == nil {
		return time.Local
	}
	return s.loc
}

// Rule 读取本次操作使用的截单规则，读取失败时按开启处理
func (s *CutoffService) Rule(ctx context.Context) (CutoffRule, string) {
	rule := CutoffRule{Enabled: s.cfg.CutoffEnabled, Hour: s.cfg.CutoffHour}
	setting, found, err := s.settings.GetProcurementSetting(ctx, ProcurementSetting{CutoffEnabled: s.cfg.CutoffEnabled})
	if err != nil {
		logger.FromContext(ctx).Warnw("cutoff_setting_read_failed",
			"error", err,
			"fallback", "cutoff_enabled",
		)
		rule.Enabled = true
		return rule, CutoffSourceFallback
	}
	if !found {
		return rule, CutoffSourceDefault
	}
	rule.Enabled = setting.CutoffEnabled
	return rule, CutoffSourceSetting
}

// Resolve 以当前时间解析配送日
func (s *CutoffService) Resolve(ctx context.Context) CutoffResolution {
	return s.ResolveAt(ctx, s.now())
}

// ResolveAt 以给定时间解析配送日
func (s *CutoffService) ResolveAt(ctx context.Context, now time.Time) CutoffResolution {
	rule, source := s.Rule(ctx)
	return CutoffResolution{
		DeliveryDate: ResolveDeliveryDate(now, s.Location(), rule),
		Enabled:      rule.Enabled,
		CutoffHour:   rule.Hour,
		Source:       source,
		EvaluatedAt:  now.In(s.Location()),
	}
}
