package service

import (
	"context"
	"fmt"

	"github.com/despensa-next/internal/constants"
	"github.com/despensa-next/internal/models"
)

// ProcurementSetting 采购运行时设置
type ProcurementSetting struct {
	CutoffEnabled bool `json:"cutoff_enabled"`
}

// ToMap 转换为设置存储结构
func (s ProcurementSetting) ToMap() map[string]interface{} {
	return map[string]interface{}{
		constants.SettingFieldCutoffEnabled: s.CutoffEnabled,
	}
}

func normalizeProcurementSetting(value map[string]interface{}) (models.JSON, error) {
	normalized := make(models.JSON, len(value))
	for key, raw := range value {
		normalized[key] = raw
	}
	raw, ok := value[constants.SettingFieldCutoffEnabled]
	if !ok {
		return nil, fmt.Errorf("%w: %s is required", ErrSettingInvalid, constants.SettingFieldCutoffEnabled)
	}
	enabled, err := parseSettingBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSettingInvalid, constants.SettingFieldCutoffEnabled, err)
	}
	normalized[constants.SettingFieldCutoffEnabled] = enabled
	return normalized, nil
}

// GetProcurementSetting 读取采购设置，无记录时返回默认值；found 表示设置记录是否存在
func (s *SettingService) GetProcurementSetting(ctx context.Context, defaults ProcurementSetting) (setting ProcurementSetting, found bool, err error) {
	setting = defaults
	if s == nil || s.repo == nil {
		return setting, false, nil
	}
	value, err := s.GetByKey(ctx, constants.SettingKeyProcurementConfig)
	if err != nil {
		return setting, false, err
	}
	if value == nil {
		return setting, false, nil
	}
	raw, ok := value[constants.SettingFieldCutoffEnabled]
	if !ok {
		return setting, false, nil
	}
	enabled, err := parseSettingBool(raw)
	if err != nil {
		return setting, true, fmt.Errorf("%w: %v", ErrSettingInvalid, err)
	}
	setting.CutoffEnabled = enabled
	return setting, true, nil
}

// UpdateProcurementSetting 写入采购设置
func (s *SettingService) UpdateProcurementSetting(ctx context.Context, setting ProcurementSetting) (ProcurementSetting, error) {
	if _, err := s.Update(ctx, constants.SettingKeyProcurementConfig, setting.ToMap()); err != nil {
		return ProcurementSetting{}, err
	}
	return setting, nil
}
