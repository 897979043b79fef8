package models

import (
	"strings"

	"github.com/despensa-next/internal/constants"
)

// NormalizeVariant 归一化规格标签，nil 表示无规格
func NormalizeVariant(label *string) *string {
	if label == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*label)
	return &trimmed
}

// VariantKey 生成规格唯一键：无规格为空串，其余加前缀，空标签与无规格不会冲突
func VariantKey(label *string) string {
	normalized := NormalizeVariant(label)
	if normalized == nil {
		return constants.VariantKeyNone
	}
	return constants.VariantKeyPrefix + *normalized
}

// VariantFromKey 由唯一键还原规格标签
func VariantFromKey(key string) *string {
	if !strings.HasPrefix(key, constants.VariantKeyPrefix) {
		return nil
	}
	label := strings.TrimPrefix(key, constants.VariantKeyPrefix)
	return &label
}
