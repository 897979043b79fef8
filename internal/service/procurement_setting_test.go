package service

import (
	"context"
	"errors"
	"testing"

	"github.com/despensa-next/internal/constants"
)

func TestUpdateProcurementSettingNormalizesValue(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)
	ctx := context.Background()

	value, err := svc.Update(ctx, constants.SettingKeyProcurementConfig, map[string]interface{}{
		constants.SettingFieldCutoffEnabled: "false",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if enabled, ok := value[constants.SettingFieldCutoffEnabled].(bool); !ok || enabled {
		t.Fatalf("cutoff_enabled should be stored as bool false, got %#v", value[constants.SettingFieldCutoffEnabled])
	}

	setting, found, err := svc.GetProcurementSetting(ctx, ProcurementSetting{CutoffEnabled: true})
	if err != nil || !found || setting.CutoffEnabled {
		t.Fatalf("unexpected setting: %+v found=%v err=%v", setting, found, err)
	}
}

func TestUpdateProcurementSettingRejectsInvalidValue(t *testing.T) {
	svc := NewSettingService(newMockSettingRepo())
	ctx := context.Background()

	cases := []map[string]interface{}{
		{},
		{constants.SettingFieldCutoffEnabled: "a veces"},
		{constants.SettingFieldCutoffEnabled: []string{"true"}},
	}
	for _, value := range cases {
		if _, err := svc.Update(ctx, constants.SettingKeyProcurementConfig, value); !errors.Is(err, ErrSettingInvalid) {
			t.Fatalf("expected invalid setting for %#v, got %v", value, err)
		}
	}
}

func TestGetProcurementSettingDefaults(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)
	ctx := context.Background()

	setting, found, err := svc.GetProcurementSetting(ctx, ProcurementSetting{CutoffEnabled: true})
	if err != nil || found || !setting.CutoffEnabled {
		t.Fatalf("missing row should return defaults: %+v found=%v err=%v", setting, found, err)
	}

	repo.getErr = errSettingStoreDown
	if _, _, err := svc.GetProcurementSetting(ctx, ProcurementSetting{}); !errors.Is(err, errSettingStoreDown) {
		t.Fatalf("read error should propagate, got %v", err)
	}
}

func TestParseSettingBool(t *testing.T) {
	cases := []struct {
		value interface{}
		want  bool
	}{
		{true, true},
		{float64(0), false},
		{1, true},
		{" TRUE ", true},
		{"0", false},
	}
	for _, tc := range cases {
		got, err := parseSettingBool(tc.value)
		if err != nil || got != tc.want {
			t.Fatalf("parse %#v: want %v got %v err=%v", tc.value, tc.want, got, err)
		}
	}
}
