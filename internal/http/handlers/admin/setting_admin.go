package admin

import (
	"github.com/despensa-next/internal/constants"
	"github.com/despensa-next/internal/http/response"
	"github.com/despensa-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetProcurementSetting 读取采购设置
func (h *Handler) GetProcurementSetting(c *gin.Context) {
	ctx := requestContext(c)
	setting, found, err := h.SettingService.GetProcurementSetting(ctx, service.ProcurementSetting{
		CutoffEnabled: h.Config.Procurement.CutoffEnabled,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"setting":     setting,
		"from_config": !found,
		"cutoff_hour": h.Config.Procurement.CutoffHour,
		"timezone":    h.CutoffService.Location().String(),
	})
}

// UpdateProcurementSetting 更新采购设置
func (h *Handler) UpdateProcurementSetting(c *gin.Context) {
	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrSettingInvalid)
		return
	}
	value, err := h.SettingService.Update(requestContext(c), constants.SettingKeyProcurementConfig, req)
	if err != nil {
		respondError(c, err)
		return
	}
	requestLog(c).Infow("admin_procurement_setting_updated", "value", value, "operator", operator(c))
	response.Success(c, value)
}
