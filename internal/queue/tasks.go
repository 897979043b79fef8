package queue

import (
	"encoding/json"
	"strings"

	"github.com/despensa-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskProcurementConsolidation 需求汇总任务
	TaskProcurementConsolidation = constants.TaskProcurementConsolidation
)

// ConsolidationPayload 需求汇总任务载荷，DeliveryDate 为空表示按截单规则决定
type ConsolidationPayload struct {
	RunID        string `json:"run_id"`
	DeliveryDate string `json:"delivery_date,omitempty"`
	AllDates     bool   `json:"all_dates,omitempty"`
	RequestedBy  string `json:"requested_by,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}

// NewConsolidationTask 创建需求汇总任务
func NewConsolidationTask(payload ConsolidationPayload) (*asynq.Task, error) {
	payload.DeliveryDate = strings.TrimSpace(payload.DeliveryDate)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProcurementConsolidation, body), nil
}

// ParseConsolidationPayload 解析需求汇总任务载荷
func ParseConsolidationPayload(task *asynq.Task) (ConsolidationPayload, error) {
	var payload ConsolidationPayload
	if task == nil {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
