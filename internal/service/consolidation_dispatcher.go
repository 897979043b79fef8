package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/despensa-next/internal/logger"
	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/queue"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// DispatchResult 异步汇总受理结果
type DispatchResult struct {
	RunID  string `json:"run_id"`
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}

// ConsolidationDispatcher 将汇总请求推送到队列，由 worker 执行同一汇总逻辑
type ConsolidationDispatcher struct {
	client *queue.Client
}

// NewConsolidationDispatcher 创建异步汇总分发器
func NewConsolidationDispatcher(client *queue.Client) *ConsolidationDispatcher {
	return &ConsolidationDispatcher{client: client}
}

// Enabled 队列是否可用
func (d *ConsolidationDispatcher) Enabled() bool {
	return d != nil && d.client.Enabled()
}

// Dispatch 推送一次汇总
func (d *ConsolidationDispatcher) Dispatch(ctx context.Context, input ConsolidateInput, requestedBy string) (*DispatchResult, error) {
	if !d.Enabled() {
		return nil, ErrQueueUnavailable
	}
	runID := strings.TrimSpace(input.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	payload := queue.ConsolidationPayload{
		RunID:       runID,
		AllDates:    input.AllDates,
		RequestedBy: strings.TrimSpace(requestedBy),
		RequestID:   logger.RequestIDFromContext(ctx),
	}
	if input.DeliveryDate != nil {
		payload.DeliveryDate = input.DeliveryDate.String()
	}
	info, err := d.client.EnqueueConsolidation(ctx, payload)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil, fmt.Errorf("%w: run %s already queued", ErrQueueUnavailable, runID)
		}
		logger.FromContext(ctx).Errorw("consolidation_enqueue_failed", "run_id", runID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	logger.FromContext(ctx).Infow("consolidation_enqueued",
		"run_id", runID,
		"task_id", info.ID,
		"delivery_date", payload.DeliveryDate,
		"all_dates", payload.AllDates,
	)
	return &DispatchResult{RunID: runID, TaskID: info.ID, Queue: info.Queue}, nil
}

// ConsolidateInputFromPayload 将队列载荷还原为汇总输入
func ConsolidateInputFromPayload(payload queue.ConsolidationPayload) (ConsolidateInput, error) {
	input := ConsolidateInput{RunID: payload.RunID, AllDates: payload.AllDates}
	if raw := strings.TrimSpace(payload.DeliveryDate); raw != "" {
		date, err := models.ParseDate(raw)
		if err != nil {
			return input, fmt.Errorf("%w: %v", ErrInvalidDateFilter, err)
		}
		input.DeliveryDate = &date
	}
	return input, nil
}
