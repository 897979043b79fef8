package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/despensa-next/internal/logger"
	"github.com/despensa-next/internal/provider"
	"github.com/despensa-next/internal/queue"
	"github.com/despensa-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskProcurementConsolidation, c.handleConsolidation)
}

// handleConsolidation 执行一次需求汇总；载荷错误不重试，单键失败只记录日志
func (c *Consumer) handleConsolidation(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_consolidation_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseConsolidationPayload(task)
	if err != nil {
		logger.Warnw("worker_consolidation_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	input, err := service.ConsolidateInputFromPayload(payload)
	if err != nil {
		logger.Warnw("worker_consolidation_invalid_payload", "run_id", payload.RunID, "delivery_date", payload.DeliveryDate, "error", err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if c.ConsolidationService == nil {
		logger.Warnw("worker_consolidation_skip_service_nil", "run_id", payload.RunID)
		return nil
	}
	if payload.RequestID != "" {
		ctx = logger.WithFields(ctx, "request_id", payload.RequestID)
	}

	report, err := c.ConsolidationService.Consolidate(ctx, input)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.FromContext(ctx).Warnw("worker_consolidation_interrupted", "run_id", payload.RunID, "error", err)
		} else {
			logger.FromContext(ctx).Errorw("worker_consolidation_failed", "run_id", payload.RunID, "error", err)
		}
		return err
	}
	if len(report.Failures) > 0 {
		logger.FromContext(ctx).Warnw("worker_consolidation_partial",
			"run_id", report.RunID,
			"failed", len(report.Failures),
			"keys", report.Keys,
			"requested_by", payload.RequestedBy,
		)
	}
	return nil
}
