package service

import (
	"context"

	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/repository"
)

// TaskDetail 任务详情：进度与采购历史
type TaskDetail struct {
	Task      *models.ProcurementTask `json:"task"`
	Progress  TaskProgress            `json:"progress"`
	Purchases []models.Purchase       `json:"purchases"`
}

// ProcurementTaskService 采购任务查询
type ProcurementTaskService struct {
	taskRepo     repository.ProcurementTaskRepository
	purchaseRepo repository.PurchaseRepository
}

// NewProcurementTaskService 创建采购任务查询服务
func NewProcurementTaskService(taskRepo repository.ProcurementTaskRepository, purchaseRepo repository.PurchaseRepository) *ProcurementTaskService {
	return &ProcurementTaskService{taskRepo: taskRepo, purchaseRepo: purchaseRepo}
}

// List 任务进度列表
func (s *ProcurementTaskService) List(ctx context.Context, filter repository.TaskListFilter) ([]TaskProgress, int64, error) {
	filter.WithProduct = true
	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items := make([]TaskProgress, 0, len(tasks))
	for i := range tasks {
		items = append(items, ProgressOf(&tasks[i]))
	}
	return items, total, nil
}

// Get 任务详情
func (s *ProcurementTaskService) Get(ctx context.Context, id uint) (*TaskDetail, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	purchases, err := s.purchaseRepo.ListByTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TaskDetail{
		Task:      task,
		Progress:  ProgressOf(task),
		Purchases: purchases,
	}, nil
}
