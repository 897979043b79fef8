package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/despensa-next/internal/constants"
	"github.com/despensa-next/internal/models"

	"gorm.io/gorm"
)

// taskStatusCaseSQL 以已采购量与需求量推导任务状态，两处占位符依次为已采购量与需求量表达式
const taskStatusCaseSQL = "CASE WHEN %[1]s <= 0 THEN '" + constants.TaskStatusPending +
	"' WHEN %[1]s >= %[2]s THEN '" + constants.TaskStatusCompleted +
	"' ELSE '" + constants.TaskStatusPartial + "' END"

// ProcurementTaskRepository 采购任务数据访问接口
type ProcurementTaskRepository interface {
	GetByID(ctx context.Context, id uint) (*models.ProcurementTask, error)
	GetByKey(ctx context.Context, demandProductID uint, variantKey string, date models.Date) (*models.ProcurementTask, error)
	List(ctx context.Context, filter TaskListFilter) ([]models.ProcurementTask, int64, error)
	Create(ctx context.Context, task *models.ProcurementTask) error
	UpdateRequested(ctx context.Context, id uint, requested models.Quantity) (int64, error)
	IncrementPurchased(ctx context.Context, id uint, expected TaskTarget, delta models.Quantity) (int64, error)
	Substitute(ctx context.Context, id uint, productID uint, unit string) (int64, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ProcurementTaskRepository
}

// GormProcurementTaskRepository GORM 实现
type GormProcurementTaskRepository struct {
	db *gorm.DB
}

// NewProcurementTaskRepository 创建采购任务仓库
func NewProcurementTaskRepository(db *gorm.DB) *GormProcurementTaskRepository {
	return &GormProcurementTaskRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProcurementTaskRepository) WithTx(tx *gorm.DB) ProcurementTaskRepository {
	if tx == nil {
		return r
	}
	return &GormProcurementTaskRepository{db: tx}
}

// Transaction 执行事务
func (r *GormProcurementTaskRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// GetByID 按 ID 获取任务
func (r *GormProcurementTaskRepository) GetByID(ctx context.Context, id uint) (*models.ProcurementTask, error) {
	var task models.ProcurementTask
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// GetByKey 按汇总键获取任务
func (r *GormProcurementTaskRepository) GetByKey(ctx context.Context, demandProductID uint, variantKey string, date models.Date) (*models.ProcurementTask, error) {
	var task models.ProcurementTask
	err := r.db.WithContext(ctx).
		Where("demand_product_id = ? AND variant_key = ? AND delivery_date = ?", demandProductID, variantKey, date).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// List 任务列表
func (r *GormProcurementTaskRepository) List(ctx context.Context, filter TaskListFilter) ([]models.ProcurementTask, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ProcurementTask{})
	if filter.DeliveryDate != nil {
		query = query.Where("delivery_date = ?", *filter.DeliveryDate)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.ProductID != 0 {
		query = query.Where("product_id = ? OR demand_product_id = ?", filter.ProductID, filter.ProductID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.WithProduct {
		query = query.Preload("Product")
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var tasks []models.ProcurementTask
	if err := query.Order("delivery_date ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Create 创建任务，唯一键冲突返回 gorm.ErrDuplicatedKey
func (r *GormProcurementTaskRepository) Create(ctx context.Context, task *models.ProcurementTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// UpdateRequested 覆盖需求量，并按已采购量重新推导状态
func (r *GormProcurementTaskRepository) UpdateRequested(ctx context.Context, id uint, requested models.Quantity) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.ProcurementTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_requested": requested,
			"status":          gorm.Expr(statusExpr(roundExpr("total_purchased"), roundExpr("?")), requested),
			"updated_at":      time.Now(),
		})
	return result.RowsAffected, result.Error
}

// IncrementPurchased 以单条 UPDATE 原子累加已采购量并推导状态，并发采购不会丢失增量。
// 仅当任务仍为 expected 的商品与单位时更新；换算后任务被替换则影响行数为 0。
func (r *GormProcurementTaskRepository) IncrementPurchased(ctx context.Context, id uint, expected TaskTarget, delta models.Quantity) (int64, error) {
	purchased := roundExpr("total_purchased + ?")
	result := r.db.WithContext(ctx).Model(&models.ProcurementTask{}).
		Where("id = ? AND product_id = ? AND unit = ?", id, expected.ProductID, expected.Unit).
		Updates(map[string]interface{}{
			"total_purchased": gorm.Expr(purchased, delta),
			"status":          gorm.Expr(statusExpr(purchased, roundExpr("total_requested")), delta, delta),
			"updated_at":      time.Now(),
		})
	return result.RowsAffected, result.Error
}

// Substitute 替换任务商品，保留首次替换前的原商品；已完成的任务不会被更新
func (r *GormProcurementTaskRepository) Substitute(ctx context.Context, id uint, productID uint, unit string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.ProcurementTask{}).
		Where("id = ? AND status <> ?", id, constants.TaskStatusCompleted).
		Updates(map[string]interface{}{
			"original_product_id": gorm.Expr("COALESCE(original_product_id, product_id)"),
			"product_id":          productID,
			"unit":                unit,
			"updated_at":          time.Now(),
		})
	return result.RowsAffected, result.Error
}

func statusExpr(purchased, requested string) string {
	return fmt.Sprintf(taskStatusCaseSQL, purchased, requested)
}

// roundExpr 按数量精度取整；SQLite 以浮点存储 decimal 列，累加与比较都需先取整
func roundExpr(expr string) string {
	return fmt.Sprintf("ROUND(%s, %d)", expr, constants.QuantityScale)
}
