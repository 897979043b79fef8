package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/despensa-next/internal/constants"
	"github.com/despensa-next/internal/logger"
	"github.com/despensa-next/internal/metrics"
	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/repository"

	"gorm.io/gorm"
)

// RecordPurchaseInput 采购记录输入，指针字段为空表示未提供
type RecordPurchaseInput struct {
	TaskID            uint
	Quantity          *models.Quantity
	UnitPrice         *models.Money
	Provider          ProviderInput
	PurchaseUnit      string
	EstimatedPickupAt *time.Time
	Evidence          *EvidenceUpload
	RecordedBy        string
}

// RecordPurchaseResult 采购记录结果
type RecordPurchaseResult struct {
	Purchase        *models.Purchase        `json:"purchase"`
	Task            *models.ProcurementTask `json:"task"`
	Progress        TaskProgress            `json:"progress"`
	ProviderCreated bool                    `json:"provider_created"`
}

// PurchaseService 采购进度跟踪
type PurchaseService struct {
	taskRepo     repository.ProcurementTaskRepository
	purchaseRepo repository.PurchaseRepository
	providerRepo repository.ProviderRepository
	conversion   *ConversionService
	evidence     EvidenceStore
	metrics      *metrics.Registry
}

// NewPurchaseService 创建采购服务
func NewPurchaseService(
	taskRepo repository.ProcurementTaskRepository,
	purchaseRepo repository.PurchaseRepository,
	providerRepo repository.ProviderRepository,
	conversion *ConversionService,
	evidence EvidenceStore,
	registry *metrics.Registry,
) *PurchaseService {
	return &PurchaseService{
		taskRepo:     taskRepo,
		purchaseRepo: purchaseRepo,
		providerRepo: providerRepo,
		conversion:   conversion,
		evidence:     evidence,
		metrics:      registry,
	}
}

// RecordPurchase 记录一次采购并原子累加任务进度。
// 顺序：校验必填字段，换算到任务单位，上传凭证，最后在事务内写采购记录与累加。
// 凭证上传失败或换算缺失时不写任何记录；事务失败时尽力删除已上传凭证。
func (s *PurchaseService) RecordPurchase(ctx context.Context, input RecordPurchaseInput) (*RecordPurchaseResult, error) {
	started := time.Now()
	ctx = logger.WithFields(ctx, "task_id", input.TaskID)
	log := logger.FromContext(ctx)

	if err := validatePurchaseInput(input); err != nil {
		s.metrics.RejectPurchase("validation")
		return nil, err
	}

	task, err := s.taskRepo.GetByID(ctx, input.TaskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		s.metrics.RejectPurchase("task_not_found")
		return nil, ErrTaskNotFound
	}

	purchaseUnit := NormalizeUnit(input.PurchaseUnit)
	quantity := *input.Quantity
	converted, err := s.conversion.Convert(ctx, task.ProductID, quantity, purchaseUnit, task.Unit)
	if err != nil {
		if errors.Is(err, ErrConversionUnresolved) {
			s.metrics.UnresolvedConversion()
			s.metrics.RejectPurchase("conversion_unresolved")
			log.Warnw("purchase_conversion_unresolved",
				"product_id", task.ProductID,
				"purchase_unit", purchaseUnit,
				"task_unit", task.Unit,
			)
		}
		return nil, err
	}

	evidenceRef, err := s.evidence.Save(ctx, *input.Evidence)
	if err != nil {
		s.metrics.RejectPurchase("evidence")
		if errors.Is(err, ErrEvidenceInvalid) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Errorw("purchase_evidence_upload_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrEvidenceUploadFailed, err)
	}

	unitPrice := models.NewMoneyFromDecimal(input.UnitPrice.Decimal)
	purchase := &models.Purchase{
		TaskID:            task.ID,
		ProductID:         task.ProductID,
		VariantLabel:      task.VariantLabel,
		Quantity:          quantity,
		PurchaseUnit:      purchaseUnit,
		ConvertedQuantity: converted,
		UnitPrice:         unitPrice,
		TotalCost:         models.NewMoneyFromDecimal(quantity.Decimal.Mul(unitPrice.Decimal)),
		EvidenceRef:       evidenceRef,
		EstimatedPickupAt: *input.EstimatedPickupAt,
		Status:            constants.PurchaseStatusPendingPickup,
		RecordedBy:        strings.TrimSpace(input.RecordedBy),
	}

	var (
		updated         *models.ProcurementTask
		provider        *models.Provider
		providerCreated bool
	)
	err = s.taskRepo.Transaction(ctx, func(tx *gorm.DB) error {
		var txErr error
		provider, providerCreated, txErr = resolveProvider(ctx, s.providerRepo.WithTx(tx), input.Provider)
		if txErr != nil {
			return txErr
		}
		purchase.ProviderID = provider.ID
		if txErr = s.purchaseRepo.WithTx(tx).Create(ctx, purchase); txErr != nil {
			return txErr
		}
		taskRepo := s.taskRepo.WithTx(tx)
		target := repository.TaskTarget{ProductID: task.ProductID, Unit: task.Unit}
		affected, txErr := taskRepo.IncrementPurchased(ctx, task.ID, target, converted)
		if txErr != nil {
			return txErr
		}
		if affected == 0 {
			// 换算后任务被删除或被替换为其他商品/单位
			current, getErr := taskRepo.GetByID(ctx, task.ID)
			if getErr != nil {
				return getErr
			}
			if current == nil {
				return ErrTaskNotFound
			}
			return ErrTaskSubstituted
		}
		updated, txErr = taskRepo.GetByID(ctx, task.ID)
		if txErr != nil {
			return txErr
		}
		if updated == nil {
			return ErrTaskNotFound
		}
		return nil
	})
	if err != nil {
		s.metrics.RejectPurchase("storage")
		if delErr := s.evidence.Delete(context.WithoutCancel(ctx), evidenceRef); delErr != nil {
			log.Warnw("purchase_evidence_cleanup_failed", "evidence_ref", evidenceRef, "error", delErr)
		}
		if errors.Is(err, ErrTaskNotFound) || errors.Is(err, ErrTaskSubstituted) ||
			errors.Is(err, ErrProviderNotFound) || errors.Is(err, ErrProviderInvalid) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Errorw("purchase_record_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPurchaseRecordFailed, err)
	}

	purchase.Provider = provider
	progress := ProgressOf(updated)
	s.metrics.ObservePurchase(time.Since(started))
	log.Infow("purchase_recorded",
		"purchase_id", purchase.ID,
		"provider_id", provider.ID,
		"quantity", quantity.String(),
		"purchase_unit", purchaseUnit,
		"converted_quantity", converted.String(),
		"total_purchased", progress.Purchased.String(),
		"status", progress.Status,
		"overage", progress.Overage.String(),
	)
	return &RecordPurchaseResult{
		Purchase:        purchase,
		Task:            updated,
		Progress:        progress,
		ProviderCreated: providerCreated,
	}, nil
}

// ListPurchases 按写入顺序返回任务的采购记录
func (s *PurchaseService) ListPurchases(ctx context.Context, taskID uint) ([]models.Purchase, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return s.purchaseRepo.ListByTask(ctx, taskID)
}

// validatePurchaseInput 任一必填字段缺失即拒绝，返回具体字段错误
func validatePurchaseInput(input RecordPurchaseInput) error {
	if input.TaskID == 0 {
		return missingField("task_id", ErrPurchaseTaskRequired)
	}
	if input.Quantity == nil {
		return missingField("quantity", ErrPurchaseQuantityRequired)
	}
	if !input.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", ErrPurchaseInvalid)
	}
	if input.UnitPrice == nil {
		return missingField("unit_price", ErrPurchaseUnitPriceRequired)
	}
	if input.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price must not be negative", ErrPurchaseInvalid)
	}
	if input.Provider.IsEmpty() {
		return missingField("provider", ErrPurchaseProviderRequired)
	}
	if NormalizeUnit(input.PurchaseUnit) == "" {
		return missingField("purchase_unit", ErrPurchaseUnitRequired)
	}
	if input.EstimatedPickupAt == nil || input.EstimatedPickupAt.IsZero() {
		return missingField("estimated_pickup_at", ErrPurchasePickupRequired)
	}
	if input.Evidence == nil || input.Evidence.Content == nil || input.Evidence.Size <= 0 {
		return missingField("evidence", ErrPurchaseEvidenceRequired)
	}
	return nil
}
