package service

import (
	"errors"
	"fmt"
)

var (
	ErrTaskNotFound          = errors.New("procurement task not found")
	ErrTaskCompleted         = errors.New("procurement task already completed")
	ErrTaskUpdateFailed      = errors.New("procurement task update failed")
	ErrTaskSubstituted       = errors.New("procurement task product or unit changed, retry the purchase")
	ErrProductNotFound       = errors.New("product not found")
	ErrProductInactive       = errors.New("product is not active")
	ErrProductInvalid        = errors.New("product sku, name and unit are required")
	ErrSubstituteSameProduct = errors.New("substitute product equals current product")
	ErrSubstituteUnitChanged = errors.New("substitute product unit differs from task unit")
	ErrProviderNotFound      = errors.New("provider not found")
	ErrProviderInvalid       = errors.New("provider name is required")

	ErrPurchaseInvalid           = errors.New("purchase is invalid")
	ErrPurchaseTaskRequired      = errors.New("purchase task is required")
	ErrPurchaseQuantityRequired  = errors.New("purchase quantity is required")
	ErrPurchaseUnitPriceRequired = errors.New("purchase unit price is required")
	ErrPurchaseProviderRequired  = errors.New("purchase provider is required")
	ErrPurchaseUnitRequired      = errors.New("purchase unit is required")
	ErrPurchasePickupRequired    = errors.New("purchase pickup estimate is required")
	ErrPurchaseEvidenceRequired  = errors.New("purchase evidence is required")
	ErrPurchaseRecordFailed      = errors.New("purchase record failed")

	ErrEvidenceInvalid      = errors.New("evidence file is invalid")
	ErrEvidenceUploadFailed = errors.New("evidence upload failed")

	ErrConversionUnresolved     = errors.New("unit conversion unresolved")
	ErrConversionFactorInvalid  = errors.New("conversion factor is invalid")
	ErrConversionFactorNotFound = errors.New("conversion factor not found")

	ErrDemandReadFailed  = errors.New("demand read failed")
	ErrSettingInvalid    = errors.New("setting value is invalid")
	ErrQueueUnavailable  = errors.New("task queue unavailable")
	ErrInvalidDateFilter = errors.New("delivery date is invalid")
)

// MissingFieldError 采购缺少必填字段，同时匹配 ErrPurchaseInvalid 与具体字段错误
type MissingFieldError struct {
	Field string
	Err   error
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("purchase field %q is required", e.Field)
}

// Unwrap 支持 errors.Is 匹配两类哨兵错误
func (e *MissingFieldError) Unwrap() []error {
	return []error{e.Err, ErrPurchaseInvalid}
}

func missingField(field string, err error) error {
	return &MissingFieldError{Field: field, Err: err}
}

// ConversionUnresolvedError 商品缺少从采购单位到任务单位的换算
type ConversionUnresolvedError struct {
	ProductID uint
	FromUnit  string
	ToUnit    string
}

func (e *ConversionUnresolvedError) Error() string {
	return fmt.Sprintf("no conversion factor for product %d from %q to %q", e.ProductID, e.FromUnit, e.ToUnit)
}

func (e *ConversionUnresolvedError) Unwrap() error {
	return ErrConversionUnresolved
}
