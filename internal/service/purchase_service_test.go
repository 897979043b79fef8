package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/despensa-next/internal/constants"
	"github.com/despensa-next/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

// seedTask 通过汇总生成一个待采购任务
func seedTask(t *testing.T, env *procurementTestEnv, sku, unit, requested string) *models.ProcurementTask {
	t.Helper()
	ctx := context.Background()
	product := env.createProduct(t, sku, unit)
	env.createOrder(t, "ORD-"+sku, constants.OrderStatusApproved, testDeliveryDate(), line(product.ID, requested))
	if _, err := env.consolidation.Consolidate(ctx, ConsolidateInput{}); err != nil {
		t.Fatalf("consolidate failed: %v", err)
	}
	task, err := env.taskRepo.GetByKey(ctx, product.ID, constants.VariantKeyNone, testDeliveryDate())
	if err != nil || task == nil {
		t.Fatalf("seed task missing: %v", err)
	}
	return task
}

func TestRecordPurchaseConvertsAndTracksOverage(t *testing.T) {
	env := setupProcurementTest(t)
	ctx := context.Background()
	task := seedTask(t, env, "FRIJOL-NEGRO", "kg", "100")
	if _, err := env.conversion.UpsertFactor(ctx, UpsertConversionFactorInput{
		ProductID: task.ProductID, FromUnit: "bulto", ToUnit: "kg", Factor: decimal.NewFromInt(2),
	}); err != nil {
		t.Fatalf("register factor failed: %v", err)
	}

	first, err := env.purchases.RecordPurchase(ctx, validPurchaseInput(task.ID, "40", "Bulto"))
	if err != nil {
		t.Fatalf("first purchase failed: %v", err)
	}
	if !first.Purchase.ConvertedQuantity.Equal(decimal.NewFromInt(80)) || !first.Purchase.Quantity.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected purchase quantities: %+v", first.Purchase)
	}
	if first.Purchase.PurchaseUnit != "bulto" {
		t.Fatalf("purchase unit should be normalized, got %q", first.Purchase.PurchaseUnit)
	}
	if !first.Purchase.TotalCost.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected total cost 500, got %s", first.Purchase.TotalCost)
	}
	if first.Progress.Status != constants.TaskStatusPartial || !first.Progress.Remaining.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected progress after first purchase: %+v", first.Progress)
	}
	if !first.ProviderCreated || first.Purchase.Provider == nil {
		t.Fatalf("first purchase should quick-add the provider: %+v", first)
	}
	if first.Purchase.Status != constants.PurchaseStatusPendingPickup || first.Purchase.EvidenceRef == "" {
		t.Fatalf("unexpected purchase status or evidence: %+v", first.Purchase)
	}

	second, err := env.purchases.RecordPurchase(ctx, validPurchaseInput(task.ID, "30", "kg"))
	if err != nil {
		t.Fatalf("second purchase failed: %v", err)
	}
	if !second.Task.TotalPurchased.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("expected 110 purchased, got %s", second.Task.TotalPurchased)
	}
	if second.Progress.Status != constants.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s", second.Progress.Status)
	}
	if !second.Progress.Overage.Equal(decimal.NewFromInt(10)) || !second.Progress.Remaining.IsZero() {
		t.Fatalf("overage should be surfaced: %+v", second.Progress)
	}
	if second.ProviderCreated || second.Purchase.ProviderID != first.Purchase.ProviderID {
		t.Fatalf("second purchase should reuse provider")
	}

	history, err := env.purchases.ListPurchases(ctx, task.ID)
	if err != nil {
		t.Fatalf("list purchases failed: %v", err)
	}
	if len(history) != 2 || history[0].ID != first.Purchase.ID || history[1].ID != second.Purchase.ID {
		t.Fatalf("unexpected purchase history: %+v", history)
	}
	if testutil.ToFloat64(env.metrics.PurchasesRecorded) != 2 {
		t.Fatalf("expected two recorded purchases in metrics")
	}
}

func TestRecordPurchaseMissingFields(t *testing.T) {
	env := setupProcurementTest(t)
	task := seedTask(t, env, "HUEVO", "kg", "10")

	cases := []struct {
		name   string
		mutate func(in *RecordPurchaseInput)
		field  string
		target error
	}{
		{name: "task", mutate: func(in *RecordPurchaseInput) { in.TaskID = 0 }, field: "task_id", target: ErrPurchaseTaskRequired},
		{name: "quantity", mutate: func(in *RecordPurchaseInput) { in.Quantity = nil }, field: "quantity", target: ErrPurchaseQuantityRequired},
		{name: "unit price", mutate: func(in *RecordPurchaseInput) { in.UnitPrice = nil }, field: "unit_price", target: ErrPurchaseUnitPriceRequired},
		{name: "provider", mutate: func(in *RecordPurchaseInput) { in.Provider = ProviderInput{Name: "   "} }, field: "provider", target: ErrPurchaseProviderRequired},
		{name: "purchase unit", mutate: func(in *RecordPurchaseInput) { in.PurchaseUnit = " " }, field: "purchase_unit", target: ErrPurchaseUnitRequired},
		{name: "pickup", mutate: func(in *RecordPurchaseInput) { in.EstimatedPickupAt = nil }, field: "estimated_pickup_at", target: ErrPurchasePickupRequired},
		{name: "evidence", mutate: func(in *RecordPurchaseInput) { in.Evidence = nil }, field: "evidence", target: ErrPurchaseEvidenceRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validPurchaseInput(task.ID, "2", "kg")
			tc.mutate(&input)
			_, err := env.purchases.RecordPurchase(context.Background(), input)
			if !errors.Is(err, tc.target) || !errors.Is(err, ErrPurchaseInvalid) {
				t.Fatalf("expected %v wrapped as invalid purchase, got %v", tc.target, err)
			}
			var missing *MissingFieldError
			if !errors.As(err, &missing) || missing.Field != tc.field {
				t.Fatalf("expected missing field %q, got %v", tc.field, err)
			}
		})
	}

	if n := env.countRows(t, &models.Purchase{}); n != 0 {
		t.Fatalf("rejected purchases must not be stored, got %d", n)
	}
	if len(env.evidence.saved) != 0 {
		t.Fatalf("rejected purchases must not upload evidence")
	}
	if got := env.reloadTask(t, task.ID); !got.TotalPurchased.IsZero() {
		t.Fatalf("rejected purchases must not touch the task")
	}
}

func TestRecordPurchaseRejectsNonPositiveQuantity(t *testing.T) {
	env := setupProcurementTest(t)
	task := seedTask(t, env, "LECHE", "litro", "10")

	for _, raw := range []string{"0", "-3"} {
		_, err := env.purchases.RecordPurchase(context.Background(), validPurchaseInput(task.ID, raw, "litro"))
		if !errors.Is(err, ErrPurchaseInvalid) {
			t.Fatalf("quantity %s should be rejected, got %v", raw, err)
		}
	}
	input := validPurchaseInput(task.ID, "1", "litro")
	input.UnitPrice = moneyPtr("-1")
	if _, err := env.purchases.RecordPurchase(context.Background(), input); !errors.Is(err, ErrPurchaseInvalid) {
		t.Fatalf("negative unit price should be rejected, got %v", err)
	}
}

func TestRecordPurchaseUnknownTask(t *testing.T) {
	env := setupProcurementTest(t)
	_, err := env.purchases.RecordPurchase(context.Background(), validPurchaseInput(4242, "1", "kg"))
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected task not found, got %v", err)
	}
}

func TestRecordPurchaseEvidenceFailureWritesNothing(t *testing.T) {
	env := setupProcurementTest(t)
	task := seedTask(t, env, "QUESO", "kg", "5")
	env.evidence.saveErr = errors.New("disk full")

	_, err := env.purchases.RecordPurchase(context.Background(), validPurchaseInput(task.ID, "2", "kg"))
	if !errors.Is(err, ErrEvidenceUploadFailed) {
		t.Fatalf("expected evidence upload failure, got %v", err)
	}
	if n := env.countRows(t, &models.Purchase{}); n != 0 {
		t.Fatalf("purchase must not be stored without evidence, got %d", n)
	}
	if n := env.countRows(t, &models.Provider{}); n != 0 {
		t.Fatalf("provider quick-add must not happen without evidence, got %d", n)
	}
	if got := env.reloadTask(t, task.ID); !got.TotalPurchased.IsZero() || got.Status != constants.TaskStatusPending {
		t.Fatalf("task must be untouched: %+v", got)
	}

	env.evidence.saveErr = ErrEvidenceInvalid
	if _, err := env.purchases.RecordPurchase(context.Background(), validPurchaseInput(task.ID, "2", "kg")); !errors.Is(err, ErrEvidenceInvalid) {
		t.Fatalf("invalid evidence should surface as is, got %v", err)
	}
}

func TestRecordPurchaseUnresolvedConversionWritesNothing(t *testing.T) {
	env := setupProcurementTest(t)
	task := seedTask(t, env, "NARANJA", "kg", "50")

	_, err := env.purchases.RecordPurchase(context.Background(), validPurchaseInput(task.ID, "3", "caja"))
	var unresolved *ConversionUnresolvedError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected unresolved conversion, got %v", err)
	}
	if unresolved.FromUnit != "caja" || unresolved.ToUnit != "kg" {
		t.Fatalf("unexpected unresolved detail: %+v", unresolved)
	}
	if len(env.evidence.saved) != 0 {
		t.Fatalf("evidence must not be uploaded before conversion resolves")
	}
	if n := env.countRows(t, &models.Purchase{}); n != 0 {
		t.Fatalf("purchase must not be stored, got %d", n)
	}
	if got := env.reloadTask(t, task.ID); !got.TotalPurchased.IsZero() {
		t.Fatalf("task must be untouched: %+v", got)
	}
	if testutil.ToFloat64(env.metrics.UnresolvedConversions) != 1 {
		t.Fatalf("unresolved conversion should be counted")
	}
}

func TestRecordPurchaseUnknownProviderDeletesEvidence(t *testing.T) {
	env := setupProcurementTest(t)
	task := seedTask(t, env, "MANGO", "kg", "15")

	input := validPurchaseInput(task.ID, "5", "kg")
	input.Provider = ProviderInput{ID: 777}
	_, err := env.purchases.RecordPurchase(context.Background(), input)
	if !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("expected provider not found, got %v", err)
	}
	if len(env.evidence.saved) != 1 || len(env.evidence.deleted) != 1 || env.evidence.saved[0] != env.evidence.deleted[0] {
		t.Fatalf("uploaded evidence should be cleaned up: saved=%v deleted=%v", env.evidence.saved, env.evidence.deleted)
	}
	if n := env.countRows(t, &models.Purchase{}); n != 0 {
		t.Fatalf("purchase must not be stored, got %d", n)
	}
}

func TestRecordPurchaseReusesProviderCaseInsensitively(t *testing.T) {
	env := setupProcurementTest(t)
	ctx := context.Background()
	task := seedTask(t, env, "PLATANO", "kg", "40")

	first := validPurchaseInput(task.ID, "5", "kg")
	first.Provider = ProviderInput{Name: "Frutas  Don Memo"}
	second := validPurchaseInput(task.ID, "5", "kg")
	second.Provider = ProviderInput{Name: " frutas don MEMO "}

	a, err := env.purchases.RecordPurchase(ctx, first)
	if err != nil {
		t.Fatalf("first purchase failed: %v", err)
	}
	b, err := env.purchases.RecordPurchase(ctx, second)
	if err != nil {
		t.Fatalf("second purchase failed: %v", err)
	}
	if a.Purchase.ProviderID != b.Purchase.ProviderID || !a.ProviderCreated || b.ProviderCreated {
		t.Fatalf("provider should be created once and reused")
	}
	if a.Purchase.Provider.Name != "Frutas Don Memo" {
		t.Fatalf("provider name should collapse whitespace, got %q", a.Purchase.Provider.Name)
	}
	if n := env.countRows(t, &models.Provider{}); n != 1 {
		t.Fatalf("expected one provider, got %d", n)
	}
}

func TestRecordPurchaseConcurrentIncrements(t *testing.T) {
	env := setupProcurementTest(t)
	task := seedTask(t, env, "ZANAHORIA", "kg", "25")

	const buyers = 10
	inputs := make([]RecordPurchaseInput, buyers)
	for i := range inputs {
		inputs[i] = validPurchaseInput(task.ID, "3", "kg")
	}

	var wg sync.WaitGroup
	errs := make(chan error, buyers)
	for i := range inputs {
		wg.Add(1)
		go func(input RecordPurchaseInput) {
			defer wg.Done()
			if _, err := env.purchases.RecordPurchase(context.Background(), input); err != nil {
				errs <- err
			}
		}(inputs[i])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent purchase failed: %v", err)
	}

	got := env.reloadTask(t, task.ID)
	if !got.TotalPurchased.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected 30 purchased, got %s", got.TotalPurchased)
	}
	if got.Status != constants.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if n := env.countRows(t, &models.Purchase{}); n != buyers {
		t.Fatalf("expected %d purchases, got %d", buyers, n)
	}
}

func TestRecordPurchaseRejectsTaskSubstitutedMidway(t *testing.T) {
	env := setupProcurementTest(t)
	ctx := context.Background()
	task := seedTask(t, env, "LIMON-PERSA", "kg", "20")
	colima := env.createProduct(t, "LIMON-COLIMA", "kg")

	env.evidence.onSave = func() {
		env.evidence.onSave = nil
		if _, err := env.substitution.Substitute(ctx, SubstituteInput{TaskID: task.ID, ProductID: colima.ID}); err != nil {
			t.Errorf("substitution during purchase failed: %v", err)
		}
	}
	_, err := env.purchases.RecordPurchase(ctx, validPurchaseInput(task.ID, "5", "kg"))
	if !errors.Is(err, ErrTaskSubstituted) {
		t.Fatalf("expected substituted task conflict, got %v", err)
	}

	got := env.reloadTask(t, task.ID)
	if got.ProductID != colima.ID || !got.TotalPurchased.IsZero() || got.Status != constants.TaskStatusPending {
		t.Fatalf("stale purchase must not touch the task: %+v", got)
	}
	if n := env.countRows(t, &models.Purchase{}); n != 0 {
		t.Fatalf("expected no purchase rows, got %d", n)
	}
	if len(env.evidence.deleted) != 1 {
		t.Fatalf("uploaded evidence should be cleaned up, deleted=%v", env.evidence.deleted)
	}

	result, err := env.purchases.RecordPurchase(ctx, validPurchaseInput(task.ID, "5", "kg"))
	if err != nil {
		t.Fatalf("retry after substitution failed: %v", err)
	}
	if result.Purchase.ProductID != colima.ID || result.Progress.Status != constants.TaskStatusPartial {
		t.Fatalf("retry should purchase the substitute: %+v", result.Purchase)
	}
}
