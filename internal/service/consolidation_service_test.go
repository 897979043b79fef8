package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/despensa-next/internal/config"
	"github.com/despensa-next/internal/constants"
	"github.com/despensa-next/internal/metrics"
	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/repository"

	"github.com/shopspring/decimal"
)

func listAllTasks(t *testing.T, env *procurementTestEnv) []models.ProcurementTask {
	t.Helper()
	tasks, _, err := env.taskRepo.List(context.Background(), repository.TaskListFilter{Page: 1, PageSize: 100})
	if err != nil {
		t.Fatalf("list tasks failed: %v", err)
	}
	return tasks
}

func TestConsolidateSumsActionableLines(t *testing.T) {
	env := setupProcurementTest(t)
	ctx := context.Background()
	date := testDeliveryDate()
	tomate := env.createProduct(t, "TOMATE", "kg")
	cebolla := env.createProduct(t, "CEBOLLA", "kg")

	env.createOrder(t, "ORD-1", constants.OrderStatusApproved, date, line(tomate.ID, "30"), line(cebolla.ID, "5"))
	env.createOrder(t, "ORD-2", constants.OrderStatusReadyForProcurement, date, line(tomate.ID, "45.5"))
	env.createOrder(t, "ORD-3", constants.OrderStatusDraft, date, line(tomate.ID, "100"))
	env.createOrder(t, "ORD-4", constants.OrderStatusCanceled, date, line(cebolla.ID, "7"))

	report, err := env.consolidation.Consolidate(ctx, ConsolidateInput{})
	if err != nil {
		t.Fatalf("consolidate failed: %v", err)
	}
	if report.LinesRead != 3 || report.Keys != 2 || report.Created != 2 || len(report.Failures) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Result() != metrics.ResultOK {
		t.Fatalf("unexpected result: %s", report.Result())
	}

	tomatoTask, err := env.taskRepo.GetByKey(ctx, tomate.ID, constants.VariantKeyNone, date)
	if err != nil || tomatoTask == nil {
		t.Fatalf("tomato task missing: %v", err)
	}
	if !tomatoTask.TotalRequested.Equal(decimal.RequireFromString("75.5")) {
		t.Fatalf("expected 75.5 requested, got %s", tomatoTask.TotalRequested)
	}
	if tomatoTask.Status != constants.TaskStatusPending || !tomatoTask.TotalPurchased.IsZero() {
		t.Fatalf("new task should be pending with nothing purchased: %+v", tomatoTask)
	}
	if tomatoTask.Unit != "kg" || tomatoTask.ProductID != tomate.ID || tomatoTask.OriginalProductID != nil {
		t.Fatalf("unexpected task attributes: %+v", tomatoTask)
	}
}

func TestConsolidateIsIdempotent(t *testing.T) {
	env := setupProcurementTest(t)
	ctx := context.Background()
	date := testDeliveryDate()
	papa := env.createProduct(t, "PAPA", "kg")
	env.createOrder(t, "ORD-1", constants.OrderStatusApproved, date, line(papa.ID, "12"), line(papa.ID, "8"))

	if _, err := env.consolidation.Consolidate(ctx, ConsolidateInput{}); err != nil {
		t.Fatalf("first consolidate failed: %v", err)
	}
	first := listAllTasks(t, env)

	report, err := env.consolidation.Consolidate(ctx, ConsolidateInput{})
	if err != nil {
		t.Fatalf("second consolidate failed: %v", err)
	}
	if report.Created != 0 || report.Updated != 0 || report.Unchanged != 1 {
		t.Fatalf("second run should change nothing: %+v", report)
	}
	second := listAllTasks(t, env)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected exactly one task, got %d and %d", len(first), len(second))
	}
	if first[0].ID != second[0].ID || !first[0].TotalRequested.Equal(second[0].TotalRequested.Decimal) {
		t.Fatalf("task changed between runs: %+v vs %+v", first[0], second[0])
	}
	if !first[0].UpdatedAt.Equal(second[0].UpdatedAt) {
		t.Fatalf("unchanged task should not be rewritten")
	}
}

func TestConsolidateConservesDemandPerDate(t *testing.T) {
	env := setupProcurementTest(t)
	ctx := context.Background()
	monday := testDeliveryDate()
	tuesday := monday.AddDays(1)
	limon := env.createProduct(t, "LIMON", "kg")

	env.createOrder(t, "ORD-1", constants.OrderStatusApproved, monday, line(limon.ID, "3.25"), line(limon.ID, "1.75"))
	env.createOrder(t, "ORD-2", constants.OrderStatusApproved, tuesday, line(limon.ID, "10"))
	env.createOrder(t, "ORD-3", constants.OrderStatusApproved, monday, line(limon.ID, "0.5"))

	report, err := env.consolidation.Consolidate(ctx, ConsolidateInput{})
	if err != nil {
		t.Fatalf("consolidate failed: %v", err)
	}
	if report.Created != 2 {
		t.Fatalf("expected one task per delivery date, got %+v", report)
	}

	total := decimal.Zero
	for _, task := range listAllTasks(t, env) {
		total = total.Add(task.TotalRequested.Decimal)
	}
	if !total.Equal(decimal.RequireFromString("15.5")) {
		t.Fatalf("requested total should equal actionable demand, got %s", total)
	}

	mondayTask, _ := env.taskRepo.GetByKey(ctx, limon.ID, constants.VariantKeyNone, monday)
	if mondayTask == nil || !mondayTask.TotalRequested.Equal(decimal.RequireFromString("5.5")) {
		t.Fatalf("unexpected monday task: %+v", mondayTask)
	}
}

func TestConsolidateKeepsVariantsApart(t *testing.T) {
	env := setupProcurementTest(t)
	ctx := context.Background()
	date := testDeliveryDate()
	chile := env.createProduct(t, "CHILE", "kg")

	env.createOrder(t, "ORD-1", constants.OrderStatusApproved, date,
		line(chile.ID, "2"),
		variantLine(chile.ID, "", "3"),
		variantLine(chile.ID, "serrano", "4"),
		variantLine(chile.ID, " serrano ", "1"),
	)

	report, err := env.consolidation.Consolidate(ctx, ConsolidateInput{})
	if err != nil {
		t.Fatalf("consolidate failed: %v", err)
	}
	if report.Created != 3 {
		t.Fatalf("expected three distinct variant tasks, got %+v", report)
	}

	noVariant, _ := env.taskRepo.GetByKey(ctx, chile.ID, models.VariantKey(nil), date)
	if noVariant == nil || noVariant.VariantLabel != nil || !noVariant.TotalRequested.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected no-variant task: %+v", noVariant)
	}
	empty := ""
	emptyVariant, _ := env.taskRepo.GetByKey(ctx, chile.ID, models.VariantKey(&empty), date)
	if emptyVariant == nil || emptyVariant.VariantLabel == nil || *emptyVariant.VariantLabel != "" {
		t.Fatalf("empty label should be its own task: %+v", emptyVariant)
	}
	serrano := "serrano"
	serranoTask, _ := env.taskRepo.GetByKey(ctx, chile.ID, models.VariantKey(&serrano), date)
	if serranoTask == nil || !serranoTask.TotalRequested.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("trimmed labels should merge: %+v", serranoTask)
	}
}

func TestConsolidateLoweredDemandKeepsCompleted(t *testing.T) {
	env := setupProcurementTest(t)
	ctx := context.Background()
	date := testDeliveryDate()
	ajo := env.createProduct(t, "AJO", "kg")
	env.createOrder(t, "ORD-1", constants.OrderStatusApproved, date, line(ajo.ID, "6"))
	second := env.createOrder(t, "ORD-2", constants.OrderStatusApproved, date, line(ajo.ID, "4"))

	if _, err := env.consolidation.Consolidate(ctx, ConsolidateInput{}); err != nil {
		t.Fatalf("consolidate failed: %v", err)
	}
	task, _ := env.taskRepo.GetByKey(ctx, ajo.ID, constants.VariantKeyNone, date)
	if task == nil {
		t.Fatalf("task missing")
	}
	if _, err := env.purchases.RecordPurchase(ctx, validPurchaseInput(task.ID, "8", "kg")); err != nil {
		t.Fatalf("record purchase failed: %v", err)
	}
	if got := env.reloadTask(t, task.ID); got.Status != constants.TaskStatusPartial {
		t.Fatalf("expected partial after 8 of 10, got %s", got.Status)
	}

	second.Status = constants.OrderStatusCanceled
	if err := env.db.Save(second).Error; err != nil {
		t.Fatalf("cancel order failed: %v", err)
	}
	report, err := env.consolidation.Consolidate(ctx, ConsolidateInput{})
	if err != nil {
		t.Fatalf("reconsolidate failed: %v", err)
	}
	if report.Updated != 1 {
		t.Fatalf("expected lowered demand to update the task: %+v", report)
	}
	got := env.reloadTask(t, task.ID)
	if !got.TotalRequested.Equal(decimal.NewFromInt(6)) || !got.TotalPurchased.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("unexpected quantities: %+v", got)
	}
	if got.Status != constants.TaskStatusCompleted {
		t.Fatalf("lowered demand below purchased should be completed, got %s", got.Status)
	}
	if progress := ProgressOf(got); !progress.Overage.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected overage 2, got %s", progress.Overage)
	}
}

func TestConsolidateIsolatesKeyFailures(t *testing.T) {
	env := setupProcurementTest(t)
	ctx := context.Background()
	date := testDeliveryDate()
	elote := env.createProduct(t, "ELOTE", "pieza")
	env.createOrder(t, "ORD-1", constants.OrderStatusApproved, date, line(elote.ID, "24"), line(9999, "3"))

	report, err := env.consolidation.Consolidate(ctx, ConsolidateInput{})
	if err != nil {
		t.Fatalf("per-key failure should not fail the run: %v", err)
	}
	if report.Created != 1 || len(report.Failures) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	failure := report.Failures[0]
	if failure.Key.ProductID != 9999 || !errors.Is(failure.Err, ErrProductNotFound) {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if report.Result() != metrics.ResultPartial {
		t.Fatalf("expected partial result, got %s", report.Result())
	}
	if env.countRows(t, &models.ProcurementTask{}) != 1 {
		t.Fatalf("failed key must not create a task")
	}
}

func TestConsolidateCanceledContext(t *testing.T) {
	env := setupProcurementTest(t)
	date := testDeliveryDate()
	nopal := env.createProduct(t, "NOPAL", "kg")
	env.createOrder(t, "ORD-1", constants.OrderStatusApproved, date, line(nopal.ID, "9"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := env.consolidation.Consolidate(ctx, ConsolidateInput{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if report == nil || !report.Canceled || report.Result() != metrics.ResultCanceled {
		t.Fatalf("report should be marked canceled: %+v", report)
	}
	if env.countRows(t, &models.ProcurementTask{}) != 0 {
		t.Fatalf("canceled run must not write tasks")
	}
}

func TestConsolidateDeliveryDateFilter(t *testing.T) {
	env := setupProcurementTest(t)
	ctx := context.Background()
	today := testDeliveryDate()
	tomorrow := today.AddDays(1)
	pepino := env.createProduct(t, "PEPINO", "kg")
	env.createOrder(t, "ORD-1", constants.OrderStatusApproved, today, line(pepino.ID, "4"))
	env.createOrder(t, "ORD-2", constants.OrderStatusApproved, tomorrow, line(pepino.ID, "6"))

	report, err := env.consolidation.Consolidate(ctx, ConsolidateInput{DeliveryDate: &tomorrow})
	if err != nil {
		t.Fatalf("consolidate failed: %v", err)
	}
	if report.Created != 1 || report.DeliveryDate == nil || *report.DeliveryDate != tomorrow {
		t.Fatalf("unexpected report: %+v", report)
	}
	if task, _ := env.taskRepo.GetByKey(ctx, pepino.ID, constants.VariantKeyNone, today); task != nil {
		t.Fatalf("other dates must be left untouched")
	}

	cfg := config.ProcurementConfig{
		CutoffEnabled:      true,
		CutoffHour:         constants.DefaultCutoffHour,
		Timezone:           "UTC",
		ActionableStatuses: constants.DefaultActionableOrderStatuses,
		FilterByDate:       true,
	}
	morning := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	cutoff := NewCutoffService(env.settings, cfg).WithClock(func() time.Time { return morning })
	windowed := NewConsolidationService(env.lineRepo, env.taskRepo, env.catalog, env.conversion, cutoff, cfg, env.metrics)

	report, err = windowed.Consolidate(ctx, ConsolidateInput{})
	if err != nil {
		t.Fatalf("windowed consolidate failed: %v", err)
	}
	if report.Cutoff == nil || report.Cutoff.DeliveryDate != today || report.Created != 1 {
		t.Fatalf("cutoff window should target today: %+v", report)
	}

	report, err = windowed.Consolidate(ctx, ConsolidateInput{AllDates: true})
	if err != nil {
		t.Fatalf("all-dates consolidate failed: %v", err)
	}
	if report.DeliveryDate != nil || report.Unchanged != 2 {
		t.Fatalf("all-dates run should see both tasks unchanged: %+v", report)
	}
}

func TestConsolidateAfterSubstitutionUpdatesSameTask(t *testing.T) {
	env := setupProcurementTest(t)
	ctx := context.Background()
	date := testDeliveryDate()
	aguacate := env.createProduct(t, "AGUACATE-HASS", "kg")
	criollo := env.createProduct(t, "AGUACATE-CRIOLLO", "kg")
	env.createOrder(t, "ORD-1", constants.OrderStatusApproved, date, line(aguacate.ID, "20"))

	if _, err := env.consolidation.Consolidate(ctx, ConsolidateInput{}); err != nil {
		t.Fatalf("consolidate failed: %v", err)
	}
	task, _ := env.taskRepo.GetByKey(ctx, aguacate.ID, constants.VariantKeyNone, date)
	if task == nil {
		t.Fatalf("task missing")
	}
	if _, err := env.substitution.Substitute(ctx, SubstituteInput{TaskID: task.ID, ProductID: criollo.ID}); err != nil {
		t.Fatalf("substitute failed: %v", err)
	}

	env.createOrder(t, "ORD-2", constants.OrderStatusApproved, date, line(aguacate.ID, "5"))
	report, err := env.consolidation.Consolidate(ctx, ConsolidateInput{})
	if err != nil {
		t.Fatalf("reconsolidate failed: %v", err)
	}
	if report.Created != 0 || report.Updated != 1 {
		t.Fatalf("substituted task should be updated in place: %+v", report)
	}
	got := env.reloadTask(t, task.ID)
	if got.ProductID != criollo.ID || got.OriginalProductID == nil || *got.OriginalProductID != aguacate.ID {
		t.Fatalf("substitution lost on reconsolidation: %+v", got)
	}
	if !got.TotalRequested.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected 25 requested, got %s", got.TotalRequested)
	}
	if env.countRows(t, &models.ProcurementTask{}) != 1 {
		t.Fatalf("reconsolidation must not duplicate the task")
	}
}

func TestGroupDemandOrdersKeys(t *testing.T) {
	monday := testDeliveryDate()
	label := "grande"
	lines := []models.DemandLine{
		{ProductID: 2, DeliveryDate: monday.AddDays(1), Quantity: qty("1")},
		{ProductID: 2, DeliveryDate: monday, VariantLabel: &label, Quantity: qty("2")},
		{ProductID: 1, DeliveryDate: monday, Quantity: qty("3")},
		{ProductID: 2, DeliveryDate: monday, Quantity: qty("4")},
		{ProductID: 2, DeliveryDate: monday, VariantLabel: &label, Quantity: qty("0.5")},
	}
	keys, sums := groupDemand(lines)
	if len(keys) != 4 {
		t.Fatalf("expected 4 keys, got %d", len(keys))
	}
	want := []ConsolidationKey{
		{ProductID: 1, DeliveryDate: monday},
		{ProductID: 2, DeliveryDate: monday},
		{ProductID: 2, VariantKey: "v:grande", DeliveryDate: monday},
		{ProductID: 2, DeliveryDate: monday.AddDays(1)},
	}
	for i, key := range want {
		if keys[i] != key {
			t.Fatalf("key %d: want %s got %s", i, key, keys[i])
		}
	}
	if !sums[want[2]].Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("unexpected variant sum: %s", sums[want[2]])
	}
}
