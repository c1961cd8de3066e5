package payroll

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEntry_Manual(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.DefaultDeductionRate = dec("0.1")
	h := newHarnessWithConfig(t, cfg)
	h.store.addHourlyEmployee(empOmar, "Omar Said", "20")
	periodID := h.weeklyPeriod(t)

	entry, err := h.svc.CreateEntry(ctx, h.actor, payroll.CreateEntryRequest{
		EmployeeID:    empOmar,
		PayPeriodID:   periodID,
		RegularHours:  dec("10"),
		OvertimeHours: dec("2"),
	})
	require.NoError(t, err)
	require.NotNil(t, entry)

	assertDecimal(t, "20", entry.HourlyRate)
	assertDecimal(t, "200", entry.RegularPay)
	assertDecimal(t, "60", entry.OvertimePay)
	assertDecimal(t, "260", entry.GrossPay)
	assertDecimal(t, "26", entry.TotalDeductions)
	assertDecimal(t, "234", entry.NetPay)
	assert.Equal(t, string(payroll.SourceTypeManual), entry.SourceType)
	assert.False(t, entry.IsAutoGenerated)
	assert.Equal(t, "PE-2024-000001", entry.EntryNumber)
	require.NotNil(t, entry.EmployeeName)
	assert.Equal(t, "Omar Said", *entry.EmployeeName)

	run := h.store.run(t, entry.PayrollRunID)
	assert.Equal(t, 1, run.TotalEmployees)
	assertDecimal(t, "234", run.TotalNet)
}

func TestCreateEntry_Overrides(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.DefaultDeductionRate = dec("0.1")
	h := newHarnessWithConfig(t, cfg)
	h.store.addHourlyEmployee(empOmar, "Omar Said", "20")
	periodID := h.weeklyPeriod(t)

	entry, err := h.svc.CreateEntry(ctx, h.actor, payroll.CreateEntryRequest{
		EmployeeID:         empOmar,
		PayPeriodID:        periodID,
		OvertimeHours:      dec("4"),
		HolidayHours:       dec("8"),
		HourlyRate:         decPtr("15"),
		OvertimeMultiplier: decPtr("2"),
		Bonuses:            dec("40"),
		DeductionAmount:    decPtr("12.5"),
	})
	require.NoError(t, err)

	assertDecimal(t, "120", entry.OvertimePay)
	assertDecimal(t, "180", entry.HolidayPay)
	assertDecimal(t, "340", entry.GrossPay)
	assertDecimal(t, "12.5", entry.TotalDeductions)
	assertDecimal(t, "327.5", entry.NetPay)
	require.NotNil(t, entry.DeductionOverride)
	assertDecimal(t, "12.5", *entry.DeductionOverride)
}

func TestCreateEntry_Salaried(t *testing.T) {
	h := newHarness(t)
	h.store.addSalariedEmployee(empOmar, "Omar Said", "4000")
	periodID := h.weeklyPeriod(t)

	entry, err := h.svc.CreateEntry(context.Background(), h.actor, payroll.CreateEntryRequest{
		EmployeeID:  empOmar,
		PayPeriodID: periodID,
	})
	require.NoError(t, err)
	assertDecimal(t, "4000", entry.SalaryAmount)
	assertDecimal(t, "4000", entry.GrossPay)
	assert.True(t, entry.HourlyRate.IsZero())
}

func TestCreateEntry_Errors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.store.addHourlyEmployee(empJane, "Jane Doe", "25")
	h.store.addHourlyEmployee(empOmar, "Omar Said", "")
	periodID := h.weeklyPeriod(t)

	req := payroll.CreateEntryRequest{EmployeeID: empJane, PayPeriodID: periodID, RegularHours: dec("8")}
	_, err := h.svc.CreateEntry(ctx, h.actor, req)
	require.NoError(t, err)

	_, err = h.svc.CreateEntry(ctx, h.actor, req)
	assert.ErrorIs(t, err, payroll.ErrDuplicateEntry)
	assert.Equal(t, payroll.CodeDuplicateEntry, payroll.ErrorCode(err))

	_, err = h.svc.CreateEntry(ctx, h.actor, payroll.CreateEntryRequest{EmployeeID: empOmar, PayPeriodID: periodID, RegularHours: dec("8")})
	assert.ErrorIs(t, err, payroll.ErrNoHourlyRate)

	withRate, err := h.svc.CreateEntry(ctx, h.actor, payroll.CreateEntryRequest{
		EmployeeID: empOmar, PayPeriodID: periodID, RegularHours: dec("8"), HourlyRate: decPtr("18"),
	})
	require.NoError(t, err)
	assertDecimal(t, "144", withRate.GrossPay)

	_, err = h.svc.CreateEntry(ctx, h.actor, payroll.CreateEntryRequest{EmployeeID: empJane, PayPeriodID: periodID, RegularHours: dec("-1")})
	assert.Error(t, err)

	missing, err := h.svc.CreateEntry(ctx, h.actor, payroll.CreateEntryRequest{EmployeeID: empJane, PayPeriodID: "missing"})
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateEntry_ProcessedRun(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res := h.syncJane(t)
	_, err := h.svc.ProcessRun(ctx, h.actor, *res.PayrollRun)
	require.NoError(t, err)

	h.store.addHourlyEmployee(empOmar, "Omar Said", "20")
	_, err = h.svc.CreateEntry(ctx, h.actor, payroll.CreateEntryRequest{
		EmployeeID: empOmar, PayPeriodID: *res.PayPeriodID, RegularHours: dec("8"),
	})
	assert.ErrorIs(t, err, payroll.ErrAlreadyProcessed)
}

func TestEntryApprovalFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res := h.syncJane(t)
	id := *res.EntryID

	_, err := h.svc.ApproveEntry(ctx, h.actor, id)
	require.NoError(t, err)
	_, err = h.svc.ApproveEntry(ctx, h.actor, id)
	assert.ErrorIs(t, err, payroll.ErrAlreadyApproved)
	_, err = h.svc.SubmitEntry(ctx, h.actor, id)
	assert.ErrorIs(t, err, payroll.ErrInvalidStatusTransition)

	// Editing an approved entry sends it back to draft
	updated, err := h.svc.UpdateEntry(ctx, h.actor, payroll.UpdateEntryRequest{ID: id, Bonuses: decPtr("50")})
	require.NoError(t, err)
	assert.Equal(t, string(payroll.EntryStatusDraft), updated.Status)
	assert.Nil(t, updated.ApprovedAt)
	assertDecimal(t, "1237.5", updated.GrossPay)
	assertDecimal(t, "1237.5", h.store.run(t, updated.PayrollRunID).TotalGross)

	submitted, err := h.svc.SubmitEntry(ctx, h.actor, id)
	require.NoError(t, err)
	assert.Equal(t, string(payroll.EntryStatusPendingApproval), submitted.Status)

	_, err = h.svc.RejectEntry(ctx, h.actor, id, payroll.RejectEntryRequest{})
	assert.Error(t, err)

	rejected, err := h.svc.RejectEntry(ctx, h.actor, id, payroll.RejectEntryRequest{Reason: "missing receipts"})
	require.NoError(t, err)
	assert.Equal(t, string(payroll.EntryStatusDraft), rejected.Status)
	require.NotNil(t, rejected.Notes)
	assert.Equal(t, "missing receipts", *rejected.Notes)
}

func TestUpdateEntry_DeductionOverride(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.DefaultDeductionRate = dec("0.2")
	h := newHarnessWithConfig(t, cfg)
	res := h.syncJane(t)
	id := *res.EntryID

	assertDecimal(t, "237.5", h.store.entry(t, id).TotalDeductions)

	withAmount, err := h.svc.UpdateEntry(ctx, h.actor, payroll.UpdateEntryRequest{ID: id, DeductionAmount: decPtr("100")})
	require.NoError(t, err)
	assertDecimal(t, "100", withAmount.TotalDeductions)
	assertDecimal(t, "1087.5", withAmount.NetPay)

	cleared, err := h.svc.UpdateEntry(ctx, h.actor, payroll.UpdateEntryRequest{ID: id, ClearDeduction: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.DeductionOverride)
	assertDecimal(t, "237.5", cleared.TotalDeductions)

	_, err = h.svc.UpdateEntry(ctx, h.actor, payroll.UpdateEntryRequest{ID: id, ClearDeduction: true, DeductionAmount: decPtr("1")})
	assert.Error(t, err)

	_, err = h.svc.UpdateEntry(ctx, h.actor, payroll.UpdateEntryRequest{ID: id, HourlyRate: decPtr("0")})
	assert.ErrorIs(t, err, payroll.ErrNoHourlyRate)
}

func TestLockAfterProcessing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res := h.syncJane(t)
	id := *res.EntryID

	_, err := h.svc.ProcessRun(ctx, h.actor, *res.PayrollRun)
	require.NoError(t, err)

	_, err = h.svc.UnlockEntry(ctx, h.actor, id)
	assert.ErrorIs(t, err, payroll.ErrEntryLocked)
	assert.Equal(t, payroll.CodeEntryLocked, payroll.ErrorCode(err))

	_, err = h.svc.UpdateEntry(ctx, h.actor, payroll.UpdateEntryRequest{ID: id, Bonuses: decPtr("10")})
	assert.ErrorIs(t, err, payroll.ErrEntryLocked)

	_, err = h.svc.DeleteEntry(ctx, h.actor, id)
	assert.ErrorIs(t, err, payroll.ErrEntryLocked)

	_, err = h.svc.ApproveEntry(ctx, h.actor, id)
	assert.ErrorIs(t, err, payroll.ErrAlreadyApproved)

	_, err = h.svc.MarkRunPaid(ctx, h.actor, *res.PayrollRun)
	require.NoError(t, err)

	_, err = h.svc.RejectEntry(ctx, h.actor, id, payroll.RejectEntryRequest{Reason: "late"})
	assert.ErrorIs(t, err, payroll.ErrAlreadyProcessed)

	assertDecimal(t, "1187.5", h.store.entry(t, id).GrossPay)
}

func TestLockAndUnlockEntry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res := h.syncJane(t)
	id := *res.EntryID

	_, err := h.svc.LockEntry(ctx, h.actor, id, payroll.LockEntryRequest{})
	assert.Error(t, err)

	locked, err := h.svc.LockEntry(ctx, h.actor, id, payroll.LockEntryRequest{Reason: "dispute"})
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)

	_, err = h.svc.LockEntry(ctx, h.actor, id, payroll.LockEntryRequest{Reason: "again"})
	assert.ErrorIs(t, err, payroll.ErrEntryLocked)

	_, err = h.svc.UpdateEntry(ctx, h.actor, payroll.UpdateEntryRequest{ID: id, Bonuses: decPtr("10")})
	require.ErrorIs(t, err, payroll.ErrEntryLocked)
	assert.Contains(t, err.Error(), "dispute")

	unlocked, err := h.svc.UnlockEntry(ctx, h.actor, id)
	require.NoError(t, err)
	assert.False(t, unlocked.IsLocked)
	assert.Nil(t, unlocked.LockReason)

	_, err = h.svc.UnlockEntry(ctx, h.actor, id)
	assert.ErrorIs(t, err, payroll.ErrInvalidStatusTransition)
}

func TestDeleteEntry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res := h.syncJane(t)
	id := *res.EntryID

	deleted, err := h.svc.DeleteEntry(ctx, h.actor, id)
	require.NoError(t, err)
	require.NotNil(t, deleted)

	got, err := h.svc.GetEntry(ctx, h.actor, id)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, h.store.linksFor(id))

	run := h.store.run(t, *res.PayrollRun)
	assert.Equal(t, 0, run.TotalEmployees)
	assert.True(t, run.TotalGross.IsZero())

	assert.Equal(t, payroll.ActionDelete, h.store.lastAudit().Action)

	again, err := h.svc.DeleteEntry(ctx, h.actor, id)
	assert.NoError(t, err)
	assert.Nil(t, again)
}

func TestGetEntryTimesheets(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res := h.syncJane(t)

	links, err := h.svc.GetEntryTimesheets(ctx, h.actor, *res.EntryID)
	require.NoError(t, err)
	require.Len(t, links, 5)
	assert.Equal(t, "2024-03-04", links[0].WorkDate)
	assert.Equal(t, "2024-03-08", links[4].WorkDate)

	_, err = h.svc.GetEntryTimesheets(ctx, h.actor, "missing")
	assert.ErrorIs(t, err, payroll.ErrPayrollEntryNotFound)
}

func TestListEntries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res := h.syncJane(t)
	h.store.addHourlyEmployee(empOmar, "Omar Said", "20")
	_, err := h.svc.CreateEntry(ctx, h.actor, payroll.CreateEntryRequest{
		EmployeeID: empOmar, PayPeriodID: *res.PayPeriodID, RegularHours: dec("8"),
	})
	require.NoError(t, err)

	all, err := h.svc.ListEntries(ctx, h.actor, payroll.EntryFilter{PayrollRunID: res.PayrollRun})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.TotalCount)

	source := string(payroll.SourceTypeManual)
	manual, err := h.svc.ListEntries(ctx, h.actor, payroll.EntryFilter{SourceType: &source})
	require.NoError(t, err)
	require.Len(t, manual.Data, 1)
	assert.Equal(t, empOmar, manual.Data[0].EmployeeID)
}
