package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// ========== TIMESHEET SYNC ==========

const (
	reasonAttendanceNotFound = "attendance not found"
	reasonNotApproved        = "attendance is not approved"
	reasonEmployeeNotFound   = "employee not found"
	reasonNoPayType          = "employee has no pay type configured"
	reasonNoHourlyRate       = "employee has no positive hourly rate"
	reasonNoSalary           = "employee has no positive salary amount"
	reasonSalaried           = "salaried pay does not depend on attendance hours"
	reasonNoPeriod           = "no pay period covers the date"
	reasonNoRun              = "no payroll run for the pay period"
	reasonNoEntry            = "no payroll entry to recalculate"
	reasonNoAttendance       = "no approved attendance in the pay period"
	reasonLocked             = "entry is locked"
	reasonRunProcessed       = "payroll run already processed"
)

var minutesPerHour = decimal.NewFromInt(60)

type syncMode int

const (
	// syncCreate may create the period, run and entry.
	syncCreate syncMode = iota
	// syncCorrect only rewrites an entry that already exists.
	syncCorrect
)

func (s *PayrollServiceImpl) SyncFromApproval(ctx context.Context, companyID string, attendanceID string) (payroll.SyncResult, error) {
	var result payroll.SyncResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		att, err := s.attendance.GetAttendance(ctx, companyID, attendanceID)
		if err != nil {
			if errors.Is(err, payroll.ErrAttendanceNotFound) {
				result = payroll.Skipped(reasonAttendanceNotFound)
				return nil
			}
			return err
		}
		if !att.IsApproved() {
			result = payroll.Skipped(reasonNotApproved)
			return nil
		}

		result, err = s.syncEmployee(ctx, companyID, att.EmployeeID, att.Date, syncCreate)
		return err
	})
	if err != nil {
		return payroll.SyncResult{}, fmt.Errorf("failed to sync attendance %s: %w", attendanceID, err)
	}

	logSyncResult("attendance approval", companyID, attendanceID, result)
	return result, nil
}

func (s *PayrollServiceImpl) RecalcForRejection(ctx context.Context, companyID string, employeeID string, periodDate time.Time) (payroll.SyncResult, error) {
	var result payroll.SyncResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.syncEmployee(ctx, companyID, employeeID, periodDate, syncCorrect)
		return err
	})
	if err != nil {
		return payroll.SyncResult{}, fmt.Errorf("failed to recalculate employee %s: %w", employeeID, err)
	}

	logSyncResult("attendance rejection", companyID, employeeID, result)
	return result, nil
}

func (s *PayrollServiceImpl) SyncEmployeePeriod(ctx context.Context, companyID string, employeeID string, date time.Time) (payroll.SyncResult, error) {
	var result payroll.SyncResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.syncEmployee(ctx, companyID, employeeID, date, syncCreate)
		return err
	})
	if err != nil {
		return payroll.SyncResult{}, fmt.Errorf("failed to sync employee %s: %w", employeeID, err)
	}

	logSyncResult("employee period", companyID, employeeID, result)
	return result, nil
}

func logSyncResult(trigger, companyID, ref string, result payroll.SyncResult) {
	if result.Synced {
		var entryID string
		if result.EntryID != nil {
			entryID = *result.EntryID
		}
		slog.Info("Payroll entry synced from timesheet", "trigger", trigger, "company_id", companyID, "ref", ref, "entry_id", entryID, "created", result.Created)
		return
	}
	slog.Warn("Payroll sync skipped", "trigger", trigger, "company_id", companyID, "ref", ref, "reason", result.Reason)
}

// syncEmployee recomputes an employee's entry from every approved attendance record
// in the period containing date. Must run inside a transaction.
func (s *PayrollServiceImpl) syncEmployee(ctx context.Context, companyID, employeeID string, date time.Time, mode syncMode) (payroll.SyncResult, error) {
	actor := payroll.SystemActor(companyID)

	profile, err := s.employees.GetPayProfile(ctx, companyID, employeeID)
	if err != nil {
		if errors.Is(err, payroll.ErrEmployeeNotFound) {
			return payroll.Skipped(reasonEmployeeNotFound), nil
		}
		return payroll.SyncResult{}, err
	}

	payType, ok := profile.EffectivePayType()
	if !ok {
		return payroll.Skipped(reasonNoPayType), nil
	}
	amount, hasRate := profile.EffectiveRate()
	switch {
	case payType == payroll.PayTypeSalaried && mode == syncCorrect:
		return payroll.Skipped(reasonSalaried), nil
	case payType == payroll.PayTypeSalaried && (!hasRate || !amount.IsPositive()):
		return payroll.Skipped(reasonNoSalary), nil
	case payType != payroll.PayTypeSalaried && (!hasRate || !amount.IsPositive()):
		return payroll.Skipped(reasonNoHourlyRate), nil
	}

	frequency := payroll.FrequencyFor(payType)

	var period payroll.PayPeriod
	var run payroll.PayrollRun
	if mode == syncCreate {
		period, err = s.getOrCreatePeriod(ctx, actor, payroll.BoundsFor(frequency, date))
		if err != nil {
			return payroll.SyncResult{}, err
		}
		run, err = s.GetOrCreateRun(ctx, actor, period)
		if err != nil {
			return payroll.SyncResult{}, err
		}
	} else {
		period, err = s.findPeriod(ctx, companyID, frequency, date)
		if errors.Is(err, payroll.ErrPayPeriodNotFound) {
			return payroll.Skipped(reasonNoPeriod), nil
		}
		if err != nil {
			return payroll.SyncResult{}, err
		}
		run, err = s.runs.GetActiveByPeriod(ctx, companyID, period.ID)
		if errors.Is(err, payroll.ErrPayrollRunNotFound) {
			return payroll.Skipped(reasonNoRun), nil
		}
		if err != nil {
			return payroll.SyncResult{}, err
		}
	}

	existing, err := s.entries.GetByRunAndEmployee(ctx, companyID, run.ID, employeeID)
	found := err == nil
	if err != nil && !errors.Is(err, payroll.ErrPayrollEntryNotFound) {
		return payroll.SyncResult{}, err
	}
	if !found && mode == syncCorrect {
		return payroll.Skipped(reasonNoEntry), nil
	}
	if found && existing.IsLocked {
		return payroll.Skipped(reasonLocked), nil
	}
	if run.Status == payroll.RunStatusProcessed || run.Status == payroll.RunStatusPaid {
		return payroll.Skipped(reasonRunProcessed), nil
	}

	records, err := s.attendance.ListApprovedInRange(ctx, companyID, employeeID, period.StartDate, period.EndDate)
	if err != nil {
		return payroll.SyncResult{}, fmt.Errorf("failed to load approved attendance: %w", err)
	}
	if !found && len(records) == 0 {
		return payroll.Skipped(reasonNoAttendance), nil
	}

	hours, links := aggregateAttendance(records)

	in := payroll.CalculationInput{
		OvertimeMultiplier:       s.multiplierOr(nil, s.cfg.OvertimeMultiplier),
		DoubleOvertimeMultiplier: s.multiplierOr(nil, s.cfg.DoubleOvertimeMultiplier),
		HolidayMultiplier:        s.multiplierOr(nil, s.cfg.HolidayMultiplier),
		DeductionRate:            s.deductionRate(),
	}
	if payType == payroll.PayTypeSalaried {
		in.FixedPay = amount
	} else {
		in.Hours = hours
		in.HourlyRate = amount
	}

	if found {
		// Externally supplied inputs survive a recompute
		carried := s.calculationInput(existing)
		in.Hours.DoubleOvertime = carried.Hours.DoubleOvertime
		in.Hours.PTO = carried.Hours.PTO
		in.Hours.Sick = carried.Hours.Sick
		in.Hours.Holiday = carried.Hours.Holiday
		in.Bonuses = carried.Bonuses
		in.OvertimeMultiplier = carried.OvertimeMultiplier
		in.DoubleOvertimeMultiplier = carried.DoubleOvertimeMultiplier
		in.HolidayMultiplier = carried.HolidayMultiplier
		in.DeductionAmount = carried.DeductionAmount
		in.DeductionRate = carried.DeductionRate
	}
	breakdown := payroll.Calculate(in)

	var entry payroll.PayrollEntry
	created := false
	if !found {
		entry, created, err = s.createSyncedEntry(ctx, actor, period, run, employeeID, breakdown, len(records))
		if err != nil {
			return payroll.SyncResult{}, err
		}
		if !created {
			// A concurrent sync inserted the entry first
			existing, err = s.entries.GetByRunAndEmployee(ctx, companyID, run.ID, employeeID)
			if err != nil {
				return payroll.SyncResult{}, fmt.Errorf("failed to reload synced entry: %w", err)
			}
			if existing.IsLocked {
				return payroll.Skipped(reasonLocked), nil
			}
			found = true
		}
	}
	if found {
		entry, err = s.updateSyncedEntry(ctx, actor, existing, breakdown, len(records))
		if err != nil {
			return payroll.SyncResult{}, err
		}
	}

	for i := range links {
		links[i].PayrollEntryID = entry.ID
	}
	if err := s.timesheets.Replace(ctx, entry.ID, links); err != nil {
		return payroll.SyncResult{}, fmt.Errorf("failed to replace timesheet links: %w", err)
	}

	return payroll.SyncResult{
		Synced:      true,
		EntryID:     strPtr(entry.ID),
		PayrollRun:  strPtr(run.ID),
		PayPeriodID: strPtr(period.ID),
		Created:     created,
	}, nil
}

// createSyncedEntry reports false without writing anything when the run already
// holds a live entry for the employee.
func (s *PayrollServiceImpl) createSyncedEntry(
	ctx context.Context,
	actor payroll.Actor,
	period payroll.PayPeriod,
	run payroll.PayrollRun,
	employeeID string,
	b payroll.Breakdown,
	recordCount int,
) (payroll.PayrollEntry, bool, error) {
	number, err := s.nextEntryNumber(ctx, period)
	if err != nil {
		return payroll.PayrollEntry{}, false, err
	}

	entry := payroll.PayrollEntry{
		CompanyID:       actor.CompanyID,
		PayrollRunID:    run.ID,
		PayPeriodID:     period.ID,
		EmployeeID:      employeeID,
		EntryNumber:     number,
		Status:          payroll.EntryStatusDraft,
		SourceType:      payroll.SourceTypeTimesheetAuto,
		IsAutoGenerated: true,
		CreatedBy:       actor.UserID,
	}
	entry.ApplyBreakdown(b)

	inserted, ok, err := s.entries.CreateIfAbsent(ctx, entry)
	if err != nil {
		return payroll.PayrollEntry{}, false, fmt.Errorf("failed to create synced entry: %w", err)
	}
	if !ok {
		return payroll.PayrollEntry{}, false, nil
	}

	if err := s.record(ctx, actor, auditRecord{
		refType:     payroll.ReferencePayrollEntry,
		refID:       inserted.ID,
		action:      payroll.ActionSync,
		description: fmt.Sprintf("Payroll entry %s created from %d approved attendance records", inserted.EntryNumber, recordCount),
		after:       mapToEntryResponse(inserted),
	}); err != nil {
		return payroll.PayrollEntry{}, false, err
	}
	if err := s.refreshRun(ctx, actor.CompanyID, run.ID); err != nil {
		return payroll.PayrollEntry{}, false, err
	}
	return inserted, true, nil
}

// updateSyncedEntry rewrites the figures of an entry in place. Nothing is written
// when the recompute produced the same figures. Changed figures send an approved
// or pending entry back to draft.
func (s *PayrollServiceImpl) updateSyncedEntry(
	ctx context.Context,
	actor payroll.Actor,
	existing payroll.PayrollEntry,
	b payroll.Breakdown,
	recordCount int,
) (payroll.PayrollEntry, error) {
	updated := existing
	updated.ApplyBreakdown(b)
	updated.IsAutoGenerated = true

	if sameFigures(existing, updated) {
		return existing, nil
	}

	description := fmt.Sprintf("Payroll entry %s recalculated from %d approved attendance records", updated.EntryNumber, recordCount)
	if existing.Status == payroll.EntryStatusApproved || existing.Status == payroll.EntryStatusPendingApproval {
		updated.Status = payroll.EntryStatusDraft
		updated.ApprovedAt = nil
		updated.ApprovedBy = nil
		description += fmt.Sprintf(", status reset from %s to %s", existing.Status, payroll.EntryStatusDraft)
	}

	updated.UpdatedBy = strPtr(actor.UserID)
	updated.UpdatedAt = s.now()
	if err := s.entries.Update(ctx, updated); err != nil {
		return payroll.PayrollEntry{}, fmt.Errorf("failed to update synced entry: %w", err)
	}

	if err := s.record(ctx, actor, auditRecord{
		refType:     payroll.ReferencePayrollEntry,
		refID:       updated.ID,
		action:      payroll.ActionSync,
		description: description,
		before:      mapToEntryResponse(existing),
		after:       mapToEntryResponse(updated),
	}); err != nil {
		return payroll.PayrollEntry{}, err
	}
	if err := s.refreshRun(ctx, actor.CompanyID, updated.PayrollRunID); err != nil {
		return payroll.PayrollEntry{}, err
	}
	return updated, nil
}

// aggregateAttendance sums bucket hours over records and builds one link per record.
// Minutes are summed before converting so repeated fractions do not accumulate.
func aggregateAttendance(records []payroll.AttendanceRecord) (payroll.HourBuckets, []payroll.PayrollTimesheetEntry) {
	var regularMinutes, overtimeMinutes int64
	links := make([]payroll.PayrollTimesheetEntry, 0, len(records))

	for _, r := range records {
		total := int64(r.WorkMinutes)
		overtime := int64(r.OvertimeMinutes)
		regular := max(total-overtime, 0)

		regularMinutes += regular
		overtimeMinutes += overtime

		links = append(links, payroll.PayrollTimesheetEntry{
			AttendanceID:        r.ID,
			WorkDate:            payroll.DateOf(r.Date),
			Hours:               minutesToHours(total),
			OvertimeHours:       minutesToHours(overtime),
			DoubleOvertimeHours: decimal.Zero,
			IsIncluded:          true,
		})
	}

	return payroll.HourBuckets{
		Regular:  minutesToHours(regularMinutes),
		Overtime: minutesToHours(overtimeMinutes),
	}, links
}

func minutesToHours(minutes int64) decimal.Decimal {
	return decimal.NewFromInt(minutes).Div(minutesPerHour)
}

func sameFigures(a, b payroll.PayrollEntry) bool {
	pairs := [][2]decimal.Decimal{
		{a.RegularHours, b.RegularHours},
		{a.OvertimeHours, b.OvertimeHours},
		{a.DoubleOvertimeHours, b.DoubleOvertimeHours},
		{a.PTOHours, b.PTOHours},
		{a.SickHours, b.SickHours},
		{a.HolidayHours, b.HolidayHours},
		{a.TotalHours, b.TotalHours},
		{a.HourlyRate, b.HourlyRate},
		{a.SalaryAmount, b.SalaryAmount},
		{a.OvertimeMultiplier, b.OvertimeMultiplier},
		{a.DoubleOvertimeMultiplier, b.DoubleOvertimeMultiplier},
		{a.HolidayMultiplier, b.HolidayMultiplier},
		{a.GrossPay, b.GrossPay},
		{a.TotalDeductions, b.TotalDeductions},
		{a.NetPay, b.NetPay},
		{a.Bonuses, b.Bonuses},
	}
	for _, p := range pairs {
		if !p[0].Equal(p[1]) {
			return false
		}
	}
	return a.IsAutoGenerated == b.IsAutoGenerated
}
