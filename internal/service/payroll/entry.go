package payroll

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// ========== ENTRIES ==========

// calculationInput rebuilds the calculator input from an entry's stored inputs.
func (s *PayrollServiceImpl) calculationInput(e payroll.PayrollEntry) payroll.CalculationInput {
	in := payroll.CalculationInput{
		Hours: payroll.HourBuckets{
			Regular:        e.RegularHours,
			Overtime:       e.OvertimeHours,
			DoubleOvertime: e.DoubleOvertimeHours,
			PTO:            e.PTOHours,
			Sick:           e.SickHours,
			Holiday:        e.HolidayHours,
		},
		HourlyRate:               e.HourlyRate,
		OvertimeMultiplier:       s.multiplierOr(nonZero(e.OvertimeMultiplier), s.cfg.OvertimeMultiplier),
		DoubleOvertimeMultiplier: s.multiplierOr(nonZero(e.DoubleOvertimeMultiplier), s.cfg.DoubleOvertimeMultiplier),
		HolidayMultiplier:        s.multiplierOr(nonZero(e.HolidayMultiplier), s.cfg.HolidayMultiplier),
		FixedPay:                 e.SalaryAmount,
		Bonuses:                  e.Bonuses,
	}
	if e.DeductionOverride != nil {
		in.DeductionAmount = e.DeductionOverride
	} else {
		in.DeductionRate = s.deductionRate()
	}
	return in
}

func nonZero(d decimal.Decimal) *decimal.Decimal {
	if d.IsZero() {
		return nil
	}
	return &d
}

func (s *PayrollServiceImpl) CreateEntry(ctx context.Context, actor payroll.Actor, req payroll.CreateEntryRequest) (*payroll.PayrollEntryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var created payroll.PayrollEntry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		period, err := s.periods.GetByID(ctx, req.PayPeriodID, actor.CompanyID)
		if err != nil {
			return err
		}

		exists, err := s.entries.ExistsForEmployeePeriod(ctx, actor.CompanyID, req.EmployeeID, period.ID)
		if err != nil {
			return err
		}
		if exists {
			return payroll.DuplicateEntry(req.EmployeeID, period.ID)
		}

		profile, err := s.employees.GetPayProfile(ctx, actor.CompanyID, req.EmployeeID)
		if err != nil {
			return err
		}
		payType, _ := profile.EffectivePayType()
		profileRate, hasRate := profile.EffectiveRate()

		hourlyRate := decimal.Zero
		switch {
		case req.HourlyRate != nil:
			hourlyRate = *req.HourlyRate
		case payType == payroll.PayTypeHourly && hasRate:
			hourlyRate = profileRate
		}
		salary := req.SalaryAmount
		if salary.IsZero() && payType == payroll.PayTypeSalaried && hasRate {
			salary = profileRate
		}
		hours := req.Hours()
		if hourlyRate.IsZero() && hours.Total().IsPositive() {
			return payroll.NoHourlyRate(req.EmployeeID)
		}

		run, err := s.GetOrCreateRun(ctx, actor, period)
		if err != nil {
			return err
		}
		if run.Status == payroll.RunStatusProcessed || run.Status == payroll.RunStatusPaid {
			return payroll.AlreadyProcessed(string(run.Status))
		}

		number, err := s.nextEntryNumber(ctx, period)
		if err != nil {
			return err
		}

		entry := payroll.PayrollEntry{
			CompanyID:         actor.CompanyID,
			PayrollRunID:      run.ID,
			PayPeriodID:       period.ID,
			EmployeeID:        req.EmployeeID,
			EntryNumber:       number,
			DeductionOverride: req.DeductionAmount,
			Status:            payroll.EntryStatusDraft,
			SourceType:        payroll.SourceTypeManual,
			Notes:             req.Notes,
			CreatedBy:         actor.UserID,
		}
		in := s.calculationInput(entry)
		in.Hours = hours
		in.HourlyRate = hourlyRate
		in.FixedPay = salary
		in.Bonuses = req.Bonuses
		in.OvertimeMultiplier = s.multiplierOr(req.OvertimeMultiplier, s.cfg.OvertimeMultiplier)
		in.DoubleOvertimeMultiplier = s.multiplierOr(req.DoubleOvertimeMultiplier, s.cfg.DoubleOvertimeMultiplier)
		in.HolidayMultiplier = s.multiplierOr(req.HolidayMultiplier, s.cfg.HolidayMultiplier)
		entry.ApplyBreakdown(payroll.Calculate(in))

		created, err = s.entries.Create(ctx, entry)
		if err != nil {
			if errors.Is(err, payroll.ErrDuplicateEntry) {
				return payroll.DuplicateEntry(req.EmployeeID, period.ID)
			}
			return err
		}

		if err := s.record(ctx, actor, auditRecord{
			refType:     payroll.ReferencePayrollEntry,
			refID:       created.ID,
			action:      payroll.ActionCreate,
			description: fmt.Sprintf("Payroll entry %s created", created.EntryNumber),
			after:       mapToEntryResponse(created),
		}); err != nil {
			return err
		}
		return s.refreshRun(ctx, actor.CompanyID, run.ID)
	})
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}

	resp := mapToEntryResponse(created)
	return &resp, nil
}

func (s *PayrollServiceImpl) GetEntry(ctx context.Context, actor payroll.Actor, id string) (*payroll.PayrollEntryResponse, error) {
	entry, err := s.entries.GetByID(ctx, id, actor.CompanyID)
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}

	resp := mapToEntryResponse(entry)
	return &resp, nil
}

func (s *PayrollServiceImpl) ListEntries(ctx context.Context, actor payroll.Actor, filter payroll.EntryFilter) (payroll.ListPayrollEntryResponse, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	entries, total, err := s.entries.List(ctx, actor.CompanyID, filter)
	if err != nil {
		return payroll.ListPayrollEntryResponse{}, err
	}

	return payroll.ListPayrollEntryResponse{
		Data:       mapToEntryResponses(entries),
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// entryMutation loads an entry, applies change and persists it with one audit row.
// When recalc is set the owning run's totals are refreshed afterwards.
func (s *PayrollServiceImpl) entryMutation(
	ctx context.Context,
	actor payroll.Actor,
	id string,
	action string,
	recalc bool,
	change func(ctx context.Context, e *payroll.PayrollEntry) error,
) (*payroll.PayrollEntryResponse, error) {
	var updated payroll.PayrollEntry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.entries.GetByID(ctx, id, actor.CompanyID)
		if err != nil {
			return err
		}
		before := mapToEntryResponse(entry)

		if err := change(ctx, &entry); err != nil {
			return err
		}
		entry.UpdatedBy = strPtr(actor.UserID)
		entry.UpdatedAt = s.now()
		if err := s.entries.Update(ctx, entry); err != nil {
			return err
		}
		updated = entry

		if err := s.record(ctx, actor, auditRecord{
			refType:     payroll.ReferencePayrollEntry,
			refID:       entry.ID,
			action:      action,
			description: fmt.Sprintf("Payroll entry %s %s", entry.EntryNumber, action),
			before:      before,
			after:       mapToEntryResponse(entry),
		}); err != nil {
			return err
		}
		if recalc {
			return s.refreshRun(ctx, actor.CompanyID, entry.PayrollRunID)
		}
		return nil
	})
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}

	resp := mapToEntryResponse(updated)
	return &resp, nil
}

// checkEditable rejects content changes to locked or finalized entries.
func checkEditable(e payroll.PayrollEntry) error {
	if e.IsLocked {
		return payroll.EntryLocked(e.LockReason)
	}
	switch e.Status {
	case payroll.EntryStatusProcessed, payroll.EntryStatusPaid:
		return payroll.AlreadyProcessed(string(e.Status))
	case payroll.EntryStatusCancelled:
		return payroll.InvalidTransition(string(e.Status), "edit")
	}
	return nil
}

func (s *PayrollServiceImpl) UpdateEntry(ctx context.Context, actor payroll.Actor, req payroll.UpdateEntryRequest) (*payroll.PayrollEntryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.entryMutation(ctx, actor, req.ID, payroll.ActionUpdate, true, func(ctx context.Context, e *payroll.PayrollEntry) error {
		if err := checkEditable(*e); err != nil {
			return err
		}

		setDecimal(&e.RegularHours, req.RegularHours)
		setDecimal(&e.OvertimeHours, req.OvertimeHours)
		setDecimal(&e.DoubleOvertimeHours, req.DoubleOvertimeHours)
		setDecimal(&e.PTOHours, req.PTOHours)
		setDecimal(&e.SickHours, req.SickHours)
		setDecimal(&e.HolidayHours, req.HolidayHours)
		setDecimal(&e.HourlyRate, req.HourlyRate)
		setDecimal(&e.SalaryAmount, req.SalaryAmount)
		setDecimal(&e.OvertimeMultiplier, req.OvertimeMultiplier)
		setDecimal(&e.DoubleOvertimeMultiplier, req.DoubleOvertimeMultiplier)
		setDecimal(&e.HolidayMultiplier, req.HolidayMultiplier)
		setDecimal(&e.Bonuses, req.Bonuses)
		if req.DeductionAmount != nil {
			e.DeductionOverride = req.DeductionAmount
		}
		if req.ClearDeduction {
			e.DeductionOverride = nil
		}
		if req.Notes != nil {
			e.Notes = req.Notes
		}

		in := s.calculationInput(*e)
		if e.HourlyRate.IsZero() && in.Hours.Total().IsPositive() {
			return payroll.NoHourlyRate(e.EmployeeID)
		}
		e.ApplyBreakdown(payroll.Calculate(in))

		// Changed figures need a fresh approval
		if e.Status == payroll.EntryStatusApproved {
			e.Status = payroll.EntryStatusDraft
			e.ApprovedAt = nil
			e.ApprovedBy = nil
		}
		return nil
	})
}

func setDecimal(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}

func (s *PayrollServiceImpl) DeleteEntry(ctx context.Context, actor payroll.Actor, id string) (*payroll.PayrollEntryResponse, error) {
	var deleted payroll.PayrollEntry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.entries.GetByID(ctx, id, actor.CompanyID)
		if err != nil {
			return err
		}
		if err := checkEditable(entry); err != nil {
			return err
		}

		if err := s.entries.SoftDelete(ctx, entry.ID, actor.CompanyID, actor.UserID); err != nil {
			return err
		}
		if err := s.timesheets.DeleteByEntry(ctx, entry.ID); err != nil {
			return err
		}
		deleted = entry
		deleted.IsDeleted = true

		if err := s.record(ctx, actor, auditRecord{
			refType:     payroll.ReferencePayrollEntry,
			refID:       entry.ID,
			action:      payroll.ActionDelete,
			description: fmt.Sprintf("Payroll entry %s deleted", entry.EntryNumber),
			before:      mapToEntryResponse(entry),
		}); err != nil {
			return err
		}
		return s.refreshRun(ctx, actor.CompanyID, entry.PayrollRunID)
	})
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}

	resp := mapToEntryResponse(deleted)
	return &resp, nil
}

func (s *PayrollServiceImpl) SubmitEntry(ctx context.Context, actor payroll.Actor, id string) (*payroll.PayrollEntryResponse, error) {
	return s.entryMutation(ctx, actor, id, payroll.ActionSubmit, false, func(ctx context.Context, e *payroll.PayrollEntry) error {
		if e.Status != payroll.EntryStatusDraft {
			return payroll.InvalidTransition(string(e.Status), string(payroll.EntryStatusPendingApproval))
		}
		e.Status = payroll.EntryStatusPendingApproval
		return nil
	})
}

func (s *PayrollServiceImpl) ApproveEntry(ctx context.Context, actor payroll.Actor, id string) (*payroll.PayrollEntryResponse, error) {
	return s.entryMutation(ctx, actor, id, payroll.ActionApprove, false, func(ctx context.Context, e *payroll.PayrollEntry) error {
		switch e.Status {
		case payroll.EntryStatusApproved, payroll.EntryStatusProcessed, payroll.EntryStatusPaid:
			return payroll.AlreadyApproved(e.Status)
		case payroll.EntryStatusCancelled:
			return payroll.InvalidTransition(string(e.Status), string(payroll.EntryStatusApproved))
		}

		now := s.now()
		e.Status = payroll.EntryStatusApproved
		e.ApprovedAt = &now
		e.ApprovedBy = strPtr(actor.UserID)
		return nil
	})
}

func (s *PayrollServiceImpl) RejectEntry(ctx context.Context, actor payroll.Actor, id string, req payroll.RejectEntryRequest) (*payroll.PayrollEntryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.entryMutation(ctx, actor, id, payroll.ActionReject, false, func(ctx context.Context, e *payroll.PayrollEntry) error {
		switch e.Status {
		case payroll.EntryStatusProcessed, payroll.EntryStatusPaid:
			return payroll.AlreadyProcessed(string(e.Status))
		case payroll.EntryStatusCancelled:
			return payroll.InvalidTransition(string(e.Status), string(payroll.EntryStatusDraft))
		}

		e.Status = payroll.EntryStatusDraft
		e.ApprovedAt = nil
		e.ApprovedBy = nil
		e.Notes = strPtr(req.Reason)
		return nil
	})
}

func (s *PayrollServiceImpl) LockEntry(ctx context.Context, actor payroll.Actor, id string, req payroll.LockEntryRequest) (*payroll.PayrollEntryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.entryMutation(ctx, actor, id, payroll.ActionLock, false, func(ctx context.Context, e *payroll.PayrollEntry) error {
		if e.IsLocked {
			return payroll.EntryLocked(e.LockReason)
		}
		e.IsLocked = true
		e.LockReason = strPtr(req.Reason)
		return nil
	})
}

func (s *PayrollServiceImpl) UnlockEntry(ctx context.Context, actor payroll.Actor, id string) (*payroll.PayrollEntryResponse, error) {
	return s.entryMutation(ctx, actor, id, payroll.ActionUnlock, false, func(ctx context.Context, e *payroll.PayrollEntry) error {
		if !e.IsLocked {
			return payroll.InvalidTransition("unlocked", "unlocked")
		}
		if e.Status == payroll.EntryStatusProcessed || e.Status == payroll.EntryStatusPaid {
			return payroll.EntryLocked(e.LockReason)
		}

		run, err := s.runs.GetByID(ctx, e.PayrollRunID, e.CompanyID)
		if err != nil {
			return err
		}
		if run.Status == payroll.RunStatusProcessed || run.Status == payroll.RunStatusPaid {
			return payroll.EntryLocked(e.LockReason)
		}

		e.IsLocked = false
		e.LockReason = nil
		return nil
	})
}

// GetEntryTimesheets returns ErrPayrollEntryNotFound for an unknown entry, since an
// empty slice is a valid answer for a manual entry.
func (s *PayrollServiceImpl) GetEntryTimesheets(ctx context.Context, actor payroll.Actor, id string) ([]payroll.TimesheetLinkResponse, error) {
	entry, err := s.entries.GetByID(ctx, id, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	links, err := s.timesheets.ListByEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}

	data := make([]payroll.TimesheetLinkResponse, len(links))
	for i, l := range links {
		data[i] = payroll.TimesheetLinkResponse{
			ID:                  l.ID,
			AttendanceID:        l.AttendanceID,
			WorkDate:            formatDate(l.WorkDate),
			Hours:               l.Hours,
			OvertimeHours:       l.OvertimeHours,
			DoubleOvertimeHours: l.DoubleOvertimeHours,
			IsIncluded:          l.IsIncluded,
		}
	}
	return data, nil
}
