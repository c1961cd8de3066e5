package payroll

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
)

const (
	counterPayrollRun   = "payroll_run"
	counterPayrollEntry = "payroll_entry"
	lockReasonProcessed = "run processed"
)

// ========== NUMBERING ==========

// nextRunNumber renders PR-<YYYY>W<WW>-<seq> for weekly periods and PR-<YYYY>M<MM>-<seq> for monthly ones.
func (s *PayrollServiceImpl) nextRunNumber(ctx context.Context, period payroll.PayPeriod) (string, error) {
	seq, err := s.counters.Next(ctx, period.CompanyID, counterPayrollRun, period.Year)
	if err != nil {
		return "", fmt.Errorf("failed to allocate run number: %w", err)
	}
	marker := "W"
	if period.Frequency == payroll.FrequencyMonthly {
		marker = "M"
	}
	return fmt.Sprintf("PR-%04d%s%02d-%03d", period.Year, marker, period.PeriodNumber, seq), nil
}

// nextEntryNumber renders PE-<YYYY>-<seq>.
func (s *PayrollServiceImpl) nextEntryNumber(ctx context.Context, period payroll.PayPeriod) (string, error) {
	seq, err := s.counters.Next(ctx, period.CompanyID, counterPayrollEntry, period.Year)
	if err != nil {
		return "", fmt.Errorf("failed to allocate entry number: %w", err)
	}
	return fmt.Sprintf("PE-%04d-%06d", period.Year, seq), nil
}

// ========== RUNS ==========

// GetOrCreateRun returns the active run of the period, creating a draft regular run when none exists.
func (s *PayrollServiceImpl) GetOrCreateRun(ctx context.Context, actor payroll.Actor, period payroll.PayPeriod) (payroll.PayrollRun, error) {
	existing, err := s.runs.GetActiveByPeriod(ctx, actor.CompanyID, period.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, payroll.ErrPayrollRunNotFound) {
		return payroll.PayrollRun{}, fmt.Errorf("failed to look up payroll run: %w", err)
	}

	number, err := s.nextRunNumber(ctx, period)
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	run, ok, err := s.runs.CreateIfAbsent(ctx, payroll.PayrollRun{
		CompanyID:   actor.CompanyID,
		PayPeriodID: period.ID,
		RunNumber:   number,
		RunType:     payroll.RunTypeRegular,
		Status:      payroll.RunStatusDraft,
		CreatedBy:   actor.UserID,
	})
	if err != nil {
		return payroll.PayrollRun{}, fmt.Errorf("failed to create payroll run: %w", err)
	}
	if !ok {
		return s.runs.GetActiveByPeriod(ctx, actor.CompanyID, period.ID)
	}

	if err := s.record(ctx, actor, auditRecord{
		refType:     payroll.ReferencePayrollRun,
		refID:       run.ID,
		action:      payroll.ActionCreate,
		description: fmt.Sprintf("Payroll run %s created", run.RunNumber),
		after:       mapToRunResponse(run),
	}); err != nil {
		return payroll.PayrollRun{}, err
	}
	return run, nil
}

func (s *PayrollServiceImpl) CreateRun(ctx context.Context, actor payroll.Actor, req payroll.CreateRunRequest) (*payroll.PayrollRunResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	runType := payroll.RunType(req.RunType)
	if runType == "" {
		runType = payroll.RunTypeRegular
	}

	var created payroll.PayrollRun
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		period, err := s.periods.GetByID(ctx, req.PayPeriodID, actor.CompanyID)
		if err != nil {
			return err
		}

		_, err = s.runs.GetActiveByPeriod(ctx, actor.CompanyID, period.ID)
		if err == nil {
			return payroll.DuplicateRun(period.ID)
		}
		if !errors.Is(err, payroll.ErrPayrollRunNotFound) {
			return err
		}

		number, err := s.nextRunNumber(ctx, period)
		if err != nil {
			return err
		}

		created, err = s.runs.Create(ctx, payroll.PayrollRun{
			CompanyID:   actor.CompanyID,
			PayPeriodID: period.ID,
			RunNumber:   number,
			RunType:     runType,
			Status:      payroll.RunStatusDraft,
			Notes:       req.Notes,
			CreatedBy:   actor.UserID,
		})
		if err != nil {
			if errors.Is(err, payroll.ErrDuplicateRun) {
				return payroll.DuplicateRun(period.ID)
			}
			return err
		}

		return s.record(ctx, actor, auditRecord{
			refType:     payroll.ReferencePayrollRun,
			refID:       created.ID,
			action:      payroll.ActionCreate,
			description: fmt.Sprintf("Payroll run %s created", created.RunNumber),
			after:       mapToRunResponse(created),
		})
	})
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}

	resp := mapToRunResponse(created)
	return &resp, nil
}

func (s *PayrollServiceImpl) GetRun(ctx context.Context, actor payroll.Actor, id string) (*payroll.PayrollRunResponse, error) {
	run, err := s.runs.GetByID(ctx, id, actor.CompanyID)
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}

	resp := mapToRunResponse(run)
	return &resp, nil
}

func (s *PayrollServiceImpl) ListRuns(ctx context.Context, actor payroll.Actor, filter payroll.RunFilter) (payroll.ListPayrollRunResponse, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	runs, total, err := s.runs.List(ctx, actor.CompanyID, filter)
	if err != nil {
		return payroll.ListPayrollRunResponse{}, err
	}

	data := make([]payroll.PayrollRunResponse, len(runs))
	for i, r := range runs {
		data[i] = mapToRunResponse(r)
	}

	return payroll.ListPayrollRunResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// runTransition loads a run, applies change and persists it with one audit row.
func (s *PayrollServiceImpl) runTransition(
	ctx context.Context,
	actor payroll.Actor,
	id string,
	action string,
	change func(ctx context.Context, run *payroll.PayrollRun) error,
) (*payroll.PayrollRunResponse, error) {
	var updated payroll.PayrollRun
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		run, err := s.runs.GetByID(ctx, id, actor.CompanyID)
		if err != nil {
			return err
		}
		before := mapToRunResponse(run)

		if err := change(ctx, &run); err != nil {
			return err
		}
		run.UpdatedAt = s.now()
		if err := s.runs.Update(ctx, run); err != nil {
			return err
		}
		updated = run

		return s.record(ctx, actor, auditRecord{
			refType:     payroll.ReferencePayrollRun,
			refID:       run.ID,
			action:      action,
			description: fmt.Sprintf("Payroll run %s %s -> %s", run.RunNumber, before.Status, run.Status),
			before:      before,
			after:       mapToRunResponse(run),
		})
	})
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}

	resp := mapToRunResponse(updated)
	return &resp, nil
}

func (s *PayrollServiceImpl) ApproveRun(ctx context.Context, actor payroll.Actor, id string) (*payroll.PayrollRunResponse, error) {
	return s.runTransition(ctx, actor, id, payroll.ActionApprove, func(ctx context.Context, run *payroll.PayrollRun) error {
		switch run.Status {
		case payroll.RunStatusDraft:
		case payroll.RunStatusProcessed, payroll.RunStatusPaid:
			return payroll.AlreadyProcessed(string(run.Status))
		default:
			return payroll.InvalidTransition(string(run.Status), string(payroll.RunStatusApproved))
		}

		now := s.now()
		run.Status = payroll.RunStatusApproved
		run.ApprovedAt = &now
		run.ApprovedBy = strPtr(actor.UserID)
		return nil
	})
}

// ProcessRun finalizes a run: totals are recomputed and every entry is processed and locked.
func (s *PayrollServiceImpl) ProcessRun(ctx context.Context, actor payroll.Actor, id string) (*payroll.PayrollRunResponse, error) {
	return s.runTransition(ctx, actor, id, payroll.ActionProcess, func(ctx context.Context, run *payroll.PayrollRun) error {
		switch run.Status {
		case payroll.RunStatusDraft, payroll.RunStatusApproved:
		case payroll.RunStatusProcessed, payroll.RunStatusPaid:
			return payroll.AlreadyProcessed(string(run.Status))
		default:
			return payroll.InvalidTransition(string(run.Status), string(payroll.RunStatusProcessed))
		}

		now := s.now()
		if _, err := s.entries.CascadeRun(ctx, actor.CompanyID, run.ID, payroll.EntryCascade{
			Status:      payroll.EntryStatusProcessed,
			ProcessedAt: &now,
			Lock:        true,
			LockReason:  strPtr(lockReasonProcessed),
		}); err != nil {
			return fmt.Errorf("failed to cascade run status: %w", err)
		}
		if err := s.recomputeRunTotals(ctx, actor.CompanyID, run); err != nil {
			return err
		}

		run.Status = payroll.RunStatusProcessed
		run.ProcessedAt = &now
		run.ProcessedBy = strPtr(actor.UserID)
		return nil
	})
}

func (s *PayrollServiceImpl) MarkRunPaid(ctx context.Context, actor payroll.Actor, id string) (*payroll.PayrollRunResponse, error) {
	return s.runTransition(ctx, actor, id, payroll.ActionPay, func(ctx context.Context, run *payroll.PayrollRun) error {
		if run.Status != payroll.RunStatusProcessed {
			return payroll.InvalidTransition(string(run.Status), string(payroll.RunStatusPaid))
		}

		now := s.now()
		if _, err := s.entries.CascadeRun(ctx, actor.CompanyID, run.ID, payroll.EntryCascade{
			Status: payroll.EntryStatusPaid,
			PaidAt: &now,
			Lock:   true,
		}); err != nil {
			return fmt.Errorf("failed to cascade run status: %w", err)
		}

		run.Status = payroll.RunStatusPaid
		run.PaidAt = &now
		run.PaidBy = strPtr(actor.UserID)
		return nil
	})
}

func (s *PayrollServiceImpl) CancelRun(ctx context.Context, actor payroll.Actor, id string, req payroll.CancelRunRequest) (*payroll.PayrollRunResponse, error) {
	return s.runTransition(ctx, actor, id, payroll.ActionCancel, func(ctx context.Context, run *payroll.PayrollRun) error {
		switch run.Status {
		case payroll.RunStatusDraft, payroll.RunStatusApproved:
		case payroll.RunStatusProcessed, payroll.RunStatusPaid:
			return payroll.AlreadyProcessed(string(run.Status))
		default:
			return payroll.InvalidTransition(string(run.Status), string(payroll.RunStatusCancelled))
		}

		if _, err := s.entries.CascadeRun(ctx, actor.CompanyID, run.ID, payroll.EntryCascade{
			Status: payroll.EntryStatusCancelled,
		}); err != nil {
			return fmt.Errorf("failed to cascade run status: %w", err)
		}

		run.Status = payroll.RunStatusCancelled
		if req.Reason != nil {
			run.Notes = req.Reason
		}
		return nil
	})
}
