package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
)

// ========== PERIODS ==========

// GetOrCreateWeeklyPeriod returns the weekly period containing date, creating it on first use.
func (s *PayrollServiceImpl) GetOrCreateWeeklyPeriod(ctx context.Context, companyID string, date time.Time) (payroll.PayPeriod, error) {
	return s.getOrCreatePeriodTx(ctx, payroll.SystemActor(companyID), payroll.BoundsFor(payroll.FrequencyWeekly, date))
}

// GetOrCreateMonthlyPeriod returns the monthly period containing date, creating it on first use.
func (s *PayrollServiceImpl) GetOrCreateMonthlyPeriod(ctx context.Context, companyID string, date time.Time) (payroll.PayPeriod, error) {
	return s.getOrCreatePeriodTx(ctx, payroll.SystemActor(companyID), payroll.BoundsFor(payroll.FrequencyMonthly, date))
}

func (s *PayrollServiceImpl) getOrCreatePeriodTx(ctx context.Context, actor payroll.Actor, b payroll.PeriodBounds) (payroll.PayPeriod, error) {
	var period payroll.PayPeriod
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		period, err = s.getOrCreatePeriod(ctx, actor, b)
		return err
	})
	return period, err
}

// getOrCreatePeriod records the creation under actor. Must run inside a transaction.
func (s *PayrollServiceImpl) getOrCreatePeriod(ctx context.Context, actor payroll.Actor, b payroll.PeriodBounds) (payroll.PayPeriod, error) {
	companyID := actor.CompanyID
	existing, err := s.periods.GetByBounds(ctx, companyID, b.Frequency, b.Start, b.End)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, payroll.ErrPayPeriodNotFound) {
		return payroll.PayPeriod{}, fmt.Errorf("failed to look up pay period: %w", err)
	}

	created, ok, err := s.periods.CreateIfAbsent(ctx, payroll.PayPeriod{
		CompanyID:        companyID,
		Frequency:        b.Frequency,
		StartDate:        b.Start,
		EndDate:          b.End,
		PayDate:          b.PayDate,
		PeriodNumber:     b.PeriodNumber,
		Year:             b.Year,
		Status:           payroll.PeriodStatusDraft,
		ApprovalWorkflow: payroll.WorkflowAutoGenerate,
	})
	if err != nil {
		return payroll.PayPeriod{}, fmt.Errorf("failed to create pay period: %w", err)
	}
	if !ok {
		// Lost the race to a concurrent creator
		return s.periods.GetByBounds(ctx, companyID, b.Frequency, b.Start, b.End)
	}

	if err := s.record(ctx, actor, auditRecord{
		refType:     payroll.ReferencePayPeriod,
		refID:       created.ID,
		action:      payroll.ActionCreate,
		description: fmt.Sprintf("%s pay period %s to %s created", created.Frequency, formatDate(created.StartDate), formatDate(created.EndDate)),
		after:       mapToPeriodResponse(created),
	}); err != nil {
		return payroll.PayPeriod{}, err
	}
	return created, nil
}

// findPeriod resolves an existing period without creating one.
func (s *PayrollServiceImpl) findPeriod(ctx context.Context, companyID string, frequency payroll.Frequency, date time.Time) (payroll.PayPeriod, error) {
	b := payroll.BoundsFor(frequency, date)
	return s.periods.GetByBounds(ctx, companyID, b.Frequency, b.Start, b.End)
}

func (s *PayrollServiceImpl) ResolvePeriod(ctx context.Context, actor payroll.Actor, req payroll.ResolvePeriodRequest) (payroll.PayPeriodResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayPeriodResponse{}, err
	}
	date, _ := validator.IsValidDate(req.Date)

	period, err := s.getOrCreatePeriodTx(ctx, actor, payroll.BoundsFor(payroll.Frequency(req.Frequency), date))
	if err != nil {
		return payroll.PayPeriodResponse{}, err
	}

	return mapToPeriodResponse(period), nil
}

func (s *PayrollServiceImpl) GetPeriod(ctx context.Context, actor payroll.Actor, id string) (*payroll.PayPeriodResponse, error) {
	period, err := s.periods.GetByID(ctx, id, actor.CompanyID)
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}

	resp := mapToPeriodResponse(period)
	return &resp, nil
}

func (s *PayrollServiceImpl) ListPeriods(ctx context.Context, actor payroll.Actor, filter payroll.PeriodFilter) (payroll.ListPayPeriodResponse, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	periods, total, err := s.periods.List(ctx, actor.CompanyID, filter)
	if err != nil {
		return payroll.ListPayPeriodResponse{}, err
	}

	data := make([]payroll.PayPeriodResponse, len(periods))
	for i, p := range periods {
		data[i] = mapToPeriodResponse(p)
	}

	return payroll.ListPayPeriodResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}
