package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// Config carries the payroll knobs read from the environment.
type Config struct {
	DefaultDeductionRate     decimal.Decimal
	OvertimeMultiplier       decimal.Decimal
	DoubleOvertimeMultiplier decimal.Decimal
	HolidayMultiplier        decimal.Decimal
}

// DefaultConfig uses the standard multipliers and no deduction.
func DefaultConfig() Config {
	return Config{
		DefaultDeductionRate:     decimal.Zero,
		OvertimeMultiplier:       payroll.DefaultOvertimeMultiplier,
		DoubleOvertimeMultiplier: payroll.DefaultDoubleOvertimeMultiplier,
		HolidayMultiplier:        payroll.DefaultHolidayMultiplier,
	}
}

// Repositories groups the payroll tables.
type Repositories struct {
	Periods    payroll.PayPeriodRepository
	Runs       payroll.PayrollRunRepository
	Entries    payroll.PayrollEntryRepository
	Timesheets payroll.TimesheetLinkRepository
	AuditLogs  payroll.AuditLogRepository
	Counters   payroll.CounterRepository
}

type PayrollServiceImpl struct {
	tx         payroll.TxManager
	periods    payroll.PayPeriodRepository
	runs       payroll.PayrollRunRepository
	entries    payroll.PayrollEntryRepository
	timesheets payroll.TimesheetLinkRepository
	auditLogs  payroll.AuditLogRepository
	counters   payroll.CounterRepository
	attendance payroll.AttendanceSource
	employees  payroll.EmployeeDirectory
	cfg        Config
	now        func() time.Time
}

func NewPayrollService(
	tx payroll.TxManager,
	repos Repositories,
	attendance payroll.AttendanceSource,
	employees payroll.EmployeeDirectory,
	cfg Config,
) *PayrollServiceImpl {
	return &PayrollServiceImpl{
		tx:         tx,
		periods:    repos.Periods,
		runs:       repos.Runs,
		entries:    repos.Entries,
		timesheets: repos.Timesheets,
		auditLogs:  repos.AuditLogs,
		counters:   repos.Counters,
		attendance: attendance,
		employees:  employees,
		cfg:        cfg,
		now:        time.Now,
	}
}

var _ payroll.PayrollService = (*PayrollServiceImpl)(nil)

// ========== HELPERS ==========

// notFound reports whether err is one of the payroll not-found sentinels.
func notFound(err error) bool {
	return errors.Is(err, payroll.ErrPayPeriodNotFound) ||
		errors.Is(err, payroll.ErrPayrollRunNotFound) ||
		errors.Is(err, payroll.ErrPayrollEntryNotFound)
}

func (s *PayrollServiceImpl) deductionRate() *decimal.Decimal {
	rate := s.cfg.DefaultDeductionRate
	if rate.IsZero() {
		return nil
	}
	return &rate
}

func (s *PayrollServiceImpl) multiplierOr(v *decimal.Decimal, fallback decimal.Decimal) *decimal.Decimal {
	if v != nil {
		return v
	}
	if fallback.IsZero() {
		return nil
	}
	return &fallback
}

// recomputeRunTotals refreshes the aggregate columns of a run from its live entries.
func (s *PayrollServiceImpl) recomputeRunTotals(ctx context.Context, companyID string, run *payroll.PayrollRun) error {
	entries, err := s.entries.ListByRun(ctx, companyID, run.ID)
	if err != nil {
		return err
	}

	run.TotalEmployees = 0
	run.TotalGross = decimal.Zero
	run.TotalDeductions = decimal.Zero
	run.TotalNet = decimal.Zero
	run.TotalHours = decimal.Zero
	run.TotalBonuses = decimal.Zero

	for _, e := range entries {
		if e.Status == payroll.EntryStatusCancelled {
			continue
		}
		run.TotalEmployees++
		run.TotalGross = run.TotalGross.Add(e.GrossPay)
		run.TotalDeductions = run.TotalDeductions.Add(e.TotalDeductions)
		run.TotalNet = run.TotalNet.Add(e.NetPay)
		run.TotalHours = run.TotalHours.Add(e.TotalHours)
		run.TotalBonuses = run.TotalBonuses.Add(e.Bonuses)
	}
	return nil
}

func (s *PayrollServiceImpl) refreshRun(ctx context.Context, companyID string, runID string) error {
	run, err := s.runs.GetByID(ctx, runID, companyID)
	if err != nil {
		return err
	}
	if err := s.recomputeRunTotals(ctx, companyID, &run); err != nil {
		return err
	}
	run.UpdatedAt = s.now()
	return s.runs.Update(ctx, run)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func formatDate(t time.Time) string {
	return t.Format(payroll.DateLayout)
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func strPtr(s string) *string {
	return &s
}

func mapToPeriodResponse(p payroll.PayPeriod) payroll.PayPeriodResponse {
	return payroll.PayPeriodResponse{
		ID:               p.ID,
		Frequency:        string(p.Frequency),
		StartDate:        formatDate(p.StartDate),
		EndDate:          formatDate(p.EndDate),
		PayDate:          formatDate(p.PayDate),
		PeriodNumber:     p.PeriodNumber,
		Year:             p.Year,
		Status:           string(p.Status),
		ApprovalWorkflow: p.ApprovalWorkflow,
	}
}

func mapToRunResponse(r payroll.PayrollRun) payroll.PayrollRunResponse {
	return payroll.PayrollRunResponse{
		ID:              r.ID,
		PayPeriodID:     r.PayPeriodID,
		RunNumber:       r.RunNumber,
		RunType:         string(r.RunType),
		Status:          string(r.Status),
		TotalEmployees:  r.TotalEmployees,
		TotalGross:      r.TotalGross,
		TotalDeductions: r.TotalDeductions,
		TotalNet:        r.TotalNet,
		TotalHours:      r.TotalHours,
		TotalBonuses:    r.TotalBonuses,
		ApprovedAt:      formatTimePtr(r.ApprovedAt),
		ApprovedBy:      r.ApprovedBy,
		ProcessedAt:     formatTimePtr(r.ProcessedAt),
		ProcessedBy:     r.ProcessedBy,
		PaidAt:          formatTimePtr(r.PaidAt),
		PaidBy:          r.PaidBy,
		Notes:           r.Notes,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       formatTime(r.CreatedAt),
	}
}

func mapToEntryResponse(e payroll.PayrollEntry) payroll.PayrollEntryResponse {
	return payroll.PayrollEntryResponse{
		ID:                       e.ID,
		PayrollRunID:             e.PayrollRunID,
		PayPeriodID:              e.PayPeriodID,
		EmployeeID:               e.EmployeeID,
		EmployeeName:             e.EmployeeName,
		EmployeeCode:             e.EmployeeCode,
		EntryNumber:              e.EntryNumber,
		RegularHours:             e.RegularHours,
		OvertimeHours:            e.OvertimeHours,
		DoubleOvertimeHours:      e.DoubleOvertimeHours,
		PTOHours:                 e.PTOHours,
		SickHours:                e.SickHours,
		HolidayHours:             e.HolidayHours,
		TotalHours:               e.TotalHours,
		HourlyRate:               e.HourlyRate,
		SalaryAmount:             e.SalaryAmount,
		OvertimeMultiplier:       e.OvertimeMultiplier,
		DoubleOvertimeMultiplier: e.DoubleOvertimeMultiplier,
		HolidayMultiplier:        e.HolidayMultiplier,
		RegularPay:               e.RegularPay,
		OvertimePay:              e.OvertimePay,
		DoubleOvertimePay:        e.DoubleOvertimePay,
		PTOPay:                   e.PTOPay,
		SickPay:                  e.SickPay,
		HolidayPay:               e.HolidayPay,
		Bonuses:                  e.Bonuses,
		GrossPay:                 e.GrossPay,
		DeductionOverride:        e.DeductionOverride,
		TotalDeductions:          e.TotalDeductions,
		NetPay:                   e.NetPay,
		Status:                   string(e.Status),
		SourceType:               string(e.SourceType),
		IsAutoGenerated:          e.IsAutoGenerated,
		IsLocked:                 e.IsLocked,
		LockReason:               e.LockReason,
		Notes:                    e.Notes,
		ApprovedAt:               formatTimePtr(e.ApprovedAt),
		ApprovedBy:               e.ApprovedBy,
		ProcessedAt:              formatTimePtr(e.ProcessedAt),
		PaidAt:                   formatTimePtr(e.PaidAt),
		CreatedAt:                formatTime(e.CreatedAt),
		UpdatedAt:                formatTime(e.UpdatedAt),
	}
}

func mapToEntryResponses(entries []payroll.PayrollEntry) []payroll.PayrollEntryResponse {
	responses := make([]payroll.PayrollEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = mapToEntryResponse(e)
	}
	return responses
}
