package payroll

import (
	"context"
	"time"
)

// Reconciler keeps timesheet-derived payroll entries in step with attendance approvals.
type Reconciler interface {
	// SyncFromApproval recomputes the entry of the attendance record's employee and period
	SyncFromApproval(ctx context.Context, companyID string, attendanceID string) (SyncResult, error)

	// RecalcForRejection recomputes an existing entry after a record left approved status
	RecalcForRejection(ctx context.Context, companyID string, employeeID string, periodDate time.Time) (SyncResult, error)

	// SyncEmployeePeriod recomputes the entry covering date without a triggering record
	SyncEmployeePeriod(ctx context.Context, companyID string, employeeID string, date time.Time) (SyncResult, error)
}

// PayrollService defines business logic for payroll operations.
// A nil response with a nil error means the referenced record does not exist.
type PayrollService interface {
	Reconciler

	// Periods
	ResolvePeriod(ctx context.Context, actor Actor, req ResolvePeriodRequest) (PayPeriodResponse, error)
	GetPeriod(ctx context.Context, actor Actor, id string) (*PayPeriodResponse, error)
	ListPeriods(ctx context.Context, actor Actor, filter PeriodFilter) (ListPayPeriodResponse, error)

	// Runs
	CreateRun(ctx context.Context, actor Actor, req CreateRunRequest) (*PayrollRunResponse, error)
	GetRun(ctx context.Context, actor Actor, id string) (*PayrollRunResponse, error)
	ListRuns(ctx context.Context, actor Actor, filter RunFilter) (ListPayrollRunResponse, error)
	ApproveRun(ctx context.Context, actor Actor, id string) (*PayrollRunResponse, error)
	ProcessRun(ctx context.Context, actor Actor, id string) (*PayrollRunResponse, error)
	MarkRunPaid(ctx context.Context, actor Actor, id string) (*PayrollRunResponse, error)
	CancelRun(ctx context.Context, actor Actor, id string, req CancelRunRequest) (*PayrollRunResponse, error)

	// Entries
	CreateEntry(ctx context.Context, actor Actor, req CreateEntryRequest) (*PayrollEntryResponse, error)
	GetEntry(ctx context.Context, actor Actor, id string) (*PayrollEntryResponse, error)
	ListEntries(ctx context.Context, actor Actor, filter EntryFilter) (ListPayrollEntryResponse, error)
	UpdateEntry(ctx context.Context, actor Actor, req UpdateEntryRequest) (*PayrollEntryResponse, error)
	DeleteEntry(ctx context.Context, actor Actor, id string) (*PayrollEntryResponse, error)
	SubmitEntry(ctx context.Context, actor Actor, id string) (*PayrollEntryResponse, error)
	ApproveEntry(ctx context.Context, actor Actor, id string) (*PayrollEntryResponse, error)
	RejectEntry(ctx context.Context, actor Actor, id string, req RejectEntryRequest) (*PayrollEntryResponse, error)
	LockEntry(ctx context.Context, actor Actor, id string, req LockEntryRequest) (*PayrollEntryResponse, error)
	UnlockEntry(ctx context.Context, actor Actor, id string) (*PayrollEntryResponse, error)
	GetEntryTimesheets(ctx context.Context, actor Actor, id string) ([]TimesheetLinkResponse, error)
	GetPayslip(ctx context.Context, actor Actor, id string) (*Payslip, error)

	// Reporting
	GetDashboard(ctx context.Context, actor Actor, filter DashboardFilter) (DashboardResponse, error)
	ListAuditLogs(ctx context.Context, actor Actor, filter AuditLogFilter) (ListAuditLogResponse, error)
}
