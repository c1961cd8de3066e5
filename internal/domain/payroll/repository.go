package payroll

import (
	"context"
	"time"
)

// All repository methods take companyID so one tenant can never read or write another's rows.

type PayPeriodRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (PayPeriod, error)
	GetByBounds(ctx context.Context, companyID string, frequency Frequency, start, end time.Time) (PayPeriod, error)
	// CreateIfAbsent inserts period unless a live one with the same bounds exists.
	// The bool is false when another writer got there first.
	CreateIfAbsent(ctx context.Context, period PayPeriod) (PayPeriod, bool, error)
	List(ctx context.Context, companyID string, filter PeriodFilter) ([]PayPeriod, int64, error)
}

type PayrollRunRepository interface {
	// Create returns ErrDuplicateRun when the period already has an active run.
	Create(ctx context.Context, run PayrollRun) (PayrollRun, error)
	CreateIfAbsent(ctx context.Context, run PayrollRun) (PayrollRun, bool, error)
	GetByID(ctx context.Context, id string, companyID string) (PayrollRun, error)
	// GetActiveByPeriod returns the non-deleted, non-cancelled run of a period.
	GetActiveByPeriod(ctx context.Context, companyID string, payPeriodID string) (PayrollRun, error)
	List(ctx context.Context, companyID string, filter RunFilter) ([]PayrollRun, int64, error)
	Update(ctx context.Context, run PayrollRun) error
	CountByStatus(ctx context.Context, companyID string, filter DashboardFilter) (map[string]int, error)
}

// EntryCascade is applied to every live entry of a run when the run changes state.
type EntryCascade struct {
	Status      EntryStatus
	ProcessedAt *time.Time
	PaidAt      *time.Time
	Lock        bool
	LockReason  *string
}

type PayrollEntryRepository interface {
	// Create returns ErrDuplicateEntry on the (run, employee) unique index.
	Create(ctx context.Context, entry PayrollEntry) (PayrollEntry, error)
	// CreateIfAbsent reports false instead of failing when the run already has a live entry for the employee.
	CreateIfAbsent(ctx context.Context, entry PayrollEntry) (PayrollEntry, bool, error)
	GetByID(ctx context.Context, id string, companyID string) (PayrollEntry, error)
	GetByRunAndEmployee(ctx context.Context, companyID string, runID string, employeeID string) (PayrollEntry, error)
	// ExistsForEmployeePeriod ignores deleted and cancelled entries.
	ExistsForEmployeePeriod(ctx context.Context, companyID string, employeeID string, payPeriodID string) (bool, error)
	List(ctx context.Context, companyID string, filter EntryFilter) ([]PayrollEntry, int64, error)
	ListByRun(ctx context.Context, companyID string, runID string) ([]PayrollEntry, error)
	Update(ctx context.Context, entry PayrollEntry) error
	SoftDelete(ctx context.Context, id string, companyID string, deletedBy string) error
	CascadeRun(ctx context.Context, companyID string, runID string, cascade EntryCascade) (int64, error)
	Summarize(ctx context.Context, companyID string, filter DashboardFilter) (EntrySummary, error)
}

type TimesheetLinkRepository interface {
	// Replace removes every link of the entry and inserts links in their place.
	Replace(ctx context.Context, entryID string, links []PayrollTimesheetEntry) error
	DeleteByEntry(ctx context.Context, entryID string) error
	ListByEntry(ctx context.Context, entryID string) ([]PayrollTimesheetEntry, error)
}

type AuditLogRepository interface {
	Create(ctx context.Context, log PayrollAuditLog) error
	List(ctx context.Context, companyID string, filter AuditLogFilter) ([]PayrollAuditLog, int64, error)
}

type CounterRepository interface {
	// Next atomically increments and returns the counter for (companyID, counterType, year).
	Next(ctx context.Context, companyID string, counterType string, year int) (int64, error)
}

// AttendanceSource is the read side of the attendance module.
type AttendanceSource interface {
	GetAttendance(ctx context.Context, companyID string, id string) (AttendanceRecord, error)
	ListApprovedInRange(ctx context.Context, companyID string, employeeID string, start, end time.Time) ([]AttendanceRecord, error)
}

// EmployeeDirectory supplies pay classification per employee.
type EmployeeDirectory interface {
	GetPayProfile(ctx context.Context, companyID string, employeeID string) (PayProfile, error)
}

// TxManager runs fn inside a transaction carried by the context. Nested calls
// join the outer transaction.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
