package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrPayPeriodNotFound    = errors.New("pay period not found")
	ErrPayrollRunNotFound   = errors.New("payroll run not found")
	ErrPayrollEntryNotFound = errors.New("payroll entry not found")
	ErrAttendanceNotFound   = errors.New("attendance not found")
	ErrEmployeeNotFound     = errors.New("employee not found")

	ErrDuplicateEntry          = errors.New("payroll entry already exists for this employee and period")
	ErrDuplicateRun            = errors.New("an active payroll run already exists for this pay period")
	ErrEntryLocked             = errors.New("payroll entry is locked")
	ErrAlreadyApproved         = errors.New("payroll entry is already approved")
	ErrAlreadyProcessed        = errors.New("payroll has already been processed")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrNoHourlyRate            = errors.New("employee has no hourly rate configured")
)

// Error codes returned to API clients.
const (
	CodeDuplicateEntry          = "DUPLICATE_ENTRY"
	CodeDuplicateRun            = "DUPLICATE_RUN"
	CodeEntryLocked             = "ENTRY_LOCKED"
	CodeAlreadyApproved         = "ALREADY_APPROVED"
	CodeAlreadyProcessed        = "ALREADY_PROCESSED"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeNoHourlyRate            = "NO_HOURLY_RATE"
)

// Error pairs a payroll sentinel with its machine-readable code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code string, err error, format string, args ...any) *Error {
	if format != "" {
		err = fmt.Errorf("%w: "+format, append([]any{err}, args...)...)
	}
	return &Error{Code: code, Err: err}
}

func DuplicateEntry(employeeID, periodID string) *Error {
	return newError(CodeDuplicateEntry, ErrDuplicateEntry, "employee %s, period %s", employeeID, periodID)
}

func DuplicateRun(periodID string) *Error {
	return newError(CodeDuplicateRun, ErrDuplicateRun, "period %s", periodID)
}

func EntryLocked(reason *string) *Error {
	if reason != nil && *reason != "" {
		return newError(CodeEntryLocked, ErrEntryLocked, "%s", *reason)
	}
	return newError(CodeEntryLocked, ErrEntryLocked, "")
}

func AlreadyApproved(status EntryStatus) *Error {
	return newError(CodeAlreadyApproved, ErrAlreadyApproved, "status %s", status)
}

func AlreadyProcessed(status string) *Error {
	return newError(CodeAlreadyProcessed, ErrAlreadyProcessed, "status %s", status)
}

func InvalidTransition(from, to string) *Error {
	return newError(CodeInvalidStatusTransition, ErrInvalidStatusTransition, "%s -> %s", from, to)
}

func NoHourlyRate(employeeID string) *Error {
	return newError(CodeNoHourlyRate, ErrNoHourlyRate, "employee %s", employeeID)
}

// ErrorCode returns the code carried by err, or "" when err is not a payroll error.
func ErrorCode(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
