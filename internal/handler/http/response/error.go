package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
)

// payrollStatus maps payroll error codes to HTTP status codes.
var payrollStatus = map[string]int{
	payroll.CodeDuplicateEntry:          http.StatusConflict,
	payroll.CodeDuplicateRun:            http.StatusConflict,
	payroll.CodeAlreadyApproved:         http.StatusConflict,
	payroll.CodeAlreadyProcessed:        http.StatusConflict,
	payroll.CodeInvalidStatusTransition: http.StatusConflict,
	payroll.CodeEntryLocked:             http.StatusLocked,
	payroll.CodeNoHourlyRate:            http.StatusUnprocessableEntity,
}

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Payroll errors carry their own code
	var payrollErr *payroll.Error
	if errors.As(err, &payrollErr) {
		status, ok := payrollStatus[payrollErr.Code]
		if !ok {
			status = http.StatusConflict
		}
		Error(w, status, payrollErr.Code, payrollErr.Error())
		return
	}

	switch {
	// Payroll lookups
	case errors.Is(err, payroll.ErrPayPeriodNotFound):
		NotFound(w, "Pay period not found")
	case errors.Is(err, payroll.ErrPayrollRunNotFound):
		NotFound(w, "Payroll run not found")
	case errors.Is(err, payroll.ErrPayrollEntryNotFound):
		NotFound(w, "Payroll entry not found")
	case errors.Is(err, payroll.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, payroll.ErrAttendanceNotFound):
		NotFound(w, "Attendance not found")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance not found")
	case errors.Is(err, attendance.ErrAttendanceAlreadyProcessed):
		Conflict(w, "Attendance already processed")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
