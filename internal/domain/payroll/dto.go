package payroll

import (
	"maps"
	"slices"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// ========== PERIOD DTOs ==========

type ResolvePeriodRequest struct {
	Frequency string `json:"frequency"`
	Date      string `json:"date"`
}

func (r *ResolvePeriodRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Frequency != string(FrequencyWeekly) && r.Frequency != string(FrequencyMonthly) {
		errs = append(errs, validator.ValidationError{Field: "frequency", Message: "must be 'weekly' or 'monthly'"})
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "must be in YYYY-MM-DD format"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PayPeriodResponse struct {
	ID               string `json:"id"`
	Frequency        string `json:"frequency"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	PayDate          string `json:"pay_date"`
	PeriodNumber     int    `json:"period_number"`
	Year             int    `json:"year"`
	Status           string `json:"status"`
	ApprovalWorkflow string `json:"approval_workflow"`
}

type PeriodFilter struct {
	Frequency *string `json:"frequency,omitempty"`
	Year      *int    `json:"year,omitempty"`
	Status    *string `json:"status,omitempty"`
	Page      int     `json:"page"`
	Limit     int     `json:"limit"`
}

type ListPayPeriodResponse struct {
	Data       []PayPeriodResponse `json:"data"`
	TotalCount int64               `json:"total_count"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
}

// ========== RUN DTOs ==========

type CreateRunRequest struct {
	PayPeriodID string  `json:"pay_period_id"`
	RunType     string  `json:"run_type,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

func (r *CreateRunRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.PayPeriodID) {
		errs = append(errs, validator.ValidationError{Field: "pay_period_id", Message: "is required"})
	}
	if r.RunType != "" && !validator.IsInSlice(r.RunType, []string{
		string(RunTypeRegular), string(RunTypeOffCycle), string(RunTypeBonus), string(RunTypeCorrection),
	}) {
		errs = append(errs, validator.ValidationError{Field: "run_type", Message: "must be one of regular, off_cycle, bonus, correction"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CancelRunRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type PayrollRunResponse struct {
	ID              string          `json:"id"`
	PayPeriodID     string          `json:"pay_period_id"`
	RunNumber       string          `json:"run_number"`
	RunType         string          `json:"run_type"`
	Status          string          `json:"status"`
	TotalEmployees  int             `json:"total_employees"`
	TotalGross      decimal.Decimal `json:"total_gross"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	TotalNet        decimal.Decimal `json:"total_net"`
	TotalHours      decimal.Decimal `json:"total_hours"`
	TotalBonuses    decimal.Decimal `json:"total_bonuses"`
	ApprovedAt      *string         `json:"approved_at,omitempty"`
	ApprovedBy      *string         `json:"approved_by,omitempty"`
	ProcessedAt     *string         `json:"processed_at,omitempty"`
	ProcessedBy     *string         `json:"processed_by,omitempty"`
	PaidAt          *string         `json:"paid_at,omitempty"`
	PaidBy          *string         `json:"paid_by,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       string          `json:"created_at"`
}

type RunFilter struct {
	PayPeriodID *string `json:"pay_period_id,omitempty"`
	Status      *string `json:"status,omitempty"`
	Page        int     `json:"page"`
	Limit       int     `json:"limit"`
}

type ListPayrollRunResponse struct {
	Data       []PayrollRunResponse `json:"data"`
	TotalCount int64                `json:"total_count"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
}

// ========== ENTRY DTOs ==========

type CreateEntryRequest struct {
	EmployeeID               string           `json:"employee_id"`
	PayPeriodID              string           `json:"pay_period_id"`
	RegularHours             decimal.Decimal  `json:"regular_hours"`
	OvertimeHours            decimal.Decimal  `json:"overtime_hours"`
	DoubleOvertimeHours      decimal.Decimal  `json:"double_overtime_hours"`
	PTOHours                 decimal.Decimal  `json:"pto_hours"`
	SickHours                decimal.Decimal  `json:"sick_hours"`
	HolidayHours             decimal.Decimal  `json:"holiday_hours"`
	HourlyRate               *decimal.Decimal `json:"hourly_rate,omitempty"`
	SalaryAmount             decimal.Decimal  `json:"salary_amount"`
	OvertimeMultiplier       *decimal.Decimal `json:"overtime_multiplier,omitempty"`
	DoubleOvertimeMultiplier *decimal.Decimal `json:"double_overtime_multiplier,omitempty"`
	HolidayMultiplier        *decimal.Decimal `json:"holiday_multiplier,omitempty"`
	Bonuses                  decimal.Decimal  `json:"bonuses"`
	DeductionAmount          *decimal.Decimal `json:"deduction_amount,omitempty"`
	Notes                    *string          `json:"notes,omitempty"`
}

func (r *CreateEntryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if validator.IsEmpty(r.PayPeriodID) {
		errs = append(errs, validator.ValidationError{Field: "pay_period_id", Message: "is required"})
	}
	errs = validateNonNegative(errs, map[string]decimal.Decimal{
		"regular_hours":         r.RegularHours,
		"overtime_hours":        r.OvertimeHours,
		"double_overtime_hours": r.DoubleOvertimeHours,
		"pto_hours":             r.PTOHours,
		"sick_hours":            r.SickHours,
		"holiday_hours":         r.HolidayHours,
		"salary_amount":         r.SalaryAmount,
		"bonuses":               r.Bonuses,
	})
	errs = validateOptionalNonNegative(errs, map[string]*decimal.Decimal{
		"hourly_rate":                r.HourlyRate,
		"overtime_multiplier":        r.OvertimeMultiplier,
		"double_overtime_multiplier": r.DoubleOvertimeMultiplier,
		"holiday_multiplier":         r.HolidayMultiplier,
		"deduction_amount":           r.DeductionAmount,
	})

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Hours returns the request's hour buckets.
func (r *CreateEntryRequest) Hours() HourBuckets {
	return HourBuckets{
		Regular:        r.RegularHours,
		Overtime:       r.OvertimeHours,
		DoubleOvertime: r.DoubleOvertimeHours,
		PTO:            r.PTOHours,
		Sick:           r.SickHours,
		Holiday:        r.HolidayHours,
	}
}

type UpdateEntryRequest struct {
	ID                       string
	RegularHours             *decimal.Decimal `json:"regular_hours,omitempty"`
	OvertimeHours            *decimal.Decimal `json:"overtime_hours,omitempty"`
	DoubleOvertimeHours      *decimal.Decimal `json:"double_overtime_hours,omitempty"`
	PTOHours                 *decimal.Decimal `json:"pto_hours,omitempty"`
	SickHours                *decimal.Decimal `json:"sick_hours,omitempty"`
	HolidayHours             *decimal.Decimal `json:"holiday_hours,omitempty"`
	HourlyRate               *decimal.Decimal `json:"hourly_rate,omitempty"`
	SalaryAmount             *decimal.Decimal `json:"salary_amount,omitempty"`
	OvertimeMultiplier       *decimal.Decimal `json:"overtime_multiplier,omitempty"`
	DoubleOvertimeMultiplier *decimal.Decimal `json:"double_overtime_multiplier,omitempty"`
	HolidayMultiplier        *decimal.Decimal `json:"holiday_multiplier,omitempty"`
	Bonuses                  *decimal.Decimal `json:"bonuses,omitempty"`
	DeductionAmount          *decimal.Decimal `json:"deduction_amount,omitempty"`
	ClearDeduction           bool             `json:"clear_deduction,omitempty"`
	Notes                    *string          `json:"notes,omitempty"`
}

func (r *UpdateEntryRequest) Validate() error {
	var errs validator.ValidationErrors

	errs = validateOptionalNonNegative(errs, map[string]*decimal.Decimal{
		"regular_hours":              r.RegularHours,
		"overtime_hours":             r.OvertimeHours,
		"double_overtime_hours":      r.DoubleOvertimeHours,
		"pto_hours":                  r.PTOHours,
		"sick_hours":                 r.SickHours,
		"holiday_hours":              r.HolidayHours,
		"hourly_rate":                r.HourlyRate,
		"salary_amount":              r.SalaryAmount,
		"overtime_multiplier":        r.OvertimeMultiplier,
		"double_overtime_multiplier": r.DoubleOvertimeMultiplier,
		"holiday_multiplier":         r.HolidayMultiplier,
		"bonuses":                    r.Bonuses,
		"deduction_amount":           r.DeductionAmount,
	})
	if r.ClearDeduction && r.DeductionAmount != nil {
		errs = append(errs, validator.ValidationError{Field: "clear_deduction", Message: "cannot be combined with deduction_amount"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RejectEntryRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectEntryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type LockEntryRequest struct {
	Reason string `json:"reason"`
}

func (r *LockEntryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PayrollEntryResponse struct {
	ID                       string           `json:"id"`
	PayrollRunID             string           `json:"payroll_run_id"`
	PayPeriodID              string           `json:"pay_period_id"`
	EmployeeID               string           `json:"employee_id"`
	EmployeeName             *string          `json:"employee_name,omitempty"`
	EmployeeCode             *string          `json:"employee_code,omitempty"`
	EntryNumber              string           `json:"entry_number"`
	RegularHours             decimal.Decimal  `json:"regular_hours"`
	OvertimeHours            decimal.Decimal  `json:"overtime_hours"`
	DoubleOvertimeHours      decimal.Decimal  `json:"double_overtime_hours"`
	PTOHours                 decimal.Decimal  `json:"pto_hours"`
	SickHours                decimal.Decimal  `json:"sick_hours"`
	HolidayHours             decimal.Decimal  `json:"holiday_hours"`
	TotalHours               decimal.Decimal  `json:"total_hours"`
	HourlyRate               decimal.Decimal  `json:"hourly_rate"`
	SalaryAmount             decimal.Decimal  `json:"salary_amount"`
	OvertimeMultiplier       decimal.Decimal  `json:"overtime_multiplier"`
	DoubleOvertimeMultiplier decimal.Decimal  `json:"double_overtime_multiplier"`
	HolidayMultiplier        decimal.Decimal  `json:"holiday_multiplier"`
	RegularPay               decimal.Decimal  `json:"regular_pay"`
	OvertimePay              decimal.Decimal  `json:"overtime_pay"`
	DoubleOvertimePay        decimal.Decimal  `json:"double_overtime_pay"`
	PTOPay                   decimal.Decimal  `json:"pto_pay"`
	SickPay                  decimal.Decimal  `json:"sick_pay"`
	HolidayPay               decimal.Decimal  `json:"holiday_pay"`
	Bonuses                  decimal.Decimal  `json:"bonuses"`
	GrossPay                 decimal.Decimal  `json:"gross_pay"`
	DeductionOverride        *decimal.Decimal `json:"deduction_override,omitempty"`
	TotalDeductions          decimal.Decimal  `json:"total_deductions"`
	NetPay                   decimal.Decimal  `json:"net_pay"`
	Status                   string           `json:"status"`
	SourceType               string           `json:"source_type"`
	IsAutoGenerated          bool             `json:"is_auto_generated"`
	IsLocked                 bool             `json:"is_locked"`
	LockReason               *string          `json:"lock_reason,omitempty"`
	Notes                    *string          `json:"notes,omitempty"`
	ApprovedAt               *string          `json:"approved_at,omitempty"`
	ApprovedBy               *string          `json:"approved_by,omitempty"`
	ProcessedAt              *string          `json:"processed_at,omitempty"`
	PaidAt                   *string          `json:"paid_at,omitempty"`
	CreatedAt                string           `json:"created_at"`
	UpdatedAt                string           `json:"updated_at"`
}

type EntryFilter struct {
	PayrollRunID *string `json:"payroll_run_id,omitempty"`
	PayPeriodID  *string `json:"pay_period_id,omitempty"`
	EmployeeID   *string `json:"employee_id,omitempty"`
	Status       *string `json:"status,omitempty"`
	SourceType   *string `json:"source_type,omitempty"`
	Page         int     `json:"page"`
	Limit        int     `json:"limit"`
	SortBy       string  `json:"sort_by"`
	SortOrder    string  `json:"sort_order"`
}

type ListPayrollEntryResponse struct {
	Data       []PayrollEntryResponse `json:"data"`
	TotalCount int64                  `json:"total_count"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
}

type TimesheetLinkResponse struct {
	ID                  string          `json:"id"`
	AttendanceID        string          `json:"attendance_id"`
	WorkDate            string          `json:"work_date"`
	Hours               decimal.Decimal `json:"hours"`
	OvertimeHours       decimal.Decimal `json:"overtime_hours"`
	DoubleOvertimeHours decimal.Decimal `json:"double_overtime_hours"`
	IsIncluded          bool            `json:"is_included"`
}

// ========== SYNC DTOs ==========

// SyncResult reports whether a reconciliation pass touched an entry. A skipped
// pass is not an error.
type SyncResult struct {
	Synced      bool    `json:"synced"`
	Reason      string  `json:"reason,omitempty"`
	EntryID     *string `json:"entry_id,omitempty"`
	PayrollRun  *string `json:"payroll_run_id,omitempty"`
	PayPeriodID *string `json:"pay_period_id,omitempty"`
	Created     bool    `json:"created"`
}

func Skipped(reason string) SyncResult {
	return SyncResult{Synced: false, Reason: reason}
}

type SyncEmployeeRequest struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
}

func (r *SyncEmployeeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "must be in YYYY-MM-DD format"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ParsedDate returns Date as a time. Call Validate first.
func (r *SyncEmployeeRequest) ParsedDate() time.Time {
	d, _ := validator.IsValidDate(r.Date)
	return d
}

// ========== DASHBOARD DTOs ==========

type DashboardFilter struct {
	StartDate   *string `json:"start_date,omitempty"`
	EndDate     *string `json:"end_date,omitempty"`
	PayPeriodID *string `json:"pay_period_id,omitempty"`
	Frequency   *string `json:"frequency,omitempty"`
}

func (f *DashboardFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.StartDate != nil {
		if _, ok := validator.IsValidDate(*f.StartDate); !ok {
			errs = append(errs, validator.ValidationError{Field: "start_date", Message: "must be in YYYY-MM-DD format"})
		}
	}
	if f.EndDate != nil {
		if _, ok := validator.IsValidDate(*f.EndDate); !ok {
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must be in YYYY-MM-DD format"})
		}
	}
	if f.Frequency != nil && *f.Frequency != string(FrequencyWeekly) && *f.Frequency != string(FrequencyMonthly) {
		errs = append(errs, validator.ValidationError{Field: "frequency", Message: "must be 'weekly' or 'monthly'"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// EntrySummary aggregates non-deleted entries matching a dashboard filter.
type EntrySummary struct {
	TotalEntries    int
	TotalHours      decimal.Decimal
	TotalGross      decimal.Decimal
	TotalDeductions decimal.Decimal
	TotalNet        decimal.Decimal
	TotalBonuses    decimal.Decimal
	StatusCounts    map[string]int
	LockedCount     int
	AutoCount       int
}

type DashboardResponse struct {
	TotalEntries      int             `json:"total_entries"`
	TotalHours        decimal.Decimal `json:"total_hours"`
	TotalGross        decimal.Decimal `json:"total_gross"`
	TotalDeductions   decimal.Decimal `json:"total_deductions"`
	TotalNet          decimal.Decimal `json:"total_net"`
	TotalBonuses      decimal.Decimal `json:"total_bonuses"`
	LockedEntries     int             `json:"locked_entries"`
	AutoEntries       int             `json:"auto_generated_entries"`
	EntryStatusCounts map[string]int  `json:"entry_status_counts"`
	RunStatusCounts   map[string]int  `json:"run_status_counts"`
}

// ========== AUDIT DTOs ==========

type AuditLogFilter struct {
	ReferenceType *string `json:"reference_type,omitempty"`
	ReferenceID   *string `json:"reference_id,omitempty"`
	Action        *string `json:"action,omitempty"`
	Page          int     `json:"page"`
	Limit         int     `json:"limit"`
}

type AuditLogResponse struct {
	ID             string `json:"id"`
	ReferenceType  string `json:"reference_type"`
	ReferenceID    string `json:"reference_id"`
	Action         string `json:"action"`
	Description    string `json:"description"`
	OldValues      any    `json:"old_values,omitempty"`
	NewValues      any    `json:"new_values,omitempty"`
	PerformedBy    string `json:"performed_by"`
	IsSystemAction bool   `json:"is_system_action"`
	CreatedAt      string `json:"created_at"`
}

type ListAuditLogResponse struct {
	Data       []AuditLogResponse `json:"data"`
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
}

// ========== PAYSLIP ==========

type Payslip struct {
	Filename string
	Content  []byte
}

func validateNonNegative(errs validator.ValidationErrors, fields map[string]decimal.Decimal) validator.ValidationErrors {
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if fields[name].IsNegative() {
			errs = append(errs, validator.ValidationError{Field: name, Message: "must be non-negative"})
		}
	}
	return errs
}

func validateOptionalNonNegative(errs validator.ValidationErrors, fields map[string]*decimal.Decimal) validator.ValidationErrors {
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if v := fields[name]; v != nil && v.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: name, Message: "must be non-negative"})
		}
	}
	return errs
}
