package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency enum
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// PeriodStatus enum
type PeriodStatus string

const (
	PeriodStatusDraft  PeriodStatus = "draft"
	PeriodStatusOpen   PeriodStatus = "open"
	PeriodStatusClosed PeriodStatus = "closed"
)

const (
	WorkflowAutoGenerate = "auto_generate"
	WorkflowManual       = "manual"
)

// PayPeriod - Date range payroll is computed against
type PayPeriod struct {
	ID               string
	CompanyID        string
	Frequency        Frequency
	StartDate        time.Time
	EndDate          time.Time
	PayDate          time.Time
	PeriodNumber     int // ISO week for weekly, month for monthly
	Year             int
	Status           PeriodStatus
	ApprovalWorkflow string
	IsDeleted        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Contains reports whether date falls inside [StartDate, EndDate].
func (p PayPeriod) Contains(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

// RunType enum
type RunType string

const (
	RunTypeRegular    RunType = "regular"
	RunTypeOffCycle   RunType = "off_cycle"
	RunTypeBonus      RunType = "bonus"
	RunTypeCorrection RunType = "correction"
)

// RunStatus enum
type RunStatus string

const (
	RunStatusDraft     RunStatus = "draft"
	RunStatusApproved  RunStatus = "approved"
	RunStatusProcessed RunStatus = "processed"
	RunStatusPaid      RunStatus = "paid"
	RunStatusCancelled RunStatus = "cancelled"
)

// PayrollRun - The single batch of entries for one pay period
type PayrollRun struct {
	ID              string
	CompanyID       string
	PayPeriodID     string
	RunNumber       string
	RunType         RunType
	Status          RunStatus
	TotalEmployees  int
	TotalGross      decimal.Decimal
	TotalDeductions decimal.Decimal
	TotalNet        decimal.Decimal
	TotalHours      decimal.Decimal
	TotalBonuses    decimal.Decimal
	ApprovedAt      *time.Time
	ApprovedBy      *string
	ProcessedAt     *time.Time
	ProcessedBy     *string
	PaidAt          *time.Time
	PaidBy          *string
	Notes           *string
	CreatedBy       string
	IsDeleted       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EntryStatus enum
type EntryStatus string

const (
	EntryStatusDraft           EntryStatus = "draft"
	EntryStatusPendingApproval EntryStatus = "pending_approval"
	EntryStatusApproved        EntryStatus = "approved"
	EntryStatusProcessed       EntryStatus = "processed"
	EntryStatusPaid            EntryStatus = "paid"
	EntryStatusCancelled       EntryStatus = "cancelled"
	EntryStatusFailed          EntryStatus = "failed"
)

// SourceType enum
type SourceType string

const (
	SourceTypeManual        SourceType = "manual"
	SourceTypeTimesheetAuto SourceType = "timesheet_auto"
)

// PayrollEntry - One employee's computed pay within a run
type PayrollEntry struct {
	ID           string
	CompanyID    string
	PayrollRunID string
	PayPeriodID  string
	EmployeeID   string
	EntryNumber  string

	RegularHours        decimal.Decimal
	OvertimeHours       decimal.Decimal
	DoubleOvertimeHours decimal.Decimal
	PTOHours            decimal.Decimal
	SickHours           decimal.Decimal
	HolidayHours        decimal.Decimal
	TotalHours          decimal.Decimal

	HourlyRate               decimal.Decimal
	SalaryAmount             decimal.Decimal
	OvertimeMultiplier       decimal.Decimal
	DoubleOvertimeMultiplier decimal.Decimal
	HolidayMultiplier        decimal.Decimal

	RegularPay        decimal.Decimal
	OvertimePay       decimal.Decimal
	DoubleOvertimePay decimal.Decimal
	PTOPay            decimal.Decimal
	SickPay           decimal.Decimal
	HolidayPay        decimal.Decimal
	Bonuses           decimal.Decimal
	GrossPay          decimal.Decimal
	DeductionOverride *decimal.Decimal
	TotalDeductions   decimal.Decimal
	NetPay            decimal.Decimal

	Status          EntryStatus
	SourceType      SourceType
	IsAutoGenerated bool
	IsLocked        bool
	LockReason      *string
	Notes           *string
	ApprovedAt      *time.Time
	ApprovedBy      *string
	ProcessedAt     *time.Time
	PaidAt          *time.Time
	CreatedBy       string
	UpdatedBy       *string
	IsDeleted       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Joined fields
	EmployeeName *string
	EmployeeCode *string
}

// ApplyBreakdown copies a calculator result onto the entry.
func (e *PayrollEntry) ApplyBreakdown(b Breakdown) {
	e.RegularHours = b.Hours.Regular
	e.OvertimeHours = b.Hours.Overtime
	e.DoubleOvertimeHours = b.Hours.DoubleOvertime
	e.PTOHours = b.Hours.PTO
	e.SickHours = b.Hours.Sick
	e.HolidayHours = b.Hours.Holiday
	e.TotalHours = b.TotalHours
	e.HourlyRate = b.HourlyRate
	e.SalaryAmount = b.FixedPay
	e.OvertimeMultiplier = b.OvertimeMultiplier
	e.DoubleOvertimeMultiplier = b.DoubleOvertimeMultiplier
	e.HolidayMultiplier = b.HolidayMultiplier
	e.RegularPay = b.RegularPay
	e.OvertimePay = b.OvertimePay
	e.DoubleOvertimePay = b.DoubleOvertimePay
	e.PTOPay = b.PTOPay
	e.SickPay = b.SickPay
	e.HolidayPay = b.HolidayPay
	e.Bonuses = b.Bonuses
	e.GrossPay = b.GrossPay
	e.TotalDeductions = b.TotalDeductions
	e.NetPay = b.NetPay
}

// PayrollTimesheetEntry - Links one attendance record to the entry that includes it
type PayrollTimesheetEntry struct {
	ID                  string
	PayrollEntryID      string
	AttendanceID        string
	WorkDate            time.Time
	Hours               decimal.Decimal
	OvertimeHours       decimal.Decimal
	DoubleOvertimeHours decimal.Decimal
	IsIncluded          bool
	CreatedAt           time.Time
}

// ReferenceType enum for audit rows
type ReferenceType string

const (
	ReferencePayPeriod    ReferenceType = "pay_period"
	ReferencePayrollRun   ReferenceType = "payroll_run"
	ReferencePayrollEntry ReferenceType = "payroll_entry"
)

// Audit actions
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionSubmit  = "submit"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionProcess = "process"
	ActionPay     = "pay"
	ActionCancel  = "cancel"
	ActionLock    = "lock"
	ActionUnlock  = "unlock"
	ActionSync    = "timesheet_sync"
)

// PayrollAuditLog - Append-only ledger row
type PayrollAuditLog struct {
	ID             string
	CompanyID      string
	ReferenceType  ReferenceType
	ReferenceID    string
	Action         string
	Description    string
	OldValues      []byte // JSON snapshot
	NewValues      []byte // JSON snapshot
	PerformedBy    string
	IsSystemAction bool
	CreatedAt      time.Time
}

// PayType enum
type PayType string

const (
	PayTypeHourly   PayType = "hourly"
	PayTypeSalaried PayType = "salaried"
)

// PayProfile - Pay classification inputs read from the employee/position directory
type PayProfile struct {
	EmployeeID         string
	CompanyID          string
	PayTypeOverride    *PayType
	HourlyRateOverride *decimal.Decimal
	PositionPayType    *PayType
	PositionPayRate    *decimal.Decimal
}

// EffectivePayType returns the override when set, else the position's pay type.
func (p PayProfile) EffectivePayType() (PayType, bool) {
	if p.PayTypeOverride != nil {
		return *p.PayTypeOverride, true
	}
	if p.PositionPayType != nil {
		return *p.PositionPayType, true
	}
	return "", false
}

// EffectiveRate is the hourly rate for hourly employees and the fixed period
// amount for salaried ones. The hourly override only applies to hourly pay.
func (p PayProfile) EffectiveRate() (decimal.Decimal, bool) {
	payType, ok := p.EffectivePayType()
	if !ok {
		return decimal.Zero, false
	}
	if payType == PayTypeHourly && p.HourlyRateOverride != nil {
		return *p.HourlyRateOverride, true
	}
	if p.PositionPayRate != nil {
		return *p.PositionPayRate, true
	}
	return decimal.Zero, false
}

// AttendanceRecord - The attendance fields the engine consumes
type AttendanceRecord struct {
	ID              string
	CompanyID       string
	EmployeeID      string
	Date            time.Time
	WorkMinutes     int
	OvertimeMinutes int
	Status          string
}

const AttendanceStatusApproved = "approved"

// IsApproved reports whether the record currently counts towards payroll.
func (a AttendanceRecord) IsApproved() bool {
	return a.Status == AttendanceStatusApproved
}

// Actor identifies who performs a mutation and in which company.
type Actor struct {
	CompanyID string
	UserID    string
}

const SystemUser = "system"

// SystemActor is used for automated actions such as timesheet sync.
func SystemActor(companyID string) Actor {
	return Actor{CompanyID: companyID, UserID: SystemUser}
}

func (a Actor) IsSystem() bool {
	return a.UserID == SystemUser
}

// DateOf truncates t to a UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
