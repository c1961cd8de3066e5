package attendance

import (
	"time"
)

const (
	StatusWaitingApproval = "waiting_approval"
	StatusApproved        = "approved"
	StatusRejected        = "rejected"
)

type Attendance struct {
	ID                 string
	EmployeeID         string
	CompanyID          string
	Date               time.Time
	ClockIn            *time.Time
	ClockOut           *time.Time
	WorkHoursInMinutes *int
	OvertimeMinutes    *int
	Status             string
	ApprovedBy         *string
	ApprovedAt         *time.Time
	RejectionReason    *string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// DTO
	EmployeeName *string
}
