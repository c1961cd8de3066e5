package attendance

import (
	"context"
)

// AttendanceService covers the review side of attendance. Approval and
// rejection keep the payroll entry of the affected pay period in step.
type AttendanceService interface {
	// ListAttendance retrieves attendance records with filters (admin/manager)
	ListAttendance(ctx context.Context, companyID string, filter AttendanceFilter) (ListAttendanceResponse, error)

	// GetAttendance retrieves a single attendance record by ID
	GetAttendance(ctx context.Context, companyID string, id string) (AttendanceResponse, error)

	// ApproveAttendance approves an attendance record
	ApproveAttendance(ctx context.Context, companyID string, userID string, req ApproveAttendanceRequest) (AttendanceResponse, error)

	// RejectAttendance rejects an attendance record with reason
	RejectAttendance(ctx context.Context, companyID string, userID string, req RejectAttendanceRequest) (AttendanceResponse, error)
}
