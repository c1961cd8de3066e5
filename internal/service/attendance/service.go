package attendance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
)

type AttendanceServiceImpl struct {
	tx payroll.TxManager
	attendance.AttendanceRepository
	reconciler payroll.Reconciler
	now        func() time.Time
}

func NewAttendanceService(
	tx payroll.TxManager,
	attendanceRepo attendance.AttendanceRepository,
	reconciler payroll.Reconciler,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		tx:                   tx,
		AttendanceRepository: attendanceRepo,
		reconciler:           reconciler,
		now:                  time.Now,
	}
}

// timePtrToString safely converts a *time.Time to a string.
func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.Format("2006-01-02 15:04:05")
	return &format
}

func minutesToHours(minutes *int) *float64 {
	if minutes == nil {
		return nil
	}
	hours := float64(*minutes) / 60.0
	return &hours
}

// mapAttendanceToResponse converts an Attendance entity to AttendanceResponse
func mapAttendanceToResponse(att attendance.Attendance) attendance.AttendanceResponse {
	var employeeName string
	if att.EmployeeName != nil {
		employeeName = *att.EmployeeName
	}

	return attendance.AttendanceResponse{
		ID:              att.ID,
		EmployeeID:      att.EmployeeID,
		EmployeeName:    employeeName,
		Date:            att.Date.Format("2006-01-02"),
		ClockInTime:     timePtrToString(att.ClockIn),
		ClockOutTime:    timePtrToString(att.ClockOut),
		WorkingHours:    minutesToHours(att.WorkHoursInMinutes),
		OvertimeHours:   minutesToHours(att.OvertimeMinutes),
		Status:          att.Status,
		ApprovedBy:      att.ApprovedBy,
		ApprovedAt:      timePtrToString(att.ApprovedAt),
		RejectionReason: att.RejectionReason,
		CreatedAt:       att.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:       att.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ListAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListAttendance(ctx context.Context, companyID string, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	attendances, total, err := a.AttendanceRepository.List(ctx, filter, companyID)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendances: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(attendances))
	for _, att := range attendances {
		responses = append(responses, mapAttendanceToResponse(att))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Attendances: responses,
	}, nil
}

// GetAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetAttendance(ctx context.Context, companyID string, id string) (attendance.AttendanceResponse, error) {
	att, err := a.AttendanceRepository.GetByID(ctx, id, companyID)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.AttendanceResponse{}, attendance.ErrAttendanceNotFound
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get attendance: %w", err)
	}

	return mapAttendanceToResponse(att), nil
}

// ApproveAttendance implements attendance.AttendanceService.
// The approval and the payroll sync commit together. A skipped sync does not block approval.
func (a *AttendanceServiceImpl) ApproveAttendance(ctx context.Context, companyID string, userID string, req attendance.ApproveAttendanceRequest) (attendance.AttendanceResponse, error) {
	var (
		updated attendance.Attendance
		result  payroll.SyncResult
	)
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		att, err := a.AttendanceRepository.GetByID(ctx, req.ID, companyID)
		if err != nil {
			return err
		}
		if att.Status == attendance.StatusApproved {
			return attendance.ErrAttendanceAlreadyProcessed
		}

		now := a.now()
		att.Status = attendance.StatusApproved
		att.ApprovedBy = &userID
		att.ApprovedAt = &now
		att.RejectionReason = nil

		if err := a.AttendanceRepository.UpdateReview(ctx, att); err != nil {
			return err
		}

		result, err = a.reconciler.SyncFromApproval(ctx, companyID, att.ID)
		if err != nil {
			return err
		}

		updated, err = a.AttendanceRepository.GetByID(ctx, req.ID, companyID)
		return err
	})
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) || errors.Is(err, attendance.ErrAttendanceAlreadyProcessed) {
			return attendance.AttendanceResponse{}, err
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to approve attendance: %w", err)
	}

	resp := mapAttendanceToResponse(updated)
	resp.Payroll = &result
	return resp, nil
}

// RejectAttendance implements attendance.AttendanceService.
// Rejecting a previously approved record recalculates the payroll entry it fed.
func (a *AttendanceServiceImpl) RejectAttendance(ctx context.Context, companyID string, userID string, req attendance.RejectAttendanceRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	var (
		updated attendance.Attendance
		result  *payroll.SyncResult
	)
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		att, err := a.AttendanceRepository.GetByID(ctx, req.ID, companyID)
		if err != nil {
			return err
		}
		if att.Status == attendance.StatusRejected {
			return attendance.ErrAttendanceAlreadyProcessed
		}
		wasApproved := att.Status == attendance.StatusApproved

		now := a.now()
		att.Status = attendance.StatusRejected
		att.ApprovedBy = &userID
		att.ApprovedAt = &now
		att.RejectionReason = &req.Reason

		if err := a.AttendanceRepository.UpdateReview(ctx, att); err != nil {
			return err
		}

		if wasApproved {
			r, err := a.reconciler.RecalcForRejection(ctx, companyID, att.EmployeeID, att.Date)
			if err != nil {
				return err
			}
			result = &r
		}

		updated, err = a.AttendanceRepository.GetByID(ctx, req.ID, companyID)
		return err
	})
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) || errors.Is(err, attendance.ErrAttendanceAlreadyProcessed) {
			return attendance.AttendanceResponse{}, err
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to reject attendance: %w", err)
	}

	resp := mapAttendanceToResponse(updated)
	resp.Payroll = result
	return resp, nil
}
