package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

// NewAttendanceSource exposes attendance rows to the payroll reconciler.
func NewAttendanceSource(db *database.DB) payroll.AttendanceSource {
	return &attendanceRepository{db: db}
}

const attendanceColumns = `
	a.id, a.employee_id, a.company_id, a.date,
	a.clock_in, a.clock_out, a.work_hours_in_minutes, a.overtime_minutes,
	a.status, a.approved_by, a.approved_at, a.rejection_reason,
	a.created_at, a.updated_at,
	e.full_name AS employee_name
`

func scanAttendance(row pgx.Row) (attendance.Attendance, error) {
	var att attendance.Attendance
	err := row.Scan(
		&att.ID, &att.EmployeeID, &att.CompanyID, &att.Date,
		&att.ClockIn, &att.ClockOut, &att.WorkHoursInMinutes, &att.OvertimeMinutes,
		&att.Status, &att.ApprovedBy, &att.ApprovedAt, &att.RejectionReason,
		&att.CreatedAt, &att.UpdatedAt,
		&att.EmployeeName,
	)
	return att, err
}

// GetByID implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string, companyID string) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.id = $1 AND a.company_id = $2 AND a.deleted_at IS NULL
	`

	att, err := scanAttendance(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance by ID: %w", err)
	}

	return att, nil
}

// UpdateReview implements attendance.AttendanceRepository.
func (a *attendanceRepository) UpdateReview(ctx context.Context, att attendance.Attendance) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances
		SET status = $3, approved_by = $4, approved_at = $5, rejection_reason = $6, updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
	`

	tag, err := q.Exec(ctx, query, att.ID, att.CompanyID, att.Status, att.ApprovedBy, att.ApprovedAt, att.RejectionReason)
	if err != nil {
		return fmt.Errorf("failed to update attendance review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter, companyID string) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, a.db)

	baseWhere := "a.company_id = $1 AND a.deleted_at IS NULL"
	args := []interface{}{companyID}
	argIdx := 2

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND a.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date >= $%d::date", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date <= $%d::date", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND a.status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM attendances a WHERE " + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	orderByField := "a.date"
	switch filter.SortBy {
	case "employee_name":
		orderByField = "e.full_name"
	case "status":
		orderByField = "a.status"
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page == 0 {
		page = 1
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM attendances a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, attendanceColumns, baseWhere, orderByField, sortOrder, argIdx, argIdx+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query attendances: %w", err)
	}
	defer rows.Close()

	var attendances []attendance.Attendance
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance: %w", err)
		}
		attendances = append(attendances, att)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate attendances: %w", err)
	}

	return attendances, total, nil
}

// GetAttendance implements payroll.AttendanceSource.
func (a *attendanceRepository) GetAttendance(ctx context.Context, companyID string, id string) (payroll.AttendanceRecord, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT id, company_id, employee_id, date,
			COALESCE(work_hours_in_minutes, 0), COALESCE(overtime_minutes, 0), status
		FROM attendances
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
	`

	rec, err := scanAttendanceRecord(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.AttendanceRecord{}, payroll.ErrAttendanceNotFound
		}
		return payroll.AttendanceRecord{}, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return rec, nil
}

// ListApprovedInRange implements payroll.AttendanceSource. Bounds are inclusive dates.
func (a *attendanceRepository) ListApprovedInRange(ctx context.Context, companyID string, employeeID string, start, end time.Time) ([]payroll.AttendanceRecord, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT id, company_id, employee_id, date,
			COALESCE(work_hours_in_minutes, 0), COALESCE(overtime_minutes, 0), status
		FROM attendances
		WHERE company_id = $1 AND employee_id = $2
			AND date BETWEEN $3 AND $4
			AND status = $5 AND deleted_at IS NULL
		ORDER BY date, id
	`

	rows, err := q.Query(ctx, query, companyID, employeeID, start, end, payroll.AttendanceStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved attendance: %w", err)
	}
	defer rows.Close()

	var records []payroll.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendanceRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance records: %w", err)
	}
	return records, nil
}

func scanAttendanceRecord(row pgx.Row) (payroll.AttendanceRecord, error) {
	var rec payroll.AttendanceRecord
	err := row.Scan(&rec.ID, &rec.CompanyID, &rec.EmployeeID, &rec.Date, &rec.WorkMinutes, &rec.OvertimeMinutes, &rec.Status)
	return rec, err
}
