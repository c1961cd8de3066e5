package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
)

type timesheetLinkRepository struct {
	db *database.DB
}

func NewTimesheetLinkRepository(db *database.DB) payroll.TimesheetLinkRepository {
	return &timesheetLinkRepository{db: db}
}

// Replace should run inside a transaction so readers never see the entry without links.
func (r *timesheetLinkRepository) Replace(ctx context.Context, entryID string, links []payroll.PayrollTimesheetEntry) error {
	if err := r.DeleteByEntry(ctx, entryID); err != nil {
		return err
	}

	q := GetQuerier(ctx, r.db)
	query := `
		INSERT INTO payroll_timesheet_entries (
			payroll_entry_id, attendance_id, work_date, hours, overtime_hours, double_overtime_hours, is_included
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, link := range links {
		if _, err := q.Exec(ctx, query,
			entryID, link.AttendanceID, link.WorkDate, link.Hours, link.OvertimeHours, link.DoubleOvertimeHours, link.IsIncluded,
		); err != nil {
			return fmt.Errorf("failed to link attendance %s: %w", link.AttendanceID, err)
		}
	}
	return nil
}

func (r *timesheetLinkRepository) DeleteByEntry(ctx context.Context, entryID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM payroll_timesheet_entries WHERE payroll_entry_id = $1`, entryID); err != nil {
		return fmt.Errorf("failed to delete timesheet links: %w", err)
	}
	return nil
}

func (r *timesheetLinkRepository) ListByEntry(ctx context.Context, entryID string) ([]payroll.PayrollTimesheetEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, payroll_entry_id, attendance_id, work_date, hours, overtime_hours,
			double_overtime_hours, is_included, created_at
		FROM payroll_timesheet_entries
		WHERE payroll_entry_id = $1
		ORDER BY work_date, created_at
	`

	rows, err := q.Query(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheet links: %w", err)
	}
	defer rows.Close()

	var links []payroll.PayrollTimesheetEntry
	for rows.Next() {
		var l payroll.PayrollTimesheetEntry
		if err := rows.Scan(
			&l.ID, &l.PayrollEntryID, &l.AttendanceID, &l.WorkDate, &l.Hours, &l.OvertimeHours,
			&l.DoubleOvertimeHours, &l.IsIncluded, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan timesheet link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timesheet links: %w", err)
	}
	return links, nil
}
