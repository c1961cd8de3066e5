package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const runEmployeeIndex = "uq_payroll_entries_run_employee"

type payrollEntryRepository struct {
	db *database.DB
}

func NewPayrollEntryRepository(db *database.DB) payroll.PayrollEntryRepository {
	return &payrollEntryRepository{db: db}
}

const payrollEntryColumns = `
	pe.id, pe.company_id, pe.payroll_run_id, pe.pay_period_id, pe.employee_id, pe.entry_number,
	pe.regular_hours, pe.overtime_hours, pe.double_overtime_hours, pe.pto_hours, pe.sick_hours,
	pe.holiday_hours, pe.total_hours,
	pe.hourly_rate, pe.salary_amount, pe.overtime_multiplier, pe.double_overtime_multiplier, pe.holiday_multiplier,
	pe.regular_pay, pe.overtime_pay, pe.double_overtime_pay, pe.pto_pay, pe.sick_pay, pe.holiday_pay,
	pe.bonuses, pe.gross_pay, pe.deduction_override, pe.total_deductions, pe.net_pay,
	pe.status, pe.source_type, pe.is_auto_generated, pe.is_locked, pe.lock_reason, pe.notes,
	pe.approved_at, pe.approved_by, pe.processed_at, pe.paid_at,
	pe.created_by, pe.updated_by, pe.is_deleted, pe.created_at, pe.updated_at,
	e.full_name, e.employee_code
`

const payrollEntryFrom = `
	FROM payroll_entries pe
	LEFT JOIN employees e ON e.id = pe.employee_id
`

func scanPayrollEntry(row pgx.Row) (payroll.PayrollEntry, error) {
	var e payroll.PayrollEntry
	err := row.Scan(
		&e.ID, &e.CompanyID, &e.PayrollRunID, &e.PayPeriodID, &e.EmployeeID, &e.EntryNumber,
		&e.RegularHours, &e.OvertimeHours, &e.DoubleOvertimeHours, &e.PTOHours, &e.SickHours,
		&e.HolidayHours, &e.TotalHours,
		&e.HourlyRate, &e.SalaryAmount, &e.OvertimeMultiplier, &e.DoubleOvertimeMultiplier, &e.HolidayMultiplier,
		&e.RegularPay, &e.OvertimePay, &e.DoubleOvertimePay, &e.PTOPay, &e.SickPay, &e.HolidayPay,
		&e.Bonuses, &e.GrossPay, &e.DeductionOverride, &e.TotalDeductions, &e.NetPay,
		&e.Status, &e.SourceType, &e.IsAutoGenerated, &e.IsLocked, &e.LockReason, &e.Notes,
		&e.ApprovedAt, &e.ApprovedBy, &e.ProcessedAt, &e.PaidAt,
		&e.CreatedBy, &e.UpdatedBy, &e.IsDeleted, &e.CreatedAt, &e.UpdatedAt,
		&e.EmployeeName, &e.EmployeeCode,
	)
	return e, err
}

const insertPayrollEntry = `
	INSERT INTO payroll_entries (
		company_id, payroll_run_id, pay_period_id, employee_id, entry_number,
		regular_hours, overtime_hours, double_overtime_hours, pto_hours, sick_hours, holiday_hours, total_hours,
		hourly_rate, salary_amount, overtime_multiplier, double_overtime_multiplier, holiday_multiplier,
		regular_pay, overtime_pay, double_overtime_pay, pto_pay, sick_pay, holiday_pay,
		bonuses, gross_pay, deduction_override, total_deductions, net_pay,
		status, source_type, is_auto_generated, is_locked, lock_reason, notes, created_by
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10, $11, $12,
		$13, $14, $15, $16, $17,
		$18, $19, $20, $21, $22, $23,
		$24, $25, $26, $27, $28,
		$29, $30, $31, $32, $33, $34, $35
	)
`

func insertArgs(entry payroll.PayrollEntry) []any {
	return []any{
		entry.CompanyID, entry.PayrollRunID, entry.PayPeriodID, entry.EmployeeID, entry.EntryNumber,
		entry.RegularHours, entry.OvertimeHours, entry.DoubleOvertimeHours, entry.PTOHours, entry.SickHours, entry.HolidayHours, entry.TotalHours,
		entry.HourlyRate, entry.SalaryAmount, entry.OvertimeMultiplier, entry.DoubleOvertimeMultiplier, entry.HolidayMultiplier,
		entry.RegularPay, entry.OvertimePay, entry.DoubleOvertimePay, entry.PTOPay, entry.SickPay, entry.HolidayPay,
		entry.Bonuses, entry.GrossPay, entry.DeductionOverride, entry.TotalDeductions, entry.NetPay,
		entry.Status, entry.SourceType, entry.IsAutoGenerated, entry.IsLocked, entry.LockReason, entry.Notes, entry.CreatedBy,
	}
}

func (r *payrollEntryRepository) Create(ctx context.Context, entry payroll.PayrollEntry) (payroll.PayrollEntry, error) {
	q := GetQuerier(ctx, r.db)

	var id string
	err := q.QueryRow(ctx, insertPayrollEntry+` RETURNING id`, insertArgs(entry)...).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, runEmployeeIndex) {
			return payroll.PayrollEntry{}, payroll.ErrDuplicateEntry
		}
		return payroll.PayrollEntry{}, fmt.Errorf("failed to create payroll entry: %w", err)
	}

	return r.GetByID(ctx, id, entry.CompanyID)
}

func (r *payrollEntryRepository) CreateIfAbsent(ctx context.Context, entry payroll.PayrollEntry) (payroll.PayrollEntry, bool, error) {
	q := GetQuerier(ctx, r.db)

	query := insertPayrollEntry + `
		ON CONFLICT (payroll_run_id, employee_id) WHERE NOT is_deleted DO NOTHING
		RETURNING id
	`

	var id string
	err := q.QueryRow(ctx, query, insertArgs(entry)...).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollEntry{}, false, nil
		}
		return payroll.PayrollEntry{}, false, fmt.Errorf("failed to create payroll entry: %w", err)
	}

	created, err := r.GetByID(ctx, id, entry.CompanyID)
	if err != nil {
		return payroll.PayrollEntry{}, false, err
	}
	return created, true, nil
}

func (r *payrollEntryRepository) GetByID(ctx context.Context, id string, companyID string) (payroll.PayrollEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollEntryColumns + payrollEntryFrom + `
		WHERE pe.id = $1 AND pe.company_id = $2 AND NOT pe.is_deleted
	`

	e, err := scanPayrollEntry(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollEntry{}, payroll.ErrPayrollEntryNotFound
		}
		return payroll.PayrollEntry{}, fmt.Errorf("failed to get payroll entry: %w", err)
	}
	return e, nil
}

func (r *payrollEntryRepository) GetByRunAndEmployee(ctx context.Context, companyID string, runID string, employeeID string) (payroll.PayrollEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollEntryColumns + payrollEntryFrom + `
		WHERE pe.company_id = $1 AND pe.payroll_run_id = $2 AND pe.employee_id = $3 AND NOT pe.is_deleted
	`

	e, err := scanPayrollEntry(q.QueryRow(ctx, query, companyID, runID, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollEntry{}, payroll.ErrPayrollEntryNotFound
		}
		return payroll.PayrollEntry{}, fmt.Errorf("failed to get payroll entry by run and employee: %w", err)
	}
	return e, nil
}

func (r *payrollEntryRepository) ExistsForEmployeePeriod(ctx context.Context, companyID string, employeeID string, payPeriodID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM payroll_entries
			WHERE company_id = $1 AND employee_id = $2 AND pay_period_id = $3
				AND NOT is_deleted AND status <> 'cancelled'
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, companyID, employeeID, payPeriodID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check payroll entry existence: %w", err)
	}
	return exists, nil
}

func (r *payrollEntryRepository) List(ctx context.Context, companyID string, filter payroll.EntryFilter) ([]payroll.PayrollEntry, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := payrollEntryFrom + `
		WHERE pe.company_id = $1 AND NOT pe.is_deleted
	`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.PayrollRunID != nil {
		baseQuery += fmt.Sprintf(" AND pe.payroll_run_id = $%d", argIdx)
		args = append(args, *filter.PayrollRunID)
		argIdx++
	}
	if filter.PayPeriodID != nil {
		baseQuery += fmt.Sprintf(" AND pe.pay_period_id = $%d", argIdx)
		args = append(args, *filter.PayPeriodID)
		argIdx++
	}
	if filter.EmployeeID != nil {
		baseQuery += fmt.Sprintf(" AND pe.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND pe.status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.SourceType != nil {
		baseQuery += fmt.Sprintf(" AND pe.source_type = $%d", argIdx)
		args = append(args, *filter.SourceType)
		argIdx++
	}

	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll entries: %w", err)
	}

	sortColumn := "pe.created_at"
	if filter.SortBy != "" {
		allowedColumns := map[string]string{
			"created_at":    "pe.created_at",
			"entry_number":  "pe.entry_number",
			"employee_name": "e.full_name",
			"gross_pay":     "pe.gross_pay",
			"net_pay":       "pe.net_pay",
		}
		if col, ok := allowedColumns[filter.SortBy]; ok {
			sortColumn = col
		}
	}
	sortOrder := "DESC"
	if filter.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		payrollEntryColumns, baseQuery, sortColumn, sortOrder, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	entries, err := r.query(ctx, q, selectQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	return entries, totalCount, nil
}

func (r *payrollEntryRepository) ListByRun(ctx context.Context, companyID string, runID string) ([]payroll.PayrollEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollEntryColumns + payrollEntryFrom + `
		WHERE pe.company_id = $1 AND pe.payroll_run_id = $2 AND NOT pe.is_deleted
		ORDER BY pe.entry_number
	`
	return r.query(ctx, q, query, companyID, runID)
}

func (r *payrollEntryRepository) query(ctx context.Context, q database.Querier, query string, args ...interface{}) ([]payroll.PayrollEntry, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll entries: %w", err)
	}
	defer rows.Close()

	var entries []payroll.PayrollEntry
	for rows.Next() {
		e, err := scanPayrollEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll entries: %w", err)
	}
	return entries, nil
}

func (r *payrollEntryRepository) Update(ctx context.Context, entry payroll.PayrollEntry) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_entries SET
			regular_hours = $3, overtime_hours = $4, double_overtime_hours = $5, pto_hours = $6,
			sick_hours = $7, holiday_hours = $8, total_hours = $9,
			hourly_rate = $10, salary_amount = $11, overtime_multiplier = $12,
			double_overtime_multiplier = $13, holiday_multiplier = $14,
			regular_pay = $15, overtime_pay = $16, double_overtime_pay = $17, pto_pay = $18,
			sick_pay = $19, holiday_pay = $20, bonuses = $21, gross_pay = $22,
			deduction_override = $23, total_deductions = $24, net_pay = $25,
			status = $26, is_auto_generated = $27, is_locked = $28, lock_reason = $29, notes = $30,
			approved_at = $31, approved_by = $32, processed_at = $33, paid_at = $34,
			updated_by = $35, updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND NOT is_deleted
	`

	tag, err := q.Exec(ctx, query,
		entry.ID, entry.CompanyID,
		entry.RegularHours, entry.OvertimeHours, entry.DoubleOvertimeHours, entry.PTOHours,
		entry.SickHours, entry.HolidayHours, entry.TotalHours,
		entry.HourlyRate, entry.SalaryAmount, entry.OvertimeMultiplier,
		entry.DoubleOvertimeMultiplier, entry.HolidayMultiplier,
		entry.RegularPay, entry.OvertimePay, entry.DoubleOvertimePay, entry.PTOPay,
		entry.SickPay, entry.HolidayPay, entry.Bonuses, entry.GrossPay,
		entry.DeductionOverride, entry.TotalDeductions, entry.NetPay,
		entry.Status, entry.IsAutoGenerated, entry.IsLocked, entry.LockReason, entry.Notes,
		entry.ApprovedAt, entry.ApprovedBy, entry.ProcessedAt, entry.PaidAt,
		entry.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update payroll entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayrollEntryNotFound
	}
	return nil
}

func (r *payrollEntryRepository) SoftDelete(ctx context.Context, id string, companyID string, deletedBy string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_entries
		SET is_deleted = TRUE, deleted_by = $3, updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND NOT is_deleted
	`

	tag, err := q.Exec(ctx, query, id, companyID, deletedBy)
	if err != nil {
		return fmt.Errorf("failed to delete payroll entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayrollEntryNotFound
	}
	return nil
}

// CascadeRun skips deleted and cancelled entries. Unset timestamps and lock
// reason keep their current values.
func (r *payrollEntryRepository) CascadeRun(ctx context.Context, companyID string, runID string, cascade payroll.EntryCascade) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_entries SET
			status = $3,
			processed_at = COALESCE($4, processed_at),
			paid_at = COALESCE($5, paid_at),
			is_locked = is_locked OR $6,
			lock_reason = COALESCE($7, lock_reason),
			updated_at = NOW()
		WHERE company_id = $1 AND payroll_run_id = $2 AND NOT is_deleted AND status <> 'cancelled'
	`

	tag, err := q.Exec(ctx, query, companyID, runID,
		cascade.Status, cascade.ProcessedAt, cascade.PaidAt, cascade.Lock, cascade.LockReason,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cascade run to entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *payrollEntryRepository) Summarize(ctx context.Context, companyID string, filter payroll.DashboardFilter) (payroll.EntrySummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT pe.status, COUNT(*),
			COALESCE(SUM(pe.total_hours), 0), COALESCE(SUM(pe.gross_pay), 0),
			COALESCE(SUM(pe.total_deductions), 0), COALESCE(SUM(pe.net_pay), 0),
			COALESCE(SUM(pe.bonuses), 0),
			COUNT(*) FILTER (WHERE pe.is_locked),
			COUNT(*) FILTER (WHERE pe.is_auto_generated)
		FROM payroll_entries pe
		JOIN pay_periods pp ON pp.id = pe.pay_period_id
		WHERE pe.company_id = $1 AND NOT pe.is_deleted
	`
	args := []interface{}{companyID}
	query, args = appendDashboardFilter(query, args, "pe.pay_period_id", filter)
	query += " GROUP BY pe.status"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return payroll.EntrySummary{}, fmt.Errorf("failed to summarize payroll entries: %w", err)
	}
	defer rows.Close()

	summary := payroll.EntrySummary{StatusCounts: make(map[string]int)}
	for rows.Next() {
		var (
			status            string
			count             int
			row               payroll.EntrySummary
			lockedCount, auto int
		)
		if err := rows.Scan(
			&status, &count,
			&row.TotalHours, &row.TotalGross, &row.TotalDeductions, &row.TotalNet, &row.TotalBonuses,
			&lockedCount, &auto,
		); err != nil {
			return payroll.EntrySummary{}, fmt.Errorf("failed to scan payroll summary: %w", err)
		}

		summary.StatusCounts[status] = count
		summary.LockedCount += lockedCount
		summary.AutoCount += auto
		// Cancelled entries are counted but do not contribute money
		if status == string(payroll.EntryStatusCancelled) {
			continue
		}
		summary.TotalEntries += count
		summary.TotalHours = summary.TotalHours.Add(row.TotalHours)
		summary.TotalGross = summary.TotalGross.Add(row.TotalGross)
		summary.TotalDeductions = summary.TotalDeductions.Add(row.TotalDeductions)
		summary.TotalNet = summary.TotalNet.Add(row.TotalNet)
		summary.TotalBonuses = summary.TotalBonuses.Add(row.TotalBonuses)
	}
	if err := rows.Err(); err != nil {
		return payroll.EntrySummary{}, fmt.Errorf("failed to iterate payroll summary: %w", err)
	}

	return summary, nil
}
