package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const activeRunIndex = "uq_payroll_runs_active_period"

type payrollRunRepository struct {
	db *database.DB
}

func NewPayrollRunRepository(db *database.DB) payroll.PayrollRunRepository {
	return &payrollRunRepository{db: db}
}

const payrollRunColumns = `
	id, company_id, pay_period_id, run_number, run_type, status,
	total_employees, total_gross, total_deductions, total_net, total_hours, total_bonuses,
	approved_at, approved_by, processed_at, processed_by, paid_at, paid_by,
	notes, created_by, is_deleted, created_at, updated_at
`

func scanPayrollRun(row pgx.Row) (payroll.PayrollRun, error) {
	var r payroll.PayrollRun
	err := row.Scan(
		&r.ID, &r.CompanyID, &r.PayPeriodID, &r.RunNumber, &r.RunType, &r.Status,
		&r.TotalEmployees, &r.TotalGross, &r.TotalDeductions, &r.TotalNet, &r.TotalHours, &r.TotalBonuses,
		&r.ApprovedAt, &r.ApprovedBy, &r.ProcessedAt, &r.ProcessedBy, &r.PaidAt, &r.PaidBy,
		&r.Notes, &r.CreatedBy, &r.IsDeleted, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

const insertPayrollRun = `
	INSERT INTO payroll_runs (
		company_id, pay_period_id, run_number, run_type, status, notes, created_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func (r *payrollRunRepository) Create(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	created, err := scanPayrollRun(q.QueryRow(ctx, insertPayrollRun+" RETURNING "+payrollRunColumns,
		run.CompanyID, run.PayPeriodID, run.RunNumber, run.RunType, run.Status, run.Notes, run.CreatedBy,
	))
	if err != nil {
		if isUniqueViolation(err, activeRunIndex) {
			return payroll.PayrollRun{}, payroll.ErrDuplicateRun
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to create payroll run: %w", err)
	}
	return created, nil
}

func (r *payrollRunRepository) CreateIfAbsent(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, bool, error) {
	q := GetQuerier(ctx, r.db)

	query := insertPayrollRun + `
		ON CONFLICT (pay_period_id) WHERE status <> 'cancelled' AND NOT is_deleted DO NOTHING
		RETURNING ` + payrollRunColumns

	created, err := scanPayrollRun(q.QueryRow(ctx, query,
		run.CompanyID, run.PayPeriodID, run.RunNumber, run.RunType, run.Status, run.Notes, run.CreatedBy,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRun{}, false, nil
		}
		return payroll.PayrollRun{}, false, fmt.Errorf("failed to create payroll run: %w", err)
	}
	return created, true, nil
}

func (r *payrollRunRepository) GetByID(ctx context.Context, id string, companyID string) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRunColumns + `
		FROM payroll_runs
		WHERE id = $1 AND company_id = $2 AND NOT is_deleted
	`

	run, err := scanPayrollRun(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRun{}, payroll.ErrPayrollRunNotFound
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to get payroll run: %w", err)
	}
	return run, nil
}

func (r *payrollRunRepository) GetActiveByPeriod(ctx context.Context, companyID string, payPeriodID string) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRunColumns + `
		FROM payroll_runs
		WHERE company_id = $1 AND pay_period_id = $2 AND status <> 'cancelled' AND NOT is_deleted
	`

	run, err := scanPayrollRun(q.QueryRow(ctx, query, companyID, payPeriodID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRun{}, payroll.ErrPayrollRunNotFound
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to get payroll run by period: %w", err)
	}
	return run, nil
}

func (r *payrollRunRepository) List(ctx context.Context, companyID string, filter payroll.RunFilter) ([]payroll.PayrollRun, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := `
		FROM payroll_runs
		WHERE company_id = $1 AND NOT is_deleted
	`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.PayPeriodID != nil {
		baseQuery += fmt.Sprintf(" AND pay_period_id = $%d", argIdx)
		args = append(args, *filter.PayPeriodID)
		argIdx++
	}
	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll runs: %w", err)
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		payrollRunColumns, baseQuery, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	defer rows.Close()

	var runs []payroll.PayrollRun
	for rows.Next() {
		run, err := scanPayrollRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payroll runs: %w", err)
	}

	return runs, totalCount, nil
}

func (r *payrollRunRepository) Update(ctx context.Context, run payroll.PayrollRun) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs SET
			status = $3, total_employees = $4, total_gross = $5, total_deductions = $6,
			total_net = $7, total_hours = $8, total_bonuses = $9,
			approved_at = $10, approved_by = $11, processed_at = $12, processed_by = $13,
			paid_at = $14, paid_by = $15, notes = $16, updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND NOT is_deleted
	`

	tag, err := q.Exec(ctx, query,
		run.ID, run.CompanyID,
		run.Status, run.TotalEmployees, run.TotalGross, run.TotalDeductions,
		run.TotalNet, run.TotalHours, run.TotalBonuses,
		run.ApprovedAt, run.ApprovedBy, run.ProcessedAt, run.ProcessedBy,
		run.PaidAt, run.PaidBy, run.Notes,
	)
	if err != nil {
		if isUniqueViolation(err, activeRunIndex) {
			return payroll.ErrDuplicateRun
		}
		return fmt.Errorf("failed to update payroll run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayrollRunNotFound
	}
	return nil
}

func (r *payrollRunRepository) CountByStatus(ctx context.Context, companyID string, filter payroll.DashboardFilter) (map[string]int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT pr.status, COUNT(*)
		FROM payroll_runs pr
		JOIN pay_periods pp ON pp.id = pr.pay_period_id
		WHERE pr.company_id = $1 AND NOT pr.is_deleted
	`
	args := []interface{}{companyID}
	query, args = appendDashboardFilter(query, args, "pr.pay_period_id", filter)
	query += " GROUP BY pr.status"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count payroll runs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan run status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// appendDashboardFilter adds period conditions; the query must alias pay_periods as pp.
func appendDashboardFilter(query string, args []interface{}, periodColumn string, filter payroll.DashboardFilter) (string, []interface{}) {
	argIdx := len(args) + 1
	if filter.PayPeriodID != nil {
		query += fmt.Sprintf(" AND %s = $%d", periodColumn, argIdx)
		args = append(args, *filter.PayPeriodID)
		argIdx++
	}
	if filter.Frequency != nil {
		query += fmt.Sprintf(" AND pp.frequency = $%d", argIdx)
		args = append(args, *filter.Frequency)
		argIdx++
	}
	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND pp.end_date >= $%d::date", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND pp.start_date <= $%d::date", argIdx)
		args = append(args, *filter.EndDate)
	}
	return query, args
}
