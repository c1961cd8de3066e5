package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type payPeriodRepository struct {
	db *database.DB
}

func NewPayPeriodRepository(db *database.DB) payroll.PayPeriodRepository {
	return &payPeriodRepository{db: db}
}

const payPeriodColumns = `
	id, company_id, frequency, start_date, end_date, pay_date, period_number, year,
	status, approval_workflow, is_deleted, created_at, updated_at
`

func scanPayPeriod(row pgx.Row) (payroll.PayPeriod, error) {
	var p payroll.PayPeriod
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.Frequency, &p.StartDate, &p.EndDate, &p.PayDate, &p.PeriodNumber, &p.Year,
		&p.Status, &p.ApprovalWorkflow, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (r *payPeriodRepository) GetByID(ctx context.Context, id string, companyID string) (payroll.PayPeriod, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payPeriodColumns + `
		FROM pay_periods
		WHERE id = $1 AND company_id = $2 AND NOT is_deleted
	`

	p, err := scanPayPeriod(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayPeriod{}, payroll.ErrPayPeriodNotFound
		}
		return payroll.PayPeriod{}, fmt.Errorf("failed to get pay period: %w", err)
	}
	return p, nil
}

func (r *payPeriodRepository) GetByBounds(ctx context.Context, companyID string, frequency payroll.Frequency, start, end time.Time) (payroll.PayPeriod, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payPeriodColumns + `
		FROM pay_periods
		WHERE company_id = $1 AND frequency = $2 AND start_date = $3 AND end_date = $4 AND NOT is_deleted
	`

	p, err := scanPayPeriod(q.QueryRow(ctx, query, companyID, frequency, start, end))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayPeriod{}, payroll.ErrPayPeriodNotFound
		}
		return payroll.PayPeriod{}, fmt.Errorf("failed to get pay period by bounds: %w", err)
	}
	return p, nil
}

func (r *payPeriodRepository) CreateIfAbsent(ctx context.Context, period payroll.PayPeriod) (payroll.PayPeriod, bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO pay_periods (
			company_id, frequency, start_date, end_date, pay_date, period_number, year,
			status, approval_workflow
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (company_id, frequency, start_date, end_date) WHERE NOT is_deleted DO NOTHING
		RETURNING ` + payPeriodColumns

	p, err := scanPayPeriod(q.QueryRow(ctx, query,
		period.CompanyID, period.Frequency, period.StartDate, period.EndDate, period.PayDate,
		period.PeriodNumber, period.Year, period.Status, period.ApprovalWorkflow,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayPeriod{}, false, nil
		}
		return payroll.PayPeriod{}, false, fmt.Errorf("failed to create pay period: %w", err)
	}
	return p, true, nil
}

func (r *payPeriodRepository) List(ctx context.Context, companyID string, filter payroll.PeriodFilter) ([]payroll.PayPeriod, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := `
		FROM pay_periods
		WHERE company_id = $1 AND NOT is_deleted
	`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.Frequency != nil {
		baseQuery += fmt.Sprintf(" AND frequency = $%d", argIdx)
		args = append(args, *filter.Frequency)
		argIdx++
	}
	if filter.Year != nil {
		baseQuery += fmt.Sprintf(" AND year = $%d", argIdx)
		args = append(args, *filter.Year)
		argIdx++
	}
	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count pay periods: %w", err)
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY start_date DESC, frequency LIMIT $%d OFFSET $%d`,
		payPeriodColumns, baseQuery, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pay periods: %w", err)
	}
	defer rows.Close()

	var periods []payroll.PayPeriod
	for rows.Next() {
		p, err := scanPayPeriod(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan pay period: %w", err)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate pay periods: %w", err)
	}

	return periods, totalCount, nil
}
