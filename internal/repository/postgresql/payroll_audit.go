package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
)

type auditLogRepository struct {
	db *database.DB
}

func NewAuditLogRepository(db *database.DB) payroll.AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, log payroll.PayrollAuditLog) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_audit_logs (
			company_id, reference_type, reference_id, action, description,
			old_values, new_values, performed_by, is_system_action
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if _, err := q.Exec(ctx, query,
		log.CompanyID, log.ReferenceType, log.ReferenceID, log.Action, log.Description,
		jsonOrNil(log.OldValues), jsonOrNil(log.NewValues), log.PerformedBy, log.IsSystemAction,
	); err != nil {
		return fmt.Errorf("failed to create payroll audit log: %w", err)
	}
	return nil
}

func (r *auditLogRepository) List(ctx context.Context, companyID string, filter payroll.AuditLogFilter) ([]payroll.PayrollAuditLog, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := `
		FROM payroll_audit_logs
		WHERE company_id = $1
	`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.ReferenceType != nil {
		baseQuery += fmt.Sprintf(" AND reference_type = $%d", argIdx)
		args = append(args, *filter.ReferenceType)
		argIdx++
	}
	if filter.ReferenceID != nil {
		baseQuery += fmt.Sprintf(" AND reference_id = $%d", argIdx)
		args = append(args, *filter.ReferenceID)
		argIdx++
	}
	if filter.Action != nil {
		baseQuery += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, *filter.Action)
		argIdx++
	}

	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll audit logs: %w", err)
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf(`
		SELECT id, company_id, reference_type, reference_id, action, description,
			old_values, new_values, performed_by, is_system_action, created_at
		%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, baseQuery, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll audit logs: %w", err)
	}
	defer rows.Close()

	var logs []payroll.PayrollAuditLog
	for rows.Next() {
		var l payroll.PayrollAuditLog
		if err := rows.Scan(
			&l.ID, &l.CompanyID, &l.ReferenceType, &l.ReferenceID, &l.Action, &l.Description,
			&l.OldValues, &l.NewValues, &l.PerformedBy, &l.IsSystemAction, &l.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll audit log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payroll audit logs: %w", err)
	}

	return logs, totalCount, nil
}

// jsonOrNil keeps empty snapshots as SQL NULL.
func jsonOrNil(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
