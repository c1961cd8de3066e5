package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeDirectory struct {
	db *database.DB
}

func NewEmployeeDirectory(db *database.DB) payroll.EmployeeDirectory {
	return &employeeDirectory{db: db}
}

// GetPayProfile implements payroll.EmployeeDirectory. A deleted position counts as no position.
func (e *employeeDirectory) GetPayProfile(ctx context.Context, companyID string, employeeID string) (payroll.PayProfile, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		SELECT e.id, e.company_id, e.pay_type_override, e.hourly_rate_override,
			p.pay_type, p.pay_rate
		FROM employees e
		LEFT JOIN positions p ON p.id = e.position_id AND p.deleted_at IS NULL
		WHERE e.id = $1 AND e.company_id = $2 AND e.deleted_at IS NULL
	`

	var profile payroll.PayProfile
	err := q.QueryRow(ctx, query, employeeID, companyID).Scan(
		&profile.EmployeeID, &profile.CompanyID, &profile.PayTypeOverride, &profile.HourlyRateOverride,
		&profile.PositionPayType, &profile.PositionPayRate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayProfile{}, payroll.ErrEmployeeNotFound
		}
		return payroll.PayProfile{}, fmt.Errorf("failed to get pay profile for employee %s: %w", employeeID, err)
	}

	return profile, nil
}
