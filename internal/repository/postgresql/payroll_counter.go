package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
)

type counterRepository struct {
	db *database.DB
}

func NewCounterRepository(db *database.DB) payroll.CounterRepository {
	return &counterRepository{db: db}
}

func (r *counterRepository) Next(ctx context.Context, companyID string, counterType string, year int) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_counters (company_id, counter_type, year, last_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (company_id, counter_type, year)
		DO UPDATE SET last_value = payroll_counters.last_value + 1, updated_at = NOW()
		RETURNING last_value
	`

	var value int64
	if err := q.QueryRow(ctx, query, companyID, counterType, year).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to allocate %s number: %w", counterType, err)
	}
	return value, nil
}
