package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/stretchr/testify/require"
)

// TestDatabaseSetup holds the connection shared by the integration tests
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies the embedded migrations.
// Tests are skipped when the variable is unset.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))

	setup := &TestDatabaseSetup{DB: db}
	require.NoError(t, setup.TruncateAllTables(context.Background()))
	t.Cleanup(setup.Close)
	return setup
}

// TruncateAllTables removes all rows the tests may have written
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := t.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"payroll_timesheet_entries",
		"payroll_audit_logs",
		"payroll_counters",
		"payroll_entries",
		"payroll_runs",
		"pay_periods",
		"attendances",
		"employees",
		"positions",
		"companies",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// Close closes the database connection
func (t *TestDatabaseSetup) Close() {
	t.DB.Close()
}

type fixture struct {
	CompanyID  string
	PositionID string
	EmployeeID string
}

// seedHourlyEmployee creates a company with one hourly employee at the given rate.
func (t *TestDatabaseSetup) seedHourlyEmployee(tb testing.TB, rate string) fixture {
	tb.Helper()
	ctx := context.Background()

	var f fixture
	require.NoError(tb, t.DB.QueryRow(ctx,
		`INSERT INTO companies (name, username) VALUES ('Acme', 'acme') RETURNING id`,
	).Scan(&f.CompanyID))
	require.NoError(tb, t.DB.QueryRow(ctx,
		`INSERT INTO positions (company_id, name, pay_type, pay_rate) VALUES ($1, 'Operator', 'hourly', $2::numeric) RETURNING id`,
		f.CompanyID, rate,
	).Scan(&f.PositionID))
	require.NoError(tb, t.DB.QueryRow(ctx,
		`INSERT INTO employees (company_id, position_id, employee_code, full_name) VALUES ($1, $2, 'EMP-001', 'Jane Doe') RETURNING id`,
		f.CompanyID, f.PositionID,
	).Scan(&f.EmployeeID))
	return f
}

func (t *TestDatabaseSetup) seedAttendance(tb testing.TB, f fixture, date string, workMinutes, overtimeMinutes int, status string) string {
	tb.Helper()

	var id string
	require.NoError(tb, t.DB.QueryRow(context.Background(), `
		INSERT INTO attendances (company_id, employee_id, date, work_hours_in_minutes, overtime_minutes, status)
		VALUES ($1, $2, $3::date, $4, $5, $6) RETURNING id`,
		f.CompanyID, f.EmployeeID, date, workMinutes, overtimeMinutes, status,
	).Scan(&id))
	return id
}
