package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCompanyID = "company-1"
	testUserID    = "user-1"
	empJane       = "emp-jane"
	empOmar       = "emp-omar"
)

var fixedNow = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

type harness struct {
	store *memStore
	svc   *PayrollServiceImpl
	actor payroll.Actor
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithConfig(t, DefaultConfig())
}

func newHarnessWithConfig(t *testing.T, cfg Config) *harness {
	t.Helper()
	store := newMemStore()
	svc := NewPayrollService(fakeTx{}, store.repositories(), attendanceSource{store}, employeeDirectory{store}, cfg)
	svc.now = func() time.Time { return fixedNow }
	return &harness{
		store: store,
		svc:   svc,
		actor: payroll.Actor{CompanyID: testCompanyID, UserID: testUserID},
	}
}

// march returns a date in March 2024. The 4th is a Monday.
func march(day int) time.Time {
	return time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

// seedWeek adds one approved record per weekday of the week starting March 4th
// and returns their IDs in date order.
func (h *harness) seedWeek(employeeID string, workMinutes, overtimeMinutes int) []string {
	ids := make([]string, 0, 5)
	for day := 4; day <= 8; day++ {
		ids = append(ids, h.store.addAttendance(employeeID, march(day), workMinutes, overtimeMinutes, payroll.AttendanceStatusApproved))
	}
	return ids
}

// weeklyPeriod resolves the week of March 4th through the service.
func (h *harness) weeklyPeriod(t *testing.T) string {
	t.Helper()
	p, err := h.svc.ResolvePeriod(context.Background(), h.actor, payroll.ResolvePeriodRequest{
		Frequency: string(payroll.FrequencyWeekly),
		Date:      "2024-03-06",
	})
	require.NoError(t, err)
	return p.ID
}

// syncJane seeds a 45 hour week (5 of them overtime) at 25/h and syncs it.
func (h *harness) syncJane(t *testing.T) payroll.SyncResult {
	t.Helper()
	h.store.addHourlyEmployee(empJane, "Jane Doe", "25")
	ids := h.seedWeek(empJane, 540, 60)

	res, err := h.svc.SyncFromApproval(context.Background(), testCompanyID, ids[len(ids)-1])
	require.NoError(t, err)
	require.True(t, res.Synced, res.Reason)
	return res
}

func TestResolvePeriod(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	monthly, err := h.svc.ResolvePeriod(ctx, h.actor, payroll.ResolvePeriodRequest{Frequency: "monthly", Date: "2024-02-14"})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", monthly.StartDate)
	assert.Equal(t, "2024-02-29", monthly.EndDate)
	assert.Equal(t, "2024-03-05", monthly.PayDate)
	assert.Equal(t, 2, monthly.PeriodNumber)
	assert.Equal(t, string(payroll.PeriodStatusDraft), monthly.Status)
	assert.Equal(t, payroll.WorkflowAutoGenerate, monthly.ApprovalWorkflow)

	again, err := h.svc.ResolvePeriod(ctx, h.actor, payroll.ResolvePeriodRequest{Frequency: "monthly", Date: "2024-02-01"})
	require.NoError(t, err)
	assert.Equal(t, monthly.ID, again.ID)

	weekly, err := h.svc.ResolvePeriod(ctx, h.actor, payroll.ResolvePeriodRequest{Frequency: "weekly", Date: "2024-03-06"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", weekly.StartDate)
	assert.Equal(t, "2024-03-10", weekly.EndDate)
	assert.Equal(t, 10, weekly.PeriodNumber)

	_, err = h.svc.ResolvePeriod(ctx, h.actor, payroll.ResolvePeriodRequest{Frequency: "daily", Date: "2024-03-06"})
	assert.Error(t, err)
	_, err = h.svc.ResolvePeriod(ctx, h.actor, payroll.ResolvePeriodRequest{Frequency: "weekly", Date: "06/03/2024"})
	assert.Error(t, err)

	list, err := h.svc.ListPeriods(ctx, h.actor, payroll.PeriodFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.TotalCount)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 20, list.Limit)
}

func TestPeriodCreationIsAudited(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res := h.syncJane(t)
	refType := string(payroll.ReferencePayPeriod)

	logs, err := h.svc.ListAuditLogs(ctx, h.actor, payroll.AuditLogFilter{ReferenceType: &refType})
	require.NoError(t, err)
	require.Len(t, logs.Data, 1)
	assert.Equal(t, *res.PayPeriodID, logs.Data[0].ReferenceID)
	assert.Equal(t, payroll.ActionCreate, logs.Data[0].Action)
	assert.True(t, logs.Data[0].IsSystemAction)
	assert.NotNil(t, logs.Data[0].NewValues)

	// Resolving an existing period writes nothing
	h.weeklyPeriod(t)
	monthly, err := h.svc.ResolvePeriod(ctx, h.actor, payroll.ResolvePeriodRequest{Frequency: "monthly", Date: "2024-03-06"})
	require.NoError(t, err)

	logs, err = h.svc.ListAuditLogs(ctx, h.actor, payroll.AuditLogFilter{ReferenceType: &refType})
	require.NoError(t, err)
	require.Len(t, logs.Data, 2)
	last := h.store.lastAudit()
	assert.Equal(t, monthly.ID, last.ReferenceID)
	assert.Equal(t, testUserID, last.PerformedBy)
	assert.False(t, last.IsSystemAction)
}

func TestGetPeriod_NotFound(t *testing.T) {
	h := newHarness(t)

	p, err := h.svc.GetPeriod(context.Background(), h.actor, "missing")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestGetOrCreateWeeklyPeriod_SameWeekSamePeriod(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	mon, err := h.svc.GetOrCreateWeeklyPeriod(ctx, testCompanyID, march(4))
	require.NoError(t, err)
	sun, err := h.svc.GetOrCreateWeeklyPeriod(ctx, testCompanyID, march(10))
	require.NoError(t, err)
	next, err := h.svc.GetOrCreateWeeklyPeriod(ctx, testCompanyID, march(11))
	require.NoError(t, err)

	assert.Equal(t, mon.ID, sun.ID)
	assert.NotEqual(t, mon.ID, next.ID)
	assert.Equal(t, march(11), next.StartDate)
}

func TestGetDashboard(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res := h.syncJane(t)

	h.store.addHourlyEmployee(empOmar, "Omar Said", "20")
	_, err := h.svc.CreateEntry(ctx, h.actor, payroll.CreateEntryRequest{
		EmployeeID:    empOmar,
		PayPeriodID:   *res.PayPeriodID,
		RegularHours:  dec("10"),
		OvertimeHours: dec("2"),
	})
	require.NoError(t, err)

	dash, err := h.svc.GetDashboard(ctx, h.actor, payroll.DashboardFilter{PayPeriodID: res.PayPeriodID})
	require.NoError(t, err)

	assert.Equal(t, 2, dash.TotalEntries)
	assertDecimal(t, "1447.5", dash.TotalGross)
	assertDecimal(t, "1447.5", dash.TotalNet)
	assertDecimal(t, "57", dash.TotalHours)
	assert.Equal(t, 1, dash.AutoEntries)
	assert.Equal(t, 0, dash.LockedEntries)
	assert.Equal(t, 2, dash.EntryStatusCounts[string(payroll.EntryStatusDraft)])
	assert.Equal(t, 1, dash.RunStatusCounts[string(payroll.RunStatusDraft)])

	bad := "yesterday"
	_, err = h.svc.GetDashboard(ctx, h.actor, payroll.DashboardFilter{StartDate: &bad})
	assert.Error(t, err)
}

func TestListAuditLogs(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res := h.syncJane(t)

	refType := string(payroll.ReferencePayrollEntry)
	logs, err := h.svc.ListAuditLogs(ctx, h.actor, payroll.AuditLogFilter{
		ReferenceType: &refType,
		ReferenceID:   res.EntryID,
	})
	require.NoError(t, err)
	require.Len(t, logs.Data, 1)

	l := logs.Data[0]
	assert.Equal(t, payroll.ActionSync, l.Action)
	assert.Equal(t, payroll.SystemUser, l.PerformedBy)
	assert.True(t, l.IsSystemAction)
	assert.Nil(t, l.OldValues)
	assert.NotNil(t, l.NewValues)
}

func TestGetPayslip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res := h.syncJane(t)

	slip, err := h.svc.GetPayslip(ctx, h.actor, *res.EntryID)
	require.NoError(t, err)
	require.NotNil(t, slip)
	assert.Equal(t, "payslip-PE-2024-000001.pdf", slip.Filename)
	assert.Equal(t, "%PDF", string(slip.Content[:4]))

	missing, err := h.svc.GetPayslip(ctx, h.actor, "missing")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
