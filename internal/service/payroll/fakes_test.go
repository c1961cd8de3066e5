package payroll

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fakeTx runs fn directly. Rollback is not simulated.
type fakeTx struct{}

func (fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memStore backs every fake repository. It mirrors the uniqueness and
// visibility rules of the SQL schema that the service relies on.
type memStore struct {
	mu         sync.Mutex
	periods    map[string]payroll.PayPeriod
	runs       map[string]payroll.PayrollRun
	entries    map[string]payroll.PayrollEntry
	links      map[string][]payroll.PayrollTimesheetEntry
	audits     []payroll.PayrollAuditLog
	counters   map[string]int64
	attendance map[string]payroll.AttendanceRecord
	profiles   map[string]payroll.PayProfile
	names      map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		periods:    make(map[string]payroll.PayPeriod),
		runs:       make(map[string]payroll.PayrollRun),
		entries:    make(map[string]payroll.PayrollEntry),
		links:      make(map[string][]payroll.PayrollTimesheetEntry),
		counters:   make(map[string]int64),
		attendance: make(map[string]payroll.AttendanceRecord),
		profiles:   make(map[string]payroll.PayProfile),
		names:      make(map[string]string),
	}
}

func (m *memStore) repositories() Repositories {
	return Repositories{
		Periods:    periodRepo{m},
		Runs:       runRepo{m},
		Entries:    entryRepo{m},
		Timesheets: linkRepo{m},
		AuditLogs:  auditRepo{m},
		Counters:   counterRepo{m},
	}
}

// ---- seeding and inspection helpers ----

func (m *memStore) addHourlyEmployee(id, name string, rate string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payType := payroll.PayTypeHourly
	profile := payroll.PayProfile{EmployeeID: id, CompanyID: testCompanyID, PositionPayType: &payType}
	if rate != "" {
		r := decimal.RequireFromString(rate)
		profile.PositionPayRate = &r
	}
	m.profiles[id] = profile
	m.names[id] = name
}

func (m *memStore) addSalariedEmployee(id, name string, amount string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payType := payroll.PayTypeSalaried
	a := decimal.RequireFromString(amount)
	m.profiles[id] = payroll.PayProfile{
		EmployeeID: id, CompanyID: testCompanyID, PositionPayType: &payType, PositionPayRate: &a,
	}
	m.names[id] = name
}

func (m *memStore) addProfile(p payroll.PayProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.EmployeeID] = p
}

func (m *memStore) addAttendance(employeeID string, date time.Time, workMinutes, overtimeMinutes int, status string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.attendance[id] = payroll.AttendanceRecord{
		ID:              id,
		CompanyID:       testCompanyID,
		EmployeeID:      employeeID,
		Date:            date,
		WorkMinutes:     workMinutes,
		OvertimeMinutes: overtimeMinutes,
		Status:          status,
	}
	return id
}

func (m *memStore) setAttendanceStatus(id, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.attendance[id]
	rec.Status = status
	m.attendance[id] = rec
}

func (m *memStore) entry(t *testing.T, id string) payroll.PayrollEntry {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	require.True(t, ok, "entry %s not stored", id)
	return e
}

func (m *memStore) run(t *testing.T, id string) payroll.PayrollRun {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	require.True(t, ok, "run %s not stored", id)
	return r
}

func (m *memStore) period(t *testing.T, id string) payroll.PayPeriod {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[id]
	require.True(t, ok, "period %s not stored", id)
	return p
}

func (m *memStore) liveEntryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if !e.IsDeleted {
			n++
		}
	}
	return n
}

func (m *memStore) auditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.audits)
}

func (m *memStore) lastAudit() payroll.PayrollAuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audits[len(m.audits)-1]
}

func (m *memStore) linksFor(entryID string) []payroll.PayrollTimesheetEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]payroll.PayrollTimesheetEntry(nil), m.links[entryID]...)
}

// activeRun must be called with mu held.
func (m *memStore) activeRun(companyID, periodID, exceptID string) (payroll.PayrollRun, bool) {
	for _, r := range m.runs {
		if r.ID == exceptID || r.CompanyID != companyID || r.PayPeriodID != periodID {
			continue
		}
		if r.IsDeleted || r.Status == payroll.RunStatusCancelled {
			continue
		}
		return r, true
	}
	return payroll.PayrollRun{}, false
}

// withJoins must be called with mu held.
func (m *memStore) withJoins(e payroll.PayrollEntry) payroll.PayrollEntry {
	if name, ok := m.names[e.EmployeeID]; ok {
		e.EmployeeName = &name
	}
	return e
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	start := (page - 1) * limit
	if start < 0 || start >= len(items) {
		return nil
	}
	end := min(start+limit, len(items))
	return items[start:end]
}

// ---- pay periods ----

type periodRepo struct{ *memStore }

func (r periodRepo) GetByID(ctx context.Context, id string, companyID string) (payroll.PayPeriod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.periods[id]
	if !ok || p.CompanyID != companyID || p.IsDeleted {
		return payroll.PayPeriod{}, payroll.ErrPayPeriodNotFound
	}
	return p, nil
}

func (r periodRepo) GetByBounds(ctx context.Context, companyID string, frequency payroll.Frequency, start, end time.Time) (payroll.PayPeriod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.periods {
		if p.CompanyID == companyID && p.Frequency == frequency && !p.IsDeleted &&
			p.StartDate.Equal(start) && p.EndDate.Equal(end) {
			return p, nil
		}
	}
	return payroll.PayPeriod{}, payroll.ErrPayPeriodNotFound
}

func (r periodRepo) CreateIfAbsent(ctx context.Context, period payroll.PayPeriod) (payroll.PayPeriod, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.periods {
		if p.CompanyID == period.CompanyID && p.Frequency == period.Frequency && !p.IsDeleted &&
			p.StartDate.Equal(period.StartDate) && p.EndDate.Equal(period.EndDate) {
			return payroll.PayPeriod{}, false, nil
		}
	}
	period.ID = uuid.NewString()
	period.CreatedAt = time.Now()
	period.UpdatedAt = period.CreatedAt
	r.periods[period.ID] = period
	return period, true, nil
}

func (r periodRepo) List(ctx context.Context, companyID string, filter payroll.PeriodFilter) ([]payroll.PayPeriod, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []payroll.PayPeriod
	for _, p := range r.periods {
		if p.CompanyID != companyID || p.IsDeleted {
			continue
		}
		if filter.Frequency != nil && string(p.Frequency) != *filter.Frequency {
			continue
		}
		if filter.Year != nil && p.Year != *filter.Year {
			continue
		}
		if filter.Status != nil && string(p.Status) != *filter.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

// ---- payroll runs ----

type runRepo struct{ *memStore }

func (r runRepo) Create(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.activeRun(run.CompanyID, run.PayPeriodID, ""); ok {
		return payroll.PayrollRun{}, payroll.ErrDuplicateRun
	}
	run.ID = uuid.NewString()
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	r.runs[run.ID] = run
	return run, nil
}

func (r runRepo) CreateIfAbsent(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.activeRun(run.CompanyID, run.PayPeriodID, ""); ok {
		return payroll.PayrollRun{}, false, nil
	}
	run.ID = uuid.NewString()
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	r.runs[run.ID] = run
	return run, true, nil
}

func (r runRepo) GetByID(ctx context.Context, id string, companyID string) (payroll.PayrollRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok || run.CompanyID != companyID || run.IsDeleted {
		return payroll.PayrollRun{}, payroll.ErrPayrollRunNotFound
	}
	return run, nil
}

func (r runRepo) GetActiveByPeriod(ctx context.Context, companyID string, payPeriodID string) (payroll.PayrollRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.activeRun(companyID, payPeriodID, "")
	if !ok {
		return payroll.PayrollRun{}, payroll.ErrPayrollRunNotFound
	}
	return run, nil
}

func (r runRepo) List(ctx context.Context, companyID string, filter payroll.RunFilter) ([]payroll.PayrollRun, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []payroll.PayrollRun
	for _, run := range r.runs {
		if run.CompanyID != companyID || run.IsDeleted {
			continue
		}
		if filter.PayPeriodID != nil && run.PayPeriodID != *filter.PayPeriodID {
			continue
		}
		if filter.Status != nil && string(run.Status) != *filter.Status {
			continue
		}
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunNumber < out[j].RunNumber })
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func (r runRepo) Update(ctx context.Context, run payroll.PayrollRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.runs[run.ID]
	if !ok || stored.CompanyID != run.CompanyID || stored.IsDeleted {
		return payroll.ErrPayrollRunNotFound
	}
	if run.Status != payroll.RunStatusCancelled {
		if _, dup := r.activeRun(run.CompanyID, run.PayPeriodID, run.ID); dup {
			return payroll.ErrDuplicateRun
		}
	}
	run.CreatedAt = stored.CreatedAt
	r.runs[run.ID] = run
	return nil
}

func (r runRepo) CountByStatus(ctx context.Context, companyID string, filter payroll.DashboardFilter) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, run := range r.runs {
		if run.CompanyID != companyID || run.IsDeleted {
			continue
		}
		if filter.PayPeriodID != nil && run.PayPeriodID != *filter.PayPeriodID {
			continue
		}
		counts[string(run.Status)]++
	}
	return counts, nil
}

// ---- payroll entries ----

type entryRepo struct{ *memStore }

func (r entryRepo) Create(ctx context.Context, entry payroll.PayrollEntry) (payroll.PayrollEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.liveEntry(entry.PayrollRunID, entry.EmployeeID) {
		return payroll.PayrollEntry{}, payroll.ErrDuplicateEntry
	}
	return r.insertEntry(entry), nil
}

func (r entryRepo) CreateIfAbsent(ctx context.Context, entry payroll.PayrollEntry) (payroll.PayrollEntry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.liveEntry(entry.PayrollRunID, entry.EmployeeID) {
		return payroll.PayrollEntry{}, false, nil
	}
	return r.insertEntry(entry), true, nil
}

// liveEntry must be called with mu held.
func (r entryRepo) liveEntry(runID, employeeID string) bool {
	for _, e := range r.entries {
		if !e.IsDeleted && e.PayrollRunID == runID && e.EmployeeID == employeeID {
			return true
		}
	}
	return false
}

// insertEntry must be called with mu held.
func (r entryRepo) insertEntry(entry payroll.PayrollEntry) payroll.PayrollEntry {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	entry = r.withJoins(entry)
	r.entries[entry.ID] = entry
	return entry
}

func (r entryRepo) GetByID(ctx context.Context, id string, companyID string) (payroll.PayrollEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.CompanyID != companyID || e.IsDeleted {
		return payroll.PayrollEntry{}, payroll.ErrPayrollEntryNotFound
	}
	return e, nil
}

func (r entryRepo) GetByRunAndEmployee(ctx context.Context, companyID string, runID string, employeeID string) (payroll.PayrollEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.CompanyID == companyID && e.PayrollRunID == runID && e.EmployeeID == employeeID && !e.IsDeleted {
			return e, nil
		}
	}
	return payroll.PayrollEntry{}, payroll.ErrPayrollEntryNotFound
}

func (r entryRepo) ExistsForEmployeePeriod(ctx context.Context, companyID string, employeeID string, payPeriodID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.CompanyID == companyID && e.EmployeeID == employeeID && e.PayPeriodID == payPeriodID &&
			!e.IsDeleted && e.Status != payroll.EntryStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (r entryRepo) List(ctx context.Context, companyID string, filter payroll.EntryFilter) ([]payroll.PayrollEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []payroll.PayrollEntry
	for _, e := range r.entries {
		if e.CompanyID != companyID || e.IsDeleted {
			continue
		}
		if filter.PayrollRunID != nil && e.PayrollRunID != *filter.PayrollRunID {
			continue
		}
		if filter.PayPeriodID != nil && e.PayPeriodID != *filter.PayPeriodID {
			continue
		}
		if filter.EmployeeID != nil && e.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Status != nil && string(e.Status) != *filter.Status {
			continue
		}
		if filter.SourceType != nil && string(e.SourceType) != *filter.SourceType {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryNumber < out[j].EntryNumber })
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func (r entryRepo) ListByRun(ctx context.Context, companyID string, runID string) ([]payroll.PayrollEntry, error) {
	entries, _, err := r.List(ctx, companyID, payroll.EntryFilter{PayrollRunID: &runID})
	return entries, err
}

func (r entryRepo) Update(ctx context.Context, entry payroll.PayrollEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.entries[entry.ID]
	if !ok || stored.CompanyID != entry.CompanyID || stored.IsDeleted {
		return payroll.ErrPayrollEntryNotFound
	}
	entry.CreatedAt = stored.CreatedAt
	r.entries[entry.ID] = r.withJoins(entry)
	return nil
}

func (r entryRepo) SoftDelete(ctx context.Context, id string, companyID string, deletedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.CompanyID != companyID || e.IsDeleted {
		return payroll.ErrPayrollEntryNotFound
	}
	e.IsDeleted = true
	e.UpdatedBy = &deletedBy
	r.entries[id] = e
	return nil
}

func (r entryRepo) CascadeRun(ctx context.Context, companyID string, runID string, cascade payroll.EntryCascade) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.entries {
		if e.CompanyID != companyID || e.PayrollRunID != runID || e.IsDeleted || e.Status == payroll.EntryStatusCancelled {
			continue
		}
		e.Status = cascade.Status
		if cascade.ProcessedAt != nil {
			e.ProcessedAt = cascade.ProcessedAt
		}
		if cascade.PaidAt != nil {
			e.PaidAt = cascade.PaidAt
		}
		e.IsLocked = e.IsLocked || cascade.Lock
		if cascade.LockReason != nil {
			e.LockReason = cascade.LockReason
		}
		r.entries[id] = e
		n++
	}
	return n, nil
}

func (r entryRepo) Summarize(ctx context.Context, companyID string, filter payroll.DashboardFilter) (payroll.EntrySummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := payroll.EntrySummary{StatusCounts: make(map[string]int)}
	for _, e := range r.entries {
		if e.CompanyID != companyID || e.IsDeleted {
			continue
		}
		if filter.PayPeriodID != nil && e.PayPeriodID != *filter.PayPeriodID {
			continue
		}
		summary.StatusCounts[string(e.Status)]++
		if e.IsLocked {
			summary.LockedCount++
		}
		if e.IsAutoGenerated {
			summary.AutoCount++
		}
		if e.Status == payroll.EntryStatusCancelled {
			continue
		}
		summary.TotalEntries++
		summary.TotalHours = summary.TotalHours.Add(e.TotalHours)
		summary.TotalGross = summary.TotalGross.Add(e.GrossPay)
		summary.TotalDeductions = summary.TotalDeductions.Add(e.TotalDeductions)
		summary.TotalNet = summary.TotalNet.Add(e.NetPay)
		summary.TotalBonuses = summary.TotalBonuses.Add(e.Bonuses)
	}
	return summary, nil
}

// ---- timesheet links ----

type linkRepo struct{ *memStore }

func (r linkRepo) Replace(ctx context.Context, entryID string, links []payroll.PayrollTimesheetEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := make([]payroll.PayrollTimesheetEntry, len(links))
	for i, l := range links {
		l.ID = uuid.NewString()
		l.PayrollEntryID = entryID
		l.CreatedAt = time.Now()
		stored[i] = l
	}
	r.links[entryID] = stored
	return nil
}

func (r linkRepo) DeleteByEntry(ctx context.Context, entryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.links, entryID)
	return nil
}

func (r linkRepo) ListByEntry(ctx context.Context, entryID string) ([]payroll.PayrollTimesheetEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]payroll.PayrollTimesheetEntry(nil), r.links[entryID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].WorkDate.Before(out[j].WorkDate) })
	return out, nil
}

// ---- audit log ----

type auditRepo struct{ *memStore }

func (r auditRepo) Create(ctx context.Context, log payroll.PayrollAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.ID = uuid.NewString()
	r.audits = append(r.audits, log)
	return nil
}

func (r auditRepo) List(ctx context.Context, companyID string, filter payroll.AuditLogFilter) ([]payroll.PayrollAuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []payroll.PayrollAuditLog
	for _, l := range r.audits {
		if l.CompanyID != companyID {
			continue
		}
		if filter.ReferenceType != nil && string(l.ReferenceType) != *filter.ReferenceType {
			continue
		}
		if filter.ReferenceID != nil && l.ReferenceID != *filter.ReferenceID {
			continue
		}
		if filter.Action != nil && l.Action != *filter.Action {
			continue
		}
		out = append(out, l)
	}
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

// ---- counters ----

type counterRepo struct{ *memStore }

func (r counterRepo) Next(ctx context.Context, companyID string, counterType string, year int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%s/%s/%d", companyID, counterType, year)
	r.counters[key]++
	return r.counters[key], nil
}

// ---- attendance and employees ----

type attendanceSource struct{ *memStore }

func (a attendanceSource) GetAttendance(ctx context.Context, companyID string, id string) (payroll.AttendanceRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.attendance[id]
	if !ok || rec.CompanyID != companyID {
		return payroll.AttendanceRecord{}, payroll.ErrAttendanceNotFound
	}
	return rec, nil
}

func (a attendanceSource) ListApprovedInRange(ctx context.Context, companyID string, employeeID string, start, end time.Time) ([]payroll.AttendanceRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []payroll.AttendanceRecord
	for _, rec := range a.attendance {
		if rec.CompanyID != companyID || rec.EmployeeID != employeeID || !rec.IsApproved() {
			continue
		}
		d := payroll.DateOf(rec.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type employeeDirectory struct{ *memStore }

func (e employeeDirectory) GetPayProfile(ctx context.Context, companyID string, employeeID string) (payroll.PayProfile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.profiles[employeeID]
	if !ok || p.CompanyID != companyID {
		return payroll.PayProfile{}, payroll.ErrEmployeeNotFound
	}
	return p, nil
}
