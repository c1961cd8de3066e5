package payroll

import (
	"context"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"golang.org/x/sync/errgroup"
)

// ========== DASHBOARD ==========

// GetDashboard runs the entry summary and the run status counts in parallel.
func (s *PayrollServiceImpl) GetDashboard(ctx context.Context, actor payroll.Actor, filter payroll.DashboardFilter) (payroll.DashboardResponse, error) {
	if err := filter.Validate(); err != nil {
		return payroll.DashboardResponse{}, err
	}

	var (
		summary   payroll.EntrySummary
		runCounts map[string]int
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		summary, err = s.entries.Summarize(gCtx, actor.CompanyID, filter)
		return err
	})

	g.Go(func() error {
		var err error
		runCounts, err = s.runs.CountByStatus(gCtx, actor.CompanyID, filter)
		return err
	})

	if err := g.Wait(); err != nil {
		return payroll.DashboardResponse{}, err
	}

	if summary.StatusCounts == nil {
		summary.StatusCounts = map[string]int{}
	}
	if runCounts == nil {
		runCounts = map[string]int{}
	}

	return payroll.DashboardResponse{
		TotalEntries:      summary.TotalEntries,
		TotalHours:        summary.TotalHours,
		TotalGross:        summary.TotalGross,
		TotalDeductions:   summary.TotalDeductions,
		TotalNet:          summary.TotalNet,
		TotalBonuses:      summary.TotalBonuses,
		LockedEntries:     summary.LockedCount,
		AutoEntries:       summary.AutoCount,
		EntryStatusCounts: summary.StatusCounts,
		RunStatusCounts:   runCounts,
	}, nil
}
