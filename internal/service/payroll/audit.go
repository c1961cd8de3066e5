package payroll

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
)

// ========== AUDIT ==========

type auditRecord struct {
	refType     payroll.ReferenceType
	refID       string
	action      string
	description string
	before      any
	after       any
}

// record appends one audit row. It must run inside the transaction of the change it describes.
func (s *PayrollServiceImpl) record(ctx context.Context, actor payroll.Actor, rec auditRecord) error {
	oldValues, err := snapshot(rec.before)
	if err != nil {
		return err
	}
	newValues, err := snapshot(rec.after)
	if err != nil {
		return err
	}

	log := payroll.PayrollAuditLog{
		CompanyID:      actor.CompanyID,
		ReferenceType:  rec.refType,
		ReferenceID:    rec.refID,
		Action:         rec.action,
		Description:    rec.description,
		OldValues:      oldValues,
		NewValues:      newValues,
		PerformedBy:    actor.UserID,
		IsSystemAction: actor.IsSystem(),
		CreatedAt:      s.now(),
	}
	if err := s.auditLogs.Create(ctx, log); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func snapshot(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit snapshot: %w", err)
	}
	return b, nil
}

func (s *PayrollServiceImpl) ListAuditLogs(ctx context.Context, actor payroll.Actor, filter payroll.AuditLogFilter) (payroll.ListAuditLogResponse, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	logs, total, err := s.auditLogs.List(ctx, actor.CompanyID, filter)
	if err != nil {
		return payroll.ListAuditLogResponse{}, err
	}

	data := make([]payroll.AuditLogResponse, len(logs))
	for i, l := range logs {
		data[i] = payroll.AuditLogResponse{
			ID:             l.ID,
			ReferenceType:  string(l.ReferenceType),
			ReferenceID:    l.ReferenceID,
			Action:         l.Action,
			Description:    l.Description,
			OldValues:      rawJSON(l.OldValues),
			NewValues:      rawJSON(l.NewValues),
			PerformedBy:    l.PerformedBy,
			IsSystemAction: l.IsSystemAction,
			CreatedAt:      formatTime(l.CreatedAt),
		}
	}

	return payroll.ListAuditLogResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func rawJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
