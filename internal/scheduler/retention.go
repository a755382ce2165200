package scheduler

import (
	"context"

	auditdomain "github.com/accordhq/accord/internal/audit/domain"
	invoicedomain "github.com/accordhq/accord/internal/invoice/domain"
	moderationdomain "github.com/accordhq/accord/internal/moderation/domain"
	"go.uber.org/zap"
)

// ExpireStaleInvoicesJob flips pending invoices past their TTL to expired.
// A settlement racing the sweep is safe: settlement re-checks the TTL
// inside its own transaction.
func (s *Scheduler) ExpireStaleInvoicesJob(ctx context.Context) error {
	cutoff := s.clock.Now(ctx).Add(-s.cfg.InvoiceTTL)

	result := s.db.WithContext(ctx).Model(&invoicedomain.Invoice{}).
		Where("status = ? AND created_at < ?", invoicedomain.InvoiceStatusPending, cutoff).
		Update("status", invoicedomain.InvoiceStatusExpired)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		s.log.Info("expired stale invoices", zap.Int64("count", result.RowsAffected))
	}
	return nil
}

// PruneAuditLogsJob deletes audit entries older than the retention horizon.
// The audit log is append-only everywhere else; this sweep is the one
// sanctioned exception, and AuditRetentionDays <= 0 disables it entirely.
func (s *Scheduler) PruneAuditLogsJob(ctx context.Context) error {
	retentionDays := s.cfg.AuditRetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := s.clock.Now(ctx).AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).Delete(&auditdomain.AuditLog{}, "created_at < ?", cutoff)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		s.log.Info("pruned audit logs", zap.Int64("deleted", result.RowsAffected))
	}
	return nil
}

// PruneViolationCountersJob drops counters whose cool-down has fully
// elapsed. The ladder treats a stale counter as reset anyway; this keeps
// the table from growing without bound.
func (s *Scheduler) PruneViolationCountersJob(ctx context.Context) error {
	cutoff := s.clock.Now(ctx).Add(-s.cfg.CooldownWindow)

	result := s.db.WithContext(ctx).Delete(&moderationdomain.ViolationCounter{}, "last_violation_at < ?", cutoff)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		s.log.Info("pruned violation counters", zap.Int64("deleted", result.RowsAffected))
	}
	return nil
}
