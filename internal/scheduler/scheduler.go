package scheduler

import (
	"context"
	"time"

	"github.com/accordhq/accord/internal/clock"
	"github.com/accordhq/accord/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Param struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	Clock clock.Clock
}

// Scheduler runs the periodic maintenance sweeps. Jobs are independent: a
// failing job is logged and the others still run.
type Scheduler struct {
	db    *gorm.DB
	log   *zap.Logger
	cfg   config.Config
	clock clock.Clock
}

func New(p Param) *Scheduler {
	return &Scheduler{
		db:    p.DB,
		log:   p.Log.Named("scheduler"),
		cfg:   p.Cfg,
		clock: p.Clock,
	}
}

// RunForever ticks until the context is cancelled. The first sweep runs
// immediately so a restart never postpones overdue maintenance.
func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	s.log.Info("scheduler started", zap.Duration("interval", interval))
	s.runAll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Scheduler) runAll(ctx context.Context) {
	jobs := []struct {
		name string
		run  func(context.Context) error
	}{
		{"expire_stale_invoices", s.ExpireStaleInvoicesJob},
		{"prune_audit_logs", s.PruneAuditLogsJob},
		{"prune_violation_counters", s.PruneViolationCountersJob},
	}
	for _, job := range jobs {
		if err := job.run(ctx); err != nil {
			s.log.Error("sweep job failed", zap.String("job", job.name), zap.Error(err))
		}
	}
}
