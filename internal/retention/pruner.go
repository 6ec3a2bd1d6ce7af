// Package retention deletes query history older than a configured age on a
// cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// HistoryPruner removes history entries created before a cutoff.
type HistoryPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner runs HistoryPruner.DeleteBefore(now - retention) on a cron schedule.
type Pruner struct {
	cron      *cron.Cron
	store     HistoryPruner
	retention time.Duration
	schedule  string
	logger    *slog.Logger
	now       func() time.Time
}

// NewPruner creates a pruner. schedule is a standard cron spec or a
// descriptor such as "@hourly".
func NewPruner(store HistoryPruner, retention time.Duration, schedule string, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		cron:      cron.New(),
		store:     store,
		retention: retention,
		schedule:  schedule,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the prune job and starts the cron scheduler.
func (p *Pruner) Start() error {
	if p.retention <= 0 {
		return fmt.Errorf("history retention must be positive, got %s", p.retention)
	}
	if _, err := p.cron.AddFunc(p.schedule, func() {
		if _, err := p.RunOnce(context.Background()); err != nil {
			p.logger.Warn("history prune failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.schedule, err)
	}
	p.cron.Start()
	p.logger.Info("history pruner started", "schedule", p.schedule, "retention", p.retention)
	return nil
}

// Stop stops the scheduler and waits for a running prune to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
	p.logger.Info("history pruner stopped")
}

// RunOnce deletes every entry older than the retention window.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)
	n, err := p.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.logger.Info("pruned query history", "deleted", n, "cutoff", cutoff)
	}
	return n, nil
}
