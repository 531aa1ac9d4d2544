package retention

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/relay/pkg/audit"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// Days is the number of days to retain records.
	// 0 means keep records forever (no pruning).
	Days int

	// Schedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables the scheduler.
	Schedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		Days:     30,
		Schedule: "0 3 * * *",
	}
}

// Pruner enforces the retention period on audit records.
type Pruner struct {
	storage   audit.Storage
	config    Config
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage audit.Storage, cfg *Config) *Pruner {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	p := &Pruner{
		storage: storage,
		config:  *cfg,
		logger:  slog.Default().With("component", "audit.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Cutoff returns the instant before which records are pruned, and false
// when retention is unlimited.
func (p *Pruner) Cutoff() (time.Time, bool) {
	if p.config.Days <= 0 {
		return time.Time{}, false
	}
	return p.now().AddDate(0, 0, -p.config.Days), true
}

// Prune deletes records older than the retention period and returns how
// many were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff, ok := p.Cutoff()
	if !ok {
		p.logger.Debug("retention unlimited, nothing to prune")
		return 0, nil
	}

	deleted, err := p.storage.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, audit.NewRetentionError(p.config.Days, err)
	}

	if deleted > 0 {
		p.logger.Info("pruned audit records",
			"deleted_count", deleted,
			"cutoff_time", cutoff,
			"retention_days", p.config.Days,
		)
	} else {
		p.logger.Debug("no audit records pruned",
			"cutoff_time", cutoff,
			"retention_days", p.config.Days,
		)
	}
	return deleted, nil
}

// Start starts the pruning scheduler. It stops when ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning, or nil when
// the scheduler is not running.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
