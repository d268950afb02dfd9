// Package sweeper purges invitations that expired long ago. Recently expired
// rows are kept for the retention window so that redeeming one still reports
// "expired" rather than "not found".
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/srivastavahk/TaskFlow/internal/metrics"
)

const defaultBatchSize = 500

// Purger is satisfied by repository.InvitationRepository.
type Purger interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type Sweeper struct {
	repo      Purger
	logger    *slog.Logger
	retention time.Duration
	batchSize int
	now       func() time.Time
}

type Option func(*Sweeper)

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

func WithBatchSize(n int) Option {
	return func(s *Sweeper) { s.batchSize = n }
}

func New(repo Purger, logger *slog.Logger, retention time.Duration, opts ...Option) *Sweeper {
	s := &Sweeper{
		repo:      repo,
		logger:    logger.With("component", "sweeper"),
		retention: retention,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs Sweep on schedule (a cron spec or descriptor such as
// "@every 1h") until ctx is cancelled. Overlapping runs are skipped.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("parse sweep schedule %q: %w", schedule, err)
	}

	s.logger.Info("sweeper started", "schedule", schedule, "retention", s.retention)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("sweeper shut down")
	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	start := time.Now()
	n, err := s.Sweep(ctx)
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep failed", "error", err, "deleted", n)
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "swept expired invitations", "deleted", n)
	}
}

// Sweep deletes, in batches, every invitation that expired more than the
// retention window ago. It returns how many rows were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.retention)

	var total int
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := s.repo.DeleteExpiredBefore(ctx, cutoff, s.batchSize)
		if err != nil {
			return total, fmt.Errorf("delete expired invitations: %w", err)
		}
		total += n
		metrics.InvitationsSweptTotal.Add(float64(n))
		if n < s.batchSize {
			return total, nil
		}
	}
}
