package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/rileyL6122428/FriEnds-backend/internal/dependencies/clock"
	"github.com/rileyL6122428/FriEnds-backend/internal/events"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/storage"
)

// DefaultInterval is how often the Scheduler sweeps
const DefaultInterval = 60 * time.Second

// Config holds reaper timing
type Config struct {
	Interval time.Duration
	Grace    time.Duration
}

// DefaultConfig returns the default reaper configuration
func DefaultConfig() Config {
	return Config{
		Interval: DefaultInterval,
		Grace:    DefaultGrace,
	}
}

// Reaper binds Sweep to its collaborators
type Reaper struct {
	storage storage.Storage
	evict   Evictor
	clock   clock.Clock
	grace   time.Duration
	events  events.Sink
	logger  *slog.Logger
}

// New creates a Reaper
func New(storage storage.Storage, evict Evictor, clock clock.Clock, grace time.Duration, sink events.Sink, logger *slog.Logger) *Reaper {
	if grace <= 0 {
		grace = DefaultGrace
	}
	if sink == nil {
		sink = events.Nop
	}
	return &Reaper{
		storage: storage,
		evict:   evict,
		clock:   clock,
		grace:   grace,
		events:  sink,
		logger:  logger.With(slog.String("component", "reaper")),
	}
}

// Run performs one sweep. It is safe to call repeatedly.
func (r *Reaper) Run(ctx context.Context) (Result, error) {
	now := r.clock.Now()
	result, err := Sweep(ctx, r.storage, r.evict, now, r.grace)

	for _, identity := range result.Reaped {
		r.events.Emit(ctx, model.Event{
			Type:         model.EventIdentityReaped,
			Timestamp:    now,
			IdentityID:   identity.ID,
			ConnectionID: identity.ConnectionID,
			Payload:      model.IdentityPayload{Username: identity.Username},
		})
	}

	if err != nil {
		r.logger.Error("sweep failed", slog.Any("error", err))
		return result, err
	}

	if result.AnonymousDeleted > 0 || result.AbandonedDeleted > 0 {
		r.logger.Info("sweep complete",
			slog.Int("anonymous_deleted", result.AnonymousDeleted),
			slog.Int("abandoned_deleted", result.AbandonedDeleted),
			slog.Int("evicted", result.Evicted),
			slog.Int("identities_deleted", len(result.Reaped)),
		)
	}
	return result, nil
}

// Scheduler runs a Reaper on a fixed interval
type Scheduler struct {
	reaper   *Reaper
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler
func NewScheduler(reaper *Reaper, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		reaper:   reaper,
		interval: interval,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
}

// Run sweeps every interval until ctx is done. Failed sweeps are logged and
// retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			_, _ = s.reaper.Run(ctx)
		}
	}
}
