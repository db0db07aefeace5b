// Package outboxrelay republishes deposit notifications whose inline publish was lost.
package outboxrelay

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/usecase"
)

// Relay periodically republishes stale unpublished outbox events and prunes
// published ones past retention.
type Relay struct {
	outboxRepo  usecase.OutboxRepository
	notifier    *usecase.Notifier
	observer    usecase.Observer
	logger      zerolog.Logger
	batchSize   int
	interval    time.Duration
	gracePeriod time.Duration
	retention   time.Duration
	now         func() time.Time
}

// Config for Relay.
type Config struct {
	OutboxRepo  usecase.OutboxRepository
	Notifier    *usecase.Notifier
	Observer    usecase.Observer
	Logger      zerolog.Logger
	BatchSize   int           // events fetched per pass
	Interval    time.Duration // polling interval
	GracePeriod time.Duration // age before an unpublished event is considered lost
	Retention   time.Duration // age after which published events are deleted
}

// New creates a new Relay.
func New(cfg Config) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if cfg.Observer == nil {
		cfg.Observer = usecase.NopObserver{}
	}

	return &Relay{
		outboxRepo:  cfg.OutboxRepo,
		notifier:    cfg.Notifier,
		observer:    cfg.Observer,
		logger:      cfg.Logger.With().Str("component", "outbox_relay").Logger(),
		batchSize:   cfg.BatchSize,
		interval:    cfg.Interval,
		gracePeriod: cfg.GracePeriod,
		retention:   cfg.Retention,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the relay until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info().
		Int("batch_size", r.batchSize).
		Dur("interval", r.interval).
		Dur("grace_period", r.gracePeriod).
		Msg("outbox relay started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("outbox relay shutting down")
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Relay) tick(ctx context.Context) {
	if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error().Err(err).Msg("error relaying outbox events")
	}
	if _, err := r.Cleanup(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error().Err(err).Msg("error pruning outbox events")
	}
}

// RelayOnce republishes one batch of events older than the grace period and
// returns how many the broker accepted. Accepted events are marked published by the notifier.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	events, err := r.outboxRepo.GetUnpublished(ctx, r.batchSize, r.now().Add(-r.gracePeriod))
	if err != nil {
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	r.logger.Info().Int("count", len(events)).Msg("relaying outbox events")

	relayed := 0
	for _, event := range events {
		if ctx.Err() != nil {
			break
		}

		n, err := event.DepositNotification()
		if err != nil {
			r.retire(ctx, event, err)
			continue
		}

		if r.notifier.Publish(ctx, n, event.ID) {
			relayed++
		}
	}

	r.observer.OutboxRelayed(relayed)
	return relayed, nil
}

// retire marks an undecodable event published so it stops occupying the head of
// every batch. The deposit row itself is untouched.
func (r *Relay) retire(ctx context.Context, event *domain.OutboxEvent, cause error) {
	r.logger.Error().Err(cause).
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("aggregate_id", event.AggregateID).
		Msg("retiring undecodable outbox event")

	if err := r.outboxRepo.MarkPublished(ctx, event.ID, r.now()); err != nil {
		r.logger.Warn().Err(err).Str("event_id", event.ID).Msg("retire outbox event failed")
	}
}

// Cleanup deletes events published before the retention window.
func (r *Relay) Cleanup(ctx context.Context) (int64, error) {
	deleted, err := r.outboxRepo.DeletePublished(ctx, r.now().Add(-r.retention))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		r.logger.Debug().Int64("deleted", deleted).Msg("pruned published outbox events")
	}
	return deleted, nil
}
