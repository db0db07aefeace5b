package usecase

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/godeposit/internal/domain"
)

// Consumer outcomes reported to the Observer
const (
	ConsumeProcessed = "processed"
	ConsumeDuplicate = "duplicate"
	ConsumeInFlight  = "in_flight"
	ConsumeFailed    = "failed"
)

var (
	consumerProcessing = []byte("processing")
	consumerDone       = []byte("done")
)

// ConsumerUseCase is the downstream handler of deposit notifications.
// It is idempotent by tx id and remembers the most recent notifications it processed.
type ConsumerUseCase struct {
	store    IdempotencyStore
	alerts   AlertSink
	observer Observer
	logger   zerolog.Logger
	keyTTL   time.Duration

	mu        sync.RWMutex
	recent    []*domain.DepositNotification
	capacity  int
	processed int64
	lastAt    time.Time
}

// NewConsumerUseCase creates a new ConsumerUseCase.
func NewConsumerUseCase(store IdempotencyStore, alerts AlertSink, observer Observer, logger zerolog.Logger) *ConsumerUseCase {
	if observer == nil {
		observer = NopObserver{}
	}

	return &ConsumerUseCase{
		store:    store,
		alerts:   alerts,
		observer: observer,
		logger:   logger.With().Str("component", "consumer").Logger(),
		keyTTL:   ConsumerKeyTTL,
		capacity: RecentNotifications,
	}
}

// Handle processes one notification. A returned error requeues the message.
func (uc *ConsumerUseCase) Handle(ctx context.Context, n *domain.DepositNotification) error {
	if n == nil || n.TxID == "" {
		uc.observer.NotificationConsumed(ConsumeFailed)
		return fmt.Errorf("%w: notification without tx id", domain.ErrMalformedTransaction)
	}

	key := "consumer:deposit:" + n.TxID

	exists, value, err := uc.store.CheckAndSet(ctx, key, consumerProcessing, uc.keyTTL)
	if err != nil {
		uc.observer.NotificationConsumed(ConsumeFailed)
		return fmt.Errorf("claim %s: %w", n.TxID, err)
	}

	if exists {
		if bytes.Equal(value, consumerDone) {
			uc.observer.NotificationConsumed(ConsumeDuplicate)
			uc.logger.Debug().Str("tx_id", n.TxID).Msg("notification already processed")
			return nil
		}
		// Another delivery holds the claim; hand the message back.
		uc.observer.NotificationConsumed(ConsumeInFlight)
		return fmt.Errorf("notification %s is being processed", n.TxID)
	}

	if err := uc.process(ctx, n); err != nil {
		uc.observer.NotificationConsumed(ConsumeFailed)
		if delErr := uc.store.Delete(ctx, key); delErr != nil {
			uc.logger.Warn().Err(delErr).Str("tx_id", n.TxID).Msg("release idempotency key failed")
		}
		return err
	}

	if err := uc.store.Update(ctx, key, consumerDone, uc.keyTTL); err != nil {
		uc.logger.Warn().Err(err).Str("tx_id", n.TxID).Msg("mark notification done failed")
	}

	uc.observer.NotificationConsumed(ConsumeProcessed)
	return nil
}

func (uc *ConsumerUseCase) process(ctx context.Context, n *domain.DepositNotification) error {
	uc.logger.Info().
		Int64("member_id", n.MemberID).
		Str("asset", n.Asset).
		Str("amount", n.Amount).
		Str("tx_id", n.TxID).
		Str("counterparty", n.Counterparty).
		Msg("deposit notification received")

	if uc.alerts != nil {
		text := fmt.Sprintf("Deposit %s %s to %s from %s (tx %s)", n.Amount, n.Asset, n.Address, n.Counterparty, n.TxID)
		if err := uc.alerts.Send(ctx, text); err != nil {
			return fmt.Errorf("send alert: %w", err)
		}
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.recent = append(uc.recent, n)
	if len(uc.recent) > uc.capacity {
		uc.recent = append(uc.recent[:0:0], uc.recent[len(uc.recent)-uc.capacity:]...)
	}
	uc.processed++
	uc.lastAt = time.Now().UTC()

	return nil
}

// Recent returns up to limit processed notifications, newest first.
func (uc *ConsumerUseCase) Recent(limit int) []*domain.DepositNotification {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	if limit <= 0 || limit > len(uc.recent) {
		limit = len(uc.recent)
	}

	out := make([]*domain.DepositNotification, 0, limit)
	for i := len(uc.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, uc.recent[i])
	}

	return out
}

// ConsumerStatus is a snapshot of consumer progress.
type ConsumerStatus struct {
	LastProcessedAt time.Time
	Processed       int64
	Buffered        int
}

// Status returns a snapshot of consumer progress.
func (uc *ConsumerUseCase) Status() ConsumerStatus {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	return ConsumerStatus{
		LastProcessedAt: uc.lastAt,
		Processed:       uc.processed,
		Buffered:        len(uc.recent),
	}
}
