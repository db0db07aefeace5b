package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/godeposit/internal/domain"
)

// Notifier publishes deposit notifications best-effort.
type Notifier struct {
	publisher  Publisher
	outboxRepo OutboxRepository
	observer   Observer
	logger     zerolog.Logger
}

// NewNotifier creates a new Notifier.
func NewNotifier(publisher Publisher, outboxRepo OutboxRepository, observer Observer, logger zerolog.Logger) *Notifier {
	if observer == nil {
		observer = NopObserver{}
	}

	return &Notifier{
		publisher:  publisher,
		outboxRepo: outboxRepo,
		observer:   observer,
		logger:     logger.With().Str("component", "notifier").Logger(),
	}
}

// Publish sends the notification and reports whether the broker accepted it.
// Failures are logged and never returned: the deposit is already durable and the
// outbox relay redelivers it later. On success the outbox event eventID is marked published.
func (n *Notifier) Publish(ctx context.Context, notification *domain.DepositNotification, eventID string) bool {
	if err := n.publisher.Publish(ctx, notification); err != nil {
		n.observer.NotificationPublished(false)
		n.logger.Warn().Err(err).
			Str("tx_id", notification.TxID).
			Str("address", notification.Address).
			Msg("publish deposit notification failed")
		return false
	}

	n.observer.NotificationPublished(true)

	if eventID != "" && n.outboxRepo != nil {
		if err := n.outboxRepo.MarkPublished(ctx, eventID, time.Now().UTC()); err != nil {
			n.logger.Warn().Err(err).Str("event_id", eventID).Msg("mark outbox event published failed")
		}
	}

	return true
}
