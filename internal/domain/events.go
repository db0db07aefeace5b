package domain

import (
	"encoding/json"
	"time"
)

// Event types
const (
	EventTypeDepositConfirmed = "deposit.confirmed"
)

// Aggregate types
const (
	AggregateTypeDeposit = "deposit"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewDepositConfirmedEvent wraps a notification into an outbox event keyed by tx id.
func NewDepositConfirmedEvent(id string, n *DepositNotification, at time.Time) (*OutboxEvent, error) {
	payload, err := toPayload(n)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		ID:            id,
		AggregateID:   n.TxID,
		AggregateType: AggregateTypeDeposit,
		EventType:     EventTypeDepositConfirmed,
		Payload:       payload,
		CreatedAt:     at,
	}, nil
}

// DepositNotification decodes the payload of a deposit.confirmed event.
func (e *OutboxEvent) DepositNotification() (*DepositNotification, error) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}

	var n DepositNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}

	return &n, nil
}

func toPayload(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	return payload, nil
}
