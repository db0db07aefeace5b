package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/usecase"
)

var errNotConfirmed = errors.New("broker did not confirm publish")

type amqpChannel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQP publishes persistent JSON messages to a durable queue on the default exchange
// and consumes them with manual acknowledgement.
type AMQP struct {
	conn    *amqp.Connection
	ch      amqpChannel
	queue   string
	logger  zerolog.Logger
	timeout time.Duration
}

// DialAMQP connects, declares the durable queue, enables publisher confirms and
// limits unacknowledged deliveries to prefetch.
func DialAMQP(url, queue string, prefetch int, logger zerolog.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set qos: %w", err)
		}
	}

	b := newAMQP(ch, queue, logger)
	b.conn = conn
	return b, nil
}

func newAMQP(ch amqpChannel, queue string, logger zerolog.Logger) *AMQP {
	return &AMQP{
		ch:      ch,
		queue:   queue,
		logger:  logger.With().Str("broker", "amqp").Str("queue", queue).Logger(),
		timeout: 5 * time.Second,
	}
}

// Publish sends one notification and waits for the broker confirm.
func (b *AMQP) Publish(ctx context.Context, n *domain.DepositNotification) error {
	body, err := encode(n)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	confirm, err := b.ch.PublishWithDeferredConfirmWithContext(ctx, "", b.queue, false, false, amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    n.TxID,
		Timestamp:    time.Now().UTC(),
		Type:         domain.EventTypeDepositConfirmed,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", n.TxID, err)
	}
	if confirm == nil {
		// channel not in confirm mode
		return nil
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("publish %s: %w", n.TxID, err)
	}
	if !acked {
		return fmt.Errorf("publish %s: %w", n.TxID, errNotConfirmed)
	}
	return nil
}

// Consume handles deliveries one at a time. Success acks, handler failure requeues,
// an undecodable body is rejected without requeue.
func (b *AMQP) Consume(ctx context.Context, handler usecase.MessageHandler) error {
	deliveries, err := b.ch.ConsumeWithContext(ctx, b.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", b.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("amqp delivery channel closed")
			}
			b.handle(ctx, d, handler)
		}
	}
}

func (b *AMQP) handle(ctx context.Context, d amqp.Delivery, handler usecase.MessageHandler) {
	n, err := decode(d.Body)
	if err != nil {
		b.logger.Error().Err(err).Str("message_id", d.MessageId).Msg("dropping malformed message")
		if err := d.Reject(false); err != nil {
			b.logger.Warn().Err(err).Msg("reject failed")
		}
		return
	}

	if err := handler(ctx, n); err != nil {
		b.logger.Warn().Err(err).Str("tx_id", n.TxID).Msg("handler failed, requeueing")
		if err := d.Nack(false, true); err != nil {
			b.logger.Warn().Err(err).Msg("nack failed")
		}
		return
	}

	if err := d.Ack(false); err != nil {
		b.logger.Warn().Err(err).Str("tx_id", n.TxID).Msg("ack failed")
	}
}

// Close closes the channel and the connection.
func (b *AMQP) Close() error {
	err := b.ch.Close()
	if b.conn != nil {
		err = errors.Join(err, b.conn.Close())
	}
	return err
}
