package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/usecase"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes notifications keyed by tx id and reads them through a consumer group.
// Offsets are committed only after the handler succeeds.
type Kafka struct {
	writer     kafkaWriter
	reader     kafkaReader
	logger     zerolog.Logger
	newBackOff func() backoff.BackOff
}

// NewKafka builds a synchronous writer and a group reader for topic.
func NewKafka(brokers []string, topic, groupID string, logger zerolog.Logger) *Kafka {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 5 * time.Second,
	}

	var reader kafkaReader
	if groupID != "" {
		reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			MinBytes:    1,
			MaxBytes:    1e6,
			StartOffset: kafka.FirstOffset,
		})
	}

	return newKafka(writer, reader, logger)
}

func newKafka(writer kafkaWriter, reader kafkaReader, logger zerolog.Logger) *Kafka {
	return &Kafka{
		writer: writer,
		reader: reader,
		logger: logger.With().Str("broker", "kafka").Logger(),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

func (k *Kafka) Publish(ctx context.Context, n *domain.DepositNotification) error {
	body, err := encode(n)
	if err != nil {
		return err
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.TxID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte(contentTypeJSON)},
			{Key: "event-type", Value: []byte(domain.EventTypeDepositConfirmed)},
		},
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", n.TxID, err)
	}
	return nil
}

// Consume fetches one message at a time. A failing message is retried with backoff
// until it succeeds or ctx ends; its offset is not committed before that.
func (k *Kafka) Consume(ctx context.Context, handler usecase.MessageHandler) error {
	if k.reader == nil {
		return errors.New("kafka consumer group is not configured")
	}

	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		n, err := decode(msg.Value)
		if err != nil {
			k.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("skipping malformed message")
		} else if err := k.handleWithBackoff(ctx, n, handler); err != nil {
			// only ctx cancellation ends the backoff loop
			return nil
		}

		if err := k.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

func (k *Kafka) handleWithBackoff(ctx context.Context, n *domain.DepositNotification, handler usecase.MessageHandler) error {
	return backoff.RetryNotify(
		func() error { return handler(ctx, n) },
		backoff.WithContext(k.newBackOff(), ctx),
		func(err error, wait time.Duration) {
			k.logger.Warn().Err(err).Str("tx_id", n.TxID).Dur("retry_in", wait).Msg("handler failed, retrying")
		},
	)
}

func (k *Kafka) Close() error {
	err := k.writer.Close()
	if k.reader != nil {
		err = errors.Join(err, k.reader.Close())
	}
	return err
}
