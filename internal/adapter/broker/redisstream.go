package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/usecase"
)

const (
	streamFieldTxID = "tx_id"
	streamFieldBody = "body"

	recoverBatch = 50
)

// RedisStream publishes to a capped stream and consumes through a consumer group.
type RedisStream struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	maxLen   int64
	block    time.Duration
	minIdle  time.Duration // pending age after which entries of other consumers are claimed
	logger   zerolog.Logger
}

// NewRedisStream creates a stream broker. consumer names this process inside group.
func NewRedisStream(client *redis.Client, stream, group, consumer string, maxLen int64, logger zerolog.Logger) *RedisStream {
	return &RedisStream{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
		maxLen:   maxLen,
		block:    2 * time.Second,
		minIdle:  time.Minute,
		logger:   logger.With().Str("broker", "redis").Str("stream", stream).Logger(),
	}
}

func (b *RedisStream) Publish(ctx context.Context, n *domain.DepositNotification) error {
	body, err := encode(n)
	if err != nil {
		return err
	}
	return b.add(ctx, n.TxID, body)
}

func (b *RedisStream) add(ctx context.Context, txID string, body []byte) error {
	args := &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{streamFieldTxID: txID, streamFieldBody: body},
	}
	if b.maxLen > 0 {
		args.MaxLen = b.maxLen
		args.Approx = true
	}
	if err := b.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", txID, err)
	}
	return nil
}

// Consume creates the group if needed and handles entries one at a time. It first
// redelivers entries left pending by earlier runs, then reads new ones. A failed entry
// is re-added to the tail and acked, so it is redelivered after newer entries.
func (b *RedisStream) Consume(ctx context.Context, handler usecase.MessageHandler) error {
	err := b.client.XGroupCreateMkStream(ctx, b.stream, b.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s: %w", b.group, err)
	}

	if err := b.claimStale(ctx); err != nil {
		return err
	}
	if err := b.drainPending(ctx, handler); err != nil {
		return err
	}

	for ctx.Err() == nil {
		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{b.stream, ">"},
			Count:    1,
			Block:    b.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			return fmt.Errorf("xreadgroup: %w", err)
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				b.handle(ctx, msg, handler)
			}
		}
	}
	return nil
}

// claimStale moves entries pending on other consumers for longer than minIdle to this one.
func (b *RedisStream) claimStale(ctx context.Context) error {
	start := "0-0"
	for ctx.Err() == nil {
		ids, next, err := b.client.XAutoClaimJustID(ctx, &redis.XAutoClaimArgs{
			Stream:   b.stream,
			Group:    b.group,
			Consumer: b.consumer,
			MinIdle:  b.minIdle,
			Start:    start,
			Count:    recoverBatch,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("xautoclaim: %w", err)
		}
		if len(ids) > 0 {
			b.logger.Info().Int("entries", len(ids)).Msg("claimed stale pending entries")
		}
		if next == "" || next == "0-0" {
			return nil
		}
		start = next
	}
	return nil
}

// drainPending handles every entry already delivered to this consumer but never acked.
func (b *RedisStream) drainPending(ctx context.Context, handler usecase.MessageHandler) error {
	cursor := "0"
	for ctx.Err() == nil {
		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{b.stream, cursor},
			Count:    recoverBatch,
			Block:    -1,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("xreadgroup pending: %w", err)
		}

		var handled int
		for _, s := range streams {
			for _, msg := range s.Messages {
				b.handle(ctx, msg, handler)
				cursor = msg.ID
				handled++
			}
		}
		if handled == 0 {
			return nil
		}
	}
	return nil
}

func (b *RedisStream) handle(ctx context.Context, msg redis.XMessage, handler usecase.MessageHandler) {
	body, _ := msg.Values[streamFieldBody].(string)
	n, err := decode([]byte(body))
	if err != nil {
		b.logger.Error().Err(err).Str("id", msg.ID).Msg("dropping malformed entry")
		b.ack(ctx, msg.ID)
		return
	}

	if err := handler(ctx, n); err != nil {
		b.logger.Warn().Err(err).Str("tx_id", n.TxID).Msg("handler failed, requeueing")
		if err := b.add(context.WithoutCancel(ctx), n.TxID, []byte(body)); err != nil {
			// left pending; the next Consume redelivers it
			b.logger.Error().Err(err).Str("id", msg.ID).Msg("requeue failed")
			return
		}
	}
	b.ack(ctx, msg.ID)
}

// ack outlives ctx so an entry handled during shutdown is not redelivered.
func (b *RedisStream) ack(ctx context.Context, id string) {
	if err := b.client.XAck(context.WithoutCancel(ctx), b.stream, b.group, id).Err(); err != nil {
		b.logger.Warn().Err(err).Str("id", id).Msg("xack failed")
	}
}

// Close is a no-op; the redis client is owned by the caller.
func (b *RedisStream) Close() error { return nil }
