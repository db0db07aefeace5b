package broker

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/godeposit/internal/usecase"
)

// Drivers
const (
	DriverNone  = "none"
	DriverAMQP  = "amqp"
	DriverRedis = "redis"
	DriverKafka = "kafka"
)

// Broker both publishes and consumes notifications.
type Broker interface {
	usecase.Publisher
	usecase.Subscriber
}

var (
	_ Broker = Noop{}
	_ Broker = (*AMQP)(nil)
	_ Broker = (*RedisStream)(nil)
	_ Broker = (*Kafka)(nil)
)

// Config selects and configures a driver.
type Config struct {
	Driver       string
	AMQPURL      string
	AMQPQueue    string
	AMQPPrefetch int
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
	RedisStream  string
	RedisGroup   string
	RedisMaxLen  int64
	ConsumerName string
}

// New opens the configured broker. The redis driver requires client.
func New(cfg Config, client *redis.Client, logger zerolog.Logger) (Broker, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return Noop{}, nil
	case DriverAMQP:
		return DialAMQP(cfg.AMQPURL, cfg.AMQPQueue, cfg.AMQPPrefetch, logger)
	case DriverRedis:
		if client == nil {
			return nil, fmt.Errorf("notifier driver %q requires REDIS_URL", cfg.Driver)
		}
		return NewRedisStream(client, cfg.RedisStream, cfg.RedisGroup, cfg.ConsumerName, cfg.RedisMaxLen, logger), nil
	case DriverKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("notifier driver %q requires KAFKA_BROKERS", cfg.Driver)
		}
		return NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier driver %q", cfg.Driver)
	}
}
