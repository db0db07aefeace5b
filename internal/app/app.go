// Package app wires configuration into the running object graph shared by the
// server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/godeposit/internal/adapter/alert"
	"github.com/iho/godeposit/internal/adapter/broker"
	"github.com/iho/godeposit/internal/adapter/chain/solana"
	"github.com/iho/godeposit/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/godeposit/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/godeposit/internal/adapter/repository/redis"
	"github.com/iho/godeposit/internal/infrastructure/config"
	"github.com/iho/godeposit/internal/infrastructure/httpclient"
	"github.com/iho/godeposit/internal/infrastructure/jsonrpc"
	"github.com/iho/godeposit/internal/infrastructure/metrics"
	"github.com/iho/godeposit/internal/infrastructure/outboxrelay"
	"github.com/iho/godeposit/internal/infrastructure/postgres"
	"github.com/iho/godeposit/internal/infrastructure/redis"
	"github.com/iho/godeposit/internal/infrastructure/scheduler"
	"github.com/iho/godeposit/internal/usecase"
)

// App holds the long-lived dependencies and use cases.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Pool   *pgxpool.Pool
	Redis  *goredis.Client // nil when REDIS_URL is empty
	Broker broker.Broker
	Chain  *solana.Client

	Deposits    *usecase.DepositUseCase
	Checkpoints *usecase.CheckpointUseCase
	Reconciler  *usecase.ReconciliationUseCase
	Batch       *usecase.BatchUseCase
	Balances    *usecase.BalanceUseCase
	Ledger      *usecase.LedgerUseCase
	Notifier    *usecase.Notifier
	Consumer    *usecase.ConsumerUseCase

	Relay     *outboxrelay.Relay
	Scheduler *scheduler.Scheduler
}

// stores groups the key-value collaborators that have a redis and an in-process implementation.
type stores struct {
	cache       usecase.Cache
	idempotency usecase.IdempotencyStore
	locker      usecase.AccountLocker
}

func newStores(client *goredis.Client) stores {
	if client == nil {
		return stores{
			cache:       memory.NewCache(),
			idempotency: memory.NewIdempotencyStore(),
			locker:      memory.NewAccountLocker(),
		}
	}
	return stores{
		cache:       redisRepo.NewCache(client),
		idempotency: redisRepo.NewIdempotencyStore(client),
		locker:      redisRepo.NewAccountLocker(client),
	}
}

func brokerConfig(cfg *config.Config) broker.Config {
	return broker.Config{
		Driver:       cfg.NotifierDriver,
		AMQPURL:      cfg.RabbitMQURL,
		AMQPQueue:    cfg.RabbitMQQueue,
		AMQPPrefetch: cfg.RabbitMQPrefetch,
		KafkaBrokers: cfg.KafkaBrokers,
		KafkaTopic:   cfg.KafkaTopic,
		KafkaGroupID: cfg.KafkaGroupID,
		RedisStream:  cfg.RedisStream,
		RedisGroup:   cfg.RedisGroup,
		RedisMaxLen:  cfg.RedisMaxLen,
		ConsumerName: cfg.ConsumerName,
	}
}

func newAlertSink(cfg *config.Config, logger zerolog.Logger) (usecase.AlertSink, error) {
	if cfg.TelegramBotToken == "" {
		return alert.NewLog(logger), nil
	}
	return alert.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
}

func newChain(cfg *config.Config, observer solana.CallObserver, logger zerolog.Logger) *solana.Client {
	httpClient := httpclient.New(httpclient.WithTimeout(cfg.RPCTimeout))
	conn := jsonrpc.NewClient(httpClient, cfg.SolanaRPCURL)

	return solana.NewClient(conn, solana.Config{
		Commitment:    cfg.SolanaCommitment,
		RetryAttempts: cfg.RPCRetryMax,
		RetryDelay:    cfg.RPCRetryDelay,
		RateLimit:     cfg.RPCRateLimit,
		RateBurst:     cfg.RPCRateBurst,
	}, observer, logger)
}

// New connects to postgres, redis (optional) and the broker and builds every use case.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.Pool = pool
	logger.Info().Msg("connected to postgres")

	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.Redis = client
		logger.Info().Msg("connected to redis")
	} else {
		logger.Warn().Msg("REDIS_URL is empty, using in-process cache, locks and idempotency")
	}

	b, err := broker.New(brokerConfig(cfg), a.Redis, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open notifier: %w", err)
	}
	a.Broker = b

	alerts, err := newAlertSink(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.wire(newStores(a.Redis), alerts)
	return a, nil
}

func (a *App) wire(s stores, alerts usecase.AlertSink) {
	cfg, logger := a.Config, a.Logger

	var outboxRepo usecase.OutboxRepository = postgresRepo.NewOutboxRepository(a.Pool)
	if !cfg.OutboxEnabled {
		outboxRepo = postgresRepo.NewNullOutboxRepository()
	}

	accountRepo := postgresRepo.NewWatchedAccountRepository(a.Pool)
	checkpointRepo := postgresRepo.NewCheckpointRepository(a.Pool)

	a.Chain = newChain(cfg, a.Metrics, logger)

	a.Deposits = usecase.NewDepositUseCase(
		postgresRepo.NewTxManager(a.Pool),
		postgresRepo.NewRetrier(logger),
		postgresRepo.NewDepositRepository(a.Pool),
		postgresRepo.NewBalanceRepository(a.Pool),
		outboxRepo,
		postgresRepo.NewULIDGenerator(),
	)
	a.Checkpoints = usecase.NewCheckpointUseCase(checkpointRepo, a.Metrics)
	a.Notifier = usecase.NewNotifier(a.Broker, outboxRepo, a.Metrics, logger)

	a.Reconciler = usecase.NewReconciliationUseCase(usecase.ReconciliationConfig{
		AccountRepo:    accountRepo,
		CheckpointRepo: checkpointRepo,
		AnomalyRepo:    postgresRepo.NewAnomalyRepository(a.Pool),
		Chain:          a.Chain,
		Deposits:       a.Deposits,
		Notifier:       a.Notifier,
		Observer:       a.Metrics,
		Logger:         logger,
		BatchSize:      cfg.ScanBatchSize,
	})
	a.Batch = usecase.NewBatchUseCase(usecase.BatchConfig{
		AccountRepo: accountRepo,
		Reconciler:  a.Reconciler,
		Locker:      s.locker,
		Observer:    a.Metrics,
		Logger:      logger,
		Concurrency: cfg.ScanConcurrency,
		LockTTL:     cfg.ScanLockTTL,
	})
	a.Balances = usecase.NewBalanceUseCase(accountRepo, a.Chain, a.Deposits, s.cache, cfg.BalanceCacheTTL)
	a.Ledger = usecase.NewLedgerUseCase(postgresRepo.NewLedgerRepository(a.Pool))
	a.Consumer = usecase.NewConsumerUseCase(s.idempotency, alerts, a.Metrics, logger)

	a.Relay = outboxrelay.New(outboxrelay.Config{
		OutboxRepo:  outboxRepo,
		Notifier:    a.Notifier,
		Observer:    a.Metrics,
		Logger:      logger,
		BatchSize:   cfg.OutboxBatchSize,
		Interval:    cfg.OutboxInterval,
		GracePeriod: cfg.OutboxGracePeriod,
		Retention:   cfg.OutboxRetention,
	})
	a.Scheduler = scheduler.New(a.Batch, cfg.ScanInterval, logger)
}

// Close releases every connection that was opened.
func (a *App) Close() error {
	var errs []error
	if a.Broker != nil {
		errs = append(errs, a.Broker.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	return errors.Join(errs...)
}
