package di

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tradevision/internal/domain/repository"
	"tradevision/internal/handler/api"
	internalrepo "tradevision/internal/repository"
	svcbroker "tradevision/internal/service/broker"
	svccache "tradevision/internal/service/cache"
	"tradevision/internal/service/mailer"
	"tradevision/internal/service/token"
	"tradevision/internal/usecase"
	"tradevision/pkg/cache"
	"tradevision/pkg/config"
	xhttp "tradevision/pkg/http"
	pkgkafka "tradevision/pkg/kafka"
	"tradevision/pkg/logger"
	"tradevision/pkg/metrics"
	"tradevision/pkg/server"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideDB opens the Postgres pool.
func ProvideDB(cfg *config.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := internalrepo.OpenDB(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return db, nil
}

// ProvideSignalStore creates the signal store and ensures its schema.
func ProvideSignalStore(db *sqlx.DB, cfg *config.Config) (repository.SignalStore, error) {
	store := internalrepo.NewSignalStore(db, cfg.Database.QueryTimeout)
	if err := store.Init(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideUserStore creates the user store and ensures its schema.
func ProvideUserStore(db *sqlx.DB, cfg *config.Config) (repository.UserStore, error) {
	store := internalrepo.NewUserStore(db, cfg.Database.QueryTimeout)
	if err := store.Init(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideCache returns Redis when enabled, otherwise the in-process cache.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	c, err := cache.NewRedisCache(
		cache.WithAddr(cfg.Redis.Addr),
		cache.WithPassword(cfg.Redis.Password),
		cache.WithDB(cfg.Redis.DB),
		cache.WithPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return c, nil
}

// ProvideSignalCache wraps the cache backend with the signal key schema.
func ProvideSignalCache(c cache.Service, m repository.Metrics, log *logger.Logger) *svccache.SignalCache {
	return svccache.NewSignalCache(c, m, log)
}

// ProvidePublisher creates the Kafka event publisher, or a no-op one when
// no brokers are configured.
func ProvidePublisher(cfg *config.Config) (repository.EventPublisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return internalrepo.NopPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideBrokerGateway creates the Pocket Option affiliate client.
func ProvideBrokerGateway(cfg *config.Config, m repository.Metrics, log *logger.Logger) repository.BrokerGateway {
	return svcbroker.NewClient(svcbroker.Config{
		BaseURL: cfg.Broker.APIBaseURL,
		APIKey:  cfg.Broker.APIKey,
		Timeout: cfg.Broker.RequestTimeout,
	}, m, log)
}

// ProvideMailer creates the SMTP mailer.
func ProvideMailer(cfg *config.Config, log *logger.Logger) repository.Mailer {
	return mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		BaseURL:  cfg.App.BaseURL,
	}, log)
}

// ProvideTokenManager creates the JWT manager.
func ProvideTokenManager(cfg *config.Config) *token.Manager {
	return token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
}

// ProvideFeedHub creates the websocket fan-out hub.
func ProvideFeedHub(log *logger.Logger) *api.FeedHub {
	return api.NewFeedHub(log)
}

// ProvideSignalsUseCase wires the ingest pipeline and read path.
func ProvideSignalsUseCase(
	store repository.SignalStore,
	sigCache *svccache.SignalCache,
	publisher repository.EventPublisher,
	hub *api.FeedHub,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *usecase.SignalsUseCase {
	return usecase.NewSignalsUseCase(store, sigCache, publisher, hub, m, log, usecase.SignalsConfig{
		Symbols:    cfg.Signals.Symbols,
		EnterDelay: cfg.Signals.EnterDelay,
	})
}

// ProvideStatsUseCase wires the rolling stats aggregator.
func ProvideStatsUseCase(store repository.SignalStore, log *logger.Logger, cfg *config.Config) *usecase.StatsUseCase {
	return usecase.NewStatsUseCase(store, log, usecase.StatsConfig{
		RollingWindow: cfg.Signals.RollingWindow,
		BreakEvenRate: cfg.Signals.BreakEvenRate,
	})
}

// ProvideAuthUseCase wires registration, login and verification.
func ProvideAuthUseCase(users repository.UserStore, tokens *token.Manager, m repository.Mailer, log *logger.Logger, cfg *config.Config) *usecase.AuthUseCase {
	return usecase.NewAuthUseCase(users, tokens, m, log, cfg.Auth.BcryptCost)
}

// ProvideAccessUseCase wires the access gate and broker linkage.
func ProvideAccessUseCase(users repository.UserStore, broker repository.BrokerGateway, m repository.Metrics, log *logger.Logger, cfg *config.Config) *usecase.AccessUseCase {
	return usecase.NewAccessUseCase(users, broker, m, log, cfg.Broker.MinDeposit)
}

// ProvideJobs wires the cron schedules.
func ProvideJobs(
	store repository.SignalStore,
	stats *usecase.StatsUseCase,
	publisher repository.EventPublisher,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *usecase.Jobs {
	return usecase.NewJobs(store, stats, publisher, m, log, usecase.JobsConfig{
		StatsRefreshCron: cfg.Jobs.StatsRefreshCron,
		SettlementCron:   cfg.Jobs.SettlementCron,
		SettlementGrace:  cfg.Jobs.SettlementGrace,
		Symbols:          cfg.Signals.Symbols,
		Timeframes:       cfg.Signals.Timeframes,
	})
}

// ProvideApp assembles handlers and the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	signals *usecase.SignalsUseCase,
	stats *usecase.StatsUseCase,
	auth *usecase.AuthUseCase,
	access *usecase.AccessUseCase,
	tokens *token.Manager,
	hub *api.FeedHub,
	jobs *usecase.Jobs,
	store repository.SignalStore,
	publisher repository.EventPublisher,
	c cache.Service,
) *server.App {
	handlers := []xhttp.Handler{
		api.NewPublicHandler(log, signals, stats, cfg.Signals.Timeframes),
		api.NewAuthHandler(log, auth, tokens),
		api.NewBrokerHandler(log, access, tokens, cfg.App.BaseURL),
		api.NewWebhookHandler(log, signals, api.WebhookConfig{
			Secret:             cfg.Webhook.Secret,
			VerifySignature:    cfg.Webhook.VerifySignature,
			TimestampTolerance: cfg.Webhook.TimestampTolerance,
			RateLimitPerSec:    cfg.Webhook.RateLimitPerSec,
			RateLimitBurst:     cfg.Webhook.RateLimitBurst,
		}),
		hub,
	}
	return server.New(cfg, log, handlers, jobs, hub, store, publisher, c)
}
