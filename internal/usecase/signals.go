package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradevision/internal/domain/models"
	domrepo "tradevision/internal/domain/repository"
	svccache "tradevision/internal/service/cache"
	"tradevision/pkg/logger"
)

// ErrSignalRejected wraps validation failures on the webhook ingest path.
var ErrSignalRejected = errors.New("signal rejected")

// ErrDuplicateSignal marks a redelivery of an already ingested signal.
var ErrDuplicateSignal = errors.New("duplicate signal")

// SignalNotifier receives every accepted signal for live fan-out.
type SignalNotifier interface {
	NotifySignal(s *models.Signal)
}

// SignalsUseCase implements the webhook ingest pipeline and the public
// signal read path.
type SignalsUseCase struct {
	store      domrepo.SignalStore
	cache      *svccache.SignalCache
	publisher  domrepo.EventPublisher
	notifier   SignalNotifier
	metrics    domrepo.Metrics
	log        *logger.Logger
	symbols    map[string]bool
	ordered    []string
	enterDelay time.Duration
}

type SignalsConfig struct {
	Symbols    []string
	EnterDelay time.Duration
}

func NewSignalsUseCase(
	store domrepo.SignalStore,
	cache *svccache.SignalCache,
	publisher domrepo.EventPublisher,
	notifier SignalNotifier,
	metrics domrepo.Metrics,
	log *logger.Logger,
	cfg SignalsConfig,
) *SignalsUseCase {
	symbols := make(map[string]bool, len(cfg.Symbols))
	ordered := make([]string, 0, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		up := strings.ToUpper(s)
		if !symbols[up] {
			ordered = append(ordered, up)
		}
		symbols[up] = true
	}
	return &SignalsUseCase{
		store:      store,
		cache:      cache,
		publisher:  publisher,
		notifier:   notifier,
		metrics:    metrics,
		log:        log,
		symbols:    symbols,
		ordered:    ordered,
		enterDelay: cfg.EnterDelay,
	}
}

// IngestParams is the parsed webhook payload.
type IngestParams struct {
	Symbol     string
	Timeframe  string
	Direction  string
	Price      float64
	Confidence *float64
	Timestamp  time.Time
}

// Ingest validates, deduplicates, stores, caches and publishes one
// incoming signal. Duplicate deliveries return ErrDuplicateSignal so the
// handler can acknowledge them without side effects.
func (uc *SignalsUseCase) Ingest(ctx context.Context, p IngestParams) (*models.Signal, error) {
	symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
	if !uc.symbols[symbol] {
		return nil, fmt.Errorf("%w: unknown symbol %q", ErrSignalRejected, p.Symbol)
	}
	if !models.IsValidTimeframe(p.Timeframe) {
		return nil, fmt.Errorf("%w: unknown timeframe %q", ErrSignalRejected, p.Timeframe)
	}
	direction, ok := models.ParseDirection(p.Direction)
	if !ok {
		return nil, fmt.Errorf("%w: unknown direction %q", ErrSignalRejected, p.Direction)
	}
	if p.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrSignalRejected)
	}
	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	claimed, err := uc.cache.ClaimDelivery(ctx, symbol, p.Timeframe, ts)
	if err != nil {
		// Idempotency falls back to the unique constraint below.
		uc.metrics.RecordError("idempotency")
		uc.log.Warn("idempotency claim failed", logger.Error(err))
	} else if !claimed {
		uc.metrics.RecordDuplicate("cache")
		return nil, ErrDuplicateSignal
	}

	enterAt, expireAt := models.ComputeSignalTimes(ts, p.Timeframe, uc.enterDelay)
	signal := &models.Signal{
		Symbol:     symbol,
		Timeframe:  p.Timeframe,
		Direction:  direction,
		Price:      p.Price,
		Confidence: p.Confidence,
		Timestamp:  ts,
		EnterAt:    enterAt,
		ExpireAt:   expireAt,
	}

	if err := uc.store.Insert(ctx, signal); err != nil {
		if errors.Is(err, domrepo.ErrDuplicate) {
			uc.metrics.RecordDuplicate("db")
			return nil, ErrDuplicateSignal
		}
		uc.metrics.RecordError("db_insert")
		return nil, fmt.Errorf("store signal: %w", err)
	}

	uc.cache.Store(ctx, signal)
	uc.metrics.RecordSignalIngested(symbol, p.Timeframe)

	if err := uc.publisher.Publish(ctx, models.NewSignalCreatedEvent(signal)); err != nil {
		uc.metrics.RecordError("publish")
		uc.log.Warn("publish signal event", logger.Error(err))
	}
	if uc.notifier != nil {
		uc.notifier.NotifySignal(signal)
	}

	uc.log.Info("signal ingested",
		logger.String("symbol", symbol),
		logger.String("timeframe", p.Timeframe),
		logger.String("direction", string(direction)),
		logger.Float64("price", p.Price))
	return signal, nil
}

// Latest returns the newest signal for a pair, reading through the cache.
// domrepo.ErrNotFound means no signal has ever arrived for the pair.
func (uc *SignalsUseCase) Latest(ctx context.Context, symbol, timeframe string) (*models.Signal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !uc.symbols[symbol] {
		return nil, domrepo.ErrNotFound
	}
	if !models.IsValidTimeframe(timeframe) {
		return nil, domrepo.ErrNotFound
	}

	if s, err := uc.cache.Latest(ctx, symbol, timeframe); err == nil {
		return s, nil
	}

	s, err := uc.store.Latest(ctx, symbol, timeframe)
	if err != nil {
		return nil, err
	}
	uc.cache.Store(ctx, s)
	return s, nil
}

// Symbols returns the configured symbol universe in configuration order.
func (uc *SignalsUseCase) Symbols() []string {
	out := make([]string, len(uc.ordered))
	copy(out, uc.ordered)
	return out
}
