package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tradevision/internal/domain/models"
	domrepo "tradevision/internal/domain/repository"
	"tradevision/pkg/logger"
)

// StatsUseCase computes rolling performance stats per (symbol, timeframe)
// pair over the most recent settled signals. Results are kept in memory
// and refreshed on a schedule, so the read path never touches Postgres.
type StatsUseCase struct {
	store     domrepo.SignalStore
	log       *logger.Logger
	window    int
	breakEven float64

	mu    sync.RWMutex
	stats map[string]*models.Stats
}

type StatsConfig struct {
	RollingWindow int
	BreakEvenRate float64
}

func NewStatsUseCase(store domrepo.SignalStore, log *logger.Logger, cfg StatsConfig) *StatsUseCase {
	return &StatsUseCase{
		store:     store,
		log:       log,
		window:    cfg.RollingWindow,
		breakEven: cfg.BreakEvenRate,
		stats:     make(map[string]*models.Stats),
	}
}

func statsKey(symbol, tf string) string {
	return strings.ToUpper(symbol) + ":" + tf
}

// Get returns the cached stats for a pair, computing them on first use.
func (uc *StatsUseCase) Get(ctx context.Context, symbol, timeframe string) (*models.Stats, error) {
	uc.mu.RLock()
	st, ok := uc.stats[statsKey(symbol, timeframe)]
	uc.mu.RUnlock()
	if ok {
		return st, nil
	}
	return uc.Refresh(ctx, symbol, timeframe)
}

// Refresh recomputes the rolling window stats for one pair from storage.
func (uc *StatsUseCase) Refresh(ctx context.Context, symbol, timeframe string) (*models.Stats, error) {
	symbol = strings.ToUpper(symbol)
	signals, err := uc.store.Recent(ctx, symbol, timeframe, uc.window)
	if err != nil {
		return nil, fmt.Errorf("load recent signals: %w", err)
	}

	st := Compute(symbol, timeframe, signals, uc.breakEven)
	uc.mu.Lock()
	uc.stats[statsKey(symbol, timeframe)] = st
	uc.mu.Unlock()
	return st, nil
}

// RefreshAll recomputes stats for every configured pair. Used by the cron
// job; individual pair failures are logged and skipped.
func (uc *StatsUseCase) RefreshAll(ctx context.Context, symbols, timeframes []string) {
	for _, sym := range symbols {
		for _, tf := range timeframes {
			if _, err := uc.Refresh(ctx, sym, tf); err != nil {
				uc.log.Warn("refresh stats",
					logger.String("symbol", sym),
					logger.String("timeframe", tf),
					logger.Error(err))
			}
		}
	}
}

// Compute builds the stats for a pair from a batch of recent signals.
func Compute(symbol, timeframe string, signals []*models.Signal, breakEven float64) *models.Stats {
	st := &models.Stats{
		Symbol:       symbol,
		Timeframe:    timeframe,
		SignalsCount: len(signals),
		UpdatedAt:    time.Now().UTC(),
	}
	for _, s := range signals {
		if s.Verdict == nil {
			continue
		}
		switch *s.Verdict {
		case models.VerdictWin:
			st.Wins++
		case models.VerdictLoss:
			st.Losses++
		case models.VerdictSkip:
			st.Skips++
		}
	}
	st.ComputeWinRate(breakEven)
	return st
}

// Performance aggregates settled outcomes for a pair over the last N days.
// Win rate here counts skips against the trader, unlike the rolling window.
func (uc *StatsUseCase) Performance(ctx context.Context, symbol, timeframe string, days int) (*models.PerformanceStats, error) {
	symbol = strings.ToUpper(symbol)
	now := time.Now().UTC()
	signals, err := uc.store.Between(ctx, symbol, timeframe, now.AddDate(0, 0, -days), now)
	if err != nil {
		return nil, fmt.Errorf("load signals for period: %w", err)
	}

	perf := &models.PerformanceStats{
		Symbol:       symbol,
		Timeframe:    timeframe,
		TotalSignals: len(signals),
		PeriodDays:   days,
	}
	var holdTotal float64
	var held int
	for _, s := range signals {
		holdTotal += s.ExpireAt.Sub(s.EnterAt).Seconds()
		held++
		if s.Verdict == nil {
			continue
		}
		switch *s.Verdict {
		case models.VerdictWin:
			perf.Wins++
		case models.VerdictLoss:
			perf.Losses++
		case models.VerdictSkip:
			perf.Skips++
		}
	}
	if settled := perf.Wins + perf.Losses + perf.Skips; settled > 0 {
		perf.WinRate = float64(perf.Wins) / float64(settled)
	}
	if held > 0 {
		perf.AvgHoldTime = holdTotal / float64(held)
	}
	return perf, nil
}

// MarketHours buckets settled signals by the UTC hour they were generated,
// so the UI can show which sessions a pair performs best in.
func (uc *StatsUseCase) MarketHours(ctx context.Context, symbol, timeframe string) (map[int]*models.HourBucket, error) {
	symbol = strings.ToUpper(symbol)
	signals, err := uc.store.Between(ctx, symbol, timeframe, time.Time{}, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("load signals for market hours: %w", err)
	}

	buckets := make(map[int]*models.HourBucket)
	for _, s := range signals {
		hour := s.Timestamp.UTC().Hour()
		b, ok := buckets[hour]
		if !ok {
			b = &models.HourBucket{}
			buckets[hour] = b
		}
		b.Total++
		if s.Verdict == nil {
			continue
		}
		switch *s.Verdict {
		case models.VerdictWin:
			b.Wins++
		case models.VerdictLoss:
			b.Losses++
		}
	}
	for _, b := range buckets {
		if decided := b.Wins + b.Losses; decided > 0 {
			b.WinRate = float64(b.Wins) / float64(decided)
		}
	}
	return buckets, nil
}
