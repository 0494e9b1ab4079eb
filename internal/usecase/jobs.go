package usecase

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"tradevision/internal/domain/models"
	domrepo "tradevision/internal/domain/repository"
	"tradevision/pkg/logger"
)

// Jobs runs the background schedules: periodic stats refresh and the
// settlement sweep that closes out expired, never-settled signals.
type Jobs struct {
	cron      *cron.Cron
	store     domrepo.SignalStore
	stats     *StatsUseCase
	publisher domrepo.EventPublisher
	metrics   domrepo.Metrics
	log       *logger.Logger
	cfg       JobsConfig
}

type JobsConfig struct {
	StatsRefreshCron string
	SettlementCron   string
	SettlementGrace  time.Duration
	Symbols          []string
	Timeframes       []string
}

func NewJobs(
	store domrepo.SignalStore,
	stats *StatsUseCase,
	publisher domrepo.EventPublisher,
	metrics domrepo.Metrics,
	log *logger.Logger,
	cfg JobsConfig,
) *Jobs {
	return &Jobs{
		cron:      cron.New(),
		store:     store,
		stats:     stats,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		cfg:       cfg,
	}
}

// Start registers and launches the schedules.
func (j *Jobs) Start() error {
	if _, err := j.cron.AddFunc(j.cfg.StatsRefreshCron, j.refreshStats); err != nil {
		return err
	}
	if _, err := j.cron.AddFunc(j.cfg.SettlementCron, j.settleExpired); err != nil {
		return err
	}
	j.cron.Start()
	j.log.Info("background jobs started",
		logger.String("stats_cron", j.cfg.StatsRefreshCron),
		logger.String("settlement_cron", j.cfg.SettlementCron))
	return nil
}

// Stop halts the schedules and waits for running jobs.
func (j *Jobs) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Jobs) refreshStats() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	j.stats.RefreshAll(ctx, j.cfg.Symbols, j.cfg.Timeframes)
}

// settleExpired marks signals whose window closed before the grace cutoff
// and never received a verdict as skipped.
func (j *Jobs) settleExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-j.cfg.SettlementGrace)
	signals, err := j.store.UnsettledExpiredBefore(ctx, cutoff)
	if err != nil {
		j.metrics.RecordError("settlement_query")
		j.log.Error("load unsettled signals", logger.Error(err))
		return
	}
	for _, s := range signals {
		if err := j.store.Settle(ctx, s.ID, models.VerdictSkip); err != nil {
			j.metrics.RecordError("settlement")
			j.log.Warn("settle signal", logger.Int64("id", s.ID), logger.Error(err))
			continue
		}
		verdict := models.VerdictSkip
		s.Verdict = &verdict
		j.metrics.RecordVerdict(string(models.VerdictSkip))
		if err := j.publisher.Publish(ctx, models.NewSignalSettledEvent(s)); err != nil {
			j.log.Warn("publish settled event", logger.Int64("id", s.ID), logger.Error(err))
		}
	}
	if len(signals) > 0 {
		j.log.Info("settlement sweep", logger.Int("skipped", len(signals)))
	}
}
