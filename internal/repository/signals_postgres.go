package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tradevision/internal/domain/models"
	domain "tradevision/internal/domain/repository"
)

const signalsSchema = `
CREATE TABLE IF NOT EXISTS signals (
	id         BIGSERIAL PRIMARY KEY,
	symbol     TEXT NOT NULL,
	timeframe  TEXT NOT NULL,
	direction  TEXT NOT NULL,
	price      DOUBLE PRECISION NOT NULL,
	confidence DOUBLE PRECISION,
	ts         TIMESTAMPTZ NOT NULL,
	enter_at   TIMESTAMPTZ NOT NULL,
	expire_at  TIMESTAMPTZ NOT NULL,
	verdict    TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (symbol, timeframe, ts)
);
CREATE INDEX IF NOT EXISTS idx_signals_pair_ts ON signals (symbol, timeframe, ts DESC);
CREATE INDEX IF NOT EXISTS idx_signals_unsettled ON signals (expire_at) WHERE verdict IS NULL;
`

const signalColumns = `id, symbol, timeframe, direction, price, confidence, ts, enter_at, expire_at, verdict, created_at`

type signalStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSignalStore creates the Postgres-backed signal store.
func NewSignalStore(db *sqlx.DB, timeout time.Duration) domain.SignalStore {
	return &signalStore{db: db, timeout: timeout}
}

func (r *signalStore) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := r.db.ExecContext(ctx, signalsSchema); err != nil {
		return fmt.Errorf("init signals schema: %w", err)
	}
	return nil
}

func (r *signalStore) Insert(ctx context.Context, s *models.Signal) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO signals (symbol, timeframe, direction, price, confidence, ts, enter_at, expire_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		s.Symbol, s.Timeframe, s.Direction, s.Price, s.Confidence, s.Timestamp, s.EnterAt, s.ExpireAt).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (r *signalStore) Latest(ctx context.Context, symbol, timeframe string) (*models.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var s models.Signal
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY ts DESC
		LIMIT 1`
	if err := r.db.GetContext(ctx, &s, query, symbol, timeframe); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("latest signal: %w", err)
	}
	return &s, nil
}

func (r *signalStore) Recent(ctx context.Context, symbol, timeframe string, limit int) ([]*models.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var signals []*models.Signal
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY ts DESC
		LIMIT $3`
	if err := r.db.SelectContext(ctx, &signals, query, symbol, timeframe, limit); err != nil {
		return nil, fmt.Errorf("recent signals: %w", err)
	}
	return signals, nil
}

func (r *signalStore) Between(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]*models.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var signals []*models.Signal
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE symbol = $1 AND timeframe = $2 AND ts >= $3 AND ts <= $4
		ORDER BY ts ASC`
	if err := r.db.SelectContext(ctx, &signals, query, symbol, timeframe, from, to); err != nil {
		return nil, fmt.Errorf("signals between: %w", err)
	}
	return signals, nil
}

func (r *signalStore) Settle(ctx context.Context, id int64, verdict models.Verdict) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE signals SET verdict = $1 WHERE id = $2 AND verdict IS NULL`, verdict, id)
	if err != nil {
		return fmt.Errorf("settle signal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *signalStore) UnsettledExpiredBefore(ctx context.Context, cutoff time.Time) ([]*models.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var signals []*models.Signal
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE verdict IS NULL AND expire_at < $1
		ORDER BY expire_at ASC`
	if err := r.db.SelectContext(ctx, &signals, query, cutoff); err != nil {
		return nil, fmt.Errorf("unsettled signals: %w", err)
	}
	return signals, nil
}

func (r *signalStore) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}

func (r *signalStore) Close() error { return r.db.Close() }
