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

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id                 BIGSERIAL PRIMARY KEY,
	email              TEXT NOT NULL UNIQUE,
	password_hash      TEXT NOT NULL,
	email_verified     BOOLEAN NOT NULL DEFAULT false,
	verification_token TEXT,
	trader_id          TEXT UNIQUE,
	broker_verified    BOOLEAN NOT NULL DEFAULT false,
	total_deposit      DOUBLE PRECISION NOT NULL DEFAULT 0,
	access_level       TEXT NOT NULL DEFAULT 'none',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_users_verification_token ON users (verification_token) WHERE verification_token IS NOT NULL;

CREATE TABLE IF NOT EXISTS postback_logs (
	id            BIGSERIAL PRIMARY KEY,
	user_id       BIGINT REFERENCES users (id),
	event_type    TEXT NOT NULL,
	trader_id     TEXT,
	click_id      TEXT,
	deposit_sum   DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_deposit DOUBLE PRECISION NOT NULL DEFAULT 0,
	raw_query     TEXT,
	received_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_postback_logs_trader ON postback_logs (trader_id);
`

type userStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewUserStore creates the Postgres-backed user store.
func NewUserStore(db *sqlx.DB, timeout time.Duration) domain.UserStore {
	return &userStore{db: db, timeout: timeout}
}

func (r *userStore) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := r.db.ExecContext(ctx, usersSchema); err != nil {
		return fmt.Errorf("init users schema: %w", err)
	}
	return nil
}

func (r *userStore) Create(ctx context.Context, u *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO users (email, password_hash, verification_token)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query, u.Email, u.PasswordHash, u.VerificationToken).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	u.AccessLevel = models.AccessNone
	return nil
}

const userColumns = `id, email, password_hash, email_verified, verification_token,
	trader_id, broker_verified, total_deposit, access_level, created_at, updated_at`

func (r *userStore) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u models.User
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s`, userColumns, where)
	if err := r.db.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *userStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email = $1", email)
}

func (r *userStore) ByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, "verification_token = $1", token)
}

func (r *userStore) ByTraderID(ctx context.Context, traderID string) (*models.User, error) {
	return r.getOne(ctx, "trader_id = $1", traderID)
}

func (r *userStore) exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userStore) MarkEmailVerified(ctx context.Context, id int64) error {
	return r.exec(ctx,
		`UPDATE users SET email_verified = true, verification_token = NULL, updated_at = now() WHERE id = $1`, id)
}

func (r *userStore) SetVerificationToken(ctx context.Context, id int64, token string) error {
	return r.exec(ctx,
		`UPDATE users SET verification_token = $1, updated_at = now() WHERE id = $2`, token, id)
}

func (r *userStore) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, id)
}

func (r *userStore) LinkBroker(ctx context.Context, id int64, traderID string) error {
	err := r.exec(ctx,
		`UPDATE users SET trader_id = $1, broker_verified = true, updated_at = now() WHERE id = $2`, traderID, id)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return domain.ErrDuplicate
	}
	return err
}

func (r *userStore) UpdateDeposit(ctx context.Context, id int64, total float64, level models.AccessLevel) error {
	return r.exec(ctx,
		`UPDATE users SET total_deposit = $1, access_level = $2, updated_at = now() WHERE id = $3`, total, level, id)
}

func (r *userStore) LogPostback(ctx context.Context, log *models.PostbackLog) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO postback_logs (user_id, event_type, trader_id, click_id, deposit_sum, total_deposit, raw_query)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, received_at`
	err := r.db.QueryRowxContext(ctx, query,
		log.UserID, log.EventType, log.TraderID, log.ClickID, log.DepositSum, log.TotalDeposit, log.RawQuery).
		Scan(&log.ID, &log.ReceivedAt)
	if err != nil {
		return fmt.Errorf("log postback: %w", err)
	}
	return nil
}
