package repository

import (
	"context"
	"errors"
	"time"

	"tradevision/internal/domain/models"
)

// ErrDuplicate is returned by SignalStore.Insert when a signal with the
// same (symbol, timeframe, timestamp) already exists.
var ErrDuplicate = errors.New("duplicate signal")

// ErrNotFound is returned by stores when the requested row does not exist.
var ErrNotFound = errors.New("not found")

type SignalStore interface {
	Init(ctx context.Context) error // ensure tables
	Insert(ctx context.Context, s *models.Signal) error
	Latest(ctx context.Context, symbol, timeframe string) (*models.Signal, error)
	Recent(ctx context.Context, symbol, timeframe string, limit int) ([]*models.Signal, error)
	Between(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]*models.Signal, error)
	Settle(ctx context.Context, id int64, verdict models.Verdict) error
	UnsettledExpiredBefore(ctx context.Context, cutoff time.Time) ([]*models.Signal, error)
	Health(ctx context.Context) error
	Close() error
}

type UserStore interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, u *models.User) error
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByVerificationToken(ctx context.Context, token string) (*models.User, error)
	ByTraderID(ctx context.Context, traderID string) (*models.User, error)
	MarkEmailVerified(ctx context.Context, id int64) error
	SetVerificationToken(ctx context.Context, id int64, token string) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	LinkBroker(ctx context.Context, id int64, traderID string) error
	UpdateDeposit(ctx context.Context, id int64, total float64, level models.AccessLevel) error
	LogPostback(ctx context.Context, log *models.PostbackLog) error
}

type EventPublisher interface {
	Publish(ctx context.Context, ev *models.SignalEvent) error
	Close() error
}

// BrokerGateway talks to the Pocket Option affiliate API.
type BrokerGateway interface {
	VerifyTrader(ctx context.Context, traderID string) (bool, error)
	TotalDeposit(ctx context.Context, traderID string) (float64, error)
}

// Mailer sends account emails. Implementations may silently no-op when
// SMTP is not configured.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
}

type Metrics interface {
	RecordSignalIngested(symbol, timeframe string)
	RecordDuplicate(source string)
	RecordCacheOp(result string)
	RecordError(kind string)
	RecordBrokerCheck(result string)
	RecordPostback(action, status string)
	RecordVerdict(result string)
}
