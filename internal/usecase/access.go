package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tradevision/internal/domain/models"
	domrepo "tradevision/internal/domain/repository"
	"tradevision/pkg/logger"
)

var (
	ErrTraderNotFound  = errors.New("trader id not found under our affiliate link")
	ErrTraderTaken     = errors.New("trader id already linked to another account")
	ErrBrokerNotLinked = errors.New("no broker account linked")
)

// AccessUseCase derives signal access from email verification, broker
// linkage and cumulative deposits, and keeps deposits in sync with the
// affiliate API and its postbacks.
type AccessUseCase struct {
	users      domrepo.UserStore
	broker     domrepo.BrokerGateway
	metrics    domrepo.Metrics
	log        *logger.Logger
	minDeposit float64
}

func NewAccessUseCase(users domrepo.UserStore, broker domrepo.BrokerGateway, metrics domrepo.Metrics, log *logger.Logger, minDeposit float64) *AccessUseCase {
	return &AccessUseCase{users: users, broker: broker, metrics: metrics, log: log, minDeposit: minDeposit}
}

// Status answers the access gate for one user.
func (uc *AccessUseCase) Status(ctx context.Context, email string) (*models.AccessStatus, error) {
	user, err := uc.users.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	st := models.AccessStatusFor(user, uc.minDeposit)
	return &st, nil
}

// LinkBroker verifies a trader id against the affiliate API and attaches
// it to the account, then pulls the current deposit total.
func (uc *AccessUseCase) LinkBroker(ctx context.Context, email, traderID string) (*models.AccessStatus, error) {
	traderID = strings.TrimSpace(traderID)
	if traderID == "" {
		return nil, ErrTraderNotFound
	}
	user, err := uc.users.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	switch other, err := uc.users.ByTraderID(ctx, traderID); {
	case err == nil && other.ID != user.ID:
		return nil, ErrTraderTaken
	case err != nil && !errors.Is(err, domrepo.ErrNotFound):
		return nil, fmt.Errorf("check trader id: %w", err)
	}

	registered, err := uc.broker.VerifyTrader(ctx, traderID)
	if err != nil {
		return nil, fmt.Errorf("verify trader: %w", err)
	}
	if !registered {
		return nil, ErrTraderNotFound
	}
	if err := uc.users.LinkBroker(ctx, user.ID, traderID); err != nil {
		if errors.Is(err, domrepo.ErrDuplicate) {
			return nil, ErrTraderTaken
		}
		return nil, fmt.Errorf("link broker: %w", err)
	}
	user.TraderID = &traderID
	user.BrokerVerified = true

	if total, err := uc.broker.TotalDeposit(ctx, traderID); err == nil {
		uc.applyDeposit(ctx, user, total)
	} else {
		uc.log.Warn("initial deposit fetch", logger.String("trader_id", traderID), logger.Error(err))
	}

	uc.log.Info("broker linked",
		logger.String("email", user.Email),
		logger.String("trader_id", traderID))
	st := models.AccessStatusFor(user, uc.minDeposit)
	return &st, nil
}

// RefreshBalance re-reads the deposit total from the affiliate API.
func (uc *AccessUseCase) RefreshBalance(ctx context.Context, email string) (*models.AccessStatus, error) {
	user, err := uc.users.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.TraderID == nil {
		return nil, ErrBrokerNotLinked
	}
	total, err := uc.broker.TotalDeposit(ctx, *user.TraderID)
	if err != nil {
		return nil, fmt.Errorf("fetch deposit: %w", err)
	}
	uc.applyDeposit(ctx, user, total)

	st := models.AccessStatusFor(user, uc.minDeposit)
	return &st, nil
}

// Postback is one affiliate callback from the broker. Flags arrive as
// "1"/"true" strings on the query.
type Postback struct {
	ClickID      string
	TraderID     string
	SumDep       float64
	TotalDep     float64
	Registration bool
	Confirmation bool
	FirstDeposit bool
	Deposit      bool
	Raw          string
}

// ParsePostbackValue parses a "1"/"true" style postback flag.
func ParsePostbackValue(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true"
}

// ParsePostbackAmount parses a decimal amount, tolerating empty values.
func ParsePostbackAmount(v string) float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

// HandlePostback applies an affiliate postback. Postbacks for trader ids
// we have never seen are acknowledged and dropped; the broker retries
// otherwise.
func (uc *AccessUseCase) HandlePostback(ctx context.Context, pb Postback) error {
	action := pb.Action()
	if pb.TraderID == "" {
		uc.metrics.RecordPostback(action, "rejected")
		return fmt.Errorf("postback without trader_id")
	}

	user, err := uc.users.ByTraderID(ctx, pb.TraderID)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			uc.metrics.RecordPostback(action, "unmatched")
			uc.logPostback(ctx, pb, action, nil)
			uc.log.Debug("postback for unknown trader",
				logger.String("trader_id", pb.TraderID),
				logger.String("action", action))
			return nil
		}
		uc.metrics.RecordPostback(action, "error")
		return fmt.Errorf("load user: %w", err)
	}
	uc.logPostback(ctx, pb, action, &user.ID)

	if pb.Deposit || pb.FirstDeposit {
		total := pb.TotalDep
		if total < user.TotalDeposit {
			// Postbacks can arrive out of order; deposits never shrink.
			total = user.TotalDeposit
		}
		uc.applyDeposit(ctx, user, total)
	}

	uc.metrics.RecordPostback(action, "ok")
	uc.log.Info("postback processed",
		logger.String("trader_id", pb.TraderID),
		logger.String("action", action),
		logger.Float64("total_deposit", user.TotalDeposit))
	return nil
}

// Action names the postback for logs and metrics.
func (pb Postback) Action() string {
	switch {
	case pb.FirstDeposit:
		return "ftd"
	case pb.Deposit:
		return "dep"
	case pb.Confirmation:
		return "conf"
	case pb.Registration:
		return "reg"
	default:
		return "unknown"
	}
}

// logPostback records the raw callback for reconciliation. Failures are
// logged and do not block processing.
func (uc *AccessUseCase) logPostback(ctx context.Context, pb Postback, action string, userID *int64) {
	entry := &models.PostbackLog{
		UserID:       userID,
		EventType:    action,
		TraderID:     pb.TraderID,
		ClickID:      pb.ClickID,
		DepositSum:   pb.SumDep,
		TotalDeposit: pb.TotalDep,
		RawQuery:     pb.Raw,
	}
	if err := uc.users.LogPostback(ctx, entry); err != nil {
		uc.log.Warn("record postback", logger.String("trader_id", pb.TraderID), logger.Error(err))
	}
}

// CheckBalance fetches the live deposit total for a trader id. When the id
// belongs to the caller's linked account the stored total is updated too.
func (uc *AccessUseCase) CheckBalance(ctx context.Context, email, traderID string) (*models.AccessStatus, error) {
	traderID = strings.TrimSpace(traderID)
	if traderID == "" {
		return nil, ErrTraderNotFound
	}
	user, err := uc.users.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	total, err := uc.broker.TotalDeposit(ctx, traderID)
	if err != nil {
		return nil, fmt.Errorf("fetch deposit: %w", err)
	}
	if user.TraderID != nil && *user.TraderID == traderID {
		uc.applyDeposit(ctx, user, total)
	}

	st := models.AccessStatusFor(user, uc.minDeposit)
	st.Balance = total
	st.HasMinDeposit = total >= uc.minDeposit
	return &st, nil
}

func (uc *AccessUseCase) applyDeposit(ctx context.Context, user *models.User, total float64) {
	level := models.LevelForDeposit(total)
	if err := uc.users.UpdateDeposit(ctx, user.ID, total, level); err != nil {
		uc.metrics.RecordError("deposit_update")
		uc.log.Warn("update deposit", logger.String("email", user.Email), logger.Error(err))
		return
	}
	user.TotalDeposit = total
	user.AccessLevel = level
}
