package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tradevision/internal/domain/models"
	domrepo "tradevision/internal/domain/repository"
	"tradevision/internal/service/token"
	"tradevision/pkg/logger"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidVerifyToken = errors.New("invalid or expired verification token")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// AuthUseCase covers registration, login and email verification.
type AuthUseCase struct {
	users      domrepo.UserStore
	tokens     *token.Manager
	mailer     domrepo.Mailer
	log        *logger.Logger
	bcryptCost int
}

func NewAuthUseCase(users domrepo.UserStore, tokens *token.Manager, mailer domrepo.Mailer, log *logger.Logger, bcryptCost int) *AuthUseCase {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthUseCase{users: users, tokens: tokens, mailer: mailer, log: log, bcryptCost: bcryptCost}
}

// Register creates an unverified account and emails the verification link.
func (uc *AuthUseCase) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	verifyToken := uuid.NewString()
	user := &models.User{
		Email:             email,
		PasswordHash:      string(hash),
		VerificationToken: &verifyToken,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		if errors.Is(err, domrepo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := uc.mailer.SendVerification(ctx, email, verifyToken); err != nil {
		// The account exists; the user can ask for a resend.
		uc.log.Warn("send verification email", logger.String("email", email), logger.Error(err))
	}
	uc.log.Info("user registered", logger.String("email", email))
	return user, nil
}

// Login checks credentials and issues a bearer token.
func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = normalizeEmail(email)

	user, err := uc.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	tok, err := uc.tokens.Generate(user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return tok, user, nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (uc *AuthUseCase) VerifyEmail(ctx context.Context, verifyToken string) (*models.User, error) {
	user, err := uc.users.ByVerificationToken(ctx, verifyToken)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return nil, ErrInvalidVerifyToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := uc.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	user.EmailVerified = true
	user.VerificationToken = nil
	uc.log.Info("email verified", logger.String("email", user.Email))
	return user, nil
}

// ResendVerification rotates the verification token and re-sends the email.
func (uc *AuthUseCase) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := uc.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	verifyToken := uuid.NewString()
	if err := uc.users.SetVerificationToken(ctx, user.ID, verifyToken); err != nil {
		return fmt.Errorf("rotate token: %w", err)
	}
	if err := uc.mailer.SendVerification(ctx, email, verifyToken); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// ChangePassword verifies the current password and stores a new hash.
func (uc *AuthUseCase) ChangePassword(ctx context.Context, email, current, next string) error {
	user, err := uc.users.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), uc.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := uc.users.SetPasswordHash(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	uc.log.Info("password changed", logger.String("email", user.Email))
	return nil
}

// CurrentUser loads the account behind a bearer token subject.
func (uc *AuthUseCase) CurrentUser(ctx context.Context, email string) (*models.User, error) {
	user, err := uc.users.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
