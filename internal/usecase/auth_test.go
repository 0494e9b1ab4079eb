package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tradevision/internal/service/token"
	"tradevision/pkg/logger"
)

func newTestAuthUseCase(users *fakeUserStore, mail *captureMailer) (*AuthUseCase, *token.Manager) {
	tokens := token.NewManager("test-secret", time.Hour)
	// MinCost keeps the bcrypt work factor out of the test runtime.
	return NewAuthUseCase(users, tokens, mail, logger.Nop(), bcrypt.MinCost), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	users := newFakeUserStore()
	mail := &captureMailer{}
	uc, tokens := newTestAuthUseCase(users, mail)
	ctx := context.Background()

	user, err := uc.Register(ctx, " A@B.C ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", user.Email, "email must be normalized")
	assert.False(t, user.EmailVerified)
	require.Len(t, mail.sent, 1)
	assert.True(t, strings.HasPrefix(mail.sent[0], "a@b.c:"))

	tok, logged, err := uc.Login(ctx, "a@b.c", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	subject, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", subject)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	uc, _ := newTestAuthUseCase(newFakeUserStore(), &captureMailer{})
	ctx := context.Background()

	_, err := uc.Register(ctx, "a@b.c", "password123")
	require.NoError(t, err)
	_, err = uc.Register(ctx, "a@b.c", "password123")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	uc, _ := newTestAuthUseCase(newFakeUserStore(), &captureMailer{})
	ctx := context.Background()

	_, err := uc.Register(ctx, "a@b.c", "password123")
	require.NoError(t, err)

	_, _, err = uc.Login(ctx, "a@b.c", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// unknown emails fail identically so the two cases cannot be told apart
	_, _, err = uc.Login(ctx, "nobody@b.c", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyEmailFlow(t *testing.T) {
	users := newFakeUserStore()
	mail := &captureMailer{}
	uc, _ := newTestAuthUseCase(users, mail)
	ctx := context.Background()

	_, err := uc.Register(ctx, "a@b.c", "password123")
	require.NoError(t, err)
	verifyToken := strings.SplitN(mail.sent[0], ":", 2)[1]

	user, err := uc.VerifyEmail(ctx, verifyToken)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)

	// the token is single use
	_, err = uc.VerifyEmail(ctx, verifyToken)
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)

	_, err = uc.VerifyEmail(ctx, "made-up")
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)
}

func TestResendVerificationRotatesToken(t *testing.T) {
	users := newFakeUserStore()
	mail := &captureMailer{}
	uc, _ := newTestAuthUseCase(users, mail)
	ctx := context.Background()

	_, err := uc.Register(ctx, "a@b.c", "password123")
	require.NoError(t, err)
	first := strings.SplitN(mail.sent[0], ":", 2)[1]

	require.NoError(t, uc.ResendVerification(ctx, "a@b.c"))
	require.Len(t, mail.sent, 2)
	second := strings.SplitN(mail.sent[1], ":", 2)[1]
	assert.NotEqual(t, first, second)

	// the rotated token wins, the old one is dead
	_, err = uc.VerifyEmail(ctx, first)
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)
	_, err = uc.VerifyEmail(ctx, second)
	assert.NoError(t, err)

	err = uc.ResendVerification(ctx, "a@b.c")
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestChangePassword(t *testing.T) {
	uc, _ := newTestAuthUseCase(newFakeUserStore(), &captureMailer{})
	ctx := context.Background()

	_, err := uc.Register(ctx, "a@b.c", "password123")
	require.NoError(t, err)

	err = uc.ChangePassword(ctx, "a@b.c", "nope", "newpassword1")
	assert.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, uc.ChangePassword(ctx, "a@b.c", "password123", "newpassword1"))

	_, _, err = uc.Login(ctx, "a@b.c", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = uc.Login(ctx, "a@b.c", "newpassword1")
	assert.NoError(t, err)
}
