package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"tradevision/pkg/logger"
)

// SMTPMailer sends account emails over plain SMTP with AUTH. When no host
// is configured it logs the would-be email and succeeds, which keeps local
// development working without a relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	baseURL  string
	log      *logger.Logger
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	BaseURL  string
}

func New(cfg Config, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		fromName: cfg.FromName,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		log:      log,
	}
}

// SendVerification mails the email-verification link for token.
func (m *SMTPMailer) SendVerification(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/api/auth/verify-email/%s", m.baseURL, token)

	if m.host == "" {
		m.log.Info("smtp not configured, skipping verification email",
			logger.String("to", to),
			logger.String("link", link))
		return nil
	}

	subject := "Verify your email"
	body := fmt.Sprintf(
		"Welcome!\r\n\r\nConfirm your email address by opening the link below:\r\n\r\n%s\r\n\r\nIf you did not sign up, ignore this message.\r\n",
		link)

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", m.fromName, m.from),
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send verification email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
