// Package email provides Notification Sink implementations.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/port"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/config"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/logger"
)

const sendTimeout = 30 * time.Second

// MailgunSink delivers password reset links through Mailgun.
type MailgunSink struct {
	client *mailgun.MailgunImpl
	sender string
	log    *zap.Logger
}

// NewMailgunSink validates the configuration and constructs the sink.
func NewMailgunSink(cfg config.MailSettings, log *zap.Logger) (*MailgunSink, error) {
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.Sender == "" {
		return nil, errors.New("mailgun: domain, api key, and sender are required")
	}

	return &MailgunSink{
		client: mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey),
		sender: cfg.Sender,
		log:    log,
	}, nil
}

// SendPasswordResetLink mails the reset link built from the callback URL,
// token, and recipient address.
func (s *MailgunSink) SendPasswordResetLink(ctx context.Context, recipient, token, callbackURL string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	link := BuildResetLink(callbackURL, token, recipient)

	subject := "Reset your password"
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Open the link below to choose a new password. The link expires soon and can be used once.\n\n%s\n\n"+
			"If you did not request this, you can ignore this message.",
		link,
	)

	message := s.client.NewMessage(s.sender, subject, body, recipient)

	_, id, err := s.client.Send(ctx, message)
	if err != nil {
		s.log.Error("mailgun send failed",
			zap.String("recipient", logger.MaskEmail(recipient)),
			zap.Error(err),
		)
		return fmt.Errorf("send reset email: %w", err)
	}

	s.log.Info("reset email queued",
		zap.String("recipient", logger.MaskEmail(recipient)),
		zap.String("message_id", id),
	)
	return nil
}

// BuildResetLink appends the token and email to the callback URL.
func BuildResetLink(callbackURL, token, recipient string) string {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return callbackURL
	}

	q := u.Query()
	q.Set("token", token)
	q.Set("email", recipient)
	u.RawQuery = q.Encode()

	return u.String()
}

var _ port.NotificationSink = (*MailgunSink)(nil)
