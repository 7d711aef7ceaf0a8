package email

import (
	"context"

	"go.uber.org/zap"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/port"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/logger"
)

// LoggingSink writes reset notifications to the log instead of sending mail.
// Used in development environments.
type LoggingSink struct {
	log *zap.Logger
}

// NewLoggingSink constructs the development sink.
func NewLoggingSink(log *zap.Logger) *LoggingSink {
	return &LoggingSink{log: log}
}

// SendPasswordResetLink logs the reset link with the token masked.
func (s *LoggingSink) SendPasswordResetLink(_ context.Context, recipient, token, callbackURL string) error {
	s.log.Info("password reset link (log sink)",
		zap.String("recipient", logger.MaskEmail(recipient)),
		zap.String("token", logger.MaskString(token)),
		zap.String("link", BuildResetLink(callbackURL, token, recipient)),
	)
	return nil
}

var _ port.NotificationSink = (*LoggingSink)(nil)
