package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without brokers.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishLoginSucceeded logs auth.login.succeeded events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event *domain.LoginSucceededEvent) error {
	payload := map[string]any{
		"user_id":      event.IdentityID,
		"email":        event.Email,
		"logged_in_at": event.LoggedInAt,
		"ip_address":   event.IPAddress,
		"metadata":     event.Metadata,
	}
	p.logEvent("auth.login.succeeded", event.IdentityID, event.LoggedInAt, payload)
	return nil
}

// PublishPasswordResetRequested logs auth.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event *domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"user_id":            event.IdentityID,
		"request_id":         event.RequestID,
		"requested_at":       event.RequestedAt,
		"masked_destination": event.MaskedDestination,
		"ip_address":         event.IPAddress,
		"expires_at":         event.ExpiresAt,
		"metadata":           event.Metadata,
	}
	p.logEvent("auth.password.reset_requested", event.IdentityID, event.RequestedAt, payload)
	return nil
}

// PublishPasswordChanged logs auth.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event *domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"user_id":        event.IdentityID,
		"changed_at":     event.ChangedAt,
		"changed_by":     event.ChangedBy,
		"tokens_revoked": event.TokensRevoked,
		"metadata":       event.Metadata,
	}
	p.logEvent("auth.password.changed", event.IdentityID, event.ChangedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
