package port

import (
	"context"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
)

// EventPublisher emits domain events to the message bus. Publish failures
// must not fail the originating operation.
type EventPublisher interface {
	PublishLoginSucceeded(ctx context.Context, event *domain.LoginSucceededEvent) error
	PublishPasswordResetRequested(ctx context.Context, event *domain.PasswordResetRequestedEvent) error
	PublishPasswordChanged(ctx context.Context, event *domain.PasswordChangedEvent) error
}
