package port

import "context"

// NotificationSink delivers user-facing notifications. The core hands over
// the raw reset token exactly once; the sink owns formatting and transport.
type NotificationSink interface {
	SendPasswordResetLink(ctx context.Context, recipient string, token string, callbackURL string) error
}
