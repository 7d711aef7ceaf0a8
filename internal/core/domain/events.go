package domain

import "time"

// LoginSucceededEvent is published after a successful authentication.
type LoginSucceededEvent struct {
	EventID    string
	IdentityID string
	Email      string
	LoggedInAt time.Time
	IPAddress  *string
	Metadata   map[string]any
}

// PasswordResetRequestedEvent is published when a reset ticket is issued for
// downstream delivery and monitoring.
type PasswordResetRequestedEvent struct {
	EventID           string
	IdentityID        string
	RequestID         string
	RequestedAt       time.Time
	Destination       string
	MaskedDestination string
	IPAddress         *string
	ExpiresAt         time.Time
	Metadata          map[string]any
}

// PasswordChangedEvent is published once a reset completes and the new
// password hash is committed.
type PasswordChangedEvent struct {
	EventID       string
	IdentityID    string
	ChangedAt     time.Time
	ChangedBy     string
	TokensRevoked int
	Metadata      map[string]any
}
