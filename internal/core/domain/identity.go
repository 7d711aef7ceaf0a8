package domain

import "time"

// IdentityStatus enumerates possible account states.
type IdentityStatus string

const (
	IdentityStatusActive    IdentityStatus = "active"
	IdentityStatusInactive  IdentityStatus = "inactive"
	IdentityStatusSuspended IdentityStatus = "suspended"
)

// Identity mirrors the authenticable account exposed by the user directory.
// Email is the sole lookup key for authentication.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	Status       IdentityStatus
	IsAdmin      bool
	CompanyID    *string
	LastLoginAt  *time.Time
	LastLoginIP  *string
	CreatedAt    time.Time
}

// AuthToken represents a persisted bearer token (stored as a hash).
// Multiple tokens may coexist per identity; logout removes all of them.
type AuthToken struct {
	ID         string
	IdentityID string
	TokenHash  string
	IP         *string
	UserAgent  *string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// PasswordResetTicket is a single-use, time-bound reset credential keyed by
// email. Creating a new ticket for an email supersedes any prior one.
type PasswordResetTicket struct {
	Email     string
	TokenHash string
	CreatedAt time.Time
}

// Expired reports whether the ticket is older than the supplied TTL.
func (t PasswordResetTicket) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.After(t.CreatedAt.Add(ttl))
}
