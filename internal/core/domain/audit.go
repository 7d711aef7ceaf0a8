package domain

import "time"

// AuditAction enumerates the security-relevant transitions recorded in the
// audit log.
type AuditAction string

const (
	AuditActionLogin                AuditAction = "login"
	AuditActionLogout               AuditAction = "logout"
	AuditActionFailedLogin          AuditAction = "failed-login"
	AuditActionPasswordResetRequest AuditAction = "password-reset-request"
	AuditActionPasswordReset        AuditAction = "password-reset"
	AuditActionFailedPasswordReset  AuditAction = "failed-password-reset"
	AuditActionRateLimited          AuditAction = "rate-limited"
)

// AuditLogEntry is an immutable record of a security event. UserID and Email
// are nil when the actor is unknown (e.g. a failed login for an address that
// does not resolve to an account).
type AuditLogEntry struct {
	ID           string
	Action       AuditAction
	UserID       *string
	Email        *string
	IPAddress    string
	RawUserAgent string
	Metadata     map[string]any
	CreatedAt    time.Time
}
