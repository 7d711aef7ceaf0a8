package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive indicates the account is disabled.
	ErrAccountInactive = errors.New("account is not active")
	// ErrAccountSuspended indicates the account was suspended by an administrator.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrIdentityNotFound indicates no identity exists for the supplied email.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrInvalidToken indicates the presented bearer token does not resolve to an identity.
	ErrInvalidToken = errors.New("invalid token")
	// ErrResetTicketInvalid indicates the supplied reset token is invalid or already used.
	ErrResetTicketInvalid = errors.New("password reset token invalid")
	// ErrResetTicketExpired indicates the supplied reset token has expired.
	ErrResetTicketExpired = errors.New("password reset token expired")
	// ErrNewPasswordInvalid indicates the proposed password violates policy.
	ErrNewPasswordInvalid = errors.New("new password does not meet requirements")
	// ErrPasswordMismatch indicates the confirmation does not match the new password.
	ErrPasswordMismatch = errors.New("password confirmation does not match")
)

// RateLimitExceededError carries the throttle scope, the exhausted budget,
// and the wait before the window reopens.
type RateLimitExceededError struct {
	Scope      string
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Error implements error for RateLimitExceededError.
func (e *RateLimitExceededError) Error() string {
	if e == nil {
		return "rate limit exceeded"
	}
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Scope, e.RetryAfter)
}

func stringPtr(value string) *string {
	return &value
}

func stringPtrOrNil(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return stringPtr(trimmed)
}

func metadataCopy(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
