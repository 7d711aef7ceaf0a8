package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// IdentityPayload describes a minimal view of an account returned by the API.
type IdentityPayload struct {
	ID          string                `json:"id"`
	Email       string                `json:"email"`
	Status      domain.IdentityStatus `json:"status"`
	IsAdmin     bool                  `json:"is_admin"`
	CompanyID   *string               `json:"company_id,omitempty"`
	LastLoginAt *time.Time            `json:"last_login_at,omitempty"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	Token     string          `json:"token"`
	TokenType string          `json:"token_type"`
	User      IdentityPayload `json:"user"`
	Message   string          `json:"message"`
}

// PasswordResetRequestBody represents a password reset initiation payload.
type PasswordResetRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetConfirmBody captures a password reset confirmation payload.
type PasswordResetConfirmBody struct {
	Email                   string `json:"email" binding:"required,email"`
	Token                   string `json:"token" binding:"required"`
	NewPassword             string `json:"new_password" binding:"required"`
	NewPasswordConfirmation string `json:"new_password_confirmation" binding:"required"`
}

// PasswordResetConfirmResponse indicates that a password reset completed successfully.
type PasswordResetConfirmResponse struct {
	Message       string    `json:"message"`
	ChangedAt     time.Time `json:"changed_at"`
	RevokedTokens int       `json:"revoked_tokens"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newIdentityPayload converts a domain identity to a payload suitable for API
// responses.
func newIdentityPayload(identity *domain.Identity) IdentityPayload {
	payload := IdentityPayload{
		ID:      identity.ID,
		Email:   identity.Email,
		Status:  identity.Status,
		IsAdmin: identity.IsAdmin,
	}

	if identity.CompanyID != nil {
		payload.CompanyID = identity.CompanyID
	}
	if identity.LastLoginAt != nil {
		payload.LastLoginAt = identity.LastLoginAt
	}

	return payload
}
