package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth validates the Authorization header and resolves the bearer
// token to an identity.
func RequireAuth(tokens *usecase.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		if !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: must start with 'Bearer'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing bearer token"))
			return
		}

		identity, err := tokens.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, usecase.ErrInvalidToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid bearer token"))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "authentication failed"))
			return
		}

		if identity.Status != domain.IdentityStatusActive {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "account is not active"))
			return
		}

		c.Set(IdentityKey, identity)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.IdentityID = identity.ID
		}

		c.Next()
	}
}

// GetAuthenticatedIdentity retrieves the resolved identity from context
// (helper for handlers).
func GetAuthenticatedIdentity(c *gin.Context) (*domain.Identity, bool) {
	val, exists := c.Get(IdentityKey)
	if !exists {
		return nil, false
	}

	identity, ok := val.(*domain.Identity)
	if !ok || identity == nil {
		return nil, false
	}

	return identity, true
}
