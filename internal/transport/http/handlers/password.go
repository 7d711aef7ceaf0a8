package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/usecase"
)

const resetAcceptedMessage = "If the account exists, a reset link has been sent"

// PasswordHandler exposes the password reset endpoints.
type PasswordHandler struct {
	reset *usecase.PasswordResetService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(reset *usecase.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{reset: reset}
}

// RegisterRoutes binds the reset routes, applying optional middleware ahead
// of the request handler.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, requestMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, requestMiddlewares...)
	chain = append(chain, h.RequestReset)
	r.POST("/request", chain...)

	r.POST("/confirm", h.ConfirmReset)
}

// RequestReset starts the reset flow. The response is identical whether or
// not the account exists.
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	var req PasswordResetRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, NewErrorResponse(c, "a valid email is required"))
		return
	}

	input := usecase.PasswordResetRequestInput{
		Email:     req.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	err := h.reset.RequestReset(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, usecase.ErrIdentityNotFound) {
			c.JSON(http.StatusAccepted, MessageResponse{Message: resetAcceptedMessage})
			return
		}

		var rateErr *usecase.RateLimitExceededError
		if errors.As(err, &rateErr) {
			retrySeconds := int(math.Ceil(rateErr.RetryAfter.Seconds()))
			if retrySeconds > 0 {
				c.Header("Retry-After", strconv.Itoa(retrySeconds))
			}
			if rateErr.Limit > 0 {
				c.Header("X-RateLimit-Limit", strconv.Itoa(rateErr.Limit))
				c.Header("X-RateLimit-Remaining", strconv.Itoa(rateErr.Remaining))
			}
			c.JSON(http.StatusTooManyRequests, gin.H{
				"message":             "too many password reset requests",
				"retry_after":         rateErr.RetryAfter.String(),
				"seconds_until_retry": retrySeconds,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to initiate password reset"))
		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{Message: resetAcceptedMessage})
}

// ConfirmReset finalizes the reset using the emailed token.
func (h *PasswordHandler) ConfirmReset(c *gin.Context) {
	var req PasswordResetConfirmBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, NewErrorResponse(c, "invalid confirm reset payload"))
		return
	}

	input := usecase.PasswordResetConfirmInput{
		Email:                   req.Email,
		Token:                   req.Token,
		NewPassword:             req.NewPassword,
		NewPasswordConfirmation: req.NewPasswordConfirmation,
		IP:                      c.ClientIP(),
		UserAgent:               c.Request.UserAgent(),
	}

	result, err := h.reset.CompleteReset(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTicketInvalid, Status: http.StatusUnprocessableEntity, Message: "reset token is invalid"},
			{Err: usecase.ErrResetTicketExpired, Status: http.StatusUnprocessableEntity, Message: "reset token has expired"},
			{Err: usecase.ErrPasswordMismatch, Status: http.StatusUnprocessableEntity, Message: "password confirmation does not match"},
			{Err: usecase.ErrNewPasswordInvalid, Status: http.StatusUnprocessableEntity, Message: "new password does not meet requirements"},
		}, http.StatusInternalServerError, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, PasswordResetConfirmResponse{
		Message:       "Password has been reset",
		ChangedAt:     result.ChangedAt,
		RevokedTokens: result.TokensRevoked,
	})
}
