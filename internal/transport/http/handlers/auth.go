package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/transport/http/middleware"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/usecase"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication routes, applying optional middleware
// ahead of handlers.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, authMiddleware gin.HandlerFunc, loginMiddlewares []gin.HandlerFunc, meMiddlewares []gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
	chain = append(chain, h.Login)
	r.POST("/login", chain...)

	r.POST("/logout", authMiddleware, h.Logout)

	meChain := []gin.HandlerFunc{authMiddleware}
	meChain = append(meChain, meMiddlewares...)
	meChain = append(meChain, h.Me)
	r.GET("/me", meChain...)
}

// Login verifies credentials and issues a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	input := usecase.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	result, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid email or password"},
			{Err: usecase.ErrAccountSuspended, Status: http.StatusForbidden, Message: "account is suspended"},
			{Err: usecase.ErrAccountInactive, Status: http.StatusForbidden, Message: "account is inactive"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		User:      newIdentityPayload(result.Identity),
		Message:   "Login successful",
	})
}

// Logout revokes every bearer token for the authenticated identity.
func (h *AuthHandler) Logout(c *gin.Context) {
	identity, ok := middleware.GetAuthenticatedIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	req := usecase.RequestInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	if err := h.auth.Logout(c.Request.Context(), identity, req); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
}

// Me returns the authenticated identity.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.GetAuthenticatedIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	c.JSON(http.StatusOK, newIdentityPayload(identity))
}
