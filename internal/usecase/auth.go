package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/port"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/security"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/repository"
)

// AuthService coordinates credential verification, token issuance, and the
// audit trail around both.
type AuthService struct {
	identities port.IdentityDirectory
	tokens     *TokenManager
	audit      *AuditLogger
	events     port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// LoginInput carries the credentials and request context for a login.
type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// LoginResult is the successful outcome of a login.
type LoginResult struct {
	Token    string
	Identity *domain.Identity
}

// NewAuthService constructs an AuthService.
func NewAuthService(identities port.IdentityDirectory, tokens *TokenManager, audit *AuditLogger, events port.EventPublisher, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		identities: identities,
		tokens:     tokens,
		audit:      audit,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the clock for deterministic tests.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Login verifies the credentials and issues a bearer token. Account status
// is checked only after the password verifies, so a suspension probe cannot
// distinguish a wrong password from a suspended account without knowing the
// password.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if input.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	req := RequestInfo{IP: input.IP, UserAgent: input.UserAgent}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.audit.LogFailedLogin(ctx, nil, email, req)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	ok, err := security.VerifyPassword(input.Password, identity.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.audit.LogFailedLogin(ctx, identity, email, req)
		return nil, ErrInvalidCredentials
	}

	switch identity.Status {
	case domain.IdentityStatusActive:
	case domain.IdentityStatusSuspended:
		s.audit.LogFailedLogin(ctx, identity, email, req)
		return nil, ErrAccountSuspended
	default:
		s.audit.LogFailedLogin(ctx, identity, email, req)
		return nil, ErrAccountInactive
	}

	now := s.now().UTC()
	if err := s.identities.RecordLogin(ctx, identity.ID, now, stringPtrOrNil(input.IP)); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	identity.LastLoginAt = &now
	identity.LastLoginIP = stringPtrOrNil(input.IP)

	token, err := s.tokens.Issue(ctx, identity, req)
	if err != nil {
		return nil, err
	}

	s.audit.LogLogin(ctx, identity, req)
	s.publishLoginEvent(ctx, identity, now, input.IP)

	sanitized := *identity
	sanitized.PasswordHash = ""

	return &LoginResult{Token: token, Identity: &sanitized}, nil
}

// Logout revokes every bearer token for the identity. Calling it for an
// identity with no live tokens still succeeds.
func (s *AuthService) Logout(ctx context.Context, identity *domain.Identity, req RequestInfo) error {
	if identity == nil || identity.ID == "" {
		return fmt.Errorf("identity is required")
	}

	if _, err := s.tokens.RevokeAll(ctx, identity.ID); err != nil {
		return err
	}

	s.audit.LogLogout(ctx, identity, req)
	return nil
}

func (s *AuthService) publishLoginEvent(ctx context.Context, identity *domain.Identity, at time.Time, ip string) {
	if s.events == nil {
		return
	}

	event := &domain.LoginSucceededEvent{
		EventID:    uuid.NewString(),
		IdentityID: identity.ID,
		Email:      identity.Email,
		LoggedInAt: at,
		IPAddress:  stringPtrOrNil(ip),
	}

	if err := s.events.PublishLoginSucceeded(ctx, event); err != nil {
		s.logger.Warn("publish login event failed", zap.String("user_id", identity.ID), zap.Error(err))
	}
}
