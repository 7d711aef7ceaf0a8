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

const (
	defaultResetTTL       = time.Hour
	resetTokenByteLength  = 32
	resetRateLimitScope   = "password_reset"
	passwordResetReason   = "password_reset"
	defaultResetRateLimit = 3
)

// PasswordResetService coordinates reset initiation and completion. A reset
// ticket is keyed by email, single-use, and superseded by any newer request.
type PasswordResetService struct {
	identities port.IdentityDirectory
	tickets    port.ResetTicketStore
	tokens     *TokenManager
	limiter    *RateLimiter
	sink       port.NotificationSink
	events     port.EventPublisher
	audit      *AuditLogger
	tx         port.TxManager
	validator  *security.PasswordValidator
	logger     *zap.Logger

	now            func() time.Time
	resetTTL       time.Duration
	rateLimitMax   int
	rateLimitWin   time.Duration
	callbackURL    string
	minPasswordLen int
	minScore       int
}

// PasswordResetRequestInput carries the payload to initiate a reset.
type PasswordResetRequestInput struct {
	Email     string
	IP        string
	UserAgent string
}

// PasswordResetConfirmInput carries the payload to finalize a reset.
type PasswordResetConfirmInput struct {
	Email                   string
	Token                   string
	NewPassword             string
	NewPasswordConfirmation string
	IP                      string
	UserAgent               string
}

// PasswordResetConfirmResult describes a completed reset.
type PasswordResetConfirmResult struct {
	IdentityID    string
	ChangedAt     time.Time
	TokensRevoked int
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(
	identities port.IdentityDirectory,
	tickets port.ResetTicketStore,
	tokens *TokenManager,
	limiter *RateLimiter,
	sink port.NotificationSink,
	events port.EventPublisher,
	audit *AuditLogger,
	tx port.TxManager,
	logger *zap.Logger,
) *PasswordResetService {
	if logger == nil {
		logger = zap.NewNop()
	}

	svc := &PasswordResetService{
		identities:     identities,
		tickets:        tickets,
		tokens:         tokens,
		limiter:        limiter,
		sink:           sink,
		events:         events,
		audit:          audit,
		tx:             tx,
		logger:         logger,
		now:            time.Now,
		resetTTL:       defaultResetTTL,
		rateLimitMax:   defaultResetRateLimit,
		rateLimitWin:   time.Minute,
		minPasswordLen: 8,
		minScore:       2,
	}
	svc.validator = svc.buildValidator("")

	return svc
}

// WithClock overrides the clock for deterministic tests.
func (s *PasswordResetService) WithClock(clock func() time.Time) *PasswordResetService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithTTL overrides the ticket TTL.
func (s *PasswordResetService) WithTTL(ttl time.Duration) *PasswordResetService {
	if ttl > 0 {
		s.resetTTL = ttl
	}
	return s
}

// WithRateLimit overrides the per-email reset request budget.
func (s *PasswordResetService) WithRateLimit(max int, window time.Duration) *PasswordResetService {
	if max > 0 {
		s.rateLimitMax = max
	}
	if window > 0 {
		s.rateLimitWin = window
	}
	return s
}

// WithCallbackURL sets the base URL embedded in reset links.
func (s *PasswordResetService) WithCallbackURL(url string) *PasswordResetService {
	s.callbackURL = strings.TrimSpace(url)
	return s
}

// WithMinScore overrides the zxcvbn floor for new passwords.
func (s *PasswordResetService) WithMinScore(score int) *PasswordResetService {
	if score >= 0 {
		s.minScore = score
	}
	return s
}

// RequestReset rate limits per email, mints a single-use ticket superseding
// any prior one, and hands the raw token to the notification sink. An
// unknown email returns ErrIdentityNotFound; the transport hides that from
// the caller to prevent account enumeration.
func (s *PasswordResetService) RequestReset(ctx context.Context, input PasswordResetRequestInput) error {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return fmt.Errorf("email is required")
	}

	now := s.now().UTC()
	req := RequestInfo{IP: input.IP, UserAgent: input.UserAgent}

	if s.limiter != nil && s.rateLimitMax > 0 {
		key := fmt.Sprintf("%s|%s", resetRateLimitScope, email)
		decision := s.limiter.Attempt(ctx, key, s.rateLimitMax, s.rateLimitWin)
		if !decision.Allowed {
			s.audit.LogRateLimited(ctx, email, req, map[string]any{"type": resetRateLimitScope})
			return &RateLimitExceededError{
				Scope:      resetRateLimitScope,
				Limit:      decision.Limit,
				Remaining:  decision.Remaining,
				RetryAfter: decision.RetryAfter,
			}
		}
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("lookup identity: %w", err)
	}

	raw, err := security.GenerateSecureToken(resetTokenByteLength)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	ticket := &domain.PasswordResetTicket{
		Email:     identity.Email,
		TokenHash: security.HashToken(raw),
		CreatedAt: now,
	}
	if err := s.tickets.Upsert(ctx, ticket); err != nil {
		return fmt.Errorf("store reset ticket: %w", err)
	}

	if s.sink != nil {
		if err := s.sink.SendPasswordResetLink(ctx, identity.Email, raw, s.callbackURL); err != nil {
			// The ticket stays valid; delivery can be retried by requesting
			// again, which supersedes it.
			s.logger.Error("reset notification delivery failed",
				zap.String("user_id", identity.ID),
				zap.Error(err),
			)
		}
	}

	s.audit.LogPasswordResetRequest(ctx, identity, email, req)
	s.publishResetRequestedEvent(ctx, identity, now, input.IP, input.UserAgent)

	return nil
}

// CompleteReset validates the ticket and the proposed password, then applies
// the password update, revokes every bearer token, and consumes the ticket
// inside a single transaction. No partial state survives a failure.
func (s *PasswordResetService) CompleteReset(ctx context.Context, input PasswordResetConfirmInput) (*PasswordResetConfirmResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	token := strings.TrimSpace(input.Token)
	if token == "" {
		return nil, ErrResetTicketInvalid
	}

	newPassword := input.NewPassword
	if newPassword == "" {
		return nil, fmt.Errorf("%w: new password is required", ErrNewPasswordInvalid)
	}
	if newPassword != input.NewPasswordConfirmation {
		return nil, ErrPasswordMismatch
	}

	req := RequestInfo{IP: input.IP, UserAgent: input.UserAgent}

	ticket, err := s.tickets.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.audit.LogFailedPasswordReset(ctx, email, "ticket_not_found", req)
			return nil, ErrResetTicketInvalid
		}
		return nil, fmt.Errorf("lookup reset ticket: %w", err)
	}

	if !security.TokenHashesEqual(security.HashToken(token), ticket.TokenHash) {
		s.audit.LogFailedPasswordReset(ctx, email, "token_mismatch", req)
		return nil, ErrResetTicketInvalid
	}

	now := s.now().UTC()
	if ticket.Expired(s.resetTTL, now) {
		s.audit.LogFailedPasswordReset(ctx, email, "ticket_expired", req)
		return nil, ErrResetTicketExpired
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrResetTicketInvalid
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	if err := s.buildValidator(identity.Email).Validate(newPassword); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNewPasswordInvalid, err)
	}

	hashed, err := security.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash new password: %w", err)
	}

	tokensRevoked := 0
	apply := func(txCtx context.Context) error {
		if err := s.identities.UpdatePassword(txCtx, identity.ID, hashed, now); err != nil {
			return fmt.Errorf("update password: %w", err)
		}

		revoked, err := s.tokens.RevokeAll(txCtx, identity.ID)
		if err != nil {
			return err
		}
		tokensRevoked = revoked

		if err := s.tickets.Delete(txCtx, email); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Lost the race against a concurrent completion; the ticket
				// was already consumed.
				return ErrResetTicketInvalid
			}
			return fmt.Errorf("consume reset ticket: %w", err)
		}

		return nil
	}

	if s.tx != nil {
		err = s.tx.WithinTx(ctx, apply)
	} else {
		err = apply(ctx)
	}
	if err != nil {
		return nil, err
	}

	s.audit.LogPasswordReset(ctx, identity, req)
	s.publishPasswordChangedEvent(ctx, identity, now, tokensRevoked)

	return &PasswordResetConfirmResult{
		IdentityID:    identity.ID,
		ChangedAt:     now,
		TokensRevoked: tokensRevoked,
	}, nil
}

func (s *PasswordResetService) buildValidator(email string) *security.PasswordValidator {
	userInputs := []string{}
	if email != "" {
		userInputs = append(userInputs, email)
	}
	return security.NewPasswordValidator(
		security.MinLengthRule(s.minPasswordLen),
		security.RequirePasswordStrengthRule(s.minScore, userInputs...),
	)
}

func (s *PasswordResetService) publishResetRequestedEvent(ctx context.Context, identity *domain.Identity, at time.Time, ip, userAgent string) {
	if s.events == nil {
		return
	}

	metadata := map[string]any{}
	if ua := strings.TrimSpace(userAgent); ua != "" {
		metadata["user_agent"] = ua
	}

	event := &domain.PasswordResetRequestedEvent{
		EventID:           uuid.NewString(),
		IdentityID:        identity.ID,
		RequestID:         uuid.NewString(),
		RequestedAt:       at,
		Destination:       identity.Email,
		MaskedDestination: maskDestination(identity.Email),
		IPAddress:         stringPtrOrNil(ip),
		ExpiresAt:         at.Add(s.resetTTL),
		Metadata:          metadataCopy(metadata),
	}

	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.logger.Warn("publish password reset requested failed", zap.String("user_id", identity.ID), zap.Error(err))
	}
}

func (s *PasswordResetService) publishPasswordChangedEvent(ctx context.Context, identity *domain.Identity, at time.Time, tokensRevoked int) {
	if s.events == nil {
		return
	}

	event := &domain.PasswordChangedEvent{
		EventID:       uuid.NewString(),
		IdentityID:    identity.ID,
		ChangedAt:     at,
		ChangedBy:     identity.ID,
		TokensRevoked: tokensRevoked,
		Metadata:      map[string]any{"source": passwordResetReason},
	}

	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed", zap.String("user_id", identity.ID), zap.Error(err))
	}
}

func maskDestination(email string) string {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return ""
	}

	if idx := strings.Index(trimmed, "@"); idx > 0 {
		local := trimmed[:idx]
		domainPart := trimmed[idx:]
		if len(local) <= 3 {
			return "***" + domainPart
		}
		return local[:3] + "***" + domainPart
	}

	if len(trimmed) <= 3 {
		return "***"
	}
	return trimmed[:3] + "***"
}
