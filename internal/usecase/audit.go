package usecase

import (
	"context"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/port"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/useragent"
)

// userAgentDetailsKey is reserved in audit metadata for classifier output.
// Caller-supplied values under this key are discarded.
const userAgentDetailsKey = "user_agent_details"

// RequestInfo captures the request attributes attached to every audit entry.
type RequestInfo struct {
	IP        string
	UserAgent string
}

// AuditLogger appends security events enriched with user-agent
// classification. Persistence failures are logged and counted but never
// surface to the caller: an audit outage must not block authentication.
type AuditLogger struct {
	repo    port.AuditRepository
	logger  *zap.Logger
	onError func()
	now     func() time.Time
}

// NewAuditLogger constructs an AuditLogger.
func NewAuditLogger(repo port.AuditRepository, logger *zap.Logger) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{
		repo:    repo,
		logger:  logger,
		onError: func() {},
		now:     time.Now,
	}
}

// WithErrorHook registers a callback invoked when an entry fails to persist,
// typically a metrics counter.
func (a *AuditLogger) WithErrorHook(hook func()) *AuditLogger {
	if hook != nil {
		a.onError = hook
	}
	return a
}

// WithClock overrides the clock for deterministic tests.
func (a *AuditLogger) WithClock(clock func() time.Time) *AuditLogger {
	if clock != nil {
		a.now = clock
	}
	return a
}

// Log appends one audit entry. userID and email may be nil when the actor is
// unknown. The classifier output is merged under the reserved
// user_agent_details metadata key; a caller-supplied value under that key is
// dropped and noted at debug level.
func (a *AuditLogger) Log(ctx context.Context, action domain.AuditAction, userID *string, email *string, req RequestInfo, metadata map[string]any) {
	if a.repo == nil {
		return
	}

	merged := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		if k == userAgentDetailsKey {
			a.logger.Debug("audit metadata key collision, keeping classifier output",
				zap.String("key", userAgentDetailsKey),
			)
			continue
		}
		merged[k] = v
	}
	merged[userAgentDetailsKey] = useragent.Classify(req.UserAgent).Map()

	entry := &domain.AuditLogEntry{
		ID:           uuid.NewString(),
		Action:       action,
		UserID:       userID,
		Email:        email,
		IPAddress:    req.IP,
		RawUserAgent: req.UserAgent,
		Metadata:     merged,
		CreatedAt:    a.now().UTC(),
	}

	if err := a.repo.Append(ctx, entry); err != nil {
		a.onError()
		a.logger.Error("audit append failed",
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

// LogLogin records a successful authentication.
func (a *AuditLogger) LogLogin(ctx context.Context, identity *domain.Identity, req RequestInfo) {
	a.Log(ctx, domain.AuditActionLogin, &identity.ID, &identity.Email, req, nil)
}

// LogFailedLogin records an authentication failure. identity is nil when the
// email did not resolve to an account.
func (a *AuditLogger) LogFailedLogin(ctx context.Context, identity *domain.Identity, email string, req RequestInfo) {
	var userID *string
	if identity != nil {
		userID = &identity.ID
	}
	a.Log(ctx, domain.AuditActionFailedLogin, userID, stringPtrOrNil(email), req, nil)
}

// LogLogout records a logout.
func (a *AuditLogger) LogLogout(ctx context.Context, identity *domain.Identity, req RequestInfo) {
	a.Log(ctx, domain.AuditActionLogout, &identity.ID, &identity.Email, req, nil)
}

// LogPasswordResetRequest records a reset initiation.
func (a *AuditLogger) LogPasswordResetRequest(ctx context.Context, identity *domain.Identity, email string, req RequestInfo) {
	var userID *string
	if identity != nil {
		userID = &identity.ID
	}
	a.Log(ctx, domain.AuditActionPasswordResetRequest, userID, stringPtrOrNil(email), req, nil)
}

// LogPasswordReset records a completed reset.
func (a *AuditLogger) LogPasswordReset(ctx context.Context, identity *domain.Identity, req RequestInfo) {
	a.Log(ctx, domain.AuditActionPasswordReset, &identity.ID, &identity.Email, req, nil)
}

// LogFailedPasswordReset records a rejected reset completion, e.g. an
// unknown, mismatched, or expired token.
func (a *AuditLogger) LogFailedPasswordReset(ctx context.Context, email string, reason string, req RequestInfo) {
	a.Log(ctx, domain.AuditActionFailedPasswordReset, nil, stringPtrOrNil(email), req, map[string]any{"reason": reason})
}

// LogRateLimited records a throttle denial with the scope details.
func (a *AuditLogger) LogRateLimited(ctx context.Context, email string, req RequestInfo, metadata map[string]any) {
	a.Log(ctx, domain.AuditActionRateLimited, nil, stringPtrOrNil(email), req, metadata)
}
