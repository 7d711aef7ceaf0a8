package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/port"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/security"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/repository"
)

const tokenByteLength = 32

// TokenManager issues and resolves opaque bearer tokens. The raw token is
// returned to the caller exactly once; only its SHA-256 hash is persisted.
type TokenManager struct {
	tokens     port.TokenStore
	identities port.IdentityDirectory
	now        func() time.Time
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(tokens port.TokenStore, identities port.IdentityDirectory) *TokenManager {
	return &TokenManager{
		tokens:     tokens,
		identities: identities,
		now:        time.Now,
	}
}

// WithClock overrides the clock for deterministic tests.
func (m *TokenManager) WithClock(clock func() time.Time) *TokenManager {
	if clock != nil {
		m.now = clock
	}
	return m
}

// Issue mints a new bearer token for the identity and persists its hash.
func (m *TokenManager) Issue(ctx context.Context, identity *domain.Identity, req RequestInfo) (string, error) {
	if identity == nil || identity.ID == "" {
		return "", fmt.Errorf("identity is required")
	}

	raw, err := security.GenerateSecureToken(tokenByteLength)
	if err != nil {
		return "", fmt.Errorf("generate bearer token: %w", err)
	}

	record := &domain.AuthToken{
		ID:         uuid.NewString(),
		IdentityID: identity.ID,
		TokenHash:  security.HashToken(raw),
		IP:         stringPtrOrNil(req.IP),
		UserAgent:  stringPtrOrNil(req.UserAgent),
		CreatedAt:  m.now().UTC(),
	}

	if err := m.tokens.Create(ctx, record); err != nil {
		return "", fmt.Errorf("store bearer token: %w", err)
	}

	return raw, nil
}

// Resolve maps a raw bearer token to its identity. Unknown tokens and
// tokens whose identity vanished both yield ErrInvalidToken.
func (m *TokenManager) Resolve(ctx context.Context, raw string) (*domain.Identity, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	record, err := m.tokens.GetByHash(ctx, security.HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup bearer token: %w", err)
	}

	identity, err := m.identities.GetByID(ctx, record.IdentityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	return identity, nil
}

// RevokeAll removes every token for the identity and returns how many were
// revoked. Revoking an identity with no tokens succeeds with zero.
func (m *TokenManager) RevokeAll(ctx context.Context, identityID string) (int, error) {
	if identityID == "" {
		return 0, fmt.Errorf("identity id is required")
	}

	revoked, err := m.tokens.RevokeAllForIdentity(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("revoke tokens: %w", err)
	}

	return revoked, nil
}
