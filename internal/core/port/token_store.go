package port

import (
	"context"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
)

// TokenStore persists opaque bearer tokens by hash. Raw token material never
// reaches the store.
type TokenStore interface {
	Create(ctx context.Context, token *domain.AuthToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.AuthToken, error)
	// RevokeAllForIdentity removes every token for the identity and returns
	// how many were removed. Zero removals is not an error.
	RevokeAllForIdentity(ctx context.Context, identityID string) (int, error)
}
