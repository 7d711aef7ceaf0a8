package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/port"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/repository"
)

// TokenRepository implements port.TokenStore using PostgreSQL.
type TokenRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	return &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a bearer token row.
func (r *TokenRepository) Create(ctx context.Context, token *domain.AuthToken) error {
	var ipValue any
	if token.IP != nil && *token.IP != "" {
		ipValue = *token.IP
	}

	var uaValue any
	if token.UserAgent != nil && *token.UserAgent != "" {
		uaValue = *token.UserAgent
	}

	stmt, args, err := r.builder.Insert("auth_tokens").
		Columns("id", "user_id", "token_hash", "ip", "user_agent", "created_at").
		Values(token.ID, token.IdentityID, token.TokenHash, ipValue, uaValue, token.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert token sql: %w", err)
	}

	if _, err := executorFrom(ctx, r.exec).Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return nil
}

// GetByHash retrieves a token row by its hash.
func (r *TokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.AuthToken, error) {
	stmt, args, err := r.builder.
		Select("id", "user_id", "token_hash", "ip", "user_agent", "created_at", "last_used_at").
		From("auth_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select token sql: %w", err)
	}

	row := executorFrom(ctx, r.exec).QueryRow(ctx, stmt, args...)

	var (
		token      domain.AuthToken
		ip         sql.NullString
		userAgent  sql.NullString
		lastUsedAt *time.Time
	)

	if err := row.Scan(
		&token.ID,
		&token.IdentityID,
		&token.TokenHash,
		&ip,
		&userAgent,
		&token.CreatedAt,
		&lastUsedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}

	if ip.Valid {
		val := ip.String
		token.IP = &val
	}
	if userAgent.Valid {
		val := userAgent.String
		token.UserAgent = &val
	}
	token.LastUsedAt = lastUsedAt

	return &token, nil
}

// RevokeAllForIdentity deletes every token for the identity. Revoking zero
// tokens is not an error.
func (r *TokenRepository) RevokeAllForIdentity(ctx context.Context, identityID string) (int, error) {
	stmt, args, err := r.builder.Delete("auth_tokens").
		Where(squirrel.Eq{"user_id": identityID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete tokens sql: %w", err)
	}

	ct, err := executorFrom(ctx, r.exec).Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete tokens: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

var _ port.TokenStore = (*TokenRepository)(nil)
