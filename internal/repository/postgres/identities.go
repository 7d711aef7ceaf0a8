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

// IdentityRepository implements port.IdentityDirectory using PostgreSQL.
type IdentityRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewIdentityRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewIdentityRepository(exec pgExecutor) *IdentityRepository {
	return &IdentityRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var identityColumns = []string{
	"id",
	"email",
	"password_hash",
	"status",
	"is_admin",
	"company_id",
	"last_login_at",
	"last_login_ip",
	"created_at",
}

// GetByEmail retrieves an identity by its email address.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	stmt, args, err := r.builder.
		Select(identityColumns...).
		From("users").
		Where(squirrel.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select identity by email sql: %w", err)
	}

	return r.scanIdentity(executorFrom(ctx, r.exec).QueryRow(ctx, stmt, args...))
}

// GetByID retrieves an identity by identifier.
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	stmt, args, err := r.builder.
		Select(identityColumns...).
		From("users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select identity sql: %w", err)
	}

	return r.scanIdentity(executorFrom(ctx, r.exec).QueryRow(ctx, stmt, args...))
}

func (r *IdentityRepository) scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var (
		identity    domain.Identity
		companyID   sql.NullString
		lastLoginAt *time.Time
		lastLoginIP sql.NullString
	)

	if err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.PasswordHash,
		&identity.Status,
		&identity.IsAdmin,
		&companyID,
		&lastLoginAt,
		&lastLoginIP,
		&identity.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}

	identity.LastLoginAt = lastLoginAt
	if companyID.Valid {
		val := companyID.String
		identity.CompanyID = &val
	}
	if lastLoginIP.Valid {
		val := lastLoginIP.String
		identity.LastLoginIP = &val
	}

	return &identity, nil
}

// RecordLogin stamps last_login_at and last_login_ip on the identity.
func (r *IdentityRepository) RecordLogin(ctx context.Context, id string, at time.Time, ip *string) error {
	var ipValue any
	if ip != nil && *ip != "" {
		ipValue = *ip
	}

	stmt, args, err := r.builder.Update("users").
		Set("last_login_at", at).
		Set("last_login_ip", ipValue).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record login sql: %w", err)
	}

	ct, err := executorFrom(ctx, r.exec).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *IdentityRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update("users").
		Set("password_hash", passwordHash).
		Set("password_changed_at", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := executorFrom(ctx, r.exec).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.IdentityDirectory = (*IdentityRepository)(nil)
