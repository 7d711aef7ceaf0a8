package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/port"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/repository"
)

// ResetTicketRepository implements port.ResetTicketStore using PostgreSQL.
// The password_resets table keeps at most one row per email.
type ResetTicketRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewResetTicketRepository constructs a repository backed by any executor
// that satisfies pgExecutor.
func NewResetTicketRepository(exec pgExecutor) *ResetTicketRepository {
	return &ResetTicketRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert stores the ticket, superseding any previous one for the email.
func (r *ResetTicketRepository) Upsert(ctx context.Context, ticket *domain.PasswordResetTicket) error {
	stmt, args, err := r.builder.Insert("password_resets").
		Columns("email", "token_hash", "created_at").
		Values(ticket.Email, ticket.TokenHash, ticket.CreatedAt).
		Suffix("ON CONFLICT (email) DO UPDATE SET token_hash = EXCLUDED.token_hash, created_at = EXCLUDED.created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert reset ticket sql: %w", err)
	}

	if _, err := executorFrom(ctx, r.exec).Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert reset ticket: %w", err)
	}

	return nil
}

// GetByEmail retrieves the current ticket for the email.
func (r *ResetTicketRepository) GetByEmail(ctx context.Context, email string) (*domain.PasswordResetTicket, error) {
	stmt, args, err := r.builder.
		Select("email", "token_hash", "created_at").
		From("password_resets").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select reset ticket sql: %w", err)
	}

	row := executorFrom(ctx, r.exec).QueryRow(ctx, stmt, args...)

	var ticket domain.PasswordResetTicket
	if err := row.Scan(&ticket.Email, &ticket.TokenHash, &ticket.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan reset ticket: %w", err)
	}

	return &ticket, nil
}

// Delete removes the ticket for the email. Deleting a missing ticket
// surfaces ErrNotFound so single-use violations are detectable.
func (r *ResetTicketRepository) Delete(ctx context.Context, email string) error {
	stmt, args, err := r.builder.Delete("password_resets").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete reset ticket sql: %w", err)
	}

	ct, err := executorFrom(ctx, r.exec).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete reset ticket: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.ResetTicketStore = (*ResetTicketRepository)(nil)
