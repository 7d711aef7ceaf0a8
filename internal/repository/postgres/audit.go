package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/port"
)

// AuditRepository implements port.AuditRepository using PostgreSQL. The
// audit_logs table is append-only; nothing in this service updates or
// deletes rows.
type AuditRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	return &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append inserts an audit log entry.
func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	var userIDValue any
	if entry.UserID != nil && *entry.UserID != "" {
		userIDValue = *entry.UserID
	}

	var emailValue any
	if entry.Email != nil && *entry.Email != "" {
		emailValue = *entry.Email
	}

	var metadataValue any
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		metadataValue = encoded
	}

	stmt, args, err := r.builder.Insert("audit_logs").
		Columns("id", "action", "user_id", "email", "ip_address", "user_agent", "metadata", "created_at").
		Values(
			entry.ID,
			entry.Action,
			userIDValue,
			emailValue,
			entry.IPAddress,
			entry.RawUserAgent,
			metadataValue,
			entry.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit log sql: %w", err)
	}

	if _, err := executorFrom(ctx, r.exec).Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	return nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
