package port

import (
	"context"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
)

// AuditRepository appends immutable security events.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditLogEntry) error
}
