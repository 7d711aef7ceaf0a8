package port

import (
	"context"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
)

// ResetTicketStore keeps at most one password reset ticket per email.
type ResetTicketStore interface {
	// Upsert stores the ticket, replacing any existing one for the email.
	Upsert(ctx context.Context, ticket *domain.PasswordResetTicket) error
	GetByEmail(ctx context.Context, email string) (*domain.PasswordResetTicket, error)
	Delete(ctx context.Context, email string) error
}
