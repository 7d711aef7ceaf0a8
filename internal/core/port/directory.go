package port

import (
	"context"
	"time"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
)

// IdentityDirectory is the narrow view of the user directory this core
// depends on. The directory itself (company/user CRUD) lives elsewhere.
type IdentityDirectory interface {
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	// RecordLogin stamps last_login_at and last_login_ip on the identity.
	RecordLogin(ctx context.Context, id string, at time.Time, ip *string) error
	// UpdatePassword replaces the stored password hash. The caller hashes;
	// the directory never sees a plaintext password.
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error
}
