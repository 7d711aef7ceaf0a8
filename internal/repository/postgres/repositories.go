package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Identities   *IdentityRepository
	Tokens       *TokenRepository
	ResetTickets *ResetTicketRepository
	Audit        *AuditRepository
	Tx           *TxManager
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Identities:   NewIdentityRepository(pool),
		Tokens:       NewTokenRepository(pool),
		ResetTickets: NewResetTicketRepository(pool),
		Audit:        NewAuditRepository(pool),
		Tx:           NewTxManager(pool),
	}
}
