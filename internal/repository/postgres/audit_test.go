package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
)

func TestAuditRepository_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAuditRepository(mock)

	userID := "user-1"
	email := "person@example.com"
	entry := domain.AuditLogEntry{
		ID:           "audit-1",
		Action:       domain.AuditActionLogin,
		UserID:       &userID,
		Email:        &email,
		IPAddress:    "203.0.113.9",
		RawUserAgent: "GoTest/1.0",
		Metadata:     map[string]any{"session": "abc"},
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(
			entry.ID,
			entry.Action,
			userID,
			email,
			entry.IPAddress,
			entry.RawUserAgent,
			pgxmock.AnyArg(),
			entry.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Append(context.Background(), &entry); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditRepository_AppendUnknownActor(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAuditRepository(mock)

	email := "ghost@example.com"
	entry := domain.AuditLogEntry{
		ID:           "audit-2",
		Action:       domain.AuditActionFailedLogin,
		Email:        &email,
		IPAddress:    "198.51.100.7",
		RawUserAgent: "curl/8.0",
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(
			entry.ID,
			entry.Action,
			nil,
			email,
			entry.IPAddress,
			entry.RawUserAgent,
			nil,
			entry.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Append(context.Background(), &entry); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
