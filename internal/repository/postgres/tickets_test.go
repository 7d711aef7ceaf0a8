package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/repository"
)

func TestResetTicketRepository_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewResetTicketRepository(mock)

	ticket := domain.PasswordResetTicket{
		Email:     "person@example.com",
		TokenHash: "abc123hash",
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO password_resets .*ON CONFLICT \(email\) DO UPDATE`).
		WithArgs(ticket.Email, ticket.TokenHash, ticket.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Upsert(context.Background(), &ticket); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResetTicketRepository_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewResetTicketRepository(mock)

	createdAt := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"email", "token_hash", "created_at"}).
		AddRow("person@example.com", "abc123hash", createdAt)

	mock.ExpectQuery(`SELECT .*FROM password_resets`).
		WithArgs("person@example.com").
		WillReturnRows(rows)

	ticket, err := repo.GetByEmail(context.Background(), "person@example.com")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	if ticket.TokenHash != "abc123hash" {
		t.Fatalf("token hash = %s", ticket.TokenHash)
	}
	if !ticket.CreatedAt.Equal(createdAt) {
		t.Fatalf("created at = %v, want %v", ticket.CreatedAt, createdAt)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResetTicketRepository_GetByEmailNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewResetTicketRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM password_resets`).
		WithArgs("ghost@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"email", "token_hash", "created_at"}))

	if _, err := repo.GetByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want repository.ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResetTicketRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewResetTicketRepository(mock)

	mock.ExpectExec(`DELETE FROM password_resets`).
		WithArgs("person@example.com").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := repo.Delete(context.Background(), "person@example.com"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResetTicketRepository_DeleteMissingTicket(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewResetTicketRepository(mock)

	mock.ExpectExec(`DELETE FROM password_resets`).
		WithArgs("person@example.com").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), "person@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want repository.ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
