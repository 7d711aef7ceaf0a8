package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/security"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/repository"
)

type ticketStoreMock struct {
	byEmail   map[string]domain.PasswordResetTicket
	upsertErr error
	deleteErr error
}

func newTicketStoreMock() *ticketStoreMock {
	return &ticketStoreMock{byEmail: make(map[string]domain.PasswordResetTicket)}
}

func (m *ticketStoreMock) Upsert(_ context.Context, ticket *domain.PasswordResetTicket) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.byEmail[ticket.Email] = *ticket
	return nil
}

func (m *ticketStoreMock) GetByEmail(_ context.Context, email string) (*domain.PasswordResetTicket, error) {
	if ticket, ok := m.byEmail[email]; ok {
		t := ticket
		return &t, nil
	}
	return nil, repository.ErrNotFound
}

func (m *ticketStoreMock) Delete(_ context.Context, email string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.byEmail[email]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byEmail, email)
	return nil
}

type sinkMock struct {
	recipient string
	token     string
	callback  string
	calls     int
	err       error
}

func (m *sinkMock) SendPasswordResetLink(_ context.Context, recipient, token, callbackURL string) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.recipient = recipient
	m.token = token
	m.callback = callbackURL
	return nil
}

type txManagerMock struct {
	calls int
	err   error
}

func (m *txManagerMock) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	return fn(ctx)
}

type resetFixture struct {
	svc       *PasswordResetService
	directory *directoryMock
	tickets   *ticketStoreMock
	tokens    *tokenStoreMock
	sink      *sinkMock
	tx        *txManagerMock
	counters  *counterStoreMock
	audit     *auditRepoMock
}

func newResetFixture(t *testing.T, identity domain.Identity) *resetFixture {
	t.Helper()

	directory := &directoryMock{
		byEmail: map[string]domain.Identity{identity.Email: identity},
		byID:    map[string]domain.Identity{identity.ID: identity},
	}
	tickets := newTicketStoreMock()
	tokens := &tokenStoreMock{}
	sink := &sinkMock{}
	tx := &txManagerMock{}
	counters := newCounterStoreMock()
	auditRepo := &auditRepoMock{}

	logger := zaptest.NewLogger(t)
	manager := NewTokenManager(tokens, directory)
	limiter := NewRateLimiter(counters, logger)
	audit := NewAuditLogger(auditRepo, logger)

	svc := NewPasswordResetService(directory, tickets, manager, limiter, sink, nil, audit, tx, logger).
		WithCallbackURL("https://app.rentplan.test/password/reset")

	return &resetFixture{
		svc:       svc,
		directory: directory,
		tickets:   tickets,
		tokens:    tokens,
		sink:      sink,
		tx:        tx,
		counters:  counters,
		audit:     auditRepo,
	}
}

func auditActionCount(entries []domain.AuditLogEntry, action domain.AuditAction) int {
	n := 0
	for _, entry := range entries {
		if entry.Action == action {
			n++
		}
	}
	return n
}

func activeIdentity(t *testing.T) domain.Identity {
	t.Helper()
	return domain.Identity{
		ID:           "user-1",
		Email:        "person@example.com",
		PasswordHash: mustHashPassword(t, "old password 42"),
		Status:       domain.IdentityStatusActive,
	}
}

func TestRequestResetStoresHashedTicket(t *testing.T) {
	f := newResetFixture(t, activeIdentity(t))

	err := f.svc.RequestReset(context.Background(), PasswordResetRequestInput{
		Email: "Person@Example.com",
		IP:    "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}

	ticket, ok := f.tickets.byEmail["person@example.com"]
	if !ok {
		t.Fatal("no ticket stored for the identity's email")
	}
	if f.sink.calls != 1 {
		t.Fatalf("sink called %d times, want 1", f.sink.calls)
	}
	if f.sink.token == "" || f.sink.token == ticket.TokenHash {
		t.Fatal("sink must receive the raw token, not its hash")
	}
	if security.HashToken(f.sink.token) != ticket.TokenHash {
		t.Fatal("stored hash does not match the delivered token")
	}
	if f.sink.recipient != "person@example.com" {
		t.Fatalf("sink recipient = %q", f.sink.recipient)
	}
	if f.sink.callback != "https://app.rentplan.test/password/reset" {
		t.Fatalf("sink callback = %q", f.sink.callback)
	}

	if len(f.audit.entries) != 1 || f.audit.entries[0].Action != domain.AuditActionPasswordResetRequest {
		t.Fatalf("expected reset-request audit entry, got %+v", f.audit.entries)
	}
}

func TestRequestResetSupersedesPriorTicket(t *testing.T) {
	f := newResetFixture(t, activeIdentity(t))
	ctx := context.Background()

	if err := f.svc.RequestReset(ctx, PasswordResetRequestInput{Email: "person@example.com"}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	firstToken := f.sink.token

	if err := f.svc.RequestReset(ctx, PasswordResetRequestInput{Email: "person@example.com"}); err != nil {
		t.Fatalf("second request: %v", err)
	}
	secondToken := f.sink.token

	if firstToken == secondToken {
		t.Fatal("expected a fresh token per request")
	}

	ticket := f.tickets.byEmail["person@example.com"]
	if ticket.TokenHash != security.HashToken(secondToken) {
		t.Fatal("latest request did not supersede the stored ticket")
	}
	if ticket.TokenHash == security.HashToken(firstToken) {
		t.Fatal("superseded token still honored")
	}
}

func TestRequestResetRateLimited(t *testing.T) {
	f := newResetFixture(t, activeIdentity(t))
	f.svc.WithRateLimit(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := f.svc.RequestReset(ctx, PasswordResetRequestInput{Email: "person@example.com"}); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	err := f.svc.RequestReset(ctx, PasswordResetRequestInput{Email: "person@example.com"})
	var limitErr *RateLimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("err = %v, want RateLimitExceededError", err)
	}
	if limitErr.Scope != "password_reset" {
		t.Fatalf("scope = %s", limitErr.Scope)
	}
	if limitErr.RetryAfter <= 0 {
		t.Fatalf("retry after = %v, want positive", limitErr.RetryAfter)
	}
	if limitErr.Limit != 2 || limitErr.Remaining != 0 {
		t.Fatalf("budget on error = %d/%d, want 0/2", limitErr.Remaining, limitErr.Limit)
	}
	if f.sink.calls != 2 {
		t.Fatalf("sink called %d times after throttle, want 2", f.sink.calls)
	}

	if got := auditActionCount(f.audit.entries, domain.AuditActionRateLimited); got != 1 {
		t.Fatalf("rate-limited audit entries after denial = %d, want 1", got)
	}
	entry := f.audit.entries[len(f.audit.entries)-1]
	if entry.Email == nil || *entry.Email != "person@example.com" {
		t.Fatal("denial audit entry missing email")
	}
	if entry.Metadata["type"] != "password_reset" {
		t.Fatalf("denial audit metadata = %v", entry.Metadata)
	}
}

func TestRequestResetUnknownEmail(t *testing.T) {
	f := newResetFixture(t, activeIdentity(t))

	err := f.svc.RequestReset(context.Background(), PasswordResetRequestInput{Email: "ghost@example.com"})
	if !errors.Is(err, ErrIdentityNotFound) {
		t.Fatalf("err = %v, want ErrIdentityNotFound", err)
	}
	if f.sink.calls != 0 {
		t.Fatal("sink invoked for unknown email")
	}
	if len(f.tickets.byEmail) != 0 {
		t.Fatal("ticket stored for unknown email")
	}
}

func TestRequestResetSinkFailureKeepsTicket(t *testing.T) {
	f := newResetFixture(t, activeIdentity(t))
	f.sink.err = errors.New("smtp unavailable")

	if err := f.svc.RequestReset(context.Background(), PasswordResetRequestInput{Email: "person@example.com"}); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}

	if _, ok := f.tickets.byEmail["person@example.com"]; !ok {
		t.Fatal("ticket discarded after delivery failure")
	}
}

func completeInput(token, password string) PasswordResetConfirmInput {
	return PasswordResetConfirmInput{
		Email:                   "person@example.com",
		Token:                   token,
		NewPassword:             password,
		NewPasswordConfirmation: password,
		IP:                      "203.0.113.9",
	}
}

const strongPassword = "Tr4verse-Mango-Lantern-9"

func TestCompleteResetAppliesAtomically(t *testing.T) {
	identity := activeIdentity(t)
	f := newResetFixture(t, identity)
	ctx := context.Background()

	f.tokens.created = []domain.AuthToken{
		{ID: "t1", IdentityID: identity.ID, TokenHash: "h1"},
		{ID: "t2", IdentityID: identity.ID, TokenHash: "h2"},
	}

	if err := f.svc.RequestReset(ctx, PasswordResetRequestInput{Email: identity.Email}); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}

	result, err := f.svc.CompleteReset(ctx, completeInput(f.sink.token, strongPassword))
	if err != nil {
		t.Fatalf("CompleteReset returned error: %v", err)
	}

	if result.IdentityID != identity.ID {
		t.Fatalf("identity id = %s", result.IdentityID)
	}
	if result.TokensRevoked != 2 {
		t.Fatalf("tokens revoked = %d, want 2", result.TokensRevoked)
	}
	if f.tx.calls != 1 {
		t.Fatalf("transaction used %d times, want 1", f.tx.calls)
	}

	if f.directory.updatedID != identity.ID {
		t.Fatal("password not updated")
	}
	ok, err := security.VerifyPassword(strongPassword, f.directory.updatedHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify the new password (ok=%v err=%v)", ok, err)
	}

	if len(f.tokens.created) != 0 {
		t.Fatal("bearer tokens survived the reset")
	}
	if _, ok := f.tickets.byEmail[identity.Email]; ok {
		t.Fatal("ticket not consumed")
	}
}

func TestCompleteResetSingleUse(t *testing.T) {
	identity := activeIdentity(t)
	f := newResetFixture(t, identity)
	ctx := context.Background()

	if err := f.svc.RequestReset(ctx, PasswordResetRequestInput{Email: identity.Email}); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	raw := f.sink.token

	if _, err := f.svc.CompleteReset(ctx, completeInput(raw, strongPassword)); err != nil {
		t.Fatalf("first completion: %v", err)
	}

	if _, err := f.svc.CompleteReset(ctx, completeInput(raw, strongPassword)); !errors.Is(err, ErrResetTicketInvalid) {
		t.Fatalf("err = %v, want ErrResetTicketInvalid on reuse", err)
	}

	if got := auditActionCount(f.audit.entries, domain.AuditActionFailedPasswordReset); got != 1 {
		t.Fatalf("reuse produced %d failure audit entries, want 1", got)
	}
	if reason := f.audit.entries[len(f.audit.entries)-1].Metadata["reason"]; reason != "ticket_not_found" {
		t.Fatalf("failure reason = %v", reason)
	}
}

func TestCompleteResetWrongToken(t *testing.T) {
	identity := activeIdentity(t)
	f := newResetFixture(t, identity)
	ctx := context.Background()

	if err := f.svc.RequestReset(ctx, PasswordResetRequestInput{Email: identity.Email}); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}

	_, err := f.svc.CompleteReset(ctx, completeInput("definitely-not-the-token", strongPassword))
	if !errors.Is(err, ErrResetTicketInvalid) {
		t.Fatalf("err = %v, want ErrResetTicketInvalid", err)
	}
	if f.directory.updatedID != "" {
		t.Fatal("password changed on invalid token")
	}

	if got := auditActionCount(f.audit.entries, domain.AuditActionFailedPasswordReset); got != 1 {
		t.Fatalf("failed-reset audit entries = %d, want 1", got)
	}
	entry := f.audit.entries[len(f.audit.entries)-1]
	if entry.Metadata["reason"] != "token_mismatch" {
		t.Fatalf("failure reason = %v", entry.Metadata["reason"])
	}
}

func TestCompleteResetExpiredTicket(t *testing.T) {
	identity := activeIdentity(t)
	f := newResetFixture(t, identity)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	current := base
	f.svc.WithClock(func() time.Time { return current }).WithTTL(15 * time.Minute)

	if err := f.svc.RequestReset(ctx, PasswordResetRequestInput{Email: identity.Email}); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}

	current = base.Add(16 * time.Minute)
	_, err := f.svc.CompleteReset(ctx, completeInput(f.sink.token, strongPassword))
	if !errors.Is(err, ErrResetTicketExpired) {
		t.Fatalf("err = %v, want ErrResetTicketExpired", err)
	}
	if got := auditActionCount(f.audit.entries, domain.AuditActionFailedPasswordReset); got != 1 {
		t.Fatalf("expired attempt produced %d failure audit entries, want 1", got)
	}
	if reason := f.audit.entries[len(f.audit.entries)-1].Metadata["reason"]; reason != "ticket_expired" {
		t.Fatalf("failure reason = %v", reason)
	}

	// One minute earlier the ticket is still honored.
	current = base.Add(14 * time.Minute)
	if _, err := f.svc.CompleteReset(ctx, completeInput(f.sink.token, strongPassword)); err != nil {
		t.Fatalf("completion within TTL failed: %v", err)
	}
}

func TestCompleteResetConfirmationMismatch(t *testing.T) {
	identity := activeIdentity(t)
	f := newResetFixture(t, identity)

	input := completeInput("any", strongPassword)
	input.NewPasswordConfirmation = "something else"

	_, err := f.svc.CompleteReset(context.Background(), input)
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("err = %v, want ErrPasswordMismatch", err)
	}
}

func TestCompleteResetWeakPasswordRejected(t *testing.T) {
	identity := activeIdentity(t)
	f := newResetFixture(t, identity)
	ctx := context.Background()

	if err := f.svc.RequestReset(ctx, PasswordResetRequestInput{Email: identity.Email}); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}

	_, err := f.svc.CompleteReset(ctx, completeInput(f.sink.token, "password"))
	if !errors.Is(err, ErrNewPasswordInvalid) {
		t.Fatalf("err = %v, want ErrNewPasswordInvalid", err)
	}
	if f.directory.updatedID != "" {
		t.Fatal("weak password was applied")
	}

	// The ticket survives a rejected attempt.
	if _, ok := f.tickets.byEmail[identity.Email]; !ok {
		t.Fatal("ticket consumed by a rejected attempt")
	}
}

func TestCompleteResetTransactionFailureLeavesTicket(t *testing.T) {
	identity := activeIdentity(t)
	f := newResetFixture(t, identity)
	ctx := context.Background()

	if err := f.svc.RequestReset(ctx, PasswordResetRequestInput{Email: identity.Email}); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}

	f.tx.err = errors.New("serialization failure")
	if _, err := f.svc.CompleteReset(ctx, completeInput(f.sink.token, strongPassword)); err == nil {
		t.Fatal("expected transactional failure to surface")
	}

	if _, ok := f.tickets.byEmail[identity.Email]; !ok {
		t.Fatal("ticket lost despite failed transaction")
	}
}
