package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/repository"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/transport/http/handlers"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/usecase"
)

type stubDirectory struct {
	identity domain.Identity
}

func (s *stubDirectory) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	if email == s.identity.Email {
		id := s.identity
		return &id, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubDirectory) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	if id == s.identity.ID {
		found := s.identity
		return &found, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubDirectory) RecordLogin(context.Context, string, time.Time, *string) error {
	return nil
}

func (s *stubDirectory) UpdatePassword(context.Context, string, string, time.Time) error {
	return nil
}

type stubTicketStore struct {
	byEmail map[string]domain.PasswordResetTicket
}

func (s *stubTicketStore) Upsert(_ context.Context, ticket *domain.PasswordResetTicket) error {
	s.byEmail[ticket.Email] = *ticket
	return nil
}

func (s *stubTicketStore) GetByEmail(_ context.Context, email string) (*domain.PasswordResetTicket, error) {
	if ticket, ok := s.byEmail[email]; ok {
		t := ticket
		return &t, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubTicketStore) Delete(_ context.Context, email string) error {
	if _, ok := s.byEmail[email]; !ok {
		return repository.ErrNotFound
	}
	delete(s.byEmail, email)
	return nil
}

type stubTokenStore struct{}

func (s *stubTokenStore) Create(context.Context, *domain.AuthToken) error {
	return nil
}

func (s *stubTokenStore) GetByHash(context.Context, string) (*domain.AuthToken, error) {
	return nil, repository.ErrNotFound
}

func (s *stubTokenStore) RevokeAllForIdentity(context.Context, string) (int, error) {
	return 0, nil
}

type stubSink struct {
	calls int
}

func (s *stubSink) SendPasswordResetLink(context.Context, string, string, string) error {
	s.calls++
	return nil
}

type stubCounterStore struct {
	counts map[string]int64
}

func (s *stubCounterStore) Increment(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.counts[key]++
	return s.counts[key], nil
}

func (s *stubCounterStore) Count(_ context.Context, key string) (int64, error) {
	return s.counts[key], nil
}

func (s *stubCounterStore) AvailableIn(context.Context, string) (time.Duration, error) {
	return 45 * time.Second, nil
}

func newResetRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zaptest.NewLogger(t)
	directory := &stubDirectory{identity: domain.Identity{
		ID:     "user-1",
		Email:  "person@example.com",
		Status: domain.IdentityStatusActive,
	}}

	svc := usecase.NewPasswordResetService(
		directory,
		&stubTicketStore{byEmail: make(map[string]domain.PasswordResetTicket)},
		usecase.NewTokenManager(&stubTokenStore{}, directory),
		usecase.NewRateLimiter(&stubCounterStore{counts: make(map[string]int64)}, log),
		&stubSink{},
		nil,
		usecase.NewAuditLogger(nil, log),
		nil,
		log,
	).WithRateLimit(1, time.Minute)

	router := gin.New()
	handlers.NewPasswordHandler(svc).RegisterRoutes(router.Group("/password/reset"))
	return router
}

func postResetRequest(router *gin.Engine) *httptest.ResponseRecorder {
	body := strings.NewReader(`{"email":"person@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/password/reset/request", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRequestResetDenialCarriesRateLimitHeaders(t *testing.T) {
	router := newResetRouter(t)

	if rr := postResetRequest(router); rr.Code != http.StatusAccepted {
		t.Fatalf("first request: expected 202, got %d: %s", rr.Code, rr.Body.String())
	}

	rr := postResetRequest(router)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Fatalf("limit header = %q, want 1", got)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("remaining header = %q, want 0", got)
	}
	if got := rr.Header().Get("Retry-After"); got != "45" {
		t.Fatalf("retry-after header = %q, want 45", got)
	}
}
