package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
)

type auditRepoMock struct {
	entries   []domain.AuditLogEntry
	appendErr error
}

func (m *auditRepoMock) Append(_ context.Context, entry *domain.AuditLogEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, *entry)
	return nil
}

const testChromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func TestAuditLoggerEnrichesWithClassifier(t *testing.T) {
	repo := &auditRepoMock{}
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	audit := NewAuditLogger(repo, zaptest.NewLogger(t)).WithClock(func() time.Time { return fixed })

	userID := "user-1"
	email := "person@example.com"
	audit.Log(context.Background(), domain.AuditActionLogin, &userID, &email, RequestInfo{
		IP:        "203.0.113.9",
		UserAgent: testChromeUA,
	}, map[string]any{"session": "abc"})

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}

	entry := repo.entries[0]
	if entry.Action != domain.AuditActionLogin {
		t.Fatalf("action = %s, want login", entry.Action)
	}
	if entry.CreatedAt != fixed {
		t.Fatalf("created_at = %v, want %v", entry.CreatedAt, fixed)
	}
	if entry.IPAddress != "203.0.113.9" {
		t.Fatalf("ip = %s", entry.IPAddress)
	}
	if entry.RawUserAgent != testChromeUA {
		t.Fatalf("raw user agent not preserved")
	}
	if entry.Metadata["session"] != "abc" {
		t.Fatalf("caller metadata lost: %v", entry.Metadata)
	}

	details, ok := entry.Metadata[userAgentDetailsKey].(map[string]any)
	if !ok {
		t.Fatalf("missing %s in metadata", userAgentDetailsKey)
	}
	if details["browser"] != "Chrome" {
		t.Fatalf("browser = %v, want Chrome", details["browser"])
	}
	if details["device_type"] != "desktop" {
		t.Fatalf("device_type = %v, want desktop", details["device_type"])
	}
}

func TestAuditLoggerReservedKeyWinsCollision(t *testing.T) {
	repo := &auditRepoMock{}
	audit := NewAuditLogger(repo, zaptest.NewLogger(t))

	audit.Log(context.Background(), domain.AuditActionLogin, nil, nil, RequestInfo{UserAgent: testChromeUA}, map[string]any{
		userAgentDetailsKey: "spoofed",
	})

	entry := repo.entries[0]
	details, ok := entry.Metadata[userAgentDetailsKey].(map[string]any)
	if !ok {
		t.Fatalf("reserved key was overwritten by caller value: %v", entry.Metadata[userAgentDetailsKey])
	}
	if details["browser"] != "Chrome" {
		t.Fatalf("browser = %v, want Chrome", details["browser"])
	}
}

func TestAuditLoggerSwallowsPersistenceFailure(t *testing.T) {
	repo := &auditRepoMock{appendErr: errors.New("insert failed")}

	failures := 0
	audit := NewAuditLogger(repo, zaptest.NewLogger(t)).WithErrorHook(func() { failures++ })

	// Must not panic or propagate.
	audit.LogFailedLogin(context.Background(), nil, "person@example.com", RequestInfo{IP: "198.51.100.7"})

	if failures != 1 {
		t.Fatalf("error hook fired %d times, want 1", failures)
	}
}

func TestAuditLoggerUnknownActorFields(t *testing.T) {
	repo := &auditRepoMock{}
	audit := NewAuditLogger(repo, zaptest.NewLogger(t))

	audit.LogFailedLogin(context.Background(), nil, "ghost@example.com", RequestInfo{IP: "198.51.100.7"})

	entry := repo.entries[0]
	if entry.UserID != nil {
		t.Fatalf("expected nil user id for unknown actor, got %v", *entry.UserID)
	}
	if entry.Email == nil || *entry.Email != "ghost@example.com" {
		t.Fatalf("expected attempted email to be recorded")
	}
}

func TestAuditLoggerRateLimitedMetadata(t *testing.T) {
	repo := &auditRepoMock{}
	audit := NewAuditLogger(repo, zaptest.NewLogger(t))

	audit.LogRateLimited(context.Background(), "person@example.com", RequestInfo{IP: "203.0.113.9"}, map[string]any{
		"type":   "auth",
		"path":   "/api/v1/auth/login",
		"method": "POST",
	})

	entry := repo.entries[0]
	if entry.Action != domain.AuditActionRateLimited {
		t.Fatalf("action = %s", entry.Action)
	}
	if entry.Metadata["type"] != "auth" || entry.Metadata["path"] != "/api/v1/auth/login" {
		t.Fatalf("throttle metadata missing: %v", entry.Metadata)
	}
}
