package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/telemed/consult/internal/platform/auth"
)

// mockRecorder collects audit entries for assertions.
type mockRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (m *mockRecorder) RecordAccess(entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *mockRecorder) last() AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

func runAudit(t *testing.T, rec AuditRecorder, method, path string, actor *auth.Actor, h echo.HandlerFunc) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), *actor))
	}
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("request_id", "req-1")
	_ = Audit(zerolog.Nop(), rec)(h)(c)
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestAudit_PrescriptionRead(t *testing.T) {
	rec := &mockRecorder{}
	doctor := auth.Actor{ID: uuid.New(), Role: auth.RoleDoctor}
	runAudit(t, rec, http.MethodGet, "/api/v1/consultations/"+uuid.NewString()+"/prescription", &doctor, okHandler)

	if rec.count() != 1 {
		t.Fatalf("expected 1 entry, got %d", rec.count())
	}
	entry := rec.last()
	if entry.Resource != "prescription" || entry.Action != "read" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.ActorID != doctor.ID.String() || entry.ActorRole != "doctor" {
		t.Errorf("actor not recorded: %+v", entry)
	}
	if entry.RequestID != "req-1" || entry.StatusCode != http.StatusOK {
		t.Errorf("unexpected request metadata: %+v", entry)
	}
}

func TestAudit_PrescriptionCreate(t *testing.T) {
	rec := &mockRecorder{}
	doctor := auth.Actor{ID: uuid.New(), Role: auth.RoleDoctor}
	runAudit(t, rec, http.MethodPost, "/api/v1/consultations/"+uuid.NewString()+"/prescription", &doctor, func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})

	entry := rec.last()
	if entry.Resource != "prescription" || entry.Action != "create" || entry.StatusCode != http.StatusCreated {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestAudit_HistoryDeleteKeepsErrorStatus(t *testing.T) {
	rec := &mockRecorder{}
	admin := auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}
	runAudit(t, rec, http.MethodDelete, "/api/v1/history/"+uuid.NewString(), &admin, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "gone")
	})

	entry := rec.last()
	if entry.Resource != "history" || entry.Action != "delete" || entry.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestAudit_SkipsOtherResources(t *testing.T) {
	rec := &mockRecorder{}
	runAudit(t, rec, http.MethodGet, "/api/v1/doctors", nil, okHandler)
	runAudit(t, rec, http.MethodGet, "/health", nil, okHandler)

	if rec.count() != 0 {
		t.Errorf("expected no audit entries, got %d", rec.count())
	}
}

func TestAudit_RecorderErrorDoesNotFailRequest(t *testing.T) {
	rec := &mockRecorder{err: errors.New("disk full")}
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/prescriptions/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	c := e.NewContext(req, resp)

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.Code)
	}
	if rec.last().Action != "update" {
		t.Errorf("expected update action, got %q", rec.last().Action)
	}
}

func TestAuditedResource(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/prescriptions/abc", "prescription"},
		{"/api/v1/consultations/abc/prescription", "prescription"},
		{"/api/v1/patients/abc/history", "history"},
		{"/api/v1/history/abc", "history"},
		{"/api/v1/consultations/abc", ""},
		{"/health", ""},
		{"/metrics", ""},
		{"/metrics/prescriptions", ""},
	}
	for _, tt := range tests {
		if got := auditedResource(tt.path); got != tt.want {
			t.Errorf("auditedResource(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
