//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/braindump/internal/config"
	"github.com/ashureev/braindump/internal/domain"
	"github.com/ashureev/braindump/internal/session"
	"github.com/go-chi/chi/v5"
)

type fakeArchive struct {
	records []*domain.ExportRecord
	err     error
	limit   int
}

func (f *fakeArchive) ListExports(_ context.Context, sessionID string, limit int) ([]*domain.ExportRecord, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*domain.ExportRecord, 0)
	for _, rec := range f.records {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeModel struct {
	status string
	err    error
}

func (f fakeModel) Health(context.Context) (string, error) { return f.status, f.err }

type fakeSockets int

func (f fakeSockets) Total() int { return int(f) }

func newTestRouter(h *Handler, health *HealthHandler) http.Handler {
	r := chi.NewRouter()
	if health != nil {
		health.RegisterHealth(r)
	}
	h.RegisterRoutes(r)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestGetSession(t *testing.T) {
	t.Parallel()

	store := session.NewStore()
	store.Apply("morning-1", "gym at 7", domain.ParsedReply{
		ConversationText:       "Nice.",
		Tasks:                  []domain.Task{{Title: "Gym", Priority: domain.PriorityHigh, Category: domain.CategoryHealth}},
		Schedule:               []domain.ScheduleEntry{},
		Mood:                   domain.MoodPositive,
		EnergyLevel:            domain.EnergyHigh,
		StructuredPayloadFound: true,
	})
	router := newTestRouter(NewHandler(store, nil, nil), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/morning-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got domain.SessionState
	decode(t, w, &got)
	if got.SessionID != "morning-1" || len(got.Conversation) != 1 || len(got.Tasks) != 1 {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.Mood != domain.MoodPositive {
		t.Fatalf("unexpected mood: %s", got.Mood)
	}
}

func TestGetSessionUnknownDoesNotCreate(t *testing.T) {
	t.Parallel()

	store := session.NewStore()
	router := newTestRouter(NewHandler(store, nil, nil), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/never-seen", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if store.Len() != 0 {
		t.Fatalf("read created a session, have %d", store.Len())
	}
}

func TestGetSessionInvalidID(t *testing.T) {
	t.Parallel()

	router := newTestRouter(NewHandler(session.NewStore(), nil, nil), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/bad%20id", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListExports(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	archive := &fakeArchive{records: []*domain.ExportRecord{
		{ID: "e1", SessionID: "s1", Snapshot: domain.NewSessionState("s1", at), ExportedAt: at},
		{ID: "e2", SessionID: "other", Snapshot: domain.NewSessionState("other", at), ExportedAt: at},
	}}
	router := newTestRouter(NewHandler(session.NewStore(), archive, nil), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/s1/exports?limit=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got struct {
		SessionID string                 `json:"session_id"`
		Exports   []*domain.ExportRecord `json:"exports"`
	}
	decode(t, w, &got)
	if got.SessionID != "s1" || len(got.Exports) != 1 || got.Exports[0].ID != "e1" {
		t.Fatalf("unexpected body: %+v", got)
	}
	if archive.limit != 5 {
		t.Fatalf("limit not forwarded: %d", archive.limit)
	}
}

func TestListExportsErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		archive  ExportLister
		path     string
		wantCode int
	}{
		{"archive disabled", nil, "/api/sessions/s1/exports", http.StatusServiceUnavailable},
		{"bad limit", &fakeArchive{}, "/api/sessions/s1/exports?limit=abc", http.StatusBadRequest},
		{"zero limit", &fakeArchive{}, "/api/sessions/s1/exports?limit=0", http.StatusBadRequest},
		{"archive failure", &fakeArchive{err: errors.New("disk I/O error")}, "/api/sessions/s1/exports", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := newTestRouter(NewHandler(session.NewStore(), tt.archive, nil), nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		MaxAudioBytes: 1024,
		Model: config.ModelConfig{
			SidecarAddr:        "localhost:50051",
			CompletionProvider: config.ProviderGemini,
		},
	}
	router := newTestRouter(NewHandler(session.NewStore(), nil, cfg), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	var got map[string]interface{}
	decode(t, w, &got)
	if got["transcription_enabled"] != true || got["completion_provider"] != "gemini" {
		t.Fatalf("unexpected config: %v", got)
	}
	if got["max_audio_bytes"] != float64(1024) {
		t.Fatalf("unexpected max_audio_bytes: %v", got["max_audio_bytes"])
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	store := session.NewStore()
	store.GetOrCreate("a")
	store.GetOrCreate("b")

	tests := []struct {
		name       string
		db         Pinger
		model      ModelChecker
		wantCode   int
		wantStatus string
		wantDB     string
		wantModel  string
	}{
		{"healthy", fakePinger{}, nil, http.StatusOK, "healthy", "ok", ""},
		{"database down", fakePinger{err: errors.New("closed")}, nil, http.StatusServiceUnavailable, "degraded", "unreachable", ""},
		{"model serving", fakePinger{}, fakeModel{status: "SERVING"}, http.StatusOK, "healthy", "ok", "SERVING"},
		{"model empty status", fakePinger{}, fakeModel{}, http.StatusOK, "healthy", "ok", "ok"},
		{"model down", fakePinger{}, fakeModel{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "degraded", "ok", "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := newTestRouter(NewHandler(store, nil, nil), NewHealthHandler(tt.db, tt.model, store, fakeSockets(3)))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}

			var got struct {
				Status   string            `json:"status"`
				Checks   map[string]string `json:"checks"`
				Sessions int               `json:"sessions"`
				Sockets  int               `json:"sockets"`
			}
			decode(t, w, &got)
			if got.Status != tt.wantStatus || got.Checks["database"] != tt.wantDB {
				t.Fatalf("unexpected health: %+v", got)
			}
			if got.Checks["model"] != tt.wantModel {
				t.Fatalf("unexpected model check %q, want %q", got.Checks["model"], tt.wantModel)
			}
			if got.Sessions != 2 || got.Sockets != 3 {
				t.Fatalf("unexpected counts: %+v", got)
			}
		})
	}
}
