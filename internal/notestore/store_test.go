package notestore

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/memovox/memovox/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type staticTokens struct{ token string }

func (s staticTokens) AccessToken() (string, error) {
	if s.token == "" {
		return "", ErrNotAuthenticated
	}
	return s.token, nil
}

func newTestStore(t *testing.T, url, token string) *Store {
	t.Helper()
	cfg := config.BackendConfig{URL: url, APIKey: "anon-key", Table: "notes", TimeoutMS: 2000}
	return New(cfg, staticTokens{token: token}, testLogger())
}

func TestCreateSendsInsertAndReturnsRepresentation(t *testing.T) {
	var gotPath, gotPrefer, gotAuth string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPrefer = r.Header.Get("Prefer")
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"n1","user_id":"u1","transcript":"raw words","summary":"Raw words.","created_at":"2026-08-30T10:00:00Z"}]`))
	}))
	defer srv.Close()

	store := newTestStore(t, srv.URL, "jwt-token")
	note, err := store.Create(context.Background(), "raw words", "Raw words.", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if gotPath != "/rest/v1/notes" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotPrefer != "return=representation" {
		t.Fatalf("insert must request the created representation, got %q", gotPrefer)
	}
	if gotAuth != "Bearer jwt-token" {
		t.Fatalf("unexpected authorization %q", gotAuth)
	}
	if gotBody["transcript"] != "raw words" || gotBody["summary"] != "Raw words." {
		t.Fatalf("unexpected insert body %v", gotBody)
	}
	if _, ok := gotBody["id"]; ok {
		t.Fatal("id must be collaborator-assigned, not sent by the client")
	}
	if note.ID != "n1" || note.OwnerID != "u1" {
		t.Fatalf("unexpected note %+v", note)
	}
}

func TestListOrdersByCreatedAtDescending(t *testing.T) {
	var gotOrder string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrder = r.URL.Query().Get("order")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"n2"},{"id":"n1"}]`))
	}))
	defer srv.Close()

	store := newTestStore(t, srv.URL, "jwt-token")
	notes, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotOrder != "created_at.desc" {
		t.Fatalf("list must order newest first, got order=%q", gotOrder)
	}
	if len(notes) != 2 || notes[0].ID != "n2" {
		t.Fatalf("unexpected notes %+v", notes)
	}
}

func TestDeleteFiltersByID(t *testing.T) {
	var gotMethod, gotFilter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotFilter = r.URL.Query().Get("id")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store := newTestStore(t, srv.URL, "jwt-token")
	if err := store.Delete(context.Background(), "n7"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotFilter != "eq.n7" {
		t.Fatalf("unexpected request %s id=%q", gotMethod, gotFilter)
	}
}

func TestOperationsFailWithoutIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request must reach the backend without a token")
	}))
	defer srv.Close()

	store := newTestStore(t, srv.URL, "")
	if _, err := store.Create(context.Background(), "t", "s", ""); err != ErrNotAuthenticated {
		t.Fatalf("create: expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := store.List(context.Background()); err != ErrNotAuthenticated {
		t.Fatalf("list: expected ErrNotAuthenticated, got %v", err)
	}
	if err := store.Delete(context.Background(), "n1"); err != ErrNotAuthenticated {
		t.Fatalf("delete: expected ErrNotAuthenticated, got %v", err)
	}
}

func TestCreateSurfacesBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"row-level security"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	store := newTestStore(t, srv.URL, "jwt-token")
	if _, err := store.Create(context.Background(), "t", "s", ""); err == nil {
		t.Fatal("expected error from forbidden insert")
	}
}
