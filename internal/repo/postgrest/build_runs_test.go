package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prompt-apk-builder/build-callback/internal/domain"
	"github.com/prompt-apk-builder/build-callback/internal/repo"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *BuildRunStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store, err := NewBuildRunStore(Config{
		BaseURL:    srv.URL + "/",
		ServiceKey: "service-key",
		Table:      "build_runs",
		Timeout:    5 * time.Second,
	}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewBuildRunStore() err=%v", err)
	}
	return store
}

func TestUpdateBuildRun_SendsPatch(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotQuery  string
		gotHeader http.Header
		gotBody   map[string]any
	)
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotQuery, gotHeader = r.Method, r.URL.Path, r.URL.Query().Get("id"), r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	now := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	update := domain.NewBuildRunUpdate(domain.Notification{
		BuildID: "b1",
		Status:  "success",
		APKURL:  "http://x/app.apk",
		RunID:   domain.Null[string](),
	}, now)
	if err := store.UpdateBuildRun(context.Background(), "b1", update); err != nil {
		t.Fatalf("UpdateBuildRun() err=%v", err)
	}

	if gotMethod != http.MethodPatch {
		t.Fatalf("method=%s, want PATCH", gotMethod)
	}
	if gotPath != "/rest/v1/build_runs" || gotQuery != "eq.b1" {
		t.Fatalf("path=%s id=%s, want /rest/v1/build_runs eq.b1", gotPath, gotQuery)
	}
	if gotHeader.Get("apikey") != "service-key" || gotHeader.Get("Authorization") != "Bearer service-key" {
		t.Fatalf("missing auth headers: %v", gotHeader)
	}
	if gotHeader.Get("Prefer") != "return=minimal" {
		t.Fatalf("Prefer=%q, want return=minimal", gotHeader.Get("Prefer"))
	}
	want := map[string]any{
		"status":      "success",
		"apk_url":     "http://x/app.apk",
		"run_id":      nil,
		"finished_at": "2026-10-14T09:30:00.000Z",
	}
	if len(gotBody) != len(want) {
		t.Fatalf("body=%v, want %v", gotBody, want)
	}
	for k, v := range want {
		got, ok := gotBody[k]
		if !ok || got != v {
			t.Fatalf("body[%s]=%v, want %v", k, got, v)
		}
	}
	if _, ok := gotBody["step"]; ok {
		t.Fatalf("absent step must not be sent: %v", gotBody)
	}
}

func TestUpdateBuildRun_ForwardsErrorMessage(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"PGRST116","message":"row not found","details":null,"hint":null}`))
	})

	err := store.UpdateBuildRun(context.Background(), "b1", domain.BuildRunUpdate{Status: domain.Some("running")})
	var storeErr *repo.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("err=%v, want *repo.StoreError", err)
	}
	if storeErr.Error() != "row not found" || storeErr.Code != "PGRST116" {
		t.Fatalf("unexpected store error %+v", storeErr)
	}
}

func TestUpdateBuildRun_NonJSONError(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	err := store.UpdateBuildRun(context.Background(), "b1", domain.BuildRunUpdate{Status: domain.Some("running")})
	if got := repo.StoreMessage(err); got != "Bad Gateway" {
		t.Fatalf("StoreMessage()=%q, want Bad Gateway", got)
	}
}

func TestUpdateBuildRun_EmptyUpdateSkipsRequest(t *testing.T) {
	called := false
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	if err := store.UpdateBuildRun(context.Background(), "b1", domain.BuildRunUpdate{}); err != nil {
		t.Fatalf("UpdateBuildRun() err=%v", err)
	}
	if called {
		t.Fatalf("expected no request for empty update")
	}
}

func TestUpdateBuildRun_EscapesID(t *testing.T) {
	var rawQuery string
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	})
	if err := store.UpdateBuildRun(context.Background(), "a&b=c", domain.BuildRunUpdate{Status: domain.Some("running")}); err != nil {
		t.Fatalf("UpdateBuildRun() err=%v", err)
	}
	if rawQuery != "id=eq.a%26b%3Dc" {
		t.Fatalf("query=%q, want id=eq.a%%26b%%3Dc", rawQuery)
	}
}

func TestPing(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead || r.URL.Path != "/rest/v1/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("apikey") != "service-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() err=%v", err)
	}
}

func TestNewBuildRunStore_Validates(t *testing.T) {
	if _, err := NewBuildRunStore(Config{BaseURL: "https://x.example"}, nil); err == nil {
		t.Fatalf("expected error for missing service key")
	}
	if _, err := NewBuildRunStore(Config{BaseURL: "not a url", ServiceKey: "k"}, nil); err == nil {
		t.Fatalf("expected error for invalid base url")
	}
}

func TestMatchedNone(t *testing.T) {
	cases := map[string]bool{
		"*/0":   true,
		"0-0/1": false,
		"*/*":   false,
		"":      false,
	}
	for in, want := range cases {
		if got := matchedNone(in); got != want {
			t.Fatalf("matchedNone(%q)=%v, want %v", in, got, want)
		}
	}
}
