package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/dukerupert/flatrota/internal/auth"
	"github.com/dukerupert/flatrota/internal/database"
	"github.com/dukerupert/flatrota/internal/period"
	"github.com/dukerupert/flatrota/internal/store"
	"github.com/dukerupert/flatrota/internal/websocket"
)

type testEnv struct {
	router  http.Handler
	hub     *websocket.Hub
	flats   *store.FlatStore
	users   []int64
	outside int64
	flatID  int64
}

// setupEnv builds the API over an in-memory database: three flatmates in one
// flat (users[0] owns it) plus one user from elsewhere. The X-User header
// stands in for session authentication.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	us := store.NewUserStore(db)
	fs := store.NewFlatStore(db)
	ts := store.NewTaskStore(db)
	ps := store.NewPeriodStore(db)

	env := &testEnv{hub: websocket.NewHub(logger), flats: fs}
	for _, email := range []string{"alice@example.com", "bob@example.com", "carol@example.com", "dave@example.com"} {
		u, err := us.Create(ctx, email, email)
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		env.users = append(env.users, u.ID)
	}
	env.outside = env.users[3]
	env.users = env.users[:3]

	flat, err := fs.Create(ctx, "Flat 4B", env.users[0])
	if err != nil {
		t.Fatalf("create flat: %v", err)
	}
	env.flatID = flat.ID
	for _, id := range env.users[1:] {
		if _, err := fs.AddMember(ctx, flat.ID, id, store.RoleMember); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}

	svc := period.NewService(ts, ps, store.NewMembership(db), period.WithLogger(logger))
	th := NewTaskHandler(ts, fs, logger)
	ph := NewPeriodHandler(svc, ts, env.hub, logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := strconv.ParseInt(r.Header.Get("X-User"), 10, 64)
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{UserID: id})))
		})
	})
	fh := NewFlatHandler(fs, logger)
	r.Get("/api/flats/{id}/members", fh.Members)
	r.Get("/api/flats/{id}/tasks", th.ListByFlat)
	r.Get("/api/me/periods", ph.Mine)
	r.Post("/api/tasks", th.Create)
	r.Get("/api/tasks/{id}", th.Get)
	r.Delete("/api/tasks/{id}", th.Delete)
	r.Put("/api/tasks/{id}/active", th.SetActive)
	r.Post("/api/tasks/{id}/periods/generate", ph.Generate)
	r.Get("/api/tasks/{id}/periods", ph.List)
	r.Get("/api/tasks/{id}/periods/batch", ph.Batch)
	r.Delete("/api/tasks/{id}/periods", ph.Reset)
	r.Post("/api/periods/{id}/complete", ph.Complete)
	r.Post("/api/periods/{id}/reassign", ph.Reassign)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, user int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-User", strconv.FormatInt(user, 10))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// createTask posts a DAY/7 task over four weeks of January 2024 with all three
// flatmates on the roster, created by users[0].
func (e *testEnv) createTask(t *testing.T) int64 {
	t.Helper()
	rec := e.do(t, "POST", "/api/tasks", e.users[0], map[string]any{
		"flat_id":       e.flatID,
		"title":         "Bins",
		"cadence_unit":  "DAY",
		"cadence_value": 7,
		"start_date":    "2024-01-01",
		"end_date":      "2024-01-29",
		"roster":        e.users,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: status %d: %s", rec.Code, rec.Body.String())
	}
	return decode[struct {
		ID int64 `json:"id"`
	}](t, rec).ID
}
