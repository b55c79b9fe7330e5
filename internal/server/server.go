package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/flatrota/internal/handler"
	"github.com/dukerupert/flatrota/internal/metrics"
	"github.com/dukerupert/flatrota/internal/middleware"
	"github.com/dukerupert/flatrota/internal/period"
	"github.com/dukerupert/flatrota/internal/store"
	ws "github.com/dukerupert/flatrota/internal/websocket"
)

// Options tunes the HTTP surface.
type Options struct {
	// GenerateRateLimit caps generate calls per user per minute.
	GenerateRateLimit int
	// Registry receives the service metrics. A fresh registry is used if nil.
	Registry *prometheus.Registry
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	taskH        *handler.TaskHandler
	periodH      *handler.PeriodHandler
	flatH        *handler.FlatHandler
	sessionH     *handler.SessionHandler
	flatStore    *store.FlatStore
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	generateRate int
	registry     *prometheus.Registry
	metrics      *metrics.Collector
	logger       *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if opts.GenerateRateLimit < 1 {
		opts.GenerateRateLimit = 10
	}
	collector := metrics.NewPrometheus(reg, "flatrota")

	hub := ws.NewHub(logger.With("component", "websocket"))
	hub.OnClientCount(collector.SetWebsocketClients)

	taskStore := store.NewTaskStore(db)
	flatStore := store.NewFlatStore(db)
	periodStore := store.NewPeriodStore(db)

	sessionStore := store.NewSessionStore(db)

	svc := period.NewService(taskStore, periodStore, store.NewMembership(db),
		period.WithLogger(logger.With("component", "period")),
		period.WithMetrics(collector),
	)

	return &Server{
		db:           db,
		hub:          hub,
		taskH:        handler.NewTaskHandler(taskStore, flatStore, logger.With("component", "task")),
		periodH:      handler.NewPeriodHandler(svc, taskStore, hub, logger.With("component", "period")),
		flatH:        handler.NewFlatHandler(flatStore, logger.With("component", "flat")),
		sessionH:     handler.NewSessionHandler(sessionStore, logger.With("component", "session")),
		flatStore:    flatStore,
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(),
		generateRate: opts.GenerateRateLimit,
		registry:     reg,
		metrics:      collector,
		logger:       logger,
	}
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(s.logger.With("component", "http"), s.metrics))

	// Public routes
	r.Get("/health", s.healthHandler)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.sessionStore))

		r.Get("/ws", ws.HandleWebSocket(s.hub, s.flatStore))

		r.Route("/api", func(r chi.Router) {
			r.Post("/logout", s.sessionH.Logout)
			r.Get("/me/periods", s.periodH.Mine)

			r.Get("/flats/{id}/members", s.flatH.Members)
			r.Get("/flats/{id}/tasks", s.taskH.ListByFlat)

			r.Post("/tasks", s.taskH.Create)
			r.Route("/tasks/{id}", func(r chi.Router) {
				r.Get("/", s.taskH.Get)
				r.Delete("/", s.taskH.Delete)
				r.Put("/active", s.taskH.SetActive)
				r.With(middleware.RateLimit(s.rateLimiter, middleware.KeyByUser, s.generateRate, time.Minute)).
					Post("/periods/generate", s.periodH.Generate)
				r.Get("/periods", s.periodH.List)
				r.Get("/periods/batch", s.periodH.Batch)
				r.Delete("/periods", s.periodH.Reset)
			})
			r.Post("/periods/{id}/complete", s.periodH.Complete)
			r.Post("/periods/{id}/reassign", s.periodH.Reassign)
		})
	})

	return r
}

// RunMaintenance prunes reset rate-limit windows and expired sessions every
// interval until ctx is done.
func (s *Server) RunMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.rateLimiter.Prune(); n > 0 {
				s.logger.Debug("pruned rate limit windows", "count", n)
			}
			n, err := s.sessionStore.DeleteExpired(ctx)
			if err != nil {
				s.logger.Warn("prune expired sessions", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("pruned expired sessions", "count", n)
			}
		}
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "ws_clients": s.hub.ClientCount()})
}
