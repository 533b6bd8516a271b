// Package http serves the journal as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"icried/internal/cache"
	"icried/internal/cloud"
	"icried/internal/journal"
	applog "icried/internal/log"
	"icried/internal/metrics"
	"icried/internal/services"
	"icried/internal/worker"
)

const (
	statsCacheSize     = 128
	statsCacheTTL      = 5 * time.Minute
	cacheSweepInterval = 10 * time.Minute
	readyTimeout       = 2 * time.Second
)

// Syncer runs and reports on cloud reconciliation.
type Syncer interface {
	Sync(ctx context.Context) (worker.SyncReport, error)
	Status(ctx context.Context) (cloud.AccountStatus, time.Time, error)
}

// Pinger checks that the local store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server

	service *services.JournalService
	journal *journal.Journal
	syncer  Syncer
	pinger  Pinger

	logger   *applog.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	clock    clockwork.Clock
	loc      *time.Location

	validator   *requestValidator
	rateLimiter *rateLimiter
	rps         float64
	burst       int

	statsCache *cache.LRU[statsKey, statsResponse]
	caches     *cache.Manager

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithSyncer enables the sync endpoints. Without one they answer 503.
func WithSyncer(s Syncer) Option {
	return func(srv *Server) { srv.syncer = s }
}

// WithPinger makes /readyz check the local store.
func WithPinger(p Pinger) Option {
	return func(srv *Server) { srv.pinger = p }
}

// WithMetrics records cache metrics and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(srv *Server) {
		srv.metrics = m
		srv.gatherer = g
	}
}

func WithLogger(l *applog.Logger) Option {
	return func(srv *Server) { srv.logger = l }
}

func WithClock(c clockwork.Clock) Option {
	return func(srv *Server) { srv.clock = c }
}

// WithLocation sets the calendar used for years and months.
func WithLocation(loc *time.Location) Option {
	return func(srv *Server) { srv.loc = loc }
}

// WithRateLimit bounds mutating requests per client IP.
func WithRateLimit(rps float64, burst int) Option {
	return func(srv *Server) {
		srv.rps = rps
		srv.burst = burst
	}
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, svc *services.JournalService, opts ...Option) *Server {
	s := &Server{
		service:   svc,
		journal:   svc.Journal(),
		clock:     clockwork.NewRealClock(),
		loc:       time.Local,
		validator: newRequestValidator(),
		rps:       5,
		burst:     20,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentHTTP})
	}

	s.rateLimiter = newRateLimiter(s.rps, s.burst, s.clock)
	s.statsCache = cache.NewLRU[statsKey, statsResponse](statsCacheSize, statsCacheTTL, s.clock)
	s.caches = cache.NewManager(s.clock)
	s.caches.Register(s.statsCache)
	s.caches.Start(context.Background(), cacheSweepInterval)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(exposeRequestID)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(func(r *http.Request) string { return chimw.GetReqID(r.Context()) }))
	r.Use(applog.AccessLog(extractClientIP))
	r.Use(chimw.Recoverer)
	r.Use(securityHeaders)
	r.Use(rejectSuspicious)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limitMutations)

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", s.handleListEntries)
			r.Get("/by-month", s.handleEntriesByMonth)
			r.Post("/", s.handleCreateEntry)
			r.Put("/{id}", s.handleUpdateEntry)
			r.Delete("/{id}", s.handleDeleteEntry)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.handleListTags)
			r.Post("/", s.handleCreateTag)
			r.Post("/move", s.handleMoveTags)
			r.Put("/{id}", s.handleRenameTag)
			r.Delete("/{id}", s.handleDeleteTag)
		})

		r.Route("/emojis", func(r chi.Router) {
			r.Get("/", s.handleListEmojis)
			r.Post("/", s.handleCreateEmoji)
			r.Post("/move", s.handleMoveEmojis)
			r.Put("/{id}", s.handleUpdateEmoji)
			r.Delete("/{id}", s.handleDeleteEmoji)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", s.handleStats)
			r.Get("/years", s.handleStatsYears)
			r.Get("/{year}", s.handleStats)
		})

		r.Post("/maintenance/dedupe", s.handleDedupe)
		r.Post("/sync", s.handleSync)
		r.Get("/sync/status", s.handleSyncStatus)
	})

	return r
}

// limitMutations applies the per-client rate limit to non-read requests.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	limited := s.rateLimiter.middleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

func exposeRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			w.Header().Set("X-Request-ID", id)
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.journal.Version(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
			writeError(w, r, http.StatusServiceUnavailable, "not_ready", "store unavailable", nil)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}
