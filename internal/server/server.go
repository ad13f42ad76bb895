package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/battlewithbytes/webbrand/internal/config"
	"github.com/battlewithbytes/webbrand/internal/distribute"
	"github.com/battlewithbytes/webbrand/internal/events"
	"github.com/battlewithbytes/webbrand/internal/history"
	"github.com/battlewithbytes/webbrand/internal/intercept"
	"github.com/battlewithbytes/webbrand/internal/logo"
	"github.com/battlewithbytes/webbrand/internal/metrics"
)

// maxHistoryLimit caps GET /logo/history?limit=.
const maxHistoryLimit = 500

// Server is the HTTP surface for uploading, reading and deleting overrides.
type Server struct {
	cfg     *config.Config
	store   *logo.Store
	dist    *distribute.Distributor // nil when push mode is off
	icpt    *intercept.Interceptor  // nil when intercept mode is off
	history *history.Store
	hub     *events.Hub
	metrics *metrics.Metrics
	log     zerolog.Logger
	handler http.Handler
	http    *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithHistory exposes recorded runs under /logo/history.
func WithHistory(h *history.Store) Option {
	return func(s *Server) { s.history = h }
}

// WithHub streams runs to websocket clients under /logo/events.
func WithHub(h *events.Hub) Option {
	return func(s *Server) { s.hub = h }
}

// WithMetrics serves /metrics and counts store operations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger used for access logs and handler errors.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a new Server. dist and icpt may be nil when the corresponding
// mode is disabled.
func New(cfg *config.Config, store *logo.Store, dist *distribute.Distributor, icpt *intercept.Interceptor, opts ...Option) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		dist:  dist,
		icpt:  icpt,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "server").Logger()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logMiddleware)
	r.Use(middleware.Recoverer)
	// Same-origin only unless origins are configured; an empty list would
	// make cors allow every origin.
	if len(cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         int((10 * time.Minute).Seconds()),
		}))
	}
	if icpt != nil {
		r.Use(icpt.Middleware)
	}

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/logo", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)
		r.Get("/history/{id}", s.handleHistoryRun)
		if s.hub != nil {
			r.Handle("/events", s.hub)
		}
		r.Get("/{role}", s.handleGetLogo)

		r.Group(func(r chi.Router) {
			if cfg.Server.RateLimit > 0 {
				r.Use(httprate.LimitByIP(cfg.Server.RateLimit, time.Minute))
			}
			r.Post("/upload", s.handleUpload)
			r.Delete("/{role}", s.handleDeleteLogo)
		})
	})

	s.handler = r
	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ev := s.log.Info()
		if status >= http.StatusInternalServerError {
			ev = s.log.Warn()
		}
		ev.Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
