package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/beacon/internal/report"
	"github.com/jpalmerr/beacon/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// maxReportSize bounds report request bodies.
	maxReportSize = 64 << 10

	defaultTitle = "Beacon"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Service is the report handling core the server exposes.
type Service interface {
	Submit(probeID, nodeID string, body []byte) (report.Receipt, error)
	SubmitFlush(probeID, nodeID, replicaID string) error
	Snapshot() store.StatesView
	Status() store.Status
	Disable(probeID string) store.ToggleResult
	Enable(probeID string) store.ToggleResult
}

// Config holds the server settings.
type Config struct {
	// Port is the TCP port to listen on.
	Port int
	// Title is the dashboard title (defaults to "Beacon").
	Title string
	// Assets contains assets/index.html. May be nil.
	Assets fs.FS
	// ReporterToken protects /reporter routes when set.
	ReporterToken string
	// ManagerToken protects /manager routes when set.
	ManagerToken string
	// Gatherer backs /metrics. When nil the route is not mounted.
	Gatherer prometheus.Gatherer
	// AllowedOrigins for CORS on /api. Defaults to any origin.
	AllowedOrigins []string
}

// Server handles HTTP requests for the dashboard, API, reporters and managers.
type Server struct {
	svc        Service
	store      store.Store
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server

	handlerOnce sync.Once
	handler     http.Handler
}

// NewServer creates a new HTTP [Server].
//
// The store is used for SSE subscriptions only; every other read goes
// through svc. The server is not started until [Server.Start] is called.
func NewServer(svc Service, st store.Store, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Server{
		svc:    svc,
		store:  st,
		cfg:    cfg,
		logger: logger,
	}
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		s.handler = s.routes()
	})
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	if s.cfg.Assets != nil {
		r.Get("/", s.handleDashboard)
	}
	r.Get("/status/text", s.handleStatusText)
	r.Get("/badge/{kind}", s.handleBadge)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Cache-Control"},
		}))
		r.Get("/status", s.handleStatus)
		r.Get("/sse", s.handleSSE)
	})

	r.Route("/reporter", func(r chi.Router) {
		r.Use(tokenAuth("reporter", s.cfg.ReporterToken))
		r.Post("/{probe}/{node}", s.handleReport)
		r.Delete("/{probe}/{node}/{replica}", s.handleFlush)
	})

	r.Route("/manager", func(r chi.Router) {
		r.Use(tokenAuth("manager", s.cfg.ManagerToken))
		r.Post("/probes/{probe}/disable", s.handleDisable)
		r.Post("/probes/{probe}/enable", s.handleEnable)
	})

	if s.cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.cfg.Port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}
