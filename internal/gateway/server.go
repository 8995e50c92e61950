// Package gateway implements a local simulator of the remote quantum
// gateway, for development and end-to-end testing of the client. It
// speaks the same wire protocol: one PUT endpoint per device, submit
// and poll disambiguated by payload shape.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/qgate-dev/qgate/internal/model"
	"github.com/qgate-dev/qgate/internal/store"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second

	// defaultFinishAfter is how many polls a running job takes before it
	// reports finished.
	defaultFinishAfter = 2
)

// Config holds the simulator's settings.
type Config struct {
	Addr string
	// Token, when set, is required as access_token on every request.
	Token string
	// FinishAfter is the number of polls before a running job finishes.
	FinishAfter int
	// Catalog is the device list to serve. Defaults to model.DefaultCatalog().
	Catalog []model.Device
}

// Server wraps the chi router and simulator state.
type Server struct {
	router      *chi.Mux
	store       store.Store
	logger      *slog.Logger
	addr        string
	token       string
	finishAfter int
	catalog     []model.Device

	mu    sync.Mutex
	polls map[string]int
}

// NewServer creates and configures a new simulator server.
func NewServer(cfg Config, s store.Store, logger *slog.Logger) *Server {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = model.DefaultCatalog()
	}
	finishAfter := cfg.FinishAfter
	if finishAfter <= 0 {
		finishAfter = defaultFinishAfter
	}

	srv := &Server{
		router:      chi.NewRouter(),
		store:       s,
		logger:      logger,
		addr:        cfg.Addr,
		token:       cfg.Token,
		finishAfter: finishAfter,
		catalog:     catalog,
		polls:       make(map[string]int),
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(middleware.StripSlashes)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Ocp-Apim-Subscription-Key", "SDK", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers the health and metrics endpoints plus one PUT route
// per catalog device.
func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	for _, d := range s.catalog {
		route := "/" + strings.TrimSuffix(d.Path, "/")
		s.router.Put(route, s.handleDevice(d))
	}
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway simulator listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// countPoll increments and returns the poll count for an execution id.
func (s *Server) countPoll(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[id]++
	return s.polls[id]
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
