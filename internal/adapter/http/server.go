package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/fixora/analytics/internal/infra/http/middleware"
	"github.com/fixora/analytics/internal/infra/logger"
	"github.com/fixora/analytics/internal/infra/metrics"
)

// Server represents the HTTP server
type Server struct {
	addr   string
	server *http.Server
	logger logger.Logger
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port             string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	AllowedOrigins   []string
	AllowCredentials bool
}

// NewServer creates a new HTTP server
func NewServer(
	config ServerConfig,
	dashboardHandler *DashboardHandler,
	health *HealthHandler,
	m *metrics.Metrics,
	log logger.Logger,
) *Server {
	router := NewRouter(dashboardHandler, health, m, log)

	var handler http.Handler = router
	handler = middleware.CORSMiddleware(handler, config.AllowedOrigins, config.AllowCredentials)
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log}),
		handlers.PrintRecoveryStack(true),
	)(handler)

	return &Server{
		addr:   ":" + config.Port,
		logger: log,
		server: &http.Server{
			Addr:         ":" + config.Port,
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// NewRouter wires the dashboard routes with correlation, logging and
// metrics middleware. A nil health handler reports ok unconditionally.
func NewRouter(dashboardHandler *DashboardHandler, health *HealthHandler, m *metrics.Metrics, log logger.Logger) *mux.Router {
	router := mux.NewRouter()

	dashboardHandler.RegisterRoutes(router)

	if health == nil {
		health = NewHealthHandler(log)
	}
	router.Handle("/health", health).Methods("GET")
	if m != nil {
		router.Handle("/metrics", m.Handler()).Methods("GET")
	}

	router.Use(middleware.CorrelationIDMiddleware)
	router.Use(loggingMiddleware(log))
	router.Use(instrumentMiddleware(m))

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.addr})
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}

// Middleware

type loggingWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *loggingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *loggingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func loggingMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(lw, r)
			log.Info(r.Context(), "HTTP request", map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      lw.status,
				"remote_addr": r.RemoteAddr,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

// instrumentMiddleware labels request metrics with the matched route template
func instrumentMiddleware(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.WrapHandler(route, next).ServeHTTP(w, r)
		})
	}
}

// recoveryLogger feeds recovered panics into the structured logger
type recoveryLogger struct {
	log logger.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error(context.Background(), "Panic recovered", fmt.Errorf("%s", fmt.Sprint(v...)), nil)
}
