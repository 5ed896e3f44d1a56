package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fixora/tracker/internal/logger"
)

// Server represents the HTTP server
type Server struct {
	addr   string
	server *http.Server
	logger logger.Logger
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
	JWTSecret    string
	JWTIssuer    string
}

// Handlers groups the route handlers mounted behind authentication
type Handlers struct {
	Lifecycle *LifecycleHandler
	Trash     *TrashHandler
}

// NewRouter builds the handler tree. gatherer serves /metrics; nil uses the
// default registry. CORS wraps the router so preflight requests are answered
// before route method matching.
func NewRouter(config ServerConfig, handlers Handlers, gatherer prometheus.Gatherer, log logger.Logger) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware)
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggingMiddleware(log))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, "ok", map[string]string{"status": "ok"})
	}).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	auth := NewAuthMiddleware(config.JWTSecret, config.JWTIssuer)
	api := router.NewRoute().Subrouter()
	api.Use(auth.RequireAuth)
	if handlers.Lifecycle != nil {
		handlers.Lifecycle.RegisterRoutes(api)
	}
	if handlers.Trash != nil {
		handlers.Trash.RegisterRoutes(api)
	}

	return CORSMiddleware(config.CORSOrigins)(router)
}

// NewServer creates a new HTTP server
func NewServer(config ServerConfig, handlers Handlers, gatherer prometheus.Gatherer, log logger.Logger) *Server {
	addr := config.Host + ":" + config.Port
	return &Server{
		addr:   addr,
		logger: log,
		server: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(config, handlers, gatherer, log),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
