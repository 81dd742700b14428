package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"anchord/internal/models"
)

// Service is the facade the handlers call into
type Service interface {
	Transactions(ctx context.Context, since *int64, hash string) (*models.TransactionsResponse, error)
	Write(ctx context.Context, anchorString string) error
	Time(ctx context.Context, hash string) (*models.BlockchainTime, error)
	WriterLock(ctx context.Context) (any, error)
	NormalizedFee(ctx context.Context, blockchainTime string) (*models.TransactionFee, error)
	ServiceVersion() models.ServiceVersion
	WalletBalance(ctx context.Context) (*models.WalletBalance, error)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the server
type Options struct {
	// LogRequestError logs unexpected handler errors before answering 500
	LogRequestError bool
}

// Server represents the HTTP API server
// Provides the anchoring endpoints plus Prometheus metrics and health checks
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	service    Service
	store      Pinger
	opts       Options
	port       int
}

// NewServer creates a new API server instance
func NewServer(port int, service Service, store Pinger, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      withRequestID(mux),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:     mux,
		service: service,
		store:   store,
		opts:    opts,
		port:    port,
	}

	// Register all HTTP routes
	s.registerRoutes()

	return s
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("/", s.handleUnknown)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", s.handleMetrics())

	// Anchoring endpoints
	s.mux.HandleFunc("GET /transactions", s.handleGetTransactions)
	s.mux.HandleFunc("POST /transactions", s.handleWriteTransaction)
	s.mux.HandleFunc("GET /time", s.handleTime)
	s.mux.HandleFunc("GET /time/{hash}", s.handleTime)
	s.mux.HandleFunc("GET /writerlock", s.handleWriterLock)
	s.mux.HandleFunc("GET /monitors/balance", s.handleBalance)
	s.mux.HandleFunc("GET /version", s.handleVersion)
	s.mux.HandleFunc("GET /fee/{blockchainTime}", s.handleFee)
}

// Handler exposes the routed handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"port", s.port,
			"endpoints", []string{"/transactions", "/time", "/writerlock", "/monitors/balance", "/version", "/fee", "/health", "/metrics"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	// Give the server a moment to start
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
