package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/config"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/validator"
)

/*
Server exposes proof verification and the trusted root registry over HTTP.

Verification:
  POST /verify:
    - Request: { rootName | root, leaves, proof, proofFlags, hashAlgorithm }
    - rootName resolves against the registry and uses the registered hash algorithm
    - Exactly one leaf and no flags verifies a single proof, anything else a multiproof
    - Response: { requestId, valid, root, computedRoot }
    - A root mismatch is 200 with valid=false, a malformed multiproof is 422

  POST /verify/batch:
    - Request: { requests: [VerifyRequest...] }
    - Requests are verified in parallel and fail independently

Registry:
  POST   /roots         register or replace a named root
  GET    /roots         list roots sorted by name
  GET    /roots/{name}  fetch one root
  DELETE /roots/{name}  remove one root

  GET /health: persistence health

Every response carries an X-Request-Id header. Requests beyond the configured
rate get 429, and requests carrying more than MaxProofElements hashes and
flags get 413.
*/

// Server handles HTTP requests for the verifier
type Server struct {
	config     *config.VerifierServerConfig
	validator  *validator.Validator
	roots      persistence.IRootPersistence
	limiter    *rate.Limiter
	logger     *zap.Logger
	httpServer *http.Server
}

// NewServer creates a new server instance. cfg must already be validated.
func NewServer(cfg *config.VerifierServerConfig, roots persistence.IRootPersistence, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if roots == nil {
		return nil, fmt.Errorf("root persistence is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	v, err := validator.NewValidator(&validator.Config{
		HashAlgorithm:  cfg.HashAlgorithm,
		MaxConcurrency: cfg.MaxConcurrency,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	s := &Server{
		config:    cfg,
		validator: v,
		roots:     roots,
		logger:    logger,
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	mux := http.NewServeMux()

	// Verification endpoints
	mux.HandleFunc("/verify", s.handleVerify)
	mux.HandleFunc("/verify/batch", s.handleVerifyBatch)

	// Registry endpoints
	mux.HandleFunc("/roots", s.handleRoots)
	mux.HandleFunc("/roots/{name}", s.handleRoot)

	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.withRequestID(s.withRateLimit(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("Starting HTTP server",
			"port", s.httpServer.Addr,
			"hash_algorithm", s.validator.HashAlgorithm(),
			"persistence", s.config.Persistence.Type,
		)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the HTTP server down, waiting for in-flight requests
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}
