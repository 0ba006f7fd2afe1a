// Package servertest runs a verifier server on a local listener for tests.
package servertest

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/config"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/logger"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/persistence/memory"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/server"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/types"
)

// TestServer is a verifier server on an httptest listener backed by
// in-memory persistence
type TestServer struct {
	Server *server.Server
	HTTP   *httptest.Server
	URL    string
	Roots  persistence.IRootPersistence
	Config *config.VerifierServerConfig
	logger *zap.Logger
}

// NewTestServer starts a verifier server for the duration of the test.
// configure may adjust the config before validation; rate limiting is off
// unless configure enables it.
func NewTestServer(t *testing.T, configure func(cfg *config.VerifierServerConfig)) *TestServer {
	t.Helper()

	testLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	cfg := &config.VerifierServerConfig{Port: config.DefaultPort}
	if configure != nil {
		configure(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Invalid test server config: %v", err)
	}

	roots := memory.NewMemoryPersistence(nil)
	srv, err := server.NewServer(cfg, roots, testLogger)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	httpServer := httptest.NewServer(srv.GetHandler())
	ts := &TestServer{
		Server: srv,
		HTTP:   httpServer,
		URL:    httpServer.URL,
		Roots:  roots,
		Config: cfg,
		logger: testLogger,
	}
	t.Cleanup(ts.Close)

	testLogger.Sugar().Debugw("Started test server", "url", ts.URL)
	return ts
}

// AddTestRoot registers a root directly in the server's registry
func (ts *TestServer) AddTestRoot(t *testing.T, name string, root common.Hash, hashAlgorithm string) *types.TrustedRoot {
	t.Helper()

	trusted := &types.TrustedRoot{
		Name:          name,
		Root:          root,
		HashAlgorithm: hashAlgorithm,
		CreatedAt:     time.Now().Unix(),
	}
	if err := ts.Roots.SaveRoot(trusted); err != nil {
		t.Fatalf("Failed to add test root %s: %v", name, err)
	}
	return trusted
}

// Close shuts down the listener and the registry
func (ts *TestServer) Close() {
	ts.HTTP.Close()
	_ = ts.Roots.Close()
	ts.logger.Sugar().Debugw("Closed test server", "url", ts.URL)
}
