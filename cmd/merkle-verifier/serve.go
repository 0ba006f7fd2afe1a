package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/config"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/logger"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/persistence"
	persistenceBadger "github.com/Layr-Labs/merkle-verifier-go/pkg/persistence/badger"
	persistenceMemory "github.com/Layr-Labs/merkle-verifier-go/pkg/persistence/memory"
	persistenceRedis "github.com/Layr-Labs/merkle-verifier-go/pkg/persistence/redis"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/server"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the verification server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   config.DefaultPort,
				Usage:   "HTTP server port",
				EnvVars: []string{config.EnvMerklePort},
			},
			&cli.StringFlag{
				Name:    "hash-algorithm",
				Aliases: []string{"hash"},
				Value:   merkle.AlgorithmKeccak256,
				Usage:   fmt.Sprintf("Default pair hash: %v", merkle.SupportedAlgorithms()),
				EnvVars: []string{config.EnvMerkleHashAlgorithm},
			},
			&cli.StringFlag{
				Name:    "persistence-type",
				Value:   config.PersistenceTypeMemory.String(),
				Usage:   fmt.Sprintf("Root registry backend: %s", config.GetSupportedPersistenceTypesString()),
				EnvVars: []string{config.EnvMerklePersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Value:   config.DefaultDataPath,
				Usage:   "Badger data directory",
				EnvVars: []string{config.EnvMerkleDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis address (host:port)",
				EnvVars: []string{config.EnvMerkleRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvMerkleRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number (0-15)",
				EnvVars: []string{config.EnvMerkleRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Usage:   "Prefix for every Redis key",
				EnvVars: []string{config.EnvMerkleRedisKeyPrefix},
			},
			&cli.Float64Flag{
				Name:    "rate-limit",
				Value:   config.DefaultRateLimit,
				Usage:   "Requests per second, 0 disables rate limiting",
				EnvVars: []string{config.EnvMerkleRateLimit},
			},
			&cli.IntFlag{
				Name:    "rate-burst",
				Value:   config.DefaultRateBurst,
				Usage:   "Rate limiter burst size",
				EnvVars: []string{config.EnvMerkleRateBurst},
			},
			&cli.IntFlag{
				Name:    "max-proof-elements",
				Value:   config.DefaultMaxProofElements,
				Usage:   "Maximum leaves + proof hashes + flags per request",
				EnvVars: []string{config.EnvMerkleMaxProofElements},
			},
			&cli.IntFlag{
				Name:    "max-concurrency",
				Usage:   "Parallel verifications per batch, 0 means one per CPU",
				EnvVars: []string{config.EnvMerkleMaxConcurrency},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	cfg := parseServerConfig(c)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	roots, err := newRootPersistence(&cfg.Persistence, l)
	if err != nil {
		return fmt.Errorf("failed to create root persistence: %w", err)
	}
	defer func() {
		if err := roots.Close(); err != nil {
			l.Sugar().Errorw("Failed to close root persistence", "error", err)
		}
	}()

	srv, err := server.NewServer(cfg, roots, l)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if cfg.Verbose {
		l.Sugar().Infow("Verifier Server Configuration",
			"port", cfg.Port,
			"hash_algorithm", cfg.HashAlgorithm,
			"persistence", cfg.Persistence.Type,
			"rate_limit", cfg.RateLimit,
			"rate_burst", cfg.RateBurst,
			"max_proof_elements", cfg.MaxProofElements,
		)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	l.Sugar().Infow("Available endpoints",
		"verify", "POST /verify, POST /verify/batch",
		"roots", "GET|POST /roots, GET|DELETE /roots/{name}",
		"health", "GET /health")
	l.Sugar().Info("Press Ctrl+C to stop")

	<-ctx.Done()
	l.Sugar().Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func parseServerConfig(c *cli.Context) *config.VerifierServerConfig {
	cfg := &config.VerifierServerConfig{
		Port:          c.Int("port"),
		HashAlgorithm: c.String("hash-algorithm"),
		Persistence: config.PersistenceConfig{
			Type:     config.PersistenceType(c.String("persistence-type")),
			DataPath: c.String("data-path"),
		},
		RateLimit:        c.Float64("rate-limit"),
		RateBurst:        c.Int("rate-burst"),
		MaxProofElements: c.Int("max-proof-elements"),
		MaxConcurrency:   c.Int("max-concurrency"),
		Debug:            c.Bool("verbose"),
		Verbose:          c.Bool("verbose"),
	}

	if cfg.Persistence.Type == config.PersistenceTypeRedis {
		cfg.Persistence.Redis = &config.RedisConfig{
			Address:   c.String("redis-address"),
			Password:  c.String("redis-password"),
			DB:        c.Int("redis-db"),
			KeyPrefix: c.String("redis-key-prefix"),
		}
	}
	return cfg
}

// newRootPersistence opens the registry backend selected by cfg
func newRootPersistence(cfg *config.PersistenceConfig, l *zap.Logger) (persistence.IRootPersistence, error) {
	switch cfg.Type {
	case config.PersistenceTypeMemory, "":
		return persistenceMemory.NewMemoryPersistence(l), nil
	case config.PersistenceTypeBadger:
		bp, err := persistenceBadger.NewBadgerPersistence(cfg.DataPath, l)
		if err != nil {
			return nil, err
		}
		return bp, nil
	case config.PersistenceTypeRedis:
		rp, err := persistenceRedis.NewRedisPersistence(cfg.Redis, l)
		if err != nil {
			return nil, err
		}
		return rp, nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.Type)
	}
}
