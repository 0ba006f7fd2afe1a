package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/config"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/types"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixRoot        = "merkle:root:"
	keySchemaVersion     = "merkle:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Redis has no native prefix iteration, so root names are tracked in a set
	keySetRoots = "merkle:roots:index"

	operationTimeout = 5 * time.Second
)

// RedisPersistence is a root registry backed by Redis, suitable for several
// verifier replicas sharing one set of trusted roots.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// NewRedisPersistence creates a new Redis-backed persistence layer.
func NewRedisPersistence(cfg *config.RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)

	return rp, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisPersistence) prefixKey(key string) string {
	return r.keyPrefix + key
}

func (r *RedisPersistence) rootKey(name string) string {
	return r.prefixKey(keyPrefixRoot + name)
}

// initSchema initializes or validates the schema version
func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}

	return nil
}

// SaveRoot persists a trusted root
func (r *RedisPersistence) SaveRoot(root *types.TrustedRoot) error {
	if root == nil {
		return fmt.Errorf("cannot save nil TrustedRoot")
	}
	if err := persistence.ValidateRootName(root.Name); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	data, err := persistence.MarshalTrustedRoot(root)
	if err != nil {
		return fmt.Errorf("failed to marshal TrustedRoot: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.rootKey(root.Name), data, 0)
	pipe.SAdd(ctx, r.prefixKey(keySetRoots), root.Name)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save TrustedRoot: %w", err)
	}
	return nil
}

// LoadRoot retrieves a trusted root
func (r *RedisPersistence) LoadRoot(name string) (*types.TrustedRoot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.rootKey(name)).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load TrustedRoot: %w", err)
	}

	root, err := persistence.UnmarshalTrustedRoot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal TrustedRoot: %w", err)
	}
	return root, nil
}

// ListRoots returns all trusted roots sorted by name
func (r *RedisPersistence) ListRoots() ([]*types.TrustedRoot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	indexKey := r.prefixKey(keySetRoots)
	names, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list TrustedRoot names: %w", err)
	}

	roots := make([]*types.TrustedRoot, 0, len(names))
	if len(names) == 0 {
		return roots, nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = r.rootKey(name)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch TrustedRoots: %w", err)
	}

	for i, val := range values {
		if val == nil {
			// In the index but gone from the keyspace
			r.client.SRem(ctx, indexKey, names[i])
			continue
		}

		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Unexpected value type for TrustedRoot", "key", keys[i])
			continue
		}

		root, err := persistence.UnmarshalTrustedRoot([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal TrustedRoot, skipping",
				"key", keys[i], "error", err)
			continue
		}

		roots = append(roots, root)
	}

	sort.Slice(roots, func(i, j int) bool {
		return roots[i].Name < roots[j].Name
	})

	return roots, nil
}

// DeleteRoot removes a trusted root
func (r *RedisPersistence) DeleteRoot(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.rootKey(name))
	pipe.SRem(ctx, r.prefixKey(keySetRoots), name)

	_, err := pipe.Exec(ctx)
	return err
}

// Close shuts down the persistence layer
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if err == redis.Nil {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}

	return nil
}
