package persistence

import "github.com/Layr-Labs/merkle-verifier-go/pkg/types"

// IRootPersistence defines the interface for the trusted root registry.
// All implementations must be thread-safe as the server handles requests concurrently.
type IRootPersistence interface {
	// SaveRoot persists a trusted root under its name.
	// Overwrites any existing root with the same name.
	SaveRoot(root *types.TrustedRoot) error

	// LoadRoot retrieves a trusted root by name.
	// Returns nil if the root doesn't exist, error only on storage failure.
	LoadRoot(name string) (*types.TrustedRoot, error)

	// ListRoots returns all trusted roots sorted by name.
	// Returns empty slice if no roots exist, error only on storage failure.
	ListRoots() ([]*types.TrustedRoot, error)

	// DeleteRoot removes a trusted root by name.
	// Idempotent - returns nil if the root doesn't exist.
	DeleteRoot(name string) error

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	// Returns nil if healthy, error describing the problem if not.
	HealthCheck() error
}
