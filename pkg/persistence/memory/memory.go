package memory

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/types"
)

// MemoryPersistence is an in-memory implementation of IRootPersistence.
// This implementation is intended for TESTING and local development only.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Copies values to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Trusted roots: name -> TrustedRoot
	roots map[string]*types.TrustedRoot

	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
// Logs a loud warning since registered roots do not survive a restart.
func NewMemoryPersistence(logger *zap.Logger) *MemoryPersistence {
	if logger != nil {
		logger.Sugar().Warnw("Using in-memory persistence - ALL REGISTERED ROOTS WILL BE LOST ON RESTART",
			"hint", "set MERKLE_PERSISTENCE_TYPE=badger or redis for production")
	}

	return &MemoryPersistence{
		roots: make(map[string]*types.TrustedRoot),
	}
}

// SaveRoot persists a trusted root.
func (m *MemoryPersistence) SaveRoot(root *types.TrustedRoot) error {
	if root == nil {
		return fmt.Errorf("cannot save nil TrustedRoot")
	}
	if err := persistence.ValidateRootName(root.Name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	m.roots[root.Name] = copyRoot(root)
	return nil
}

// LoadRoot retrieves a trusted root by name.
func (m *MemoryPersistence) LoadRoot(name string) (*types.TrustedRoot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	root, exists := m.roots[name]
	if !exists {
		return nil, nil // Not found is not an error
	}

	return copyRoot(root), nil
}

// ListRoots returns all trusted roots sorted by name.
func (m *MemoryPersistence) ListRoots() ([]*types.TrustedRoot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	names := make([]string, 0, len(m.roots))
	for name := range m.roots {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]*types.TrustedRoot, 0, len(names))
	for _, name := range names {
		result = append(result, copyRoot(m.roots[name]))
	}

	return result, nil
}

// DeleteRoot removes a trusted root.
func (m *MemoryPersistence) DeleteRoot(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	delete(m.roots, name)
	return nil
}

// Close marks the persistence layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrClosed
	}
	return nil
}

// TrustedRoot holds only value fields, so a shallow copy is a full copy.
func copyRoot(r *types.TrustedRoot) *types.TrustedRoot {
	c := *r
	return &c
}
