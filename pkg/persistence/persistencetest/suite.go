// Package persistencetest holds the behaviour every IRootPersistence backend
// must share. Backend packages run it from their own tests.
package persistencetest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/types"
)

// Factory returns a fresh, empty backend. The suite closes it.
type Factory func(t *testing.T) persistence.IRootPersistence

// NewRoot returns a TrustedRoot with a root derived from name
func NewRoot(name string) *types.TrustedRoot {
	return &types.TrustedRoot{
		Name:          name,
		Root:          crypto.Keccak256Hash([]byte(name)),
		HashAlgorithm: "keccak256",
		Description:   "root for " + name,
		CreatedAt:     1700000000,
	}
}

// RunRootPersistenceSuite exercises the full IRootPersistence contract
func RunRootPersistenceSuite(t *testing.T, newBackend Factory) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		root := NewRoot("allowlist")
		require.NoError(t, p.SaveRoot(root))

		loaded, err := p.LoadRoot("allowlist")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, root, loaded)
	})

	t.Run("LoadNotFound", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		loaded, err := p.LoadRoot("missing")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		require.NoError(t, p.SaveRoot(NewRoot("claims")))

		updated := NewRoot("claims")
		updated.Root = common.HexToHash("0x01")
		updated.HashAlgorithm = "sha256"
		require.NoError(t, p.SaveRoot(updated))

		loaded, err := p.LoadRoot("claims")
		require.NoError(t, err)
		assert.Equal(t, updated, loaded)

		roots, err := p.ListRoots()
		require.NoError(t, err)
		assert.Len(t, roots, 1)
	})

	t.Run("SaveRejectsInvalid", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		require.Error(t, p.SaveRoot(nil))
		require.Error(t, p.SaveRoot(NewRoot("")))
		require.Error(t, p.SaveRoot(NewRoot("has space")))
	})

	t.Run("ListSortedByName", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		roots, err := p.ListRoots()
		require.NoError(t, err)
		require.NotNil(t, roots)
		assert.Empty(t, roots)

		for _, name := range []string{"zeta", "alpha", "mu"} {
			require.NoError(t, p.SaveRoot(NewRoot(name)))
		}

		roots, err = p.ListRoots()
		require.NoError(t, err)
		require.Len(t, roots, 3)
		assert.Equal(t, "alpha", roots[0].Name)
		assert.Equal(t, "mu", roots[1].Name)
		assert.Equal(t, "zeta", roots[2].Name)
		assert.Equal(t, NewRoot("mu").Root, roots[1].Root)
	})

	t.Run("Delete", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		require.NoError(t, p.SaveRoot(NewRoot("a")))
		require.NoError(t, p.SaveRoot(NewRoot("b")))
		require.NoError(t, p.DeleteRoot("a"))

		loaded, err := p.LoadRoot("a")
		require.NoError(t, err)
		assert.Nil(t, loaded)

		roots, err := p.ListRoots()
		require.NoError(t, err)
		require.Len(t, roots, 1)
		assert.Equal(t, "b", roots[0].Name)

		// Deleting a missing root is a no-op
		require.NoError(t, p.DeleteRoot("a"))
		require.NoError(t, p.DeleteRoot("never-existed"))
	})

	t.Run("ReturnedValuesAreCopies", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		root := NewRoot("copy")
		require.NoError(t, p.SaveRoot(root))
		root.Description = "mutated after save"

		loaded, err := p.LoadRoot("copy")
		require.NoError(t, err)
		assert.Equal(t, "root for copy", loaded.Description)

		loaded.Description = "mutated after load"
		again, err := p.LoadRoot("copy")
		require.NoError(t, err)
		assert.Equal(t, "root for copy", again.Description)
	})

	t.Run("HealthCheck", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		require.NoError(t, p.HealthCheck())
	})

	t.Run("ClosedOperations", func(t *testing.T) {
		p := newBackend(t)
		require.NoError(t, p.Close())
		require.NoError(t, p.Close(), "Close must be idempotent")

		assert.ErrorIs(t, p.SaveRoot(NewRoot("late")), persistence.ErrClosed)
		_, err := p.LoadRoot("late")
		assert.ErrorIs(t, err, persistence.ErrClosed)
		_, err = p.ListRoots()
		assert.ErrorIs(t, err, persistence.ErrClosed)
		assert.ErrorIs(t, p.DeleteRoot("late"), persistence.ErrClosed)
		assert.ErrorIs(t, p.HealthCheck(), persistence.ErrClosed)
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		const workers = 8
		const perWorker = 10

		var wg sync.WaitGroup
		errCh := make(chan error, workers*perWorker*2)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					name := fmt.Sprintf("root-%d-%d", w, i)
					if err := p.SaveRoot(NewRoot(name)); err != nil {
						errCh <- err
						continue
					}
					if _, err := p.LoadRoot(name); err != nil {
						errCh <- err
					}
				}
			}()
		}
		wg.Wait()
		close(errCh)

		for err := range errCh {
			require.NoError(t, err)
		}

		roots, err := p.ListRoots()
		require.NoError(t, err)
		assert.Len(t, roots, workers*perWorker)
	})
}
