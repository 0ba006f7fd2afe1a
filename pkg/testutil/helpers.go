package testutil

import (
	"crypto/rand"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RandomHash generates a random 32-byte hash for testing
func RandomHash() common.Hash {
	var hash common.Hash
	_, _ = rand.Read(hash[:]) // Ignore error in test helper
	return hash
}

// CreateTestLeaves creates n distinct, deterministic leaf hashes
func CreateTestLeaves(n int) []common.Hash {
	leaves := make([]common.Hash, n)
	for i := 0; i < n; i++ {
		leaves[i] = crypto.Keccak256Hash(common.BigToHash(big.NewInt(int64(i + 1))).Bytes())
	}
	return leaves
}

// FlipBit returns a copy of h with one bit inverted.
func FlipBit(h common.Hash, bit int) common.Hash {
	out := h
	out[(bit/8)%32] ^= 1 << (bit % 8)
	return out
}
