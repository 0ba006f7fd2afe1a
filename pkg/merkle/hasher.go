package merkle

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// PairHasher combines two nodes into their parent.
//
// Every hasher used with the verifiers in this package must be commutative,
// H(a, b) == H(b, a). Proofs carry no left/right position information, so a
// non-commutative hasher will reject valid proofs.
type PairHasher func(a, b common.Hash) common.Hash

// Supported hash algorithm names
const (
	AlgorithmKeccak256  = "keccak256"
	AlgorithmSha256     = "sha256"
	AlgorithmBlake2b256 = "blake2b256"
	AlgorithmBlake3     = "blake3"
)

// SupportedAlgorithms lists the names accepted by HasherForAlgorithm.
func SupportedAlgorithms() []string {
	return []string{AlgorithmKeccak256, AlgorithmSha256, AlgorithmBlake2b256, AlgorithmBlake3}
}

// HasherForAlgorithm resolves an algorithm name to its commutative pair hasher.
// An empty name resolves to keccak256.
func HasherForAlgorithm(name string) (PairHasher, error) {
	switch name {
	case "", AlgorithmKeccak256:
		return CommutativeKeccak256, nil
	case AlgorithmSha256:
		return CommutativeSha256, nil
	case AlgorithmBlake2b256:
		return CommutativeBlake2b256, nil
	case AlgorithmBlake3:
		return CommutativeBlake3, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", name)
	}
}

// Keccak256Pair computes keccak256(a || b) without reordering the operands.
func Keccak256Pair(a, b common.Hash) common.Hash {
	return crypto.Keccak256Hash(a[:], b[:])
}

// CommutativeKeccak256 computes keccak256 over the sorted concatenation of a and b.
// This matches the pair hashing of Solidity Merkle proof verification.
func CommutativeKeccak256(a, b common.Hash) common.Hash {
	lo, hi := sortPair(a, b)
	return Keccak256Pair(lo, hi)
}

// CommutativeSha256 computes sha256 over the sorted concatenation of a and b.
func CommutativeSha256(a, b common.Hash) common.Hash {
	return common.Hash(sha256.Sum256(concatSorted(a, b)))
}

// CommutativeBlake2b256 computes blake2b-256 over the sorted concatenation of a and b.
func CommutativeBlake2b256(a, b common.Hash) common.Hash {
	return common.Hash(blake2b.Sum256(concatSorted(a, b)))
}

// CommutativeBlake3 computes a 32-byte blake3 digest over the sorted concatenation of a and b.
func CommutativeBlake3(a, b common.Hash) common.Hash {
	return common.Hash(blake3.Sum256(concatSorted(a, b)))
}

func sortPair(a, b common.Hash) (common.Hash, common.Hash) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

func concatSorted(a, b common.Hash) []byte {
	lo, hi := sortPair(a, b)
	data := make([]byte, 64)
	copy(data[0:32], lo[:])
	copy(data[32:64], hi[:])
	return data
}
