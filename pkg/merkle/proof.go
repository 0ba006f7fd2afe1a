package merkle

import "github.com/ethereum/go-ethereum/common"

// Verify returns true if leaf can be proven to be part of a tree with the given root.
// The proof holds the sibling hashes on the path from the leaf to the root.
func Verify(proof []common.Hash, root, leaf common.Hash) bool {
	return ProcessProof(proof, leaf) == root
}

// VerifyWithHasher is Verify with a caller-supplied pair hasher.
func VerifyWithHasher(proof []common.Hash, root, leaf common.Hash, hasher PairHasher) bool {
	return ProcessProofWithHasher(proof, leaf, hasher) == root
}

// ProcessProof rebuilds the root from a leaf and its proof using CommutativeKeccak256.
// An empty proof returns the leaf unchanged.
func ProcessProof(proof []common.Hash, leaf common.Hash) common.Hash {
	return ProcessProofWithHasher(proof, leaf, CommutativeKeccak256)
}

// ProcessProofWithHasher is ProcessProof with a caller-supplied pair hasher.
func ProcessProofWithHasher(proof []common.Hash, leaf common.Hash, hasher PairHasher) common.Hash {
	computedHash := leaf
	for _, sibling := range proof {
		computedHash = hasher(computedHash, sibling)
	}
	return computedHash
}
