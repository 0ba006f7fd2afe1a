package merkle

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// MultiProofVerify returns true if all leaves can be simultaneously proven to be
// part of a tree with the given root. A root mismatch returns false with a nil
// error; a malformed multiproof returns ErrInvalidMultiProof.
func MultiProofVerify(proof []common.Hash, proofFlags []bool, root common.Hash, leaves []common.Hash) (bool, error) {
	return MultiProofVerifyWithHasher(proof, proofFlags, root, leaves, CommutativeKeccak256)
}

// MultiProofVerifyWithHasher is MultiProofVerify with a caller-supplied pair hasher.
func MultiProofVerifyWithHasher(proof []common.Hash, proofFlags []bool, root common.Hash, leaves []common.Hash, hasher PairHasher) (bool, error) {
	computed, err := ProcessMultiProofWithHasher(proof, proofFlags, leaves, hasher)
	if err != nil {
		return false, err
	}
	return computed == root, nil
}

// ProcessMultiProof rebuilds the root from a set of leaves, the sibling hashes in
// proof and the proofFlags using CommutativeKeccak256.
func ProcessMultiProof(proof []common.Hash, proofFlags []bool, leaves []common.Hash) (common.Hash, error) {
	return ProcessMultiProofWithHasher(proof, proofFlags, leaves, CommutativeKeccak256)
}

// ProcessMultiProofWithHasher is ProcessMultiProof with a caller-supplied pair hasher.
//
// Step i combines two operands into hashes[i]. The first operand is always taken
// from the node queue: the leaves in order, then the hashes computed by earlier
// steps. The second operand is taken from the node queue as well when
// proofFlags[i] is set, otherwise from proof.
//
// The result is the last computed hash. With no flags it is leaves[0], or
// proof[0] when there are no leaves either. That last case returns whatever the
// caller put in proof, so callers that require at least one leaf must check it
// themselves.
func ProcessMultiProofWithHasher(proof []common.Hash, proofFlags []bool, leaves []common.Hash, hasher PairHasher) (common.Hash, error) {
	leavesLen := len(leaves)
	proofLen := len(proof)
	proofFlagsLen := len(proofFlags)

	// N inputs reduce to one root in exactly N-1 combinations.
	if leavesLen+proofLen != proofFlagsLen+1 {
		return common.Hash{}, errors.Wrapf(ErrInvalidMultiProof,
			"%d leaves + %d proof hashes != %d flags + 1", leavesLen, proofLen, proofFlagsLen)
	}

	hashes := make([]common.Hash, proofFlagsLen)
	leafPos, hashPos, proofPos := 0, 0, 0

	// nextNode pops the node queue for step i. hashes[i] and later slots are not
	// written yet, so only hashes[0:i] may be consumed.
	nextNode := func(i int) (common.Hash, error) {
		if leafPos < leavesLen {
			leafPos++
			return leaves[leafPos-1], nil
		}
		if hashPos >= i {
			return common.Hash{}, errors.Wrapf(ErrInvalidMultiProof,
				"step %d reads hash %d before it is computed", i, hashPos)
		}
		hashPos++
		return hashes[hashPos-1], nil
	}

	for i := 0; i < proofFlagsLen; i++ {
		a, err := nextNode(i)
		if err != nil {
			return common.Hash{}, err
		}

		var b common.Hash
		if proofFlags[i] {
			b, err = nextNode(i)
			if err != nil {
				return common.Hash{}, err
			}
		} else {
			if proofPos >= proofLen {
				return common.Hash{}, errors.Wrapf(ErrInvalidMultiProof,
					"step %d needs proof hash %d but only %d were supplied", i, proofPos, proofLen)
			}
			b = proof[proofPos]
			proofPos++
		}

		hashes[i] = hasher(a, b)
	}

	if proofFlagsLen > 0 {
		if proofPos != proofLen {
			return common.Hash{}, errors.Wrapf(ErrInvalidMultiProof,
				"%d of %d proof hashes left unconsumed", proofLen-proofPos, proofLen)
		}
		return hashes[proofFlagsLen-1], nil
	}
	if leavesLen > 0 {
		return leaves[0], nil
	}
	return proof[0], nil
}
