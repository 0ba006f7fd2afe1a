package types

import "github.com/ethereum/go-ethereum/common"

// TrustedRoot is a Merkle root registered with the verifier under a name
type TrustedRoot struct {
	Name          string      `json:"name"`
	Root          common.Hash `json:"root"`
	HashAlgorithm string      `json:"hashAlgorithm"`
	Description   string      `json:"description,omitempty"`
	CreatedAt     int64       `json:"createdAt"` // Unix timestamp
}

// ProofRequest is a single verification job.
//
// A request with exactly one leaf and no flags is a single proof and Proof holds
// the sibling path. Any other shape is a multiproof.
type ProofRequest struct {
	Root       common.Hash   `json:"root"`
	Leaves     []common.Hash `json:"leaves"`
	Proof      []common.Hash `json:"proof"`
	ProofFlags []bool        `json:"proofFlags,omitempty"`
	// HashAlgorithm overrides the validator's default pair hasher when set
	HashAlgorithm string `json:"hashAlgorithm,omitempty"`
}

// IsSingleProof reports whether the request takes the single-proof path
func (r *ProofRequest) IsSingleProof() bool {
	return len(r.Leaves) == 1 && len(r.ProofFlags) == 0
}

// ProofResult is the outcome of verifying one ProofRequest
type ProofResult struct {
	Index        int         `json:"index"`
	Valid        bool        `json:"valid"`
	ComputedRoot common.Hash `json:"computedRoot"`
	Error        string      `json:"error,omitempty"`
}
