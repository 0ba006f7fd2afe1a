package types

import "github.com/ethereum/go-ethereum/common"

// VerifyRequest is the body of POST /verify.
// Either RootName (a registered root) or Root must be set.
type VerifyRequest struct {
	RootName   string        `json:"rootName,omitempty"`
	Root       *common.Hash  `json:"root,omitempty"`
	Leaves     []common.Hash `json:"leaves"`
	Proof      []common.Hash `json:"proof"`
	ProofFlags []bool        `json:"proofFlags,omitempty"`
	// HashAlgorithm is ignored when RootName is set; the registered algorithm wins
	HashAlgorithm string `json:"hashAlgorithm,omitempty"`
}

// VerifyResponse is returned by POST /verify
type VerifyResponse struct {
	RequestID    string      `json:"requestId"`
	Valid        bool        `json:"valid"`
	Root         common.Hash `json:"root"`
	ComputedRoot common.Hash `json:"computedRoot"`
}

// BatchVerifyRequest is the body of POST /verify/batch
type BatchVerifyRequest struct {
	Requests []VerifyRequest `json:"requests"`
}

// BatchVerifyResponse is returned by POST /verify/batch
type BatchVerifyResponse struct {
	RequestID string        `json:"requestId"`
	Results   []ProofResult `json:"results"`
}

// RegisterRootRequest is the body of POST /roots
type RegisterRootRequest struct {
	Name          string      `json:"name"`
	Root          common.Hash `json:"root"`
	HashAlgorithm string      `json:"hashAlgorithm,omitempty"`
	Description   string      `json:"description,omitempty"`
}

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	RequestID string `json:"requestId,omitempty"`
	Error     string `json:"error"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
}
