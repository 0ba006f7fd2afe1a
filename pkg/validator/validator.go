package validator

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/types"
)

// ErrNilRequest is returned for a nil proof request
var ErrNilRequest = errors.New("validator: nil proof request")

// Config configures a Validator
type Config struct {
	// HashAlgorithm names the default pair hasher (see merkle.SupportedAlgorithms).
	// Empty means keccak256.
	HashAlgorithm string

	// MaxConcurrency bounds the number of requests ValidateBatch verifies at once.
	// Zero means runtime.NumCPU().
	MaxConcurrency int
}

// Validator checks proofs against expected roots. It picks the single-proof or
// multiproof path from the request shape, surfaces structural errors, and
// reports a root mismatch as a plain false.
//
// A Validator holds no mutable state and is safe for concurrent use.
type Validator struct {
	hashAlgorithm  string
	hasher         merkle.PairHasher
	maxConcurrency int
	logger         *zap.Logger
}

// NewValidator creates a validator from config
func NewValidator(cfg *Config, logger *zap.Logger) (*Validator, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	algorithm := cfg.HashAlgorithm
	if algorithm == "" {
		algorithm = merkle.AlgorithmKeccak256
	}
	hasher, err := merkle.HasherForAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}

	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.NumCPU()
	}

	return &Validator{
		hashAlgorithm:  algorithm,
		hasher:         hasher,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}, nil
}

// NewValidatorWithHasher creates a validator around a custom pair hasher.
// The caller is responsible for the hasher being commutative and collision resistant.
func NewValidatorWithHasher(hasher merkle.PairHasher, logger *zap.Logger) (*Validator, error) {
	if hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Validator{
		hashAlgorithm:  "custom",
		hasher:         hasher,
		maxConcurrency: runtime.NumCPU(),
		logger:         logger,
	}, nil
}

// HashAlgorithm returns the name of the default pair hasher
func (v *Validator) HashAlgorithm() string {
	return v.hashAlgorithm
}

// Process rebuilds the root for a request without comparing it
func (v *Validator) Process(req *types.ProofRequest) (common.Hash, error) {
	if req == nil {
		return common.Hash{}, ErrNilRequest
	}

	hasher, err := v.hasherFor(req)
	if err != nil {
		return common.Hash{}, err
	}

	if req.IsSingleProof() {
		return merkle.ProcessProofWithHasher(req.Proof, req.Leaves[0], hasher), nil
	}
	return merkle.ProcessMultiProofWithHasher(req.Proof, req.ProofFlags, req.Leaves, hasher)
}

// Validate verifies a request. It returns false with a nil error when the
// computed root differs from req.Root, and an error wrapping
// merkle.ErrInvalidMultiProof when the multiproof is malformed.
func (v *Validator) Validate(req *types.ProofRequest) (bool, error) {
	computed, err := v.Process(req)
	if err != nil {
		v.logger.Sugar().Debugw("Proof rejected", "error", err)
		return false, err
	}

	valid := computed == req.Root
	v.logger.Sugar().Debugw("Proof verified",
		"single", req.IsSingleProof(),
		"leaves", len(req.Leaves),
		"proof_hashes", len(req.Proof),
		"valid", valid,
	)
	return valid, nil
}

// ValidateBatch verifies independent requests in parallel. Results are
// returned in request order; a malformed request only fails its own result.
// If ctx is cancelled, requests not yet started are marked with the context
// error and that error is returned alongside the results.
func (v *Validator) ValidateBatch(ctx context.Context, reqs []*types.ProofRequest) ([]types.ProofResult, error) {
	results := make([]types.ProofResult, len(reqs))

	g := new(errgroup.Group)
	g.SetLimit(v.maxConcurrency)

	for i, req := range reqs {
		results[i].Index = i

		if err := ctx.Err(); err != nil {
			results[i].Error = err.Error()
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Error = err.Error()
				return nil
			}

			computed, err := v.Process(req)
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].ComputedRoot = computed
			results[i].Valid = computed == req.Root
			return nil
		})
	}

	_ = g.Wait()

	valid := 0
	for _, r := range results {
		if r.Valid {
			valid++
		}
	}
	v.logger.Sugar().Debugw("Batch verified", "requests", len(reqs), "valid", valid)

	return results, ctx.Err()
}

func (v *Validator) hasherFor(req *types.ProofRequest) (merkle.PairHasher, error) {
	if req.HashAlgorithm == "" || req.HashAlgorithm == v.hashAlgorithm {
		return v.hasher, nil
	}
	return merkle.HasherForAlgorithm(req.HashAlgorithm)
}
