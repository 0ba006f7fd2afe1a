package merkle

import "github.com/pkg/errors"

// ErrInvalidMultiProof is returned when a multiproof is structurally malformed:
// the length invariant fails, a queue is read before it has a value, or proof
// elements are left unconsumed. A root mismatch is never reported through it.
var ErrInvalidMultiProof = errors.New("merkle: invalid multiproof")
