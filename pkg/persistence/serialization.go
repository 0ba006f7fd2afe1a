package persistence

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/pkg/errors"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/types"
)

// ErrClosed is returned by every operation after Close
var ErrClosed = errors.New("persistence layer is closed")

var rootNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateRootName checks that a root name is safe to use as a storage key
// and URL path segment.
func ValidateRootName(name string) error {
	if !rootNamePattern.MatchString(name) {
		return fmt.Errorf("invalid root name %q: must be 1-128 characters of [A-Za-z0-9._-] starting with a letter or digit", name)
	}
	return nil
}

// MarshalTrustedRoot serializes a TrustedRoot to JSON bytes.
func MarshalTrustedRoot(root *types.TrustedRoot) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("cannot marshal nil TrustedRoot")
	}

	data, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TrustedRoot to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalTrustedRoot deserializes a TrustedRoot from JSON bytes.
func UnmarshalTrustedRoot(data []byte) (*types.TrustedRoot, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var root types.TrustedRoot
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to TrustedRoot: %w", err)
	}

	return &root, nil
}
