package merkle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/util"
)

// StandardLeafHash computes keccak256(keccak256(abi.encode(values))), the leaf
// hash used by the standard off-chain tree builder. Hashing twice keeps a leaf
// from colliding with a 64-byte internal node pre-image.
//
// The verifiers never call this; it is offered to callers who need to derive
// leaves from their application data.
func StandardLeafHash(typeNames []string, values []interface{}) (common.Hash, error) {
	encoded, err := util.EncodeLeafValues(typeNames, values)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode leaf values: %w", err)
	}
	inner := crypto.Keccak256(encoded)
	return crypto.Keccak256Hash(inner), nil
}
