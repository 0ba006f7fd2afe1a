package util

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EncodeLeafValues abi.encodes values according to their solidity type names,
// e.g. []string{"address", "uint256"}.
func EncodeLeafValues(typeNames []string, values []interface{}) ([]byte, error) {
	if len(typeNames) != len(values) {
		return nil, fmt.Errorf("got %d types for %d values", len(typeNames), len(values))
	}

	arguments := make(abi.Arguments, 0, len(typeNames))
	for _, name := range typeNames {
		argType, err := abi.NewType(name, "", nil)
		if err != nil {
			return nil, fmt.Errorf("invalid abi type %q: %w", name, err)
		}
		arguments = append(arguments, abi.Argument{Type: argType})
	}

	encoded, err := arguments.Pack(values...)
	if err != nil {
		return nil, err
	}

	return encoded, nil
}

// ParseLeafValue converts a string into the Go value the abi encoder expects
// for the given type. Only the types commonly used in leaf encodings are supported.
func ParseLeafValue(typeName, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	switch typeName {
	case "address":
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid address: %s", raw)
		}
		return common.HexToAddress(raw), nil
	case "uint256", "int256":
		v, ok := new(big.Int).SetString(raw, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer: %s", raw)
		}
		if typeName == "uint256" && v.Sign() < 0 {
			return nil, fmt.Errorf("negative value for uint256: %s", raw)
		}
		return v, nil
	case "bytes32":
		b, err := hexutil.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes32: %w", err)
		}
		if len(b) != 32 {
			return nil, fmt.Errorf("bytes32 must be 32 bytes, got %d", len(b))
		}
		var out [32]byte
		copy(out[:], b)
		return out, nil
	case "bytes":
		b, err := hexutil.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes: %w", err)
		}
		return b, nil
	case "bool":
		return strconv.ParseBool(raw)
	case "string":
		return raw, nil
	default:
		return nil, fmt.Errorf("unsupported leaf type: %s", typeName)
	}
}
