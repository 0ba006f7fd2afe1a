package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/logger"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/types"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/util"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/validator"
)

// Exit codes for verify
const (
	exitInvalid   = 1
	exitMalformed = 2
)

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify a proof file locally",
		Description: `The proof file is JSON:

  {"root": "0x..", "leaves": ["0x.."], "proof": ["0x.."], "proofFlags": [true, false]}

One leaf and no proofFlags is checked as a single proof, anything else as a multiproof.
Exits 0 when valid, 1 when the proof does not reach the root, 2 when it is malformed.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "proof-file",
				Aliases:  []string{"f"},
				Usage:    "Path to the proof JSON file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "hash",
				Usage: fmt.Sprintf("Pair hash, overriding the file's hashAlgorithm: %v", merkle.SupportedAlgorithms()),
			},
		},
		Action: runVerify,
	}
}

func runVerify(c *cli.Context) error {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	req, err := readProofFile(c.String("proof-file"))
	if err != nil {
		return cli.Exit(err.Error(), exitMalformed)
	}

	valid, computed, err := verifyProof(req, c.String("hash"), l)
	if err != nil {
		return cli.Exit(err.Error(), exitMalformed)
	}

	if !valid {
		fmt.Fprintf(c.App.Writer, "invalid: computed root %s, expected %s\n", computed.Hex(), req.Root.Hex())
		return cli.Exit("", exitInvalid)
	}
	fmt.Fprintf(c.App.Writer, "valid: root %s\n", computed.Hex())
	return nil
}

func readProofFile(path string) (*types.ProofRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read proof file: %w", err)
	}

	var req types.ProofRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse proof file: %w", err)
	}
	return &req, nil
}

// verifyProof runs req through a validator. hashOverride, when set, replaces
// the request's own hash algorithm.
func verifyProof(req *types.ProofRequest, hashOverride string, l *zap.Logger) (bool, common.Hash, error) {
	if hashOverride != "" {
		req.HashAlgorithm = hashOverride
	}

	v, err := validator.NewValidator(&validator.Config{HashAlgorithm: req.HashAlgorithm}, l)
	if err != nil {
		return false, common.Hash{}, err
	}

	computed, err := v.Process(req)
	if err != nil {
		return false, common.Hash{}, err
	}
	return computed == req.Root, computed, nil
}

func leafHashCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaf-hash",
		Usage: "Compute keccak256(keccak256(abi.encode(values)))",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "types",
				Usage:    "Comma-separated solidity types, e.g. address,uint256",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:     "values",
				Usage:    "Comma-separated values matching --types",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			leaf, err := computeLeafHash(c.StringSlice("types"), c.StringSlice("values"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, leaf.Hex())
			return nil
		},
	}
}

func computeLeafHash(typeNames, raws []string) (common.Hash, error) {
	if len(typeNames) != len(raws) {
		return common.Hash{}, fmt.Errorf("got %d types for %d values", len(typeNames), len(raws))
	}

	values := make([]interface{}, len(raws))
	for i, raw := range raws {
		v, err := util.ParseLeafValue(typeNames[i], raw)
		if err != nil {
			return common.Hash{}, fmt.Errorf("value %d: %w", i, err)
		}
		values[i] = v
	}
	return merkle.StandardLeafHash(typeNames, values)
}
