package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "merkle-verifier",
		Usage: "Binary Merkle proof and multiproof verifier",
		Description: `Verifies Merkle single proofs and multiproofs built with commutative pair hashing.

This tool can:
- Run a verification server with a registry of trusted roots
- Verify a proof file locally
- Compute standard leaf hashes from abi-encoded values
- Manage the trusted roots of a running server`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvMerkleVerbose},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			verifyCommand(),
			leafHashCommand(),
			rootsCommand(),
		},
	}
}
