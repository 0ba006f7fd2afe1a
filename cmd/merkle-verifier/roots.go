package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/client"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/config"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/logger"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/types"
)

func rootsCommand() *cli.Command {
	return &cli.Command{
		Name:  "roots",
		Usage: "Manage the trusted roots of a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "Verifier server URL",
				Value:   fmt.Sprintf("http://localhost:%d", config.DefaultPort),
				EnvVars: []string{config.EnvMerkleServerURL},
			},
		},
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register or replace a named root",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Root name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "root",
						Usage:    "Merkle root (0x-prefixed 32-byte hex)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "hash",
						Usage: "Pair hash the tree was built with (server default when empty)",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Free-form description",
					},
				},
				Action: func(c *cli.Context) error {
					root, err := parseHash(c.String("root"))
					if err != nil {
						return err
					}
					vc, err := createClient(c)
					if err != nil {
						return err
					}
					registered, err := vc.RegisterRoot(c.Context, &types.RegisterRootRequest{
						Name:          c.String("name"),
						Root:          root,
						HashAlgorithm: c.String("hash"),
						Description:   c.String("description"),
					})
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, registered)
				},
			},
			{
				Name:  "list",
				Usage: "List registered roots",
				Action: func(c *cli.Context) error {
					vc, err := createClient(c)
					if err != nil {
						return err
					}
					roots, err := vc.ListRoots(c.Context)
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, roots)
				},
			},
			{
				Name:      "get",
				Usage:     "Show one root",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					name, err := requireNameArg(c)
					if err != nil {
						return err
					}
					vc, err := createClient(c)
					if err != nil {
						return err
					}
					root, err := vc.GetRoot(c.Context, name)
					if client.IsNotFound(err) {
						return cli.Exit(fmt.Sprintf("root %q not found", name), 1)
					}
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, root)
				},
			},
			{
				Name:      "delete",
				Usage:     "Remove one root",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					name, err := requireNameArg(c)
					if err != nil {
						return err
					}
					vc, err := createClient(c)
					if err != nil {
						return err
					}
					if err := vc.DeleteRoot(c.Context, name); err != nil {
						if client.IsNotFound(err) {
							return cli.Exit(fmt.Sprintf("root %q not found", name), 1)
						}
						return err
					}
					fmt.Fprintf(c.App.Writer, "deleted %s\n", name)
					return nil
				},
			},
		},
	}
}

// createClient creates a verifier client from CLI context
func createClient(c *cli.Context) (*client.VerifierClient, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return client.NewVerifierClient(&client.ClientConfig{
		ServerURL: c.String("server"),
		Logger:    l,
	})
}

func requireNameArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one root name, got %d arguments", c.NArg())
	}
	return c.Args().First(), nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("hash must be %d bytes, got %d", common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
