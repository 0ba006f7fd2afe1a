package main

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/config"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/server/servertest"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/testutil"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/types"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"merkle-verifier"}, args...))
	return out.String(), err
}

func writeProofFile(t *testing.T, req *types.ProofRequest) string {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "proof.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestVerifyProof(t *testing.T) {
	tree, err := testutil.BuildTree(testutil.CreateTestLeaves(4), merkle.CommutativeKeccak256)
	require.NoError(t, err)
	mp, err := tree.GetMultiProof([]int{0, 2})
	require.NoError(t, err)

	path := writeProofFile(t, &types.ProofRequest{
		Root:       tree.Root(),
		Leaves:     mp.Leaves,
		Proof:      mp.Proof,
		ProofFlags: mp.ProofFlags,
	})

	req, err := readProofFile(path)
	require.NoError(t, err)

	t.Run("Valid", func(t *testing.T) {
		valid, computed, err := verifyProof(req, "", zap.NewNop())
		require.NoError(t, err)
		assert.True(t, valid)
		assert.Equal(t, tree.Root(), computed)
	})

	t.Run("Wrong hash override", func(t *testing.T) {
		copied := *req
		valid, _, err := verifyProof(&copied, merkle.AlgorithmSha256, zap.NewNop())
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("Unknown hash", func(t *testing.T) {
		copied := *req
		_, _, err := verifyProof(&copied, "md5", zap.NewNop())
		require.Error(t, err)
	})

	t.Run("Malformed", func(t *testing.T) {
		copied := *req
		copied.ProofFlags = append([]bool{false}, req.ProofFlags...)
		_, _, err := verifyProof(&copied, "", zap.NewNop())
		require.ErrorIs(t, err, merkle.ErrInvalidMultiProof)
	})
}

func TestReadProofFile_Errors(t *testing.T) {
	_, err := readProofFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = readProofFile(path)
	require.Error(t, err)
}

func TestVerifyCommand_Valid(t *testing.T) {
	tree, err := testutil.BuildTree(testutil.CreateTestLeaves(3), merkle.CommutativeBlake3)
	require.NoError(t, err)
	proof, err := tree.GetProof(1)
	require.NoError(t, err)

	path := writeProofFile(t, &types.ProofRequest{
		Root:   tree.Root(),
		Leaves: []common.Hash{tree.Leaf(1)},
		Proof:  proof,
	})

	out, err := runApp(t, "verify", "--proof-file", path, "--hash", merkle.AlgorithmBlake3)
	require.NoError(t, err)
	assert.Contains(t, out, "valid: root "+tree.Root().Hex())
}

func TestLeafHashCommand(t *testing.T) {
	addr := "0x1111111111111111111111111111111111111111"

	out, err := runApp(t, "leaf-hash", "--types", "address,uint256", "--values", addr+",42")
	require.NoError(t, err)

	expected, err := merkle.StandardLeafHash(
		[]string{"address", "uint256"},
		[]interface{}{common.HexToAddress(addr), big.NewInt(42)},
	)
	require.NoError(t, err)
	assert.Equal(t, expected.Hex(), strings.TrimSpace(out))
}

func TestComputeLeafHash_Errors(t *testing.T) {
	_, err := computeLeafHash([]string{"address"}, []string{"0x01", "2"})
	require.Error(t, err)

	_, err = computeLeafHash([]string{"uint256"}, []string{"abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value 0")
}

func TestParseHash(t *testing.T) {
	h := testutil.RandomHash()
	parsed, err := parseHash(h.Hex())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = parseHash("0x1234")
	require.Error(t, err)
	_, err = parseHash("nothex")
	require.Error(t, err)
}

func TestNewRootPersistence(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		p, err := newRootPersistence(&config.PersistenceConfig{Type: config.PersistenceTypeMemory}, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, p.HealthCheck())
		require.NoError(t, p.Close())
	})

	t.Run("Badger", func(t *testing.T) {
		p, err := newRootPersistence(&config.PersistenceConfig{
			Type:     config.PersistenceTypeBadger,
			DataPath: t.TempDir(),
		}, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, p.HealthCheck())
		require.NoError(t, p.Close())
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := newRootPersistence(&config.PersistenceConfig{Type: "postgres"}, zap.NewNop())
		require.Error(t, err)
	})
}

func TestRootsCommand(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)
	root := testutil.RandomHash()

	out, err := runApp(t, "roots", "--server", ts.URL, "add",
		"--name", "airdrop", "--root", root.Hex(), "--hash", merkle.AlgorithmSha256)
	require.NoError(t, err)

	var registered types.TrustedRoot
	require.NoError(t, json.Unmarshal([]byte(out), &registered))
	assert.Equal(t, root, registered.Root)
	assert.Equal(t, merkle.AlgorithmSha256, registered.HashAlgorithm)

	out, err = runApp(t, "roots", "--server", ts.URL, "list")
	require.NoError(t, err)
	var listed []types.TrustedRoot
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)

	out, err = runApp(t, "roots", "--server", ts.URL, "get", "airdrop")
	require.NoError(t, err)
	assert.Contains(t, out, root.Hex())

	out, err = runApp(t, "roots", "--server", ts.URL, "delete", "airdrop")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted airdrop")

	stored, err := ts.Roots.LoadRoot("airdrop")
	require.NoError(t, err)
	assert.Nil(t, stored)

	_, err = runApp(t, "roots", "--server", ts.URL, "get")
	require.Error(t, err)
}
