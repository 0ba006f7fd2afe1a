package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/server/servertest"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/testutil"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/types"
)

func newTestClient(t *testing.T, url string) *VerifierClient {
	t.Helper()
	c, err := NewVerifierClient(&ClientConfig{ServerURL: url, Logger: zap.NewNop()})
	require.NoError(t, err)
	return c
}

func TestNewVerifierClient_ValidationErrors(t *testing.T) {
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	tests := []struct {
		name        string
		config      *ClientConfig
		expectedErr string
	}{
		{
			name:        "nil config",
			config:      nil,
			expectedErr: "config cannot be nil",
		},
		{
			name:        "empty server URL",
			config:      &ClientConfig{Logger: logger},
			expectedErr: "server URL is required",
		},
		{
			name:        "malformed server URL",
			config:      &ClientConfig{ServerURL: "not-a-url", Logger: logger},
			expectedErr: "invalid server URL",
		},
		{
			name:        "nil logger",
			config:      &ClientConfig{ServerURL: "http://localhost:8080"},
			expectedErr: "logger is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewVerifierClient(tt.config)
			assert.Nil(t, client)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestVerifierClient_Verify(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)
	c := newTestClient(t, ts.URL+"/")
	ctx := context.Background()

	tree, err := testutil.BuildTree(testutil.CreateTestLeaves(5), merkle.CommutativeKeccak256)
	require.NoError(t, err)
	root := tree.Root()

	mp, err := tree.GetMultiProof([]int{0, 1, 4})
	require.NoError(t, err)

	resp, err := c.Verify(ctx, &types.VerifyRequest{
		Root:       &root,
		Leaves:     mp.Leaves,
		Proof:      mp.Proof,
		ProofFlags: mp.ProofFlags,
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, root, resp.ComputedRoot)

	t.Run("Malformed proof", func(t *testing.T) {
		_, err := c.Verify(ctx, &types.VerifyRequest{
			Root:       &root,
			Leaves:     mp.Leaves,
			Proof:      mp.Proof,
			ProofFlags: mp.ProofFlags[1:],
		})
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
		assert.NotEmpty(t, apiErr.RequestID)
		assert.Contains(t, apiErr.Message, "invalid multiproof")
	})

	t.Run("Nil request", func(t *testing.T) {
		_, err := c.Verify(ctx, nil)
		require.Error(t, err)
	})
}

func TestVerifierClient_VerifyBatch(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)
	c := newTestClient(t, ts.URL)

	tree, err := testutil.BuildTree(testutil.CreateTestLeaves(3), merkle.CommutativeSha256)
	require.NoError(t, err)
	ts.AddTestRoot(t, "sha-tree", tree.Root(), merkle.AlgorithmSha256)

	reqs := make([]types.VerifyRequest, 0, 3)
	for i := 0; i < 3; i++ {
		proof, err := tree.GetProof(i)
		require.NoError(t, err)
		reqs = append(reqs, types.VerifyRequest{
			RootName: "sha-tree",
			Leaves:   []common.Hash{tree.Leaf(i)},
			Proof:    proof,
		})
	}

	resp, err := c.VerifyBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	for _, r := range resp.Results {
		assert.True(t, r.Valid)
	}
}

func TestVerifierClient_Roots(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)
	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	rootHash := testutil.RandomHash()
	registered, err := c.RegisterRoot(ctx, &types.RegisterRootRequest{
		Name:          "allowlist",
		Root:          rootHash,
		HashAlgorithm: merkle.AlgorithmBlake2b256,
	})
	require.NoError(t, err)
	assert.Equal(t, rootHash, registered.Root)

	roots, err := c.ListRoots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "allowlist", roots[0].Name)

	fetched, err := c.GetRoot(ctx, "allowlist")
	require.NoError(t, err)
	assert.Equal(t, registered, fetched)

	require.NoError(t, c.DeleteRoot(ctx, "allowlist"))

	_, err = c.GetRoot(ctx, "allowlist")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	err = c.DeleteRoot(ctx, "allowlist")
	assert.True(t, IsNotFound(err))

	_, err = c.RegisterRoot(ctx, &types.RegisterRootRequest{Name: "bad name", Root: rootHash})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.False(t, IsNotFound(err))
}

func TestVerifierClient_Health(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)
	c := newTestClient(t, ts.URL)

	require.NoError(t, c.Health(context.Background()))

	require.NoError(t, ts.Roots.Close())
	err := c.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestVerifierClient_NonJSONError(t *testing.T) {
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer plain.Close()

	c := newTestClient(t, plain.URL)
	err := c.Health(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestVerifierClient_ContextCancelled(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)
	c := newTestClient(t, ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListRoots(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
