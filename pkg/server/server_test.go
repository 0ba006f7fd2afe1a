package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/config"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/server"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/server/servertest"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/testutil"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/types"
)

func doRequest(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func buildTree(t *testing.T, n int, hasher merkle.PairHasher) *testutil.Tree {
	t.Helper()
	tree, err := testutil.BuildTree(testutil.CreateTestLeaves(n), hasher)
	require.NoError(t, err)
	return tree
}

func TestNewServer_Validation(t *testing.T) {
	cfg := &config.VerifierServerConfig{Port: config.DefaultPort}
	require.NoError(t, cfg.Validate())

	_, err := server.NewServer(nil, nil, nil)
	require.Error(t, err)
	_, err = server.NewServer(cfg, nil, nil)
	require.Error(t, err)
}

func TestVerify_SingleProof(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)
	tree := buildTree(t, 7, merkle.CommutativeKeccak256)

	proof, err := tree.GetProof(4)
	require.NoError(t, err)
	root := tree.Root()

	resp := doRequest(t, http.MethodPost, ts.URL+"/verify", types.VerifyRequest{
		Root:   &root,
		Leaves: []common.Hash{tree.Leaf(4)},
		Proof:  proof,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[types.VerifyResponse](t, resp)
	assert.True(t, body.Valid)
	assert.Equal(t, root, body.Root)
	assert.Equal(t, root, body.ComputedRoot)
	assert.Equal(t, resp.Header.Get(server.RequestIDHeader), body.RequestID)
}

func TestVerify_MultiProof(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)
	tree := buildTree(t, 4, merkle.CommutativeKeccak256)

	mp, err := tree.GetMultiProof([]int{0, 2})
	require.NoError(t, err)
	root := tree.Root()

	t.Run("Valid", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, ts.URL+"/verify", types.VerifyRequest{
			Root:       &root,
			Leaves:     mp.Leaves,
			Proof:      mp.Proof,
			ProofFlags: mp.ProofFlags,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, decode[types.VerifyResponse](t, resp).Valid)
	})

	t.Run("Root mismatch is 200", func(t *testing.T) {
		other := testutil.RandomHash()
		resp := doRequest(t, http.MethodPost, ts.URL+"/verify", types.VerifyRequest{
			Root:       &other,
			Leaves:     mp.Leaves,
			Proof:      mp.Proof,
			ProofFlags: mp.ProofFlags,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[types.VerifyResponse](t, resp)
		assert.False(t, body.Valid)
		assert.Equal(t, root, body.ComputedRoot)
	})

	t.Run("Structural error is 422", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, ts.URL+"/verify", types.VerifyRequest{
			Root:       &root,
			Leaves:     mp.Leaves,
			Proof:      mp.Proof,
			ProofFlags: append([]bool{true}, mp.ProofFlags...),
		})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Contains(t, decode[types.ErrorResponse](t, resp).Error, "invalid multiproof")
	})

	t.Run("All empty is 422", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, ts.URL+"/verify", types.VerifyRequest{Root: &root})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestVerify_BadRequests(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)

	t.Run("Method not allowed", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, ts.URL+"/verify", nil)
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, ts.URL+"/verify", "invalid json")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decode[types.ErrorResponse](t, resp)
		assert.Contains(t, body.Error, "failed to parse request")
		assert.NotEmpty(t, body.RequestID)
	})

	t.Run("Missing root", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, ts.URL+"/verify", types.VerifyRequest{
			Leaves: []common.Hash{testutil.RandomHash()},
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Unknown root name", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, ts.URL+"/verify", types.VerifyRequest{
			RootName: "does-not-exist",
			Leaves:   []common.Hash{testutil.RandomHash()},
		})
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Unsupported hash algorithm", func(t *testing.T) {
		root := testutil.RandomHash()
		resp := doRequest(t, http.MethodPost, ts.URL+"/verify", types.VerifyRequest{
			Root:          &root,
			Leaves:        []common.Hash{testutil.RandomHash()},
			HashAlgorithm: "md5",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestVerify_RegisteredRootUsesItsAlgorithm(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)
	tree := buildTree(t, 9, merkle.CommutativeBlake3)
	ts.AddTestRoot(t, "blake3-drop", tree.Root(), merkle.AlgorithmBlake3)

	mp, err := tree.GetMultiProof([]int{1, 7, 8})
	require.NoError(t, err)

	resp := doRequest(t, http.MethodPost, ts.URL+"/verify", types.VerifyRequest{
		RootName:   "blake3-drop",
		Leaves:     mp.Leaves,
		Proof:      mp.Proof,
		ProofFlags: mp.ProofFlags,
		// Ignored in favour of the registered algorithm
		HashAlgorithm: merkle.AlgorithmKeccak256,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[types.VerifyResponse](t, resp)
	assert.True(t, body.Valid)
	assert.Equal(t, tree.Root(), body.Root)
}

func TestVerify_TooManyElements(t *testing.T) {
	ts := servertest.NewTestServer(t, func(cfg *config.VerifierServerConfig) {
		cfg.MaxProofElements = 4
	})
	root := testutil.RandomHash()

	resp := doRequest(t, http.MethodPost, ts.URL+"/verify", types.VerifyRequest{
		Root:   &root,
		Leaves: testutil.CreateTestLeaves(3),
		Proof:  testutil.CreateTestLeaves(2),
	})
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, ts.URL+"/verify/batch", types.BatchVerifyRequest{
		Requests: []types.VerifyRequest{
			{Root: &root, Leaves: testutil.CreateTestLeaves(1), Proof: testutil.CreateTestLeaves(2)},
			{Root: &root, Leaves: testutil.CreateTestLeaves(1), Proof: testutil.CreateTestLeaves(2)},
		},
	})
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestVerifyBatch(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)
	tree := buildTree(t, 6, merkle.CommutativeKeccak256)
	ts.AddTestRoot(t, "registered", tree.Root(), merkle.AlgorithmKeccak256)
	root := tree.Root()

	proof, err := tree.GetProof(2)
	require.NoError(t, err)
	mp, err := tree.GetMultiProof([]int{0, 3, 5})
	require.NoError(t, err)

	resp := doRequest(t, http.MethodPost, ts.URL+"/verify/batch", types.BatchVerifyRequest{
		Requests: []types.VerifyRequest{
			{Root: &root, Leaves: []common.Hash{tree.Leaf(2)}, Proof: proof},
			{RootName: "registered", Leaves: mp.Leaves, Proof: mp.Proof, ProofFlags: mp.ProofFlags},
			{RootName: "missing", Leaves: mp.Leaves, Proof: mp.Proof, ProofFlags: mp.ProofFlags},
			{Root: &root, Leaves: mp.Leaves, Proof: mp.Proof[:1], ProofFlags: mp.ProofFlags},
			{Root: &root, Leaves: []common.Hash{tree.Leaf(3)}, Proof: proof},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[types.BatchVerifyResponse](t, resp)
	require.Len(t, body.Results, 5)
	assert.NotEmpty(t, body.RequestID)

	assert.True(t, body.Results[0].Valid)
	assert.Empty(t, body.Results[0].Error)

	assert.True(t, body.Results[1].Valid)

	assert.False(t, body.Results[2].Valid)
	assert.Contains(t, body.Results[2].Error, "not found")

	assert.False(t, body.Results[3].Valid)
	assert.Contains(t, body.Results[3].Error, "invalid multiproof")

	assert.False(t, body.Results[4].Valid)
	assert.Empty(t, body.Results[4].Error)

	for i, r := range body.Results {
		assert.Equal(t, i, r.Index)
	}
}

func TestRoots_CRUD(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)
	rootHash := common.HexToHash("0xd4dee0beab2d53f2cc83e567171bd2820e49898130a22622b10ead383e90bd77")

	// Register
	resp := doRequest(t, http.MethodPost, ts.URL+"/roots", types.RegisterRootRequest{
		Name:        "airdrop",
		Root:        rootHash,
		Description: "season one",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decode[types.TrustedRoot](t, resp)
	assert.Equal(t, "airdrop", created.Name)
	assert.Equal(t, rootHash, created.Root)
	assert.Equal(t, merkle.AlgorithmKeccak256, created.HashAlgorithm)
	assert.NotZero(t, created.CreatedAt)

	resp = doRequest(t, http.MethodPost, ts.URL+"/roots", types.RegisterRootRequest{
		Name:          "allowlist",
		Root:          testutil.RandomHash(),
		HashAlgorithm: merkle.AlgorithmSha256,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// List
	resp = doRequest(t, http.MethodGet, ts.URL+"/roots", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decode[[]types.TrustedRoot](t, resp)
	require.Len(t, listed, 2)
	assert.Equal(t, "airdrop", listed[0].Name)
	assert.Equal(t, "allowlist", listed[1].Name)
	assert.Equal(t, merkle.AlgorithmSha256, listed[1].HashAlgorithm)

	// Get
	resp = doRequest(t, http.MethodGet, ts.URL+"/roots/airdrop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created, decode[types.TrustedRoot](t, resp))

	// Delete
	resp = doRequest(t, http.MethodDelete, ts.URL+"/roots/airdrop", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/roots/airdrop", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, http.MethodDelete, ts.URL+"/roots/airdrop", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoots_RegisterInvalid(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)

	testCases := []struct {
		name string
		body interface{}
	}{
		{"Invalid JSON", "{"},
		{"Empty name", types.RegisterRootRequest{Root: testutil.RandomHash()}},
		{"Bad name", types.RegisterRootRequest{Name: "has space", Root: testutil.RandomHash()}},
		{"Bad algorithm", types.RegisterRootRequest{Name: "ok", Root: testutil.RandomHash(), HashAlgorithm: "md5"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, http.MethodPost, ts.URL+"/roots", tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	resp := doRequest(t, http.MethodPut, ts.URL+"/roots", nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, ts.URL+"/roots/anything", nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)

	resp := doRequest(t, http.MethodGet, ts.URL+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[types.HealthResponse](t, resp).Status)

	require.NoError(t, ts.Roots.Close())

	resp = doRequest(t, http.MethodGet, ts.URL+"/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unhealthy", decode[types.HealthResponse](t, resp).Status)
}

func TestMiddleware_RequestID(t *testing.T) {
	ts := servertest.NewTestServer(t, nil)

	resp := doRequest(t, http.MethodGet, ts.URL+"/health", nil)
	generated := resp.Header.Get(server.RequestIDHeader)
	_, err := uuid.Parse(generated)
	require.NoError(t, err)

	supplied := uuid.NewString()
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(server.RequestIDHeader, supplied)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, supplied, resp2.Header.Get(server.RequestIDHeader))

	// Non-UUID values are replaced
	req, err = http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(server.RequestIDHeader, "not-a-uuid")
	resp3, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp3.Body.Close() }()
	replaced := resp3.Header.Get(server.RequestIDHeader)
	assert.NotEqual(t, "not-a-uuid", replaced)
	_, err = uuid.Parse(replaced)
	assert.NoError(t, err)
}

func TestMiddleware_RateLimit(t *testing.T) {
	ts := servertest.NewTestServer(t, func(cfg *config.VerifierServerConfig) {
		cfg.RateLimit = 0.001
		cfg.RateBurst = 2
	})

	require.Equal(t, http.StatusOK, doRequest(t, http.MethodGet, ts.URL+"/health", nil).StatusCode)
	require.Equal(t, http.StatusOK, doRequest(t, http.MethodGet, ts.URL+"/health", nil).StatusCode)

	resp := doRequest(t, http.MethodGet, ts.URL+"/health", nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, decode[types.ErrorResponse](t, resp).Error, "rate limit")
}
