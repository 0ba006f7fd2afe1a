package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/types"
)

const defaultTimeout = 30 * time.Second

// ClientConfig holds the configuration for the verifier client
type ClientConfig struct {
	// ServerURL is the verifier base URL, e.g. http://localhost:8080
	ServerURL string
	Logger    *zap.Logger

	// HTTPClient is optional; a client with a 30s timeout is used when nil
	HTTPClient *http.Client
}

// APIError is a non-2xx response from the verifier
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("verifier returned %d (request %s): %s", e.StatusCode, e.RequestID, e.Message)
	}
	return fmt.Sprintf("verifier returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the verifier
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// VerifierClient is a thin HTTP client for a verifier server
type VerifierClient struct {
	serverURL  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewVerifierClient creates a new client instance
func NewVerifierClient(config *ClientConfig) (*VerifierClient, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.ServerURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if _, err := url.ParseRequestURI(config.ServerURL); err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &VerifierClient{
		serverURL:  strings.TrimRight(config.ServerURL, "/"),
		httpClient: httpClient,
		logger:     config.Logger,
	}, nil
}

// Verify verifies one proof on the server. A root mismatch is a successful
// call with Valid=false; a malformed proof is an *APIError with status 422.
func (c *VerifierClient) Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}

	var resp types.VerifyResponse
	if err := c.do(ctx, http.MethodPost, "/verify", req, &resp); err != nil {
		return nil, err
	}

	c.logger.Sugar().Debugw("Verified proof",
		"request_id", resp.RequestID,
		"valid", resp.Valid,
		"computed_root", resp.ComputedRoot.Hex(),
	)
	return &resp, nil
}

// VerifyBatch verifies several independent proofs in one call
func (c *VerifierClient) VerifyBatch(ctx context.Context, reqs []types.VerifyRequest) (*types.BatchVerifyResponse, error) {
	var resp types.BatchVerifyResponse
	if err := c.do(ctx, http.MethodPost, "/verify/batch", &types.BatchVerifyRequest{Requests: reqs}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Results) != len(reqs) {
		return nil, fmt.Errorf("server returned %d results for %d requests", len(resp.Results), len(reqs))
	}
	return &resp, nil
}

// RegisterRoot registers or replaces a named root
func (c *VerifierClient) RegisterRoot(ctx context.Context, req *types.RegisterRootRequest) (*types.TrustedRoot, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}

	var root types.TrustedRoot
	if err := c.do(ctx, http.MethodPost, "/roots", req, &root); err != nil {
		return nil, err
	}

	c.logger.Sugar().Infow("Registered root", "name", root.Name, "root", root.Root.Hex())
	return &root, nil
}

// ListRoots returns all registered roots sorted by name
func (c *VerifierClient) ListRoots(ctx context.Context) ([]*types.TrustedRoot, error) {
	roots := make([]*types.TrustedRoot, 0)
	if err := c.do(ctx, http.MethodGet, "/roots", nil, &roots); err != nil {
		return nil, err
	}
	return roots, nil
}

// GetRoot fetches one root. A missing root yields an error for which
// IsNotFound returns true.
func (c *VerifierClient) GetRoot(ctx context.Context, name string) (*types.TrustedRoot, error) {
	var root types.TrustedRoot
	if err := c.do(ctx, http.MethodGet, "/roots/"+url.PathEscape(name), nil, &root); err != nil {
		return nil, err
	}
	return &root, nil
}

// DeleteRoot removes one root
func (c *VerifierClient) DeleteRoot(ctx context.Context, name string) error {
	if err := c.do(ctx, http.MethodDelete, "/roots/"+url.PathEscape(name), nil, nil); err != nil {
		return err
	}
	c.logger.Sugar().Infow("Deleted root", "name", name)
	return nil
}

// Health returns nil when the server and its registry are healthy
func (c *VerifierClient) Health(ctx context.Context) error {
	var resp types.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("server reported status %q", resp.Status)
	}
	return nil
}

func (c *VerifierClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to call %s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode response from %s", path)
	}
	return nil
}

func (c *VerifierClient) decodeError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-Id"),
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body types.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}

	c.logger.Sugar().Debugw("Verifier returned error",
		"status_code", apiErr.StatusCode,
		"request_id", apiErr.RequestID,
		"error", apiErr.Message,
	)
	return apiErr
}
