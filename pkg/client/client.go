// Package client is a typed HTTP client for a verified-messages server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Layr-Labs/verified-messages-go/pkg/merkle"
	"github.com/Layr-Labs/verified-messages-go/pkg/registry"
	"github.com/Layr-Labs/verified-messages-go/pkg/signature"
	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

const postPath = "/messages/post"

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     5,
	InitialBackoff:  100 * time.Millisecond,
	MaxBackoff:      5 * time.Second,
	BackoffMultiple: 2.0,
}

// ClientConfig holds the configuration for the client
type ClientConfig struct {
	// BaseURL is the server root, e.g. http://localhost:8080
	BaseURL    string
	HTTPClient *http.Client // Optional, defaults to a client with a 30s timeout
	Retry      *RetryConfig // Optional, defaults to DefaultRetryConfig
	Logger     *zap.Logger
}

// Client calls the verified-messages HTTP API
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *zap.Logger
}

// NewClient creates a new client instance
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.ParseRequestURI(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	retryConfig := DefaultRetryConfig
	if config.Retry != nil {
		retryConfig = *config.Retry
	}
	if retryConfig.MaxAttempts < 1 {
		return nil, fmt.Errorf("retry max attempts must be at least 1")
	}

	return &Client{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		httpClient:  httpClient,
		retryConfig: retryConfig,
		logger:      config.Logger,
	}, nil
}

// VerifyMessage asks the server whether sig over message recovers to signer
func (c *Client) VerifyMessage(ctx context.Context, message []byte, sig signature.Signature, signer string) (bool, error) {
	var resp types.VerifyMessageResponse
	req := types.VerifyMessageRequest{Message: message, Signature: sig.Bytes(), Signer: signer}
	if err := c.do(ctx, http.MethodPost, "/messages/verify", req, &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

// PostMessage posts (message, signer). Protocol rejections come back as
// *registry.PostError, so errors.Is(err, registry.ErrMessageAlreadyPosted) works.
func (c *Client) PostMessage(ctx context.Context, message []byte, sig signature.Signature, signer string) (*types.PostedMessageEvent, error) {
	var resp types.PostMessageResponse
	req := types.PostMessageRequest{Message: message, Signature: sig.Bytes(), Signer: signer}
	if err := c.do(ctx, http.MethodPost, postPath, req, &resp); err != nil {
		return nil, err
	}

	c.logger.Sugar().Debugw("Message posted", "signer", signer, "sequence", resp.Event.Sequence)
	return resp.Event, nil
}

// IsMessagePosted asks whether (message, signer) has been posted
func (c *Client) IsMessagePosted(ctx context.Context, message []byte, signer string) (bool, error) {
	var resp types.IsMessagePostedResponse
	if err := c.do(ctx, http.MethodPost, "/messages/posted", types.MessageRef{Message: message, Signer: signer}, &resp); err != nil {
		return false, err
	}
	return resp.Posted, nil
}

// Events fetches up to limit events after afterSequence. limit <= 0 uses the server default.
func (c *Client) Events(ctx context.Context, afterSequence uint64, limit int) ([]*types.PostedMessageEvent, error) {
	query := url.Values{}
	query.Set("after", strconv.FormatUint(afterSequence, 10))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp types.EventsResponse
	if err := c.do(ctx, http.MethodGet, "/messages/events?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// LedgerRoot fetches the current ledger root and key count
func (c *Client) LedgerRoot(ctx context.Context) (common.Hash, int, error) {
	var resp types.LedgerRootResponse
	if err := c.do(ctx, http.MethodGet, "/ledger/root", nil, &resp); err != nil {
		return common.Hash{}, 0, err
	}
	return resp.Root, resp.Count, nil
}

// ProveMessage fetches an inclusion proof and checks it against the returned
// root before handing it back.
func (c *Client) ProveMessage(ctx context.Context, message []byte, signer string) (*merkle.MerkleProof, common.Hash, error) {
	var resp types.LedgerProofResponse
	if err := c.do(ctx, http.MethodPost, "/ledger/proof", types.MessageRef{Message: message, Signer: signer}, &resp); err != nil {
		return nil, common.Hash{}, err
	}

	key, err := registry.RegistryKey(message, signer)
	if err != nil {
		return nil, common.Hash{}, err
	}
	proof := &merkle.MerkleProof{LeafIndex: resp.LeafIndex, Leaf: resp.Leaf, Proof: resp.Proof}
	if proof.Leaf != merkle.HashLeaf(key) || !merkle.VerifyProof(proof, resp.Root) {
		return nil, common.Hash{}, fmt.Errorf("server returned an invalid proof for key %s", key)
	}
	return proof, resp.Root, nil
}

// StatusError is a non-2xx response without a protocol error code
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// do sends one API call. Responses the server produced without acting on the
// request (429, 503) are retried for every call; transport failures are only
// retried when idempotent is set, since a lost post response may hide a commit.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	idempotent := path != postPath

	backoff := c.retryConfig.InitialBackoff
	var lastErr error
	for attempt := 0; attempt < c.retryConfig.MaxAttempts; attempt++ {
		if attempt > 0 {
			c.logger.Sugar().Debugw("Retrying request", "path", path, "attempt", attempt+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return fmt.Errorf("request to %s cancelled: %w", path, ctx.Err())
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * c.retryConfig.BackoffMultiple)
			if backoff > c.retryConfig.MaxBackoff {
				backoff = c.retryConfig.MaxBackoff
			}
		}

		retry, err := c.send(ctx, method, path, data, out)
		if err == nil {
			return nil
		}
		lastErr = err

		var statusErr *StatusError
		switch {
		case errors.As(err, &statusErr):
			if statusErr.StatusCode != http.StatusTooManyRequests && statusErr.StatusCode != http.StatusServiceUnavailable {
				return err
			}
		case !retry || !idempotent || ctx.Err() != nil:
			return err
		}
	}
	return fmt.Errorf("request to %s failed after %d attempts: %w", path, c.retryConfig.MaxAttempts, lastErr)
}

// send performs a single attempt. retry reports whether the failure happened
// before a response was read.
func (c *Client) send(ctx context.Context, method, path string, data []byte, out interface{}) (retry bool, err error) {
	var reader io.Reader
	if data != nil {
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errResp types.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &errResp) != nil {
			errResp.Error = strings.TrimSpace(string(raw))
		}
		if errResp.Code != 0 {
			return false, registry.NewPostError(errResp.Code)
		}
		return false, &StatusError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return false, nil
}
