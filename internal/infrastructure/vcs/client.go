// Package vcs provides the HTTP client for the code hosting platform:
// release asset probing and download, plus raw repository file reads.
package vcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/depositry/backend/internal/application/publication"
	"github.com/depositry/backend/internal/domain/shared"
	infraconfig "github.com/depositry/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 30 * time.Second

// Client talks to a GitHub-compatible hosting platform API
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *zap.Logger
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger for Client
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new hosting platform client
func NewClient(cfg *infraconfig.VCSConfig, opts ...ClientOption) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckAsset verifies the asset is fetchable without downloading it.
// Returns shared.ErrAssetNotFound when the platform reports the asset
// missing or inaccessible.
func (c *Client) CheckAsset(ctx context.Context, assetURL string) error {
	req, err := c.newRequest(ctx, http.MethodHead, assetURL)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to probe release asset: %w", err)
	}
	defer resp.Body.Close()

	// Some platforms reject HEAD on archive endpoints; fall back to a
	// body-less GET probe before giving up.
	if resp.StatusCode == http.StatusMethodNotAllowed {
		return c.checkAssetWithGet(ctx, assetURL)
	}
	return c.statusToError(assetURL, resp.StatusCode)
}

func (c *Client) checkAssetWithGet(ctx context.Context, assetURL string) error {
	req, err := c.newRequest(ctx, http.MethodGet, assetURL)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to probe release asset: %w", err)
	}
	defer resp.Body.Close()

	return c.statusToError(assetURL, resp.StatusCode)
}

// FetchAsset opens the asset content stream. The caller must close the
// returned reader on every exit path.
func (c *Client) FetchAsset(ctx context.Context, assetURL string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, assetURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release asset: %w", err)
	}
	if err := c.statusToError(assetURL, resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

// GetRepositoryFile reads a file from the repository at the given ref.
// Returns shared.ErrNotFound when the file does not exist.
func (c *Client) GetRepositoryFile(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	fileURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.baseURL, owner, repo, path, url.QueryEscape(ref))

	req, err := c.newRequest(ctx, http.MethodGet, fileURL)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.raw")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository file: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, shared.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d fetching %s/%s:%s", resp.StatusCode, owner, repo, path)
	}

	return io.ReadAll(resp.Body)
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid asset URL: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) statusToError(assetURL string, statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusNotFound || statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized:
		c.logger.Warn("Release asset not fetchable",
			zap.String("url", assetURL),
			zap.Int("status", statusCode))
		return shared.ErrAssetNotFound
	default:
		return fmt.Errorf("unexpected status %d probing release asset", statusCode)
	}
}

// Ensure Client implements the asset source boundary
var _ publication.AssetSource = (*Client)(nil)
