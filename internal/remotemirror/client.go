// Package remotemirror implements the optional remote artifact store
// spec §9's Design Notes allow as enrichment beyond the filesystem: a
// content-addressed HTTP tier consulted behind the local
// internal/datahandler.Handler, never a remote task-execution path.
// Narrowed and renamed from the teacher's internal/client ApiClient and
// internal/cache's httpCache: team/project-scoped GraphQL-backed
// resolution is dropped (see DESIGN.md), the bearer-token retryable
// HTTP client and artifact put/fetch shape are kept.
package remotemirror

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Client talks to a content-addressed artifact store keyed by
// fingerprint, mirroring the teacher's ApiClient.PutArtifact/
// FetchArtifact pair exactly but dropping every Vercel team/project
// field.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
}

// NewClient builds a Client against baseURL, with the teacher's
// retry/backoff policy and timeout unchanged.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &retryablehttp.Client{
			HTTPClient:   &http.Client{Timeout: 60 * time.Second},
			RetryWaitMin: 10 * time.Second,
			RetryWaitMax: 20 * time.Second,
			RetryMax:     5,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
			Backoff:      retryablehttp.DefaultBackoff,
		},
	}
}

func (c *Client) SetToken(token string) { c.token = token }

// BaseURL returns the store's configured address, for status output in
// `chain login`/`chain logout`.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) url(fingerprint string) string {
	params := url.Values{}
	return fmt.Sprintf("%s/artifact/%s?%s", c.baseURL, fingerprint, params.Encode())
}

// Push uploads the artifact bytes at fingerprint. Callers supply
// already-encoded bytes; remotemirror only moves them, matching the
// Data Handler Layer's own policy of not inspecting domain payloads.
func (c *Client) Push(fingerprint string, body io.Reader) error {
	req, err := retryablehttp.NewRequest(http.MethodPut, c.url(fingerprint), body)
	if err != nil {
		return fmt.Errorf("remotemirror: building push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remotemirror: pushing %s: %w", fingerprint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("remotemirror: pushing %s: status %d", fingerprint, resp.StatusCode)
	}
	return nil
}

// Pull downloads the artifact bytes at fingerprint. ok is false (with a
// nil error) when the store has never seen this fingerprint, so callers
// can fall back to recomputation without treating a miss as failure.
func (c *Client) Pull(fingerprint string) (body io.ReadCloser, ok bool, err error) {
	req, err := retryablehttp.NewRequest(http.MethodGet, c.url(fingerprint), nil)
	if err != nil {
		return nil, false, fmt.Errorf("remotemirror: building pull request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("remotemirror: pulling %s: %w", fingerprint, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, false, fmt.Errorf("remotemirror: pulling %s: status %d", fingerprint, resp.StatusCode)
	}
	return resp.Body, true, nil
}
