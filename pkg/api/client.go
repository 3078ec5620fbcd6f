package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coursechat/coursechat/pkg/logger"
	"golang.org/x/time/rate"
)

const apiPrefix = "/v1"

// Auth headers for the non-cookie access modes. Both are orthogonal to the
// normal cookie session and attached on every request when configured.
const (
	HeaderShareToken       = "X-Share-Token"
	HeaderAnonymousSession = "X-Anonymous-Session"
)

const (
	defaultRetries = 5
	defaultBackoff = 2.0
	defaultTimeout = 30 * time.Second
)

// Client is a typed client for the platform REST API. It holds no mutable
// request state and is safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	retries      int
	backoff      float64
	shareToken   string
	sessionToken string
	limiter      *rate.Limiter
}

// NewClient creates a new API client with the default retry policy
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retries: defaultRetries,
		backoff: defaultBackoff,
	}
}

// NewClientWithTimeout creates a new API client with a custom request timeout
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	c := NewClient(baseURL)
	c.httpClient.Timeout = timeout
	return c
}

// WithRetryPolicy sets the retry count and backoff base. The nth retry waits
// backoff^n seconds before re-issuing the request.
func (c *Client) WithRetryPolicy(retries int, backoff float64) *Client {
	c.retries = retries
	c.backoff = backoff
	return c
}

// WithShareToken attaches a share-link token to every request
func (c *Client) WithShareToken(token string) *Client {
	c.shareToken = token
	return c
}

// WithSessionToken attaches an anonymous session token to every request
func (c *Client) WithSessionToken(token string) *Client {
	c.sessionToken = token
	return c
}

// WithRateLimit throttles outgoing requests client-side
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithHTTPClient replaces the underlying HTTP client (useful for testing)
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// do issues a request and decodes the response into out. Transport failures
// are retried with exponential backoff; after the retry budget is spent a
// synthetic 500 envelope is written into out instead of returning an error.
// HTTP error statuses are never retried, they are decoded like any response.
// The returned error is reserved for request construction problems and
// context cancellation.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out envelopeHolder) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	return c.doRaw(ctx, method, path, query, payload, "application/json", out)
}

func (c *Client) doRaw(ctx context.Context, method, path string, query url.Values, payload []byte, contentType string, out envelopeHolder) error {
	log := logger.WithComponent("api_client")

	endpoint := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	attempts := c.retries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := c.waitBackoff(ctx, attempt); err != nil {
				return err
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", contentType)
		}
		c.setAuthHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Cancellation is the caller's signal, not a transient fault
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			log.Warn("transport error, will retry", "attempt", attempt+1, "error", err)
			continue
		}

		return decodeResponse(resp, out)
	}

	log.Error("retries exhausted", "attempts", attempts, "error", lastErr)
	out.setStatus(http.StatusInternalServerError)
	out.setDetail(fmt.Sprintf("request failed after %d attempts: %v", attempts, lastErr))
	return nil
}

// waitBackoff sleeps for backoff^attempt seconds or until ctx is done
func (c *Client) waitBackoff(ctx context.Context, attempt int) error {
	delay := time.Duration(math.Pow(c.backoff, float64(attempt)) * float64(time.Second))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) setAuthHeaders(req *http.Request) {
	if c.shareToken != "" {
		req.Header.Set(HeaderShareToken, c.shareToken)
	}
	if c.sessionToken != "" {
		req.Header.Set(HeaderAnonymousSession, c.sessionToken)
	}
}

// decodeResponse merges the response body into out and stamps the status.
// Non-JSON bodies become the error detail rather than a decode failure.
func decodeResponse(resp *http.Response, out envelopeHolder) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		out.setStatus(http.StatusInternalServerError)
		out.setDetail(fmt.Sprintf("failed to read response body: %v", err))
		return nil
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			out.setDetail(strings.TrimSpace(string(raw)))
		}
	}

	out.setStatus(resp.StatusCode)
	return nil
}

// stream issues a request and returns the raw response body for incremental
// consumption. No retry: a stream is long-lived and the caller owns its
// lifecycle via ctx. An error status is drained and returned as *APIError.
func (c *Client) stream(ctx context.Context, method, path string, body any) (io.ReadCloser, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/x-ndjson")
	c.setAuthHeaders(req)

	// A stream outlives the per-request timeout; ctx bounds it instead
	hc := *c.httpClient
	hc.Timeout = 0

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, &APIError{Status: resp.StatusCode}
		}

		var env Envelope
		if json.Unmarshal(raw, &env) == nil && env.Detail != "" {
			return nil, &APIError{Status: resp.StatusCode, Detail: env.Detail, Field: env.Field}
		}
		return nil, &APIError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(raw))}
	}

	return resp.Body, nil
}
