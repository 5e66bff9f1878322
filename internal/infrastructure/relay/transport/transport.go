// Package transport is the HTTP plumbing shared by relay adapters: pacing,
// authentication headers, latency metrics and error normalisation.
package transport

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/ratelimit"

	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
	"github.com/whiteelite/relay/internal/metrics"
)

const (
	HeaderAPIKey        = "x-api-key"
	HeaderTimestamp     = "x-timestamp"
	HeaderHMACSignature = "x-hmac-signature"

	maxResponseBytes = 4 << 20
)

type Options struct {
	BaseURL    string
	APIKey     string
	HMACSecret string
	Timeout    time.Duration
	// RateLimit caps outbound requests per second; zero means unlimited.
	RateLimit int
	Metrics   *metrics.Metrics
}

type Client struct {
	baseURL    string
	apiKey     string
	hmacSecret string
	http       *http.Client
	limiter    ratelimit.Limiter
	metrics    *metrics.Metrics
	now        func() time.Time
}

func New(opts Options) *Client {
	limiter := ratelimit.NewUnlimited()
	if opts.RateLimit > 0 {
		limiter = ratelimit.New(opts.RateLimit)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		hmacSecret: opts.HMACSecret,
		http:       &http.Client{Timeout: timeout},
		limiter:    limiter,
		metrics:    opts.Metrics,
		now:        time.Now,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type Request struct {
	Method string
	Path   string
	// Label names the call in metrics.
	Label string
	Body  any
}

type Response struct {
	Status int
	Body   []byte
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the response body into out.
func (r *Response) Decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return relayerrors.RelayUnavailable(fmt.Errorf("malformed relay response (status %d): %w", r.Status, err))
	}
	return nil
}

// Snippet returns the start of the body for error messages.
func (r *Response) Snippet() string {
	const limit = 256
	s := strings.TrimSpace(string(r.Body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// Do sends req and returns the response whatever its status. Only failures
// to reach the relay are returned as errors, always as RelayUnavailable.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var payload []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", req.Label, err)
		}
		payload = b
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, bytes.NewReader(payload))
	if err != nil {
		return nil, relayerrors.RelayUnavailable(err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	c.authenticate(httpReq, payload)

	c.limiter.Take()

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	c.metrics.ObserveRelayCall(req.Label, time.Since(start))
	if err != nil {
		return nil, relayerrors.RelayUnavailable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, relayerrors.RelayUnavailable(fmt.Errorf("read relay response: %w", err))
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}

func (c *Client) authenticate(req *http.Request, payload []byte) {
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}
	if c.hmacSecret != "" {
		ts := strconv.FormatInt(c.now().Unix(), 10)
		req.Header.Set(HeaderTimestamp, ts)
		req.Header.Set(HeaderHMACSignature, Sign(c.hmacSecret, ts, payload))
	}
}

// Sign computes the hex HMAC-SHA256 of timestamp followed by body.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
