// Package posapi is the HTTP client for the remote Deliver Point backend:
// the catalog and transaction services the till consumes. Responses share
// a `{success, data, message}` envelope; monetary amounts cross the wire
// as plain JSON numbers and are mapped to decimals at this boundary.
package posapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deliverpoint/pos/internal/domain"
	"github.com/deliverpoint/pos/internal/telemetry"
)

// Errors raised by the client itself (service-reported failures carry the
// service's message instead).
var (
	ErrMissingBaseURL = domain.Errorf(domain.EINVALID, "posapi.new", "base URL is required")
)

// DefaultTimeout covers the whole request. Generous because the hosted
// backend cold-starts.
const DefaultTimeout = 60 * time.Second

// Config contains configuration for the backend client.
type Config struct {
	BaseURL string
	Token   string        // bearer token; sent when non-empty
	Timeout time.Duration // defaults to DefaultTimeout
	Logger  *slog.Logger  // optional: defaults to slog.Default()
	Metrics *telemetry.BusinessMetrics

	// HTTPClient overrides the underlying client (tests). When set,
	// Timeout is ignored.
	HTTPClient *http.Client
}

// Client talks to the Deliver Point backend.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
	metrics *telemetry.BusinessMetrics

	Products     *ProductsService
	Transactions *TransactionsService
}

// NewClient creates a backend client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    httpClient,
		logger:  logger,
		metrics: cfg.Metrics,
	}
	c.Products = &ProductsService{client: c}
	c.Transactions = &TransactionsService{client: c}
	return c, nil
}

// envelope is the response wrapper every backend endpoint uses.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do performs a request and unmarshals the envelope's data into out (when
// out is non-nil). Transport errors, including timeouts, surface as
// EUNAVAILABLE; the caller decides what that means for its state machine.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, header http.Header, body, out interface{}) error {
	op := "posapi." + strings.ToLower(method) + strings.ReplaceAll(path, "/", ".")

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return domain.Internal(err, op, "failed to encode request")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return domain.Internal(err, op, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("backend request failed", "method", method, "path", path, "error", err)
		c.countError(method, path)
		return domain.Unavailable(err, op, "backend unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countError(method, path)
		return domain.Unavailable(err, op, "failed to read response")
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			c.countError(method, path)
			return domain.Internal(err, op, "failed to decode response")
		}
	}

	if resp.StatusCode >= 400 || !env.Success {
		c.countError(method, path)
		return c.serviceError(op, resp.StatusCode, env.Message)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return domain.Internal(err, op, "failed to decode response data")
		}
	}
	return nil
}

// countError records a failed backend call. The label keeps only the
// top-level resource so barcode and id segments stay out of the metric.
func (c *Client) countError(method, path string) {
	if c.metrics == nil {
		return
	}
	resource := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(resource, '/'); i >= 0 {
		resource = resource[:i]
	}
	c.metrics.BackendErrors.WithLabelValues(method + " /" + resource).Inc()
}

// serviceError maps a failed response onto a domain error, preferring the
// service-provided message when present.
func (c *Client) serviceError(op string, status int, message string) error {
	if message == "" {
		message = fmt.Sprintf("backend returned status %d", status)
	}
	switch {
	case status == http.StatusUnauthorized:
		return domain.Unauthorized(op, message)
	case status == http.StatusNotFound:
		return &domain.Error{Code: domain.ENOTFOUND, Op: op, Message: message}
	case status == http.StatusBadRequest:
		return domain.Invalid(op, message)
	case status >= 500:
		return &domain.Error{Code: domain.EUNAVAILABLE, Op: op, Message: message}
	default:
		return &domain.Error{Code: domain.EINTERNAL, Op: op, Message: message}
	}
}
