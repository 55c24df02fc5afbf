package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const auditPath = "/api/citations/audit"

// Backend error codes the classifier understands.
const (
	CodePlanLimitReached    = "PLAN_LIMIT_REACHED"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeFeatureNotAllowed   = "FEATURE_NOT_ALLOWED"
)

// ErrInvalidBaseURL is returned by NewClient for unusable backend URLs.
var ErrInvalidBaseURL = errors.New("audit: invalid backend url")

// ServiceError is a non-2xx response from the audit backend.
type ServiceError struct {
	Status  int             `json:"-"`
	Code    string          `json:"code"`
	Message string          `json:"error"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("audit backend: %s (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("audit backend: HTTP %d: %s", e.Status, e.Message)
}

// Quota decodes the quota detail carried in Data. Malformed or missing data
// yields zero values.
func (e *ServiceError) Quota() QuotaPayload {
	var raw struct {
		Used      float64 `json:"used"`
		Limit     float64 `json:"limit"`
		ResetTime string  `json:"resetTime"`
	}
	if len(e.Data) > 0 {
		_ = json.Unmarshal(e.Data, &raw)
	}
	return QuotaPayload{Used: int(raw.Used), Limit: int(raw.Limit), ResetTime: raw.ResetTime}
}

// Client calls the external citation-audit backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient validates baseURL and builds a client with the given timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidBaseURL)
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Audit posts req to the backend and decodes the flags it returns.
func (c *Client) Audit(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode audit request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+auditPath, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build audit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	c.logger.Debug("audit backend responded",
		zap.Int("status", resp.StatusCode),
		zap.Int("patterns", len(req.Patterns)),
		zap.Duration("elapsed", time.Since(start)),
	)

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return Response{}, fmt.Errorf("read audit response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		svcErr := &ServiceError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(payload, svcErr); jsonErr != nil || svcErr.Message == "" {
			svcErr.Message = strings.TrimSpace(string(payload))
		}
		return Response{}, svcErr
	}

	var out Response
	if err := json.Unmarshal(payload, &out); err != nil {
		return Response{}, fmt.Errorf("decode audit response: %w", err)
	}
	return out, nil
}
