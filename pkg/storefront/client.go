package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/metrics"
)

const (
	DefaultBaseURL = "http://localhost:3000/api"

	breakerName = "storefront-api"
)

const responseBodyReadLimit int64 = 4 << 20

// TokenSource returns the bearer token of the signed-in user, or "" when signed out.
type TokenSource func(ctx context.Context) string

// BreakerSettings tunes the circuit breaker guarding the REST API.
type BreakerSettings struct {
	// ConsecutiveFailures opens the breaker; zero disables the breaker.
	ConsecutiveFailures uint32
	Cooldown            time.Duration
	HalfOpenRequests    uint32
}

// StatusError is the cause attached to errors for non-2xx responses.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storefront api status %d", e.Status)
	}
	return fmt.Sprintf("storefront api status %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return 0
}

// Client is the storefront REST API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	breaker    *gobreaker.CircuitBreaker[*rawResponse]
	metrics    *metrics.Storefront
	logger     *logger.Logger
	breakerCfg BreakerSettings
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout bounds every request. Zero leaves requests bounded only by their context.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

func WithBreaker(settings BreakerSettings) Option {
	return func(c *Client) {
		c.breakerCfg = settings
	}
}

func WithMetrics(m *metrics.Storefront) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logger = logg
	}
}

// NewClient builds the REST client. The base URL defaults to DefaultBaseURL.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.breakerCfg.ConsecutiveFailures > 0 {
		client.breaker = newBreaker(client.breakerCfg, client.metrics)
	}
	return client
}

func newBreaker(cfg BreakerSettings, m *metrics.Storefront) *gobreaker.CircuitBreaker[*rawResponse] {
	halfOpen := cfg.HalfOpenRequests
	if halfOpen == 0 {
		halfOpen = 1
	}
	return gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: halfOpen,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			// 4xx responses mean the API is up
			status := StatusOf(err)
			return status >= 400 && status < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.SetBreakerState(name, int(to))
		},
	})
}

// BreakerState reports the breaker state name ("closed" when no breaker is configured).
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return gobreaker.StateClosed.String()
	}
	return c.breaker.State().String()
}

type call struct {
	endpoint string
	method   string
	path     string
	body     any
	out      any
	headers  map[string]string
	fallback string
}

type rawResponse struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, req call) error {
	started := time.Now()
	raw, err := c.execute(ctx, req)
	c.metrics.ObserveAPI(req.endpoint, outcomeLabel(raw, err), time.Since(started))
	if err != nil {
		mapped := c.mapError(err, req)
		if c.logger != nil {
			logCtx := c.logger.WithFields(ctx, map[string]any{
				"endpoint": req.endpoint,
				"status":   StatusOf(err),
			})
			c.logger.Warn(logCtx, "storefront api call failed")
		}
		return mapped
	}
	if req.out == nil || len(bytes.TrimSpace(raw.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.body, req.out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+req.endpoint+" response")
	}
	return nil
}

func (c *Client) execute(ctx context.Context, req call) (*rawResponse, error) {
	if c.breaker == nil {
		return c.roundTrip(ctx, req)
	}
	return c.breaker.Execute(func() (*rawResponse, error) {
		return c.roundTrip(ctx, req)
	})
}

func (c *Client) roundTrip(ctx context.Context, req call) (*rawResponse, error) {
	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", req.endpoint, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.buildURL(req.path), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", req.endpoint, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens(ctx); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.endpoint, err)
	}
	raw := &rawResponse{status: resp.StatusCode, body: payload}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, &StatusError{Status: resp.StatusCode, Message: errorMessage(payload)}
	}
	return raw, nil
}

func (c *Client) mapError(err error, req call) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storefront api temporarily unavailable")
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		message := statusErr.Message
		if message == "" {
			message = req.fallback
		}
		return pkgerrors.Wrap(codeForStatus(statusErr.Status), statusErr, message).
			WithDetails(map[string]any{"status": statusErr.Status})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, req.fallback)
}

// errorMessage extracts {"error": "..."} or {"errors": [...]} from an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Error  json.RawMessage   `json:"error"`
		Errors []json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Errors) > 0 {
		messages := make([]string, 0, len(payload.Errors))
		for _, raw := range payload.Errors {
			if msg := rawMessage(raw); msg != "" {
				messages = append(messages, msg)
			}
		}
		if len(messages) > 0 {
			return strings.Join(messages, ", ")
		}
	}
	return rawMessage(payload.Error)
}

func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var object struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &object); err == nil {
		if object.Message != "" {
			return object.Message
		}
		return object.Detail
	}
	return ""
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}

func outcomeLabel(raw *rawResponse, err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case raw != nil:
		return fmt.Sprintf("%dxx", raw.status/100)
	case err != nil:
		return "transport"
	default:
		return "unknown"
	}
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
