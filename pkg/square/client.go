package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/rmjobsites-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
)

const (
	SandboxEnv    = "sandbox"
	ProductionEnv = "production"

	locationStatusActive = "ACTIVE"
)

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errInvalidSquareEnv    = fmt.Errorf("square environment must be %q or %q", SandboxEnv, ProductionEnv)
	errLoggerRequired      = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	SandboxEnv:    "https://connect.squareupsandbox.com",
	ProductionEnv: "https://connect.squareup.com",
}

type locationsAPI interface {
	Get(ctx context.Context, request *sq.GetLocationsRequest, opts ...sqoption.RequestOption) (*sq.GetLocationResponse, error)
}

// Client exposes the Square API calls the storefront makes directly, with centralized
// auth, logging and error mapping.
type Client struct {
	locations   locationsAPI
	environment string
	baseURL     string
	logger      *logger.Logger
}

// Option configures optional client behavior.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	baseURL    string
}

// WithHTTPClient overrides the HTTP client used by the Square SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithBaseURL overrides the environment's Square base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			o.baseURL = trimmed
		}
	}
}

// NewClient initializes the Square wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := NormalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}

	options := clientOptions{baseURL: baseURLs[env]}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	sdkOpts := []sqoption.RequestOption{
		sqoption.WithBaseURL(options.baseURL),
		sqoption.WithToken(accessToken),
	}
	if options.httpClient != nil {
		sdkOpts = append(sdkOpts, sqoption.WithHTTPClient(options.httpClient))
	}
	sdk := sqclient.NewClient(sdkOpts...)

	c := &Client{
		locations:   sdk.Locations,
		environment: env,
		baseURL:     options.baseURL,
		logger:      logg,
	}

	logg.Info(logg.WithField(ctx, "square_env", env), "square client initialized")
	return c, nil
}

// Environment reports the normalized Square environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// VerifyLocation fetches the location and fails unless it exists and is active.
func (c *Client) VerifyLocation(ctx context.Context, locationID string) (*sq.Location, error) {
	if c == nil {
		return nil, errAccessTokenRequired
	}
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "square location id is required")
	}

	c.log(ctx, "request", "get_location", map[string]any{"location_id": locationID})
	resp, err := c.locations.Get(ctx, &sq.GetLocationsRequest{LocationID: locationID})
	if err != nil {
		c.log(ctx, "error", "get_location", map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err, "get location")
	}

	location := resp.Location
	if location == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "square location not found")
	}
	status := ""
	if location.Status != nil {
		status = string(*location.Status)
	}
	c.log(ctx, "response", "get_location", map[string]any{
		"location_id": stringValue(location.ID),
		"status":      status,
	})
	if status != "" && status != locationStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "square location is not active").
			WithDetails(map[string]any{"location_id": locationID, "status": status})
	}
	return location, nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("square %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("square %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "nonce", "token", "cvv", "cvc", "secret", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapSquareError(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *sqcore.APIError
	if errors.As(err, &apiErr) {
		code := domainCodeForStatus(apiErr.StatusCode)
		for _, sqErr := range extractSquareErrors(apiErr) {
			if sqErr == nil {
				continue
			}
			if sqErr.Code == sq.ErrorCodeIdempotencyKeyReused {
				code = pkgerrors.CodeConflict
				break
			}
			if sqErr.Category == sq.ErrorCategoryAuthenticationError {
				code = pkgerrors.CodeUnauthorized
				break
			}
		}
		return pkgerrors.Wrap(code, err, fmt.Sprintf("square %s failed", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("square %s failed", op))
}

func extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil {
		return nil
	}
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	raw := strings.TrimSpace(inner.Error())
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

// NormalizeEnv lower-cases raw and defaults it to sandbox.
func NormalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = SandboxEnv
	}
	switch env {
	case SandboxEnv, ProductionEnv:
		return env, nil
	default:
		return "", errInvalidSquareEnv
	}
}

// ValidateApplicationID checks that a Web Payments application id belongs to env.
// Sandbox ids carry the "sandbox-" prefix; production ids never do.
func ValidateApplicationID(env, applicationID string) error {
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return errors.New("square application id is required")
	}
	sandboxID := strings.HasPrefix(applicationID, "sandbox-")
	switch env {
	case SandboxEnv:
		if !sandboxID {
			return fmt.Errorf("application id %q is not a sandbox application", applicationID)
		}
	case ProductionEnv:
		if sandboxID {
			return fmt.Errorf("application id %q is a sandbox application", applicationID)
		}
	default:
		return errInvalidSquareEnv
	}
	return nil
}
