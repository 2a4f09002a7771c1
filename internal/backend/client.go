package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"qpinta/internal/config"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"
	"resty.dev/v3"
)

const (
	restPrefix    = "/rest/v1/"
	storagePrefix = "/storage/v1/object/"
	authPrefix    = "/auth/v1/"
)

type tokenKey struct{}

// WithAccessToken returns a context whose backend calls present token as the
// bearer credential. An empty token falls back to the anonymous key.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func accessToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client talks to the hosted backend: REST tables, object storage and
// password auth. Requests are never retried.
type Client struct {
	http    *resty.Client
	anonKey string
	bucket  string
	limiter ratelimit.Limiter
	logger  *zap.Logger
}

// New creates a backend client from configuration.
func New(cfg config.BackendConfig, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.URL).
		SetHeader("Accept", "application/json")

	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.MaxRPS > 0 {
		limiter = ratelimit.New(cfg.MaxRPS)
	}

	return &Client{
		http:    httpClient,
		anonKey: cfg.AnonKey,
		bucket:  cfg.StorageBucket,
		limiter: limiter,
		logger:  logger,
	}
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) newRequest(ctx context.Context) *resty.Request {
	token := accessToken(ctx)
	if token == "" {
		token = c.anonKey
	}

	return c.http.R().
		SetContext(ctx).
		SetHeader("apikey", c.anonKey).
		SetHeader("Authorization", "Bearer "+token)
}

// execute sends req and converts transport failures and non-2xx statuses
// into *Error.
func (c *Client) execute(op string, req *resty.Request, method, path string) (*resty.Response, error) {
	c.limiter.Take()

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Debug("Backend request failed",
			zap.String("op", op),
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, &Error{Op: op, Err: err}
	}

	c.logger.Debug("Backend request completed",
		zap.String("op", op),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)

	if !resp.IsSuccess() {
		var body errorBody
		_ = json.Unmarshal([]byte(resp.String()), &body)
		return resp, &Error{Op: op, StatusCode: resp.StatusCode(), Message: body.text()}
	}

	return resp, nil
}

// decode unmarshals a successful response body into out.
func decode(resp *resty.Response, out interface{}) error {
	body := strings.TrimSpace(resp.String())
	if body == "" {
		return ErrMalformedResponse
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
