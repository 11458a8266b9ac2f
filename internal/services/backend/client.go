// Package backend is the typed HTTP client for the HomeHero REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ulule/limiter/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/benvon/homehero/internal/logger"
	"github.com/benvon/homehero/internal/request"
	"github.com/benvon/homehero/internal/telemetry"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	// AccessToken returns the persisted token, or "" when there is none.
	AccessToken(ctx context.Context) (string, error)
	// EnsureToken exchanges the signed-in identity for a fresh token and
	// persists it.
	EnsureToken(ctx context.Context) (string, error)
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Limiter    *limiter.Limiter
	Logger     *zap.Logger
}

// Client calls the backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *limiter.Limiter
	tokens     TokenSource
	logger     *zap.Logger
}

// NewClient creates a client without a token source. Only unauthenticated
// endpoints work until WithTokenSource is applied.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    cfg.Limiter,
		logger:     log,
	}, nil
}

// WithTokenSource returns a copy of c that authenticates with ts. The copy
// shares c's HTTP client and limiter.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

type authMode int

const (
	authNone authMode = iota
	// authOptional attaches a persisted token when there is one
	authOptional
	// authRequired obtains a token first and re-syncs once on 401
	authRequired
)

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	auth   authMode
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	ctx, reqID := request.EnsureRequestID(ctx)
	ctx, span := telemetry.Tracer().Start(ctx, "backend."+cl.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", cl.method),
			attribute.String("url.path", cl.path),
			attribute.String("request.id", reqID),
		),
	)
	defer span.End()

	status, err := c.execute(ctx, cl, reqID, out)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, logger.SanitizeError(err))
		return err
	}
	return nil
}

func (c *Client) execute(ctx context.Context, cl call, reqID string, out any) (int, error) {
	if err := c.take(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", cl.op, err)
	}

	var payload []byte
	if cl.body != nil {
		var err error
		payload, err = json.Marshal(cl.body)
		if err != nil {
			return 0, fmt.Errorf("%s: failed to encode request: %w", cl.op, err)
		}
	}

	token, err := c.bearer(ctx, cl.auth)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", cl.op, err)
	}

	status, body, err := c.send(ctx, cl, reqID, payload, token)
	if err != nil {
		return 0, err
	}

	if status == http.StatusUnauthorized && cl.auth == authRequired {
		c.logger.Info("backend_token_rejected",
			zap.String("op", cl.op),
			zap.String("request_id", reqID),
		)
		token, err = c.tokens.EnsureToken(ctx)
		if err != nil {
			return status, fmt.Errorf("%s: failed to re-sync token: %w", cl.op, err)
		}
		status, body, err = c.send(ctx, cl, reqID, payload, token)
		if err != nil {
			return 0, err
		}
	}

	if status < 200 || status >= 300 {
		reqErr := newRequestError(cl.op, status, body)
		c.logger.Debug("backend_request_failed",
			zap.String("op", cl.op),
			zap.Int("status", status),
			zap.String("request_id", reqID),
			zap.String("message", logger.SanitizeErrorString(reqErr.Message)),
			zap.String("body", logger.SanitizeDebugContent(string(body))),
		)
		return status, reqErr
	}

	if out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return status, fmt.Errorf("%s: failed to decode response: %w", cl.op, err)
		}
	}
	return status, nil
}

func (c *Client) bearer(ctx context.Context, mode authMode) (string, error) {
	if mode == authNone {
		return "", nil
	}
	if c.tokens == nil {
		if mode == authOptional {
			return "", nil
		}
		return "", ErrNoTokenSource
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read access token: %w", err)
	}
	if token != "" || mode == authOptional {
		return token, nil
	}
	return c.tokens.EnsureToken(ctx)
}

func (c *Client) send(ctx context.Context, cl call, reqID string, payload []byte, token string) (int, []byte, error) {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: failed to create request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(request.HeaderRequestID, reqID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	telemetry.InjectHeaders(ctx, req.Header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: request failed: %w", cl.op, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("backend_body_close_failed", zap.Error(closeErr))
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%s: failed to read response: %w", cl.op, err)
	}

	c.logger.Debug("backend_request",
		zap.String("op", cl.op),
		zap.String("method", cl.method),
		zap.String("path", logger.SanitizePath(cl.path)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", reqID),
	)

	return resp.StatusCode, data, nil
}
