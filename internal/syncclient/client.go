package syncclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phrazzld/scry-capture/internal/outbox"
)

const (
	// DefaultTimeout bounds every delivery request.
	DefaultTimeout = 8 * time.Second

	// DefaultUserAgent identifies delivery requests.
	DefaultUserAgent = "scry-capture/1.0"

	// HeaderOutboxName tells the server which queue a payload came from.
	HeaderOutboxName = "X-Outbox-Name"

	maxErrorBody = 4 << 10
)

// Credentials resolves the bearer token for each drain.
type Credentials interface {
	Resolve(ctx context.Context) (string, error)

	// Invalidate forgets a cached token after the server rejected it.
	Invalidate()
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		if d > 0 {
			client.timeout = d
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(client *Client) {
		if ua != "" {
			client.userAgent = ua
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// Client posts outbox payloads to the remote ingest service.
// It is safe for concurrent use by drains of different outboxes.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a Client for baseURL.
func NewClient(baseURL string, creds Credentials, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	if creds == nil {
		return nil, errors.New("credentials cannot be nil")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		userAgent:  DefaultUserAgent,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "sync_client")
	return c, nil
}

// Drain delivers q to endpoint (for example "/telemetry") until the queue is
// empty or the first failure. It returns the number of entries delivered and
// nil, ErrNoCredential, ctx.Err(), outbox.ErrPersistence or one of
// *TransportError, *ServerError and *AuthError.
func (c *Client) Drain(ctx context.Context, q Queue, endpoint string) (int, error) {
	token, err := c.creds.Resolve(ctx)
	if errors.Is(err, ErrNoCredential) {
		return 0, ErrNoCredential
	}
	if err != nil {
		return 0, &AuthError{Outbox: q.Name(), Err: err}
	}

	target := c.baseURL + endpoint
	delivered, err := DrainWith(ctx, q, func(ctx context.Context, entry outbox.Entry) error {
		return c.post(ctx, q.Name(), target, token, entry)
	})

	log := c.logger.With("outbox", q.Name(), "delivered", delivered)
	if err != nil {
		log.Debug("drain halted", "error", err)
	} else if delivered > 0 {
		log.Debug("drain complete")
	}
	return delivered, err
}

func (c *Client) post(ctx context.Context, name, target, token string, entry outbox.Entry) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target, bytes.NewReader(entry.Payload))
	if err != nil {
		return &TransportError{Outbox: name, Endpoint: target, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderOutboxName, name)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Outbox: name, Endpoint: target, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.creds.Invalidate()
		return &AuthError{Outbox: name, StatusCode: resp.StatusCode}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ServerError{
			Outbox:     name,
			Endpoint:   target,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
}
