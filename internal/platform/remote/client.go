package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phrazzld/scry-capture/internal/analysis"
	"github.com/phrazzld/scry-capture/internal/config"
)

const (
	analyzePath = "/analyze"
	gradePath   = "/grade"

	maxResponseBody = 1 << 20
)

// Credentials resolves the bearer token for each request. Invalidate drops a
// cached token after the service rejects it.
type Credentials interface {
	Resolve(ctx context.Context) (string, error)
	Invalidate()
}

// Client calls the analysis service.
type Client struct {
	baseURL        string
	creds          Credentials
	httpClient     *http.Client
	analyzeTimeout time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger
}

// Ensure Client implements both service interfaces.
var (
	_ analysis.Analyzer = (*Client)(nil)
	_ analysis.Grader   = (*Client)(nil)
)

// NewClient creates a Client from the remote configuration.
func NewClient(logger *slog.Logger, cfg config.RemoteConfig, creds Credentials, httpClient *http.Client) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: invalid base URL %q", analysis.ErrInvalidConfig, cfg.BaseURL)
	}
	if creds == nil {
		return nil, fmt.Errorf("%w: credentials cannot be nil", analysis.ErrInvalidConfig)
	}
	if cfg.AnalyzeTimeout <= 0 || cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("%w: timeouts must be positive", analysis.ErrInvalidConfig)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		creds:          creds,
		httpClient:     httpClient,
		analyzeTimeout: cfg.AnalyzeTimeout,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger.With("component", "analysis_client"),
	}, nil
}

// Analyze implements analysis.Analyzer.
func (c *Client) Analyze(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.AnalyzeResponse, error) {
	var resp analysis.AnalyzeResponse
	if err := c.postJSON(ctx, analyzePath, c.analyzeTimeout, req, &resp); err != nil {
		return nil, err
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "analysis complete",
		"trace_id", resp.TraceID,
		"decision", resp.Decision,
		"concept_count", len(resp.Concepts),
		"question_count", len(resp.Questions))
	return &resp, nil
}

// Grade implements analysis.Grader.
func (c *Client) Grade(ctx context.Context, req analysis.GradeRequest) (*analysis.GradeResponse, error) {
	var resp analysis.GradeResponse
	if err := c.postJSON(ctx, gradePath, c.requestTimeout, req, &resp); err != nil {
		return nil, err
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, timeout time.Duration, in, out interface{}) error {
	token, err := c.creds.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", analysis.ErrAnalysisFailed, analysis.ErrUnauthorized, err)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", analysis.ErrAnalysisFailed, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", analysis.ErrAnalysisFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "analysis service unreachable", "path", path, "error", err)
		return fmt.Errorf("%w: %w", analysis.ErrTransientFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.DebugContext(ctx, "analysis service responded",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", analysis.ErrTransientFailure, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.creds.Invalidate()
		c.logger.WarnContext(ctx, "analysis service rejected credential", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%w: %w: %s responded %d", analysis.ErrAnalysisFailed, analysis.ErrUnauthorized, path, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s responded %d", analysis.ErrTransientFailure, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: %s responded %d", analysis.ErrAnalysisFailed, path, resp.StatusCode)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %v", analysis.ErrInvalidResponse, err)
	}
	return nil
}
