// Package analysis is the HTTP client for the external tree analysis service.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/crabritto/arbor/internal/logging"
	"github.com/crabritto/arbor/pkg/domain"
)

// DefaultTimeout applies when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

// ErrTransport matches every TransportError.
var ErrTransport = errors.New("analysis service unavailable")

// TransportError reports a failed call to the analysis service.
// StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("analysis service returned %d: %s", e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("analysis service returned %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("analysis service call failed: %v", e.Err)
	}
	return ErrTransport.Error()
}

// Unwrap exposes both ErrTransport and the underlying cause.
func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}

// Client implements ports.Analyzer over HTTP.
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	envelope bool
	logger   *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The client is shared,
// never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds each Analyze call. It is applied through the request
// context, on top of any timeout the http.Client carries.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithEnvelope wraps the request body as {"root": <label>, "children": <wire>}.
func WithEnvelope(enabled bool) Option {
	return func(c *Client) {
		c.envelope = enabled
	}
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Root     int              `json:"root"`
	Children *domain.WireTree `json:"children"`
}

// Analyze posts the wire tree to {base}/tree and decodes the statistics.
func (c *Client) Analyze(ctx context.Context, wire *domain.WireTree, rootLabel int) (*domain.AnalysisResponse, error) {
	var payload any = wire
	if c.envelope {
		payload = envelope{Root: rootLabel, Children: wire}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tree", bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("analysis request failed", "url", req.URL.String(), "err", err)
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}
	c.logger.Debug("analysis response",
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	out, err := decode(data)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data)), Err: err}
	}
	return out, nil
}

// decode reads the response, unwrapping a {"data": {...}} wrapper if present.
func decode(data []byte) (*domain.AnalysisResponse, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	if inner, ok := fields["data"]; ok {
		if _, direct := fields["pre_order"]; !direct {
			data = inner
		}
	}

	var out domain.AnalysisResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
