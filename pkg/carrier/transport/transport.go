// Package transport provides the shared HTTP client used by every
// carrier adapter: a uniform request/response contract with credential
// redaction, debug body previews, and raw-byte (arraybuffer) responses
// for PDF handling.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ResponseType selects how the response body is handled.
type ResponseType string

const (
	ResponseJSON        ResponseType = "json" // default
	ResponseText        ResponseType = "text"
	ResponseArrayBuffer ResponseType = "arraybuffer" // raw bytes, never JSON-parsed
	ResponseStream      ResponseType = "stream"      // raw bytes, no Accept negotiation
)

// DefaultTimeout applies when the caller supplies none.
const DefaultTimeout = 30 * time.Second

// previewLimit caps debug body previews.
const previewLimit = 200

// redactedHeaders are never logged with their real values.
var redactedHeaders = map[string]bool{
	"authorization": true,
	"api-key":       true,
	"x-api-key":     true,
	"password":      true,
	"token":         true,
}

// Config carries per-request options.
type Config struct {
	Headers        map[string]string
	Timeout        time.Duration
	Params         map[string]string // appended as query string
	ResponseType   ResponseType
	CaptureRequest bool // echo method/url into the response
}

// Response is the uniform HTTP response.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte          // raw bytes for text/arraybuffer
	JSON    json.RawMessage // set when the body was JSON
	Method  string          // set when CaptureRequest
	URL     string          // set when CaptureRequest
}

// StatusError is thrown on non-2xx responses.
type StatusError struct {
	Status     int
	RetryAfter time.Duration // from the Retry-After header, when present
	Response   ErrorResponse
}

// ErrorResponse mirrors the failed upstream response.
type ErrorResponse struct {
	Status     int
	StatusText string
	Data       any // parsed JSON when content-type is JSON, raw string otherwise
	Headers    http.Header
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d %s", e.Status, e.Response.StatusText)
}

// Client is the shared HTTP client. It is stateless beyond the
// underlying connection pool and safe for concurrent use.
type Client struct {
	httpClient *http.Client
	logger     *otelzap.Logger
	debug      bool
	debugFull  bool
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Timeout   time.Duration
	Debug     bool // log requests/responses with redacted headers
	DebugFull bool // also log truncated bodies
}

// New creates a shared HTTP client.
func New(cfg ClientConfig, logger *otelzap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		debug:      cfg.Debug,
		debugFull:  cfg.DebugFull,
	}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, rawURL string, cfg *Config) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, nil, cfg)
}

// Post issues a POST request with a JSON body (nil body allowed).
func (c *Client) Post(ctx context.Context, rawURL string, body any, cfg *Config) (*Response, error) {
	return c.do(ctx, http.MethodPost, rawURL, body, cfg)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, rawURL string, body any, cfg *Config) (*Response, error) {
	return c.do(ctx, http.MethodPut, rawURL, body, cfg)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, rawURL string, body any, cfg *Config) (*Response, error) {
	return c.do(ctx, http.MethodPatch, rawURL, body, cfg)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, rawURL string, cfg *Config) (*Response, error) {
	return c.do(ctx, http.MethodDelete, rawURL, nil, cfg)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, cfg *Config) (*Response, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if len(cfg.Params) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
		}
		q := u.Query()
		for k, v := range cfg.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}

	var bodyReader io.Reader
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.ResponseType == "" || cfg.ResponseType == ResponseJSON {
		req.Header.Set("Accept", "application/json")
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	c.logRequest(method, rawURL, req.Header, bodyBytes)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logResponse(method, rawURL, resp.StatusCode, data)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp, data)
	}

	out := &Response{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    data,
	}
	if cfg.CaptureRequest {
		out.Method = method
		out.URL = rawURL
	}
	if cfg.ResponseType != ResponseArrayBuffer && cfg.ResponseType != ResponseStream && isJSONContent(resp.Header) {
		out.JSON = json.RawMessage(data)
	}
	return out, nil
}

func newStatusError(resp *http.Response, body []byte) *StatusError {
	var data any
	if isJSONContent(resp.Header) {
		if err := json.Unmarshal(body, &data); err != nil {
			data = string(body)
		}
	} else {
		data = string(body)
	}
	return &StatusError{
		Status:     resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header),
		Response: ErrorResponse{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Data:       data,
			Headers:    resp.Header,
		},
	}
}

// parseRetryAfter reads the Retry-After header, which carries either
// delay seconds or an HTTP date.
func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func isJSONContent(h http.Header) bool {
	return strings.Contains(strings.ToLower(h.Get("Content-Type")), "application/json")
}

// RedactHeaders replaces credential header values with "REDACTED".
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if redactedHeaders[strings.ToLower(k)] {
			out[k] = "REDACTED"
			continue
		}
		out[k] = strings.Join(vs, ", ")
	}
	return out
}

func (c *Client) logRequest(method, url string, headers http.Header, body []byte) {
	if !c.debug || c.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("url", url),
		zap.Any("headers", RedactHeaders(headers)),
	}
	if len(body) > 0 {
		fields = append(fields, zap.String("body", c.bodyField(body)))
	}
	c.logger.Debug("HTTP request", fields...)
}

func (c *Client) logResponse(method, url string, status int, body []byte) {
	if !c.debug || c.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", status),
	}
	if len(body) > 0 {
		fields = append(fields, zap.String("body", c.bodyField(body)))
	}
	c.logger.Debug("HTTP response", fields...)
}

// bodyField truncates to the preview limit unless full-body logging is
// separately enabled.
func (c *Client) bodyField(body []byte) string {
	if c.debugFull {
		return string(body)
	}
	return preview(body)
}

func preview(body []byte) string {
	if len(body) <= previewLimit {
		return string(body)
	}
	return string(body[:previewLimit]) + "..."
}
