// Package httpx executes bound requests against the API.
package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mark3labs/cloudflare-cli/internal/dispatch"
)

const DefaultTimeout = 30 * time.Second

type ClientOptions struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
	// Transport overrides http.DefaultTransport.
	Transport http.RoundTripper
}

// Client performs exactly one HTTP exchange per Execute call. There are no
// retries; the caller decides what to do with a failure.
type Client struct {
	http   *http.Client
	opts   ClientOptions
	logger *slog.Logger
}

type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		http:   &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		opts:   opts,
		logger: logger,
	}
}

// Execute sends req. A non-2xx response is returned together with a
// TransportError of kind HTTPStatus so callers can still print the body.
func (c *Client) Execute(ctx context.Context, req *dispatch.BoundRequest) (*Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &TransportError{Kind: Connect, Err: err}
	}
	httpReq.Header = req.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = http.Header{}
	}
	if c.opts.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.opts.UserAgent)
	}

	logger := c.logger.With("request_id", uuid.NewString())
	logger.Debug("http request",
		"method", httpReq.Method,
		"url", httpReq.URL.String(),
		"headers", redactHeaders(httpReq.Header),
		"body_bytes", len(req.Body),
	)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		te := classify(ctx, err)
		logger.Debug("http failure", "kind", te.Kind, "error", err, "elapsed", time.Since(start))
		return nil, te
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Debug("http body read failed", "status", resp.StatusCode, "error", err)
		return nil, &TransportError{Kind: MalformedResponse, Status: resp.StatusCode, Err: err}
	}

	logger.Debug("http response",
		"status", resp.StatusCode,
		"headers", redactHeaders(resp.Header),
		"body_bytes", len(data),
		"elapsed", time.Since(start),
	)

	out := &Response{Status: resp.StatusCode, Headers: resp.Header.Clone(), Body: data}
	if !out.OK() {
		return out, &TransportError{Kind: HTTPStatus, Status: resp.StatusCode, Body: data}
	}
	return out, nil
}

func classify(ctx context.Context, err error) *TransportError {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &TransportError{Kind: Canceled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Kind: Timeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TransportError{Kind: Timeout, Err: err}
	}
	return &TransportError{Kind: Connect, Err: err}
}

// redactHeaders flattens h for logging with credentials masked.
func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		v := strings.Join(vv, ", ")
		switch strings.ToLower(k) {
		case "authorization", "proxy-authorization", "x-auth-key", "cookie", "set-cookie":
			v = "<redacted>"
		}
		out[k] = v
	}
	return out
}

// ErrorKind classifies transport failures.
type ErrorKind string

const (
	Connect           ErrorKind = "connect"
	Timeout           ErrorKind = "timeout"
	Canceled          ErrorKind = "canceled"
	HTTPStatus        ErrorKind = "http_status"
	MalformedResponse ErrorKind = "malformed_response"
)

// TransportError is a failure to obtain a successful response.
type TransportError struct {
	Kind   ErrorKind
	Status int
	Body   []byte
	Err    error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case HTTPStatus:
		return fmt.Sprintf("HTTP %d %s", e.Status, http.StatusText(e.Status))
	case Timeout:
		return fmt.Sprintf("request timed out: %v", e.Err)
	case Canceled:
		return "request canceled"
	case MalformedResponse:
		return fmt.Sprintf("read response body (HTTP %d): %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("connect: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }
