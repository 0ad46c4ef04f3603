package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// DefaultTimeout is the default timeout of a single HTTP attempt.
const DefaultTimeout = 30 * time.Second

// DefaultMaxAttempts is the retry budget: the total number of attempts,
// including the first, before a request is considered permanently failed.
const DefaultMaxAttempts = 10

// DefaultRetryWait is the fixed wait between attempts.
const DefaultRetryWait = 60 * time.Second

// Client executes requests against a tracker API, retrying recoverable
// failures with a fixed delay and a bounded number of attempts.
//
// A Client holds no mutable state after construction.
type Client struct {
	http        *http.Client
	retry       *retryablehttp.Client
	baseURL     *url.URL
	serviceName string
	maxAttempts int
	retryWait   time.Duration
	logger      *slog.Logger
	metrics     *Metrics

	// beforeRequest is called before each attempt (for auth headers, etc.)
	beforeRequest func(req *http.Request)
}

// ClientConfig holds configuration for Client.
type ClientConfig struct {
	// Client is the underlying HTTP client. Defaults to a pooled
	// go-cleanhttp client with DefaultTimeout.
	Client *http.Client

	// BaseURL is the absolute URL every relative endpoint resolves against.
	BaseURL string

	// ServiceName names the integration in errors and logs.
	ServiceName string

	// MaxAttempts defaults to DefaultMaxAttempts.
	MaxAttempts int

	// RetryWait defaults to DefaultRetryWait.
	RetryWait time.Duration

	BeforeRequest func(req *http.Request)

	// Logger receives per-attempt logs. Defaults to discarding.
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *Metrics
}

// Request describes one logical operation for Execute.
type Request struct {
	Method string

	// URL is absolute, or relative to the client's base URL.
	URL string

	Body        []byte
	ContentType string

	// OKStatuses lists the status codes that count as success.
	// Defaults to 200 only.
	OKStatuses []int
}

// Response is the terminal response of a successful operation.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewClient validates the configuration and creates a Client.
// A malformed base URL fails with a *ConfigError before any network activity.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := ParseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		http:          cfg.Client,
		baseURL:       base,
		serviceName:   cfg.ServiceName,
		maxAttempts:   cfg.MaxAttempts,
		retryWait:     cfg.RetryWait,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		beforeRequest: cfg.BeforeRequest,
	}

	if c.http == nil {
		c.http = cleanhttp.DefaultPooledClient()
		c.http.Timeout = DefaultTimeout
	}
	if c.serviceName == "" {
		c.serviceName = "api"
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.retryWait <= 0 {
		c.retryWait = DefaultRetryWait
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	c.retry = retryablehttp.NewClient()
	c.retry.HTTPClient = c.http
	c.retry.Logger = nil
	c.retry.RetryMax = c.maxAttempts - 1
	c.retry.RetryWaitMin = c.retryWait
	c.retry.RetryWaitMax = c.retryWait
	c.retry.CheckRetry = c.checkRetry
	c.retry.Backoff = c.backoff
	c.retry.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.retry.RequestLogHook = c.logAttempt

	return c, nil
}

// ParseBaseURL parses raw as an absolute URL with a scheme and a host.
// The returned URL's path always ends in "/" so relative references
// resolve beneath it.
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &ConfigError{Field: "base url", Value: raw, Reason: err.Error()}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &ConfigError{Field: "base url", Value: raw, Reason: "scheme and host are required"}
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// RetryWait returns the fixed wait between attempts.
func (c *Client) RetryWait() time.Duration {
	return c.retryWait
}

// MaxAttempts returns the retry budget.
func (c *Client) MaxAttempts() int {
	return c.maxAttempts
}

// ResolveURL resolves ref against the base URL. Absolute refs are returned unchanged.
func (c *Client) ResolveURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	return c.baseURL.ResolveReference(u).String(), nil
}

// Execute performs req, retrying every non-accepted status except 401 and
// every transport error until it succeeds or the retry budget is spent.
//
// A 401 fails at once with *AuthError. Exhaustion fails with
// *ExhaustedRetriesError carrying the last status and body. Canceling ctx
// aborts the wait between attempts.
func (c *Client) Execute(ctx context.Context, r Request) (*Response, error) {
	endpoint, err := c.ResolveURL(r.URL)
	if err != nil {
		return nil, err
	}

	st := &attemptState{
		method:   r.Method,
		endpoint: endpoint,
		accept:   r.OKStatuses,
	}
	if len(st.accept) == 0 {
		st.accept = []int{http.StatusOK}
	}
	ctx = context.WithValue(ctx, attemptStateKey{}, st)

	var raw any
	if r.Body != nil {
		raw = r.Body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, r.Method, endpoint, raw)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	if c.beforeRequest != nil {
		c.beforeRequest(req.Request)
	}

	resp, doErr := c.retry.Do(req)
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}

	switch {
	case st.unauthorized:
		c.metrics.observeOutcome(r.Method, OutcomeUnauthorized)
		c.log(ctx).ErrorContext(ctx, "credential rejected, not retrying",
			"service", c.serviceName, "method", r.Method, "url", endpoint,
			"status", st.status, "body", string(st.body))
		return nil, &AuthError{
			Service:    c.serviceName,
			Endpoint:   endpoint,
			StatusCode: st.status,
			Body:       st.body,
		}

	case ctx.Err() != nil:
		c.metrics.observeOutcome(r.Method, OutcomeCanceled)
		return nil, fmt.Errorf("%s %s: %w", r.Method, endpoint, ctx.Err())

	case doErr == nil && resp != nil && slices.Contains(st.accept, resp.StatusCode):
		c.metrics.observeOutcome(r.Method, OutcomeSuccess)
		if st.attempts > 1 {
			c.log(ctx).InfoContext(ctx, "request succeeded after retry",
				"service", c.serviceName, "method", r.Method, "url", endpoint,
				"status", resp.StatusCode, "attempts", st.attempts)
		} else {
			c.log(ctx).DebugContext(ctx, "request succeeded",
				"service", c.serviceName, "method", r.Method, "url", endpoint,
				"status", resp.StatusCode)
		}
		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       st.body,
		}, nil
	}

	c.metrics.observeOutcome(r.Method, OutcomeExhausted)
	c.log(ctx).ErrorContext(ctx, "giving up",
		"service", c.serviceName, "method", r.Method, "url", endpoint,
		"attempts", st.attempts, "status", st.status, "body", string(st.body))
	return nil, &ExhaustedRetriesError{
		Service:    c.serviceName,
		Method:     r.Method,
		Endpoint:   endpoint,
		Attempts:   st.attempts,
		StatusCode: st.status,
		Body:       st.body,
		Err:        st.err,
	}
}

// Get performs a GET that succeeds only on 200.
func (c *Client) Get(ctx context.Context, ref string) (*Response, error) {
	return c.Execute(ctx, Request{Method: http.MethodGet, URL: ref})
}

// GetJSON performs a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, ref string, out any) error {
	resp, err := c.Get(ctx, ref)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.serviceName, err)
	}
	return nil
}

// Put sends body as JSON and succeeds on 200 or 201.
// It returns the terminal status code.
func (c *Client) Put(ctx context.Context, ref string, body any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal request body: %w", err)
	}

	resp, err := c.Execute(ctx, Request{
		Method:      http.MethodPut,
		URL:         ref,
		Body:        data,
		ContentType: "application/json",
		OKStatuses:  []int{http.StatusOK, http.StatusCreated},
	})
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

// PostOnce sends a single POST without retrying and returns the response
// whatever its status. Only transport failures are returned as errors.
func (c *Client) PostOnce(ctx context.Context, ref, contentType string, body []byte) (*Response, error) {
	endpoint, err := c.ResolveURL(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.beforeRequest != nil {
		c.beforeRequest(req)
	}

	c.log(ctx).DebugContext(ctx, "sending request",
		"service", c.serviceName, "method", http.MethodPost, "url", endpoint, "bytes", len(body))

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observeAttempt(http.MethodPost, 0)
		return nil, fmt.Errorf("%s request failed: %w", c.serviceName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.serviceName, err)
	}
	c.metrics.observeAttempt(http.MethodPost, resp.StatusCode)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// attemptState is the bookkeeping of one Execute call. It travels on the
// request context so the shared retry client stays stateless.
type attemptState struct {
	method       string
	endpoint     string
	accept       []int
	attempts     int
	status       int
	body         []byte
	err          error
	unauthorized bool
}

type attemptStateKey struct{}

// checkRetry implements retryablehttp.CheckRetry.
func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	st, ok := ctx.Value(attemptStateKey{}).(*attemptState)
	if !ok {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	st.attempts++

	if err != nil {
		st.status, st.body, st.err = 0, nil, err
		c.metrics.observeAttempt(st.method, 0)
		c.logRetry(ctx, st)
		return true, nil
	}

	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	st.status, st.body, st.err = resp.StatusCode, body, readErr
	c.metrics.observeAttempt(st.method, resp.StatusCode)

	if readErr == nil && slices.Contains(st.accept, resp.StatusCode) {
		return false, nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		st.unauthorized = true
		return false, ErrUnauthorized
	}

	c.logRetry(ctx, st)
	return true, nil
}

// backoff implements retryablehttp.Backoff with a fixed delay.
func (c *Client) backoff(_, _ time.Duration, _ int, _ *http.Response) time.Duration {
	c.metrics.observeWait(c.retryWait)
	return c.retryWait
}

func (c *Client) logAttempt(_ retryablehttp.Logger, req *http.Request, retry int) {
	c.log(req.Context()).DebugContext(req.Context(), "sending request",
		"service", c.serviceName, "method", req.Method, "url", req.URL.String(), "attempt", retry+1)
}

func (c *Client) logRetry(ctx context.Context, st *attemptState) {
	if st.attempts >= c.maxAttempts {
		return
	}
	attrs := []any{
		"service", c.serviceName,
		"method", st.method,
		"url", st.endpoint,
		"attempt", st.attempts,
		"max_attempts", c.maxAttempts,
		"wait", c.retryWait,
	}
	if st.err != nil {
		attrs = append(attrs, "error", st.err)
	}
	if st.status != 0 {
		attrs = append(attrs, "status", st.status, "body", string(st.body))
	}
	c.log(ctx).WarnContext(ctx, "request failed, waiting to retry", attrs...)
}

type logAttrsKey struct{}

// WithLogAttrs returns a copy of ctx whose requests add attrs to every log
// record they emit. Attributes accumulate across nested calls.
func WithLogAttrs(ctx context.Context, attrs ...any) context.Context {
	prev, _ := ctx.Value(logAttrsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, logAttrsKey{}, merged)
}

// LoggerFrom returns base with the attributes added to ctx by WithLogAttrs.
func LoggerFrom(ctx context.Context, base *slog.Logger) *slog.Logger {
	if attrs, ok := ctx.Value(logAttrsKey{}).([]any); ok && len(attrs) > 0 {
		return base.With(attrs...)
	}
	return base
}

func (c *Client) log(ctx context.Context) *slog.Logger {
	return LoggerFrom(ctx, c.logger)
}
