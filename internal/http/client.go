// Package http executes FreePBX API requests: it builds the URL, attaches
// credentials, applies the per-attempt timeout and retry policy, and hands
// back the raw response. Mapping failures to freepbx.Error is left to the
// callers.
package http

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

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/hyenergysolutions/freepbx-go/internal/constants"
	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

// TokenManager supplies bearer tokens for authenticated requests.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
}

// BasicAuth holds HTTP basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Request is a single API call. Path is appended to the client's base URL.
// At most one of Body (JSON encoded) and Form (URL encoded) may be set.
// Requests carrying BasicAuth skip the bearer token.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      interface{}
	Form      url.Values
	BasicAuth *BasicAuth
	Headers   map[string]string
}

// Response is the final response of a call, after retries.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// StatusError is returned with the Response when the final status code is
// not 2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", constants.ErrUnexpectedStatus, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return constants.ErrUnexpectedStatus
}

// Client is an HTTP client for the FreePBX API.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	tokenManager TokenManager
	logger       freepbx.Logger
	debug        bool
	userAgent    string
	interceptors *freepbx.InterceptorChain
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger freepbx.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig sets the total number of attempts and the fixed delay
// between them.
func WithRetryConfig(attempts int, wait time.Duration) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}

		c.httpClient.RetryMax = attempts - 1
		c.httpClient.RetryWaitMin = wait
		c.httpClient.RetryWaitMax = wait
	}
}

// WithTimeout bounds every attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithInterceptors runs chain around every request.
func WithInterceptors(chain *freepbx.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// NewClient creates a new HTTP client. tokenManager may be nil for
// unauthenticated calls.
func NewClient(baseURL string, tokenManager TokenManager, opts ...Option) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = constants.DefaultHTTPTimeout

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = constants.DefaultRetryAttempts - 1
	retryClient.RetryWaitMin = constants.DefaultRetryWait
	retryClient.RetryWaitMax = constants.DefaultRetryWait
	retryClient.CheckRetry = RetryPolicy
	retryClient.Backoff = fixedBackoff
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   retryClient,
		tokenManager: tokenManager,
		logger:       freepbx.NoopLogger{},
		userAgent:    constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	retryClient.Logger = &leveledLogger{logger: client.logger, debug: client.debug}
	retryClient.RequestLogHook = client.logAttempt

	return client
}

// RetryPolicy retries connection errors, timeouts and 5xx responses other
// than 501. 4xx responses are final.
func RetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode != http.StatusNotImplemented {
		return true, nil
	}

	return false, nil
}

func fixedBackoff(minWait, _ time.Duration, _ int, _ *http.Response) time.Duration {
	return minWait
}

// Do executes an HTTP request. A non-2xx final status returns both the
// Response and a *StatusError; a transport failure returns an error
// wrapping constants.ErrTransport. Interceptor errors wrap
// constants.ErrInterceptor. Token errors are returned unchanged.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var rawBody interface{}
	if len(body) > 0 {
		rawBody = body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, rawBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	err = c.authorize(ctx, req, httpReq)
	if err != nil {
		return nil, err
	}

	intercepted := &freepbx.Request{
		Method:  req.Method,
		Path:    req.Path,
		Headers: httpReq.Header,
		Body:    body,
	}

	err = c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrInterceptor, err)
	}

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
		})
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if httpResp != nil {
			_ = httpResp.Body.Close()
		}

		err = fmt.Errorf("%w: %s %s: %w", constants.ErrTransport, req.Method, req.Path, err)
		_ = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &freepbx.Response{Error: err})

		return nil, err
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		err = fmt.Errorf("%w: reading response body: %w", constants.ErrTransport, err)
		_ = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &freepbx.Response{
			StatusCode: httpResp.StatusCode,
			Error:      err,
		})

		return nil, err
	}

	response := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":   response.StatusCode,
			"url":      fullURL,
			"duration": time.Since(start).String(),
		})
	}

	var statusErr error
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		statusErr = &StatusError{StatusCode: response.StatusCode, Body: string(respBody)}
	}

	err = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &freepbx.Response{
		StatusCode: response.StatusCode,
		Headers:    response.Headers,
		Body:       respBody,
		Error:      statusErr,
	})

	if statusErr != nil {
		return response, statusErr
	}

	if err != nil {
		return response, fmt.Errorf("%w: %w", constants.ErrInterceptor, err)
	}

	return response, nil
}

func (c *Client) authorize(ctx context.Context, req *Request, httpReq *retryablehttp.Request) error {
	if req.BasicAuth != nil {
		httpReq.SetBasicAuth(req.BasicAuth.Username, req.BasicAuth.Password)

		return nil
	}

	if c.tokenManager == nil {
		return nil
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return err
	}

	httpReq.Header.Set("Authorization", "Bearer "+token)

	return nil
}

func encodeBody(req *Request) ([]byte, string, error) {
	switch {
	case req.Form != nil && req.Body != nil:
		return nil, "", constants.ErrUnsupportedBody
	case req.Form != nil:
		return []byte(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	case req.Body != nil:
		if raw, ok := req.Body.([]byte); ok {
			return raw, "application/json", nil
		}

		var buf bytes.Buffer

		err := json.NewEncoder(&buf).Encode(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}

		return bytes.TrimRight(buf.Bytes(), "\n"), "application/json", nil
	default:
		return nil, "", nil
	}
}

func (c *Client) logAttempt(_ retryablehttp.Logger, req *http.Request, attempt int) {
	if attempt == 0 {
		return
	}

	c.logger.Warn("Retrying HTTP request", map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL.String(),
		"attempt": attempt + 1,
	})
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPut,
		Path:   path,
		Body:   body,
	})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPatch,
		Path:   path,
		Body:   body,
	})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodDelete,
		Path:   path,
	})
}
