package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-identity/core"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

const contentTypeJSON = "application/json"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the HTTP transport used by sessions and service bindings.
type Client struct {
	HTTP                 HTTPDoer
	MaxResponseBodyBytes int64

	logger  core.Logger
	metrics core.MetricsRecorder
	parser  core.ErrorObjectParser
}

type ClientOption func(*clientBuilder)

type clientBuilder struct {
	http           HTTPDoer
	maxBodyBytes   int64
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
}

func WithHTTPClient(client HTTPDoer) ClientOption {
	return func(b *clientBuilder) {
		b.http = client
	}
}

func WithLogger(logger core.Logger) ClientOption {
	return func(b *clientBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) ClientOption {
	return func(b *clientBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) ClientOption {
	return func(b *clientBuilder) {
		b.metrics = recorder
	}
}

func WithMaxResponseBodyBytes(limit int64) ClientOption {
	return func(b *clientBuilder) {
		b.maxBodyBytes = limit
	}
}

func NewClient(opts ...ClientOption) *Client {
	builder := clientBuilder{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}
	if builder.http == nil {
		builder.http = &http.Client{Timeout: defaultClientTimeout}
	}
	if builder.maxBodyBytes <= 0 {
		builder.maxBodyBytes = defaultResponseBodyLimit
	}
	if builder.metrics == nil {
		builder.metrics = core.NopMetricsRecorder{}
	}
	logger := core.NamedLogger(core.ComponentTransport, builder.loggerProvider, builder.logger)
	return &Client{
		HTTP:                 builder.http,
		MaxResponseBodyBytes: builder.maxBodyBytes,
		logger:               logger,
		metrics:              builder.metrics,
		parser:               core.ErrorObjectParser{Logger: logger},
	}
}

func (c *Client) Get(ctx context.Context, path string, opts core.RequestOptions) (*http.Response, error) {
	return c.Do(ctx, core.Request{Method: http.MethodGet, Path: path, Options: opts})
}

func (c *Client) Head(ctx context.Context, path string, opts core.RequestOptions) (*http.Response, error) {
	return c.Do(ctx, core.Request{Method: http.MethodHead, Path: path, Options: opts})
}

func (c *Client) Delete(ctx context.Context, path string, opts core.RequestOptions) (*http.Response, error) {
	return c.Do(ctx, core.Request{Method: http.MethodDelete, Path: path, Options: opts})
}

func (c *Client) Post(ctx context.Context, path string, body core.Body, opts core.RequestOptions) (*http.Response, error) {
	return c.Do(ctx, core.Request{Method: http.MethodPost, Path: path, Body: body, Options: opts})
}

func (c *Client) Put(ctx context.Context, path string, body core.Body, opts core.RequestOptions) (*http.Response, error) {
	return c.Do(ctx, core.Request{Method: http.MethodPut, Path: path, Body: body, Options: opts})
}

func (c *Client) Patch(ctx context.Context, path string, body core.Body, opts core.RequestOptions) (*http.Response, error) {
	return c.Do(ctx, core.Request{Method: http.MethodPatch, Path: path, Body: body, Options: opts})
}

func (c *Client) GetCancellable(ctx context.Context, path string, opts core.RequestOptions) *core.PendingRequest {
	return c.DoCancellable(ctx, core.Request{Method: http.MethodGet, Path: path, Options: opts})
}

func (c *Client) HeadCancellable(ctx context.Context, path string, opts core.RequestOptions) *core.PendingRequest {
	return c.DoCancellable(ctx, core.Request{Method: http.MethodHead, Path: path, Options: opts})
}

func (c *Client) DeleteCancellable(ctx context.Context, path string, opts core.RequestOptions) *core.PendingRequest {
	return c.DoCancellable(ctx, core.Request{Method: http.MethodDelete, Path: path, Options: opts})
}

func (c *Client) PostCancellable(ctx context.Context, path string, body core.Body, opts core.RequestOptions) *core.PendingRequest {
	return c.DoCancellable(ctx, core.Request{Method: http.MethodPost, Path: path, Body: body, Options: opts})
}

func (c *Client) PutCancellable(ctx context.Context, path string, body core.Body, opts core.RequestOptions) *core.PendingRequest {
	return c.DoCancellable(ctx, core.Request{Method: http.MethodPut, Path: path, Body: body, Options: opts})
}

func (c *Client) PatchCancellable(ctx context.Context, path string, body core.Body, opts core.RequestOptions) *core.PendingRequest {
	return c.DoCancellable(ctx, core.Request{Method: http.MethodPatch, Path: path, Body: body, Options: opts})
}

// DoCancellable threads a fresh cancellation token into req.
func (c *Client) DoCancellable(ctx context.Context, req core.Request) *core.PendingRequest {
	return core.StartCancellable(ctx, func(ctx context.Context, token *core.CancellationToken) (*http.Response, error) {
		scoped := req
		scoped.Options = req.Options.Clone()
		scoped.Options.Cancellation = token
		return c.Do(ctx, scoped)
	})
}

// Do sends req. Non-success responses are consumed and returned as
// *core.APIError; every other failure is a *core.LocalError or an APIError
// with status 500.
func (c *Client) Do(ctx context.Context, req core.Request) (resp *http.Response, err error) {
	if c == nil || c.HTTP == nil {
		return nil, core.NewLocalError(core.IdentityErrorInternal, "transport: client requires an http doer")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	startedAt := time.Now()
	defer func() {
		c.observe(ctx, method, startedAt, resp, err)
	}()

	token := req.Options.Cancellation
	if token.IsCanceled() {
		return nil, core.NewCanceledError(context.Canceled)
	}

	target, err := BuildURL(req.Options.Host, req.Path, req.Options.Query)
	if err != nil {
		return nil, err
	}
	headers := core.MergeHeaders(req.Options.Headers)
	payload, err := encodeBody(req.Body, headers)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	if req.Options.DebugEnabled() {
		c.trace(ctx, requestID, method, target, req)
	}

	requestCtx, release := requestContext(ctx, token)
	httpReq, err := http.NewRequestWithContext(requestCtx, method, target, payload)
	if err != nil {
		release()
		return nil, core.AsTypedError(err)
	}
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	httpRes, err := c.HTTP.Do(httpReq)
	if err != nil {
		release()
		return nil, mapFailure(err, token)
	}
	if httpRes.StatusCode >= 200 && httpRes.StatusCode < 300 {
		httpRes.Body = &releasingBody{ReadCloser: httpRes.Body, release: release}
		return httpRes, nil
	}
	defer release()
	return nil, c.responseError(httpRes, token)
}

// requestContext derives the context of one exchange. Signaling token aborts
// it; release must run once the response body is no longer needed.
func requestContext(ctx context.Context, token *core.CancellationToken) (context.Context, func()) {
	requestCtx, cancel := context.WithCancel(ctx)
	if token == nil {
		return requestCtx, cancel
	}
	stop := context.AfterFunc(token.Context(), cancel)
	return requestCtx, func() {
		stop()
		cancel()
	}
}

type releasingBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}

func encodeBody(body core.Body, headers map[string]string) (io.Reader, error) {
	switch body.Kind() {
	case core.BodyJSON:
		data, err := json.Marshal(body.Value())
		if err != nil {
			return nil, core.NewLocalError(core.IdentityErrorInternal, "Unable to encode request body").WithCause(err)
		}
		if !core.HasHeader(headers, core.HeaderContentType) {
			headers[core.HeaderContentType] = contentTypeJSON
		}
		return bytes.NewReader(data), nil
	case core.BodyText:
		return strings.NewReader(body.Text()), nil
	case core.BodyBinary:
		return body.Reader(), nil
	case core.BodyMultipart:
		if contentType := body.ContentType(); contentType != "" && !core.HasHeader(headers, core.HeaderContentType) {
			headers[core.HeaderContentType] = contentType
		}
		return body.Reader(), nil
	default:
		return nil, nil
	}
}

func (c *Client) responseError(resp *http.Response, token *core.CancellationToken) error {
	defer resp.Body.Close()

	limit := c.MaxResponseBodyBytes
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return mapFailure(err, token)
	}
	return newResponseError(resp, raw, c.parser)
}

func (c *Client) observe(ctx context.Context, method string, startedAt time.Time, resp *http.Response, err error) {
	duration := time.Since(startedAt)
	status := "success"
	tags := map[string]string{"method": method}
	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	if err != nil {
		status = "failure"
		if apiErr, ok := err.(*core.APIError); ok {
			statusCode = apiErr.StatusCode
		}
		if core.IsCanceled(err) {
			status = "canceled"
		}
	}
	tags["status"] = status
	tags["status_code"] = strconv.Itoa(statusCode)

	c.metrics.IncCounter(ctx, "identity.transport.request.total", 1, tags)
	c.metrics.ObserveHistogram(ctx, "identity.transport.request.duration_ms", float64(duration.Milliseconds()), tags)

	args := []any{"method", method, "status", status, "status_code", statusCode, "duration_ms", duration.Milliseconds()}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	c.logger.WithContext(ctx).Debug("transport request completed", args...)
}

var _ core.Transport = (*Client)(nil)
