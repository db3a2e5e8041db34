// Package client provides an HTTP client facade with request cancellation
// and a tiered response cache.
//
// Use request.Definition to define immutable requests and the Dispatch
// method to execute them: Dispatch returns a deterministic request
// identifier synchronously and delivers the outcome to the caller's
// continuation exactly once, on a single completion goroutine.
// An in-flight request can be cancelled through the identifier,
// the continuation then receives a CancelledError.
//
// Before reaching the network a dispatch consults the cache store
// (memory tier, then disk tier) according to the request caching policy,
// and populates it after a successful fetch.
//
// The thin per-verb entry points (Get, Post, Put, Patch, Delete,
// DownloadImage, DownloadData and the Cancel* family) are layered over
// Dispatch, see facade.go.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"

	// Register decoders for the common image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/sirupsen/logrus"

	"github.com/webfetch/go-client/pkg/cache"
	"github.com/webfetch/go-client/pkg/client/decode"
	"github.com/webfetch/go-client/pkg/encode"
	"github.com/webfetch/go-client/pkg/registry"
	"github.com/webfetch/go-client/pkg/request"
)

// Result is the outcome of one dispatch, delivered to the continuation exactly once.
type Result struct {
	// Value is the decoded object: a JSON value, an image.Image or raw []byte.
	Value any
	// Response is the raw transport metadata, nil for cache hits and
	// failures that never reached the transport.
	Response *http.Response
	// Err is nil on success, otherwise exactly one of EncodingError,
	// TransportError, CancelledError or DecodingError.
	Err error
}

// Callback is the caller's continuation.
type Callback func(result Result)

// Client is the dispatch engine and the owner of the cache store and the
// in-flight request registry. Configuration methods return a modified copy,
// the live state (cache, registry, completion loop) is shared between copies.
//
// The zero value is not usable, use New.
type Client struct {
	transport    http.RoundTripper
	baseURL      *url.URL
	header       http.Header
	traceFactory TraceFactory
	logger       logrus.FieldLogger
	cache        *cache.Store
	registry     *registry.Registry
	completions  *completionLoop
}

// New creates a new Client with an in-memory cache and the default transport.
func New() Client {
	c := Client{
		transport:   DefaultTransport(),
		header:      make(http.Header),
		logger:      discardLogger(),
		cache:       cache.NewStore(),
		registry:    registry.New(),
		completions: newCompletionLoop(),
	}
	c.header.Set("User-Agent", "webfetch-go-client")
	c.header.Set("Accept-Encoding", "gzip, br")
	return c
}

// WithBaseURL returns a clone of the Client with base url set.
// Request paths are resolved relative to it.
func (c Client) WithBaseURL(baseURLStr string) Client {
	baseURL, err := url.Parse(strings.TrimRight(baseURLStr, "/"))
	if err != nil {
		panic(fmt.Errorf(`base url "%s" is not valid: %w`, baseURLStr, err))
	}
	// Normalize, so baseURL.ResolveReference(...) will work.
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/"
	c.baseURL = baseURL
	return c
}

// WithUserAgent returns a clone of the Client with user agent set.
func (c Client) WithUserAgent(v string) Client {
	c.header = c.header.Clone()
	c.header.Set("User-Agent", v)
	return c
}

// WithHeader returns a clone of the Client with common header set.
func (c Client) WithHeader(key, value string) Client {
	c.header = c.header.Clone()
	c.header.Set(key, value)
	return c
}

// WithHeaders returns a clone of the Client with common headers set.
func (c Client) WithHeaders(headers map[string]string) Client {
	c.header = c.header.Clone()
	for k, v := range headers {
		c.header.Set(k, v)
	}
	return c
}

// WithTransport returns a clone of the Client with a HTTP transport set.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// WithCache returns a clone of the Client with the cache store set.
func (c Client) WithCache(store *cache.Store) Client {
	if store == nil {
		panic(fmt.Errorf("cache store cannot be nil"))
	}
	c.cache = store
	return c
}

// WithLogger returns a clone of the Client with the logger set.
func (c Client) WithLogger(logger logrus.FieldLogger) Client {
	if logger == nil {
		panic(fmt.Errorf("logger cannot be nil"))
	}
	c.logger = logger
	return c
}

// WithTrace returns a clone of the Client with Trace hooks set.
func (c Client) WithTrace(fn TraceFactory) Client {
	c.traceFactory = fn
	return c
}

// Cache returns the cache store owned by the client.
func (c Client) Cache() *cache.Store {
	return c.cache
}

// Close cancels all in-flight requests and stops the completion loop after
// every pending continuation has been delivered.
func (c Client) Close() {
	c.registry.CancelAll()
	c.completions.stop()
}

// Dispatch executes the request definition asynchronously and returns its
// deterministic identifier. The continuation fn is invoked exactly once with
// either the decoded object or a failure, including explicit cancellation.
//
// All failures are delivered through fn, never returned: a malformed path
// yields an empty identifier and an EncodingError continuation.
func (c Client) Dispatch(ctx context.Context, def request.Definition, fn Callback) string {
	// Method cannot be called on an empty value
	if c.transport == nil {
		panic(fmt.Errorf("client value is not initialized"))
	}
	method := def.Method()
	deliver := c.deliverOnce(fn)

	baseURL, err := c.composeURL(def.Path())
	if err != nil {
		deliver(Result{Err: &EncodingError{Err: err}})
		return ""
	}
	id := registry.IdentifierFor(method, baseURL.String())

	// Serve from the cache without any network activity or registry entry.
	if def.CachePolicy() != request.CacheNone {
		if obj, found := c.cache.Get(def.CacheName(), def.ResponseType()); found {
			deliver(Result{Value: obj})
			return id
		}
	}

	payload, err := encode.Encode(def.ParamType(), def.Params(), def.Parts())
	if err != nil {
		deliver(Result{Err: &EncodingError{Err: err}})
		return id
	}

	// Form values go to the query string for body-less verbs,
	// to a form-encoded body for everything else.
	reqURL := baseURL.String()
	if len(payload.Query) > 0 {
		if method == http.MethodGet || method == http.MethodDelete {
			reqURL = composeQuery(baseURL, payload.Query)
		} else {
			payload.Body = []byte(payload.Query.Encode())
			payload.ContentType = "application/x-www-form-urlencoded"
		}
	}

	reqCtx, cancel := context.WithCancel(ctx)
	token := c.registry.Register(id, cancel)
	go c.execute(reqCtx, cancel, id, token, def, reqURL, payload, deliver)
	return id
}

// execute runs the transport call and delivers the outcome.
// Runs in its own goroutine, one per dispatched request.
func (c Client) execute(ctx context.Context, cancel context.CancelFunc, id string, token uint64, def request.Definition, reqURL string, payload encode.Payload, deliver func(Result)) {
	defer cancel()

	// Init trace
	var trace *Trace
	if c.traceFactory != nil {
		trace = c.traceFactory()
		if trace != nil {
			ctx = httptrace.WithClientTrace(ctx, &trace.ClientTrace)
			if trace.GotRequest != nil {
				trace.GotRequest(ctx, def)
			}
		}
	}

	out := c.roundTrip(ctx, def, reqURL, payload, trace)

	if trace != nil && trace.RequestProcessed != nil {
		trace.RequestProcessed(out.Value, out.Err)
	}

	// A cancellation observed at any point wins over the transport outcome,
	// and deregistering before delivery closes the race with a concurrent
	// Cancel call: once the entry is gone, Cancel is a no-op returning false.
	c.registry.Deregister(id, token)
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		out = Result{Err: &CancelledError{Err: err}}
	}
	deliver(out)
}

func (c Client) roundTrip(ctx context.Context, def request.Definition, reqURL string, payload encode.Payload, trace *Trace) Result {
	var body io.Reader
	if len(payload.Body) > 0 {
		body = bytes.NewReader(payload.Body)
	}
	req, err := http.NewRequestWithContext(ctx, def.Method(), reqURL, body)
	if err != nil {
		return Result{Err: &EncodingError{Err: err}}
	}

	// Global headers
	for k, values := range c.header {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}

	// Request headers
	for k, values := range def.Header() {
		req.Header.Del(k) // clear global values
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if payload.ContentType != "" {
		req.Header.Set("Content-Type", payload.ContentType)
	}

	// Send request, the wrapped transport adds trace hooks
	nativeClient := http.Client{Transport: roundTripper{trace: trace, wrapped: c.transport}}
	res, err := nativeClient.Do(req)
	if err != nil {
		return Result{Err: classifySendError(err)}
	}
	defer res.Body.Close()

	// Process content encoding
	bodyReader, err := decode.Decode(res.Body, res.Header.Get("Content-Encoding"))
	if err != nil {
		return Result{Response: res, Err: &DecodingError{Err: err}}
	}
	raw, err := io.ReadAll(bodyReader)
	if err != nil {
		return Result{Response: res, Err: &TransportError{StatusCode: res.StatusCode, Err: fmt.Errorf("cannot read response body: %w", err)}}
	}

	// Generic HTTP error
	if res.StatusCode > 399 {
		return Result{Response: res, Err: &TransportError{
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf(`request %s "%s" failed`, def.Method(), reqURL),
		}}
	}

	obj, err := decodeResult(def.ResponseType(), res.Header.Get("Content-Type"), raw)
	if err != nil {
		return Result{Response: res, Err: &DecodingError{Err: err}}
	}

	if def.CachePolicy() != request.CacheNone {
		if err := c.cache.Put(def.CacheName(), def.ResponseType(), obj, def.CachePolicy()); err != nil {
			// Cache failures never fail the request.
			c.logger.WithError(err).Warnf(`cannot cache response of %s "%s"`, def.Method(), reqURL)
		}
	}
	return Result{Value: obj, Response: res}
}

// deliverOnce wraps the continuation with the single-delivery guarantee
// and routes it through the completion loop.
func (c Client) deliverOnce(fn Callback) func(Result) {
	delivered := false
	return func(res Result) {
		if delivered {
			return
		}
		delivered = true
		c.completions.deliver(func() {
			fn(res)
		})
	}
}

// composeURL resolves the request path against the client base URL.
// A malformed path is a regular error, it must never crash the process.
func (c Client) composeURL(pathStr string) (*url.URL, error) {
	u, err := url.Parse(pathStr)
	if err != nil {
		return nil, fmt.Errorf(`path "%s" is not valid: %w`, pathStr, err)
	}
	if c.baseURL != nil && !u.IsAbs() {
		clone := *u
		clone.Path = strings.TrimLeft(clone.Path, "/")
		return c.baseURL.ResolveReference(&clone), nil
	}
	return u, nil
}

// composeQuery appends encoded parameters to the URL query string.
// The request identifier is computed before this step, so cancellation by
// verb and path keeps working for parametrized requests.
func composeQuery(u *url.URL, query url.Values) string {
	if len(query) == 0 {
		return u.String()
	}
	clone := *u
	merged := clone.Query()
	for k, values := range query {
		for _, v := range values {
			merged.Set(k, v)
		}
	}
	clone.RawQuery = merged.Encode()
	return clone.String()
}

func classifySendError(err error) error {
	if errors.Is(err, context.Canceled) {
		return &CancelledError{Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = fmt.Errorf(`request %s "%s" failed: %w`, strings.ToUpper(urlErr.Op), urlErr.URL, urlErr.Err)
	}
	return &TransportError{Err: err}
}

func decodeResult(responseType request.ResponseType, contentType string, raw []byte) (any, error) {
	switch responseType {
	case request.ResponseTypeJSON:
		if contentType != "" {
			// Strip parameters, e.g. "; charset=utf-8"
			if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
				contentType = mediaType
			}
			if !isJSONContentType(contentType) {
				return nil, fmt.Errorf(`expected JSON response, got content type "%s"`, contentType)
			}
		}
		var obj any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("cannot decode JSON result: %w", err)
		}
		return obj, nil
	case request.ResponseTypeImage:
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("cannot decode image: %w", err)
		}
		return img, nil
	default:
		return raw, nil
	}
}

// roundTripper wraps a http.RoundTripper and adds trace functionality.
type roundTripper struct {
	trace   *Trace
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.trace != nil && rt.trace.HTTPRequestStart != nil {
		rt.trace.HTTPRequestStart(req)
	}
	res, err := rt.wrapped.RoundTrip(req)
	if rt.trace != nil && rt.trace.HTTPRequestDone != nil {
		rt.trace.HTTPRequestDone(res, err)
	}
	return res, err
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
