package request

import (
	"fmt"
	"net/http"
)

// Definition is an immutable HTTP request definition.
// Each With* method returns a modified copy, the original value is never changed.
type Definition struct {
	method       string
	path         string
	paramType    ParamType
	params       Params
	parts        []Part
	responseType ResponseType
	cachePolicy  CachePolicy
	cacheName    string
	header       http.Header
}

// New creates an empty request definition.
// Defaults: JSON parameter encoding, JSON response, no caching.
func New() Definition {
	return Definition{
		paramType:    ParamTypeJSON,
		responseType: ResponseTypeJSON,
		cachePolicy:  CacheNone,
		header:       make(http.Header),
	}
}

// WithGet is shortcut for WithMethod(http.MethodGet).WithPath(path).
func (d Definition) WithGet(path string) Definition {
	return d.WithMethod(http.MethodGet).WithPath(path)
}

// WithPost is shortcut for WithMethod(http.MethodPost).WithPath(path).
func (d Definition) WithPost(path string) Definition {
	return d.WithMethod(http.MethodPost).WithPath(path)
}

// WithPut is shortcut for WithMethod(http.MethodPut).WithPath(path).
func (d Definition) WithPut(path string) Definition {
	return d.WithMethod(http.MethodPut).WithPath(path)
}

// WithPatch is shortcut for WithMethod(http.MethodPatch).WithPath(path).
func (d Definition) WithPatch(path string) Definition {
	return d.WithMethod(http.MethodPatch).WithPath(path)
}

// WithDelete is shortcut for WithMethod(http.MethodDelete).WithPath(path).
func (d Definition) WithDelete(path string) Definition {
	return d.WithMethod(http.MethodDelete).WithPath(path)
}

// WithMethod method sets the HTTP method.
func (d Definition) WithMethod(method string) Definition {
	d.method = method
	return d
}

// WithPath method sets the request path, absolute or relative to the client base URL.
func (d Definition) WithPath(path string) Definition {
	d.path = path
	return d
}

// WithParams method sets the parameter bag.
func (d Definition) WithParams(params Params) Definition {
	d.params = params
	return d
}

// WithParamType method sets the parameter encoding strategy.
func (d Definition) WithParamType(paramType ParamType) Definition {
	d.paramType = paramType
	return d
}

// WithParts method sets multipart binary parts.
func (d Definition) WithParts(parts []Part) Definition {
	d.parts = parts
	return d
}

// WithResponseType method sets the decoding target for the response payload.
func (d Definition) WithResponseType(responseType ResponseType) Definition {
	d.responseType = responseType
	return d
}

// WithCachePolicy method sets the caching policy.
func (d Definition) WithCachePolicy(policy CachePolicy) Definition {
	d.cachePolicy = policy
	return d
}

// WithCacheName method overrides the cache name derived from the path.
func (d Definition) WithCacheName(name string) Definition {
	d.cacheName = name
	return d
}

// AndHeader method sets a single header field and its value.
func (d Definition) AndHeader(header string, value string) Definition {
	d.header = d.header.Clone()
	d.header.Set(header, value)
	return d
}

// Method returns the HTTP method.
func (d Definition) Method() string {
	if d.method == "" {
		panic(fmt.Errorf("request method is not set"))
	}
	return d.method
}

// Path returns the request path.
func (d Definition) Path() string {
	if d.path == "" {
		panic(fmt.Errorf("request path is not set"))
	}
	return d.path
}

// Params returns the parameter bag, nil if none was set.
func (d Definition) Params() Params {
	return d.params
}

// Parts returns the multipart binary parts, nil if none were set.
func (d Definition) Parts() []Part {
	return d.parts
}

// ParamType returns the effective parameter encoding strategy:
// non-empty parts force multipart encoding regardless of the configured type,
// GET/DELETE parameters always go to the query string,
// and a GET/DELETE without parameters is forced to no encoding at all.
func (d Definition) ParamType() ParamType {
	if len(d.parts) > 0 {
		return ParamTypeMultipart
	}
	if isQueryOnlyMethod(d.method) {
		if d.params == nil {
			return ParamTypeNone
		}
		return ParamTypeForm
	}
	return d.paramType
}

// ResponseType returns the decoding target for the response payload.
func (d Definition) ResponseType() ResponseType {
	return d.responseType
}

// CachePolicy returns the caching policy.
func (d Definition) CachePolicy() CachePolicy {
	return d.cachePolicy
}

// CacheName returns the explicit cache name override, or the request path.
func (d Definition) CacheName() string {
	if d.cacheName != "" {
		return d.cacheName
	}
	return d.path
}

// Header returns the request header overrides.
func (d Definition) Header() http.Header {
	return d.header
}
