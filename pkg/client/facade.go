package client

import (
	"context"
	"image"

	"github.com/webfetch/go-client/pkg/registry"
	"github.com/webfetch/go-client/pkg/request"
)

// Get dispatches a GET request for a JSON result.
// Parameters, if any, are encoded into the query string.
func (c Client) Get(ctx context.Context, path string, params request.Params, policy request.CachePolicy, fn Callback) string {
	def := request.New().
		WithGet(path).
		WithParams(params).
		WithCachePolicy(policy)
	return c.Dispatch(ctx, def, fn)
}

// Post dispatches a POST request for a JSON result.
func (c Client) Post(ctx context.Context, path string, params request.Params, paramType request.ParamType, fn Callback) string {
	def := request.New().
		WithPost(path).
		WithParams(params).
		WithParamType(paramType)
	return c.Dispatch(ctx, def, fn)
}

// Put dispatches a PUT request for a JSON result.
func (c Client) Put(ctx context.Context, path string, params request.Params, paramType request.ParamType, fn Callback) string {
	def := request.New().
		WithPut(path).
		WithParams(params).
		WithParamType(paramType)
	return c.Dispatch(ctx, def, fn)
}

// Patch dispatches a PATCH request for a JSON result.
func (c Client) Patch(ctx context.Context, path string, params request.Params, paramType request.ParamType, fn Callback) string {
	def := request.New().
		WithPatch(path).
		WithParams(params).
		WithParamType(paramType)
	return c.Dispatch(ctx, def, fn)
}

// Delete dispatches a DELETE request for a JSON result.
// Parameters, if any, are encoded into the query string.
func (c Client) Delete(ctx context.Context, path string, params request.Params, fn Callback) string {
	def := request.New().
		WithDelete(path).
		WithParams(params)
	return c.Dispatch(ctx, def, fn)
}

// Upload dispatches a POST request with multipart form data parts.
func (c Client) Upload(ctx context.Context, path string, params request.Params, parts []request.Part, fn Callback) string {
	def := request.New().
		WithPost(path).
		WithParams(params).
		WithParts(parts)
	return c.Dispatch(ctx, def, fn)
}

// DownloadImage dispatches a GET request for a decoded image.
func (c Client) DownloadImage(ctx context.Context, path string, policy request.CachePolicy, fn Callback) string {
	def := request.New().
		WithGet(path).
		WithResponseType(request.ResponseTypeImage).
		WithCachePolicy(policy)
	return c.Dispatch(ctx, def, fn)
}

// DownloadData dispatches a GET request for a raw binary payload.
func (c Client) DownloadData(ctx context.Context, path string, policy request.CachePolicy, fn Callback) string {
	def := request.New().
		WithGet(path).
		WithResponseType(request.ResponseTypeData).
		WithCachePolicy(policy)
	return c.Dispatch(ctx, def, fn)
}

// CancelGet cancels the most recent in-flight GET request for the path.
// It returns false when no such request is in flight.
func (c Client) CancelGet(path string) bool {
	return c.cancelByPath("GET", path)
}

// CancelPost cancels the most recent in-flight POST request for the path.
func (c Client) CancelPost(path string) bool {
	return c.cancelByPath("POST", path)
}

// CancelPut cancels the most recent in-flight PUT request for the path.
func (c Client) CancelPut(path string) bool {
	return c.cancelByPath("PUT", path)
}

// CancelPatch cancels the most recent in-flight PATCH request for the path.
func (c Client) CancelPatch(path string) bool {
	return c.cancelByPath("PATCH", path)
}

// CancelDelete cancels the most recent in-flight DELETE request for the path.
func (c Client) CancelDelete(path string) bool {
	return c.cancelByPath("DELETE", path)
}

// Cancel cancels the in-flight request with the given identifier,
// as returned by Dispatch.
func (c Client) Cancel(id string) bool {
	return c.registry.Cancel(id)
}

// CancelAll cancels every in-flight request.
func (c Client) CancelAll() {
	c.registry.CancelAll()
}

// ImageFromCache returns a previously downloaded image without any network activity.
func (c Client) ImageFromCache(path string) (image.Image, bool) {
	obj, found := c.cache.Get(path, request.ResponseTypeImage)
	if !found {
		return nil, false
	}
	img, ok := obj.(image.Image)
	return img, ok
}

// DataFromCache returns a previously downloaded binary payload without any network activity.
func (c Client) DataFromCache(path string) ([]byte, bool) {
	obj, found := c.cache.Get(path, request.ResponseTypeData)
	if !found {
		return nil, false
	}
	data, ok := obj.([]byte)
	return data, ok
}

// cancelByPath resolves the identifier the same way Dispatch does,
// so cancellation by verb and path matches parametrized requests too.
func (c Client) cancelByPath(method, path string) bool {
	u, err := c.composeURL(path)
	if err != nil {
		return false
	}
	return c.registry.Cancel(registry.IdentifierFor(method, u.String()))
}
