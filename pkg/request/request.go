// Package request provides immutable definitions of HTTP requests, see New function.
//
// A Definition describes everything the dispatch engine needs for one call:
// verb, path, parameters and their encoding, optional multipart parts,
// the expected response type and the caching policy.
//
// Definitions are sent using the client.Client dispatch engine.
package request

import (
	"net/http"
)

// Params is a loosely-typed parameter bag.
// Allowed values are scalars, sequences, mappings and binary parts,
// the encoder rejects anything else.
type Params map[string]any

// Part is one binary part of a multipart-form-data body.
type Part struct {
	// FieldName is the form field name, required.
	FieldName string
	// FileName is the file name reported to the server.
	FileName string
	// ContentType of the part, "application/octet-stream" when empty.
	ContentType string
	// Data is the part content.
	Data []byte
}

// ParamType selects the encoding strategy applied to request parameters.
type ParamType string

const (
	// ParamTypeNone sends no body and no query augmentation.
	ParamTypeNone ParamType = "none"
	// ParamTypeForm percent-encodes parameters: into the URL query string
	// for GET/DELETE, into a form-encoded body for the other verbs.
	ParamTypeForm ParamType = "formURLEncoded"
	// ParamTypeJSON serializes parameters as a JSON body.
	ParamTypeJSON ParamType = "json"
	// ParamTypeMultipart combines scalar parameters and binary parts
	// into a boundary-delimited body.
	ParamTypeMultipart ParamType = "multipartFormData"
)

// ResponseType selects the decoding target for a fetched payload.
type ResponseType string

const (
	// ResponseTypeJSON decodes the body as a JSON value.
	ResponseTypeJSON ResponseType = "json"
	// ResponseTypeImage decodes the body as an image (PNG, JPEG, GIF).
	ResponseTypeImage ResponseType = "image"
	// ResponseTypeData passes the body through as raw bytes.
	ResponseTypeData ResponseType = "data"
)

// CachePolicy selects the cache tiers a response participates in.
type CachePolicy string

const (
	// CacheNone bypasses all caching.
	CacheNone CachePolicy = "none"
	// CacheMemory uses the memory tier only.
	CacheMemory CachePolicy = "memory"
	// CacheMemoryAndFile uses the memory tier backed by the disk tier,
	// a disk hit is promoted into memory on read.
	CacheMemoryAndFile CachePolicy = "memoryAndFile"
)

// Verbs that never carry a request body, parameters are encoded to the query string.
func isQueryOnlyMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodDelete
}
