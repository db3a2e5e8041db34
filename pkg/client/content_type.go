package client

import (
	"regexp"
)

const (
	ContentTypeApplicationJSON = "application/json"
	// Matches "application/json" and structured suffixes like "application/vnd.foo+json".
	ContentTypeApplicationJSONRegexp = `^application/([a-zA-Z0-9\.\-]+\+)?json$`
)

var jsonContentTypeRegexp = regexp.MustCompile(ContentTypeApplicationJSONRegexp)

// isJSONContentType reports whether the media type (without parameters)
// denotes a JSON payload.
func isJSONContentType(contentType string) bool {
	return jsonContentTypeRegexp.MatchString(contentType)
}
