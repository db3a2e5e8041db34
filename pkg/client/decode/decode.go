// Package decode provides transparent decoding of compressed response bodies
// by the Content-Encoding header. Unknown encodings pass through untouched.
package decode

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

func Decode(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	switch strings.ToLower(contentEncoding) {
	case "gzip":
		if v, err := gzip.NewReader(body); err == nil {
			return v, nil
		} else {
			return nil, fmt.Errorf("cannot decode gzip: %w", err)
		}
	case "br":
		return io.NopCloser(brotli.NewReader(body)), nil
	case "deflate":
		return flate.NewReader(body), nil
	default:
		return body, nil
	}
}
