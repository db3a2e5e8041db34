package decode_test

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webfetch/go-client/pkg/client/decode"
)

func TestDecodePlain(t *testing.T) {
	t.Parallel()
	body := io.NopCloser(bytes.NewReader([]byte("plain")))
	out, err := decode.Decode(body, "")
	require.NoError(t, err)
	raw, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Equal(t, "plain", string(raw))
}

func TestDecodeGzip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	wr := gzip.NewWriter(&buf)
	_, err := wr.Write([]byte("gzipped"))
	require.NoError(t, err)
	require.NoError(t, wr.Close())

	out, err := decode.Decode(io.NopCloser(&buf), "gzip")
	require.NoError(t, err)
	raw, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Equal(t, "gzipped", string(raw))
}

func TestDecodeGzipInvalid(t *testing.T) {
	t.Parallel()
	body := io.NopCloser(bytes.NewReader([]byte("not gzip")))
	_, err := decode.Decode(body, "gzip")
	assert.ErrorContains(t, err, "cannot decode gzip")
}

func TestDecodeBrotli(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	wr := brotli.NewWriter(&buf)
	_, err := wr.Write([]byte("compressed"))
	require.NoError(t, err)
	require.NoError(t, wr.Close())

	out, err := decode.Decode(io.NopCloser(&buf), "br")
	require.NoError(t, err)
	raw, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Equal(t, "compressed", string(raw))
}

func TestDecodeDeflate(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	wr, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = wr.Write([]byte("deflated"))
	require.NoError(t, err)
	require.NoError(t, wr.Close())

	out, err := decode.Decode(io.NopCloser(&buf), "deflate")
	require.NoError(t, err)
	raw, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Equal(t, "deflated", string(raw))
}
