package cache_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/webfetch/go-client/pkg/cache"
	"github.com/webfetch/go-client/pkg/request"
)

func TestStoreMemoryTier(t *testing.T) {
	t.Parallel()
	s := NewStore()

	obj := map[string]any{"foo": "bar"}
	assert.NoError(t, s.Put("/users/1", request.ResponseTypeJSON, obj, request.CacheMemory))

	got, found := s.Get("/users/1", request.ResponseTypeJSON)
	assert.True(t, found)
	// Memory tier returns the identical object.
	assert.Equal(t, obj, got)

	_, found = s.Get("/users/2", request.ResponseTypeJSON)
	assert.False(t, found)
}

func TestStoreNonePolicyIsNoOp(t *testing.T) {
	t.Parallel()
	s := NewStore()
	assert.NoError(t, s.Put("/a", request.ResponseTypeData, []byte("x"), request.CacheNone))
	_, found := s.Get("/a", request.ResponseTypeData)
	assert.False(t, found)
	assert.Equal(t, 0, s.Len())
}

func TestStoreResponseTypeIsPartOfKey(t *testing.T) {
	t.Parallel()
	s := NewStore()
	require.NoError(t, s.Put("/a", request.ResponseTypeJSON, map[string]any{"k": "v"}, request.CacheMemory))

	// Same name, different response type: no aliasing.
	_, found := s.Get("/a", request.ResponseTypeImage)
	assert.False(t, found)
	_, found = s.Get("/a", request.ResponseTypeData)
	assert.False(t, found)
	_, found = s.Get("/a", request.ResponseTypeJSON)
	assert.True(t, found)
}

func TestStoreMemoryPolicyNeverReachesDisk(t *testing.T) {
	t.Parallel()
	backing := &recordingBacking{data: make(map[string][]byte)}
	s := NewStore(WithBacking(backing))

	require.NoError(t, s.Put("/a", request.ResponseTypeData, []byte("x"), request.CacheMemory))
	assert.Empty(t, backing.data)
	assert.Zero(t, backing.puts)
}

func TestStoreDiskRoundTrip(t *testing.T) {
	t.Parallel()
	backing, err := NewFSBacking(t.TempDir())
	require.NoError(t, err)
	s := NewStore(WithBacking(backing))

	obj := map[string]any{"foo": "bar", "n": 1.5}
	require.NoError(t, s.Put("/users/1", request.ResponseTypeJSON, obj, request.CacheMemoryAndFile))

	// Force a memory miss: the entry must come back from the disk tier.
	s.EvictMemory("/users/1")
	got, found := s.Get("/users/1", request.ResponseTypeJSON)
	assert.True(t, found)
	assert.Equal(t, obj, got)

	// The disk hit was promoted: a second read is a memory hit,
	// returning the identical promoted object.
	promoted, found := s.Get("/users/1", request.ResponseTypeJSON)
	assert.True(t, found)
	assert.Equal(t, got, promoted)
}

func TestStoreDiskRoundTripImage(t *testing.T) {
	t.Parallel()
	backing, err := NewFSBacking(t.TempDir())
	require.NoError(t, err)
	s := NewStore(WithBacking(backing))

	img := testImage()
	require.NoError(t, s.Put("/avatar", request.ResponseTypeImage, img, request.CacheMemoryAndFile))
	s.EvictMemory("/avatar")

	got, found := s.Get("/avatar", request.ResponseTypeImage)
	require.True(t, found)
	decoded, ok := got.(image.Image)
	require.True(t, ok)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
	assert.Equal(t, color.NRGBAModel.Convert(img.At(0, 0)), color.NRGBAModel.Convert(decoded.At(0, 0)))
}

func TestStoreDiskRoundTripData(t *testing.T) {
	t.Parallel()
	backing, err := NewFSBacking(t.TempDir())
	require.NoError(t, err)
	s := NewStore(WithBacking(backing))

	require.NoError(t, s.Put("/blob", request.ResponseTypeData, []byte{1, 2, 3}, request.CacheMemoryAndFile))
	s.EvictMemory("/blob")

	got, found := s.Get("/blob", request.ResponseTypeData)
	assert.True(t, found)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestStoreInvalidate(t *testing.T) {
	t.Parallel()
	backing, err := NewFSBacking(t.TempDir())
	require.NoError(t, err)
	s := NewStore(WithBacking(backing))

	require.NoError(t, s.Put("/a", request.ResponseTypeJSON, map[string]any{"k": "v"}, request.CacheMemoryAndFile))
	require.NoError(t, s.Put("/a", request.ResponseTypeData, []byte("x"), request.CacheMemoryAndFile))

	s.Invalidate("/a")
	_, found := s.Get("/a", request.ResponseTypeJSON)
	assert.False(t, found)
	_, found = s.Get("/a", request.ResponseTypeData)
	assert.False(t, found)
}

func TestStoreDiskFailureDegradesToMiss(t *testing.T) {
	t.Parallel()
	s := NewStore(WithBacking(failingBacking{}))

	// Read failure: miss, not an error.
	_, found := s.Get("/a", request.ResponseTypeData)
	assert.False(t, found)

	// Write failure: surfaced to the caller, memory tier still updated.
	err := s.Put("/a", request.ResponseTypeData, []byte("x"), request.CacheMemoryAndFile)
	assert.Error(t, err)
	got, found := s.Get("/a", request.ResponseTypeData)
	assert.True(t, found)
	assert.Equal(t, []byte("x"), got)
}

func TestStoreCorruptDiskEntryDegradesToMiss(t *testing.T) {
	t.Parallel()
	backing, err := NewFSBacking(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, backing.Put("/a.json", []byte("{not json")))

	s := NewStore(WithBacking(backing))
	_, found := s.Get("/a", request.ResponseTypeJSON)
	assert.False(t, found)
}

func TestFSBackingTraversalGuard(t *testing.T) {
	t.Parallel()
	backing, err := NewFSBacking(t.TempDir())
	require.NoError(t, err)

	// Traversal segments are cleaned away, never escaping the base directory.
	require.NoError(t, backing.Put("../../etc/passwd", []byte("x")))
	raw, found, err := backing.Get("../../etc/passwd")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("x"), raw)
}

func TestFSBackingDeleteMissing(t *testing.T) {
	t.Parallel()
	backing, err := NewFSBacking(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, backing.Delete("/missing"))
}

func testImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 1, color.NRGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		panic(err)
	}
	return decoded
}

type recordingBacking struct {
	data map[string][]byte
	puts int
}

func (b *recordingBacking) Get(key string) ([]byte, bool, error) {
	raw, found := b.data[key]
	return raw, found, nil
}

func (b *recordingBacking) Put(key string, value []byte) error {
	b.puts++
	b.data[key] = value
	return nil
}

func (b *recordingBacking) Delete(key string) error {
	delete(b.data, key)
	return nil
}

type failingBacking struct{}

func (failingBacking) Get(string) ([]byte, bool, error) {
	return nil, false, errors.New("disk unavailable")
}

func (failingBacking) Put(string, []byte) error {
	return errors.New("disk unavailable")
}

func (failingBacking) Delete(string) error {
	return errors.New("disk unavailable")
}
