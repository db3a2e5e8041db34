package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/webfetch/go-client/pkg/request"
)

// Backing is the narrow boundary to the disk tier.
// Implementations must be byte-for-byte transparent: Get returns exactly
// the bytes previously passed to Put for the same key.
type Backing interface {
	// Get returns (value, true, nil) on hit, (nil, false, nil) on miss.
	Get(key string) ([]byte, bool, error)
	// Put stores the value under the key, overwriting any previous value.
	Put(key string, value []byte) error
	// Delete removes the key, missing keys are not an error.
	Delete(key string) error
}

// diskKey derives the disk-tier key from the cache name and response type.
// The response type is part of the key, matching the memory tier semantics.
func diskKey(name string, responseType request.ResponseType) string {
	return name + "." + string(responseType)
}

// FSBacking stores cache entries as files under a base directory.
// Keys are URL-path style, nested keys become nested directories.
// Writes go through a temp file + rename so readers never observe
// partial entries.
type FSBacking struct {
	basePath string
}

// NewFSBacking creates a filesystem backing rooted at basePath,
// the directory is created if missing.
func NewFSBacking(basePath string) (*FSBacking, error) {
	if basePath == "" {
		return nil, errors.New("cache: storage path required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("cache: resolve storage path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create storage path: %w", err)
	}
	return &FSBacking{basePath: abs}, nil
}

func (b *FSBacking) Get(key string) ([]byte, bool, error) {
	filePath, err := b.path(key)
	if err != nil {
		return nil, false, err
	}
	raw, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (b *FSBacking) Put(key string, value []byte) error {
	filePath, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}
	tempFile, err := os.CreateTemp(filepath.Dir(filePath), ".cache-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	_, err = tempFile.Write(value)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}
	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func (b *FSBacking) Delete(key string) error {
	filePath, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// path maps a key to a file path under basePath and rejects traversal outside it.
func (b *FSBacking) path(key string) (string, error) {
	rel := path.Clean("/" + key)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." {
		rel = "root"
	}
	filePath := filepath.Join(b.basePath, filepath.FromSlash(rel))
	if !strings.HasPrefix(filePath, b.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf(`cache: invalid key "%s"`, key)
	}
	return filePath, nil
}
