// Package cache provides a two-tier store for decoded HTTP responses.
//
// The memory tier holds decoded objects directly and is always present.
// The optional disk tier stores serialized entries behind the narrow
// Backing interface, a disk hit is promoted into memory on read.
//
// Entries are keyed by cache name and response type together: a name stored
// as a JSON value is never returned as an image, even if the names collide.
//
// Disk failures degrade to a cache miss or a lost write, they never fail
// the caller. Degraded operations are logged at Warn level.
package cache

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/webfetch/go-client/pkg/request"
)

// Store is a two-tier cache of decoded response objects. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	memory map[entryKey]any
	disk   Backing
	logger logrus.FieldLogger
}

type entryKey struct {
	name         string
	responseType request.ResponseType
}

// Option configures a Store.
type Option func(*Store)

// WithBacking enables the disk tier.
func WithBacking(backing Backing) Option {
	return func(s *Store) {
		s.disk = backing
	}
}

// WithLogger sets the logger for degraded operations.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a cache store. Without options it is memory-only and silent.
func NewStore(opts ...Option) *Store {
	s := &Store{memory: make(map[entryKey]any), logger: discardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached object for the cache name and response type.
// Tiers are checked in order: memory, then disk. A disk hit is decoded
// and backfilled into memory so subsequent reads are memory hits.
func (s *Store) Get(name string, responseType request.ResponseType) (any, bool) {
	key := entryKey{name: name, responseType: responseType}

	s.mu.RLock()
	obj, found := s.memory[key]
	s.mu.RUnlock()
	if found {
		return obj, true
	}

	if s.disk == nil {
		return nil, false
	}
	raw, found, err := s.disk.Get(diskKey(name, responseType))
	if err != nil {
		s.logger.WithError(err).Warnf(`cache: disk read of "%s" failed, treating as miss`, name)
		return nil, false
	}
	if !found {
		return nil, false
	}
	obj, err = codecFor(responseType).decode(raw)
	if err != nil {
		s.logger.WithError(err).Warnf(`cache: cannot decode disk entry "%s", treating as miss`, name)
		return nil, false
	}

	// Promote to the memory tier.
	s.mu.Lock()
	s.memory[key] = obj
	s.mu.Unlock()
	return obj, true
}

// Put stores the object in the tiers selected by the policy.
// A CacheNone policy is a no-op. A memory-only policy never reaches disk.
// The returned error reports a failed disk write, the memory tier is
// updated regardless.
func (s *Store) Put(name string, responseType request.ResponseType, obj any, policy request.CachePolicy) error {
	if policy == request.CacheNone {
		return nil
	}
	key := entryKey{name: name, responseType: responseType}

	s.mu.Lock()
	s.memory[key] = obj
	s.mu.Unlock()

	if policy != request.CacheMemoryAndFile || s.disk == nil {
		return nil
	}
	raw, err := codecFor(responseType).encode(obj)
	if err != nil {
		return fmt.Errorf(`cache: cannot serialize "%s" for disk tier: %w`, name, err)
	}
	if err := s.disk.Put(diskKey(name, responseType), raw); err != nil {
		return fmt.Errorf(`cache: disk write of "%s" failed: %w`, name, err)
	}
	return nil
}

// Invalidate removes every response-type variant of the cache name from both tiers.
func (s *Store) Invalidate(name string) {
	s.mu.Lock()
	for _, responseType := range responseTypes {
		delete(s.memory, entryKey{name: name, responseType: responseType})
	}
	s.mu.Unlock()

	if s.disk == nil {
		return
	}
	for _, responseType := range responseTypes {
		if err := s.disk.Delete(diskKey(name, responseType)); err != nil {
			s.logger.WithError(err).Warnf(`cache: disk delete of "%s" failed`, name)
		}
	}
}

// EvictMemory removes every response-type variant of the cache name from the
// memory tier only, disk entries stay intact and are promoted back on read.
func (s *Store) EvictMemory(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, responseType := range responseTypes {
		delete(s.memory, entryKey{name: name, responseType: responseType})
	}
}

// Len returns the number of entries in the memory tier.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memory)
}

var responseTypes = []request.ResponseType{
	request.ResponseTypeJSON,
	request.ResponseTypeImage,
	request.ResponseTypeData,
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
