// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/staranto/floractl/internal/cache"
)

// valuePrefix namespaces decoded values so they never collide with the raw
// body cached for the same resource.
const valuePrefix = "value:"

// Reader performs the underlying read of a canonical target (path plus sorted
// query string). It owns retries and cancellation.
type Reader interface {
	Read(ctx context.Context, target string) ([]byte, error)
}

// ReaderFunc adapts a plain function to Reader.
type ReaderFunc func(ctx context.Context, target string) ([]byte, error)

func (f ReaderFunc) Read(ctx context.Context, target string) ([]byte, error) {
	return f(ctx, target)
}

// Fetcher makes reads cache-backed: a hit returns without touching the
// Reader, a miss reads, stores and returns. Failed reads are never cached.
type Fetcher struct {
	store    *cache.Store
	reader   Reader
	ttl      time.Duration
	compress bool
	flight   *singleflight.Group
	reads    atomic.Uint64
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithDefaultTTL is used when GetOrFetch is called with ttl <= 0. Left unset,
// the store's own default applies.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(f *Fetcher) { f.ttl = ttl }
}

// WithCompression controls whether fetched bodies are offered to the store's
// compressor. Defaults to true.
func WithCompression(enabled bool) Option {
	return func(f *Fetcher) { f.compress = enabled }
}

// WithSingleFlight collapses concurrent reads of the same uncached target
// into one underlying read. The shared read is not cancelled when the caller
// that started it gives up.
func WithSingleFlight() Option {
	return func(f *Fetcher) { f.flight = &singleflight.Group{} }
}

// New wires a Fetcher over store and reader.
func New(store *cache.Store, reader Reader, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:    store,
		reader:   reader,
		compress: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Store returns the backing store.
func (f *Fetcher) Store() *cache.Store {
	return f.store
}

// Reads is the number of underlying reads performed so far.
func (f *Fetcher) Reads() uint64 {
	return f.reads.Load()
}

// Key builds the canonical cache key for a resource: a cleaned absolute path,
// then the query parameters sorted by name. A query string embedded in
// resourcePath is merged with query. Values for a repeated parameter keep
// their order. An embedded query that does not parse is an error wrapping
// ErrInvalidQuery.
func Key(resourcePath string, query url.Values) (string, error) {
	merged := url.Values{}
	if i := strings.IndexByte(resourcePath, '?'); i >= 0 {
		embedded, err := url.ParseQuery(resourcePath[i+1:])
		if err != nil {
			return "", fmt.Errorf("%w %q: %v", ErrInvalidQuery, resourcePath[i+1:], err)
		}
		for k, vs := range embedded {
			merged[k] = append(merged[k], vs...)
		}
		resourcePath = resourcePath[:i]
	}
	for k, vs := range query {
		merged[k] = append(merged[k], vs...)
	}

	p := path.Clean("/" + resourcePath)

	// Encode sorts by key.
	if q := merged.Encode(); q != "" {
		return p + "?" + q, nil
	}
	return p, nil
}

// GetOrFetch returns the body of resourcePath with query. With useCache the
// store is consulted first; a miss, or useCache=false, performs the
// underlying read and stores the result under the canonical key. Read errors
// are returned exactly as the Reader produced them.
func (f *Fetcher) GetOrFetch(
	ctx context.Context,
	resourcePath string,
	query url.Values,
	ttl time.Duration,
	useCache bool,
) ([]byte, error) {
	key, err := Key(resourcePath, query)
	if err != nil {
		return nil, err
	}

	if useCache {
		var body []byte
		if f.store.Get(key, &body) {
			log.Debugf("cache hit: %s", key)
			return body, nil
		}
		log.Debugf("cache miss: %s", key)
	}

	body, err := f.read(ctx, key)
	if err != nil {
		return nil, err
	}

	f.store.Set(key, body, f.ttlOr(ttl), f.compress)
	return body, nil
}

// GetOrFetchValue is GetOrFetch for structured values: the body is decoded
// once and the decoded value, not the body, is cached. Decode errors are
// returned and nothing is cached.
func GetOrFetchValue[T any](
	ctx context.Context,
	f *Fetcher,
	resourcePath string,
	query url.Values,
	ttl time.Duration,
	useCache bool,
	decode func([]byte) (T, error),
) (T, error) {
	var zero T
	target, err := Key(resourcePath, query)
	if err != nil {
		return zero, err
	}
	key := valuePrefix + target

	if useCache {
		if v, ok := cache.Lookup[T](f.store, key); ok {
			log.Debugf("cache hit: %s", key)
			return v, nil
		}
		log.Debugf("cache miss: %s", key)
	}

	body, err := f.read(ctx, target)
	if err != nil {
		return zero, err
	}

	v, err := decode(body)
	if err != nil {
		return zero, fmt.Errorf("failed to decode %s: %w", target, err)
	}

	f.store.Set(key, v, f.ttlOr(ttl), f.compress)
	return v, nil
}

// Invalidate drops both the raw and decoded entries for a resource.
func (f *Fetcher) Invalidate(resourcePath string, query url.Values) error {
	key, err := Key(resourcePath, query)
	if err != nil {
		return err
	}
	f.store.Delete(key)
	f.store.Delete(valuePrefix + key)
	return nil
}

// read performs the underlying read outside of any store lock.
func (f *Fetcher) read(ctx context.Context, target string) ([]byte, error) {
	if f.flight == nil {
		f.reads.Add(1)
		return f.reader.Read(ctx, target)
	}

	// The shared read outlives any single caller's cancellation; each caller
	// still stops waiting when its own ctx is done.
	ch := f.flight.DoChan(target, func() (any, error) {
		f.reads.Add(1)
		return f.reader.Read(context.WithoutCancel(ctx), target)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		body, _ := res.Val.([]byte)
		if res.Shared {
			body = append([]byte(nil), body...)
		}
		return body, nil
	}
}

func (f *Fetcher) ttlOr(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return f.ttl
}
