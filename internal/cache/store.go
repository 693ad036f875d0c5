// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/benbjohnson/clock"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/staranto/floractl/internal/compress"
)

// entry is a single stored value. Everything except the map membership is
// immutable once inserted.
type entry struct {
	key        string
	payload    []byte
	compressed bool
	insertedAt time.Time
	seq        uint64
	ttl        time.Duration
	size       int64
}

func (e *entry) expiresAt() time.Time {
	return e.insertedAt.Add(e.ttl)
}

func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt())
}

func (e *entry) info() EntryInfo {
	return EntryInfo{
		Key:        e.key,
		Size:       e.size,
		Compressed: e.compressed,
		InsertedAt: e.insertedAt,
		ExpiresAt:  e.expiresAt(),
	}
}

// EntryInfo is the read-only metadata of a live entry.
type EntryInfo struct {
	Key        string
	Size       int64
	Compressed bool
	InsertedAt time.Time
	ExpiresAt  time.Time
}

// Store is a byte-budgeted, TTL-expiring value cache. It is safe for
// concurrent use; every method is atomic with respect to the entry map and
// the running size total.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	size    int64
	seq     uint64

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64

	maxBytes   int64
	ttl        time.Duration
	threshold  int
	compressor compress.Compressor
	clock      clock.Clock
}

// New constructs an empty Store.
func New(opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		entries:    make(map[string]*entry),
		maxBytes:   o.maxBytes,
		ttl:        o.ttl,
		threshold:  o.threshold,
		compressor: o.compressor,
		clock:      o.clock,
	}
}

// Set encodes value and stores it under key, replacing any previous entry.
// A ttl <= 0 uses the store default. When compress is true, the encoding is
// larger than the threshold and a real compressor is configured, the stored
// payload is compressed.
//
// Set never fails. Values that cannot be encoded are logged and dropped
// along with any previous entry under key, a failed compression stores the uncompressed form, and the budget is made
// room for by evicting the oldest insertions. An entry larger than the whole
// budget evicts everything else and is still inserted.
func (s *Store) Set(key string, value any, ttl time.Duration, compress bool) {
	raw, err := msgpack.Marshal(value)
	if err != nil {
		log.WithError(err).Warnf("cache: cannot encode value for %s", key)
		s.Delete(key)
		return
	}

	if ttl <= 0 {
		ttl = s.ttl
	}

	payload, packed := s.pack(key, raw, compress)
	size := int64(len(payload))

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		s.remove(old)
	}

	for s.size+size > s.maxBytes && len(s.entries) > 0 {
		s.evictOldest()
	}

	if size > s.maxBytes {
		log.Debugf("cache: %s is %d bytes, over the %d byte budget", key, size, s.maxBytes)
	}

	s.seq++
	s.entries[key] = &entry{
		key:        key,
		payload:    payload,
		compressed: packed,
		insertedAt: s.clock.Now(),
		seq:        s.seq,
		ttl:        ttl,
		size:       size,
	}
	s.size += size
}

// pack returns the stored form of raw and whether it is compressed.
func (s *Store) pack(key string, raw []byte, compress bool) ([]byte, bool) {
	if !compress || !s.compressor.Enabled() || len(raw) <= s.threshold {
		return raw, false
	}

	packed, err := s.compressor.Compress(raw)
	if err != nil {
		log.WithError(err).Warnf("cache: %s compression failed, storing uncompressed", key)
		return raw, false
	}
	return packed, true
}

// Get decodes the value stored under key into out, which must be a pointer.
// It reports false for unknown keys, expired entries and entries that fail
// to decode; the latter two are removed.
func (s *Store) Get(key string, out any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.misses++
		return false
	}

	if e.expired(s.clock.Now()) {
		log.Debugf("cache: %s expired", key)
		s.remove(e)
		s.expirations++
		s.misses++
		return false
	}

	raw := e.payload
	if e.compressed {
		var err error
		if raw, err = s.compressor.Decompress(e.payload); err != nil {
			log.WithError(err).Warnf("cache: dropping undecodable entry %s", key)
			s.remove(e)
			s.misses++
			return false
		}
	}

	if err := msgpack.Unmarshal(raw, out); err != nil {
		log.WithError(err).Warnf("cache: dropping undecodable entry %s", key)
		s.remove(e)
		s.misses++
		return false
	}

	s.hits++
	return true
}

// Lookup is Get for callers that know the stored type.
func Lookup[T any](s *Store, key string) (T, bool) {
	var v T
	if !s.Get(key, &v) {
		var zero T
		return zero, false
	}
	return v, true
}

// Delete removes key. It is a no-op for unknown keys.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.remove(e)
	}
}

// Clear drops every entry. Hit and miss counters survive.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
	s.size = 0
}

// Purge removes all expired entries and returns how many were dropped.
func (s *Store) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	n := 0
	for _, e := range s.entries {
		if e.expired(now) {
			s.remove(e)
			s.expirations++
			n++
		}
	}
	return n
}

// Peek returns the metadata of a live entry without counting a hit or miss.
func (s *Store) Peek(key string) (EntryInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.expired(s.clock.Now()) {
		return EntryInfo{}, false
	}
	return e.info(), true
}

// Entries returns the metadata of every live entry, oldest insertion first.
func (s *Store) Entries() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	live := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.expired(now) {
			live = append(live, e)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return older(live[i], live[j])
	})

	infos := make([]EntryInfo, len(live))
	for i, e := range live {
		infos[i] = e.info()
	}
	return infos
}

// Len is the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	n := 0
	for _, e := range s.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// remove unlinks e and releases its bytes. Caller holds s.mu.
func (s *Store) remove(e *entry) {
	delete(s.entries, e.key)
	s.size -= e.size
}

// evictOldest removes the entry with the earliest insertion. Ties on the
// timestamp go to the lower insertion sequence. Caller holds s.mu.
func (s *Store) evictOldest() {
	var victim *entry
	for _, e := range s.entries {
		if victim == nil || older(e, victim) {
			victim = e
		}
	}
	if victim == nil {
		return
	}

	log.Debugf("cache: evicting %s (%d bytes)", victim.key, victim.size)
	s.remove(victim)
	s.evictions++
}

func older(a, b *entry) bool {
	if a.insertedAt.Equal(b.insertedAt) {
		return a.seq < b.seq
	}
	return a.insertedAt.Before(b.insertedAt)
}
