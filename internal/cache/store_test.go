// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package cache

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/floractl/internal/compress"
)

type plant struct {
	Name   string
	Genus  string
	Height float64
	Tags   []string
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	return New(append([]Option{WithClock(mock)}, opts...)...), mock
}

// payload returns a byte slice whose msgpack encoding is exactly n bytes. The
// bin 8 header is two bytes, so this holds for 2 <= n <= 257.
func payload(n int) []byte {
	return bytes.Repeat([]byte{'x'}, n-2)
}

// assertAccounting checks the running total against the entries actually held.
func assertAccounting(t *testing.T, s *Store) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum int64
	for _, e := range s.entries {
		sum += e.size
	}
	assert.Equal(t, sum, s.size, "running total must equal the sum of entry sizes")
}

func TestStore_SetGet(t *testing.T) {
	s, _ := newTestStore(t)

	s.Set("plants/1", "Quercus robur", time.Minute, true)

	var got string
	require.True(t, s.Get("plants/1", &got))
	assert.Equal(t, "Quercus robur", got)

	assert.False(t, s.Get("plants/2", &got))

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.InDelta(t, 0.5, st.HitRate(), 0.0001)
}

func TestStore_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		want    bool
	}{
		{name: "before ttl", advance: 50 * time.Millisecond, want: true},
		{name: "exactly at ttl", advance: 100 * time.Millisecond, want: false},
		{name: "after ttl", advance: 150 * time.Millisecond, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newTestStore(t)
			s.Set("k", "v", 100*time.Millisecond, false)

			mock.Add(tt.advance)

			var got string
			assert.Equal(t, tt.want, s.Get("k", &got))
			if tt.want {
				assert.Equal(t, "v", got)
				return
			}

			// Lazy expiry physically removes the entry.
			st := s.Stats()
			assert.Equal(t, 0, st.Entries)
			assert.Equal(t, int64(0), st.SizeBytes)
			assert.Equal(t, uint64(1), st.Expirations)
		})
	}
}

func TestStore_DefaultTTL(t *testing.T) {
	s, mock := newTestStore(t, WithDefaultTTL(time.Second))
	s.Set("k", 1, 0, false)

	info, ok := s.Peek("k")
	require.True(t, ok)
	assert.Equal(t, info.InsertedAt.Add(time.Second), info.ExpiresAt)

	mock.Add(999 * time.Millisecond)
	_, ok = Lookup[int](s, "k")
	assert.True(t, ok)

	mock.Add(time.Millisecond)
	_, ok = Lookup[int](s, "k")
	assert.False(t, ok)
}

func TestStore_ConcreteEvictionScenario(t *testing.T) {
	s, _ := newTestStore(t, WithMaxBytes(1000))

	for i := 1; i <= 12; i++ {
		key := fmt.Sprintf("entry-%02d", i)
		s.Set(key, payload(100), time.Hour, false)

		info, ok := s.Peek(key)
		require.True(t, ok)
		require.Equal(t, int64(100), info.Size)
		assertAccounting(t, s)
	}

	for i := 1; i <= 2; i++ {
		_, ok := s.Peek(fmt.Sprintf("entry-%02d", i))
		assert.False(t, ok, "entry %d should have been evicted", i)
	}
	for i := 3; i <= 12; i++ {
		_, ok := s.Peek(fmt.Sprintf("entry-%02d", i))
		assert.True(t, ok, "entry %d should be present", i)
	}

	st := s.Stats()
	assert.Equal(t, int64(1000), st.SizeBytes)
	assert.Equal(t, 10, st.Entries)
	assert.Equal(t, uint64(2), st.Evictions)
}

func TestStore_EvictionIsByInsertionNotRecency(t *testing.T) {
	s, mock := newTestStore(t, WithMaxBytes(300))

	for _, k := range []string{"a", "b", "c"} {
		s.Set(k, payload(100), time.Hour, false)
		mock.Add(time.Millisecond)
	}

	// Reading "a" does not protect it.
	for i := 0; i < 5; i++ {
		_, ok := Lookup[[]byte](s, "a")
		require.True(t, ok)
	}

	s.Set("d", payload(100), time.Hour, false)

	_, ok := s.Peek("a")
	assert.False(t, ok)
	for _, k := range []string{"b", "c", "d"} {
		_, ok := s.Peek(k)
		assert.True(t, ok, k)
	}

	entries := s.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "b", entries[0].Key)
	assert.Equal(t, "d", entries[2].Key)
}

func TestStore_EvictionUnderPressure(t *testing.T) {
	s, mock := newTestStore(t, WithMaxBytes(500))

	sizes := []int{120, 200, 80, 150, 160, 90}
	for i, n := range sizes {
		s.Set(fmt.Sprintf("k%d", i), payload(n), time.Hour, false)
		mock.Add(time.Second)
		assertAccounting(t, s)
		assert.LessOrEqual(t, s.Stats().SizeBytes, int64(500))
	}

	// 120+200+80+150 = 550 > 500 evicts k0, then +160 evicts k1, then +90
	// fits (80+150+160+90 = 480).
	for _, k := range []string{"k0", "k1"} {
		_, ok := s.Peek(k)
		assert.False(t, ok, k)
	}
	for _, k := range []string{"k2", "k3", "k4", "k5"} {
		_, ok := s.Peek(k)
		assert.True(t, ok, k)
	}
	assert.Equal(t, int64(480), s.Stats().SizeBytes)
}

func TestStore_OversizedEntry(t *testing.T) {
	s, _ := newTestStore(t, WithMaxBytes(200))

	s.Set("small-1", payload(50), time.Hour, false)
	s.Set("small-2", payload(50), time.Hour, false)
	s.Set("huge", bytes.Repeat([]byte{'x'}, 500), time.Hour, false)

	assert.Equal(t, 1, s.Len())
	_, ok := s.Peek("huge")
	assert.True(t, ok)
	assertAccounting(t, s)
	assert.Greater(t, s.Stats().SizeBytes, int64(200), "a single oversized entry is kept over budget")

	// The next insert pushes it out again.
	s.Set("small-3", payload(50), time.Hour, false)
	_, ok = s.Peek("huge")
	assert.False(t, ok)
	assert.Equal(t, int64(50), s.Stats().SizeBytes)
}

func TestStore_OverwriteCountsOnce(t *testing.T) {
	s, _ := newTestStore(t, WithMaxBytes(250))

	s.Set("k", payload(100), time.Hour, false)
	s.Set("other", payload(100), time.Hour, false)
	s.Set("k", payload(120), time.Hour, false)

	assertAccounting(t, s)
	st := s.Stats()
	assert.Equal(t, 2, st.Entries)
	assert.Equal(t, int64(220), st.SizeBytes)
	assert.Equal(t, uint64(0), st.Evictions)

	// "k" was reinserted, so "other" is now the oldest.
	s.Set("third", payload(100), time.Hour, false)
	_, ok := s.Peek("other")
	assert.False(t, ok)
	_, ok = s.Peek("k")
	assert.True(t, ok)
}

func TestStore_DeleteAndClear(t *testing.T) {
	s, _ := newTestStore(t)

	s.Set("a", payload(100), time.Hour, false)
	s.Set("b", payload(100), time.Hour, false)

	s.Delete("a")
	s.Delete("a")
	s.Delete("never-set")
	assertAccounting(t, s)
	assert.Equal(t, int64(100), s.Stats().SizeBytes)

	_, _ = Lookup[[]byte](s, "b")
	s.Clear()

	st := s.Stats()
	assert.Equal(t, 0, st.Entries)
	assert.Equal(t, int64(0), st.SizeBytes)
	assert.Equal(t, uint64(1), st.Hits, "counters survive Clear")
}

func TestStore_Purge(t *testing.T) {
	s, mock := newTestStore(t)

	s.Set("short", 1, time.Second, false)
	s.Set("long", 2, time.Hour, false)
	mock.Add(2 * time.Second)

	assert.Equal(t, 1, s.Purge())
	assert.Equal(t, 1, s.Stats().Entries)
	assertAccounting(t, s)
	assert.Equal(t, 0, s.Purge())
}

func TestStore_BudgetInvariantRandomized(t *testing.T) {
	const budget = 2048
	s, mock := newTestStore(t, WithMaxBytes(budget))
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		key := fmt.Sprintf("k%d", rng.Intn(40))
		switch rng.Intn(4) {
		case 0:
			s.Delete(key)
		case 1:
			var v []byte
			s.Get(key, &v)
		default:
			s.Set(key, payload(2+rng.Intn(250)), time.Duration(1+rng.Intn(500))*time.Millisecond, false)
		}
		mock.Add(time.Duration(rng.Intn(20)) * time.Millisecond)

		assertAccounting(t, s)
		require.LessOrEqual(t, s.Stats().SizeBytes, int64(budget))
	}
}

func TestStore_CompressionRoundTrip(t *testing.T) {
	var garden []plant
	for i := 0; i < 100; i++ {
		garden = append(garden, plant{
			Name:   fmt.Sprintf("oak-%03d", i),
			Genus:  "Quercus",
			Height: float64(i) * 1.5,
			Tags:   []string{"deciduous", "native"},
		})
	}

	tests := []struct {
		name           string
		compressor     compress.Compressor
		compress       bool
		wantCompressed bool
	}{
		{name: "zstd", compressor: compress.Select("zstd"), compress: true, wantCompressed: true},
		{name: "s2", compressor: compress.Select("s2"), compress: true, wantCompressed: true},
		{name: "gzip", compressor: compress.Select("gzip"), compress: true, wantCompressed: true},
		{name: "noop compressor", compressor: compress.Noop{}, compress: true, wantCompressed: false},
		{name: "compression not requested", compressor: compress.Select("zstd"), compress: false, wantCompressed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t, WithCompressor(tt.compressor))
			s.Set("garden", garden, time.Hour, tt.compress)

			info, ok := s.Peek("garden")
			require.True(t, ok)
			assert.Equal(t, tt.wantCompressed, info.Compressed)

			got, ok := Lookup[[]plant](s, "garden")
			require.True(t, ok)
			assert.Equal(t, garden, got)
			assertAccounting(t, s)
		})
	}
}

func TestStore_BelowThresholdNotCompressed(t *testing.T) {
	s, _ := newTestStore(t, WithCompressor(compress.Select("zstd")), WithCompressionThreshold(1024))

	s.Set("small", payload(500), time.Hour, true)
	info, ok := s.Peek("small")
	require.True(t, ok)
	assert.False(t, info.Compressed)
	assert.Equal(t, int64(500), info.Size)
}

// brokenCompressor fails on demand.
type brokenCompressor struct {
	failCompress   bool
	failDecompress bool
}

func (b brokenCompressor) Name() string  { return "broken" }
func (b brokenCompressor) Enabled() bool { return true }

func (b brokenCompressor) Compress(src []byte) ([]byte, error) {
	if b.failCompress {
		return nil, errors.New("compress exploded")
	}
	return append([]byte("Z"), src...), nil
}

func (b brokenCompressor) Decompress(src []byte) ([]byte, error) {
	if b.failDecompress {
		return nil, errors.New("decompress exploded")
	}
	return src[1:], nil
}

func TestStore_CompressionFailureStoresRaw(t *testing.T) {
	s, _ := newTestStore(t,
		WithCompressor(brokenCompressor{failCompress: true}),
		WithCompressionThreshold(10),
	)

	s.Set("k", payload(200), time.Hour, true)

	info, ok := s.Peek("k")
	require.True(t, ok)
	assert.False(t, info.Compressed)

	got, ok := Lookup[[]byte](s, "k")
	require.True(t, ok)
	assert.Equal(t, payload(200), got)
}

func TestStore_CorruptPayloadIsAMiss(t *testing.T) {
	s, _ := newTestStore(t,
		WithCompressor(brokenCompressor{failDecompress: true}),
		WithCompressionThreshold(10),
	)

	s.Set("k", payload(200), time.Hour, true)
	info, ok := s.Peek("k")
	require.True(t, ok)
	require.True(t, info.Compressed)

	var got []byte
	assert.False(t, s.Get("k", &got))

	st := s.Stats()
	assert.Equal(t, 0, st.Entries)
	assert.Equal(t, int64(0), st.SizeBytes)
	assert.Equal(t, uint64(1), st.Misses)
}

func TestStore_TypeMismatchIsAMiss(t *testing.T) {
	s, _ := newTestStore(t)
	s.Set("k", "a string", time.Hour, false)

	var n map[string]int
	assert.False(t, s.Get("k", &n))
	assert.Equal(t, 0, s.Stats().Entries)
}

func TestStore_UnencodableValueIsDropped(t *testing.T) {
	s, _ := newTestStore(t)
	s.Set("k", make(chan int), time.Hour, false)

	assert.Equal(t, 0, s.Len())
	assertAccounting(t, s)

	// A failed overwrite must not leave the old value readable.
	s.Set("k", "old", time.Hour, false)
	s.Set("other", "kept", time.Hour, false)
	s.Set("k", make(chan int), time.Hour, false)

	var got string
	assert.False(t, s.Get("k", &got))
	assert.Empty(t, got)
	assert.Equal(t, 1, s.Len())
	assertAccounting(t, s)

	kept, ok := Lookup[string](s, "other")
	require.True(t, ok)
	assert.Equal(t, "kept", kept)
}

func TestStore_DataIsolation(t *testing.T) {
	s, _ := newTestStore(t)

	original := []byte("original")
	s.Set("k", original, time.Hour, false)
	original[0] = 'X'

	got, ok := Lookup[[]byte](s, "k")
	require.True(t, ok)
	assert.Equal(t, "original", string(got))

	got[0] = 'Y'
	again, ok := Lookup[[]byte](s, "k")
	require.True(t, ok)
	assert.Equal(t, "original", string(again))
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s, _ := newTestStore(t,
		WithMaxBytes(4096),
		WithCompressor(compress.Select("s2")),
		WithCompressionThreshold(64),
	)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (w*7+i)%32)
				switch i % 3 {
				case 0:
					s.Set(key, payload(2+(i%200)), time.Hour, true)
				case 1:
					var v []byte
					s.Get(key, &v)
				default:
					s.Delete(key)
				}
			}
		}(w)
	}
	wg.Wait()

	assertAccounting(t, s)
	assert.LessOrEqual(t, s.Stats().SizeBytes, int64(4096))
}

func TestStats_String(t *testing.T) {
	st := Stats{Entries: 3, SizeBytes: 2048, MaxBytes: 50 << 20, Hits: 3, Misses: 1, Evictions: 2}
	assert.Equal(t, "3 entries, 2.0 KiB of 50 MiB, 75.0% hit rate (3 hits, 1 misses), 2 evicted, 0 expired", st.String())
	assert.Equal(t, 0.0, Stats{}.HitRate())
}
