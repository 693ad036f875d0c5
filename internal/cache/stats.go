// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats is a point-in-time snapshot of a Store.
type Stats struct {
	// Entries and SizeBytes count everything physically held, including
	// expired entries no Get has discovered yet.
	Entries     int
	SizeBytes   int64
	MaxBytes    int64
	Compressed  int
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
}

// HitRate is hits/(hits+misses), or 0 before the first lookup.
func (st Stats) HitRate() float64 {
	total := st.Hits + st.Misses
	if total == 0 {
		return 0
	}
	return float64(st.Hits) / float64(total)
}

func (st Stats) String() string {
	return fmt.Sprintf("%d entries, %s of %s, %.1f%% hit rate (%d hits, %d misses), %d evicted, %d expired",
		st.Entries,
		humanize.IBytes(uint64(st.SizeBytes)),
		humanize.IBytes(uint64(st.MaxBytes)),
		st.HitRate()*100,
		st.Hits,
		st.Misses,
		st.Evictions,
		st.Expirations,
	)
}

// Stats returns a consistent snapshot of the store's accounting.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	compressed := 0
	for _, e := range s.entries {
		if e.compressed {
			compressed++
		}
	}

	return Stats{
		Entries:     len(s.entries),
		SizeBytes:   s.size,
		MaxBytes:    s.maxBytes,
		Compressed:  compressed,
		Hits:        s.hits,
		Misses:      s.misses,
		Evictions:   s.evictions,
		Expirations: s.expirations,
	}
}
