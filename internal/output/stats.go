// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/staranto/floractl/internal/cache"
)

// StatsWriter renders cache statistics, plus the number of backend reads the
// fetcher performed, as a two column table.
func StatsWriter(w io.Writer, s cache.Stats, reads uint64, color bool) {
	rows := [][]string{
		{"entries", humanize.Comma(int64(s.Entries))},
		{"size", fmt.Sprintf("%s of %s", humanize.IBytes(uint64(s.SizeBytes)), humanize.IBytes(uint64(s.MaxBytes)))},
		{"compressed", humanize.Comma(int64(s.Compressed))},
		{"hits", humanize.Comma(int64(s.Hits))},
		{"misses", humanize.Comma(int64(s.Misses))},
		{"hit rate", fmt.Sprintf("%.1f%%", s.HitRate()*100)},
		{"evictions", humanize.Comma(int64(s.Evictions))},
		{"expirations", humanize.Comma(int64(s.Expirations))},
		{"backend reads", humanize.Comma(int64(reads))},
	}
	GridWriter(w, []string{"cache", ""}, rows, color)
}

// EntriesWriter lists the live cache entries, oldest insertion first.
func EntriesWriter(w io.Writer, entries []cache.EntryInfo, color bool) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		packed := "no"
		if e.Compressed {
			packed = "yes"
		}
		rows = append(rows, []string{
			e.Key,
			humanize.IBytes(uint64(e.Size)),
			packed,
			humanize.Time(e.ExpiresAt),
		})
	}
	GridWriter(w, []string{"key", "size", "compressed", "expires"}, rows, color)
}

// GridWriter renders preformatted rows under headers with the same table
// styling as query output.
func GridWriter(w io.Writer, headers []string, rows [][]string, color bool) {
	t := newTable(color).
		Headers(headers...).
		BorderHeader(false).
		Rows(rows...)
	fmt.Fprintln(w, t)
}
