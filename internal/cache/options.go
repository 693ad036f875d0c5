// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/staranto/floractl/internal/compress"
)

const (
	// DefaultMaxBytes is the aggregate payload budget when none is configured.
	DefaultMaxBytes int64 = 50 << 20
	// DefaultTTL applies to Set calls that pass a ttl <= 0.
	DefaultTTL = 5 * time.Minute
	// DefaultCompressionThreshold is the encoded size above which a value is
	// offered to the compressor.
	DefaultCompressionThreshold = 1024
)

// options holds the construction-time configuration of a Store.
type options struct {
	maxBytes   int64
	ttl        time.Duration
	threshold  int
	compressor compress.Compressor
	clock      clock.Clock
}

// Option customizes a Store. Default behavior (no options) is a 50 MiB budget,
// a five minute TTL, a 1 KiB compression threshold, no compression and the
// wall clock.
type Option func(*options)

// WithMaxBytes sets the byte budget. Values <= 0 keep the default.
func WithMaxBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// WithDefaultTTL sets the TTL used when Set is called with ttl <= 0.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithCompressionThreshold sets the encoded size, in bytes, that must be
// exceeded before compression is attempted. Negative values keep the default.
func WithCompressionThreshold(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.threshold = n
		}
	}
}

// WithCompressor injects the compression strategy. nil means compress.Noop.
func WithCompressor(c compress.Compressor) Option {
	return func(o *options) {
		if c != nil {
			o.compressor = c
		}
	}
}

// WithClock injects the time source. Tests pass clock.NewMock().
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func defaultOptions() options {
	return options{
		maxBytes:   DefaultMaxBytes,
		ttl:        DefaultTTL,
		threshold:  DefaultCompressionThreshold,
		compressor: compress.Noop{},
		clock:      clock.New(),
	}
}
