// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/apex/log"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// Compressor is a pair of pure byte transforms. Decompress must reverse
// Compress exactly. Implementations are safe for concurrent use.
type Compressor interface {
	// Name is the identifier accepted by Select.
	Name() string
	// Enabled is false for passthrough implementations. The cache uses it to
	// decide whether an entry is ever recorded as compressed.
	Enabled() bool
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

// Select returns the Compressor registered under name. Unknown names, and
// codecs whose encoder cannot be built, degrade to Noop.
func Select(name string) Compressor {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "off", "noop":
		return Noop{}
	case "zstd":
		z, err := NewZstd()
		if err != nil {
			log.WithError(err).Warn("zstd unavailable, storing uncompressed")
			return Noop{}
		}
		return z
	case "s2":
		return S2{}
	case "gzip":
		return Gzip{Level: gzip.DefaultCompression}
	default:
		log.Warnf("unknown compression %q, storing uncompressed", name)
		return Noop{}
	}
}

// Noop is the passthrough Compressor.
type Noop struct{}

func (Noop) Name() string                          { return "none" }
func (Noop) Enabled() bool                         { return false }
func (Noop) Compress(src []byte) ([]byte, error)   { return src, nil }
func (Noop) Decompress(src []byte) ([]byte, error) { return src, nil }

// Zstd compresses with a shared encoder/decoder pair. EncodeAll and DecodeAll
// are safe to call concurrently.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstd builds the shared zstd encoder and decoder.
func NewZstd() (*Zstd, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

func (z *Zstd) Name() string  { return "zstd" }
func (z *Zstd) Enabled() bool { return true }

func (z *Zstd) Compress(src []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

func (z *Zstd) Decompress(src []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

// S2 is the Snappy-compatible block format. Fast, modest ratio.
type S2 struct{}

func (S2) Name() string  { return "s2" }
func (S2) Enabled() bool { return true }

func (S2) Compress(src []byte) ([]byte, error) {
	return s2.Encode(nil, src), nil
}

func (S2) Decompress(src []byte) ([]byte, error) {
	out, err := s2.Decode(nil, src)
	if err != nil {
		return nil, fmt.Errorf("s2 decode: %w", err)
	}
	return out, nil
}

// Gzip uses the klauspost gzip implementation at the given level.
type Gzip struct {
	Level int
}

func (Gzip) Name() string  { return "gzip" }
func (Gzip) Enabled() bool { return true }

func (g Gzip) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, g.Level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (Gzip) Decompress(src []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return out, nil
}
