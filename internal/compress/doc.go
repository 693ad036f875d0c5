// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package compress provides the pluggable compression strategies used by the
// response cache, with a passthrough fallback when no codec is available.
package compress
