// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package fetch puts the response cache in front of backend reads. Fetcher
// derives a canonical key from a resource path and its query parameters and
// serves hits from the store; HTTPReader is the retrying HTTP client used for
// misses.
package fetch
