// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package cache is the in-process response cache that sits under every
// backend read. A Store holds msgpack-encoded values under a global byte
// budget, expires them lazily by TTL, optionally compresses large entries and
// evicts the oldest insertions first when the budget would be exceeded.
//
// Eviction is by insertion time, not recency: an entry that is read often
// but was inserted early is still the first to go.
package cache
