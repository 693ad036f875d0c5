// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/floractl/internal/api"
	"github.com/staranto/floractl/internal/cache"
	"github.com/staranto/floractl/internal/compress"
	"github.com/staranto/floractl/internal/config"
	"github.com/staranto/floractl/internal/fetch"
	"github.com/staranto/floractl/internal/output"
)

// NewStore builds the process-wide response cache from the cache section of
// the config file.
func NewStore(cc config.CacheConfig) *cache.Store {
	return cache.New(
		cache.WithMaxBytes(int64(cc.Budget)),
		cache.WithDefaultTTL(cc.TTL),
		cache.WithCompressionThreshold(cc.Threshold),
		cache.WithCompressor(compress.Select(cc.Compression)),
	)
}

// NewClient wires the HTTP reader named by --host/--token to the shared
// store through a Fetcher. --ttl and --cache apply to every read the client
// makes.
func NewClient(cmd *cli.Command) *api.Client {
	m := GetMeta(cmd)

	store := m.Store
	if store == nil {
		store = NewStore(m.Cache)
	}

	reader := fetch.NewHTTPReader(
		fetch.WithBaseURL(cmd.String("host")),
		fetch.WithToken(cmd.String("token")),
	)
	log.Debugf("backend: %s", reader.BaseURL())

	opts := []fetch.Option{fetch.WithDefaultTTL(m.Cache.TTL)}
	if m.Cache.SingleFlight {
		opts = append(opts, fetch.WithSingleFlight())
	}

	return api.NewClient(
		fetch.New(store, reader, opts...),
		api.WithTTL(cmd.Duration("ttl")),
		api.WithCache(cmd.Bool("cache")),
	)
}

// ReportStats prints the cache statistics and the live entries to stderr
// when --stats is set. Expired entries are swept first so they show up as
// expirations rather than as entries.
func ReportStats(cmd *cli.Command, client *api.Client) {
	if !cmd.Bool("stats") {
		return
	}
	f := client.Fetcher()
	store := f.Store()
	if n := store.Purge(); n > 0 {
		log.Debugf("cache: purged %d expired entries", n)
	}

	w, color := stderr(cmd), cmd.Bool("color")
	output.StatsWriter(w, store.Stats(), f.Reads(), color)
	output.EntriesWriter(w, store.Entries(), color)
}
