// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package meta

import (
	"context"

	"github.com/staranto/floractl/internal/cache"
	"github.com/staranto/floractl/internal/config"
)

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args    []string
	Config  config.Type
	Context context.Context
	// Cache is the resolved cache section and Store the one store built from
	// it for the life of the process.
	Cache       config.CacheConfig
	Store       *cache.Store
	StartingDir string
}

// Source returns the config file backing flag defaults, or "" when there is
// none.
func (m Meta) Source() string {
	return m.Config.Source
}
