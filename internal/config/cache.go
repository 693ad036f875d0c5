// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"

	"github.com/apex/log"
)

// Defaults for the cache section.
const (
	DefaultCacheBudget    uint64 = 50 << 20
	DefaultCacheTTL              = 5 * time.Minute
	DefaultCacheThreshold        = 1024
	DefaultCompression           = "zstd"
)

// CacheConfig is the resolved cache section of the config file.
//
//	cache:
//	  enabled: true
//	  budget: 50MiB
//	  ttl: 5m
//	  threshold: 1024
//	  compression: zstd
//	  singleflight: true
type CacheConfig struct {
	Enabled      bool
	Budget       uint64
	TTL          time.Duration
	Threshold    int
	Compression  string
	SingleFlight bool
}

// CacheSettings resolves the cache section, falling back to defaults for
// anything missing or malformed.
func CacheSettings() CacheConfig {
	cc := CacheConfig{
		Enabled:      true,
		Budget:       DefaultCacheBudget,
		TTL:          DefaultCacheTTL,
		Threshold:    DefaultCacheThreshold,
		Compression:  DefaultCompression,
		SingleFlight: true,
	}

	if v, err := GetBool("cache.enabled", cc.Enabled); err == nil {
		cc.Enabled = v
	} else {
		log.Warnf("cache.enabled: %v", err)
	}
	if v, err := GetBytes("cache.budget", cc.Budget); err == nil && v > 0 {
		cc.Budget = v
	} else if err != nil {
		log.Warnf("cache.budget: %v", err)
	}
	if v, err := GetDuration("cache.ttl", cc.TTL); err == nil && v > 0 {
		cc.TTL = v
	} else if err != nil {
		log.Warnf("cache.ttl: %v", err)
	}
	if v, err := GetInt("cache.threshold", cc.Threshold); err == nil && v >= 0 {
		cc.Threshold = v
	} else if err != nil {
		log.Warnf("cache.threshold: %v", err)
	}
	if v, err := GetString("cache.compression", cc.Compression); err == nil {
		cc.Compression = v
	} else {
		log.Warnf("cache.compression: %v", err)
	}
	if v, err := GetBool("cache.singleflight", cc.SingleFlight); err == nil {
		cc.SingleFlight = v
	} else {
		log.Warnf("cache.singleflight: %v", err)
	}

	log.Debugf("cache settings: %+v", cc)
	return cc
}
