// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestConfig sets FLORACTL_CFG to point to a test config file.
// Returns cleanup function that should be deferred.
func setupTestConfig(t *testing.T, testdataFile string) (cleanup func()) {
	t.Helper()

	configPath := filepath.Join("testdata", testdataFile)
	absPath, err := filepath.Abs(configPath)
	assert.NoError(t, err, "failed to get absolute path for test config")

	t.Setenv(EnvVar, absPath)

	// Reset the global Config to force reload
	Config = Type{}

	return func() {
		Config = Type{}
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		testFile  string
		wantErr   bool
		checkFunc func(*testing.T, Type)
	}{
		{
			name:     "simple string values",
			testFile: "simple.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				assert.NotEmpty(t, cfg.Source)
				assert.Equal(t, "api.floraverse.app", cfg.Data["host"])
				assert.Equal(t, "text", cfg.Data["output"])
			},
		},
		{
			name:     "nested structure",
			testFile: "nested.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				pq, ok := cfg.Data["pq"].(map[string]interface{})
				assert.True(t, ok, "pq should be a map")
				assert.Equal(t, "plants.example.com", pq["host"])
				assert.Equal(t, 50, pq["page_size"])
			},
		},
		{
			name:     "mixed types",
			testFile: "mixed-types.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				assert.Equal(t, "greenhouse", cfg.Data["name"])
				assert.Equal(t, 1, cfg.Data["version"])
				assert.Equal(t, true, cfg.Data["enabled"])
				assert.Equal(t, 30.5, cfg.Data["timeout"])
				tags, ok := cfg.Data["tags"].([]interface{})
				assert.True(t, ok)
				assert.Len(t, tags, 2)
			},
		},
		{
			name:     "empty file",
			testFile: "empty.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				// Empty YAML unmarshals to nil map, which is acceptable
				assert.NotEmpty(t, cfg.Source, "should have a source path")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestConfig(t, tt.testFile)
			defer cleanup()

			cfg, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Setenv(EnvVar, "/nonexistent/path/floractl.yaml")
	Config = Type{}

	_, err := Load()
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrNoConfig)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_StandardLocations(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvVar, "")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("APPDATA", "")
	t.Setenv("HOME", dir)
	Config = Type{}
	defer func() { Config = Type{} }()

	_, err := Load()
	assert.ErrorIs(t, err, ErrNoConfig)

	src, err := filepath.Abs(filepath.Join("testdata", "simple.yaml"))
	require.NoError(t, err)
	require.NoError(t, copyFile(src, filepath.Join(dir, "floractl.yaml")))

	cfg, err := Load("pq")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "floractl.yaml"), cfg.Source)
	assert.Equal(t, "pq", cfg.Namespace)
}

func TestLoad_CFG_IsDirectory(t *testing.T) {
	t.Setenv(EnvVar, "testdata")
	Config = Type{}

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "points to a directory")
}

func TestGetString(t *testing.T) {
	tests := []struct {
		name         string
		testFile     string
		key          string
		defaultValue []string
		want         string
		wantErr      bool
	}{
		{
			name:     "simple string value",
			testFile: "simple.yaml",
			key:      "host",
			want:     "api.floraverse.app",
		},
		{
			name:     "nested string value",
			testFile: "nested.yaml",
			key:      "sq.host",
			want:     "species.example.com",
		},
		{
			name:         "missing key with default",
			testFile:     "simple.yaml",
			key:          "missing",
			defaultValue: []string{"default-value"},
			want:         "default-value",
		},
		{
			name:     "missing key without default",
			testFile: "simple.yaml",
			key:      "missing",
			wantErr:  true,
		},
		{
			name:     "non-string value",
			testFile: "mixed-types.yaml",
			key:      "version",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestConfig(t, tt.testFile)
			defer cleanup()

			_, _ = Load()

			got, err := GetString(tt.key, tt.defaultValue...)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetInt(t *testing.T) {
	tests := []struct {
		name         string
		testFile     string
		key          string
		defaultValue []int
		want         int
		wantErr      bool
	}{
		{name: "int value", testFile: "mixed-types.yaml", key: "version", want: 1},
		{name: "float value converted to int", testFile: "mixed-types.yaml", key: "timeout", want: 30},
		{name: "nested int value", testFile: "nested.yaml", key: "pq.page_size", want: 50},
		{name: "missing key with default", testFile: "simple.yaml", key: "missing", defaultValue: []int{60}, want: 60},
		{name: "missing key without default", testFile: "simple.yaml", key: "missing", wantErr: true},
		{name: "non-int value", testFile: "simple.yaml", key: "host", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestConfig(t, tt.testFile)
			defer cleanup()

			_, _ = Load()

			got, err := GetInt(tt.key, tt.defaultValue...)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetBool(t *testing.T) {
	cleanup := setupTestConfig(t, "mixed-types.yaml")
	defer cleanup()

	got, err := GetBool("enabled")
	assert.NoError(t, err)
	assert.True(t, got)

	got, err = GetBool("missing", true)
	assert.NoError(t, err)
	assert.True(t, got)

	_, err = GetBool("name")
	assert.Error(t, err)
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		name     string
		testFile string
		key      string
		want     time.Duration
		wantErr  bool
	}{
		{name: "duration string", testFile: "cache.yaml", key: "cache.ttl", want: 90 * time.Second},
		{name: "milliseconds", testFile: "cache-numeric.yaml", key: "cache.ttl", want: 1500 * time.Millisecond},
		{name: "unparseable", testFile: "cache-malformed.yaml", key: "cache.ttl", wantErr: true},
		{name: "wrong type", testFile: "mixed-types.yaml", key: "enabled", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestConfig(t, tt.testFile)
			defer cleanup()

			got, err := GetDuration(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetBytes(t *testing.T) {
	tests := []struct {
		name     string
		testFile string
		key      string
		want     uint64
		wantErr  bool
	}{
		{name: "humanized", testFile: "cache.yaml", key: "cache.budget", want: 2 << 20},
		{name: "plain number", testFile: "cache-numeric.yaml", key: "cache.budget", want: 4096},
		{name: "unparseable", testFile: "cache-malformed.yaml", key: "cache.budget", wantErr: true},
		{name: "negative", testFile: "cache-malformed.yaml", key: "cache.threshold", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestConfig(t, tt.testFile)
			defer cleanup()

			got, err := GetBytes(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetStringSlice(t *testing.T) {
	cleanup := setupTestConfig(t, "cache.yaml")
	defer cleanup()

	got, err := GetStringSlice("pq.defaults")
	assert.NoError(t, err)
	assert.Equal(t, []string{"--attrs common_name,genus", "--sort genus"}, got)

	got, err = GetStringSlice("pq.wide")
	assert.NoError(t, err)
	assert.Equal(t, []string{"--attrs common_name,genus,family,habit"}, got)

	_, err = GetStringSlice("cache.threshold")
	assert.Error(t, err)
}

func TestConfig_GetWithNamespace(t *testing.T) {
	cleanup := setupTestConfig(t, "nested.yaml")
	defer cleanup()

	_, err := Load()
	assert.NoError(t, err)

	Config.Namespace = "pq"

	val, err := Config.get("host")
	assert.NoError(t, err)
	assert.Equal(t, "plants.example.com", val)

	val, err = Config.get("sort")
	assert.NoError(t, err)
	assert.Equal(t, "name", val)

	Config.Namespace = "sq"
	val, err = Config.get("sort")
	assert.NoError(t, err)
	assert.Equal(t, "-family", val)

	// Falls back to the root when the namespace lacks the key.
	Config.Namespace = "oq"
	val, err = Config.get("sort")
	assert.NoError(t, err)
	assert.Equal(t, "id", val)
}

func TestConfig_LazyLoad(t *testing.T) {
	cleanup := setupTestConfig(t, "simple.yaml")
	defer cleanup()

	// No explicit Load(); GetString loads on first use.
	val, err := GetString("host")
	assert.NoError(t, err)
	assert.Equal(t, "api.floraverse.app", val)
	assert.NotEmpty(t, Config.Source, "Config should be loaded")
}

func TestCacheSettings(t *testing.T) {
	tests := []struct {
		name     string
		testFile string
		want     CacheConfig
	}{
		{
			name:     "no cache section",
			testFile: "simple.yaml",
			want: CacheConfig{
				Enabled:      true,
				Budget:       DefaultCacheBudget,
				TTL:          DefaultCacheTTL,
				Threshold:    DefaultCacheThreshold,
				Compression:  DefaultCompression,
				SingleFlight: true,
			},
		},
		{
			name:     "everything set",
			testFile: "cache.yaml",
			want: CacheConfig{
				Enabled:      false,
				Budget:       2 << 20,
				TTL:          90 * time.Second,
				Threshold:    512,
				Compression:  "s2",
				SingleFlight: false,
			},
		},
		{
			name:     "malformed values keep defaults",
			testFile: "cache-malformed.yaml",
			want: CacheConfig{
				Enabled:      true,
				Budget:       DefaultCacheBudget,
				TTL:          DefaultCacheTTL,
				Threshold:    DefaultCacheThreshold,
				Compression:  DefaultCompression,
				SingleFlight: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestConfig(t, tt.testFile)
			defer cleanup()

			assert.Equal(t, tt.want, CacheSettings())
		})
	}
}
