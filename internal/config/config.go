// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

const (
	// EnvVar names an explicit config file, bypassing the standard locations.
	EnvVar   = "FLORACTL_CFG"
	fileName = "floractl.yaml"
)

// ErrNoConfig is returned when no config file can be located.
var ErrNoConfig = errors.New("no config file found")

type Type struct {
	Source    string
	Namespace string
	Data      map[string]interface{}
}

var Config Type

func init() {
	_, _ = Load()
}

// Load reads the config file into Config. The optional namespace is usually
// the subcommand; getters try namespace.key before key.
func Load(namespace ...string) (Type, error) {
	ns := ""
	if len(namespace) > 0 {
		ns = namespace[0]
	}

	path, err := getConfigPath()
	if err != nil {
		return Type{Namespace: ns}, err
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		return Type{Namespace: ns}, err
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal(bytes, &data); err != nil {
		return Type{Namespace: ns}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	Config = Type{
		Source:    path,
		Namespace: ns,
		Data:      data,
	}

	return Config, nil
}

// get traverses the map using a dotted key path
func (cfg *Type) get(kspec string) (any, error) {
	candidateKeys := []string{kspec}
	if cfg.Namespace != "" {
		candidateKeys = []string{cfg.Namespace + "." + kspec, kspec}
	}

	for _, key := range candidateKeys {
		keys := strings.Split(key, ".")
		var current interface{} = cfg.Data

		success := true
		for _, key := range keys {
			m, ok := current.(map[string]interface{})
			if !ok {
				success = false
				break
			}
			current, ok = m[key]
			if !ok {
				success = false
				break
			}
		}

		if success {
			return current, nil
		}
	}

	return nil, fmt.Errorf("no valid path found among: %v", candidateKeys)
}

// lookup lazily loads the config and resolves key.
func lookup(key string) (any, error) {
	if len(Config.Data) == 0 {
		ns := Config.Namespace
		_, _ = Load(ns)
	}
	return Config.get(key)
}

func GetString(key string, defaultValue ...string) (string, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return "", err
	}

	s, ok := val.(string)
	if !ok {
		return "", errors.New("value is not a string")
	}

	return s, nil
}

func GetInt(key string, defaultValue ...int) (int, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return 0, err
	}

	// YAML numbers may be unmarshaled as int/float64 depending on content.
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, errors.New("value is not an int")
	}
}

func GetBool(key string, defaultValue ...bool) (bool, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return false, err
	}

	b, ok := val.(bool)
	if !ok {
		return false, errors.New("value is not a bool")
	}

	return b, nil
}

// GetDuration accepts a Go duration string ("90s", "5m") or a bare number of
// milliseconds.
func GetDuration(key string, defaultValue ...time.Duration) (time.Duration, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return 0, err
	}

	switch v := val.(type) {
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v * float64(time.Millisecond)), nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("value is not a duration: %w", err)
		}
		return d, nil
	default:
		return 0, errors.New("value is not a duration")
	}
}

// GetBytes accepts a humanized size ("50MiB", "512 kB") or a bare number of
// bytes.
func GetBytes(key string, defaultValue ...uint64) (uint64, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return 0, err
	}

	switch v := val.(type) {
	case int:
		if v < 0 {
			return 0, errors.New("size must not be negative")
		}
		return uint64(v), nil
	case float64:
		if v < 0 {
			return 0, errors.New("size must not be negative")
		}
		return uint64(v), nil
	case string:
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return 0, fmt.Errorf("value is not a size: %w", err)
		}
		return n, nil
	default:
		return 0, errors.New("value is not a size")
	}
}

// GetStringSlice returns a list of strings. A scalar string is treated as a
// one element list.
func GetStringSlice(key string) ([]string, error) {
	val, err := lookup(key)
	if err != nil {
		return nil, err
	}

	switch v := val.(type) {
	case string:
		return []string{v}, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New("value is not a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.New("value is not a list of strings")
	}
}

func getConfigPath() (string, error) {
	if explicit := os.Getenv(EnvVar); explicit != "" {
		fileInfo, err := os.Stat(explicit)
		if err != nil {
			return "", fmt.Errorf("config file not found: %s: %w", explicit, ErrNoConfig)
		}
		if fileInfo.IsDir() {
			return "", fmt.Errorf("%s points to a directory: %s", EnvVar, explicit)
		}
		log.Debugf("using config file: %s", explicit)
		return explicit, nil
	}

	var candidates []string = []string{
		os.Getenv("XDG_CONFIG_HOME"),
		os.Getenv("APPDATA"),
		os.Getenv("HOME"),
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		file := filepath.Join(c, fileName)
		if fileInfo, err := os.Stat(file); err == nil {
			if !fileInfo.IsDir() {
				log.Debugf("using config file: %s", file)
				return file, nil
			}
		}
	}
	return "", ErrNoConfig
}
