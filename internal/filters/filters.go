// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"

	"github.com/staranto/floractl/internal/attrs"
)

// DelimEnvVar overrides the "," that separates filter specs.
const DelimEnvVar = "FLORACTL_FILTER_DELIM"

// filterRegex splits a spec into key, operand and target. The operand is one
// of = ^ ~ < > @ / with an optional leading '!'.
var filterRegex = regexp.MustCompile(`^(.*?)(!?[=^~<>@/])(.*)$`)

// Filter is one parsed --filter expression.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

// Server reports whether the filter is meant for the backend rather than for
// local evaluation. Server filters are spelled with a leading underscore.
func (f Filter) Server() bool {
	return strings.HasPrefix(f.Key, "_")
}

// BuildFilters parses a filter specification string into a slice of Filter.
// Malformed specs are logged and skipped.
func BuildFilters(spec string) []Filter {
	//nolint:prealloc
	var filters []Filter

	if spec == "" {
		return filters
	}

	delim := ","
	if d, ok := os.LookupEnv(DelimEnvVar); ok && d != "" {
		delim = d
	}

	for _, filterSpec := range strings.Split(spec, delim) {
		parts := filterRegex.FindStringSubmatch(filterSpec)
		if parts == nil || parts[1] == "" {
			log.Error("invalid filter: " + filterSpec)
			continue
		}

		operand := parts[2]
		negate := strings.HasPrefix(operand, "!")

		filters = append(filters, Filter{
			Key:     parts[1],
			Negate:  negate,
			Operand: strings.TrimPrefix(operand, "!"),
			Target:  parts[3],
		})
	}

	return filters
}

// ServerParams turns the server filters in spec into query parameters. Only
// plain equality can be expressed; anything else is logged and dropped.
func ServerParams(spec string) url.Values {
	params := url.Values{}
	for _, f := range BuildFilters(spec) {
		if !f.Server() {
			continue
		}
		if f.Operand != "=" || f.Negate {
			log.Warnf("server filter %s only supports '=', ignoring", f.Key)
			continue
		}
		params.Add(strings.TrimPrefix(f.Key, "_"), f.Target)
	}
	return params
}

// FilterDataset returns the candidates that pass spec, each reduced to the
// attrs in the list. A single object is treated as a one row dataset.
// Transforms are left to the output phase.
func FilterDataset(candidates gjson.Result, al attrs.AttrList, spec string) []map[string]interface{} {
	//nolint:prealloc
	var filtered []map[string]interface{}

	filters := BuildFilters(spec)

	rows := candidates.Array()
	if candidates.IsObject() {
		rows = []gjson.Result{candidates}
	}

	for _, candidate := range rows {
		if !applyFilters(candidate, al, filters) {
			continue
		}

		row := make(map[string]interface{}, len(al))
		for _, attr := range al {
			if attr.Key == "*" {
				continue
			}
			row[attr.OutputKey] = candidate.Get(attr.Key).Value()
		}
		filtered = append(filtered, row)
	}

	return filtered
}

// resolveKey maps a filter key, which names an output column, back to the
// gjson path it was extracted from.
func resolveKey(al attrs.AttrList, key string) (string, bool) {
	for _, attr := range al {
		if attr.OutputKey == key || attr.Key == key {
			return attr.Key, true
		}
	}
	return "", false
}

// applyFilters reports whether candidate satisfies every local filter.
func applyFilters(candidate gjson.Result, al attrs.AttrList, filters []Filter) bool {
	for _, filter := range filters {
		if filter.Server() {
			continue
		}

		key, ok := resolveKey(al, filter.Key)
		if !ok {
			msg := fmt.Sprintf("filter key not found: %s", filter.Key)
			log.Error(msg)
			fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
			continue
		}

		value := candidate.Get(key).Value()
		if value == nil {
			return false
		}

		pass := true
		switch v := value.(type) {
		case string:
			pass = checkStringOperand(v, filter)
		case bool:
			pass = checkStringOperand(strconv.FormatBool(v), filter)
		case float64:
			pass = checkNumericOperand(v, filter)
		default:
			if filter.Operand == "@" {
				pass = checkContainsOperand(value, filter)
			}
		}

		if !pass {
			return false
		}
	}

	return true
}

// checkContainsOperand handles '@' against arrays (element equality) and
// objects (key presence).
func checkContainsOperand(value interface{}, filter Filter) bool {
	var found bool

	switch val := value.(type) {
	case []interface{}:
		for _, item := range val {
			if fmt.Sprint(item) == filter.Target {
				found = true
				break
			}
		}
	case map[string]interface{}:
		_, found = val[filter.Target]
	default:
		log.Error(fmt.Sprintf("unsupported type for contains filtering: %T", value))
		return false
	}

	return found != filter.Negate
}

// checkNumericOperand compares numerically. Only =, > and < make sense here.
func checkNumericOperand(value float64, filter Filter) bool {
	tgt, err := strconv.ParseFloat(strings.TrimSpace(filter.Target), 64)
	if err != nil {
		log.Error("invalid numeric target: " + filter.Target)
		return false
	}

	var match bool
	switch filter.Operand {
	case "=":
		match = value == tgt
	case ">":
		match = value > tgt
	case "<":
		match = value < tgt
	default:
		log.Error("unsupported numeric operand: " + filter.Operand)
		return false
	}

	return match != filter.Negate
}

// checkStringOperand evaluates every operand against a string value.
func checkStringOperand(value string, filter Filter) bool {
	var match bool

	switch filter.Operand {
	case "=":
		match = value == filter.Target
	case "~":
		match = strings.EqualFold(value, filter.Target)
	case "^":
		match = strings.HasPrefix(value, filter.Target)
	case ">":
		match = value > filter.Target
	case "<":
		match = value < filter.Target
	case "@":
		match = strings.Contains(value, filter.Target)
	case "/":
		re, err := regexp.Compile(filter.Target)
		if err != nil {
			log.Error("invalid regex: " + filter.Target)
			return false
		}
		match = re.MatchString(value)
	default:
		log.Error("unsupported filtering operand: " + filter.Operand)
		return false
	}

	return match != filter.Negate
}
