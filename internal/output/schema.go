// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/tidwall/gjson"
)

const maxSchemaDepth = 2

// DumpSchema lists the attribute paths found in the first item of the dataset
// selected by parent, in a form usable with --attrs, --filter and --sort.
func DumpSchema(raw []byte, parent string, w io.Writer) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("backend returned invalid JSON (%d bytes)", len(raw))
	}

	dataset := SelectDataset(gjson.ParseBytes(raw), parent)
	sample := dataset
	if dataset.IsArray() {
		items := dataset.Array()
		if len(items) == 0 {
			fmt.Fprintln(w, "No items to derive a schema from.")
			return nil
		}
		sample = items[0]
	}

	paths := schemaWalker("", sample, 0)
	sort.Strings(paths)

	for _, p := range paths {
		fmt.Fprintln(w, p)
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w,
		`Attributes available to --attrs, --filter and --sort. Nested values use
dot notation; array elements use # (for example images.#.url).`)
	return nil
}

// schemaWalker collects "path type" lines for every key of an object,
// descending into objects and arrays of objects up to maxSchemaDepth.
func schemaWalker(prefix string, r gjson.Result, depth int) []string {
	var paths []string

	r.ForEach(func(key, value gjson.Result) bool {
		path := key.String()
		if prefix != "" {
			path = prefix + "." + path
		}
		paths = append(paths, fmt.Sprintf("%s %s", path, kind(value)))

		if depth >= maxSchemaDepth {
			return true
		}
		switch {
		case value.IsObject():
			paths = append(paths, schemaWalker(path, value, depth+1)...)
		case value.IsArray():
			if first := value.Get("0"); first.IsObject() {
				paths = append(paths, schemaWalker(path+".#", first, depth+1)...)
			}
		}
		return true
	})

	return paths
}

func kind(r gjson.Result) string {
	switch {
	case r.IsObject():
		return "object"
	case r.IsArray():
		return "array"
	case r.Type == gjson.Number:
		return "number"
	case r.Type == gjson.True, r.Type == gjson.False:
		return "bool"
	case r.Type == gjson.Null:
		return "null"
	default:
		return "string"
	}
}
