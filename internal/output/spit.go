// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
	"gopkg.in/yaml.v2"

	"github.com/staranto/floractl/internal/attrs"
	"github.com/staranto/floractl/internal/config"
	"github.com/staranto/floractl/internal/filters"
)

// SelectDataset returns the part of doc the output works on: the value at
// parent when it exists, otherwise the whole document.
func SelectDataset(doc gjson.Result, parent string) gjson.Result {
	if parent != "" {
		if r := doc.Get(parent); r.Exists() {
			return r
		}
		log.Debugf("parent %q not found, using document root", parent)
	}
	return doc
}

// SliceDiceSpit orchestrates filtering, transforming, sorting and rendering
// of a backend document according to command flags and attribute specs.
func SliceDiceSpit(raw []byte,
	al attrs.AttrList,
	cmd *cli.Command,
	parent string,
	w io.Writer) error {

	if w == nil {
		w = os.Stdout
	}

	// If raw, just dump it and go home.
	output := cmd.String("output")
	if output == "raw" {
		_, err := w.Write(raw)
		return err
	}

	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("backend returned invalid JSON (%d bytes)", len(raw))
	}

	dataset := SelectDataset(gjson.ParseBytes(raw), parent)

	// Filter first so the remaining passes work on fewer rows.
	rows := filters.FilterDataset(dataset, al, cmd.String("filter"))

	if cmd.Bool("local") {
		for a := range al {
			al[a].TransformSpec += "t"
		}
	}

	for _, row := range rows {
		for i := range al {
			attr := &al[i]
			if attr.Key == "*" || attr.TransformSpec == "" {
				continue
			}
			row[attr.OutputKey] = attr.Transform(row[attr.OutputKey])
		}
	}

	SortDataset(rows, cmd.String("sort"))

	switch output {
	case "json":
		out, err := json.Marshal(project(rows, al))
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "yaml":
		out, err := yaml.Marshal(project(rows, al))
		if err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		TableWriter(rows, al, cmd, w)
	}

	return nil
}

// project drops the attributes that were only wanted for filtering and
// sorting.
func project(rows []map[string]interface{}, al attrs.AttrList) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		p := make(map[string]interface{}, len(al))
		for _, attr := range al {
			if attr.Include {
				p[attr.OutputKey] = row[attr.OutputKey]
			}
		}
		out = append(out, p)
	}
	return out
}

// TableWriter renders the result set in a tabular form honoring color,
// titles and padding options.
func TableWriter(
	resultSet []map[string]interface{},
	al attrs.AttrList,
	cmd *cli.Command,
	w io.Writer) {

	if len(resultSet) == 0 {
		return
	}

	var rows [][]string
	for _, result := range resultSet {
		row := make([]string, 0, len(result))
		for _, attr := range al {
			if !attr.Include {
				continue
			}
			row = append(row, InterfaceToString(result[attr.OutputKey], "-"))
		}
		rows = append(rows, row)
	}

	t := newTable(colorEnabled(cmd, w)).Rows(rows...)

	if cmd.Bool("titles") {
		var headers []string
		for _, attr := range al {
			if attr.Include {
				headers = append(headers, attr.OutputKey)
			}
		}

		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(headers...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)
}

// newTable returns a borderless table with alternating row styles.
func newTable(color bool) *table.Table {
	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	pad, _ := config.GetInt("padding", 1)

	return table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		})
}

// colorEnabled honors an explicit --color/--no-color. Otherwise color is on
// only when writing to a terminal.
func colorEnabled(cmd *cli.Command, w io.Writer) bool {
	if cmd.IsSet("color") {
		return cmd.Bool("color")
	}
	return isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(fmt.Sprintf("%s.title", key), "#7bb661")
	even, _ = config.GetString(fmt.Sprintf("%s.even", key), "#ffffff")
	odd, _ = config.GetString(fmt.Sprintf("%s.odd", key), "#c3e88d")
	return
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	switch value := value.(type) {
	case nil:
		return emptyValue[0]
	case string:
		if value == "" {
			return emptyValue[0]
		}
		return value
	case int:
		return strconv.Itoa(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return strings.TrimSpace(string(jsonBytes))
	}
}
