// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
)

// docgen turns docs/commands/<cmd>.md into
//   - docs/man/share/man1/floractl-<cmd>.1 (md2man of the whole page)
//   - docs/tldr/floractl-<cmd>.md (short description plus quick examples)
//
// The tldr pages are what `floractl <cmd> --tldr` shows.

const projectURL = "https://github.com/staranto/floractl"

func main() {
	var (
		root          string
		onlyIfChanged bool
	)
	flag.StringVar(&root, "root", ".", "repo root")
	flag.BoolVar(&onlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	n, err := run(root, onlyIfChanged)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("generated docs for %d commands\n", n)
}

func run(root string, onlyIfChanged bool) (int, error) {
	var (
		commandsDir = filepath.Join(root, "docs", "commands")
		manDir      = filepath.Join(root, "docs", "man", "share", "man1")
		tldrDir     = filepath.Join(root, "docs", "tldr")
	)

	for _, dir := range []string{manDir, tldrDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	entries, err := os.ReadDir(commandsDir)
	if err != nil {
		return 0, fmt.Errorf("reading commands dir %s: %w", commandsDir, err)
	}

	processed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		cmd := strings.TrimSuffix(e.Name(), ".md")

		raw, err := os.ReadFile(filepath.Join(commandsDir, e.Name()))
		if err != nil {
			return processed, err
		}

		manPath := filepath.Join(manDir, fmt.Sprintf("floractl-%s.1", cmd))
		if err := writeFileIfChanged(manPath, md2man.Render(raw), onlyIfChanged); err != nil {
			return processed, fmt.Errorf("writing man page for %s: %w", cmd, err)
		}

		page := string(raw)
		title, short := titleAndShortDesc(page)
		tldr := buildTLDR(cmd, title, short, quickExamples(page))
		tldrPath := filepath.Join(tldrDir, fmt.Sprintf("floractl-%s.md", cmd))
		if err := writeFileIfChanged(tldrPath, []byte(tldr), onlyIfChanged); err != nil {
			return processed, fmt.Errorf("writing tldr page for %s: %w", cmd, err)
		}

		processed++
	}

	if processed == 0 {
		return 0, fmt.Errorf("no command markdown found under %s", commandsDir)
	}
	return processed, nil
}

func writeFileIfChanged(path string, content []byte, onlyIfChanged bool) error {
	if onlyIfChanged {
		old, err := os.ReadFile(path)
		switch {
		case err == nil && bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(content)):
			return nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return err
		}
	}
	return os.WriteFile(path, content, 0o644)
}

var h1Re = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// titleAndShortDesc returns the first H1 and the first paragraph under the
// "Short description" heading.
func titleAndShortDesc(md string) (title, short string) {
	if m := h1Re.FindStringSubmatch(md); m != nil {
		title = strings.TrimSpace(m[1])
	}

	idx := strings.Index(strings.ToLower(md), "short description")
	if idx >= 0 {
		rest := md[idx:]
		if nl := strings.Index(rest, "\n"); nl >= 0 {
			rest = rest[nl+1:]
		} else {
			rest = ""
		}

		var para []string
		for _, ln := range strings.Split(rest, "\n") {
			ln = strings.TrimSpace(ln)
			if ln == "" {
				if len(para) > 0 {
					break
				}
				continue
			}
			if strings.HasPrefix(ln, "#") {
				break
			}
			para = append(para, ln)
		}
		short = strings.Join(para, " ")
	}

	if short == "" && title != "" {
		short = title + "."
	}
	return
}

type example struct {
	Desc string
	Cmd  string
}

// quickExamples reads the first fenced block after "Quick examples". A
// "# ..." line describes the command line that follows it.
func quickExamples(md string) []example {
	idx := strings.Index(strings.ToLower(md), "quick examples")
	if idx < 0 {
		return nil
	}

	const fence = "```"
	rest := md[idx:]
	start := strings.Index(rest, fence)
	if start < 0 {
		return nil
	}
	rest = rest[start+len(fence):]
	// Skip an info string such as ```sh.
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, fence)
	if end < 0 {
		return nil
	}

	var (
		exs  []example
		desc string
	)
	for _, ln := range strings.Split(rest[:end], "\n") {
		ln = strings.TrimSpace(ln)
		switch {
		case ln == "":
		case strings.HasPrefix(ln, "#"):
			desc = strings.TrimSpace(strings.TrimPrefix(ln, "#"))
		default:
			if desc == "" {
				desc = "Example"
			}
			exs = append(exs, example{Desc: desc, Cmd: strings.Join(strings.Fields(ln), " ")})
			desc = ""
		}
	}
	return exs
}

func buildTLDR(cmd, title, short string, exs []example) string {
	var b strings.Builder

	b.WriteString("# floractl-" + cmd + "\n\n")
	switch {
	case short != "":
		b.WriteString("> " + short + "\n")
	case title != "":
		b.WriteString("> " + title + "\n")
	default:
		b.WriteString("> floractl " + cmd + "\n")
	}
	b.WriteString("> More information: " + projectURL + ".\n\n")

	if len(exs) == 0 {
		exs = []example{{Desc: "Show help for the command", Cmd: "floractl " + cmd + " --help"}}
	}

	for i, ex := range exs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + ex.Desc + ":\n\n")
		b.WriteString("`" + ex.Cmd + "`\n")
	}
	return b.String()
}
