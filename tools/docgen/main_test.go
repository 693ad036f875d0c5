// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = "# floractl pq\n\n" +
	"## Short description\n\n" +
	"List plants from the backend.\nResults are cached.\n\n" +
	"## Quick examples\n\n" +
	"```sh\n" +
	"# List oaks\n" +
	"floractl pq  --filter family=Fagaceae\n" +
	"\n" +
	"floractl pq --stats\n" +
	"```\n"

func TestTitleAndShortDesc(t *testing.T) {
	title, short := titleAndShortDesc(samplePage)
	assert.Equal(t, "floractl pq", title)
	assert.Equal(t, "List plants from the backend. Results are cached.", short)

	title, short = titleAndShortDesc("# floractl get\n\nNo sections here.\n")
	assert.Equal(t, "floractl get", title)
	assert.Equal(t, "floractl get.", short)
}

func TestQuickExamples(t *testing.T) {
	exs := quickExamples(samplePage)
	assert.Equal(t, []example{
		{Desc: "List oaks", Cmd: "floractl pq --filter family=Fagaceae"},
		{Desc: "Example", Cmd: "floractl pq --stats"},
	}, exs)

	assert.Nil(t, quickExamples("# nothing\n"))
}

func TestBuildTLDR(t *testing.T) {
	got := buildTLDR("pq", "floractl pq", "List plants.", []example{{Desc: "List", Cmd: "floractl pq"}})
	assert.Equal(t, "# floractl-pq\n\n> List plants.\n> More information: "+projectURL+".\n\n- List:\n\n`floractl pq`\n", got)

	got = buildTLDR("get", "", "", nil)
	assert.Contains(t, got, "> floractl get\n")
	assert.Contains(t, got, "`floractl get --help`")
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	commands := filepath.Join(root, "docs", "commands")
	require.NoError(t, os.MkdirAll(commands, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(commands, "pq.md"), []byte(samplePage), 0o644))

	n, err := run(root, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.FileExists(t, filepath.Join(root, "docs", "man", "share", "man1", "floractl-pq.1"))
	tldr, err := os.ReadFile(filepath.Join(root, "docs", "tldr", "floractl-pq.md"))
	require.NoError(t, err)
	assert.Contains(t, string(tldr), "`floractl pq --filter family=Fagaceae`")

	_, err = run(t.TempDir(), true)
	assert.Error(t, err)
}
