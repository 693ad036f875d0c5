// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/staranto/floractl/internal/api"
	"github.com/staranto/floractl/internal/meta"
)

// pqCommandAction is the action handler for the "pq" subcommand. It lists
// plants, supports --tldr/--schema short-circuit behavior, and emits output
// per common flags.
func pqCommandAction(ctx context.Context, cmd *cli.Command) error {
	runner := &QueryActionRunner{
		CommandName:  "pq",
		Resource:     api.Plants,
		DefaultAttrs: []string{"id", "common_name", "scientific_name"},
	}
	return runner.Run(ctx, cmd)
}

// pqCommandBuilder constructs the cli.Command for "pq", wiring metadata,
// flags, and action handlers.
func pqCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "pq",
		Usage:     "plant query",
		UsageText: "floractl pq [flags]",
		Action:    pqCommandAction,
		Meta:      meta,
	}).Build()
}
