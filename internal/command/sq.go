// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/staranto/floractl/internal/api"
	"github.com/staranto/floractl/internal/meta"
)

func sqCommandAction(ctx context.Context, cmd *cli.Command) error {
	runner := &QueryActionRunner{
		CommandName:  "sq",
		Resource:     api.Species,
		DefaultAttrs: []string{"id", "scientific_name", "family"},
	}
	return runner.Run(ctx, cmd)
}

// sqCommandBuilder constructs the cli.Command for "sq", the species query.
func sqCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "sq",
		Usage:     "species query",
		UsageText: "floractl sq [flags]",
		Action:    sqCommandAction,
		Meta:      meta,
	}).Build()
}
