// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/staranto/floractl/internal/api"
	"github.com/staranto/floractl/internal/meta"
)

// oqCommandAction lists observations. The observer and plant are nested
// objects, so the defaults pull single fields out of them.
func oqCommandAction(ctx context.Context, cmd *cli.Command) error {
	runner := &QueryActionRunner{
		CommandName: "oq",
		Resource:    api.Observations,
		DefaultAttrs: []string{
			"id",
			"plant.common_name:plant",
			"observer.name:observer",
			"observed_at",
		},
	}
	return runner.Run(ctx, cmd)
}

// oqCommandBuilder constructs the cli.Command for "oq".
func oqCommandBuilder(meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "oq",
		Usage:     "observation query",
		UsageText: "floractl oq [flags]",
		Action:    oqCommandAction,
		Meta:      meta,
	}).Build()
}
