// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/floractl/internal/config"
	"github.com/staranto/floractl/internal/meta"
)

// InitApp builds the command tree. The response cache is created here, once,
// and shared by whichever subcommand runs.
func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	sd, _ := os.Getwd()

	// The arg[1] immediately following the binary (arg[0]) is the floractl
	// subcommand and also represents the namespace key to be used when
	// retrieving config values. arg[1] could be -h/--help, so ignore it if it
	// appears to be a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, err := config.Load(ns)
	if err != nil {
		log.WithError(err).Debug("no config file, using defaults")
	}

	cc := config.CacheSettings()
	m := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		Cache:       cc,
		Store:       NewStore(cc),
		StartingDir: sd,
	}

	app := &cli.Command{
		Name:  "floractl",
		Usage: "query the plant platform backend",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "floractl version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		pqCommandBuilder(m),
		sqCommandBuilder(m),
		oqCommandBuilder(m),
		getCommandBuilder(m),
		batchCommandBuilder(m),
		CompletionCommandBuilder(m),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
