// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/floractl/internal/api"
	"github.com/staranto/floractl/internal/attrs"
	"github.com/staranto/floractl/internal/filters"
	"github.com/staranto/floractl/internal/meta"
	"github.com/staranto/floractl/internal/output"
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr floractl <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "floractl", subcmd)
			c.Stdout = stdout(cmd)
			c.Stderr = stderr(cmd)
			_ = c.Run()
		}
		return true
	}
	return false
}

// BuildAttrs constructs an AttrList with defaults and optional extras from
// --attrs, then applies the global transform spec.
func BuildAttrs(cmd *cli.Command, defaults ...string) (al attrs.AttrList, err error) {
	for _, d := range defaults {
		if err = al.Set(d); err != nil {
			return nil, err
		}
	}
	if extras := cmd.String("attrs"); extras != "" {
		if err = al.Set(extras); err != nil {
			return nil, fmt.Errorf("invalid --attrs: %w", err)
		}
	}
	err = al.SetGlobalTransformSpec()
	return
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// QueryParams merges the server filters of --filter with every --param into
// the query sent to the backend. --param wins when both name a key.
func QueryParams(cmd *cli.Command) url.Values {
	q := filters.ServerParams(cmd.String("filter"))
	for _, p := range cmd.StringSlice("param") {
		k, v, _ := strings.Cut(p, "=")
		q.Set(strings.TrimSpace(k), v)
	}
	return q
}

// QueryCommandBuilder is a helper that constructs a cli.Command for the list
// query subcommands (pq, sq, oq) using a consistent pattern. The builder
// wires metadata, adds the tldr/schema/param flags, applies the global and
// fetch flags, and sets up the action.
type QueryCommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (qcb *QueryCommandBuilder) Build() *cli.Command {
	flags := append(qcb.Flags, NewTldrFlag(), NewSchemaFlag(), NewParamFlag())
	flags = append(flags, NewGlobalFlags(qcb.Name, qcb.Meta.Source())...)
	flags = append(flags, NewFetchFlags(qcb.Name, qcb.Meta)...)

	return &cli.Command{
		Name:      qcb.Name,
		Usage:     qcb.Usage,
		UsageText: qcb.UsageText,
		Metadata: map[string]any{
			"meta": qcb.Meta,
		},
		Flags:  flags,
		Action: qcb.Action,
	}
}

// QueryActionRunner encapsulates the action shared by the list query
// subcommands: short-circuit checks, attrs, collecting every page of
// Resource through the cache, and output emission.
type QueryActionRunner struct {
	CommandName  string
	Resource     string
	DefaultAttrs []string
}

// Run executes the query action with the provided context and command.
func (qar *QueryActionRunner) Run(ctx context.Context, cmd *cli.Command) error {
	log.Debugf("Executing action for %s %v", qar.CommandName, cmd.Args().Slice())

	if ShortCircuitTLDR(ctx, cmd, qar.CommandName) {
		return nil
	}

	al, err := BuildAttrs(cmd, qar.DefaultAttrs...)
	if err != nil {
		return err
	}
	log.Debugf("attrs: %v", al)

	client := NewClient(cmd)
	defer ReportStats(cmd, client)

	items, err := client.List(ctx, qar.Resource, QueryParams(cmd))
	if err != nil {
		return err
	}
	if items == nil {
		items = []json.RawMessage{}
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", qar.Resource, err)
	}

	if cmd.Bool("schema") {
		return output.DumpSchema(raw, "", stdout(cmd))
	}
	return output.SliceDiceSpit(raw, al, cmd, "", stdout(cmd))
}

// stdout is where command output goes. Tests swap the root Writer.
func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stderr(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
