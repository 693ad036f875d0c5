// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/staranto/floractl/internal/meta"
	"github.com/staranto/floractl/internal/output"
)

// getCommandAction reads any resource path. Trailing k=v args are added to
// the query. Without --attrs the top level scalars of the first item are
// shown.
func getCommandAction(ctx context.Context, cmd *cli.Command) error {
	if ShortCircuitTLDR(ctx, cmd, "get") {
		return nil
	}

	args := cmd.Args().Slice()
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return errors.New("get: resource path required")
	}
	resource := args[0]

	q := QueryParams(cmd)
	for _, a := range args[1:] {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return fmt.Errorf("get: %q must be key=value", a)
		}
		q.Set(k, v)
	}

	client := NewClient(cmd)
	defer ReportStats(cmd, client)

	raw, err := client.Get(ctx, resource, q)
	if err != nil {
		return err
	}

	parent := cmd.String("parent")
	if cmd.Bool("schema") {
		return output.DumpSchema(raw, parent, stdout(cmd))
	}

	var defaults []string
	if cmd.String("attrs") == "" {
		defaults = inferAttrs(raw, parent)
		log.Debugf("inferred attrs: %v", defaults)
	}
	al, err := BuildAttrs(cmd, defaults...)
	if err != nil {
		return err
	}

	return output.SliceDiceSpit(raw, al, cmd, parent, stdout(cmd))
}

// inferAttrs returns the scalar keys of the first item of the dataset, in
// document order.
func inferAttrs(raw []byte, parent string) []string {
	dataset := output.SelectDataset(gjson.ParseBytes(raw), parent)
	sample := dataset
	if dataset.IsArray() {
		sample = dataset.Get("0")
	}

	var keys []string
	sample.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() && !value.IsArray() {
			keys = append(keys, key.String())
		}
		return true
	})
	if len(keys) == 0 {
		return nil
	}
	return []string{strings.Join(keys, ",")}
}

// getCommandBuilder constructs the cli.Command for "get".
func getCommandBuilder(meta meta.Meta) *cli.Command {
	flags := []cli.Flag{
		NewTldrFlag(),
		NewSchemaFlag(),
		NewParamFlag(),
		&cli.StringFlag{
			Name:  "parent",
			Usage: "path to the results within the response, falls back to the whole document",
			Value: "data",
		},
	}
	flags = append(flags, NewGlobalFlags("get", meta.Source())...)
	flags = append(flags, NewFetchFlags("get", meta)...)

	return &cli.Command{
		Name:      "get",
		Usage:     "read any resource path",
		UsageText: "floractl get <path> [key=value ...] [flags]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  flags,
		Action: getCommandAction,
	}
}
