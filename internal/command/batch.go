// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/staranto/floractl/internal/fetch"
	"github.com/staranto/floractl/internal/meta"
	"github.com/staranto/floractl/internal/output"
)

const defaultParallel = 4

// BatchRequest is one entry of a batch file. With refresh set, any cached
// copy is dropped before the request's first read.
//
//	- path: /plants
//	  params:
//	    family: Fagaceae
//	  repeat: 3
//	  refresh: true
type BatchRequest struct {
	Path    string            `yaml:"path"`
	Params  map[string]string `yaml:"params"`
	Repeat  int               `yaml:"repeat"`
	Refresh bool              `yaml:"refresh"`
}

// BatchHooks are the cache and backend operations RunBatch drives.
type BatchHooks struct {
	Peek       func(key string) bool
	Get        func(ctx context.Context, path string, q url.Values) ([]byte, error)
	Invalidate func(path string, q url.Values) error
}

// BatchResult is the outcome of one read.
type BatchResult struct {
	Path  string
	Key   string
	Hit   bool
	Bytes int
	Err   error
}

// LoadBatch reads and validates a batch file. Repeat defaults to 1.
func LoadBatch(path string) ([]BatchRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var reqs []BatchRequest
	if err := yaml.Unmarshal(data, &reqs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i := range reqs {
		if strings.TrimSpace(reqs[i].Path) == "" {
			return nil, fmt.Errorf("%s: request %d has no path", path, i+1)
		}
		if reqs[i].Repeat < 0 {
			return nil, fmt.Errorf("%s: request %d has a negative repeat", path, i+1)
		}
		if reqs[i].Repeat == 0 {
			reqs[i].Repeat = 1
		}
	}

	return reqs, nil
}

type batchRead struct {
	BatchRequest
	refresh bool
}

// expand flattens repeats into one read each, in file order. Only the first
// read of a request refreshes.
func expand(reqs []BatchRequest) []batchRead {
	var out []batchRead
	for _, r := range reqs {
		for n := range r.Repeat {
			out = append(out, batchRead{BatchRequest: r, refresh: r.Refresh && n == 0})
		}
	}
	return out
}

func (r BatchRequest) query() url.Values {
	q := url.Values{}
	for k, v := range r.Params {
		q.Set(k, v)
	}
	return q
}

// RunBatch performs every read through hooks.Get with at most parallel
// reads in flight. A failed read is recorded in its result and does not stop
// the others. Results are in request order.
func RunBatch(ctx context.Context, reqs []BatchRequest, parallel int, hooks BatchHooks) []BatchResult {
	work := expand(reqs)
	results := make([]BatchResult, len(work))

	g, gctx := errgroup.WithContext(ctx)
	if parallel <= 0 {
		parallel = defaultParallel
	}
	g.SetLimit(parallel)

	for i, r := range work {
		g.Go(func() error {
			results[i] = runRead(gctx, r, hooks)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func runRead(ctx context.Context, r batchRead, hooks BatchHooks) BatchResult {
	q := r.query()
	res := BatchResult{Path: r.Path}

	key, err := fetch.Key(r.Path, q)
	if err != nil {
		res.Err = err
		return res
	}
	res.Key = key

	if r.refresh && hooks.Invalidate != nil {
		if err := hooks.Invalidate(r.Path, q); err != nil {
			res.Err = err
			return res
		}
	}
	res.Hit = hooks.Peek(key)

	body, err := hooks.Get(ctx, r.Path, q)
	res.Bytes, res.Err = len(body), err
	if err != nil {
		res.Hit = false
		log.WithError(err).WithField("path", r.Path).Debug("batch read failed")
	}
	return res
}

func batchCommandAction(ctx context.Context, cmd *cli.Command) error {
	if ShortCircuitTLDR(ctx, cmd, "batch") {
		return nil
	}

	if cmd.Args().Len() != 1 {
		return errors.New("batch: exactly one batch file required")
	}

	reqs, err := LoadBatch(cmd.Args().First())
	if err != nil {
		return err
	}

	client := NewClient(cmd)
	f := client.Fetcher()
	store := f.Store()

	results := RunBatch(ctx, reqs, cmd.Int("parallel"), BatchHooks{
		Peek: func(key string) bool {
			if !cmd.Bool("cache") {
				return false
			}
			_, ok := store.Peek(key)
			return ok
		},
		Get:        client.Get,
		Invalidate: f.Invalidate,
	})

	color := cmd.Bool("color")
	w := stdout(cmd)

	failed := 0
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		source, errText := "miss", ""
		if r.Hit {
			source = "hit"
		}
		if r.Err != nil {
			failed++
			source, errText = "-", r.Err.Error()
		}
		rows = append(rows, []string{
			r.Path,
			r.Key,
			source,
			humanize.IBytes(uint64(r.Bytes)),
			errText,
		})
	}
	output.GridWriter(w, []string{"path", "key", "source", "bytes", "error"}, rows, color)

	store.Purge()
	output.StatsWriter(w, store.Stats(), f.Reads(), color)

	if failed > 0 {
		return fmt.Errorf("%d of %d reads failed", failed, len(results))
	}
	return nil
}

// batchCommandBuilder constructs the cli.Command for "batch".
func batchCommandBuilder(meta meta.Meta) *cli.Command {
	flags := []cli.Flag{
		NewTldrFlag(),
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "maximum reads in flight",
			Value: defaultParallel,
			Validator: func(v int) error {
				if v < 1 {
					return errors.New("must be at least 1")
				}
				return nil
			},
		},
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
		},
	}
	flags = append(flags, NewFetchFlags("batch", meta)...)

	return &cli.Command{
		Name:      "batch",
		Usage:     "read a list of resources in parallel through the cache",
		UsageText: "floractl batch <file> [flags]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  flags,
		Action: batchCommandAction,
	}
}
