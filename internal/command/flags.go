// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os/exec"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/floractl/internal/fetch"
	"github.com/staranto/floractl/internal/meta"
)

// NewSchemaFlag lists the attributes of the first result instead of the
// results.
func NewSchemaFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "schema",
		Usage:       "list the attributes of the first result",
		HideDefault: true,
	}
}

func NewTldrFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "tldr",
		Usage:       "show tldr page",
		Hidden:      !pathHas("tldr"),
		HideDefault: true,
	}
}

// NewGlobalFlags returns the output flags shared by every query command.
// params[0] is the command namespace and params[1] the config file.
func NewGlobalFlags(params ...string) (flags []cli.Flag) {
	ns, src := params[0], ""
	if len(params) > 1 {
		src = params[1]
	}

	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "attrs",
			Aliases: []string{"a"},
			Usage:   "comma-separated list of attributes to include in results",
		},
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"color", altsrc.StringSourcer(src)),
				yaml.YAML("color", altsrc.StringSourcer(src)),
			),
			Value: false,
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.BoolFlag{
			Name:        "local",
			Aliases:     []string{"l"},
			Usage:       "show timestamps in local time",
			HideDefault: true,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"output", altsrc.StringSourcer(src)),
				yaml.YAML("output", altsrc.StringSourcer(src)),
			),
			Value: "text",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"sort", altsrc.StringSourcer(src)),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"titles", altsrc.StringSourcer(src)),
				yaml.YAML("titles", altsrc.StringSourcer(src)),
			),
			Value: false,
		},
	}

	return
}

// NewFetchFlags returns the flags that shape backend reads: where to read
// from, how to authenticate and how the response cache is used.
func NewFetchFlags(ns string, m meta.Meta) []cli.Flag {
	return []cli.Flag{
		NewHostFlag(ns, m.Source()),
		NewTokenFlag(ns, m.Source()),
		&cli.BoolWithInverseFlag{
			Name:  "cache",
			Usage: "serve repeated reads from the response cache",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("FLORACTL_CACHE"),
			),
			Value: m.Cache.Enabled,
		},
		&cli.DurationFlag{
			Name:  "ttl",
			Usage: "cache lifetime of responses read by this command (0 uses cache.ttl)",
			Validator: func(value time.Duration) error {
				return FlagValidators(value, NonNegativeDurationValidator)
			},
		},
		&cli.BoolFlag{
			Name:        "stats",
			Usage:       "print cache statistics to stderr when done",
			HideDefault: true,
		},
	}
}

// NewParamFlag is the repeatable --param k=v flag passed through to the
// backend as query parameters.
func NewParamFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    "param",
		Aliases: []string{"p"},
		Usage:   "query parameter sent to the backend (k=v, repeatable)",
		Validator: func(values []string) error {
			return FlagValidators(values, ParamValidator)
		},
	}
}

// NewHostFlag constructs a cli.StringFlag for the "host" flag, optionally
// namespaced to a command and config file. params[1] is the config file.
func NewHostFlag(params ...string) (flag *cli.StringFlag) {
	flag = &cli.StringFlag{
		Name:  "host",
		Usage: "backend host, optionally with scheme",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("FLORACTL_HOST"),
		),
		Value: fetch.DefaultHost,
	}

	if len(params) == 2 && params[1] != "" {
		flag = NameSpacedValueChainFlagFromConfigFile(params[0], params[1], flag)
	}

	return
}

// NewTokenFlag constructs the bearer token flag. The token is passed through
// to the backend untouched.
func NewTokenFlag(params ...string) (flag *cli.StringFlag) {
	flag = &cli.StringFlag{
		Name:  "token",
		Usage: "bearer token for the backend",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("FLORACTL_TOKEN"),
		),
	}

	if len(params) == 2 && params[1] != "" {
		flag = NameSpacedValueChainFlagFromConfigFile(params[0], params[1], flag)
	}

	return
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}

// pathHas reports whether target is an executable on PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}
