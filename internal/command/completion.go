// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/floractl/internal/meta"
)

const bashCompletionScript = `# bash completion for floractl
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_floractl()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "pq sq oq get batch completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--attrs -a --color -c --no-color --filter -f --local -l --output -o --sort -s --titles -t --no-titles --tldr"
    local fetch="--host --token --cache --no-cache --ttl --stats"

    case "$cmd" in
        pq|sq|oq)
            local opts="$common $fetch --schema --param -p"
            ;;
        get)
            local opts="$common $fetch --schema --param -p --parent"
            ;;
        batch)
            local opts="$fetch --parallel --color -c --no-color"
            if [[ "$cur" != -* ]]; then
                COMPREPLY=( $(compgen -f -- "$cur") )
                return 0
            fi
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _floractl floractl
`

const zshCompletionScript = `#compdef floractl

_floractl() {
  local -a cmds
  cmds=(
    'pq:plant query'
    'sq:species query'
    'oq:observation query'
    'get:read any resource path'
    'batch:read a list of resources in parallel through the cache'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-l --local)'{-l,--local}'[local timestamps]'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  )

  local -a fetch
  fetch=(
  '--host[backend host]:host'
  '--token[bearer token]:token'
  '(--cache --no-cache)--cache[use the response cache]'
  '(--cache --no-cache)--no-cache[bypass the response cache]'
  '--ttl[cache lifetime]:duration'
  '--stats[print cache statistics]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'floractl commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    pq|sq|oq)
      _arguments -C \
        $common \
        $fetch \
        '--schema[list attributes]' \
        '*'{-p,--param}'[query parameter]:key=value'
      ;;
    get)
      _arguments -C \
        $common \
        $fetch \
        '--schema[list attributes]' \
        '*'{-p,--param}'[query parameter]:key=value' \
        '--parent[path to the results]:path' \
        '1:resource path' \
        '*:key=value'
      ;;
    batch)
      _arguments -C \
        $fetch \
        '--parallel[maximum reads in flight]:count' \
        '1:batch file:_files'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _floractl floractl
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	w := stdout(cmd)

	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(w, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(w, bashCompletionScript)
		} else {
			fmt.Fprintln(stderr(cmd), "usage: floractl completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "floractl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
