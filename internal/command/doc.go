// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package command defines the CLI command set for floractl. It wires flags,
// validators, actions, and shell completion for subcommands, and is the
// composition root that builds the response cache and the backend client.
package command
