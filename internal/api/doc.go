// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package api knows the shape of the plant platform's backend: its list
// endpoints and their pagination envelope.
package api
