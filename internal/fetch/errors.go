// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors matched by StatusError.Is so callers can use errors.Is
// without caring about the exact status code.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrServer       = errors.New("backend error")

	ErrInvalidQuery = errors.New("invalid query")
)

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s returned %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrServer:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// ErrorContext carries where a read failed so messages say more than the
// transport does.
type ErrorContext struct {
	Host      string
	Operation string
	Resource  string
}

// Wrap annotates err with the context, keeping it matchable via errors.Is/As.
func (c ErrorContext) Wrap(err error) error {
	if err == nil {
		return nil
	}

	hint := ""
	switch {
	case errors.Is(err, ErrUnauthorized):
		hint = " (check --token or FLORACTL_TOKEN)"
	case errors.Is(err, ErrNotFound):
		hint = " (check the resource path)"
	}

	return fmt.Errorf("%s %s on %s%s: %w", c.Operation, c.Resource, c.Host, hint, err)
}
