// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/apex/log"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultHost is the hosted backend used when nothing else is configured.
const DefaultHost = "api.floraverse.app"

// HTTPReader is the Reader that talks to the hosted backend. Retries with
// backoff on connection errors, 429 and 5xx are handled by retryablehttp.
type HTTPReader struct {
	client  *retryablehttp.Client
	baseURL string
	token   string
}

// HTTPOption customizes an HTTPReader.
type HTTPOption func(*HTTPReader)

// WithBaseURL sets the backend address. A bare hostname gets https://.
func WithBaseURL(base string) HTTPOption {
	return func(r *HTTPReader) {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base == "" {
			return
		}
		if !strings.Contains(base, "://") {
			base = "https://" + base
		}
		r.baseURL = base
	}
}

// WithToken sends the token as a bearer credential.
func WithToken(token string) HTTPOption {
	return func(r *HTTPReader) { r.token = token }
}

// WithRetryMax bounds the number of retries after the first attempt.
func WithRetryMax(n int) HTTPOption {
	return func(r *HTTPReader) {
		if n >= 0 {
			r.client.RetryMax = n
		}
	}
}

// WithRetryWait sets the backoff window between retries.
func WithRetryWait(minWait, maxWait time.Duration) HTTPOption {
	return func(r *HTTPReader) {
		r.client.RetryWaitMin = minWait
		r.client.RetryWaitMax = maxWait
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(r *HTTPReader) {
		if d > 0 {
			r.client.HTTPClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(r *HTTPReader) {
		if c != nil {
			r.client.HTTPClient = c
		}
	}
}

// NewHTTPReader builds a reader against DefaultHost unless overridden.
func NewHTTPReader(opts ...HTTPOption) *HTTPReader {
	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.HTTPClient.Timeout = 30 * time.Second
	client.RetryMax = 3
	client.Logger = leveledLogger{}
	// Hand the final response back so non-2xx statuses become StatusErrors
	// rather than a generic "giving up" error.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	r := &HTTPReader{
		client:  client,
		baseURL: "https://" + DefaultHost,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BaseURL is the resolved backend address.
func (r *HTTPReader) BaseURL() string {
	return r.baseURL
}

// Read GETs target relative to the base URL and returns the body.
func (r *HTTPReader) Read(ctx context.Context, target string) ([]byte, error) {
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	u := r.baseURL + target

	ectx := ErrorContext{Host: r.baseURL, Operation: "GET", Resource: target}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, ectx.Wrap(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, ectx.Wrap(fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ectx.Wrap(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, ectx.Wrap(&StatusError{
			StatusCode: resp.StatusCode,
			URL:        u,
			Body:       snippet(body),
		})
	}

	log.Debugf("GET %s: %d (%d bytes)", u, resp.StatusCode, len(body))
	return body, nil
}

// leveledLogger routes retryablehttp's logging into apex/log.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { log.WithFields(fields(kv)).Error(msg) }
func (leveledLogger) Warn(msg string, kv ...interface{})  { log.WithFields(fields(kv)).Warn(msg) }
func (leveledLogger) Info(msg string, kv ...interface{})  { log.WithFields(fields(kv)).Debug(msg) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { log.WithFields(fields(kv)).Debug(msg) }

func fields(kv []interface{}) log.Fields {
	f := log.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
