// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/apex/log"

	"github.com/staranto/floractl/internal/fetch"
)

// Resource paths of the hosted backend's list endpoints.
const (
	Plants       = "/plants"
	Species      = "/species"
	Observations = "/observations"
)

const (
	defaultPageSize = 100
	// maxPages stops a misbehaving backend from paging forever.
	maxPages = 1000
)

// ErrTooManyPages is returned when pagination does not terminate.
var ErrTooManyPages = errors.New("pagination did not terminate")

// Page is one page of a list endpoint. Items are kept raw so the output
// layer can pick attributes with gjson.
type Page struct {
	Data []json.RawMessage `json:"data"`
	Meta PageMeta          `json:"meta"`
}

// PageMeta is the pagination block of a list response. NextPage is 0 on the
// last page.
type PageMeta struct {
	Page     int `json:"page"`
	NextPage int `json:"next_page"`
	Total    int `json:"total"`
}

// Client issues backend reads through a cache-backed Fetcher.
type Client struct {
	fetcher  *fetch.Fetcher
	pageSize int
	ttl      time.Duration
	useCache bool
}

// Option customizes a Client.
type Option func(*Client)

// WithPageSize sets the per_page parameter used when listing.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithTTL sets the cache TTL for every read. 0 means the fetcher default.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

// WithCache toggles cache lookups. Results are still stored when disabled.
func WithCache(enabled bool) Option {
	return func(c *Client) { c.useCache = enabled }
}

// NewClient wraps f.
func NewClient(f *fetch.Fetcher, opts ...Option) *Client {
	c := &Client{
		fetcher:  f,
		pageSize: defaultPageSize,
		useCache: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetcher returns the underlying Fetcher.
func (c *Client) Fetcher() *fetch.Fetcher {
	return c.fetcher
}

// Get returns the raw body of any resource path.
func (c *Client) Get(ctx context.Context, resourcePath string, params url.Values) ([]byte, error) {
	return c.fetcher.GetOrFetch(ctx, resourcePath, params, c.ttl, c.useCache)
}

// Page returns a single decoded page of a list endpoint.
func (c *Client) Page(ctx context.Context, resource string, params url.Values, page int) (Page, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.pageSize))

	return fetch.GetOrFetchValue(ctx, c.fetcher, resource, q, c.ttl, c.useCache, decodePage)
}

// List collects every item of a list endpoint, following next_page.
func (c *Client) List(ctx context.Context, resource string, params url.Values) ([]json.RawMessage, error) {
	return PaginateAndCollect(ctx, 1, func(page int) ([]json.RawMessage, int, error) {
		p, err := c.Page(ctx, resource, params, page)
		if err != nil {
			return nil, 0, err
		}
		return p.Data, p.Meta.NextPage, nil
	})
}

// PaginateAndCollect drives fetchPage from startPage until it reports a next
// page of 0, or the context is done.
func PaginateAndCollect[T any](
	ctx context.Context,
	startPage int,
	fetchPage func(page int) ([]T, int, error),
) ([]T, error) {
	var results []T

	page := startPage
	for n := 0; ; n++ {
		if n >= maxPages {
			return nil, fmt.Errorf("stopped after %d pages: %w", maxPages, ErrTooManyPages)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, next, err := fetchPage(page)
		if err != nil {
			return nil, err
		}
		results = append(results, items...)
		log.Debugf("page %d: %d items, next %d", page, len(items), next)

		if next == 0 || next == page {
			break
		}
		page = next
	}

	return results, nil
}

// decodePage accepts both the paginated envelope and a bare JSON array.
func decodePage(body []byte) (Page, error) {
	var p Page
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(body, &p.Data); err != nil {
			return Page{}, err
		}
		return p, nil
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return Page{}, err
	}
	return p, nil
}
