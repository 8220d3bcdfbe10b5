// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feed queries public paper feeds and maps their records into
// candidates for ranking. Each upstream (arXiv, Semantic Scholar,
// OpenAlex) implements Client; wrappers add citation enrichment and a
// last-known-good snapshot.
//
// See docs/ARCHITECTURE § FeedClient.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paperscout/internal/httputil"
	"github.com/pdiddy/paperscout/pkg/types"
)

var (
	// ErrUpstreamUnavailable means the feed could not be reached after the
	// bounded retry count, or did not answer within the timeout.
	ErrUpstreamUnavailable = errors.New("upstream feed unavailable")

	// ErrEmptyResult means the feed answered with zero matches. It is not
	// fatal; callers treat it as an empty sequence.
	ErrEmptyResult = errors.New("feed returned no matches")
)

// Client fetches candidates from one upstream feed.
type Client interface {
	Name() string
	Fetch(ctx context.Context, query Query, limit int) ([]types.Candidate, error)
}

// Query holds the search parameters derived from a user topic.
type Query struct {
	Topic      string
	Categories []string
	Keywords   []string
}

// QueryFromTopic builds a Query from the topic string and the configured
// category and keyword filters.
func QueryFromTopic(topic string, cfg types.FeedConfig) Query {
	return Query{
		Topic:      strings.Join(strings.Fields(topic), " "),
		Categories: cleanList(cfg.Categories),
		Keywords:   cleanList(cfg.Keywords),
	}
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return q.Topic == "" && len(q.Keywords) == 0 && len(q.Categories) == 0
}

// text joins the free-text parts of the query for keyword search APIs.
func (q Query) text() string {
	parts := make([]string, 0, 1+len(q.Keywords))
	if q.Topic != "" {
		parts = append(parts, q.Topic)
	}
	parts = append(parts, q.Keywords...)
	return strings.Join(parts, " ")
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// unavailable wraps err as ErrUpstreamUnavailable for the named feed.
func unavailable(name string, err error) error {
	return fmt.Errorf("%s: %w: %w", name, ErrUpstreamUnavailable, err)
}

// emptyResult reports zero matches for the named feed.
func emptyResult(name string) error {
	return fmt.Errorf("%s: %w", name, ErrEmptyResult)
}

// pace blocks until the limiter admits one request. A nil limiter admits
// immediately.
func pace(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// newLimiter converts a requests-per-second setting into a limiter.
// Zero or negative disables pacing.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// doRequest sends req under the configured timeout with bounded retries
// and returns the response body. Transport failures, timeouts and
// retryable statuses that persist past the retry count are reported as
// ErrUpstreamUnavailable. Cancellation of the parent context is returned
// as-is.
func doRequest(ctx context.Context, name string, client *http.Client, req *http.Request, cfg types.HTTPConfig) ([]byte, error) {
	reqCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(reqCtx, client, req, cfg.MaxRetries)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, unavailable(name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if httputil.Retryable(resp.StatusCode) {
			return nil, unavailable(name, fmt.Errorf("HTTP %d", resp.StatusCode))
		}
		return nil, fmt.Errorf("%s returned HTTP %d", name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, unavailable(name, fmt.Errorf("reading response: %w", err))
	}
	return body, nil
}

// mergeUnique concatenates groups in order, keeping the first record per
// ID and filling its empty fields from later duplicates.
func mergeUnique(groups ...[]types.Candidate) []types.Candidate {
	seen := make(map[string]int)
	var out []types.Candidate
	for _, group := range groups {
		for _, c := range group {
			if c.ID == "" {
				continue
			}
			if idx, ok := seen[c.ID]; ok {
				mergeInto(&out[idx], c)
				continue
			}
			seen[c.ID] = len(out)
			out = append(out, c)
		}
	}
	return out
}

// mergeInto fills empty fields of dst from src.
func mergeInto(dst *types.Candidate, src types.Candidate) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if dst.Published.IsZero() {
		dst.Published = src.Published
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Citations == nil && src.Citations != nil {
		n := *src.Citations
		dst.Citations = &n
	}
	if len(dst.Categories) == 0 {
		dst.Categories = src.Categories
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
}

// truncate caps the candidate count at limit.
func truncate(cands []types.Candidate, limit int) []types.Candidate {
	if limit > 0 && len(cands) > limit {
		return cands[:limit]
	}
	return cands
}

// parseDate accepts the date layouts the feeds use.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func intPtr(n int) *int { return &n }
