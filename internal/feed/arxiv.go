// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paperscout/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// relevanceShare is the fraction of the limit requested sorted by
// relevance; the remainder is requested sorted by submission date so
// fresh preprints reach the ranking even when they match loosely.
const relevanceShare = 0.7

// ArxivClient queries the arXiv Atom API.
type ArxivClient struct {
	Client  *http.Client
	Config  types.FeedConfig
	Limiter *rate.Limiter
}

// NewArxivClient returns a client paced by cfg.RatePerSecond.
func NewArxivClient(hc *http.Client, cfg types.FeedConfig) *ArxivClient {
	return &ArxivClient{Client: hc, Config: cfg, Limiter: newLimiter(cfg.RatePerSecond)}
}

// Name returns the feed identifier.
func (c *ArxivClient) Name() string { return string(types.SourceArxiv) }

// Fetch returns at most limit candidates for query. The strict query
// (all categories and keywords) is tried first; when it matches nothing a
// broader query with the first category only is tried.
func (c *ArxivClient) Fetch(ctx context.Context, query Query, limit int) ([]types.Candidate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("arxiv: limit must be positive, got %d", limit)
	}

	plans := []string{buildArxivQuery(query)}
	if fb := buildArxivQuery(fallbackQuery(query)); fb != plans[0] {
		plans = append(plans, fb)
	}

	for _, q := range plans {
		if q == "" {
			continue
		}
		cands, err := c.fetchPlan(ctx, q, limit)
		if errors.Is(err, ErrEmptyResult) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return cands, nil
	}
	return nil, emptyResult(c.Name())
}

// fetchPlan splits limit between a relevance-sorted and a date-sorted
// request and merges the two by ID, relevance order first.
func (c *ArxivClient) fetchPlan(ctx context.Context, q string, limit int) ([]types.Candidate, error) {
	relevanceN := max(1, int(float64(limit)*relevanceShare))
	recencyN := limit - relevanceN

	byRelevance, err := c.search(ctx, q, relevanceN, "relevance")
	if err != nil {
		return nil, err
	}

	var byDate []types.Candidate
	if recencyN > 0 {
		byDate, err = c.search(ctx, q, recencyN, "submittedDate")
		if err != nil {
			// The relevance half already answered; a failed date half
			// only narrows the batch.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			byDate = nil
		}
	}

	merged := mergeUnique(byRelevance, byDate)
	if len(merged) == 0 {
		return nil, emptyResult(c.Name())
	}
	return truncate(merged, limit), nil
}

func (c *ArxivClient) search(ctx context.Context, q string, n int, sortBy string) ([]types.Candidate, error) {
	if err := pace(ctx, c.Limiter); err != nil {
		return nil, err
	}

	params := url.Values{
		"search_query": {q},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(n)},
		"sortBy":       {sortBy},
		"sortOrder":    {"descending"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	body, err := doRequest(ctx, c.Name(), c.Client, req, c.Config.HTTPConfig)
	if err != nil {
		return nil, err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var out []types.Candidate
	for _, entry := range feed.Entries {
		if cand, ok := entry.candidate(); ok {
			out = append(out, cand)
		}
	}
	return truncate(out, n), nil
}

// buildArxivQuery constructs the search_query parameter:
// (cat:A OR cat:B) AND ((all:t1 AND all:t2) OR all:"keyword").
func buildArxivQuery(q Query) string {
	var terms []string
	for _, t := range strings.Fields(q.Topic) {
		if t = sanitizeTerm(t); t != "" {
			terms = append(terms, "all:"+t)
		}
	}

	var textParts []string
	switch len(terms) {
	case 0:
	case 1:
		textParts = append(textParts, terms[0])
	default:
		textParts = append(textParts, "("+strings.Join(terms, " AND ")+")")
	}
	for _, kw := range q.Keywords {
		if kw = sanitizeTerm(kw); kw != "" {
			textParts = append(textParts, `all:"`+kw+`"`)
		}
	}

	var catParts []string
	for _, cat := range q.Categories {
		if cat = sanitizeTerm(cat); cat != "" {
			catParts = append(catParts, "cat:"+cat)
		}
	}

	var parts []string
	if len(catParts) > 0 {
		parts = append(parts, group(catParts))
	}
	if len(textParts) > 0 {
		parts = append(parts, group(textParts))
	}
	return strings.Join(parts, " AND ")
}

// group ORs parts, parenthesizing when there is more than one.
func group(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// sanitizeTerm strips characters that carry meaning in arXiv query syntax.
func sanitizeTerm(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '"', '(', ')', ':':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// fallbackQuery narrows the filters to the first category and drops
// keywords, widening the match set.
func fallbackQuery(q Query) Query {
	fb := Query{Topic: q.Topic}
	if len(q.Categories) > 0 {
		fb.Categories = q.Categories[:1]
	}
	if fb.Topic == "" && len(q.Keywords) > 0 {
		fb.Keywords = q.Keywords[:1]
	}
	return fb
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Links      []arxivLink     `xml:"link"`
	Primary    arxivCategory   `xml:"primary_category"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

func (e arxivEntry) candidate() (types.Candidate, bool) {
	id := extractArxivID(e.ID)
	if id == "" {
		return types.Candidate{}, false
	}

	c := types.Candidate{
		ID:        id,
		Title:     collapse(e.Title),
		Abstract:  collapse(e.Summary),
		Published: parseDate(e.Published),
		Source:    string(types.SourceArxiv),
		URL:       strings.TrimSpace(e.ID),
	}
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			c.Authors = append(c.Authors, name)
		}
	}
	for _, l := range e.Links {
		if l.Rel == "alternate" && l.Href != "" {
			c.URL = l.Href
			break
		}
	}

	// Primary category first; the rest in feed order without repeats.
	seen := make(map[string]bool)
	for _, term := range append([]arxivCategory{e.Primary}, e.Categories...) {
		t := strings.TrimSpace(term.Term)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		c.Categories = append(c.Categories, t)
	}
	return c, true
}

// collapse trims and collapses internal whitespace (arXiv wraps titles).
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(idURL[idx+len(prefix):])

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
