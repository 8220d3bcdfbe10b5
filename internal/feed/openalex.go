// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paperscout/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

const (
	openAlexPageMax = 200
	// openAlexMaxConcepts caps how many concepts become categories.
	openAlexMaxConcepts = 3
)

// OpenAlexClient queries the OpenAlex API.
type OpenAlexClient struct {
	Client *http.Client
	Config types.FeedConfig
	// Email is sent as mailto parameter for polite pool access.
	Email   string
	Limiter *rate.Limiter
}

// NewOpenAlexClient returns a client paced by cfg.RatePerSecond.
func NewOpenAlexClient(hc *http.Client, cfg types.FeedConfig) *OpenAlexClient {
	return &OpenAlexClient{
		Client:  hc,
		Config:  cfg,
		Email:   cfg.OpenAlexEmail,
		Limiter: newLimiter(cfg.RatePerSecond),
	}
}

// Name returns the feed identifier.
func (c *OpenAlexClient) Name() string { return string(types.SourceOpenAlex) }

// Fetch searches OpenAlex works and returns at most limit candidates.
func (c *OpenAlexClient) Fetch(ctx context.Context, query Query, limit int) ([]types.Candidate, error) {
	searchText := query.text()
	if searchText == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("openalex: limit must be positive, got %d", limit)
	}

	params := url.Values{
		"search":   {searchText},
		"per_page": {strconv.Itoa(min(limit, openAlexPageMax))},
		"page":     {"1"},
	}
	if c.Email != "" {
		params.Set("mailto", c.Email)
	}

	if err := pace(ctx, c.Limiter); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	body, err := doRequest(ctx, c.Name(), c.Client, req, c.Config.HTTPConfig)
	if err != nil {
		return nil, err
	}

	var oar openAlexResponse
	if err := json.Unmarshal(body, &oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	var out []types.Candidate
	for _, work := range oar.Results {
		out = append(out, work.candidate())
	}
	out = mergeUnique(out)
	if len(out) == 0 {
		return nil, emptyResult(c.Name())
	}
	return truncate(out, limit), nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to its positions.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

func yearStart(year int) time.Time {
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          *int                 `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	Concepts              []openAlexConcept    `json:"concepts"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexConcept struct {
	DisplayName string  `json:"display_name"`
	Level       int     `json:"level"`
	Score       float64 `json:"score"`
}

func (w openAlexWork) candidate() types.Candidate {
	c := types.Candidate{
		Title:    collapse(w.Title),
		Abstract: reconstructAbstract(w.AbstractInvertedIndex),
		Source:   string(types.SourceOpenAlex),
	}
	if w.CitedByCount != nil {
		c.Citations = intPtr(*w.CitedByCount)
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			c.Authors = append(c.Authors, a.Author.DisplayName)
		}
	}

	if w.PublicationDate != "" {
		c.Published = parseDate(w.PublicationDate)
	} else if w.PublicationYear > 0 {
		c.Published = yearStart(w.PublicationYear)
	}

	// Coarse concepts (levels 0 and 1) act as categories.
	for _, concept := range w.Concepts {
		if concept.Level > 1 || concept.DisplayName == "" {
			continue
		}
		c.Categories = append(c.Categories, concept.DisplayName)
		if len(c.Categories) == openAlexMaxConcepts {
			break
		}
	}

	// OpenAlex is DOI-centric; strip the resolver prefix for a bare DOI.
	if w.DOI != "" {
		c.ID = strings.TrimPrefix(w.DOI, "https://doi.org/")
		c.URL = w.DOI
	} else {
		c.ID = w.ID
		c.URL = w.ID
	}
	return c
}
