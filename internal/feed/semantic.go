// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paperscout/pkg/types"
)

// Semantic Scholar endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	semanticAPIBase   = "https://api.semanticscholar.org/graph/v1/paper/search"
	semanticBatchBase = "https://api.semanticscholar.org/graph/v1/paper/batch"
)

const (
	semanticFields      = "title,abstract,authors,externalIds,year,publicationDate,citationCount,fieldsOfStudy,url"
	semanticBatchFields = "citationCount,externalIds"

	// semanticSearchMax is the API's page size ceiling.
	semanticSearchMax = 100
	// semanticBatchMax is the number of IDs the batch endpoint accepts.
	semanticBatchMax = 500
)

// SemanticScholarClient queries the Semantic Scholar Graph API. Unlike
// arXiv it reports citation counts.
type SemanticScholarClient struct {
	Client  *http.Client
	Config  types.FeedConfig
	APIKey  string
	Limiter *rate.Limiter
}

// NewSemanticScholarClient returns a client paced by cfg.RatePerSecond.
func NewSemanticScholarClient(hc *http.Client, cfg types.FeedConfig) *SemanticScholarClient {
	return &SemanticScholarClient{
		Client:  hc,
		Config:  cfg,
		APIKey:  cfg.SemanticScholarAPIKey,
		Limiter: newLimiter(cfg.RatePerSecond),
	}
}

// Name returns the feed identifier.
func (c *SemanticScholarClient) Name() string { return string(types.SourceSemanticScholar) }

// Fetch searches Semantic Scholar and returns at most limit candidates.
func (c *SemanticScholarClient) Fetch(ctx context.Context, query Query, limit int) ([]types.Candidate, error) {
	q := query.text()
	if q == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("semantic_scholar: limit must be positive, got %d", limit)
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(min(limit, semanticSearchMax))},
		"fields": {semanticFields},
	}
	if err := pace(ctx, c.Limiter); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}

	body, err := doRequest(ctx, c.Name(), c.Client, req, c.Config.HTTPConfig)
	if err != nil {
		return nil, err
	}

	var sr semanticResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	var out []types.Candidate
	for _, p := range sr.Data {
		out = append(out, p.candidate())
	}
	out = mergeUnique(out)
	if len(out) == 0 {
		return nil, emptyResult(c.Name())
	}
	return truncate(out, limit), nil
}

// CitationCounts looks up citation counts for arXiv IDs through the batch
// endpoint. IDs the API does not know are absent from the result.
func (c *SemanticScholarClient) CitationCounts(ctx context.Context, arxivIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	for start := 0; start < len(arxivIDs); start += semanticBatchMax {
		end := min(start+semanticBatchMax, len(arxivIDs))
		if err := c.citationBatch(ctx, arxivIDs[start:end], counts); err != nil {
			return counts, err
		}
	}
	return counts, nil
}

func (c *SemanticScholarClient) citationBatch(ctx context.Context, ids []string, counts map[string]int) error {
	prefixed := make([]string, len(ids))
	for i, id := range ids {
		prefixed[i] = "ARXIV:" + id
	}
	payload, err := json.Marshal(map[string][]string{"ids": prefixed})
	if err != nil {
		return fmt.Errorf("marshaling batch request: %w", err)
	}

	if err := pace(ctx, c.Limiter); err != nil {
		return err
	}
	reqURL := semanticBatchBase + "?" + url.Values{"fields": {semanticBatchFields}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}

	body, err := doRequest(ctx, c.Name(), c.Client, req, c.Config.HTTPConfig)
	if err != nil {
		return err
	}

	// The batch endpoint answers positionally, with null for unknown IDs.
	var papers []*semanticPaper
	if err := json.Unmarshal(body, &papers); err != nil {
		return fmt.Errorf("parsing Semantic Scholar batch response: %w", err)
	}
	for i, p := range papers {
		if p == nil || p.CitationCount == nil || i >= len(ids) {
			continue
		}
		counts[ids[i]] = *p.CitationCount
	}
	return nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	CitationCount   *int                `json:"citationCount"`
	FieldsOfStudy   []string            `json:"fieldsOfStudy"`
	URL             string              `json:"url"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}

func (p semanticPaper) candidate() types.Candidate {
	c := types.Candidate{
		Title:      collapse(p.Title),
		Abstract:   collapse(p.Abstract),
		Source:     string(types.SourceSemanticScholar),
		URL:        p.URL,
		Categories: cleanList(p.FieldsOfStudy),
	}
	if p.CitationCount != nil {
		c.Citations = intPtr(*p.CitationCount)
	}
	for _, a := range p.Authors {
		c.Authors = append(c.Authors, a.Name)
	}

	if p.PublicationDate != "" {
		c.Published = parseDate(p.PublicationDate)
	} else if p.Year > 0 {
		c.Published = yearStart(p.Year)
	}

	// Prefer arXiv ID, then DOI, then the Semantic Scholar paper ID.
	switch {
	case p.ExternalIDs.ArXiv != "":
		c.ID = p.ExternalIDs.ArXiv
	case p.ExternalIDs.DOI != "":
		c.ID = p.ExternalIDs.DOI
	default:
		c.ID = p.PaperID
	}
	return c
}
