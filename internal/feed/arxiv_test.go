// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const sampleArxivXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v1</id>
    <title>Attention Is
      All You Need</title>
    <summary>We propose a new architecture based solely on attention mechanisms.</summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
    <link href="http://arxiv.org/abs/1706.03762v1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1706.03762v1" rel="related" type="application/pdf"/>
    <arxiv:primary_category term="cs.CL" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.CL" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <title>BERT: Pre-training of Deep Bidirectional Transformers</title>
    <summary>We introduce BERT.</summary>
    <published>2018-10-11T00:00:00Z</published>
    <author><name>Jacob Devlin</name></author>
    <category term="cs.CL" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
</feed>`

const sampleArxivRecentXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <title>BERT: Pre-training of Deep Bidirectional Transformers</title>
    <summary>We introduce BERT.</summary>
    <published>2018-10-11T00:00:00Z</published>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <title>Fresh Preprint</title>
    <summary>Something new.</summary>
    <published>2024-01-01T00:00:00Z</published>
    <category term="cs.AI" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
</feed>`

const emptyArxivXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"></feed>`

// arxivServer answers relevance-sorted and date-sorted requests with
// different bodies and records the queries it saw.
type arxivServer struct {
	mu        sync.Mutex
	queries   []string
	sorts     []string
	relevance string
	recent    string
}

func (s *arxivServer) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.queries = append(s.queries, r.URL.Query().Get("search_query"))
	s.sorts = append(s.sorts, r.URL.Query().Get("sortBy"))
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/atom+xml")
	if r.URL.Query().Get("sortBy") == "submittedDate" {
		fmt.Fprint(w, s.recent)
		return
	}
	fmt.Fprint(w, s.relevance)
}

func withArxivServer(t *testing.T, s *arxivServer) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(s.handler))
	old := arxivAPIBase
	arxivAPIBase = ts.URL
	t.Cleanup(func() {
		arxivAPIBase = old
		ts.Close()
	})
	return ts
}

func TestArxivFetchMergesRelevanceAndRecency(t *testing.T) {
	srv := &arxivServer{relevance: sampleArxivXML, recent: sampleArxivRecentXML}
	ts := withArxivServer(t, srv)

	c := &ArxivClient{Client: ts.Client(), Config: testFeedCfg()}
	cands, err := c.Fetch(context.Background(), Query{Topic: "attention"}, 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("len(cands) = %d, want 3", len(cands))
	}

	wantIDs := []string{"1706.03762", "1810.04805", "2401.00001"}
	for i, want := range wantIDs {
		if cands[i].ID != want {
			t.Errorf("cands[%d].ID = %q, want %q", i, cands[i].ID, want)
		}
	}
	if len(srv.sorts) != 2 || srv.sorts[0] != "relevance" || srv.sorts[1] != "submittedDate" {
		t.Errorf("sorts = %v, want [relevance submittedDate]", srv.sorts)
	}

	first := cands[0]
	if first.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q, want collapsed whitespace", first.Title)
	}
	if len(first.Authors) != 2 {
		t.Errorf("len(Authors) = %d, want 2", len(first.Authors))
	}
	if strings.Join(first.Categories, ",") != "cs.CL,cs.LG" {
		t.Errorf("Categories = %v, want [cs.CL cs.LG]", first.Categories)
	}
	if first.URL != "http://arxiv.org/abs/1706.03762v1" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Citations != nil {
		t.Errorf("arXiv has no citation data, got %d", *first.Citations)
	}
	if first.Published.Year() != 2017 {
		t.Errorf("Published = %v", first.Published)
	}
	if first.Source != "arxiv" {
		t.Errorf("Source = %q, want arxiv", first.Source)
	}
}

func TestArxivFetchCapsAtLimit(t *testing.T) {
	srv := &arxivServer{relevance: sampleArxivXML, recent: sampleArxivRecentXML}
	ts := withArxivServer(t, srv)

	c := &ArxivClient{Client: ts.Client(), Config: testFeedCfg()}
	cands, err := c.Fetch(context.Background(), Query{Topic: "attention"}, 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("len(cands) = %d, want 1", len(cands))
	}
	// limit 1 leaves no room for a date-sorted request.
	if len(srv.sorts) != 1 {
		t.Errorf("requests = %d, want 1", len(srv.sorts))
	}
}

func TestArxivFetchFallsBackToBroaderQuery(t *testing.T) {
	var queries []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("search_query")
		queries = append(queries, q)
		if strings.Contains(q, "cat:cs.AI") {
			fmt.Fprint(w, emptyArxivXML)
			return
		}
		fmt.Fprint(w, sampleArxivXML)
	}))
	defer ts.Close()
	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	c := &ArxivClient{Client: ts.Client(), Config: testFeedCfg()}
	q := Query{Topic: "attention", Categories: []string{"cs.CL", "cs.AI"}, Keywords: []string{"transformer"}}
	cands, err := c.Fetch(context.Background(), q, 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(cands) == 0 {
		t.Fatal("expected candidates from the fallback plan")
	}
	last := queries[len(queries)-1]
	if last != "cat:cs.CL AND all:attention" {
		t.Errorf("fallback query = %q", last)
	}
}

func TestArxivFetchEmptyResult(t *testing.T) {
	srv := &arxivServer{relevance: emptyArxivXML, recent: emptyArxivXML}
	ts := withArxivServer(t, srv)

	c := &ArxivClient{Client: ts.Client(), Config: testFeedCfg()}
	_, err := c.Fetch(context.Background(), Query{Topic: "nothing matches"}, 5)
	if !errors.Is(err, ErrEmptyResult) {
		t.Errorf("err = %v, want ErrEmptyResult", err)
	}
}

func TestArxivFetchUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()
	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	c := &ArxivClient{Client: ts.Client(), Config: testFeedCfg()}
	_, err := c.Fetch(context.Background(), Query{Topic: "attention"}, 5)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestBuildArxivQuery(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"single term", Query{Topic: "attention"}, "all:attention"},
		{"multiple terms", Query{Topic: "sparse attention"}, "(all:sparse AND all:attention)"},
		{"categories", Query{Topic: "attention", Categories: []string{"cs.AI", "cs.LG"}}, "(cat:cs.AI OR cat:cs.LG) AND all:attention"},
		{"keywords", Query{Topic: "attention", Keywords: []string{"large language model"}}, `(all:attention OR all:"large language model")`},
		{"keywords only", Query{Keywords: []string{"rlhf"}}, `all:"rlhf"`},
		{"sanitized", Query{Topic: `"quoted" (paren)`}, "(all:quoted AND all:paren)"},
		{"empty", Query{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildArxivQuery(tt.query); got != tt.want {
				t.Errorf("buildArxivQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/1706.03762v5", "1706.03762"},
		{"http://arxiv.org/abs/2301.12345", "2301.12345"},
		{"https://arxiv.org/abs/hep-th/9901001v1", "hep-th/9901001"},
		{"http://arxiv.org/api/errors#incorrect_id_format", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := extractArxivID(tt.input); got != tt.want {
				t.Errorf("extractArxivID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
