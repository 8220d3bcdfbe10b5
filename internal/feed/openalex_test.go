// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOpenAlexJSON = `{
  "meta": {"count": 2, "per_page": 10, "page": 1},
  "results": [
    {
      "id": "https://openalex.org/W2963403868",
      "title": "Attention Is All You Need",
      "doi": "https://doi.org/10.48550/arxiv.1706.03762",
      "publication_date": "2017-06-12",
      "publication_year": 2017,
      "cited_by_count": 95000,
      "authorships": [
        {"author": {"id": "A1", "display_name": "Ashish Vaswani"}},
        {"author": {"id": "A2", "display_name": "Noam Shazeer"}}
      ],
      "concepts": [
        {"display_name": "Computer science", "level": 0, "score": 0.9},
        {"display_name": "Transformer", "level": 3, "score": 0.8},
        {"display_name": "Artificial intelligence", "level": 1, "score": 0.7}
      ],
      "abstract_inverted_index": {"The": [0], "dominant": [1], "models": [2]}
    },
    {
      "id": "https://openalex.org/W123",
      "title": "No DOI Work",
      "publication_year": 2021,
      "authorships": [],
      "concepts": []
    }
  ]
}`

func TestOpenAlexFetch(t *testing.T) {
	var gotMailto, gotSearch string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMailto = r.URL.Query().Get("mailto")
		gotSearch = r.URL.Query().Get("search")
		fmt.Fprint(w, sampleOpenAlexJSON)
	}))
	defer ts.Close()
	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	defer func() { openAlexSearchBase = old }()

	c := &OpenAlexClient{Client: ts.Client(), Config: testFeedCfg(), Email: "me@example.org"}
	cands, err := c.Fetch(context.Background(), Query{Topic: "attention"}, 10)
	require.NoError(t, err)
	require.Len(t, cands, 2)

	assert.Equal(t, "me@example.org", gotMailto)
	assert.Equal(t, "attention", gotSearch)

	first := cands[0]
	assert.Equal(t, "10.48550/arxiv.1706.03762", first.ID)
	assert.Equal(t, "The dominant models", first.Abstract)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, first.Authors)
	assert.Equal(t, []string{"Computer science", "Artificial intelligence"}, first.Categories)
	require.NotNil(t, first.Citations)
	assert.Equal(t, 95000, *first.Citations)
	assert.Equal(t, "openalex", first.Source)

	second := cands[1]
	assert.Equal(t, "https://openalex.org/W123", second.ID)
	assert.Nil(t, second.Citations)
	assert.Equal(t, 2021, second.Published.Year())
}

func TestOpenAlexFetchEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"meta":{"count":0},"results":[]}`)
	}))
	defer ts.Close()
	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	defer func() { openAlexSearchBase = old }()

	c := &OpenAlexClient{Client: ts.Client(), Config: testFeedCfg()}
	_, err := c.Fetch(context.Background(), Query{Topic: "nothing"}, 10)
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestReconstructAbstract(t *testing.T) {
	idx := map[string][]int{
		"world": {1},
		"hello": {0, 2},
	}
	assert.Equal(t, "hello world hello", reconstructAbstract(idx))
	assert.Equal(t, "", reconstructAbstract(nil))
}
