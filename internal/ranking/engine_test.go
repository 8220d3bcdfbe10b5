// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperscout/internal/embedcache"
	"github.com/pdiddy/paperscout/internal/embedding"
	"github.com/pdiddy/paperscout/internal/feed"
	"github.com/pdiddy/paperscout/pkg/types"
)

var testNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type fakeFeed struct {
	cands []types.Candidate
	err   error
	calls atomic.Int32
}

func (f *fakeFeed) Name() string { return "fake" }

func (f *fakeFeed) Fetch(ctx context.Context, _ feed.Query, limit int) ([]types.Candidate, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.cands) > limit {
		return f.cands[:limit], nil
	}
	return f.cands, nil
}

type resolver map[string]embedding.Provider

func (r resolver) Lookup(id string) (embedding.Provider, error) {
	p, ok := r[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", embedding.ErrUnknownModel, id)
	}
	return p, nil
}

// flakyProvider fails every text containing marker.
type flakyProvider struct {
	embedding.Provider
	marker string
}

func (p flakyProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.Contains(text, p.marker) {
		return nil, fmt.Errorf("%w: refused %q", embedding.ErrModelUnavailable, p.marker)
	}
	return p.Provider.Embed(ctx, text)
}

func paper(id, title string, age int, cats ...string) types.Candidate {
	return types.Candidate{
		ID:         id,
		Title:      title,
		Abstract:   "An abstract about " + title,
		Published:  testNow.AddDate(0, 0, -age),
		Categories: cats,
		Source:     "fake",
	}
}

func newEngine(f feed.Client, p embedding.Provider) *Engine {
	return &Engine{
		Feed:   f,
		Models: resolver{p.ModelID(): p},
		Cache:  embedcache.New(),
		now:    func() time.Time { return testNow },
	}
}

func hashing() embedding.Provider {
	return embedding.NewHashingProvider(embedding.HashingModelID, 256)
}

func request(topic string) Request {
	return Request{
		Topic:        topic,
		FeedLimit:    50,
		OutputLimit:  10,
		Weights:      types.DefaultWeights(),
		ModelID:      embedding.HashingModelID,
		HalfLifeDays: 30,
	}
}

func TestRunRanksBySortedComposite(t *testing.T) {
	f := &fakeFeed{cands: []types.Candidate{
		paper("p1", "sparse attention transformers", 5, "cs.LG"),
		paper("p2", "protein folding with diffusion", 400, "q-bio.BM"),
		paper("p3", "attention heads in transformers", 40, "cs.CL"),
	}}
	e := newEngine(f, hashing())

	res, err := e.Run(context.Background(), request("attention in transformers"))
	require.NoError(t, err)
	require.Len(t, res.Corpus.Entries, 3)
	assert.Equal(t, 0, res.Dropped)
	assert.Equal(t, 3, res.Corpus.Fetched)
	assert.NotEmpty(t, res.Corpus.RunID)
	assert.Equal(t, testNow, res.Corpus.GeneratedAt)

	for i, entry := range res.Corpus.Entries {
		assert.Equal(t, i+1, entry.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, res.Corpus.Entries[i-1].Scores.Composite, entry.Scores.Composite)
		}
	}
	assert.NotEqual(t, "p2", res.Corpus.Entries[0].Candidate.ID)
}

func TestRunFewerCandidatesThanOutputLimit(t *testing.T) {
	f := &fakeFeed{cands: []types.Candidate{
		paper("p1", "retrieval augmented generation", 3, "cs.CL"),
		paper("p2", "dense passage retrieval", 90, "cs.IR"),
		paper("p3", "question answering over tables", 700, "cs.CL"),
	}}
	e := newEngine(f, hashing())
	req := Request{
		Topic:        "retrieval augmented generation",
		FeedLimit:    50,
		OutputLimit:  5,
		Weights:      types.WeightConfig{Relevance: 0.4, Novelty: 0.2, Recency: 0.2, Citation: 0.2},
		ModelID:      embedding.HashingModelID,
		HalfLifeDays: 30,
	}

	res, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Corpus.Entries, 3)
	assert.Equal(t, 3, res.Corpus.Fetched)
	assert.Equal(t, 0, res.Dropped)

	ids := map[string]bool{}
	for i, entry := range res.Corpus.Entries {
		assert.Equal(t, i+1, entry.Rank)
		ids[entry.Candidate.ID] = true
		if i > 0 {
			assert.GreaterOrEqual(t, res.Corpus.Entries[i-1].Scores.Composite, entry.Scores.Composite)
		}
	}
	assert.Equal(t, map[string]bool{"p1": true, "p2": true, "p3": true}, ids)
}

func TestRunTruncatesToOutputLimit(t *testing.T) {
	var cands []types.Candidate
	for i := range 8 {
		cands = append(cands, paper(fmt.Sprintf("p%d", i), fmt.Sprintf("graph networks part %d", i), i*10, "cs.LG"))
	}
	e := newEngine(&fakeFeed{cands: cands}, hashing())
	req := request("graph networks")
	req.OutputLimit = 3

	res, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Corpus.Entries, 3)
	assert.Equal(t, 8, res.Corpus.Fetched)
	assert.Equal(t, 3, res.Corpus.Entries[2].Rank)
}

func TestRunNoCandidates(t *testing.T) {
	tests := []struct {
		name string
		feed *fakeFeed
	}{
		{"empty slice", &fakeFeed{}},
		{"empty result error", &fakeFeed{err: fmt.Errorf("fake: %w", feed.ErrEmptyResult)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newEngine(tt.feed, hashing()).Run(context.Background(), request("nothing"))
			assert.ErrorIs(t, err, ErrNoCandidates)
		})
	}
}

func TestRunDropsFailedEmbeddings(t *testing.T) {
	var cands []types.Candidate
	for i := range 10 {
		title := fmt.Sprintf("retrieval augmented generation %d", i)
		if i == 6 {
			title = "POISON " + title
		}
		cands = append(cands, paper(fmt.Sprintf("p%d", i), title, i, "cs.CL"))
	}
	p := flakyProvider{Provider: hashing(), marker: "POISON"}
	e := newEngine(&fakeFeed{cands: cands}, p)

	res, err := e.Run(context.Background(), request("retrieval augmented generation"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 1, res.Corpus.Dropped)
	require.Len(t, res.Drops, 1)
	assert.Equal(t, "p6", res.Drops[0].ID)
	assert.Len(t, res.Corpus.Entries, 9)
	for _, entry := range res.Corpus.Entries {
		assert.NotEqual(t, "p6", entry.Candidate.ID)
	}
}

func TestRunAllDropped(t *testing.T) {
	cands := []types.Candidate{paper("a", "POISON one", 1), paper("b", "POISON two", 2)}
	p := flakyProvider{Provider: hashing(), marker: "POISON"}

	_, err := newEngine(&fakeFeed{cands: cands}, p).Run(context.Background(), request("anything"))
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestRunNeutralCitationWithoutData(t *testing.T) {
	cands := []types.Candidate{
		paper("a", "federated learning privacy", 3, "cs.LG"),
		paper("b", "federated optimization", 30, "cs.DC"),
		paper("c", "differential privacy", 300, "cs.CR"),
	}
	res, err := newEngine(&fakeFeed{cands: cands}, hashing()).Run(context.Background(), request("federated learning"))
	require.NoError(t, err)
	for _, entry := range res.Corpus.Entries {
		assert.Equal(t, 0.5, entry.Scores.Citation, entry.Candidate.ID)
	}
}

func TestRunDeterministic(t *testing.T) {
	cands := []types.Candidate{
		paper("a", "contrastive learning", 3, "cs.CV"),
		paper("b", "self supervised vision", 3, "cs.CV"),
		paper("c", "masked autoencoders", 90, "cs.CV", "cs.LG"),
		paper("d", "contrastive language image pretraining", 200, "cs.CL"),
	}
	e := newEngine(&fakeFeed{cands: cands}, hashing())
	req := request("contrastive self supervised learning")

	first, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := e.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Corpus.Entries, second.Corpus.Entries)
	assert.NotEqual(t, first.Corpus.RunID, second.Corpus.RunID)
}

func TestRunTieBreak(t *testing.T) {
	// Identical text and categories give identical relevance and novelty.
	same := func(id string, age int) types.Candidate {
		c := paper(id, "identical title", age, "cs.AI")
		c.Abstract = "identical abstract"
		return c
	}
	cands := []types.Candidate{same("zeta", 10), same("alpha", 10), same("mid", 1)}
	e := newEngine(&fakeFeed{cands: cands}, hashing())
	req := request("identical title")
	req.Weights = types.WeightConfig{Relevance: 1}

	res, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	ids := []string{}
	for _, entry := range res.Corpus.Entries {
		ids = append(ids, entry.Candidate.ID)
	}
	// Equal composites: fresher first, then ID ascending.
	assert.Equal(t, []string{"mid", "alpha", "zeta"}, ids)
}

func TestRunInvalidConfigurationBeforeIO(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"empty topic", func(r *Request) { r.Topic = "" }},
		{"zero feed limit", func(r *Request) { r.FeedLimit = 0 }},
		{"zero output limit", func(r *Request) { r.OutputLimit = 0 }},
		{"negative weight", func(r *Request) { r.Weights.Novelty = -1 }},
		{"zero half-life", func(r *Request) { r.HalfLifeDays = 0 }},
		{"empty model", func(r *Request) { r.ModelID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFeed{cands: []types.Candidate{paper("a", "x", 1)}}
			req := request("topic")
			tt.mutate(&req)

			_, err := newEngine(f, hashing()).Run(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Zero(t, f.calls.Load(), "feed must not be called")
		})
	}
}

func TestRunUnknownModel(t *testing.T) {
	f := &fakeFeed{cands: []types.Candidate{paper("a", "x", 1)}}
	req := request("topic")
	req.ModelID = "nope"

	_, err := newEngine(f, hashing()).Run(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.ErrorIs(t, err, embedding.ErrUnknownModel)
	assert.Zero(t, f.calls.Load())
}

func TestRunFeedUnavailable(t *testing.T) {
	f := &fakeFeed{err: fmt.Errorf("fake: %w: HTTP 503", feed.ErrUpstreamUnavailable)}
	_, err := newEngine(f, hashing()).Run(context.Background(), request("topic"))
	assert.ErrorIs(t, err, feed.ErrUpstreamUnavailable)
	assert.False(t, errors.Is(err, ErrNoCandidates))
}

func TestRunTopicEmbeddingFailure(t *testing.T) {
	f := &fakeFeed{cands: []types.Candidate{paper("a", "fine", 1)}}
	p := flakyProvider{Provider: hashing(), marker: "BROKEN"}

	_, err := newEngine(f, p).Run(context.Background(), request("BROKEN topic"))
	assert.ErrorIs(t, err, embedding.ErrModelUnavailable)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeFeed{cands: []types.Candidate{paper("a", "x", 1)}}

	_, err := newEngine(f, hashing()).Run(ctx, request("topic"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunReusesCacheAcrossRuns(t *testing.T) {
	cands := []types.Candidate{paper("a", "one", 1), paper("b", "two", 2)}
	e := newEngine(&fakeFeed{cands: cands}, hashing())

	_, err := e.Run(context.Background(), request("topic"))
	require.NoError(t, err)
	before := e.Cache.Stats().Computations

	_, err = e.Run(context.Background(), request("topic"))
	require.NoError(t, err)
	assert.Equal(t, before, e.Cache.Stats().Computations)
	assert.Equal(t, 3, e.Cache.Len())
}

func TestRunWithoutCache(t *testing.T) {
	e := newEngine(&fakeFeed{cands: []types.Candidate{paper("a", "one", 1)}}, hashing())
	e.Cache = nil

	res, err := e.Run(context.Background(), request("topic"))
	require.NoError(t, err)
	assert.Len(t, res.Corpus.Entries, 1)
}

func TestSortEntries(t *testing.T) {
	entries := []types.RankedEntry{
		{Candidate: types.Candidate{ID: "b"}, Scores: types.ScoreVector{Composite: 0.5, Recency: 0.2}},
		{Candidate: types.Candidate{ID: "a"}, Scores: types.ScoreVector{Composite: 0.5, Recency: 0.2}},
		{Candidate: types.Candidate{ID: "c"}, Scores: types.ScoreVector{Composite: 0.5, Recency: 0.9}},
		{Candidate: types.Candidate{ID: "d"}, Scores: types.ScoreVector{Composite: 0.7}},
	}
	SortEntries(entries)

	var ids []string
	for _, e := range entries {
		ids = append(ids, e.Candidate.ID)
	}
	assert.Equal(t, []string{"d", "c", "a", "b"}, ids)
}
