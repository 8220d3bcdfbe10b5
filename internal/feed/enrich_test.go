// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperscout/pkg/types"
)

type fakeCitations struct {
	counts map[string]int
	err    error
	asked  []string
}

func (f *fakeCitations) CitationCounts(_ context.Context, ids []string) (map[string]int, error) {
	f.asked = append(f.asked, ids...)
	return f.counts, f.err
}

func TestCitationEnricherFillsUnknownCounts(t *testing.T) {
	inner := &mockClient{name: "arxiv", cands: []types.Candidate{
		{ID: "2401.00001", Source: "arxiv"},
		{ID: "2401.00002", Source: "arxiv", Citations: intPtr(9)},
		{ID: "2401.00003", Source: "arxiv"},
	}}
	src := &fakeCitations{counts: map[string]int{"2401.00001": 12}}
	e := &CitationEnricher{Inner: inner, Source: src, Logger: discardLogger()}

	got, err := e.Fetch(context.Background(), Query{Topic: "x"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []string{"2401.00001", "2401.00003"}, src.asked)
	require.NotNil(t, got[0].Citations)
	assert.Equal(t, 12, *got[0].Citations)
	assert.Equal(t, 9, *got[1].Citations)
	assert.Nil(t, got[2].Citations)

	// The wrapped client's slice is left untouched.
	assert.Nil(t, inner.cands[0].Citations)
}

func TestCitationEnricherToleratesLookupFailure(t *testing.T) {
	inner := &mockClient{name: "arxiv", cands: []types.Candidate{{ID: "2401.00001", Source: "arxiv"}}}
	src := &fakeCitations{err: unavailable("semantic_scholar", errors.New("HTTP 429"))}
	e := &CitationEnricher{Inner: inner, Source: src, Logger: discardLogger()}

	got, err := e.Fetch(context.Background(), Query{Topic: "x"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Citations)
}

func TestCitationEnricherPassesFetchError(t *testing.T) {
	inner := &mockClient{name: "arxiv", err: unavailable("arxiv", errors.New("down"))}
	src := &fakeCitations{}
	e := &CitationEnricher{Inner: inner, Source: src, Logger: discardLogger()}

	_, err := e.Fetch(context.Background(), Query{Topic: "x"}, 10)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Empty(t, src.asked)
}
