// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperscout/pkg/types"
)

func snapshotCandidates(n int) []types.Candidate {
	out := make([]types.Candidate, n)
	for i := range out {
		out[i] = types.Candidate{
			ID:        fmt.Sprintf("2401.%05d", i),
			Title:     fmt.Sprintf("Paper %d", i),
			Published: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Source:    "arxiv",
		}
	}
	return out
}

func TestSnapshotSavesAndServesWhenUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "feed.yaml")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	inner := &mockClient{name: "arxiv", cands: snapshotCandidates(3)}
	s := &SnapshotClient{Inner: inner, Path: path, MaxAge: 24 * time.Hour, Logger: discardLogger(),
		now: func() time.Time { return now }}

	got, err := s.Fetch(context.Background(), Query{Topic: "attention"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	snap, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, "arxiv", snap.Feed)
	assert.Equal(t, "attention", snap.Query)
	assert.Len(t, snap.Candidates, 3)

	inner.err = unavailable("arxiv", errors.New("HTTP 503"))
	now = now.Add(time.Hour)
	got, err = s.Fetch(context.Background(), Query{Topic: "attention"}, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "2401.00000", got[0].ID)
}

func TestSnapshotStaleIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.yaml")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	inner := &mockClient{name: "arxiv", cands: snapshotCandidates(2)}
	s := &SnapshotClient{Inner: inner, Path: path, MaxAge: 24 * time.Hour, Logger: discardLogger(),
		now: func() time.Time { return now }}
	_, err := s.Fetch(context.Background(), Query{Topic: "attention"}, 10)
	require.NoError(t, err)

	inner.err = unavailable("arxiv", errors.New("timeout"))
	now = now.Add(25 * time.Hour)
	_, err = s.Fetch(context.Background(), Query{Topic: "attention"}, 10)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestSnapshotOnlyCoversUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.yaml")
	inner := &mockClient{name: "arxiv", cands: snapshotCandidates(2)}
	s := &SnapshotClient{Inner: inner, Path: path, Logger: discardLogger()}
	_, err := s.Fetch(context.Background(), Query{Topic: "attention"}, 10)
	require.NoError(t, err)

	inner.err = emptyResult("arxiv")
	_, err = s.Fetch(context.Background(), Query{Topic: "attention"}, 10)
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestSnapshotMissingFileReturnsOriginalError(t *testing.T) {
	inner := &mockClient{name: "arxiv", err: unavailable("arxiv", errors.New("down"))}
	s := &SnapshotClient{Inner: inner, Path: filepath.Join(t.TempDir(), "none.yaml"), Logger: discardLogger()}
	_, err := s.Fetch(context.Background(), Query{Topic: "attention"}, 10)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestSnapshotCapsStoredCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.yaml")
	inner := &mockClient{name: "arxiv", cands: snapshotCandidates(120)}
	s := &SnapshotClient{Inner: inner, Path: path, Logger: discardLogger()}
	_, err := s.Fetch(context.Background(), Query{Topic: "attention"}, 200)
	require.NoError(t, err)

	snap, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Len(t, snap.Candidates, snapshotMaxCandidates)
}
