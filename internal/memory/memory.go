// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package memory holds the most recent RankedCorpus as a read-only view
// for the conversational layer. A new ranking replaces the view
// wholesale; entries from successive runs are never merged.
//
// See docs/ARCHITECTURE § CorpusMemory.
package memory

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/pdiddy/paperscout/internal/ranking"
	"github.com/pdiddy/paperscout/pkg/types"
)

// Memory is an immutable view over one ranked corpus.
type Memory struct {
	corpus types.RankedCorpus
	byID   map[string]int
}

// New builds a Memory from a copy of corpus. Later changes to the
// caller's corpus are not visible through the Memory.
func New(corpus types.RankedCorpus) *Memory {
	entries := make([]types.RankedEntry, len(corpus.Entries))
	for i, e := range corpus.Entries {
		entries[i] = copyEntry(e)
	}
	corpus.Entries = entries

	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		if _, dup := byID[e.Candidate.ID]; !dup {
			byID[e.Candidate.ID] = i
		}
	}
	return &Memory{corpus: corpus, byID: byID}
}

// Load builds a Memory from a saved corpus file.
func Load(path string) (*Memory, error) {
	cf, err := ranking.ReadCorpusFile(path)
	if err != nil {
		return nil, err
	}
	return New(cf.Corpus()), nil
}

// Get returns the candidate with the given ID.
func (m *Memory) Get(id string) (types.Candidate, bool) {
	i, ok := m.byID[id]
	if !ok {
		return types.Candidate{}, false
	}
	return copyCandidate(m.corpus.Entries[i].Candidate), true
}

// Entry returns the ranked entry with the given ID.
func (m *Memory) Entry(id string) (types.RankedEntry, bool) {
	i, ok := m.byID[id]
	if !ok {
		return types.RankedEntry{}, false
	}
	return copyEntry(m.corpus.Entries[i]), true
}

// TopK returns copies of the first k entries in rank order. k <= 0 yields
// an empty slice; k larger than the corpus yields every entry.
func (m *Memory) TopK(k int) []types.RankedEntry {
	if k <= 0 {
		return []types.RankedEntry{}
	}
	k = min(k, len(m.corpus.Entries))
	out := make([]types.RankedEntry, k)
	for i := range k {
		out[i] = copyEntry(m.corpus.Entries[i])
	}
	return out
}

// Corpus returns a copy of the whole corpus.
func (m *Memory) Corpus() types.RankedCorpus {
	c := m.corpus
	c.Entries = m.TopK(len(m.corpus.Entries))
	return c
}

// Len returns the number of ranked entries.
func (m *Memory) Len() int { return len(m.corpus.Entries) }

// RunID returns the id of the ranking run that produced the corpus.
func (m *Memory) RunID() string { return m.corpus.RunID }

// Topic returns the research topic the corpus was ranked for.
func (m *Memory) Topic() string { return m.corpus.Topic }

// GroundingContext renders the top k entries as a numbered plain-text
// block suitable for inclusion in a chat prompt.
func (m *Memory) GroundingContext(k int) string {
	entries := m.TopK(k)
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d papers for %q:\n", len(entries), m.corpus.Topic)
	for _, e := range entries {
		c := e.Candidate
		fmt.Fprintf(&b, "\n[%d] %s\n", e.Rank, oneLine(c.Title))
		if len(c.Authors) > 0 {
			fmt.Fprintf(&b, "    Authors: %s\n", strings.Join(c.Authors, ", "))
		}
		if !c.Published.IsZero() {
			fmt.Fprintf(&b, "    Published: %s\n", c.Published.Format("2006-01-02"))
		}
		fmt.Fprintf(&b, "    ID: %s\n", c.ID)
		if c.URL != "" {
			fmt.Fprintf(&b, "    URL: %s\n", c.URL)
		}
		s := e.Scores
		fmt.Fprintf(&b, "    Scores: composite %.3f, relevance %.2f, novelty %.2f, recency %.2f, citation %.2f\n",
			s.Composite, s.Relevance, s.Novelty, s.Recency, s.Citation)
		if c.Abstract != "" {
			fmt.Fprintf(&b, "    Abstract: %s\n", oneLine(c.Abstract))
		}
	}
	return b.String()
}

// oneLine collapses runs of whitespace, including newlines, to one space.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func copyEntry(e types.RankedEntry) types.RankedEntry {
	e.Candidate = copyCandidate(e.Candidate)
	return e
}

func copyCandidate(c types.Candidate) types.Candidate {
	c.Authors = append([]string(nil), c.Authors...)
	c.Categories = append([]string(nil), c.Categories...)
	if c.Citations != nil {
		n := *c.Citations
		c.Citations = &n
	}
	return c
}

// Holder publishes the current Memory to concurrent readers.
type Holder struct {
	current atomic.Pointer[Memory]
}

// Replace swaps in m; readers see either the old or the new view.
func (h *Holder) Replace(m *Memory) {
	h.current.Store(m)
}

// Current returns the latest Memory, or nil before the first Replace.
func (h *Holder) Current() *Memory {
	return h.current.Load()
}
