// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paperscout ranking
// pipeline: fetched candidates, their score vectors, the ranked corpus a
// run produces, and the configuration each stage consumes.
//
// See docs/ARCHITECTURE.md § Data Model.
package types

import (
	"strings"
	"time"
)

// Candidate is one paper retrieved from the upstream feed. It is
// immutable for the duration of a ranking run.
type Candidate struct {
	// ID is the stable feed-assigned identifier (e.g. "2301.07041" for arXiv).
	ID string `json:"id" yaml:"id"`

	// Title is the paper title as returned by the feed.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract or summary.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Published is the publication or preprint date. Zero when unknown.
	Published time.Time `json:"published" yaml:"published"`

	// Authors lists the paper authors in feed order.
	Authors []string `json:"authors" yaml:"authors"`

	// Citations is the raw citation count. Nil means the feed had no data.
	Citations *int `json:"citations,omitempty" yaml:"citations,omitempty"`

	// Categories are the feed-provided subject categories (e.g. "cs.LG").
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// URL links to the paper landing page.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Source identifies the feed that produced the record (e.g. "arxiv").
	Source string `json:"source" yaml:"source"`
}

// Text returns the text that represents the candidate for embedding:
// the title and abstract separated by a newline.
func (c Candidate) Text() string {
	return strings.TrimSpace(c.Title + "\n" + c.Abstract)
}

// HasCitations reports whether the feed supplied a citation count.
func (c Candidate) HasCitations() bool {
	return c.Citations != nil
}

// ScoreVector holds the per-candidate sub-scores and their weighted
// composite. Every field lies in [0, 1].
type ScoreVector struct {
	Relevance float64 `json:"relevance" yaml:"relevance"`
	Novelty   float64 `json:"novelty" yaml:"novelty"`
	Recency   float64 `json:"recency" yaml:"recency"`
	Citation  float64 `json:"citation" yaml:"citation"`
	Composite float64 `json:"composite" yaml:"composite"`
}

// RankedEntry pairs a candidate with its scores and 1-based rank.
type RankedEntry struct {
	Rank      int         `json:"rank" yaml:"rank"`
	Candidate Candidate   `json:"candidate" yaml:"candidate"`
	Scores    ScoreVector `json:"scores" yaml:"scores"`
}

// RankedCorpus is the ordered, size-capped result of one ranking run.
// A later run supersedes it; it is never mutated after construction.
type RankedCorpus struct {
	RunID       string        `json:"run_id" yaml:"run_id"`
	Topic       string        `json:"topic" yaml:"topic"`
	Model       string        `json:"model" yaml:"model"`
	Weights     WeightConfig  `json:"weights" yaml:"weights"`
	GeneratedAt time.Time     `json:"generated_at" yaml:"generated_at"`
	Fetched     int           `json:"fetched" yaml:"fetched"`
	Dropped     int           `json:"dropped" yaml:"dropped"`
	Entries     []RankedEntry `json:"entries" yaml:"entries"`
}

// Len returns the number of ranked entries.
func (c RankedCorpus) Len() int { return len(c.Entries) }
