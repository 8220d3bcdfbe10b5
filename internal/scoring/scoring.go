// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scoring computes the per-candidate sub-scores (relevance,
// novelty, recency, citation) and combines them into a weighted
// composite. Every sub-score lies in [0, 1] before weighting.
//
// See docs/ARCHITECTURE § ScoreAggregator.
package scoring

import (
	"math"
	"time"

	"github.com/pdiddy/paperscout/pkg/types"
)

// NeutralCitation is the citation score of a candidate without data.
const NeutralCitation = 0.5

// Relevance rescales the cosine similarity of topic and candidate from
// [-1, 1] to [0, 1]. A zero vector or a width mismatch carries no
// signal and scores the midpoint.
func Relevance(topic, cand []float64) float64 {
	if len(topic) == 0 || len(topic) != len(cand) {
		return 0.5
	}
	var dot, nt, nc float64
	for i := range topic {
		dot += topic[i] * cand[i]
		nt += topic[i] * topic[i]
		nc += cand[i] * cand[i]
	}
	if nt == 0 || nc == 0 {
		return 0.5
	}
	cos := dot / (math.Sqrt(nt) * math.Sqrt(nc))
	return clamp01((cos + 1) / 2)
}

// Recency decays exponentially with age: exp(-age/halfLife). Dates in the
// future count as age zero; an unknown date scores 0.
func Recency(published, now time.Time, halfLifeDays float64) float64 {
	if published.IsZero() || halfLifeDays <= 0 {
		return 0
	}
	age := now.Sub(published).Hours() / 24
	if age < 0 {
		age = 0
	}
	return clamp01(math.Exp(-age / halfLifeDays))
}

// Novelty scores each candidate by how sparsely its categories occur in
// the batch: the mean of 1/count over its categories, divided by the
// batch maximum so the most novel candidate scores exactly 1.
// Uncategorized candidates share one bucket.
func Novelty(batch []types.Candidate) []float64 {
	counts := make(map[string]int)
	for _, c := range batch {
		for _, cat := range categoriesOf(c) {
			counts[cat]++
		}
	}

	raw := make([]float64, len(batch))
	var maxRaw float64
	for i, c := range batch {
		cats := categoriesOf(c)
		var sum float64
		for _, cat := range cats {
			sum += 1 / float64(counts[cat])
		}
		raw[i] = sum / float64(len(cats))
		maxRaw = math.Max(maxRaw, raw[i])
	}

	if maxRaw == 0 {
		return raw
	}
	for i := range raw {
		raw[i] = clamp01(raw[i] / maxRaw)
	}
	return raw
}

// categoriesOf returns the distinct categories of c, or the shared empty
// bucket when it has none.
func categoriesOf(c types.Candidate) []string {
	if len(c.Categories) == 0 {
		return []string{""}
	}
	seen := make(map[string]bool, len(c.Categories))
	out := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	return out
}

// Citation maps raw counts to log1p(c)/log1p(max) over the batch. A
// candidate without data scores NeutralCitation, and so does every
// candidate when no one in the batch has data. When every known count is
// zero the known zeros score 0.
func Citation(batch []types.Candidate) []float64 {
	maxCount := -1
	for _, c := range batch {
		if c.Citations != nil && *c.Citations > maxCount {
			maxCount = *c.Citations
		}
	}

	out := make([]float64, len(batch))
	for i, c := range batch {
		switch {
		case c.Citations == nil:
			out[i] = NeutralCitation
		case maxCount <= 0 || *c.Citations <= 0:
			out[i] = 0
		default:
			out[i] = clamp01(math.Log1p(float64(*c.Citations)) / math.Log1p(float64(maxCount)))
		}
	}
	return out
}

// Composite returns the weighted sum of the sub-scores under w, which is
// normalized first.
func Composite(s types.ScoreVector, w types.WeightConfig) float64 {
	n := w.Normalized()
	return clamp01(n.Relevance*s.Relevance + n.Novelty*s.Novelty + n.Recency*s.Recency + n.Citation*s.Citation)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
