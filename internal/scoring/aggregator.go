// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"fmt"
	"time"

	"github.com/pdiddy/paperscout/pkg/types"
)

// Item is one embedded candidate of a batch.
type Item struct {
	Candidate types.Candidate
	Vector    []float64
}

// Aggregator scores batches under fixed weights and half-life.
type Aggregator struct {
	Weights      types.WeightConfig
	HalfLifeDays float64
}

// NewAggregator validates and normalizes the weights.
func NewAggregator(w types.WeightConfig, halfLifeDays float64) (*Aggregator, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if halfLifeDays <= 0 {
		return nil, fmt.Errorf("half-life must be positive, got %g", halfLifeDays)
	}
	return &Aggregator{Weights: w.Normalized(), HalfLifeDays: halfLifeDays}, nil
}

// ScoreBatch scores every item against topic and the rest of the batch.
// The result is index-aligned with items. Batch-relative scores
// (novelty, citation) need the whole batch, so call this after all
// embeddings are available.
func (a *Aggregator) ScoreBatch(topic []float64, items []Item, now time.Time) []types.ScoreVector {
	cands := make([]types.Candidate, len(items))
	for i, it := range items {
		cands[i] = it.Candidate
	}
	novelty := Novelty(cands)
	citation := Citation(cands)

	out := make([]types.ScoreVector, len(items))
	for i, it := range items {
		s := types.ScoreVector{
			Relevance: Relevance(topic, it.Vector),
			Novelty:   novelty[i],
			Recency:   Recency(it.Candidate.Published, now, a.HalfLifeDays),
			Citation:  citation[i],
		}
		s.Composite = Composite(s, a.Weights)
		out[i] = s
	}
	return out
}

// Score scores the item at index i of batch. It is equivalent to
// ScoreBatch(...)[i].
func (a *Aggregator) Score(topic []float64, batch []Item, i int, now time.Time) (types.ScoreVector, error) {
	if i < 0 || i >= len(batch) {
		return types.ScoreVector{}, fmt.Errorf("item index %d out of range [0,%d)", i, len(batch))
	}
	return a.ScoreBatch(topic, batch, now)[i], nil
}
