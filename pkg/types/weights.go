// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"math"
)

// WeightConfig holds one non-negative weight per sub-score. Callers may
// supply any scale; Normalized rescales the vector to sum to 1.
type WeightConfig struct {
	Relevance float64 `json:"relevance" yaml:"relevance" mapstructure:"relevance"`
	Novelty   float64 `json:"novelty" yaml:"novelty" mapstructure:"novelty"`
	Recency   float64 `json:"recency" yaml:"recency" mapstructure:"recency"`
	Citation  float64 `json:"citation" yaml:"citation" mapstructure:"citation"`
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() WeightConfig {
	return WeightConfig{Relevance: 0.4, Novelty: 0.2, Recency: 0.2, Citation: 0.2}
}

// Validate rejects negative, NaN and infinite weights.
func (w WeightConfig) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"relevance", w.Relevance},
		{"novelty", w.Novelty},
		{"recency", w.Recency},
		{"citation", w.Citation},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("weight %s is not a finite number", f.name)
		}
		if f.v < 0 {
			return fmt.Errorf("weight %s is negative (%g)", f.name, f.v)
		}
	}
	return nil
}

// Sum returns the sum of the four weights.
func (w WeightConfig) Sum() float64 {
	return w.Relevance + w.Novelty + w.Recency + w.Citation
}

// Normalized returns a copy of w scaled to sum to 1. An all-zero vector
// yields an even split. The receiver is never modified.
func (w WeightConfig) Normalized() WeightConfig {
	sum := w.Sum()
	if sum <= 0 {
		return WeightConfig{Relevance: 0.25, Novelty: 0.25, Recency: 0.25, Citation: 0.25}
	}
	return WeightConfig{
		Relevance: w.Relevance / sum,
		Novelty:   w.Novelty / sum,
		Recency:   w.Recency / sum,
		Citation:  w.Citation / sum,
	}
}
