// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ranking

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperscout/pkg/types"
)

// CorpusFile is the on-disk representation of a ranking run. A saved
// corpus can be reloaded as conversational memory without re-running the
// ranking.
type CorpusFile struct {
	Query   CorpusQuery         `yaml:"query"`
	Config  CorpusConfig        `yaml:"config"`
	Entries []types.RankedEntry `yaml:"entries"`
	Summary CorpusSummary       `yaml:"summary"`
}

// CorpusQuery stores what was asked.
type CorpusQuery struct {
	Topic string `yaml:"topic"`
	Model string `yaml:"model"`
}

// CorpusConfig stores the parameters that shaped the ranking.
type CorpusConfig struct {
	FeedLimit    int                `yaml:"feed_limit"`
	OutputLimit  int                `yaml:"output_limit"`
	HalfLifeDays float64            `yaml:"half_life_days"`
	Weights      types.WeightConfig `yaml:"weights"`
}

// CorpusSummary stores run statistics and a timestamp.
type CorpusSummary struct {
	RunID     string        `yaml:"run_id"`
	Fetched   int           `yaml:"fetched"`
	Dropped   int           `yaml:"dropped"`
	Drops     []Drop        `yaml:"drops,omitempty"`
	Duration  time.Duration `yaml:"duration"`
	Timestamp time.Time     `yaml:"timestamp"`
}

// WriteCorpusFile saves a run result and its request to a YAML file.
func WriteCorpusFile(path string, req Request, res *Result) error {
	if res == nil {
		return fmt.Errorf("no ranking result to write")
	}
	cf := CorpusFile{
		Query: CorpusQuery{
			Topic: res.Corpus.Topic,
			Model: res.Corpus.Model,
		},
		Config: CorpusConfig{
			FeedLimit:    req.FeedLimit,
			OutputLimit:  req.OutputLimit,
			HalfLifeDays: req.HalfLifeDays,
			Weights:      res.Corpus.Weights,
		},
		Entries: res.Corpus.Entries,
		Summary: CorpusSummary{
			RunID:     res.Corpus.RunID,
			Fetched:   res.Corpus.Fetched,
			Dropped:   res.Dropped,
			Drops:     res.Drops,
			Duration:  res.Timings.Total,
			Timestamp: res.Corpus.GeneratedAt,
		},
	}

	data, err := yaml.Marshal(&cf)
	if err != nil {
		return fmt.Errorf("marshaling corpus file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadCorpusFile loads a previously saved corpus file from disk.
func ReadCorpusFile(path string) (*CorpusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}
	var cf CorpusFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing corpus file: %w", err)
	}
	return &cf, nil
}

// Corpus converts the stored file back into a RankedCorpus.
func (cf CorpusFile) Corpus() types.RankedCorpus {
	return types.RankedCorpus{
		RunID:       cf.Summary.RunID,
		Topic:       cf.Query.Topic,
		Model:       cf.Query.Model,
		Weights:     cf.Config.Weights,
		GeneratedAt: cf.Summary.Timestamp,
		Fetched:     cf.Summary.Fetched,
		Dropped:     cf.Summary.Dropped,
		Entries:     cf.Entries,
	}
}
