// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ranking orchestrates one ranking run: fetch candidates, embed
// the topic and every candidate through the shared cache, score the
// batch, then sort, tie-break and truncate into a RankedCorpus.
//
// See docs/ARCHITECTURE § RankingEngine.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paperscout/internal/embedcache"
	"github.com/pdiddy/paperscout/internal/embedding"
	"github.com/pdiddy/paperscout/internal/feed"
	"github.com/pdiddy/paperscout/internal/metrics"
	"github.com/pdiddy/paperscout/internal/scoring"
	"github.com/pdiddy/paperscout/internal/tracing"
	"github.com/pdiddy/paperscout/pkg/types"
)

var (
	// ErrNoCandidates means the run had nothing to rank: the feed
	// returned zero candidates or every candidate was dropped.
	ErrNoCandidates = errors.New("no candidates to rank")

	// ErrInvalidConfiguration means the request was rejected before any
	// network or model call.
	ErrInvalidConfiguration = errors.New("invalid ranking configuration")
)

// defaultConcurrency bounds candidate embedding when none is configured.
const defaultConcurrency = 4

// ModelResolver resolves a model id to a provider.
type ModelResolver interface {
	Lookup(id string) (embedding.Provider, error)
}

// Request holds the parameters of one run.
type Request struct {
	Topic        string
	FeedLimit    int
	OutputLimit  int
	Weights      types.WeightConfig
	ModelID      string
	HalfLifeDays float64
}

// Validate checks the request without touching the network.
func (r Request) Validate() error {
	var errs []error
	if r.Topic == "" {
		errs = append(errs, errors.New("topic is empty"))
	}
	if r.FeedLimit <= 0 {
		errs = append(errs, fmt.Errorf("feed limit must be positive, got %d", r.FeedLimit))
	}
	if r.OutputLimit <= 0 {
		errs = append(errs, fmt.Errorf("output limit must be positive, got %d", r.OutputLimit))
	}
	if r.ModelID == "" {
		errs = append(errs, errors.New("model id is empty"))
	}
	if r.HalfLifeDays <= 0 {
		errs = append(errs, fmt.Errorf("half-life must be positive, got %g", r.HalfLifeDays))
	}
	if err := r.Weights.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, errors.Join(errs...))
	}
	return nil
}

// Timings records the wall time of each stage.
type Timings struct {
	Fetch time.Duration `json:"fetch"`
	Embed time.Duration `json:"embed"`
	Score time.Duration `json:"score"`
	Total time.Duration `json:"total"`
}

// Drop describes one candidate removed because its embedding failed.
type Drop struct {
	ID  string `json:"id" yaml:"id"`
	Err string `json:"error" yaml:"error"`
}

// Result is the outcome of a successful run.
type Result struct {
	Corpus  types.RankedCorpus `json:"corpus"`
	Dropped int                `json:"dropped"`
	Drops   []Drop             `json:"drops,omitempty"`
	Timings Timings            `json:"timings"`
}

// Engine runs rankings. Its Cache is shared across runs; the other fields
// are read-only after construction.
type Engine struct {
	Feed        feed.Client
	FeedConfig  types.FeedConfig
	Models      ModelResolver
	Cache       *embedcache.Cache
	Concurrency int
	Logger      *slog.Logger
	Metrics     *metrics.Metrics

	// now is replaced in tests.
	now func() time.Time
}

// Run executes one ranking. It fails with ErrInvalidConfiguration before
// any I/O, with feed.ErrUpstreamUnavailable when the feed is down, with
// embedding.ErrModelUnavailable when the topic cannot be embedded and
// with ErrNoCandidates when nothing survives to be ranked. Candidates
// whose embedding fails are dropped and counted in the result.
func (e *Engine) Run(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	provider, err := e.Models.Lookup(req.ModelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	ctx, endSpan := tracing.StartSpan(ctx, "ranking.run",
		attribute.String("topic", req.Topic),
		attribute.String("model", req.ModelID),
		attribute.Int("feed_limit", req.FeedLimit),
	)
	defer func() {
		endSpan(err)
		e.Metrics.ObserveRun(err, time.Since(start).Seconds())
	}()

	runID := uuid.NewString()
	log := e.logger().With("run_id", runID, "topic", req.Topic, "model", req.ModelID)
	log.Info("ranking run started", "feed", e.Feed.Name(), "feed_limit", req.FeedLimit)

	var timings Timings

	// Fetch and topic embedding are independent.
	var (
		cands    []types.Candidate
		topicVec []float64
	)
	fetchStart := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query := feed.QueryFromTopic(req.Topic, e.FeedConfig)
		got, err := e.Feed.Fetch(gctx, query, req.FeedLimit)
		e.Metrics.IncFeedRequest(e.Feed.Name(), ignoreEmpty(err))
		if errors.Is(err, feed.ErrEmptyResult) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetching candidates: %w", err)
		}
		cands = got
		return nil
	})
	g.Go(func() error {
		vec, err := e.embed(gctx, req.Topic, req.ModelID, provider)
		if err != nil {
			return fmt.Errorf("embedding topic: %w", err)
		}
		topicVec = vec
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("ranking run failed", "stage", "fetch", "error", err)
		return nil, err
	}
	timings.Fetch = time.Since(fetchStart)
	tracing.AddEvent(ctx, "fetched", attribute.Int("candidates", len(cands)))

	if len(cands) == 0 {
		log.Warn("feed returned no candidates")
		return nil, fmt.Errorf("%w: feed %s returned no matches for %q", ErrNoCandidates, e.Feed.Name(), req.Topic)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embedStart := time.Now()
	vectors, drops, err := e.embedAll(ctx, cands, req.ModelID, provider)
	if err != nil {
		return nil, err
	}
	timings.Embed = time.Since(embedStart)
	for _, d := range drops {
		log.Warn("candidate dropped", "id", d.ID, "error", d.Err)
	}

	items := make([]scoring.Item, 0, len(cands))
	for i, c := range cands {
		if vectors[i] != nil {
			items = append(items, scoring.Item{Candidate: c, Vector: vectors[i]})
		}
	}
	e.Metrics.AddCandidates(len(cands), len(drops))
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: all %d candidates dropped", ErrNoCandidates, len(cands))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scoreStart := time.Now()
	agg, err := scoring.NewAggregator(req.Weights, req.HalfLifeDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	now := e.clock()
	scores := agg.ScoreBatch(topicVec, items, now)
	entries := make([]types.RankedEntry, len(items))
	for i, it := range items {
		entries[i] = types.RankedEntry{Candidate: it.Candidate, Scores: scores[i]}
	}
	SortEntries(entries)
	if len(entries) > req.OutputLimit {
		entries = entries[:req.OutputLimit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	timings.Score = time.Since(scoreStart)
	timings.Total = time.Since(start)

	res = &Result{
		Corpus: types.RankedCorpus{
			RunID:       runID,
			Topic:       req.Topic,
			Model:       req.ModelID,
			Weights:     agg.Weights,
			GeneratedAt: now,
			Fetched:     len(cands),
			Dropped:     len(drops),
			Entries:     entries,
		},
		Dropped: len(drops),
		Drops:   drops,
		Timings: timings,
	}
	tracing.SetAttributes(ctx, attribute.Int("ranked", len(entries)), attribute.Int("dropped", len(drops)))
	log.Info("ranking run finished",
		"fetched", len(cands), "dropped", len(drops), "ranked", len(entries),
		"duration", timings.Total.Round(time.Millisecond).String())
	return res, nil
}

// embedAll embeds every candidate with bounded parallelism. The returned
// slice is index-aligned with cands; a nil entry marks a dropped
// candidate. Only cancellation of ctx fails the whole call.
func (e *Engine) embedAll(ctx context.Context, cands []types.Candidate, modelID string, provider embedding.Provider) ([][]float64, []Drop, error) {
	vectors := make([][]float64, len(cands))
	var (
		mu    sync.Mutex
		drops []Drop
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())
	for i, c := range cands {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			vec, err := e.embed(gctx, c.Text(), modelID, provider)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				mu.Lock()
				drops = append(drops, Drop{ID: c.ID, Err: err.Error()})
				mu.Unlock()
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Goroutines finish in any order; report drops in batch order.
	order := make(map[string]int, len(cands))
	for i, c := range cands {
		order[c.ID] = i
	}
	sort.Slice(drops, func(i, j int) bool { return order[drops[i].ID] < order[drops[j].ID] })
	return vectors, drops, nil
}

func (e *Engine) embed(ctx context.Context, text, modelID string, provider embedding.Provider) ([]float64, error) {
	if e.Cache != nil {
		return e.Cache.GetOrCompute(ctx, text, modelID, provider)
	}
	start := time.Now()
	vec, err := provider.Embed(ctx, text)
	e.Metrics.ObserveEmbedding(modelID, err, time.Since(start).Seconds())
	return vec, err
}

// SortEntries orders entries by composite descending, then recency
// descending, then candidate ID ascending. The order is total for
// distinct IDs, so truncation is deterministic.
func SortEntries(entries []types.RankedEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Scores.Composite != b.Scores.Composite {
			return a.Scores.Composite > b.Scores.Composite
		}
		if a.Scores.Recency != b.Scores.Recency {
			return a.Scores.Recency > b.Scores.Recency
		}
		return a.Candidate.ID < b.Candidate.ID
	})
}

func ignoreEmpty(err error) error {
	if errors.Is(err, feed.ErrEmptyResult) {
		return nil
	}
	return err
}

func (e *Engine) concurrency() int {
	if e.Concurrency <= 0 {
		return defaultConcurrency
	}
	return e.Concurrency
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now().UTC()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
