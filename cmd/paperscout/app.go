// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/paperscout/internal/embedcache"
	"github.com/pdiddy/paperscout/internal/embedding"
	"github.com/pdiddy/paperscout/internal/feed"
	"github.com/pdiddy/paperscout/internal/metrics"
	"github.com/pdiddy/paperscout/internal/ranking"
	"github.com/pdiddy/paperscout/internal/secrets"
	"github.com/pdiddy/paperscout/internal/tracing"
	"github.com/pdiddy/paperscout/pkg/types"
)

// loadConfig resolves the pipeline configuration from defaults, config
// file, environment and bound flags, then fills secrets.
func loadConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}
	if len(cfg.Embedding.Models) == 0 {
		cfg.Embedding.Models = types.DefaultModels()
	}
	cfg.Feed.SemanticScholarAPIKey = secretDefault(secrets.SemanticScholarAPIKey, cfg.Feed.SemanticScholarAPIKey)
	cfg.Feed.OpenAlexEmail = secretDefault(secrets.OpenAlexEmail, cfg.Feed.OpenAlexEmail)
	cfg.Embedding.OpenAIAPIKey = secretDefault(secrets.OpenAIAPIKey, cfg.Embedding.OpenAIAPIKey)
	return cfg, nil
}

// traceFlushTimeout bounds the span flush on exit.
const traceFlushTimeout = 5 * time.Second

// startTracing installs the configured tracer provider. The returned
// function flushes pending spans and must run before the process exits.
func startTracing(cfg types.TracingConfig) (func(), error) {
	provider, err := tracing.NewProvider(cfg, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("configuring tracing: %w", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), traceFlushTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}, nil
}

// pipeline holds the long-lived components a command needs.
type pipeline struct {
	engine   *ranking.Engine
	registry *embedding.Registry
	cache    *embedcache.Cache
}

func (p *pipeline) Close() error {
	return p.cache.Close()
}

// buildPipeline wires feed, models and cache into a ranking engine. m
// may be nil.
func buildPipeline(ctx context.Context, cfg types.PipelineConfig, m *metrics.Metrics) (*pipeline, error) {
	client := &http.Client{Timeout: cfg.Feed.Timeout}

	fc, err := feed.New(cfg.Feed, client, logger)
	if err != nil {
		return nil, err
	}

	registry, err := embedding.NewRegistry(cfg.Embedding, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("configuring embedding models: %w", err)
	}

	cache, err := openCache(ctx, cfg.Cache, m)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		engine: &ranking.Engine{
			Feed:        fc,
			FeedConfig:  cfg.Feed,
			Models:      registry,
			Cache:       cache,
			Concurrency: cfg.Ranking.Concurrency,
			Logger:      logger,
			Metrics:     m,
		},
		registry: registry,
		cache:    cache,
	}, nil
}

func openCache(ctx context.Context, cfg types.CacheConfig, m *metrics.Metrics) (*embedcache.Cache, error) {
	store, err := embedcache.OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}
	opts := []embedcache.Option{embedcache.WithLogger(logger), embedcache.WithMetrics(m)}
	if store != nil {
		opts = append(opts, embedcache.WithStore(store))
	}
	return embedcache.New(opts...), nil
}

// requestFromConfig builds a ranking request for topic.
func requestFromConfig(topic string, cfg types.PipelineConfig) ranking.Request {
	return ranking.Request{
		Topic:        topic,
		FeedLimit:    cfg.Feed.Limit,
		OutputLimit:  cfg.Ranking.OutputLimit,
		Weights:      cfg.Ranking.Weights,
		ModelID:      cfg.Embedding.Model,
		HalfLifeDays: cfg.Ranking.HalfLifeDays,
	}
}

// describeRunError turns a run failure into a status message.
func describeRunError(err error) string {
	switch {
	case errors.Is(err, ranking.ErrInvalidConfiguration):
		return fmt.Sprintf("invalid configuration: %v", err)
	case errors.Is(err, ranking.ErrNoCandidates):
		return "no papers matched the topic; try broader keywords or categories"
	case errors.Is(err, feed.ErrUpstreamUnavailable):
		return fmt.Sprintf("the paper feed is unavailable, try again later: %v", err)
	case errors.Is(err, embedding.ErrModelUnavailable):
		return fmt.Sprintf("the embedding model is unavailable: %v", err)
	case errors.Is(err, context.Canceled):
		return "ranking cancelled"
	default:
		return err.Error()
	}
}
