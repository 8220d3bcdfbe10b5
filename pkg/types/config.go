// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds each upstream request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paperscout/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries is the number of retries after a failed request before the
	// upstream is reported unavailable.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// FeedSource identifies the upstream paper feed.
type FeedSource string

const (
	SourceArxiv           FeedSource = "arxiv"
	SourceSemanticScholar FeedSource = "semantic_scholar"
	SourceOpenAlex        FeedSource = "openalex"
)

// FeedConfig holds settings for the FeedClient.
type FeedConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Source selects the upstream feed (default arxiv).
	Source FeedSource `json:"source" yaml:"source" mapstructure:"source"`

	// Limit is the default maximum number of candidates fetched per run.
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// RatePerSecond paces requests to the feed. Zero disables pacing.
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second" mapstructure:"rate_per_second"`

	// Categories restricts the query to feed categories (e.g. "cs.AI").
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty" mapstructure:"categories"`

	// Keywords are extra phrases OR-ed into the query.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty" mapstructure:"keywords"`

	// EnrichCitations looks up missing citation counts on Semantic Scholar.
	EnrichCitations bool `json:"enrich_citations" yaml:"enrich_citations" mapstructure:"enrich_citations"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"-" yaml:"-" mapstructure:"semantic_scholar_api_key"`

	// OpenAlexEmail is sent as mailto for OpenAlex polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// SnapshotPath is where the last successful fetch is kept for fallback.
	// Empty disables the snapshot.
	SnapshotPath string `json:"snapshot_path,omitempty" yaml:"snapshot_path,omitempty" mapstructure:"snapshot_path"`

	// SnapshotMaxAge is how old a snapshot may be and still serve as fallback.
	SnapshotMaxAge time.Duration `json:"snapshot_max_age" yaml:"snapshot_max_age" mapstructure:"snapshot_max_age"`
}

// ModelKind identifies the embedding backend implementing a model.
type ModelKind string

const (
	ModelHashing ModelKind = "hashing"
	ModelOllama  ModelKind = "ollama"
	ModelOpenAI  ModelKind = "openai"
)

// ModelSpec describes one selectable embedding model.
type ModelSpec struct {
	// ID is the model identifier used in configuration and cache keys.
	ID string `json:"id" yaml:"id" mapstructure:"id"`

	// Kind selects the backend.
	Kind ModelKind `json:"kind" yaml:"kind" mapstructure:"kind"`

	// Name is the backend-specific model name (e.g. "all-minilm:l6-v2").
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Dimensions is the fixed vector width the model produces.
	Dimensions int `json:"dimensions" yaml:"dimensions" mapstructure:"dimensions"`
}

// EmbeddingConfig holds settings for embedding providers.
type EmbeddingConfig struct {
	// Model is the default model id.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Timeout bounds each embedding call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// OllamaURL is the base URL of the local Ollama server.
	OllamaURL string `json:"ollama_url" yaml:"ollama_url" mapstructure:"ollama_url"`

	// OpenAIURL is the base URL of the OpenAI-compatible embeddings API.
	OpenAIURL string `json:"openai_url" yaml:"openai_url" mapstructure:"openai_url"`

	// OpenAIAPIKey authenticates hosted embedding requests.
	OpenAIAPIKey string `json:"-" yaml:"-" mapstructure:"openai_api_key"`

	// Models enumerates the selectable models.
	Models []ModelSpec `json:"models" yaml:"models" mapstructure:"models"`
}

// DefaultModels returns the models known without configuration.
func DefaultModels() []ModelSpec {
	return []ModelSpec{
		{ID: "hashing-v1", Kind: ModelHashing, Name: "hashing-v1", Dimensions: 512},
		{ID: "ollama/all-minilm:l6-v2", Kind: ModelOllama, Name: "all-minilm:l6-v2", Dimensions: 384},
		{ID: "ollama/bge-large", Kind: ModelOllama, Name: "bge-large", Dimensions: 1024},
		{ID: "openai/text-embedding-3-small", Kind: ModelOpenAI, Name: "text-embedding-3-small", Dimensions: 1536},
	}
}

// RankingConfig holds settings for the ranking engine.
type RankingConfig struct {
	// OutputLimit is the maximum size of the ranked corpus.
	OutputLimit int `json:"output_limit" yaml:"output_limit" mapstructure:"output_limit"`

	// HalfLifeDays is the decay constant of the recency score, exp(-age/HalfLifeDays).
	HalfLifeDays float64 `json:"half_life_days" yaml:"half_life_days" mapstructure:"half_life_days"`

	// Concurrency bounds parallel candidate embedding.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// Weights configures the composite score.
	Weights WeightConfig `json:"weights" yaml:"weights" mapstructure:"weights"`
}

// CacheBackend selects where embedding vectors persist between processes.
type CacheBackend string

const (
	CacheNone   CacheBackend = "none"
	CacheSQLite CacheBackend = "sqlite"
	CacheRedis  CacheBackend = "redis"
)

// CacheConfig holds settings for embedding cache persistence.
type CacheConfig struct {
	Backend   CacheBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
	Path      string       `json:"path" yaml:"path" mapstructure:"path"`
	RedisAddr string       `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`
}

// ServeConfig holds settings for the HTTP surface.
type ServeConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// TraceExporter selects where spans are exported.
type TraceExporter string

const (
	ExporterNone     TraceExporter = "none"
	ExporterStdout   TraceExporter = "stdout"
	ExporterOTLPHTTP TraceExporter = "otlp-http"
	ExporterOTLPGRPC TraceExporter = "otlp-grpc"
)

// TracingConfig holds OpenTelemetry span export settings.
type TracingConfig struct {
	// Exporter selects the span exporter; "none" disables tracing.
	Exporter TraceExporter `json:"exporter" yaml:"exporter" mapstructure:"exporter"`

	// ServiceName identifies the process in exported traces.
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`

	// Endpoint is the OTLP collector host:port. Empty uses the exporter default.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`

	// SamplingRate is the fraction of traces sampled, 0 to 1.
	SamplingRate float64 `json:"sampling_rate" yaml:"sampling_rate" mapstructure:"sampling_rate"`

	// Insecure disables TLS to the collector.
	Insecure bool `json:"insecure" yaml:"insecure" mapstructure:"insecure"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Feed      FeedConfig      `json:"feed" yaml:"feed" mapstructure:"feed"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Ranking   RankingConfig   `json:"ranking" yaml:"ranking" mapstructure:"ranking"`
	Cache     CacheConfig     `json:"cache" yaml:"cache" mapstructure:"cache"`
	Serve     ServeConfig     `json:"serve" yaml:"serve" mapstructure:"serve"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
}

// DefaultPipelineConfig returns the configuration used when no file,
// environment variable or flag overrides a value.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Feed: FeedConfig{
			HTTPConfig: HTTPConfig{
				Timeout:    30 * time.Second,
				UserAgent:  "paperscout/0.1",
				MaxRetries: 3,
			},
			Source:         SourceArxiv,
			Limit:          50,
			RatePerSecond:  1.0 / 3.0,
			SnapshotMaxAge: 24 * time.Hour,
		},
		Embedding: EmbeddingConfig{
			Model:     "hashing-v1",
			Timeout:   30 * time.Second,
			OllamaURL: "http://localhost:11434",
			OpenAIURL: "https://api.openai.com",
			Models:    DefaultModels(),
		},
		Ranking: RankingConfig{
			OutputLimit:  5,
			HalfLifeDays: 365,
			Concurrency:  8,
			Weights:      DefaultWeights(),
		},
		Cache: CacheConfig{
			Backend:   CacheNone,
			Path:      "paperscout-cache.db",
			RedisAddr: "localhost:6379",
		},
		Serve: ServeConfig{Addr: "127.0.0.1:8088"},
		Tracing: TracingConfig{
			Exporter:     ExporterNone,
			ServiceName:  "paperscout",
			SamplingRate: 1,
		},
	}
}
