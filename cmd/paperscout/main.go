// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperscout CLI.
// See docs/ARCHITECTURE § External Interfaces.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperscout/internal/secrets"
	"github.com/pdiddy/paperscout/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/, .env and the
// environment at startup.
var loadedSecrets map[string]string

// logger is configured in PersistentPreRunE from --verbose.
var logger = slog.Default()

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the paperscout CLI.
var rootCmd = &cobra.Command{
	Use:   "paperscout",
	Short: "Rank recent papers on a research topic",
	Long: `paperscout retrieves candidate papers for a research topic from a public
preprint feed, scores each on relevance, novelty, recency and citation
impact, and keeps the top results as a corpus for conversational use.

Run a ranking with "rank", inspect a saved corpus with "corpus", manage the
embedding cache with "cache", or expose everything over HTTP with "serve".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		s, err := secrets.Resolve(".secrets/", ".env", os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paperscout.yaml or ~/.config/paperscout/paperscout.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func initConfig() {
	setDefaults(types.DefaultPipelineConfig())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperscout")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperscout"))
		}
	}

	viper.SetEnvPrefix("PAPERSCOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key with its default so that
// environment variables and flags resolve through viper.
func setDefaults(d types.PipelineConfig) {
	viper.SetDefault("feed.source", string(d.Feed.Source))
	viper.SetDefault("feed.limit", d.Feed.Limit)
	viper.SetDefault("feed.timeout", d.Feed.Timeout)
	viper.SetDefault("feed.max_retries", d.Feed.MaxRetries)
	viper.SetDefault("feed.user_agent", d.Feed.UserAgent)
	viper.SetDefault("feed.rate_per_second", d.Feed.RatePerSecond)
	viper.SetDefault("feed.categories", d.Feed.Categories)
	viper.SetDefault("feed.keywords", d.Feed.Keywords)
	viper.SetDefault("feed.enrich_citations", d.Feed.EnrichCitations)
	viper.SetDefault("feed.snapshot_path", d.Feed.SnapshotPath)
	viper.SetDefault("feed.snapshot_max_age", d.Feed.SnapshotMaxAge)

	viper.SetDefault("embedding.model", d.Embedding.Model)
	viper.SetDefault("embedding.timeout", d.Embedding.Timeout)
	viper.SetDefault("embedding.ollama_url", d.Embedding.OllamaURL)
	viper.SetDefault("embedding.openai_url", d.Embedding.OpenAIURL)

	viper.SetDefault("ranking.output_limit", d.Ranking.OutputLimit)
	viper.SetDefault("ranking.half_life_days", d.Ranking.HalfLifeDays)
	viper.SetDefault("ranking.concurrency", d.Ranking.Concurrency)
	viper.SetDefault("ranking.weights.relevance", d.Ranking.Weights.Relevance)
	viper.SetDefault("ranking.weights.novelty", d.Ranking.Weights.Novelty)
	viper.SetDefault("ranking.weights.recency", d.Ranking.Weights.Recency)
	viper.SetDefault("ranking.weights.citation", d.Ranking.Weights.Citation)

	viper.SetDefault("cache.backend", string(d.Cache.Backend))
	viper.SetDefault("cache.path", d.Cache.Path)
	viper.SetDefault("cache.redis_addr", d.Cache.RedisAddr)

	viper.SetDefault("serve.addr", d.Serve.Addr)

	viper.SetDefault("tracing.exporter", string(d.Tracing.Exporter))
	viper.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	viper.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	viper.SetDefault("tracing.sampling_rate", d.Tracing.SamplingRate)
	viper.SetDefault("tracing.insecure", d.Tracing.Insecure)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
