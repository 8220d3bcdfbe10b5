// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperscout/internal/ranking"
)

var rankCmd = &cobra.Command{
	Use:   "rank [topic]",
	Short: "Fetch, score and rank papers for a research topic",
	Long: `Rank fetches candidate papers for the topic from the configured feed,
embeds the topic and every candidate, scores each on relevance, novelty,
recency and citation impact, and prints the top results.

Candidates whose embedding fails are dropped with a warning; the run still
succeeds. Use --output to save the corpus for "corpus" and "serve".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRank,
}

func init() {
	rankCmd.Flags().Int("feed-limit", 0, "maximum candidates fetched from the feed")
	rankCmd.Flags().Int("output-limit", 0, "maximum papers in the ranked corpus")
	rankCmd.Flags().String("model", "", "embedding model id")
	rankCmd.Flags().Float64("half-life", 0, "recency decay constant in days: score is exp(-age/half-life)")
	rankCmd.Flags().Float64("w-relevance", 0, "relevance weight")
	rankCmd.Flags().Float64("w-novelty", 0, "novelty weight")
	rankCmd.Flags().Float64("w-recency", 0, "recency weight")
	rankCmd.Flags().Float64("w-citation", 0, "citation weight")
	rankCmd.Flags().String("source", "", "feed source: arxiv, semantic_scholar or openalex")
	rankCmd.Flags().StringSlice("categories", nil, "restrict the feed query to categories (comma-separated)")
	rankCmd.Flags().StringSlice("keywords", nil, "extra keywords OR-ed into the feed query (comma-separated)")
	rankCmd.Flags().Bool("json", false, "output the corpus as JSON")
	rankCmd.Flags().Bool("csl", false, "output the corpus as a CSL-YAML bibliography")
	rankCmd.Flags().String("output", "", "save the corpus to a YAML file")

	for key, flag := range map[string]string{
		"feed.limit":                "feed-limit",
		"ranking.output_limit":      "output-limit",
		"embedding.model":           "model",
		"ranking.half_life_days":    "half-life",
		"ranking.weights.relevance": "w-relevance",
		"ranking.weights.novelty":   "w-novelty",
		"ranking.weights.recency":   "w-recency",
		"ranking.weights.citation":  "w-citation",
		"feed.source":               "source",
		"feed.categories":           "categories",
		"feed.keywords":             "keywords",
	} {
		_ = viper.BindPFlag(key, rankCmd.Flags().Lookup(flag))
	}

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	topic := strings.TrimSpace(strings.Join(args, " "))
	asJSON, _ := cmd.Flags().GetBool("json")
	asCSL, _ := cmd.Flags().GetBool("csl")
	output, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stopTracing, err := startTracing(cfg.Tracing)
	if err != nil {
		return err
	}
	defer stopTracing()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p, err := buildPipeline(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	req := requestFromConfig(topic, cfg)
	res, err := p.engine.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("%s", describeRunError(err))
	}

	printDrops(os.Stderr, res)

	if output != "" {
		if err := ranking.WriteCorpusFile(output, req, res); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Corpus saved to %s\n", output)
	}

	switch {
	case asJSON:
		return ranking.FormatJSON(res.Corpus, os.Stdout)
	case asCSL:
		return ranking.FormatCSL(res.Corpus, os.Stdout)
	}
	ranking.FormatTable(res.Corpus, os.Stdout)
	return nil
}

// printDrops writes one warning line per dropped candidate.
func printDrops(w io.Writer, res *ranking.Result) {
	if res.Dropped == 0 {
		return
	}
	fmt.Fprintf(w, "warning: %d candidate(s) dropped after embedding failures\n", res.Dropped)
	for _, d := range res.Drops {
		fmt.Fprintf(w, "warning: dropped %s: %s\n", d.ID, d.Err)
	}
}
