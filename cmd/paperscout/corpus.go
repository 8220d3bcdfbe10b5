// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperscout/internal/memory"
	"github.com/pdiddy/paperscout/internal/ranking"
)

const defaultCorpusFile = "corpus.yaml"

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect a saved ranked corpus",
	Long: `Corpus reads a corpus file written by "rank --output" and answers the
queries the conversational layer makes: look up a paper, list the top
papers, or render the top papers as grounding context.`,
}

// --- get subcommand ---

var corpusGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one paper from the corpus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadCorpus(cmd)
		if err != nil {
			return err
		}
		entry, ok := m.Entry(args[0])
		if !ok {
			return fmt.Errorf("paper %s is not in the corpus", args[0])
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	},
}

// --- top subcommand ---

var corpusTopCmd = &cobra.Command{
	Use:   "top [k]",
	Short: "List the top k papers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := parseK(args)
		if err != nil {
			return err
		}
		m, err := loadCorpus(cmd)
		if err != nil {
			return err
		}
		c := m.Corpus()
		c.Entries = m.TopK(k)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return ranking.FormatJSON(c, os.Stdout)
		}
		ranking.FormatTable(c, os.Stdout)
		return nil
	},
}

// --- context subcommand ---

var corpusContextCmd = &cobra.Command{
	Use:   "context [k]",
	Short: "Render the top k papers as grounding context",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := parseK(args)
		if err != nil {
			return err
		}
		m, err := loadCorpus(cmd)
		if err != nil {
			return err
		}
		fmt.Print(m.GroundingContext(k))
		return nil
	},
}

func init() {
	corpusCmd.PersistentFlags().String("corpus", defaultCorpusFile, "corpus file written by rank --output")
	corpusTopCmd.Flags().Bool("json", false, "output as JSON")

	corpusCmd.AddCommand(corpusGetCmd, corpusTopCmd, corpusContextCmd)
	rootCmd.AddCommand(corpusCmd)
}

func loadCorpus(cmd *cobra.Command) (*memory.Memory, error) {
	path, _ := cmd.Flags().GetString("corpus")
	return memory.Load(path)
}

// parseK reads the optional k argument; it defaults to 5.
func parseK(args []string) (int, error) {
	if len(args) == 0 {
		return 5, nil
	}
	k, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("k must be an integer, got %q", args[0])
	}
	return k, nil
}
