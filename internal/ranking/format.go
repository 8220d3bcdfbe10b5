// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ranking

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/paperscout/pkg/types"
)

// FormatTable writes the ranked corpus as a human-readable table to w.
func FormatTable(corpus types.RankedCorpus, w io.Writer) {
	if len(corpus.Entries) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-52s  %-20s  %-4s  %-5s  %-5s  %-5s  %-5s  %-5s  %s\n",
		"Rank", "Title", "Authors", "Year", "Score", "Rel", "Nov", "Rec", "Cit", "ID")
	fmt.Fprintln(w, strings.Repeat("-", 132))

	for _, e := range corpus.Entries {
		c := e.Candidate
		year := ""
		if !c.Published.IsZero() {
			year = fmt.Sprintf("%d", c.Published.Year())
		}
		s := e.Scores
		fmt.Fprintf(w, "%-4d  %-52s  %-20s  %-4s  %-5.3f  %-5.2f  %-5.2f  %-5.2f  %-5.2f  %s\n",
			e.Rank, truncate(c.Title, 52), formatAuthors(c.Authors), year,
			s.Composite, s.Relevance, s.Novelty, s.Recency, s.Citation, c.ID)
	}

	fmt.Fprintf(w, "\n%d of %d candidates ranked", len(corpus.Entries), corpus.Fetched)
	if corpus.Dropped > 0 {
		fmt.Fprintf(w, " (%d dropped)", corpus.Dropped)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes the ranked corpus as indented JSON to w.
func FormatJSON(corpus types.RankedCorpus, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(corpus)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
