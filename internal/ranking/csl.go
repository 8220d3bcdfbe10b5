// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ranking

import (
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperscout/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-YAML schema so that
// a ranked corpus can be cited from Pandoc or a reference manager.
type CSLItem struct {
	ID       string    `yaml:"id"`
	Type     string    `yaml:"type"`
	Title    string    `yaml:"title"`
	Author   []CSLName `yaml:"author,omitempty"`
	Abstract string    `yaml:"abstract,omitempty"`
	Issued   *CSLDate  `yaml:"issued,omitempty"`
	DOI      string    `yaml:"DOI,omitempty"`
	URL      string    `yaml:"URL,omitempty"`
	Archive  string    `yaml:"archive,omitempty"`
	Note     string    `yaml:"note,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes the ranked corpus as a CSL-YAML list to w, in rank order.
func FormatCSL(corpus types.RankedCorpus, w io.Writer) error {
	items := make([]CSLItem, len(corpus.Entries))
	for i, e := range corpus.Entries {
		items[i] = toCSLItem(e)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(e types.RankedEntry) CSLItem {
	c := e.Candidate
	item := CSLItem{
		ID:       c.ID,
		Type:     "article",
		Title:    c.Title,
		Abstract: c.Abstract,
		URL:      c.URL,
		Note:     fmt.Sprintf("paperscout rank %d, score %.3f", e.Rank, e.Scores.Composite),
	}

	for _, a := range c.Authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}

	if !c.Published.IsZero() {
		item.Issued = &CSLDate{
			DateParts: [][]int{{c.Published.Year(), int(c.Published.Month()), c.Published.Day()}},
		}
	}

	switch {
	case strings.HasPrefix(c.ID, "10."):
		item.DOI = c.ID
	case c.Source == string(types.SourceArxiv):
		item.Archive = "arXiv"
	}

	return item
}

// parseAuthorName splits a full name on the last space: everything before
// is given, the last token is family. Single-token names use the literal
// field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
