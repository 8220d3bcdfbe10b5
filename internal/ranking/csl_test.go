// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ranking

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperscout/pkg/types"
)

func TestToCSLItemArxiv(t *testing.T) {
	e := types.RankedEntry{
		Rank: 2,
		Candidate: types.Candidate{
			ID:        "2401.01234",
			Title:     "Sparse Attention",
			Authors:   []string{"Ada Lovelace", "Plato"},
			Published: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			URL:       "https://arxiv.org/abs/2401.01234",
			Source:    "arxiv",
		},
		Scores: types.ScoreVector{Composite: 0.8123},
	}

	item := toCSLItem(e)

	if item.Type != "article" {
		t.Errorf("Type = %q, want article", item.Type)
	}
	if item.Archive != "arXiv" {
		t.Errorf("Archive = %q, want arXiv", item.Archive)
	}
	if item.DOI != "" {
		t.Errorf("DOI should be empty for arXiv ids, got %q", item.DOI)
	}
	if len(item.Author) != 2 {
		t.Fatalf("len(Author) = %d, want 2", len(item.Author))
	}
	if item.Author[0].Family != "Lovelace" || item.Author[0].Given != "Ada" {
		t.Errorf("Author[0] = %+v", item.Author[0])
	}
	if item.Author[1].Literal != "Plato" {
		t.Errorf("Author[1] = %+v, want literal", item.Author[1])
	}
	if item.Issued == nil || item.Issued.DateParts[0][0] != 2024 || item.Issued.DateParts[0][2] != 5 {
		t.Errorf("Issued = %+v", item.Issued)
	}
	if item.Note != "paperscout rank 2, score 0.812" {
		t.Errorf("Note = %q", item.Note)
	}
}

func TestToCSLItemDOI(t *testing.T) {
	item := toCSLItem(types.RankedEntry{Candidate: types.Candidate{ID: "10.1000/xyz", Source: "openalex"}})
	if item.DOI != "10.1000/xyz" {
		t.Errorf("DOI = %q", item.DOI)
	}
	if item.Issued != nil {
		t.Errorf("Issued should be nil for unknown dates")
	}
}

func TestFormatCSL(t *testing.T) {
	_, res := sampleResult()
	var buf bytes.Buffer
	if err := FormatCSL(res.Corpus, &buf); err != nil {
		t.Fatal(err)
	}

	var items []CSLItem
	if err := yaml.Unmarshal(buf.Bytes(), &items); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].ID != "2401.00001" {
		t.Errorf("first item = %q, want rank order", items[0].ID)
	}
	if !strings.Contains(buf.String(), "date-parts") {
		t.Errorf("expected date-parts in output")
	}
}
