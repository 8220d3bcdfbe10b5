// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"log/slog"

	"github.com/pdiddy/paperscout/pkg/types"
)

// CitationSource resolves citation counts for arXiv IDs.
type CitationSource interface {
	CitationCounts(ctx context.Context, arxivIDs []string) (map[string]int, error)
}

// CitationEnricher fills unknown citation counts of arXiv candidates.
// Lookup failures are logged and leave the counts unknown, so the
// candidates score the neutral citation midpoint.
type CitationEnricher struct {
	Inner  Client
	Source CitationSource
	Logger *slog.Logger
}

// Name returns the wrapped feed's name.
func (e *CitationEnricher) Name() string { return e.Inner.Name() }

// Fetch delegates to the wrapped client and enriches its result.
func (e *CitationEnricher) Fetch(ctx context.Context, query Query, limit int) ([]types.Candidate, error) {
	cands, err := e.Inner.Fetch(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, c := range cands {
		if c.Citations == nil && c.Source == string(types.SourceArxiv) {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return cands, nil
	}

	counts, err := e.Source.CitationCounts(ctx, ids)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger().Warn("citation enrichment failed", "feed", e.Name(), "error", err)
	}

	out := make([]types.Candidate, len(cands))
	copy(out, cands)
	filled := 0
	for i := range out {
		if out[i].Citations != nil {
			continue
		}
		if n, ok := counts[out[i].ID]; ok {
			out[i].Citations = intPtr(n)
			filled++
		}
	}
	e.logger().Debug("citation enrichment", "requested", len(ids), "filled", filled)
	return out, nil
}

func (e *CitationEnricher) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
