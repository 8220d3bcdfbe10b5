// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pdiddy/paperscout/pkg/types"
)

// New builds the configured feed client: the selected upstream, wrapped
// with citation enrichment (arXiv only) and the snapshot fallback when
// they are enabled.
func New(cfg types.FeedConfig, hc *http.Client, logger *slog.Logger) (Client, error) {
	if hc == nil {
		hc = &http.Client{}
	}

	var c Client
	switch cfg.Source {
	case types.SourceArxiv, "":
		c = NewArxivClient(hc, cfg)
		if cfg.EnrichCitations {
			c = &CitationEnricher{
				Inner:  c,
				Source: NewSemanticScholarClient(hc, cfg),
				Logger: logger,
			}
		}
	case types.SourceSemanticScholar:
		c = NewSemanticScholarClient(hc, cfg)
	case types.SourceOpenAlex:
		c = NewOpenAlexClient(hc, cfg)
	default:
		return nil, fmt.Errorf("unknown feed source %q", cfg.Source)
	}

	if cfg.SnapshotPath != "" {
		c = &SnapshotClient{
			Inner:  c,
			Path:   cfg.SnapshotPath,
			MaxAge: cfg.SnapshotMaxAge,
			Logger: logger,
		}
	}
	return c, nil
}
