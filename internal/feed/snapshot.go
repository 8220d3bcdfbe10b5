// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperscout/pkg/types"
)

// snapshotMaxCandidates caps how many records a snapshot keeps.
const snapshotMaxCandidates = 80

// Snapshot is the on-disk record of the last successful fetch.
type Snapshot struct {
	Feed       string            `yaml:"feed"`
	Query      string            `yaml:"query"`
	SavedAt    time.Time         `yaml:"saved_at"`
	Candidates []types.Candidate `yaml:"candidates"`
}

// SnapshotClient keeps the last successful fetch on disk and serves it
// when the wrapped feed is unavailable and the snapshot is fresh enough.
type SnapshotClient struct {
	Inner  Client
	Path   string
	MaxAge time.Duration
	Logger *slog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// Name returns the wrapped feed's name.
func (s *SnapshotClient) Name() string { return s.Inner.Name() }

// Fetch delegates to the wrapped client. On success the result is saved;
// on ErrUpstreamUnavailable a fresh snapshot is returned instead.
func (s *SnapshotClient) Fetch(ctx context.Context, query Query, limit int) ([]types.Candidate, error) {
	cands, err := s.Inner.Fetch(ctx, query, limit)
	if err == nil {
		if saveErr := s.save(query, cands); saveErr != nil {
			s.logger().Warn("writing feed snapshot failed", "path", s.Path, "error", saveErr)
		}
		return cands, nil
	}
	if !errors.Is(err, ErrUpstreamUnavailable) {
		return nil, err
	}

	snap, loadErr := ReadSnapshot(s.Path)
	if loadErr != nil {
		return nil, err
	}
	age := s.clock().Sub(snap.SavedAt)
	if s.MaxAge > 0 && age > s.MaxAge {
		return nil, err
	}
	if len(snap.Candidates) == 0 {
		return nil, err
	}

	s.logger().Warn("feed unavailable, using snapshot",
		"feed", s.Name(), "age", age.Round(time.Second).String(), "error", err)
	return truncate(snap.Candidates, limit), nil
}

func (s *SnapshotClient) save(query Query, cands []types.Candidate) error {
	if s.Path == "" || len(cands) == 0 {
		return nil
	}
	snap := Snapshot{
		Feed:       s.Name(),
		Query:      query.text(),
		SavedAt:    s.clock().UTC(),
		Candidates: truncate(cands, snapshotMaxCandidates),
	}
	data, err := yaml.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

// ReadSnapshot loads a snapshot file.
func ReadSnapshot(path string) (*Snapshot, error) {
	if path == "" {
		return nil, fmt.Errorf("no snapshot path configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &snap, nil
}

func (s *SnapshotClient) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *SnapshotClient) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
