//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"personagen/internal/model"
)

func TestSQLiteArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	archiver, err := NewArchiver("sqlite", path)
	if err != nil {
		t.Fatalf("new archiver: %v", err)
	}
	defer archiver.Close()

	rec := model.GenerationRecord{
		Generation: 0,
		Population: testPopulation(),
		Transcripts: []model.Transcript{
			{{Type: model.EventPost, Author: "a", Content: "hello"}},
		},
		Stats: model.GenerationStats{Generation: 0, PopulationSize: 2},
	}
	ctx := context.Background()
	if err := archiver.ArchiveGeneration(ctx, "run-1", rec); err != nil {
		t.Fatalf("archive: %v", err)
	}
	// archiving the same generation again must upsert, not fail
	if err := archiver.ArchiveGeneration(ctx, "run-1", rec); err != nil {
		t.Fatalf("re-archive: %v", err)
	}
}

func TestSQLiteArchiverRequiresPath(t *testing.T) {
	if _, err := NewArchiver("sqlite", ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
