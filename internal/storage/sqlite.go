//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"personagen/internal/model"
)

// SQLiteArchiver stores generation records in a sqlite database, one row
// per generation keyed by run and generation index.
type SQLiteArchiver struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

func newSQLiteArchiver(path string) (Archiver, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite archive: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			population BLOB NOT NULL,
			transcripts BLOB NOT NULL,
			stats BLOB NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create archive tables: %w", err)
	}
	return &SQLiteArchiver{path: path, db: db}, nil
}

func (a *SQLiteArchiver) ArchiveGeneration(ctx context.Context, runID string, rec model.GenerationRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return errors.New("archive is closed")
	}

	population, err := json.Marshal(rec.Population)
	if err != nil {
		return fmt.Errorf("encode population: %w", err)
	}
	transcripts, err := json.Marshal(rec.Transcripts)
	if err != nil {
		return fmt.Errorf("encode transcripts: %w", err)
	}
	stats, err := json.Marshal(rec.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO generations (run_id, generation, population, transcripts, stats)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			population = excluded.population,
			transcripts = excluded.transcripts,
			stats = excluded.stats
	`, runID, rec.Generation, population, transcripts, stats)
	return err
}

func (a *SQLiteArchiver) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
