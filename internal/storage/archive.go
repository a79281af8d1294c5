package storage

import (
	"context"
	"fmt"

	"personagen/internal/model"
)

// Archiver mirrors persisted generations into a queryable secondary store.
// Archiving is best-effort: the engine logs failures and keeps running.
type Archiver interface {
	ArchiveGeneration(ctx context.Context, runID string, rec model.GenerationRecord) error
	Close() error
}

// NewArchiver builds an archiver by kind. The empty kind disables
// archiving.
func NewArchiver(kind, path string) (Archiver, error) {
	switch kind {
	case "", "none":
		return nil, nil
	case "sqlite":
		return newSQLiteArchiver(path)
	default:
		return nil, fmt.Errorf("unsupported archive backend: %s", kind)
	}
}
