// Package storage persists runs to a run directory: one population file and
// one transcripts file per generation, plus an append-only stats log. An
// optional sqlite archive mirrors the same records for querying.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"personagen/internal/model"
)

// ErrGenerationExists guards completed generations: a generation file is
// written once and never rewritten, which keeps resume idempotent.
var ErrGenerationExists = errors.New("generation already persisted")

// Store is a run-directory store.
type Store struct {
	dir string
}

// Open creates the run directory if needed and returns a store over it.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("run directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) generationPath(n int) string {
	return filepath.Join(s.dir, fmt.Sprintf("gen_%d.json", n))
}

func (s *Store) transcriptsPath(n int) string {
	return filepath.Join(s.dir, fmt.Sprintf("transcripts_gen_%d.json", n))
}

func (s *Store) statsPath() string {
	return filepath.Join(s.dir, "generation_stats.jsonl")
}

// SaveGeneration writes the population file for generation n. Writing an
// already-persisted generation fails with ErrGenerationExists.
func (s *Store) SaveGeneration(n int, population []model.Genotype) error {
	if n < 0 {
		return fmt.Errorf("generation index %d is negative", n)
	}
	path := s.generationPath(n)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: generation %d", ErrGenerationExists, n)
	}
	payload, err := json.MarshalIndent(population, "", "  ")
	if err != nil {
		return fmt.Errorf("encode generation %d: %w", n, err)
	}
	return s.writeLocked(path, payload)
}

// LoadGeneration reads the population of generation n.
func (s *Store) LoadGeneration(n int) ([]model.Genotype, error) {
	raw, err := os.ReadFile(s.generationPath(n))
	if err != nil {
		return nil, fmt.Errorf("read generation %d: %w", n, err)
	}
	var population []model.Genotype
	if err := json.Unmarshal(raw, &population); err != nil {
		return nil, fmt.Errorf("decode generation %d: %w", n, err)
	}
	return population, nil
}

// SaveTranscripts writes the group transcripts for generation n.
func (s *Store) SaveTranscripts(n int, transcripts []model.Transcript) error {
	if transcripts == nil {
		transcripts = []model.Transcript{}
	}
	payload, err := json.MarshalIndent(transcripts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcripts for generation %d: %w", n, err)
	}
	return s.writeLocked(s.transcriptsPath(n), payload)
}

// LoadTranscripts reads the group transcripts of generation n.
func (s *Store) LoadTranscripts(n int) ([]model.Transcript, error) {
	raw, err := os.ReadFile(s.transcriptsPath(n))
	if err != nil {
		return nil, fmt.Errorf("read transcripts for generation %d: %w", n, err)
	}
	var transcripts []model.Transcript
	if err := json.Unmarshal(raw, &transcripts); err != nil {
		return nil, fmt.Errorf("decode transcripts for generation %d: %w", n, err)
	}
	return transcripts, nil
}

// ListGenerations returns the contiguous prefix 0..K of persisted
// generations. A gap ends the prefix: gen_0 and gen_2 without gen_1 lists
// only generation 0.
func (s *Store) ListGenerations() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read run directory: %w", err)
	}
	present := make(map[int]struct{})
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "gen_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "gen_"), ".json"))
		if err != nil || n < 0 {
			continue
		}
		present[n] = struct{}{}
	}
	var generations []int
	for n := 0; ; n++ {
		if _, ok := present[n]; !ok {
			break
		}
		generations = append(generations, n)
	}
	return generations, nil
}

// LatestGeneration reports the newest persisted generation, ok=false when
// the run directory holds none.
func (s *Store) LatestGeneration() (int, bool, error) {
	generations, err := s.ListGenerations()
	if err != nil || len(generations) == 0 {
		return 0, false, err
	}
	return generations[len(generations)-1], true, nil
}

// AppendStats appends one record to the stats log under the advisory lock.
func (s *Store) AppendStats(rec model.GenerationStats) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode stats record: %w", err)
	}
	release, err := acquireLock(s.statsPath() + ".lock")
	if err != nil {
		return err
	}
	defer release()

	f, err := os.OpenFile(s.statsPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open stats log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append stats record: %w", err)
	}
	return nil
}

// ReadStats loads every record from the stats log, oldest first.
func (s *Store) ReadStats() ([]model.GenerationStats, error) {
	raw, err := os.ReadFile(s.statsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read stats log: %w", err)
	}
	var records []model.GenerationStats
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec model.GenerationStats
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("decode stats record: %w", err)
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Generation < records[j].Generation
	})
	return records, nil
}

// writeLocked writes the file under its advisory lock so concurrent
// observers never see a partial file.
func (s *Store) writeLocked(path string, payload []byte) error {
	release, err := acquireLock(path + ".lock")
	if err != nil {
		return err
	}
	defer release()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize %s: %w", filepath.Base(path), err)
	}
	return nil
}
