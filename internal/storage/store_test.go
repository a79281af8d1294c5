package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"personagen/internal/model"
)

func testPopulation() []model.Genotype {
	return []model.Genotype{
		{Name: "a", Attributes: map[string]model.Value{
			model.AttrAge:     model.Int(25),
			model.AttrHobbies: model.Strings([]string{"chess"}),
		}},
		{Name: "b", Attributes: map[string]model.Value{
			model.AttrAge: model.Int(40),
		}},
	}
}

func TestGenerationRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := testPopulation()
	if err := store.SaveGeneration(0, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.LoadGeneration(0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("population size changed: %d vs %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("genotype %d changed across round trip", i)
		}
	}
}

func TestSaveGenerationRefusesOverwrite(t *testing.T) {
	store, _ := Open(t.TempDir())
	if err := store.SaveGeneration(0, testPopulation()); err != nil {
		t.Fatalf("save: %v", err)
	}
	err := store.SaveGeneration(0, nil)
	if !errors.Is(err, ErrGenerationExists) {
		t.Fatalf("expected ErrGenerationExists, got %v", err)
	}
}

func TestListGenerationsContiguousPrefix(t *testing.T) {
	store, _ := Open(t.TempDir())
	for _, n := range []int{0, 1, 3} {
		if err := store.SaveGeneration(n, testPopulation()); err != nil {
			t.Fatalf("save %d: %v", n, err)
		}
	}
	generations, err := store.ListGenerations()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(generations) != 2 || generations[0] != 0 || generations[1] != 1 {
		t.Fatalf("gap should end the prefix, got %v", generations)
	}
	latest, ok, err := store.LatestGeneration()
	if err != nil || !ok || latest != 1 {
		t.Fatalf("latest = %d ok=%t err=%v", latest, ok, err)
	}
}

func TestListGenerationsEmpty(t *testing.T) {
	store, _ := Open(t.TempDir())
	generations, err := store.ListGenerations()
	if err != nil || len(generations) != 0 {
		t.Fatalf("got %v, %v", generations, err)
	}
	if _, ok, _ := store.LatestGeneration(); ok {
		t.Fatal("empty store should report no latest generation")
	}
}

func TestTranscriptsRoundTrip(t *testing.T) {
	store, _ := Open(t.TempDir())
	want := []model.Transcript{
		{
			{Type: model.EventPost, Author: "a", Content: "hello"},
			{Type: model.EventReply, Author: "b", TargetAuthor: "a", Content: "hi", ReplyTo: "hello"},
			{Type: model.EventPass, Author: "a", TargetAuthor: "b"},
		},
	}
	if err := store.SaveTranscripts(0, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.LoadTranscripts(0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 3 {
		t.Fatalf("transcripts changed shape: %+v", got)
	}
	if got[0][1] != want[0][1] {
		t.Fatalf("reply event changed: %+v vs %+v", got[0][1], want[0][1])
	}
}

func TestStatsAppendAndRead(t *testing.T) {
	store, _ := Open(t.TempDir())
	for n := 0; n < 3; n++ {
		rec := model.GenerationStats{
			Timestamp:      time.Date(2026, 8, 24, 12, n, 0, 0, time.UTC),
			Generation:     n,
			PopulationSize: 4,
			FitnessMean:    0.5,
		}
		if err := store.AppendStats(rec); err != nil {
			t.Fatalf("append %d: %v", n, err)
		}
	}
	records, err := store.ReadStats()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 3 || records[2].Generation != 2 {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestResumeNeverRewritesCompletedGenerations(t *testing.T) {
	dir := t.TempDir()
	store, _ := Open(dir)
	if err := store.SaveGeneration(0, testPopulation()); err != nil {
		t.Fatalf("save: %v", err)
	}
	path := filepath.Join(dir, "gen_0.json")
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	reopened, _ := Open(dir)
	if err := reopened.SaveGeneration(0, nil); !errors.Is(err, ErrGenerationExists) {
		t.Fatalf("reopened store must refuse rewrite, got %v", err)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Fatal("generation file changed on disk")
	}
}

func TestAcquireLockBlocksAndReleases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.lock")
	release, err := acquireLock(path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
	release()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("release should remove the lock file")
	}
}
