package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"personagen/internal/compiler"
	"personagen/internal/diversity"
	"personagen/internal/eval"
	"personagen/internal/evo"
	"personagen/internal/llm"
	"personagen/internal/storage"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, evo.ErrConfig):
		return 2
	case errors.Is(err, llm.ErrBackend):
		return 3
	case errors.Is(err, evo.ErrInterrupted):
		return 4
	}
	return 1
}

func run(ctx context.Context, args []string) error {
	_ = godotenv.Load()

	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "generations":
		return runGenerations(ctx, args[1:])
	case "stats":
		return runStats(ctx, args[1:])
	case "compile":
		return runCompile(ctx, args[1:])
	case "seeds":
		return runSeeds(ctx, args[1:])
	case "pools":
		return runPools(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: personagenctl <run|generations|stats|compile|seeds|pools> [flags]", msg)
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional evolution config JSON path")
	runDir := fs.String("run-dir", "runs/latest", "run directory for generation files")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	population := fs.Int("pop", 0, "population size")
	generations := fs.Int("gens", 0, "generation count")
	elites := fs.Int("elites", 0, "elite count carried unchanged")
	groupSize := fs.Int("group-size", 0, "episode group size")
	replyRounds := fs.Int("reply-rounds", 0, "reply rounds per episode")
	mutationRate := fs.Float64("mutation-rate", 0, "per-child mutation probability")
	seed := fs.Int64("seed", 0, "rng seed")
	evaluatorName := fs.String("evaluator", "heuristic", "fitness evaluator: heuristic|judge")
	mutatorName := fs.String("mutator", "pool", "mutation operator: pool|backend")
	modelID := fs.String("model", "", "backend model id override")
	seedsPath := fs.String("seeds", "", "seed personas JSON path")
	poolsPath := fs.String("pools", "", "mutation pools JSON path")
	archiveKind := fs.String("archive", "none", "archive backend: none|sqlite")
	archivePath := fs.String("archive-path", "personagen.db", "sqlite archive path")
	embeddings := fs.Bool("embeddings", false, "score diversity with backend embeddings")
	nicknameHook := fs.Bool("nickname-hook", false, "ask the backend for fresh child nicknames")
	generationTimeoutMS := fs.Int("generation-timeout-ms", 0, "per-generation evaluation budget in milliseconds (0 disables)")
	verbose := fs.Bool("verbose", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	log := newLogger(*verbose)

	cfg, err := loadOrDefaultConfig(*configPath, log)
	if err != nil {
		return err
	}
	overrideConfigFromFlags(&cfg, setFlags, map[string]any{
		"pop":                   *population,
		"gens":                  *generations,
		"elites":                *elites,
		"group-size":            *groupSize,
		"reply-rounds":          *replyRounds,
		"mutation-rate":         *mutationRate,
		"seed":                  *seed,
		"nickname-hook":         *nicknameHook,
		"generation-timeout-ms": *generationTimeoutMS,
	})

	backend, err := llm.NewOpenAIClient(llm.OpenAIConfig{Model: *modelID, Logger: log})
	if err != nil {
		return fmt.Errorf("%w: %v", llm.ErrBackend, err)
	}
	client := llm.NewRetryingClient(backend, llm.RetryOptions{Logger: log})

	kit := &diversity.Kit{Logger: log}
	if *embeddings {
		kit.Embedder = llm.NewMemoEmbedder(backend)
	}

	var evaluator eval.Evaluator
	switch *evaluatorName {
	case "heuristic":
		evaluator = eval.Heuristic{Diversity: kit}
	case "judge":
		evaluator = eval.Judge{Client: client, Diversity: kit, Logger: log}
	default:
		return fmt.Errorf("%w: unknown evaluator %q", evo.ErrConfig, *evaluatorName)
	}

	pools := evo.DefaultPools()
	if *poolsPath != "" {
		pools, err = evo.LoadPools(*poolsPath)
		if err != nil {
			return fmt.Errorf("%w: %v", evo.ErrConfig, err)
		}
	}

	var mutator evo.Mutator
	switch *mutatorName {
	case "pool":
		mutator = evo.PoolMutator{Pools: pools}
	case "backend":
		mutator = evo.BackendMutator{Client: client, Fallback: evo.PoolMutator{Pools: pools}, Logger: log}
	default:
		return fmt.Errorf("%w: unknown mutator %q", evo.ErrConfig, *mutatorName)
	}

	seeds := evo.DefaultSeeds()
	if *seedsPath != "" {
		seeds, err = loadSeedPersonas(*seedsPath)
		if err != nil {
			return fmt.Errorf("%w: %v", evo.ErrConfig, err)
		}
	}

	store, err := storage.Open(*runDir)
	if err != nil {
		return err
	}
	archive, err := storage.NewArchiver(*archiveKind, *archivePath)
	if err != nil {
		return err
	}
	if archive != nil {
		defer func() {
			_ = archive.Close()
		}()
	}

	id := *runID
	if id == "" {
		id = uuid.NewString()
	}

	engine, err := evo.NewEngine(evo.Options{
		Config:    cfg,
		Client:    client,
		Store:     store,
		Archive:   archive,
		Mutator:   mutator,
		Evaluator: evaluator,
		Diversity: kit,
		Pools:     pools,
		Seeds:     seeds,
		Logger:    log,
		RunID:     id,
	})
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("run_id", id).
		Str("run_dir", store.Dir()).
		Str("evaluator", evaluator.Name()).
		Msg("starting evolution run")
	return engine.Run(runCtx)
}

func runGenerations(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("generations", flag.ContinueOnError)
	runDir := fs.String("run-dir", "runs/latest", "run directory")
	jsonOut := fs.Bool("json", false, "emit generation listing as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.Open(*runDir)
	if err != nil {
		return err
	}
	generations, err := store.ListGenerations()
	if err != nil {
		return err
	}
	if len(generations) == 0 {
		fmt.Println("no generations found")
		return nil
	}

	type generationItem struct {
		Generation int      `json:"generation"`
		Size       int      `json:"size"`
		Names      []string `json:"names"`
	}
	items := make([]generationItem, 0, len(generations))
	for _, n := range generations {
		population, err := store.LoadGeneration(n)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(population))
		for _, g := range population {
			names = append(names, g.Name)
		}
		items = append(items, generationItem{Generation: n, Size: len(population), Names: names})
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	for _, item := range items {
		fmt.Printf("generation=%d size=%s names=%s\n",
			item.Generation,
			humanize.Comma(int64(item.Size)),
			strings.Join(item.Names, ","),
		)
	}
	return nil
}

func runStats(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	runDir := fs.String("run-dir", "runs/latest", "run directory")
	jsonOut := fs.Bool("json", false, "emit stats records as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.Open(*runDir)
	if err != nil {
		return err
	}
	records, err := store.ReadStats()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no stats records")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	for _, rec := range records {
		fmt.Printf("generation=%d pop=%d mean=%.4f max=%.4f min=%.4f diversity=%.4f degraded=%d recorded=%s\n",
			rec.Generation,
			rec.PopulationSize,
			rec.FitnessMean,
			rec.FitnessMax,
			rec.FitnessMin,
			rec.PopulationDiversity,
			rec.DegradedCalls,
			humanize.Time(rec.Timestamp),
		)
	}
	return nil
}

func runCompile(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	runDir := fs.String("run-dir", "runs/latest", "run directory")
	generation := fs.Int("gen", 0, "generation index")
	name := fs.String("name", "", "persona name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("compile requires --name")
	}

	store, err := storage.Open(*runDir)
	if err != nil {
		return err
	}
	population, err := store.LoadGeneration(*generation)
	if err != nil {
		return err
	}
	for _, g := range population {
		if g.Name != *name {
			continue
		}
		phenotype := compiler.Compile(g)
		fmt.Println(phenotype.SystemPrompt)
		if phenotype.PolicyInstructions != "" {
			fmt.Println(phenotype.PolicyInstructions)
		}
		return nil
	}
	return fmt.Errorf("persona %q not found in generation %d", *name, *generation)
}

func runSeeds(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("seeds", flag.ContinueOnError)
	out := fs.String("out", "", "write seed persona template to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return emitJSON(*out, evo.DefaultSeeds())
}

func runPools(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("pools", flag.ContinueOnError)
	out := fs.String("out", "", "write mutation pool template to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return emitJSON(*out, evo.DefaultPools())
}

func emitJSON(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	payload = append(payload, '\n')
	if path == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
