package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"personagen/internal/diversity"
	"personagen/internal/eval"
	"personagen/internal/genotype"
	"personagen/internal/llm"
	"personagen/internal/model"
	"personagen/internal/sim"
	"personagen/internal/stats"
	"personagen/internal/storage"
)

// Sentinel errors the CLI maps to exit codes.
var (
	ErrConfig      = errors.New("configuration error")
	ErrInterrupted = errors.New("run interrupted, partial results persisted")
)

// Config drives one evolution run. Zero fields are filled with defaults by
// Normalize.
type Config struct {
	PopulationSize int
	Generations    int
	EliteCount     int
	GroupSize      int
	ReplyRounds    int
	// MutationRate is the per-child mutation probability. Nil takes the
	// 0.2 default; an explicit 0 disables mutation entirely.
	MutationRate   *float64
	TournamentSize int
	TopicCount     int
	FitnessWeights map[string]float64
	Niching        NichingConfig
	Seed           int64

	// MergeRemainder folds the partition tail into the last group instead
	// of dropping it.
	MergeRemainder bool
	// NicknameHook asks the backend for a fresh nickname after
	// reproduction. Off by default; the pool-drawn name is the fallback.
	NicknameHook bool
	// GenerationTimeout bounds one generation's evaluation. Zero means no
	// bound.
	GenerationTimeout time.Duration
}

// DefaultFitnessWeights is the baseline scoring mix.
func DefaultFitnessWeights() map[string]float64 {
	return map[string]float64{
		model.ScoreEngagement:          0.35,
		model.ScoreConversationQuality: 0.35,
		model.ScoreDiversity:           0.20,
		model.ScorePersonaFidelity:     0.10,
	}
}

// Normalize fills defaults and renormalizes fitness weights.
func (c *Config) Normalize() {
	if c.PopulationSize <= 0 {
		c.PopulationSize = 10
	}
	if c.Generations <= 0 {
		c.Generations = 5
	}
	if c.EliteCount <= 0 {
		c.EliteCount = 2
	}
	if c.GroupSize <= 0 {
		c.GroupSize = 4
	}
	if c.ReplyRounds <= 0 {
		c.ReplyRounds = 3
	}
	if c.MutationRate == nil {
		rate := 0.2
		c.MutationRate = &rate
	}
	if c.TournamentSize <= 0 {
		c.TournamentSize = 3
	}
	if c.TopicCount <= 0 {
		c.TopicCount = 5
	}
	if len(c.FitnessWeights) == 0 {
		c.FitnessWeights = DefaultFitnessWeights()
	}
	if c.Niching.Sigma == nil {
		sigma := 0.5
		c.Niching.Sigma = &sigma
	}
	if c.Niching.Alpha == 0 {
		c.Niching.Alpha = 1
	}

	var sum float64
	for _, w := range c.FitnessWeights {
		sum += w
	}
	if sum > 0 && sum != 1 {
		for name, w := range c.FitnessWeights {
			c.FitnessWeights[name] = w / sum
		}
	}
}

// Validate fails fast on configurations the run cannot recover from.
func (c Config) Validate() error {
	if c.MutationRate != nil && (*c.MutationRate < 0 || *c.MutationRate > 1) {
		return fmt.Errorf("%w: mutation rate %v outside [0,1]", ErrConfig, *c.MutationRate)
	}
	if c.EliteCount > c.PopulationSize {
		return fmt.Errorf("%w: elite count %d exceeds population size %d", ErrConfig, c.EliteCount, c.PopulationSize)
	}
	var sum float64
	for name, w := range c.FitnessWeights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight for %s", ErrConfig, name)
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("%w: fitness weights sum to %v", ErrConfig, sum)
	}
	if err := c.Niching.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return nil
}

// Engine runs the generation loop: simulate, evaluate, share fitness,
// select, reproduce, persist.
type Engine struct {
	cfg       Config
	client    llm.Client
	store     *storage.Store
	archive   storage.Archiver
	mutator   Mutator
	selector  Selector
	evaluator eval.Evaluator
	diversity *diversity.Kit
	pools     Pools
	seeds     []model.Genotype
	rng       *rand.Rand
	log       zerolog.Logger
	runID     string
}

// Options wires an Engine. Client and Store are required; everything else
// has a usable default.
type Options struct {
	Config    Config
	Client    llm.Client
	Store     *storage.Store
	Archive   storage.Archiver
	Mutator   Mutator
	Selector  Selector
	Evaluator eval.Evaluator
	Diversity *diversity.Kit
	Pools     Pools
	Seeds     []model.Genotype
	Logger    zerolog.Logger
	RunID     string
}

func NewEngine(opts Options) (*Engine, error) {
	opts.Config.Normalize()
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("%w: backend client is required", ErrConfig)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrConfig)
	}
	if opts.Pools == nil {
		opts.Pools = DefaultPools()
	}
	if err := opts.Pools.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if opts.Mutator == nil {
		opts.Mutator = PoolMutator{Pools: opts.Pools}
	}
	if opts.Selector == nil {
		opts.Selector = TournamentSelector{Size: opts.Config.TournamentSize}
	}
	if opts.Diversity == nil {
		opts.Diversity = &diversity.Kit{Logger: opts.Logger}
	}
	if opts.Evaluator == nil {
		opts.Evaluator = eval.Heuristic{Diversity: opts.Diversity}
	}
	if len(opts.Seeds) == 0 {
		opts.Seeds = DefaultSeeds()
	}
	return &Engine{
		cfg:       opts.Config,
		client:    opts.Client,
		store:     opts.Store,
		archive:   opts.Archive,
		mutator:   opts.Mutator,
		selector:  opts.Selector,
		evaluator: opts.Evaluator,
		diversity: opts.Diversity,
		pools:     opts.Pools,
		seeds:     opts.Seeds,
		rng:       rand.New(rand.NewSource(opts.Config.Seed)),
		log:       opts.Logger,
		runID:     opts.RunID,
	}, nil
}

// Run executes the generation loop. On resume it loads the newest
// persisted generation, re-evaluates it in memory without touching its
// files, and continues from the next index.
func (e *Engine) Run(ctx context.Context) error {
	startGen := 0
	resumedGen := -1
	var population []model.Individual

	if latest, ok, err := e.store.LatestGeneration(); err != nil {
		return err
	} else if ok {
		if latest >= e.cfg.Generations-1 {
			e.log.Info().Int("generation", latest).Msg("run already complete, nothing to do")
			return nil
		}
		genotypes, err := e.store.LoadGeneration(latest)
		if err != nil {
			return err
		}
		population = e.individuals(genotypes)
		startGen, resumedGen = latest, latest
		e.log.Info().Int("generation", latest).Msg("resuming from persisted generation")
	} else {
		var err error
		population, err = e.initialize(ctx)
		if err != nil {
			return err
		}
	}

	for gen := startGen; gen < e.cfg.Generations; gen++ {
		transcripts, degradedCalls, interrupted := e.evaluateGeneration(ctx, gen, population)

		popDiversity, degradedDiversity, err := e.diversity.PopulationDiversity(ctx, transcripts, names(population))
		if err != nil {
			return err
		}
		if degradedDiversity {
			degradedCalls++
		}

		rec := stats.Build(e.runID, gen, population, popDiversity, degradedCalls, time.Now())
		if gen != resumedGen {
			if err := e.persist(ctx, gen, population, transcripts, rec); err != nil {
				return err
			}
		}
		stats.LogSummary(e.log, rec)

		if interrupted {
			return fmt.Errorf("%w: generation %d", ErrInterrupted, gen)
		}
		if gen == e.cfg.Generations-1 {
			break
		}
		next, err := e.reproduce(ctx, population)
		if err != nil {
			return err
		}
		population = next
	}
	return nil
}

// initialize builds generation 0 from seeds, mutating uniformly chosen
// seeds to fill remaining slots.
func (e *Engine) initialize(ctx context.Context) ([]model.Individual, error) {
	seeds := e.seeds
	if len(seeds) > e.cfg.PopulationSize {
		seeds = seeds[:e.cfg.PopulationSize]
	}
	if err := genotype.ValidateUniqueNames(seeds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	for _, seed := range seeds {
		if err := genotype.Validate(seed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
	}

	genotypes := make([]model.Genotype, 0, e.cfg.PopulationSize)
	taken := make(map[string]struct{}, e.cfg.PopulationSize)
	for _, seed := range seeds {
		genotypes = append(genotypes, seed.Clone())
		taken[seed.Name] = struct{}{}
	}
	for len(genotypes) < e.cfg.PopulationSize {
		parent, err := genotype.RandomElement(e.rng, seeds)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		mutant, err := e.mutator.Mutate(ctx, e.rng, parent)
		if err != nil {
			return nil, err
		}
		mutant.Name = genotype.UniqueName(e.rng, mutant.Name, taken)
		taken[mutant.Name] = struct{}{}
		genotypes = append(genotypes, mutant)
	}
	e.log.Info().Int("population", len(genotypes)).Msg("population initialized")
	return e.individuals(genotypes), nil
}

func (e *Engine) individuals(genotypes []model.Genotype) []model.Individual {
	population := make([]model.Individual, 0, len(genotypes))
	for _, g := range genotypes {
		population = append(population, model.Individual{Genotype: g})
	}
	return population
}

// evaluateGeneration runs episodes over shuffled groups, scores every
// individual and applies fitness sharing. interrupted reports that the
// generation timeout expired with some groups unfinished; the completed
// groups' results are still in place.
func (e *Engine) evaluateGeneration(ctx context.Context, gen int, population []model.Individual) (transcripts []model.Transcript, degradedCalls int, interrupted bool) {
	evalCtx := ctx
	if e.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(ctx, e.cfg.GenerationTimeout)
		defer cancel()
	}

	topics := GenerateTopics(evalCtx, e.client, e.cfg.TopicCount, e.log)

	order := e.rng.Perm(len(population))
	groups := partition(order, e.cfg.GroupSize, e.cfg.MergeRemainder)

	type groupRun struct {
		indices []int
		topic   string
		rng     *rand.Rand
	}
	runs := make([]groupRun, len(groups))
	for i, indices := range groups {
		topic, _ := genotype.RandomElement(e.rng, topics)
		runs[i] = groupRun{
			indices: indices,
			topic:   topic,
			rng:     rand.New(rand.NewSource(e.cfg.Seed ^ int64(gen)<<20 ^ int64(i)<<8)),
		}
	}

	groupTranscripts := make([]model.Transcript, len(groups))
	groupDegraded := make([]int, len(groups))
	done := make([]bool, len(groups))

	var g errgroup.Group
	for i, run := range runs {
		g.Go(func() error {
			if evalCtx.Err() != nil {
				return nil
			}
			agents := make([]*sim.Agent, 0, len(run.indices))
			for _, idx := range run.indices {
				agents = append(agents, sim.NewAgent(population[idx].Genotype, e.client, e.log))
			}
			groupTranscripts[i] = sim.RunEpisode(evalCtx, run.rng, agents, run.topic, e.cfg.ReplyRounds)
			for _, agent := range agents {
				groupDegraded[i] += agent.DegradedCalls()
				agent.ResetMemory()
			}
			done[i] = evalCtx.Err() == nil
			return nil
		})
	}
	g.Wait()

	memberGroup := make(map[int]int, len(population))
	for i := range groups {
		if !done[i] {
			interrupted = true
			continue
		}
		degradedCalls += groupDegraded[i]
		for _, idx := range runs[i].indices {
			memberGroup[idx] = i
		}
		transcripts = append(transcripts, groupTranscripts[i])
	}
	if evalCtx.Err() != nil && ctx.Err() == nil {
		interrupted = true
	}

	var scoring errgroup.Group
	for idx := range population {
		scoring.Go(func() error {
			gi, ok := memberGroup[idx]
			if !ok {
				// no transcript for this individual, zero raw fitness
				population[idx].Scores = model.FitnessScores{}
				population[idx].RawFitness = 0
				population[idx].Degraded = true
				return nil
			}
			scores, degraded, err := e.evaluator.Evaluate(ctx, population[idx].Genotype, []model.Transcript{groupTranscripts[gi]})
			if err != nil {
				e.log.Warn().Err(err).Str("persona", population[idx].Genotype.Name).Msg("evaluation failed, zeroing scores")
				scores, degraded = model.FitnessScores{Safety: 1.0}, true
			}
			population[idx].Scores = scores
			population[idx].RawFitness = e.rawFitness(scores)
			population[idx].Degraded = degraded
			return nil
		})
	}
	scoring.Wait()
	for _, ind := range population {
		if ind.Degraded {
			degradedCalls++
		}
	}

	if err := ApplySharing(population, e.cfg.Niching); err != nil {
		// validated at construction, cannot fail here
		e.log.Error().Err(err).Msg("fitness sharing failed")
	}
	return transcripts, degradedCalls, interrupted
}

// rawFitness is the weighted sum over scoring dimensions, iterated in
// stable order so runs with equal seeds stay bit-identical.
func (e *Engine) rawFitness(scores model.FitnessScores) float64 {
	var raw float64
	for _, name := range model.ScoreNames {
		if w, ok := e.cfg.FitnessWeights[name]; ok {
			raw += w * scores.Get(name)
		}
	}
	return raw
}

func (e *Engine) persist(ctx context.Context, gen int, population []model.Individual, transcripts []model.Transcript, rec model.GenerationStats) error {
	genotypes := make([]model.Genotype, 0, len(population))
	for _, ind := range population {
		genotypes = append(genotypes, ind.Genotype)
	}
	if err := e.store.SaveGeneration(gen, genotypes); err != nil {
		return err
	}
	if err := e.store.SaveTranscripts(gen, transcripts); err != nil {
		return err
	}
	if err := e.store.AppendStats(rec); err != nil {
		return err
	}
	if e.archive != nil {
		record := model.GenerationRecord{
			Generation:  gen,
			Population:  genotypes,
			Transcripts: transcripts,
			Stats:       rec,
		}
		if err := e.archive.ArchiveGeneration(ctx, e.runID, record); err != nil {
			e.log.Warn().Err(err).Int("generation", gen).Msg("archiving failed")
		}
	}
	return nil
}

// reproduce builds the next population: elites carried unchanged, the rest
// from tournament parents via crossover and chance mutation.
func (e *Engine) reproduce(ctx context.Context, population []model.Individual) ([]model.Individual, error) {
	ranked := make([]model.Individual, len(population))
	copy(ranked, population)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].SharedFitness != ranked[j].SharedFitness {
			return ranked[i].SharedFitness > ranked[j].SharedFitness
		}
		if ranked[i].RawFitness != ranked[j].RawFitness {
			return ranked[i].RawFitness > ranked[j].RawFitness
		}
		return ranked[i].Genotype.Name < ranked[j].Genotype.Name
	})

	eliteCount := e.cfg.EliteCount
	if eliteCount > len(ranked) {
		eliteCount = len(ranked)
	}
	next := make([]model.Genotype, 0, e.cfg.PopulationSize)
	taken := make(map[string]struct{}, e.cfg.PopulationSize)
	for _, elite := range ranked[:eliteCount] {
		next = append(next, elite.Genotype.Clone())
		taken[elite.Genotype.Name] = struct{}{}
	}

	for len(next) < e.cfg.PopulationSize {
		parentA, err := e.selector.PickParent(e.rng, population)
		if err != nil {
			return nil, err
		}
		parentB, err := e.selector.PickParent(e.rng, population)
		if err != nil {
			return nil, err
		}
		child, err := Crossover(e.rng, e.pools[PoolNames], parentA, parentB)
		if err != nil {
			return nil, err
		}
		if e.rng.Float64() < *e.cfg.MutationRate {
			child, err = e.mutator.Mutate(ctx, e.rng, child)
			if err != nil {
				return nil, err
			}
		}
		if e.cfg.NicknameHook {
			child = e.nickname(ctx, child)
		}
		child.Name = genotype.UniqueName(e.rng, child.Name, taken)
		taken[child.Name] = struct{}{}
		next = append(next, child)
	}
	return e.individuals(next), nil
}

// nickname asks the backend for a fresh one-word handle; failures keep the
// pool-drawn name.
func (e *Engine) nickname(ctx context.Context, g model.Genotype) model.Genotype {
	summary := make([]string, 0, 3)
	if occ := genotype.Text(g, model.AttrOccupation); occ != "" {
		summary = append(summary, "occupation: "+occ)
	}
	if hobbies := genotype.List(g, model.AttrHobbies); len(hobbies) > 0 {
		summary = append(summary, "hobbies: "+strings.Join(hobbies, ", "))
	}
	if story := genotype.Text(g, model.AttrBackstory); story != "" {
		if len(story) > 300 {
			story = story[:300]
		}
		summary = append(summary, story)
	}
	response, err := e.client.Generate(ctx, llm.Request{
		System: "You are a creative username generator.",
		User: fmt.Sprintf(
			"Create a short, creative social-media nickname (one word, no spaces, "+
				"no special characters) for this person:\n%s\n\n"+
				"Reply with ONLY the nickname, nothing else.",
			strings.Join(summary, "\n")),
		Temperature: 0.9,
	})
	if err != nil {
		return g
	}
	fields := strings.Fields(strings.TrimSpace(response))
	if len(fields) == 0 {
		return g
	}
	nickname := fields[0]
	if nickname == "" || len(nickname) > 20 {
		return g
	}
	g.Name = nickname
	return g
}

// partition splits the shuffled order into groups of size. The tail
// remainder is dropped, or merged into the last group when configured.
func partition(order []int, size int, mergeRemainder bool) [][]int {
	var groups [][]int
	for i := 0; i+size <= len(order); i += size {
		groups = append(groups, order[i:i+size])
	}
	remainder := len(order) % size
	if remainder > 0 && mergeRemainder && len(groups) > 0 {
		last := len(groups) - 1
		groups[last] = append(append([]int(nil), groups[last]...), order[len(order)-remainder:]...)
	}
	return groups
}

func names(population []model.Individual) []string {
	out := make([]string, 0, len(population))
	for _, ind := range population {
		out = append(out, ind.Genotype.Name)
	}
	return out
}

