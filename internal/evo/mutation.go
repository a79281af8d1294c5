package evo

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"

	"github.com/rs/zerolog"

	"personagen/internal/genotype"
	"personagen/internal/llm"
	"personagen/internal/model"
)

// Mutator produces a variation of a genotype. Implementations fail open:
// when a strategy cannot apply they return the input unchanged rather than
// an error.
type Mutator interface {
	Name() string
	Mutate(ctx context.Context, rng *rand.Rand, g model.Genotype) (model.Genotype, error)
}

// PoolMutator applies one or two randomly chosen structural strategies,
// drawing replacement values from a static catalog.
type PoolMutator struct {
	Pools Pools
}

func (PoolMutator) Name() string {
	return "pool"
}

type strategy func(m PoolMutator, rng *rand.Rand, g *model.Genotype)

var strategies = []strategy{
	PoolMutator.traitPerturb,
	PoolMutator.listSwap,
	PoolMutator.styleReplace,
	PoolMutator.ageShift,
	PoolMutator.backstoryEvent,
}

func (m PoolMutator) Mutate(ctx context.Context, rng *rand.Rand, g model.Genotype) (model.Genotype, error) {
	if rng == nil {
		return model.Genotype{}, fmt.Errorf("random source is required")
	}
	child := g.Clone()
	for _, idx := range pickStrategies(rng, len(strategies)) {
		strategies[idx](m, rng, &child)
	}
	return child, nil
}

// pickStrategies draws one or two distinct strategy indices.
func pickStrategies(rng *rand.Rand, total int) []int {
	count := 1 + rng.Intn(2)
	if count > total {
		count = total
	}
	return rng.Perm(total)[:count]
}

func (m PoolMutator) traitPerturb(rng *rand.Rand, g *model.Genotype) {
	traits := genotype.TraitMap(*g)
	if len(traits) == 0 {
		return
	}
	keys := make([]string, 0, len(traits))
	for k := range traits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	k := keys[rng.Intn(len(keys))]
	v := traits[k] + (rng.Float64()*0.3 - 0.15)
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	traits[k] = v
	genotype.Set(g, model.AttrPersonalityTraits, model.Traits(traits))
}

func (m PoolMutator) listSwap(rng *rand.Rand, g *model.Genotype) {
	targets := []struct{ attr, pool string }{
		{model.AttrHobbies, PoolHobbies},
		{model.AttrCoreValues, PoolCoreValues},
		{model.AttrGoals, PoolGoals},
	}
	t := targets[rng.Intn(len(targets))]
	items := genotype.List(*g, t.attr)
	if len(items) == 0 {
		return
	}
	drop := rng.Intn(len(items))
	items = append(items[:drop:drop], items[drop+1:]...)

	present := make(map[string]struct{}, len(items))
	for _, s := range items {
		present[s] = struct{}{}
	}
	var candidates []string
	for _, s := range m.Pools[t.pool] {
		if _, dup := present[s]; !dup {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) > 0 {
		items = append(items, candidates[rng.Intn(len(candidates))])
	}
	genotype.Set(g, t.attr, model.Strings(items))
}

func (m PoolMutator) styleReplace(rng *rand.Rand, g *model.Genotype) {
	targets := []struct{ attr, pool string }{
		{model.AttrCommunicationStyle, PoolCommunicationStyles},
		{model.AttrTopicalFocus, PoolTopicalFocuses},
	}
	t := targets[rng.Intn(len(targets))]
	current := genotype.Text(*g, t.attr)
	var candidates []string
	for _, s := range m.Pools[t.pool] {
		if s != current {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return
	}
	genotype.Set(g, t.attr, model.String(candidates[rng.Intn(len(candidates))]))
}

func (m PoolMutator) ageShift(rng *rand.Rand, g *model.Genotype) {
	age, ok := genotype.Age(*g)
	if !ok {
		return
	}
	delta := 1 + rng.Intn(5)
	if rng.Intn(2) == 0 {
		delta = -delta
	}
	genotype.Set(g, model.AttrAge, model.Int(genotype.ClampAge(age+delta)))
}

func (m PoolMutator) backstoryEvent(rng *rand.Rand, g *model.Genotype) {
	events := m.Pools[PoolLifeEvents]
	if len(events) == 0 {
		return
	}
	event := events[rng.Intn(len(events))]
	story := genotype.Text(*g, model.AttrBackstory)
	if story != "" {
		story += " "
	}
	genotype.Set(g, model.AttrBackstory, model.String(story+event))
}

// BackendMutator asks the backend for a variation of the genotype and falls
// back to pool mutation on any failure. It never propagates backend errors.
type BackendMutator struct {
	Client   llm.Client
	Fallback PoolMutator
	Logger   zerolog.Logger
}

func (BackendMutator) Name() string {
	return "backend"
}

func (m BackendMutator) Mutate(ctx context.Context, rng *rand.Rand, g model.Genotype) (model.Genotype, error) {
	serialized, err := json.Marshal(g)
	if err != nil {
		return m.Fallback.Mutate(ctx, rng, g)
	}
	prompt := fmt.Sprintf(
		"Here is a social media persona as JSON:\n%s\n\n"+
			"Create a slightly different variation of this persona with a fresh unique name. "+
			"Keep the same JSON shape: an object with \"name\" and \"attributes\".\n"+
			"Return ONLY valid JSON.",
		serialized)
	response, err := m.Client.Generate(ctx, llm.Request{
		System:      "You are a creative character designer for social media simulations.",
		User:        prompt,
		Temperature: 0.9,
	})
	if err != nil || response == "" {
		m.Logger.Warn().Err(err).Str("persona", g.Name).Msg("backend mutation failed, using pool mutation")
		return m.Fallback.Mutate(ctx, rng, g)
	}
	var child model.Genotype
	if err := json.Unmarshal([]byte(llm.StripFences(response)), &child); err != nil || child.Name == "" {
		m.Logger.Warn().Err(err).Str("persona", g.Name).Msg("backend mutation unparseable, using pool mutation")
		return m.Fallback.Mutate(ctx, rng, g)
	}
	if err := genotype.Validate(child); err != nil {
		m.Logger.Warn().Err(err).Str("persona", g.Name).Msg("backend mutation invalid, using pool mutation")
		return m.Fallback.Mutate(ctx, rng, g)
	}
	return child, nil
}

