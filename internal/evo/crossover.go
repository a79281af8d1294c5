package evo

import (
	"fmt"
	"math/rand"
	"sort"

	"personagen/internal/genotype"
	"personagen/internal/model"
)

// fromA and fromB split the recognized attributes between the parents so a
// child inherits coherent clusters instead of a random shuffle.
var (
	crossFromA = []string{
		model.AttrOccupation,
		model.AttrCoreValues,
		model.AttrPersonalityTraits,
		model.AttrTopicalFocus,
	}
	crossFromB = []string{
		model.AttrBackstory,
		model.AttrHobbies,
		model.AttrCommunicationStyle,
		model.AttrInteractionPolicy,
	}
)

// Crossover builds a child genotype from two parents. The name is a fresh
// draw from the name pool; the engine renames later if it collides. Pure
// given the random source.
func Crossover(rng *rand.Rand, names []string, a, b model.Genotype) (model.Genotype, error) {
	if rng == nil {
		return model.Genotype{}, fmt.Errorf("random source is required")
	}
	if len(names) == 0 {
		return model.Genotype{}, fmt.Errorf("name pool is required")
	}
	child := model.Genotype{
		Name:       names[rng.Intn(len(names))],
		Attributes: make(map[string]model.Value),
	}

	if v, ok := pickAge(rng, a, b); ok {
		child.Attributes[model.AttrAge] = v
	}
	for _, key := range crossFromA {
		if v, ok := a.Attributes[key]; ok {
			child.Attributes[key] = v.Clone()
		}
	}
	for _, key := range crossFromB {
		if v, ok := b.Attributes[key]; ok {
			child.Attributes[key] = v.Clone()
		}
	}
	if goals := mergeGoals(a, b); goals != nil {
		child.Attributes[model.AttrGoals] = model.Strings(goals)
	}
	copyExtras(&child, a, b)
	return child, nil
}

func pickAge(rng *rand.Rand, a, b model.Genotype) (model.Value, bool) {
	va, okA := a.Attributes[model.AttrAge]
	vb, okB := b.Attributes[model.AttrAge]
	switch {
	case okA && okB:
		if rng.Intn(2) == 0 {
			return va.Clone(), true
		}
		return vb.Clone(), true
	case okA:
		return va.Clone(), true
	case okB:
		return vb.Clone(), true
	default:
		return model.Value{}, false
	}
}

// mergeGoals takes the first ceil(|A|/2) goals of A followed by the second
// half of B. Overlap is accepted.
func mergeGoals(a, b model.Genotype) []string {
	goalsA := genotype.List(a, model.AttrGoals)
	goalsB := genotype.List(b, model.AttrGoals)
	if goalsA == nil && goalsB == nil {
		return nil
	}
	halfA := (len(goalsA) + 1) / 2
	merged := append([]string(nil), goalsA[:halfA]...)
	merged = append(merged, goalsB[len(goalsB)/2:]...)
	return merged
}

// copyExtras carries unrecognized attributes through: keys only one parent
// has are copied, keys both have take A's value.
func copyExtras(child *model.Genotype, a, b model.Genotype) {
	keys := make(map[string]struct{}, len(a.Attributes)+len(b.Attributes))
	for k := range a.Attributes {
		keys[k] = struct{}{}
	}
	for k := range b.Attributes {
		keys[k] = struct{}{}
	}
	ordered := make([]string, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)
	for _, k := range ordered {
		if genotype.Recognized(k) {
			continue
		}
		if v, ok := a.Attributes[k]; ok {
			child.Attributes[k] = v.Clone()
			continue
		}
		child.Attributes[k] = b.Attributes[k].Clone()
	}
}
