package evo

import (
	"fmt"
	"math/rand"

	"personagen/internal/model"
)

// Selector chooses a parent from the scored population for reproduction.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, population []model.Individual) (model.Genotype, error)
}

// TournamentSelector samples candidates uniformly and keeps the best shared
// fitness among them.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, population []model.Individual) (model.Genotype, error) {
	if rng == nil {
		return model.Genotype{}, fmt.Errorf("random source is required")
	}
	if len(population) == 0 {
		return model.Genotype{}, fmt.Errorf("population is empty")
	}
	size := s.Size
	if size <= 0 {
		size = 3
	}
	if size > len(population) {
		size = len(population)
	}
	best := population[rng.Intn(len(population))]
	for i := 1; i < size; i++ {
		candidate := population[rng.Intn(len(population))]
		if candidate.SharedFitness > best.SharedFitness {
			best = candidate
		}
	}
	return best.Genotype.Clone(), nil
}
