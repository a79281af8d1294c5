package evo

import (
	"fmt"
	"math"

	"personagen/internal/diversity"
	"personagen/internal/model"
)

// NichingConfig shapes the fitness-sharing kernel. Sigma is a pointer so an
// explicit zero (a configuration error) stays distinguishable from an unset
// value that gets the default.
type NichingConfig struct {
	Sigma *float64
	Alpha float64
}

func (c NichingConfig) validate() error {
	if c.Sigma == nil || *c.Sigma <= 0 || *c.Sigma > 1 {
		return fmt.Errorf("niching sigma %v outside (0, 1]", sigmaDisplay(c.Sigma))
	}
	if c.Alpha <= 0 {
		return fmt.Errorf("niching alpha %v must be positive", c.Alpha)
	}
	return nil
}

func sigmaDisplay(sigma *float64) float64 {
	if sigma == nil {
		return 0
	}
	return *sigma
}

// ApplySharing computes shared fitness in place: raw fitness divided by the
// niche count, where the niche count sums the sharing kernel over the whole
// population including the individual itself. Clustered genotypes split
// their fitness, keeping distinct niches alive.
func ApplySharing(population []model.Individual, cfg NichingConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	n := len(population)
	counts := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := diversity.GenotypeDistance(population[i].Genotype, population[j].Genotype)
			counts[i] += share(d, cfg)
		}
	}
	for i := range population {
		population[i].SharedFitness = population[i].RawFitness / math.Max(counts[i], 1)
	}
	return nil
}

func share(d float64, cfg NichingConfig) float64 {
	sigma := *cfg.Sigma
	if d >= sigma {
		return 0
	}
	return 1 - math.Pow(d/sigma, cfg.Alpha)
}
