// Package stats turns a scored population into the per-generation record
// that lands in the stats log and the console summary.
package stats

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"personagen/internal/model"
)

// Build assembles the stats record for one evaluated generation.
func Build(runID string, generation int, population []model.Individual, populationDiversity float64, degradedCalls int, now time.Time) model.GenerationStats {
	rec := model.GenerationStats{
		Timestamp:           now.UTC(),
		RunID:               runID,
		Generation:          generation,
		PopulationSize:      len(population),
		PopulationDiversity: populationDiversity,
		DegradedCalls:       degradedCalls,
		Agents:              make([]model.AgentStats, 0, len(population)),
	}
	for i, ind := range population {
		raw := ind.RawFitness
		if i == 0 || raw > rec.FitnessMax {
			rec.FitnessMax = raw
		}
		if i == 0 || raw < rec.FitnessMin {
			rec.FitnessMin = raw
		}
		rec.FitnessMean += raw
		rec.Agents = append(rec.Agents, model.AgentStats{
			Name:                ind.Genotype.Name,
			Engagement:          ind.Scores.Engagement,
			ConversationQuality: ind.Scores.ConversationQuality,
			Diversity:           ind.Scores.Diversity,
			PersonaFidelity:     ind.Scores.PersonaFidelity,
			Safety:              ind.Scores.Safety,
			RawFitness:          ind.RawFitness,
			SharedFitness:       ind.SharedFitness,
			Degraded:            ind.Degraded,
		})
	}
	if len(population) > 0 {
		rec.FitnessMean /= float64(len(population))
	}
	return rec
}

// LogSummary writes the one-line console summary for a generation.
func LogSummary(log zerolog.Logger, rec model.GenerationStats) {
	best := ""
	for _, agent := range rec.Agents {
		if best == "" || agent.SharedFitness > bestShared(rec, best) {
			best = agent.Name
		}
	}
	log.Info().
		Int("generation", rec.Generation).
		Str("population", humanize.Comma(int64(rec.PopulationSize))).
		Float64("fitness_mean", rec.FitnessMean).
		Float64("fitness_max", rec.FitnessMax).
		Float64("diversity", rec.PopulationDiversity).
		Int("degraded_calls", rec.DegradedCalls).
		Str("best", best).
		Msg("generation complete")
}

func bestShared(rec model.GenerationStats, name string) float64 {
	for _, agent := range rec.Agents {
		if agent.Name == name {
			return agent.SharedFitness
		}
	}
	return 0
}
