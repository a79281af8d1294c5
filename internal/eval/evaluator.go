// Package eval scores individuals from episode transcripts, either with
// deterministic heuristics or with a backend judge.
package eval

import (
	"context"
	"math"
	"unicode/utf8"

	"personagen/internal/diversity"
	"personagen/internal/model"
)

// Evaluator scores one individual over the transcripts it participated in.
// degraded reports that a fallback path produced part of the scores.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, g model.Genotype, transcripts []model.Transcript) (scores model.FitnessScores, degraded bool, err error)
}

// Heuristic scores without any backend call: engagement from event counts,
// conversation quality from mean length, diversity from the diversity kit.
type Heuristic struct {
	Diversity *diversity.Kit
}

func (Heuristic) Name() string {
	return "heuristic"
}

func (e Heuristic) Evaluate(ctx context.Context, g model.Genotype, transcripts []model.Transcript) (model.FitnessScores, bool, error) {
	var texts []string
	for _, tr := range transcripts {
		texts = append(texts, tr.AuthoredBy(g.Name)...)
	}

	var scores model.FitnessScores
	scores.Engagement = math.Min(float64(len(texts))*0.2, 1.0)
	scores.ConversationQuality = math.Min(meanLength(texts)/100, 1.0)
	scores.PersonaFidelity = 0.5
	scores.Safety = 1.0

	degraded := false
	if e.Diversity != nil {
		score, lexical, err := e.Diversity.TextDiversity(ctx, texts)
		if err != nil {
			return model.FitnessScores{}, false, err
		}
		scores.Diversity = score
		degraded = lexical
	}
	return scores, degraded, nil
}

func meanLength(texts []string) float64 {
	if len(texts) == 0 {
		return 0
	}
	total := 0
	for _, t := range texts {
		total += utf8.RuneCountInString(t)
	}
	return float64(total) / float64(len(texts))
}
