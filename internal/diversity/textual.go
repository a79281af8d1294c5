package diversity

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"personagen/internal/llm"
	"personagen/internal/model"
)

// Kit computes textual diversity. With an embedder it uses mean pairwise
// cosine distance between embeddings; without one it degrades to a lexical
// estimate over normalized edit distances.
type Kit struct {
	Embedder llm.Embedder
	Logger   zerolog.Logger
}

// TextDiversity scores a set of texts in [0,1]. Fewer than two non-empty
// texts score 0. degraded reports that the lexical fallback was used.
func (k *Kit) TextDiversity(ctx context.Context, texts []string) (score float64, degraded bool, err error) {
	kept := nonEmpty(texts)
	if len(kept) < 2 {
		return 0, false, nil
	}
	if k.Embedder == nil {
		return lexicalDiversity(kept), true, nil
	}
	vectors, err := k.embedAll(ctx, kept)
	if err != nil {
		k.Logger.Warn().Err(err).Msg("embedding failed, using lexical diversity")
		return lexicalDiversity(kept), true, nil
	}
	return meanPairwiseCosineDistance(vectors), false, nil
}

// AgentOutputDiversity scores the variety of one agent's posts and replies
// across a generation's transcripts.
func (k *Kit) AgentOutputDiversity(ctx context.Context, transcripts []model.Transcript, name string) (float64, bool, error) {
	var texts []string
	for _, tr := range transcripts {
		texts = append(texts, tr.AuthoredBy(name)...)
	}
	return k.TextDiversity(ctx, texts)
}

// PopulationDiversity scores how far apart the agents' voices are: each
// agent is represented by the mean embedding of its texts, and the score is
// the mean pairwise cosine distance between those representatives.
func (k *Kit) PopulationDiversity(ctx context.Context, transcripts []model.Transcript, names []string) (float64, bool, error) {
	perAgent := make([][]string, 0, len(names))
	for _, name := range names {
		var texts []string
		for _, tr := range transcripts {
			texts = append(texts, tr.AuthoredBy(name)...)
		}
		if kept := nonEmpty(texts); len(kept) > 0 {
			perAgent = append(perAgent, kept)
		}
	}
	if len(perAgent) < 2 {
		return 0, false, nil
	}
	if k.Embedder == nil {
		joined := make([]string, len(perAgent))
		for i, texts := range perAgent {
			joined[i] = strings.Join(texts, "\n")
		}
		return lexicalDiversity(joined), true, nil
	}
	representatives := make([][]float64, 0, len(perAgent))
	for _, texts := range perAgent {
		vectors, err := k.embedAll(ctx, texts)
		if err != nil {
			k.Logger.Warn().Err(err).Msg("embedding failed, using lexical population diversity")
			joined := make([]string, len(perAgent))
			for i, t := range perAgent {
				joined[i] = strings.Join(t, "\n")
			}
			return lexicalDiversity(joined), true, nil
		}
		representatives = append(representatives, meanVector(vectors))
	}
	return meanPairwiseCosineDistance(representatives), false, nil
}

func (k *Kit) embedAll(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for _, text := range texts {
		vec, err := k.Embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text: %w", err)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

func meanPairwiseCosineDistance(vectors [][]float64) float64 {
	var sum float64
	pairs := 0
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			sum += cosineDistance(vectors[i], vectors[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return clamp01(sum / float64(pairs))
}

func cosineDistance(u, v []float64) float64 {
	if len(u) != len(v) || len(u) == 0 {
		return 0
	}
	nu := floats.Norm(u, 2)
	nv := floats.Norm(v, 2)
	if nu == 0 || nv == 0 {
		return 0
	}
	return clamp01(1 - floats.Dot(u, v)/(nu*nv))
}

func meanVector(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	mean := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		floats.Add(mean, v)
	}
	floats.Scale(1/float64(len(vectors)), mean)
	return mean
}

// lexicalDiversity is the embedder-less estimate: mean pairwise normalized
// edit distance.
func lexicalDiversity(texts []string) float64 {
	var sum float64
	pairs := 0
	for i := 0; i < len(texts); i++ {
		for j := i + 1; j < len(texts); j++ {
			sum += normalizedEditDistance(texts[i], texts[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return clamp01(sum / float64(pairs))
}

func normalizedEditDistance(a, b string) float64 {
	longest := len([]rune(a))
	if lb := len([]rune(b)); lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}

func nonEmpty(texts []string) []string {
	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			kept = append(kept, t)
		}
	}
	return kept
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
