package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"personagen/internal/diversity"
	"personagen/internal/genotype"
	"personagen/internal/llm"
	"personagen/internal/model"
)

// Judge asks the backend to score an individual's transcript. One prompt
// per individual, temperature 0, JSON response. Any parse or schema failure
// falls back to conservative scores and flags the individual degraded.
type Judge struct {
	Client    llm.Client
	Diversity *diversity.Kit
	Logger    zerolog.Logger
}

func (Judge) Name() string {
	return "judge"
}

// fallbackScores is used when the judge response cannot be trusted.
func fallbackScores() model.FitnessScores {
	return model.FitnessScores{Engagement: 0.1, Safety: 1.0}
}

func (j Judge) Evaluate(ctx context.Context, g model.Genotype, transcripts []model.Transcript) (model.FitnessScores, bool, error) {
	var mine []model.Event
	for _, tr := range transcripts {
		for _, e := range tr {
			if e.Author == g.Name {
				mine = append(mine, e)
			}
		}
	}
	if len(mine) == 0 {
		return model.FitnessScores{Safety: 1.0}, false, nil
	}

	response, err := j.Client.Generate(ctx, llm.Request{
		System: "You are an expert judge of social media content. " +
			"Evaluate how realistic, engaging, and interesting a user's posts and replies are.",
		User:        j.prompt(g, mine, transcripts),
		Temperature: 0,
		Timeout:     10 * time.Second,
	})
	if err != nil || response == "" {
		j.Logger.Warn().Err(err).Str("persona", g.Name).Msg("judge call failed, using fallback scores")
		return fallbackScores(), true, nil
	}

	var raw map[string]float64
	if err := json.Unmarshal([]byte(llm.StripFences(response)), &raw); err != nil {
		j.Logger.Warn().Err(err).Str("persona", g.Name).Msg("judge response unparseable, using fallback scores")
		return fallbackScores(), true, nil
	}
	var scores model.FitnessScores
	for name, value := range raw {
		if value < 0 || value > 1 {
			j.Logger.Warn().Str("persona", g.Name).Str("dimension", name).Float64("value", value).
				Msg("judge score out of range, using fallback scores")
			return fallbackScores(), true, nil
		}
		scores.Set(name, value)
	}

	degraded := false
	if j.Diversity != nil {
		texts := make([]string, 0, len(mine))
		for _, e := range mine {
			if e.Type != model.EventPass {
				texts = append(texts, e.Content)
			}
		}
		score, lexical, err := j.Diversity.TextDiversity(ctx, texts)
		if err != nil {
			return model.FitnessScores{}, false, err
		}
		scores.Diversity = score
		degraded = lexical
	}
	return scores, degraded, nil
}

func (j Judge) prompt(g model.Genotype, mine []model.Event, transcripts []model.Transcript) string {
	var posts, replies []string
	for _, e := range mine {
		switch e.Type {
		case model.EventPost:
			posts = append(posts, "- "+e.Content)
		case model.EventReply:
			replies = append(replies, fmt.Sprintf("- [to %s] %s", e.TargetAuthor, e.Content))
		}
	}
	if len(posts) == 0 {
		posts = []string{"(no posts)"}
	}
	if len(replies) == 0 {
		replies = []string{"(no replies)"}
	}

	var conversation []string
	for _, tr := range transcripts {
		for _, e := range tr {
			if e.Type != model.EventPass {
				conversation = append(conversation, fmt.Sprintf("%s: %s", e.Author, e.Content))
			}
		}
	}

	var persona []string
	if occ := genotype.Text(g, model.AttrOccupation); occ != "" {
		persona = append(persona, "occupation: "+occ)
	}
	if style := genotype.Text(g, model.AttrCommunicationStyle); style != "" {
		persona = append(persona, "communication style: "+style)
	}
	if goals := genotype.List(g, model.AttrGoals); len(goals) > 0 {
		persona = append(persona, "goals: "+strings.Join(goals, ", "))
	}
	summary := strings.Join(persona, "; ")
	if summary == "" {
		summary = "(no attributes)"
	}

	return fmt.Sprintf(`**User being evaluated:** %s (%s)

**Their posts:**
%s

**Their replies:**
%s

**Full conversation context:**
%s

**Task:**
Rate this user's content on a 0.0 to 1.0 scale:
- engagement: How actively and meaningfully did this user participate?
- conversation_quality: Are the posts and replies natural, interesting and conversational?
- persona_fidelity: Does the content stay true to the persona described above?
- social_intelligence: Does the user read the room and respond appropriately to others?
- goal_achievement: Does the content advance the persona's stated goals?
- safety: Is the content safe and non-toxic? (1.0 = safe, 0.0 = toxic)

Return JSON only: {"engagement": float, "conversation_quality": float, "persona_fidelity": float, "social_intelligence": float, "goal_achievement": float, "safety": float}`,
		g.Name, summary,
		strings.Join(posts, "\n"),
		strings.Join(replies, "\n"),
		strings.Join(conversation, "\n"))
}
