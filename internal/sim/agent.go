// Package sim runs social-media episodes: groups of persona agents posting
// on a topic and deciding whether to reply to each other.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"personagen/internal/compiler"
	"personagen/internal/llm"
	"personagen/internal/model"
)

// Agent wraps a genotype, its compiled phenotype and a per-episode memory
// of the agent's own actions. The memory is cleared at episode end and is
// not fed back into prompts.
type Agent struct {
	Genotype  model.Genotype
	Phenotype model.Phenotype

	client llm.Client
	log    zerolog.Logger
	memory []string

	degradedCalls int
}

func NewAgent(g model.Genotype, client llm.Client, log zerolog.Logger) *Agent {
	return &Agent{
		Genotype:  g,
		Phenotype: compiler.Compile(g),
		client:    client,
		log:       log.With().Str("persona", g.Name).Logger(),
	}
}

func (a *Agent) Name() string {
	return a.Genotype.Name
}

// DegradedCalls reports how many backend calls fell back to placeholder or
// default behavior during the current episode.
func (a *Agent) DegradedCalls() int {
	return a.degradedCalls
}

// ResetMemory clears the episode-local state.
func (a *Agent) ResetMemory() {
	a.memory = nil
	a.degradedCalls = 0
}

// placeholder is recorded when the backend persistently fails, keeping the
// transcript well-defined for scoring.
func (a *Agent) placeholder() string {
	return fmt.Sprintf("[%s is thinking…]", a.Name())
}

// GeneratePost writes a post on the topic. It brainstorms angles first at a
// high temperature, then writes the final text from the chosen angle.
func (a *Agent) GeneratePost(ctx context.Context, topic string) (string, bool) {
	if topic == "" {
		topic = "General thoughts"
	}
	ideas := a.brainstorm(ctx, fmt.Sprintf(
		"You are planning a new post.\nContext: %s.\n\n"+
			"Brainstorm 3 distinct angles or headlines for a post. "+
			"Return ONLY a JSON list of strings, e.g. [\"Angle 1\", \"Angle 2\"].",
		topic), "General post idea")

	post, err := a.client.Generate(ctx, llm.Request{
		System: a.Phenotype.SystemPrompt,
		User: fmt.Sprintf(
			"Here are your brainstormed ideas for a new post:\n%s\n\n"+
				"Select the one that best fits your character and current mood.\n"+
				"Write the final post text based on that idea.\n"+
				"Output ONLY the post text.",
			ideas),
		Temperature: 0.7,
	})
	if err != nil || strings.TrimSpace(post) == "" {
		a.log.Warn().Err(err).Msg("post generation failed, recording placeholder")
		a.degradedCalls++
		return a.placeholder(), true
	}
	a.memory = append(a.memory, post)
	return post, false
}

// GenerateReply writes a reply to another agent's content.
func (a *Agent) GenerateReply(ctx context.Context, authorName, content string) (string, bool) {
	strategies := a.brainstorm(ctx, fmt.Sprintf(
		"%s posted: %q\n\n"+
			"Brainstorm 3 distinct strategies for replying (e.g. 'Wholeheartedly agree', "+
			"'Challenge the premise', 'Make a joke').\n"+
			"Return ONLY a JSON list of strings.",
		authorName, content), "Reply naturally")

	reply, err := a.client.Generate(ctx, llm.Request{
		System: a.Phenotype.SystemPrompt,
		User: fmt.Sprintf(
			"Target post: %q\n"+
				"You considered these reply strategies:\n%s\n\n"+
				"Select the best one for your character.\n"+
				"Write the final reply text. Output ONLY the reply.",
			content, strategies),
		Temperature: 0.7,
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		a.log.Warn().Err(err).Msg("reply generation failed, recording placeholder")
		a.degradedCalls++
		return a.placeholder(), true
	}
	a.memory = append(a.memory, reply)
	return reply, false
}

// ShouldEngage asks whether the persona would reply to the content. Only a
// clear "yes" engages; an unavailable backend counts as yes but degraded.
func (a *Agent) ShouldEngage(ctx context.Context, authorName, content string) (engage, degraded bool) {
	answer, err := a.client.Generate(ctx, llm.Request{
		System: a.Phenotype.SystemPrompt,
		User: fmt.Sprintf(
			"%s posted: %q\n\nWould you reply to this post? Answer only 'yes' or 'no'.",
			authorName, content),
		Temperature: 0.7,
		Timeout:     10 * time.Second,
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("engage decision failed, defaulting to yes")
		a.degradedCalls++
		return true, true
	}
	return strings.Contains(strings.ToLower(answer), "yes"), false
}

// brainstorm runs the idea-generation step and degrades to fallback text.
func (a *Agent) brainstorm(ctx context.Context, prompt, fallback string) string {
	response, err := a.client.Generate(ctx, llm.Request{
		System:      a.Phenotype.SystemPrompt,
		User:        prompt,
		Temperature: 0.9,
	})
	if err != nil || response == "" {
		return fallback
	}
	cleaned := llm.StripFences(response)
	var ideas []string
	if err := json.Unmarshal([]byte(cleaned), &ideas); err != nil || len(ideas) == 0 {
		return fallback
	}
	return strings.Join(ideas, "\n")
}
