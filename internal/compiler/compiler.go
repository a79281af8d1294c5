// Package compiler renders genotypes into the prompt pair an agent runs
// with. Rendering is pure template substitution: the same genotype always
// produces byte-identical output.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	"personagen/internal/genotype"
	"personagen/internal/model"
)

// Compile derives the phenotype for a genotype. Recognized attributes feed
// the identity and policy blocks; missing ones are skipped without error;
// anything else lands verbatim in an "Additional Attributes" section with
// its key humanized.
func Compile(g model.Genotype) model.Phenotype {
	return model.Phenotype{
		SystemPrompt:       systemPrompt(g),
		PolicyInstructions: policyInstructions(g),
	}
}

func systemPrompt(g model.Genotype) string {
	var b strings.Builder
	b.WriteString("You are a user on a social network. Fully embody the following character.\n\n")
	fmt.Fprintf(&b, "**Your Character: %s**\n\n", g.Name)

	if age, ok := genotype.Age(g); ok {
		fmt.Fprintf(&b, "Age: %d\n", age)
	}
	writeLine(&b, "Occupation", genotype.Text(g, model.AttrOccupation))
	writeLine(&b, "Backstory", genotype.Text(g, model.AttrBackstory))
	writeList(&b, "Core Values", genotype.List(g, model.AttrCoreValues))
	writeList(&b, "Hobbies", genotype.List(g, model.AttrHobbies))
	if v, ok := g.Attributes[model.AttrPersonalityTraits]; ok && v.Kind() == model.KindTraits {
		writeLine(&b, "Personality Traits", v.Display())
	}
	writeLine(&b, "Communication Style", genotype.Text(g, model.AttrCommunicationStyle))

	if extras := additionalAttributes(g); extras != "" {
		b.WriteString("\nAdditional Attributes:\n")
		b.WriteString(extras)
	}

	b.WriteString("\n**Rules:**\n")
	b.WriteString("1. Always stay in character as this person.\n")
	b.WriteString("2. Never reveal that you are an AI.\n")
	b.WriteString("3. Write in a natural SNS style, not too polished, not too formal.\n")
	b.WriteString("4. Your posts and replies should feel like something a real person would write.\n")
	b.WriteString("5. Keep posts concise (1-3 sentences typically, occasional longer posts are fine).")
	return b.String()
}

func policyInstructions(g model.Genotype) string {
	var b strings.Builder
	b.WriteString("Behavioral policy for this session:\n")
	if goals := genotype.List(g, model.AttrGoals); len(goals) > 0 {
		fmt.Fprintf(&b, "- Primary goal: %s\n", goals[0])
		if len(goals) > 1 {
			fmt.Fprintf(&b, "- Secondary goals: %s\n", strings.Join(goals[1:], ", "))
		}
	}
	if focus := genotype.Text(g, model.AttrTopicalFocus); focus != "" {
		fmt.Fprintf(&b, "- Steer conversations toward: %s\n", focus)
	}
	if policy := genotype.Text(g, model.AttrInteractionPolicy); policy != "" {
		fmt.Fprintf(&b, "- When interacting with others: %s\n", policy)
	}
	b.WriteString("- Stay consistent with your character at all times.")
	return b.String()
}

// Identity and policy keys already rendered above. Name is the genotype's
// own field, never an attribute.
var renderedKeys = map[string]struct{}{
	model.AttrAge:                {},
	model.AttrOccupation:         {},
	model.AttrBackstory:          {},
	model.AttrCoreValues:         {},
	model.AttrHobbies:            {},
	model.AttrPersonalityTraits:  {},
	model.AttrCommunicationStyle: {},
	model.AttrTopicalFocus:       {},
	model.AttrInteractionPolicy:  {},
	model.AttrGoals:              {},
}

func additionalAttributes(g model.Genotype) string {
	keys := make([]string, 0, len(g.Attributes))
	for k := range g.Attributes {
		if _, done := renderedKeys[k]; done {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", genotype.HumanizeKey(k), g.Attributes[k].Display())
	}
	return b.String()
}

func writeLine(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(items, ", "))
}
