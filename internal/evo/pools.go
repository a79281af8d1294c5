// Package evo holds the genetic operators, selection, fitness sharing and
// the generation loop that drives persona evolution.
package evo

import (
	"encoding/json"
	"fmt"
	"os"

	"personagen/internal/model"
)

// Pool names the structural mutator draws from.
const (
	PoolHobbies             = "hobbies"
	PoolCoreValues          = "core_values"
	PoolGoals               = "goals"
	PoolCommunicationStyles = "communication_styles"
	PoolTopicalFocuses      = "topical_focuses"
	PoolInteractionPolicies = "interaction_policies"
	PoolOccupations         = "occupations"
	PoolLifeEvents          = "life_events"
	PoolNames               = "names"
)

var requiredPools = []string{
	PoolHobbies,
	PoolCoreValues,
	PoolGoals,
	PoolCommunicationStyles,
	PoolTopicalFocuses,
	PoolInteractionPolicies,
	PoolOccupations,
	PoolLifeEvents,
	PoolNames,
}

// Pools is the static value catalog behind pool-based mutation and the
// crossover name draw.
type Pools map[string][]string

// Validate checks that every required pool exists and is non-empty.
func (p Pools) Validate() error {
	for _, name := range requiredPools {
		if len(p[name]) == 0 {
			return fmt.Errorf("mutation pool %q is missing or empty", name)
		}
	}
	return nil
}

// LoadPools reads a pool catalog from a JSON file.
func LoadPools(path string) (Pools, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mutation pools: %w", err)
	}
	var pools Pools
	if err := json.Unmarshal(raw, &pools); err != nil {
		return nil, fmt.Errorf("parse mutation pools: %w", err)
	}
	if err := pools.Validate(); err != nil {
		return nil, err
	}
	return pools, nil
}

// DefaultPools is the catalog shipped with the system.
func DefaultPools() Pools {
	return Pools{
		PoolHobbies: {
			"sketching", "visiting galleries", "coding", "chess", "reading",
			"debating", "writing", "travelling", "photography", "cooking",
			"gardening", "running", "vinyl collecting", "meditation", "hiking",
		},
		PoolCoreValues: {
			"creativity", "freedom", "logic", "efficiency", "truth",
			"skepticism", "integrity", "justice", "compassion", "curiosity",
			"sustainability", "authenticity",
		},
		PoolGoals: {
			"become famous", "inspire others", "teach others", "find bugs",
			"understand the world", "win debates", "uncover stories",
			"inform the public", "grow a following", "build a community",
			"go viral", "publish findings",
		},
		PoolCommunicationStyles: {
			"enthusiastic and visual", "concise and technical",
			"inquisitive and verbose", "direct and probing",
			"warm and storytelling", "gentle and reflective",
			"analytical and concise", "casual and enthusiastic",
			"thoughtful and persuasive",
		},
		PoolTopicalFocuses: {
			"digital art trends", "programming best practices", "ethics of AI",
			"current events", "mental health and wellness",
			"food culture and recipes", "urban design and civic engagement",
			"indie music and audio production", "machine learning and data ethics",
		},
		PoolInteractionPolicies: {
			"compliment others' work", "correct misconceptions",
			"ask deep questions", "interview others", "validate and support",
			"share personal anecdotes", "ask probing questions",
			"hype up emerging artists", "share evidence-based insights",
		},
		PoolOccupations: {
			"Digital Artist", "Software Engineer", "Student", "Journalist",
			"Chef", "Psychologist", "Urban Planner", "Music Student",
			"Data Scientist", "Graphic Designer",
		},
		PoolLifeEvents: {
			"Recently started getting into cooking videos.",
			"Has been posting more late at night recently.",
			"Just discovered a new favorite podcast.",
			"Going through a minimalist phase.",
			"Started working out and won't stop talking about it.",
			"Picked up photography as a hobby.",
			"Became obsessed with a new TV show.",
			"Trying to reduce screen time but failing.",
			"Just got a new pet and posts about it constantly.",
			"Going through a career change.",
		},
		PoolNames: {
			"Kai", "Suki", "Reo", "Mina", "Jiro", "Lila", "Nova", "Zephyr",
			"Echo", "Sage", "Remy", "Wren", "Ash", "Indigo", "Marlow",
		},
	}
}

// DefaultSeeds is the built-in seed population used when no seed file is
// given.
func DefaultSeeds() []model.Genotype {
	return []model.Genotype{
		{
			Name: "Alice",
			Attributes: map[string]model.Value{
				model.AttrAge:                model.Int(25),
				model.AttrOccupation:         model.String("Digital Artist"),
				model.AttrBackstory:          model.String("Always loved drawing, now exploring generative art."),
				model.AttrCoreValues:         model.Strings([]string{"creativity", "freedom"}),
				model.AttrHobbies:            model.Strings([]string{"sketching", "visiting galleries"}),
				model.AttrPersonalityTraits:  model.Traits(map[string]float64{"openness": 0.9, "neuroticism": 0.4}),
				model.AttrCommunicationStyle: model.String("enthusiastic and visual"),
				model.AttrTopicalFocus:       model.String("digital art trends"),
				model.AttrInteractionPolicy:  model.String("compliment others' work"),
				model.AttrGoals:              model.Strings([]string{"become famous", "inspire others"}),
			},
		},
		{
			Name: "Bob",
			Attributes: map[string]model.Value{
				model.AttrAge:                model.Int(35),
				model.AttrOccupation:         model.String("Software Engineer"),
				model.AttrBackstory:          model.String("Coding since childhood, obsessed with clean code."),
				model.AttrCoreValues:         model.Strings([]string{"logic", "efficiency"}),
				model.AttrHobbies:            model.Strings([]string{"coding", "chess"}),
				model.AttrPersonalityTraits:  model.Traits(map[string]float64{"conscientiousness": 0.9, "extraversion": 0.2}),
				model.AttrCommunicationStyle: model.String("concise and technical"),
				model.AttrTopicalFocus:       model.String("programming best practices"),
				model.AttrInteractionPolicy:  model.String("correct misconceptions"),
				model.AttrGoals:              model.Strings([]string{"teach others", "find bugs"}),
			},
		},
		{
			Name: "Charlie",
			Attributes: map[string]model.Value{
				model.AttrAge:                model.Int(22),
				model.AttrOccupation:         model.String("Student"),
				model.AttrBackstory:          model.String("Studying philosophy, questions everything."),
				model.AttrCoreValues:         model.Strings([]string{"truth", "skepticism"}),
				model.AttrHobbies:            model.Strings([]string{"reading", "debating"}),
				model.AttrPersonalityTraits:  model.Traits(map[string]float64{"openness": 0.8, "agreeableness": 0.4}),
				model.AttrCommunicationStyle: model.String("inquisitive and verbose"),
				model.AttrTopicalFocus:       model.String("ethics of AI"),
				model.AttrInteractionPolicy:  model.String("ask deep questions"),
				model.AttrGoals:              model.Strings([]string{"understand the world", "win debates"}),
			},
		},
		{
			Name: "Dana",
			Attributes: map[string]model.Value{
				model.AttrAge:                model.Int(40),
				model.AttrOccupation:         model.String("Journalist"),
				model.AttrBackstory:          model.String("Investigating the truth behind the headlines."),
				model.AttrCoreValues:         model.Strings([]string{"integrity", "justice"}),
				model.AttrHobbies:            model.Strings([]string{"writing", "travelling"}),
				model.AttrPersonalityTraits:  model.Traits(map[string]float64{"extraversion": 0.8, "agreeableness": 0.6}),
				model.AttrCommunicationStyle: model.String("direct and probing"),
				model.AttrTopicalFocus:       model.String("current events"),
				model.AttrInteractionPolicy:  model.String("interview others"),
				model.AttrGoals:              model.Strings([]string{"uncover stories", "inform the public"}),
			},
		},
	}
}
