package compiler

import (
	"strings"
	"testing"

	"personagen/internal/model"
)

func demoGenotype() model.Genotype {
	return model.Genotype{
		Name: "Alice",
		Attributes: map[string]model.Value{
			model.AttrAge:                model.Int(25),
			model.AttrOccupation:         model.String("Digital Artist"),
			model.AttrBackstory:          model.String("Always loved drawing."),
			model.AttrCoreValues:         model.Strings([]string{"creativity", "freedom"}),
			model.AttrHobbies:            model.Strings([]string{"sketching"}),
			model.AttrPersonalityTraits:  model.Traits(map[string]float64{"openness": 0.9}),
			model.AttrCommunicationStyle: model.String("enthusiastic"),
			model.AttrTopicalFocus:       model.String("digital art"),
			model.AttrInteractionPolicy:  model.String("be encouraging"),
			model.AttrGoals:              model.Strings([]string{"become famous", "learn oil painting"}),
		},
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	g := demoGenotype()
	a := Compile(g)
	b := Compile(g)
	if a.SystemPrompt != b.SystemPrompt || a.PolicyInstructions != b.PolicyInstructions {
		t.Fatal("same genotype should compile to byte-identical phenotypes")
	}
}

func TestCompileRendersRecognizedAttributes(t *testing.T) {
	p := Compile(demoGenotype())
	wantInSystem := []string{
		"**Your Character: Alice**",
		"Age: 25",
		"Occupation: Digital Artist",
		"Core Values: creativity, freedom",
		"Personality Traits: openness: 0.90",
		"Communication Style: enthusiastic",
		"stay in character",
	}
	for _, want := range wantInSystem {
		if !strings.Contains(p.SystemPrompt, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, p.SystemPrompt)
		}
	}
	wantInPolicy := []string{
		"Primary goal: become famous",
		"Secondary goals: learn oil painting",
		"Steer conversations toward: digital art",
		"When interacting with others: be encouraging",
	}
	for _, want := range wantInPolicy {
		if !strings.Contains(p.PolicyInstructions, want) {
			t.Fatalf("policy missing %q:\n%s", want, p.PolicyInstructions)
		}
	}
}

func TestCompileSkipsMissingAttributes(t *testing.T) {
	g := model.Genotype{Name: "Bare", Attributes: map[string]model.Value{}}
	p := Compile(g)
	for _, label := range []string{"Age:", "Occupation:", "Hobbies:", "Additional Attributes"} {
		if strings.Contains(p.SystemPrompt, label) {
			t.Fatalf("system prompt should not mention %q for a bare genotype", label)
		}
	}
	if strings.Contains(p.PolicyInstructions, "Primary goal") {
		t.Fatal("policy should skip goals when absent")
	}
	if !strings.Contains(p.PolicyInstructions, "Stay consistent") {
		t.Fatal("policy should always carry the consistency rule")
	}
}

func TestCompileHumanizesUnknownKeys(t *testing.T) {
	g := demoGenotype()
	g.Attributes["favorite_quote"] = model.String("carved in time")
	g.Attributes["pet_peeves"] = model.Strings([]string{"paradoxes", "waste"})
	p := Compile(g)
	if !strings.Contains(p.SystemPrompt, "Additional Attributes:") {
		t.Fatalf("expected additional attributes section:\n%s", p.SystemPrompt)
	}
	if !strings.Contains(p.SystemPrompt, "- Favorite Quote: carved in time") {
		t.Fatal("unknown string key not humanized")
	}
	if !strings.Contains(p.SystemPrompt, "- Pet Peeves: paradoxes, waste") {
		t.Fatal("unknown list key not rendered")
	}
}

func TestCompileClampsAge(t *testing.T) {
	g := demoGenotype()
	g.Attributes[model.AttrAge] = model.Int(300)
	p := Compile(g)
	if !strings.Contains(p.SystemPrompt, "Age: 80") {
		t.Fatal("age should be clamped in the rendered prompt")
	}
}
