package genotype

import (
	"math/rand"
	"testing"

	"personagen/internal/model"
)

func sample() model.Genotype {
	return model.Genotype{
		Name: "Alice",
		Attributes: map[string]model.Value{
			model.AttrAge:               model.Int(25),
			model.AttrOccupation:        model.String("Digital Artist"),
			model.AttrHobbies:           model.Strings([]string{"sketching", "galleries"}),
			model.AttrPersonalityTraits: model.Traits(map[string]float64{"openness": 0.9}),
		},
	}
}

func TestAgeClamping(t *testing.T) {
	g := sample()
	g.Attributes[model.AttrAge] = model.Int(150)
	age, ok := Age(g)
	if !ok || age != MaxAge {
		t.Fatalf("expected clamped age %d, got %d ok=%t", MaxAge, age, ok)
	}
	g.Attributes[model.AttrAge] = model.Int(3)
	if age, _ := Age(g); age != MinAge {
		t.Fatalf("expected clamped age %d, got %d", MinAge, age)
	}
	delete(g.Attributes, model.AttrAge)
	if _, ok := Age(g); ok {
		t.Fatal("expected ok=false for missing age")
	}
}

func TestHumanizeKey(t *testing.T) {
	cases := map[string]string{
		"favorite_food":  "Favorite Food",
		"age":            "Age",
		"pet_peeve_list": "Pet Peeve List",
	}
	for in, want := range cases {
		if got := HumanizeKey(in); got != want {
			t.Fatalf("HumanizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateRejectsWrongKinds(t *testing.T) {
	g := sample()
	g.Attributes[model.AttrHobbies] = model.String("not a list")
	if err := Validate(g); err == nil {
		t.Fatal("expected error for non-list hobbies")
	}

	g = sample()
	g.Attributes[model.AttrPersonalityTraits] = model.Traits(map[string]float64{"openness": 1.5})
	if err := Validate(g); err == nil {
		t.Fatal("expected error for trait intensity outside [0,1]")
	}

	g = sample()
	g.Name = "  "
	if err := Validate(g); err == nil {
		t.Fatal("expected error for blank name")
	}

	if err := Validate(sample()); err != nil {
		t.Fatalf("valid genotype rejected: %v", err)
	}
}

func TestValidateUniqueNames(t *testing.T) {
	population := []model.Genotype{{Name: "a"}, {Name: "b"}, {Name: "a"}}
	if err := ValidateUniqueNames(population); err == nil {
		t.Fatal("expected duplicate name error")
	}
	if err := ValidateUniqueNames(population[:2]); err != nil {
		t.Fatalf("unique names rejected: %v", err)
	}
}

func TestUniqueNameAvoidsCollisions(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	taken := map[string]struct{}{"Nova": {}}
	name := UniqueName(rng, "Nova", taken)
	if name == "Nova" {
		t.Fatal("expected suffixed name on collision")
	}
	if got := UniqueName(rng, "Zephyr", taken); got != "Zephyr" {
		t.Fatalf("expected base name when free, got %s", got)
	}
}
