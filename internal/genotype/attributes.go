package genotype

import (
	"fmt"
	"math/rand"
	"strings"

	"personagen/internal/model"
)

// Age bounds for the conventional age attribute.
const (
	MinAge = 18
	MaxAge = 80
)

// Age returns the age attribute clamped into [MinAge, MaxAge], with ok=false
// when the attribute is absent or not an integer.
func Age(g model.Genotype) (int, bool) {
	v, ok := g.Attributes[model.AttrAge]
	if !ok {
		return 0, false
	}
	age, ok := v.AsInt()
	if !ok {
		return 0, false
	}
	return ClampAge(age), true
}

func ClampAge(age int) int {
	if age < MinAge {
		return MinAge
	}
	if age > MaxAge {
		return MaxAge
	}
	return age
}

// Text returns a string attribute, empty when absent or of another kind.
func Text(g model.Genotype, key string) string {
	v, ok := g.Attributes[key]
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

// List returns a string-list attribute, nil when absent or of another kind.
func List(g model.Genotype, key string) []string {
	v, ok := g.Attributes[key]
	if !ok {
		return nil
	}
	items, _ := v.AsStrings()
	return items
}

// TraitMap returns the personality trait mapping, nil when absent.
func TraitMap(g model.Genotype) map[string]float64 {
	v, ok := g.Attributes[model.AttrPersonalityTraits]
	if !ok {
		return nil
	}
	traits, _ := v.AsTraits()
	return traits
}

// Set writes an attribute on a genotype, allocating the bag if needed.
func Set(g *model.Genotype, key string, value model.Value) {
	if g.Attributes == nil {
		g.Attributes = make(map[string]model.Value, 1)
	}
	g.Attributes[key] = value
}

var recognizedKeys = map[string]struct{}{
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

// Recognized reports whether key is one of the conventional attribute keys.
func Recognized(key string) bool {
	_, ok := recognizedKeys[key]
	return ok
}

// HumanizeKey turns snake_case attribute keys into title-cased labels for
// prompt rendering: "favorite_food" -> "Favorite Food".
func HumanizeKey(key string) string {
	parts := strings.Split(key, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

// Validate checks the shape constraints the operators rely on. Arbitrary
// unknown keys are fine; conventional keys must carry their conventional
// kinds when present.
func Validate(g model.Genotype) error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("genotype name is required")
	}
	if v, ok := g.Attributes[model.AttrAge]; ok {
		if _, isInt := v.AsInt(); !isInt {
			return fmt.Errorf("genotype %s: age must be an integer", g.Name)
		}
	}
	for _, key := range []string{model.AttrCoreValues, model.AttrHobbies, model.AttrGoals} {
		if v, ok := g.Attributes[key]; ok {
			if _, isList := v.AsStrings(); !isList {
				return fmt.Errorf("genotype %s: %s must be a list of strings", g.Name, key)
			}
		}
	}
	if v, ok := g.Attributes[model.AttrPersonalityTraits]; ok {
		traits, isTraits := v.AsTraits()
		if !isTraits {
			return fmt.Errorf("genotype %s: personality_traits must map names to numbers", g.Name)
		}
		for name, intensity := range traits {
			if intensity < 0 || intensity > 1 {
				return fmt.Errorf("genotype %s: trait %s intensity %v outside [0,1]", g.Name, name, intensity)
			}
		}
	}
	return nil
}

// ValidateUniqueNames fails fast on duplicate names within a population.
func ValidateUniqueNames(population []model.Genotype) error {
	seen := make(map[string]struct{}, len(population))
	for _, g := range population {
		if _, dup := seen[g.Name]; dup {
			return fmt.Errorf("duplicate genotype name: %s", g.Name)
		}
		seen[g.Name] = struct{}{}
	}
	return nil
}

// UniqueName derives a name not present in taken, appending a numeric suffix
// drawn from rng when the base collides.
func UniqueName(rng *rand.Rand, base string, taken map[string]struct{}) string {
	if _, exists := taken[base]; !exists {
		return base
	}
	for {
		candidate := fmt.Sprintf("%s%d", base, 10+rng.Intn(90))
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
	}
}

// RandomElement picks a uniform element, for pool draws and group topic
// assignment.
func RandomElement[T any](rng *rand.Rand, values []T) (T, error) {
	var zero T
	if len(values) == 0 {
		return zero, fmt.Errorf("values are required")
	}
	if rng == nil {
		return zero, fmt.Errorf("random source is required")
	}
	return values[rng.Intn(len(values))], nil
}
