package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"personagen/internal/evo"
	"personagen/internal/genotype"
	"personagen/internal/model"
)

// knownConfigKeys is what loadEvolutionConfig consumes; anything else in the
// file is logged and ignored.
var knownConfigKeys = map[string]struct{}{
	"population_size":       {},
	"generations":           {},
	"elite_count":           {},
	"group_size":            {},
	"reply_rounds":          {},
	"mutation_rate":         {},
	"tournament_size":       {},
	"topic_count":           {},
	"fitness_weights":       {},
	"niching_sigma":         {},
	"niching_alpha":         {},
	"seed":                  {},
	"merge_remainder":       {},
	"nickname_hook":         {},
	"generation_timeout_ms": {},
}

func loadOrDefaultConfig(path string, log zerolog.Logger) (evo.Config, error) {
	if path == "" {
		return evo.Config{}, nil
	}
	cfg, err := loadEvolutionConfig(path, log)
	if err != nil {
		return evo.Config{}, fmt.Errorf("%w: %v", evo.ErrConfig, err)
	}
	return cfg, nil
}

func loadEvolutionConfig(path string, log zerolog.Logger) (evo.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return evo.Config{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return evo.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	for key := range raw {
		if _, ok := knownConfigKeys[key]; !ok {
			log.Warn().Str("key", key).Str("path", path).Msg("unknown config key ignored")
		}
	}

	var cfg evo.Config
	if v, ok := asInt(raw["population_size"]); ok {
		cfg.PopulationSize = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		cfg.Generations = v
	}
	if v, ok := asInt(raw["elite_count"]); ok {
		cfg.EliteCount = v
	}
	if v, ok := asInt(raw["group_size"]); ok {
		cfg.GroupSize = v
	}
	if v, ok := asInt(raw["reply_rounds"]); ok {
		cfg.ReplyRounds = v
	}
	if v, ok := asFloat64(raw["mutation_rate"]); ok {
		cfg.MutationRate = &v
	}
	if v, ok := asInt(raw["tournament_size"]); ok {
		cfg.TournamentSize = v
	}
	if v, ok := asInt(raw["topic_count"]); ok {
		cfg.TopicCount = v
	}
	if weights, ok := raw["fitness_weights"].(map[string]any); ok {
		cfg.FitnessWeights = make(map[string]float64, len(weights))
		for name, value := range weights {
			w, ok := asFloat64(value)
			if !ok {
				return evo.Config{}, fmt.Errorf("fitness weight %s is not a number", name)
			}
			cfg.FitnessWeights[name] = w
		}
	}
	if v, ok := asFloat64(raw["niching_sigma"]); ok {
		cfg.Niching.Sigma = &v
	}
	if v, ok := asFloat64(raw["niching_alpha"]); ok {
		cfg.Niching.Alpha = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		cfg.Seed = v
	}
	if v, ok := asBool(raw["merge_remainder"]); ok {
		cfg.MergeRemainder = v
	}
	if v, ok := asBool(raw["nickname_hook"]); ok {
		cfg.NicknameHook = v
	}
	if v, ok := asInt(raw["generation_timeout_ms"]); ok {
		cfg.GenerationTimeout = time.Duration(v) * time.Millisecond
	}
	return cfg, nil
}

func overrideConfigFromFlags(cfg *evo.Config, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "pop":
			cfg.PopulationSize = v.(int)
		case "gens":
			cfg.Generations = v.(int)
		case "elites":
			cfg.EliteCount = v.(int)
		case "group-size":
			cfg.GroupSize = v.(int)
		case "reply-rounds":
			cfg.ReplyRounds = v.(int)
		case "mutation-rate":
			rate := v.(float64)
			cfg.MutationRate = &rate
		case "seed":
			cfg.Seed = v.(int64)
		case "nickname-hook":
			cfg.NicknameHook = v.(bool)
		case "generation-timeout-ms":
			cfg.GenerationTimeout = time.Duration(v.(int)) * time.Millisecond
		}
	}
}

// seedEntry accepts both the full genotype form and the legacy form that
// carries a single free-text description.
type seedEntry struct {
	Name        string                 `json:"name"`
	Attributes  map[string]model.Value `json:"attributes"`
	Description string                 `json:"description"`
}

func loadSeedPersonas(path string) ([]model.Genotype, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed personas: %w", err)
	}
	var entries []seedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse seed personas: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("seed persona file %s is empty", path)
	}

	seeds := make([]model.Genotype, 0, len(entries))
	for i, entry := range entries {
		g := model.Genotype{Name: entry.Name, Attributes: entry.Attributes}
		if g.Attributes == nil {
			if entry.Description == "" {
				return nil, fmt.Errorf("seed persona %d has neither attributes nor description", i)
			}
			g.Attributes = map[string]model.Value{
				model.AttrBackstory: model.String(entry.Description),
			}
		}
		if err := genotype.Validate(g); err != nil {
			return nil, fmt.Errorf("seed persona %d: %w", i, err)
		}
		seeds = append(seeds, g)
	}
	if err := genotype.ValidateUniqueNames(seeds); err != nil {
		return nil, err
	}
	return seeds, nil
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
