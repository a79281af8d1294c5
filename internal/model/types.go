package model

import "time"

// Genotype is the evolvable unit: a unique name plus a flexible attribute
// bag. Operators and the compiler recognize the conventional keys below and
// pass every other key through untouched.
type Genotype struct {
	Name       string           `json:"name"`
	Attributes map[string]Value `json:"attributes"`
}

// Recognized conventional attribute keys.
const (
	AttrAge                = "age"
	AttrOccupation         = "occupation"
	AttrBackstory          = "backstory"
	AttrCoreValues         = "core_values"
	AttrHobbies            = "hobbies"
	AttrPersonalityTraits  = "personality_traits"
	AttrCommunicationStyle = "communication_style"
	AttrTopicalFocus       = "topical_focus"
	AttrInteractionPolicy  = "interaction_policy"
	AttrGoals              = "goals"
)

func (g Genotype) Clone() Genotype {
	attrs := make(map[string]Value, len(g.Attributes))
	for k, v := range g.Attributes {
		attrs[k] = v.Clone()
	}
	return Genotype{Name: g.Name, Attributes: attrs}
}

// Equal reports attribute equality, the relation behind elite preservation
// and the zero-distance case of the structural metric.
func (g Genotype) Equal(other Genotype) bool {
	if g.Name != other.Name || len(g.Attributes) != len(other.Attributes) {
		return false
	}
	for k, v := range g.Attributes {
		w, ok := other.Attributes[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}

// Phenotype is the compiled prompt pair an agent runs with. Derived purely
// from the genotype and never mutated independently.
type Phenotype struct {
	SystemPrompt       string `json:"system_prompt"`
	PolicyInstructions string `json:"policy_instructions"`
}

// Score dimension names as they appear in fitness weights and stats records.
const (
	ScoreEngagement          = "engagement"
	ScoreConversationQuality = "conversation_quality"
	ScoreDiversity           = "diversity"
	ScorePersonaFidelity     = "persona_fidelity"
	ScoreSafety              = "safety"
	ScoreSocialIntelligence  = "social_intelligence"
	ScoreGoalAchievement     = "goal_achievement"
	ScoreNovelty             = "novelty"
)

// ScoreNames lists every dimension in stable order.
var ScoreNames = []string{
	ScoreEngagement,
	ScoreConversationQuality,
	ScoreDiversity,
	ScorePersonaFidelity,
	ScoreSafety,
	ScoreSocialIntelligence,
	ScoreGoalAchievement,
	ScoreNovelty,
}

// FitnessScores is the fixed-shape scorecard, every dimension in [0,1].
type FitnessScores struct {
	Engagement          float64 `json:"engagement"`
	ConversationQuality float64 `json:"conversation_quality"`
	Diversity           float64 `json:"diversity"`
	PersonaFidelity     float64 `json:"persona_fidelity"`
	Safety              float64 `json:"safety"`
	SocialIntelligence  float64 `json:"social_intelligence"`
	GoalAchievement     float64 `json:"goal_achievement"`
	Novelty             float64 `json:"novelty"`
}

// Get returns the named dimension, 0 for unknown names.
func (s FitnessScores) Get(name string) float64 {
	switch name {
	case ScoreEngagement:
		return s.Engagement
	case ScoreConversationQuality:
		return s.ConversationQuality
	case ScoreDiversity:
		return s.Diversity
	case ScorePersonaFidelity:
		return s.PersonaFidelity
	case ScoreSafety:
		return s.Safety
	case ScoreSocialIntelligence:
		return s.SocialIntelligence
	case ScoreGoalAchievement:
		return s.GoalAchievement
	case ScoreNovelty:
		return s.Novelty
	default:
		return 0
	}
}

// Set assigns the named dimension, ignoring unknown names.
func (s *FitnessScores) Set(name string, value float64) {
	switch name {
	case ScoreEngagement:
		s.Engagement = value
	case ScoreConversationQuality:
		s.ConversationQuality = value
	case ScoreDiversity:
		s.Diversity = value
	case ScorePersonaFidelity:
		s.PersonaFidelity = value
	case ScoreSafety:
		s.Safety = value
	case ScoreSocialIntelligence:
		s.SocialIntelligence = value
	case ScoreGoalAchievement:
		s.GoalAchievement = value
	case ScoreNovelty:
		s.Novelty = value
	}
}

// Individual pairs a genotype with its compiled phenotype and the fitness
// bookkeeping for one generation. Created at initialization or reproduction,
// scored during evaluation, consumed by selection, discarded afterwards.
type Individual struct {
	Genotype      Genotype
	Phenotype     Phenotype
	Scores        FitnessScores
	RawFitness    float64
	SharedFitness float64
	Degraded      bool
}

// EventType tags a transcript event.
type EventType string

const (
	EventPost  EventType = "post"
	EventReply EventType = "reply"
	EventPass  EventType = "pass"
)

// Event is one transcript entry. Posts carry content; replies additionally
// carry the target author and the content replied to; passes carry only the
// target author.
type Event struct {
	Type         EventType `json:"type"`
	Author       string    `json:"author"`
	TargetAuthor string    `json:"target_author,omitempty"`
	Content      string    `json:"content,omitempty"`
	ReplyTo      string    `json:"reply_to,omitempty"`
	Degraded     bool      `json:"degraded,omitempty"`
}

// Transcript is the ordered event log of one group episode.
type Transcript []Event

// AuthoredBy returns the post/reply contents written by name, in order.
func (t Transcript) AuthoredBy(name string) []string {
	var texts []string
	for _, e := range t {
		if e.Author == name && e.Type != EventPass {
			texts = append(texts, e.Content)
		}
	}
	return texts
}

// AgentStats is one population member's row in a generation stats record.
type AgentStats struct {
	Name                string  `json:"name"`
	Engagement          float64 `json:"engagement"`
	ConversationQuality float64 `json:"conversation_quality"`
	Diversity           float64 `json:"diversity"`
	PersonaFidelity     float64 `json:"persona_fidelity"`
	Safety              float64 `json:"safety"`
	RawFitness          float64 `json:"raw_fitness"`
	SharedFitness       float64 `json:"shared_fitness"`
	Degraded            bool    `json:"degraded,omitempty"`
}

// GenerationStats is one line of the append-only generation_stats.jsonl log.
type GenerationStats struct {
	Timestamp           time.Time    `json:"timestamp"`
	RunID               string       `json:"run_id,omitempty"`
	Generation          int          `json:"generation"`
	PopulationSize      int          `json:"population_size"`
	PopulationDiversity float64      `json:"population_diversity"`
	FitnessMean         float64      `json:"fitness_mean"`
	FitnessMax          float64      `json:"fitness_max"`
	FitnessMin          float64      `json:"fitness_min"`
	DegradedCalls       int          `json:"degraded_calls"`
	Agents              []AgentStats `json:"agents"`
}

// GenerationRecord bundles everything the store persists for one generation.
type GenerationRecord struct {
	Generation  int
	Population  []Genotype
	Transcripts []Transcript
	Stats       GenerationStats
}
