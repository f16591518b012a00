package model

import "fmt"

// TypeConfig describes the decay and recall behavior of a canonical memory type.
type TypeConfig struct {
	DecayMultiplier float64 // scales the base half-life
	ImportanceBoost float64 // descriptive only, not applied by the composite score
	RecallPriority  float64 // descriptive only
	Label           string
}

// TypeConfigs holds the five canonical memory types.
var TypeConfigs = map[string]TypeConfig{
	"episodic": {
		DecayMultiplier: 1.0,
		ImportanceBoost: 1.0,
		RecallPriority:  0.5,
		Label:           "Episodic",
	},
	"fact": {
		DecayMultiplier: 1.0,
		ImportanceBoost: 1.2,
		RecallPriority:  0.7,
		Label:           "Fact",
	},
	"preference": {
		DecayMultiplier: 3.0,
		ImportanceBoost: 1.2,
		RecallPriority:  0.7,
		Label:           "Preference",
	},
	"procedure": {
		DecayMultiplier: 3.0,
		ImportanceBoost: 1.3,
		RecallPriority:  0.75,
		Label:           "Procedure",
	},
	"mistake": {
		DecayMultiplier: 10.0,
		ImportanceBoost: 2.0,
		RecallPriority:  1.0,
		Label:           "Mistake",
	},
}

// DefaultType is used when an entry carries no memory_type.
const DefaultType = "episodic"

// GetTypeConfig returns the config for memoryType, falling back to episodic
// defaults for unrecognized custom types.
func GetTypeConfig(memoryType string) TypeConfig {
	if cfg, ok := TypeConfigs[memoryType]; ok {
		return cfg
	}
	base := TypeConfigs[DefaultType]
	base.Label = memoryType
	return base
}

// DecayMultiplier returns the half-life multiplier for memoryType.
func DecayMultiplier(memoryType string) float64 {
	return GetTypeConfig(memoryType).DecayMultiplier
}

// FormatMistakeContent renders a structured mistake record as a single
// content string for ingest.
func FormatMistakeContent(whatHappened, correction, rootCause, severity string) string {
	if severity == "" {
		severity = "medium"
	}
	s := fmt.Sprintf("MISTAKE: %s | CORRECTION: %s", whatHappened, correction)
	if rootCause != "" {
		s += fmt.Sprintf(" | ROOT CAUSE: %s", rootCause)
	}
	s += fmt.Sprintf(" | SEVERITY: %s", severity)
	return s
}
