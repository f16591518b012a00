// Package decay implements the pure time/importance/access scoring used
// by both the search engine and compact() to identify archive candidates.
package decay

import (
	"math"
	"time"

	"github.com/foundryforge/agentmem/internal/model"
)

// DefaultHalfLifeDays is the base half-life before the per-type multiplier.
const DefaultHalfLifeDays = 7.0

// DefaultArchiveThreshold is the decay value below which compact() proposes
// archiving an entry.
const DefaultArchiveThreshold = 0.05

// MaxReinforcedAccesses caps the access-count contribution to reinforcement.
const MaxReinforcedAccesses = 50

// Engine computes decay, reinforcement, and archive candidacy. It holds no
// mutable state; all methods are pure functions of their arguments.
type Engine struct {
	HalfLifeDays float64
}

// New returns an Engine with the given base half-life in days.
func New(halfLifeDays float64) *Engine {
	if halfLifeDays <= 0 {
		halfLifeDays = DefaultHalfLifeDays
	}
	return &Engine{HalfLifeDays: halfLifeDays}
}

// EffectiveHalfLife returns the type-adjusted half-life for an entry.
func (e *Engine) EffectiveHalfLife(memoryType string) float64 {
	return e.HalfLifeDays * model.DecayMultiplier(memoryType)
}

// Score returns decay(d) = 2^(-age_days / half_life_effective) as of now.
func (e *Engine) Score(entry *model.Entry, now time.Time) float64 {
	ageDays := now.Sub(entry.Created).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	halfLife := e.EffectiveHalfLife(entry.MemoryType)
	return math.Pow(2, -ageDays/halfLife)
}

// Reinforce returns 1 + min(access_count, 50) * 0.01.
func Reinforce(accessCount int) float64 {
	n := accessCount
	if n > MaxReinforcedAccesses {
		n = MaxReinforcedAccesses
	}
	return 1 + float64(n)*0.01
}

// ShouldArchive reports whether entry's decay score is below threshold.
// threshold <= 0 selects DefaultArchiveThreshold.
func (e *Engine) ShouldArchive(entry *model.Entry, now time.Time, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultArchiveThreshold
	}
	return e.Score(entry, now) < threshold
}
