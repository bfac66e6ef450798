// Package skillcompat implements C2: the skill-compatibility table.
//
// It learns, from historical dispatches, how well a technician's primary
// skill serves a required skill — not just "exact match or not" but a
// graded [0,1] score backed by the pair's historical success rate. The
// statistics-gathering shape (a map keyed by a coarsened pair key, updated
// with running counts) follows the same arm-statistics table shape used to
// track per-{task-type, node} outcomes, generalized here to
// {required-skill, tech-skill} pairs.
package skillcompat

import (
	"math"
	"sync"

	"github.com/fieldforce/dispatchopt/internal/domain"
)

// pairStats tracks running success statistics for one (required, tech) pair.
type pairStats struct {
	n        int // sample count
	productive int
}

func (p *pairStats) successRate() float64 {
	if p.n == 0 {
		return 0
	}
	return float64(p.productive) / float64(p.n)
}

type pairKey struct {
	required string
	tech     string
}

// Table is the learned skill-compatibility table (C2).
type Table struct {
	mu       sync.RWMutex
	pairs    map[pairKey]*pairStats
	baseline float64 // mean success rate of exact-match pairs, or 0.5
	meanNonExactScore float64
	trained  bool
}

// New returns an untrained table (inference falls back to the conservative
// defaults of spec.md §4.2 until Learn is called).
func New() *Table {
	return &Table{pairs: make(map[pairKey]*pairStats), baseline: 0.5}
}

// Learn trains the table from historical dispatches.
func (t *Table) Learn(history []domain.HistoricalDispatch) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pairs = make(map[pairKey]*pairStats)
	for _, h := range history {
		if h.RequiredSkill == "" || h.TechnicianPrimarySkillAtTime == "" {
			continue
		}
		k := pairKey{required: h.RequiredSkill, tech: h.TechnicianPrimarySkillAtTime}
		ps, ok := t.pairs[k]
		if !ok {
			ps = &pairStats{}
			t.pairs[k] = ps
		}
		ps.n++
		if h.Productive {
			ps.productive++
		}
	}

	// Baseline: mean success rate of exact-match pairs (req == tech).
	var exactSum float64
	var exactCount int
	for k, ps := range t.pairs {
		if k.required == k.tech && ps.n > 0 {
			exactSum += ps.successRate()
			exactCount++
		}
	}
	if exactCount > 0 {
		t.baseline = exactSum / float64(exactCount)
	} else {
		t.baseline = 0.5
	}

	// Mean of learned non-exact scores, used as the unknown-pair fallback.
	var nonExactSum float64
	var nonExactCount int
	for k, ps := range t.pairs {
		if k.required == k.tech {
			continue
		}
		s := t.scoreLocked(k.required, k.tech, ps)
		nonExactSum += s
		nonExactCount++
	}
	if nonExactCount > 0 {
		t.meanNonExactScore = domain.Clip(nonExactSum/float64(nonExactCount), 0.2, 0.6)
	} else {
		t.meanNonExactScore = 0.4
	}

	t.trained = true
}

// scoreLocked computes the score for a known pair. Must hold t.mu.
func (t *Table) scoreLocked(required, tech string, ps *pairStats) float64 {
	if required == tech {
		return 1.0
	}
	if ps.n < 3 {
		return 0.3
	}
	baseline := t.baseline
	if baseline <= 0 {
		baseline = 0.5
	}
	return domain.Clip(0.3+0.7*ps.successRate()/baseline, 0.1, 0.95)
}

// Score implements domain.SkillScorer: score(req, tech) ∈ [0,1].
//
// Lookup order: (req,tech) exact entry, then (tech,req) (recording order
// tolerance), then the mean of all learned non-exact scores clipped to
// [0.2,0.6]. Missing inputs → 0.3.
func (t *Table) Score(requiredSkill, techSkill string) float64 {
	if requiredSkill == "" || techSkill == "" {
		return 0.3
	}
	if requiredSkill == techSkill {
		return 1.0
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if ps, ok := t.pairs[pairKey{required: requiredSkill, tech: techSkill}]; ok {
		return t.scoreLocked(requiredSkill, techSkill, ps)
	}
	if ps, ok := t.pairs[pairKey{required: techSkill, tech: requiredSkill}]; ok {
		return t.scoreLocked(techSkill, requiredSkill, ps)
	}
	if t.trained {
		return t.meanNonExactScore
	}
	return 0.3
}

// Baseline returns the mean success rate of exact-match pairs, for
// internal/infra/modelstore persistence (LoadEntries needs it back).
func (t *Table) Baseline() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.baseline
}

// Entries returns a snapshot of every learned pair, for diagnostics/export
// and for internal/infra/modelstore persistence.
func (t *Table) Entries() []domain.SkillCompatEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.SkillCompatEntry, 0, len(t.pairs))
	for k, ps := range t.pairs {
		out = append(out, domain.SkillCompatEntry{
			RequiredSkill: k.required,
			TechSkill:     k.tech,
			Score:         t.scoreLocked(k.required, k.tech, ps),
			SuccessRate:   ps.successRate(),
			SampleCount:   ps.n,
		})
	}
	return out
}

// LoadEntries restores a previously learned table (e.g. from
// internal/infra/modelstore) without retraining from raw history.
func LoadEntries(entries []domain.SkillCompatEntry, baseline float64) *Table {
	t := New()
	t.baseline = baseline
	for _, e := range entries {
		t.pairs[pairKey{required: e.RequiredSkill, tech: e.TechSkill}] = &pairStats{
			n:          e.SampleCount,
			productive: int(math.Round(e.SuccessRate * float64(e.SampleCount))),
		}
	}
	var sum float64
	var count int
	for k, ps := range t.pairs {
		if k.required == k.tech {
			continue
		}
		sum += t.scoreLocked(k.required, k.tech, ps)
		count++
	}
	if count > 0 {
		t.meanNonExactScore = domain.Clip(sum/float64(count), 0.2, 0.6)
	} else {
		t.meanNonExactScore = 0.4
	}
	t.trained = true
	return t
}
