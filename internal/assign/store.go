// Package assign owns the engine's only mutable state: which technician
// serves which dispatch, and each technician's running assignment count.
//
// Everything else in the engine (candidate filtering, scoring, prediction)
// is a pure function of (Dispatch, Technician, RunContext, a read-only
// snapshot of this store). The greedy loop and post-optimizer are the only
// callers permitted to mutate it, and only through the transactional
// methods below — a single owner exposing only transactional methods.
package assign

import (
	"sync"

	"github.com/fieldforce/dispatchopt/internal/domain"
)

// Store holds the active assignment table and per-technician counters for
// one run. Not safe for concurrent mutation from more than one goroutine —
// the greedy loop is explicitly single-writer (spec §5); the mutex here
// guards only against concurrent reads during candidate fan-out.
type Store struct {
	mu sync.RWMutex

	technicians map[string]*domain.Technician // pointer so CurrentAssignments mutates in place
	active      map[string]domain.Assignment  // dispatchID -> active assignment
	byTech      map[string][]string           // technicianID -> active dispatchIDs, for overlap/concurrency checks
}

// NewStore seeds the store with the technician pool. Technicians are
// copied so the store, not the caller, owns CurrentAssignments for the
// duration of the run.
func NewStore(technicians []domain.Technician) *Store {
	s := &Store{
		technicians: make(map[string]*domain.Technician, len(technicians)),
		active:      make(map[string]domain.Assignment),
		byTech:      make(map[string][]string),
	}
	for i := range technicians {
		t := technicians[i]
		s.technicians[t.TechnicianID] = &t
	}
	return s
}

// Technician returns a snapshot (value copy) of a technician's current
// state, or ErrTechnicianNotFound.
func (s *Store) Technician(technicianID string) (domain.Technician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.technicians[technicianID]
	if !ok {
		return domain.Technician{}, domain.ErrTechnicianNotFound
	}
	return *t, nil
}

// Technicians returns a snapshot of every technician's current state, in
// map-iteration order is not guaranteed; callers that need determinism
// should sort by TechnicianID.
func (s *Store) Technicians() []domain.Technician {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Technician, 0, len(s.technicians))
	for _, t := range s.technicians {
		out = append(out, *t)
	}
	return out
}

// ActiveAssignmentsFor returns the active assignments currently held by a
// technician — the read-only snapshot candidate filtering consults for
// overlap and concurrency checks.
func (s *Store) ActiveAssignmentsFor(technicianID string) []domain.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byTech[technicianID]
	out := make([]domain.Assignment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.active[id])
	}
	return out
}

// Assignment returns the active assignment for a dispatch, if any.
func (s *Store) Assignment(dispatchID string) (domain.Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.active[dispatchID]
	return a, ok
}

// All returns every active assignment, for diagnostics/export.
func (s *Store) All() []domain.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Assignment, 0, len(s.active))
	for _, a := range s.active {
		out = append(out, a)
	}
	return out
}

// TryAssign commits a new assignment: records it and increments the
// technician's CurrentAssignments. Replaces (not stacks) any prior active
// assignment for the same dispatch — §3 says Assignment rows "may be
// replaced (not split) during post-optimization".
func (s *Store) TryAssign(a domain.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.technicians[a.TechnicianID]
	if !ok {
		return domain.ErrTechnicianNotFound
	}

	if prior, exists := s.active[a.DispatchID]; exists {
		s.removeLocked(prior)
	}

	t.CurrentAssignments++
	s.active[a.DispatchID] = a
	s.byTech[a.TechnicianID] = append(s.byTech[a.TechnicianID], a.DispatchID)
	return nil
}

// Unassign removes the active assignment for a dispatch, decrementing the
// technician's counter. Returns ErrDispatchNotAssigned if there is none.
func (s *Store) Unassign(dispatchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.active[dispatchID]
	if !ok {
		return domain.ErrDispatchNotAssigned
	}
	s.removeLocked(a)
	return nil
}

// removeLocked deletes the bookkeeping for an active assignment and
// decrements its technician's counter. Caller must hold s.mu.
func (s *Store) removeLocked(a domain.Assignment) {
	delete(s.active, a.DispatchID)
	if t, ok := s.technicians[a.TechnicianID]; ok && t.CurrentAssignments > 0 {
		t.CurrentAssignments--
	}
	ids := s.byTech[a.TechnicianID]
	for i, id := range ids {
		if id == a.DispatchID {
			s.byTech[a.TechnicianID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

// ActiveCount returns the total number of active assignments — used to
// check invariant #3 (sum of counter deltas equals emitted assignments).
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}
