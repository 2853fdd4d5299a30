// Package roster holds the bounded, ordered list of people a broadcast can
// reach.
package roster

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kilianp07/teamcast/core/model"
)

// MaxSize is the hard capacity of a roster.
const MaxSize = 49

// Roster is an ordered collection of participants with unique IDs. It is safe
// for concurrent use; resolution works on Snapshot copies.
type Roster struct {
	mu      sync.RWMutex
	entries []model.Participant
}

// New returns an empty roster.
func New() *Roster { return &Roster{} }

// FromParticipants builds a roster through ReplaceAll.
func FromParticipants(entries []model.Participant) *Roster {
	r := New()
	r.ReplaceAll(entries)
	return r
}

// Len returns the number of entries.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Remaining returns the number of free slots.
func (r *Roster) Remaining() int { return MaxSize - r.Len() }

// Add appends p after sanitizing it. A missing ID is replaced with a fresh
// UUID. The stored participant is returned.
func (r *Roster) Add(p model.Participant) (model.Participant, error) {
	p = p.Sanitize()
	if p.Name == "" {
		return model.Participant{}, model.NewValidationError(model.ReasonEmptyName, "participant name is empty")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) >= MaxSize {
		return model.Participant{}, &model.CapacityError{Max: MaxSize}
	}
	if r.indexLocked(p.ID) >= 0 {
		return model.Participant{}, model.NewValidationError(model.ReasonDuplicateID, fmt.Sprintf("participant %s already exists", p.ID))
	}
	r.entries = append(r.entries, p)
	return p, nil
}

// Remove deletes the entry with the given ID. Unknown IDs are ignored.
func (r *Roster) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(strings.TrimSpace(id))
	if i < 0 {
		return false
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	return true
}

// ReplaceAll swaps the whole roster. Entries are sanitized, nameless entries
// and repeated IDs are dropped, and the result is truncated to MaxSize. It
// returns the number of entries kept.
func (r *Roster) ReplaceAll(entries []model.Participant) int {
	out := Sanitize(entries)
	r.mu.Lock()
	r.entries = out
	r.mu.Unlock()
	return len(out)
}

// Clear removes every entry.
func (r *Roster) Clear() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

// Get returns the participant with the given ID.
func (r *Roster) Get(id string) (model.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexLocked(id)
	if i < 0 {
		return model.Participant{}, false
	}
	return r.entries[i], true
}

// Snapshot returns a copy of the entries in insertion order.
func (r *Roster) Snapshot() []model.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Participant, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Roster) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, p := range r.entries {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Sanitize applies the ingest rules of ReplaceAll without touching a roster.
func Sanitize(entries []model.Participant) []model.Participant {
	out := make([]model.Participant, 0, min(len(entries), MaxSize))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if len(out) == MaxSize {
			break
		}
		p := e.Sanitize()
		if p.Name == "" {
			continue
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Clean sanitizes a request snapshot without turning it into a roster: fields
// are normalized and nameless entries dropped, but IDs are kept as given so
// entries without an ID can still be matched by name.
func Clean(entries []model.Participant) []model.Participant {
	out := make([]model.Participant, 0, len(entries))
	for _, e := range entries {
		if p := e.Sanitize(); p.Name != "" {
			out = append(out, p)
		}
	}
	return out
}
