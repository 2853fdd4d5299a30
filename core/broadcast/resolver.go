package broadcast

import (
	"strings"

	"github.com/samber/lo"

	"github.com/kilianp07/teamcast/core/model"
)

// ResolveMode distinguishes real dispatches from UI previews.
type ResolveMode int

const (
	// ModeDispatch drops entries without a phone number and keys on IDs.
	ModeDispatch ResolveMode = iota
	// ModePreview keeps entries without a phone number and keys on names so
	// independently entered records of the same person show up once.
	ModePreview
)

// Resolve computes the recipients of a broadcast: the base audience selected
// by spec, followed by every oversight group member, deduplicated with the
// first occurrence winning. participants is never modified.
func Resolve(participants []model.Participant, spec model.TargetSpec, mode ResolveMode) []model.Participant {
	base := lo.Filter(participants, func(p model.Participant, _ int) bool { return spec.Matches(p) })
	oversight := lo.Filter(participants, func(p model.Participant, _ int) bool { return p.Group.IsOversight() })

	set := newOrderedSet(len(base) + len(oversight))
	for _, p := range append(base, oversight...) {
		if !p.HasName() {
			continue
		}
		if mode == ModeDispatch && p.Phone == "" {
			continue
		}
		set.add(identityKey(p, mode), p)
	}
	return set.values()
}

func identityKey(p model.Participant, mode ResolveMode) string {
	if mode == ModePreview || p.ID == "" {
		return "name:" + strings.TrimSpace(p.Name)
	}
	return "id:" + p.ID
}

// orderedSet keeps insertion order and ignores keys it has already seen.
type orderedSet struct {
	index map[string]int
	items []model.Participant
}

func newOrderedSet(capacity int) *orderedSet {
	return &orderedSet{index: make(map[string]int, capacity), items: make([]model.Participant, 0, capacity)}
}

// add inserts p under key unless key is present and reports whether it did.
func (s *orderedSet) add(key string, p model.Participant) bool {
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, p)
	return true
}

func (s *orderedSet) values() []model.Participant { return s.items }
