package model

import "strings"

// Group is the team a participant belongs to. The set of groups is closed.
type Group string

const (
	GroupHousekeeping Group = "Housekeeping"
	GroupTechnik      Group = "Technik"
	GroupRezeption    Group = "Rezeption"
	GroupManagement   Group = "Geschäftsführung"
)

// OversightGroup is copied on every broadcast regardless of targeting.
const OversightGroup = GroupManagement

// Groups lists every group in declaration order. The first entry is the
// default for entries with a missing or unknown group.
var Groups = []Group{GroupHousekeeping, GroupTechnik, GroupRezeption, GroupManagement}

// DefaultGroup returns the first declared group.
func DefaultGroup() Group { return Groups[0] }

// Valid reports whether g is one of the declared groups.
func (g Group) Valid() bool {
	for _, v := range Groups {
		if v == g {
			return true
		}
	}
	return false
}

// IsOversight reports whether members of g are always copied.
func (g Group) IsOversight() bool { return g == OversightGroup }

func (g Group) String() string { return string(g) }

// ParseGroup matches s against the declared groups, ignoring case and
// surrounding whitespace.
func ParseGroup(s string) (Group, bool) {
	s = strings.TrimSpace(s)
	for _, g := range Groups {
		if strings.EqualFold(string(g), s) {
			return g, true
		}
	}
	return "", false
}

// SanitizeGroup returns s as a Group when it names a declared group exactly,
// and DefaultGroup otherwise. Case and whitespace variants are not matched.
func SanitizeGroup(s string) Group {
	if g := Group(s); g.Valid() {
		return g
	}
	return DefaultGroup()
}
