package model

import (
	"strings"
	"unicode"
)

// Participant is one person on the roster.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group Group  `json:"group"`
	// Phone holds the canonical digits-only form, e.g. "491701234567".
	Phone string `json:"phone,omitempty"`
}

// Ref is the public view of a participant used in reports and logs.
type Ref struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group Group  `json:"group"`
}

// Ref strips the phone number.
func (p Participant) Ref() Ref { return Ref{ID: p.ID, Name: p.Name, Group: p.Group} }

// HasName reports whether the trimmed name is non-empty.
func (p Participant) HasName() bool { return strings.TrimSpace(p.Name) != "" }

// Reachable reports whether the participant can be dispatched to.
func (p Participant) Reachable() bool { return p.HasName() && p.Phone != "" }

// Sanitize trims the name, normalizes the phone number and replaces unknown
// groups with the default group.
func (p Participant) Sanitize() Participant {
	return Participant{
		ID:    strings.TrimSpace(p.ID),
		Name:  strings.TrimSpace(p.Name),
		Group: SanitizeGroup(string(p.Group)),
		Phone: NormalizePhone(p.Phone),
	}
}

// NormalizePhone keeps the digits of num and drops everything else, yielding
// E.164 digits without the leading '+'.
func NormalizePhone(num string) string {
	var b strings.Builder
	b.Grow(len(num))
	for _, r := range num {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
