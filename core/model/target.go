package model

import (
	"fmt"
	"strings"
)

// TargetMode selects the audience of a broadcast.
type TargetMode int

const (
	TargetAll TargetMode = iota
	TargetGroup
)

// String returns the wire name of the mode.
func (m TargetMode) String() string {
	switch m {
	case TargetAll:
		return "ALL"
	case TargetGroup:
		return "BY_GROUP"
	default:
		return "unknown"
	}
}

// ParseTargetMode accepts the wire names plus the legacy "Alle"/"Gruppe"
// aliases. An empty string means ALL.
func ParseTargetMode(s string) (TargetMode, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ALL", "ALLE":
		return TargetAll, true
	case "BY_GROUP", "GROUP", "GRUPPE":
		return TargetGroup, true
	default:
		return 0, false
	}
}

// TargetSpec is the caller's audience selection. Group is set iff Mode is
// TargetGroup.
type TargetSpec struct {
	Mode  TargetMode `json:"mode"`
	Group Group      `json:"group,omitempty"`
}

// All targets every roster entry.
func All() TargetSpec { return TargetSpec{Mode: TargetAll} }

// ByGroup targets the members of g.
func ByGroup(g Group) TargetSpec { return TargetSpec{Mode: TargetGroup, Group: g} }

// Validate checks that the group is present iff the mode requires it.
func (t TargetSpec) Validate() error {
	switch t.Mode {
	case TargetAll:
		if t.Group != "" {
			return NewValidationError(ReasonInvalidTarget, "group must be empty when targeting all")
		}
	case TargetGroup:
		if !t.Group.Valid() {
			return NewValidationError(ReasonInvalidTarget, fmt.Sprintf("unknown group %q", t.Group))
		}
	default:
		return NewValidationError(ReasonInvalidTarget, fmt.Sprintf("unknown target mode %d", t.Mode))
	}
	return nil
}

// Matches reports whether p belongs to the base audience of t.
func (t TargetSpec) Matches(p Participant) bool {
	if t.Mode == TargetAll {
		return true
	}
	return p.Group == t.Group
}

func (t TargetSpec) String() string {
	if t.Mode == TargetGroup {
		return t.Mode.String() + ":" + string(t.Group)
	}
	return t.Mode.String()
}

// MarshalText encodes the mode by its wire name.
func (m TargetMode) MarshalText() ([]byte, error) {
	if m != TargetAll && m != TargetGroup {
		return nil, fmt.Errorf("unknown target mode %d", m)
	}
	return []byte(m.String()), nil
}

// UnmarshalText accepts the names understood by ParseTargetMode.
func (m *TargetMode) UnmarshalText(b []byte) error {
	v, ok := ParseTargetMode(string(b))
	if !ok {
		return fmt.Errorf("unknown target mode %q", string(b))
	}
	*m = v
	return nil
}
