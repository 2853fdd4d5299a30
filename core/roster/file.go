package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kilianp07/teamcast/core/model"
)

// Load reads a roster from a JSON array file. A missing file yields an empty
// roster.
func Load(path string) (*Roster, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var entries []model.Participant
	if err := json.NewDecoder(f).Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode roster %s: %w", path, err)
	}
	return FromParticipants(entries), nil
}

// Save writes the roster to path atomically.
func (r *Roster) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".roster-*.json")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := r.Export(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Export writes the entries as indented JSON.
func (r *Roster) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Snapshot())
}

// Import replaces the roster with the entries read from rd. Imported entries
// always get fresh IDs. Anything that is not a JSON array leaves the roster
// untouched.
func (r *Roster) Import(rd io.Reader) (int, error) {
	var raw []struct {
		Name  string `json:"name"`
		Group string `json:"group"`
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(rd).Decode(&raw); err != nil {
		return 0, fmt.Errorf("invalid roster file: %w", err)
	}
	entries := make([]model.Participant, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, model.Participant{Name: e.Name, Group: model.Group(e.Group), Phone: e.Phone})
	}
	return r.ReplaceAll(entries), nil
}
