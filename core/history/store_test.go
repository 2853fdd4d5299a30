package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/teamcast/core/model"
)

func sampleRecords(base time.Time) []Record {
	alice := model.Ref{ID: "a", Name: "Alice", Group: model.GroupTechnik}
	boss := model.Ref{ID: "b", Name: "Boss", Group: model.GroupManagement}
	carl := model.Ref{ID: "c", Name: "Carl", Group: model.GroupRezeption}
	return []Record{
		{
			ID: "r1", Timestamp: base, Sender: alice, Text: "hello",
			Target:     model.All(),
			Recipients: []model.Ref{alice, boss, carl}, Total: 3, Delivered: 3,
			Outcomes: []Outcome{{Recipient: alice, Delivered: true, Detail: json.RawMessage(`{"ok":true}`)}},
		},
		{
			ID: "r2", Timestamp: base.Add(time.Minute), Sender: model.Ref{Name: "System"}, Text: "tech",
			Target:     model.ByGroup(model.GroupTechnik),
			Recipients: []model.Ref{alice, boss}, Total: 2, Delivered: 1, Failed: 1,
		},
		{
			ID: "r3", Timestamp: base.Add(2 * time.Minute), Sender: boss, Text: "desk",
			Target:     model.ByGroup(model.GroupRezeption),
			Recipients: []model.Ref{carl, boss}, Total: 2, Delivered: 2,
		},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for _, r := range sampleRecords(base) {
		require.NoError(t, s.Append(ctx, r))
	}

	all, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r3", all[0].ID)
	assert.Equal(t, "r1", all[2].ID)
	assert.JSONEq(t, `{"ok":true}`, string(all[2].Outcomes[0].Detail))

	tech, err := s.Query(ctx, Query{Group: model.GroupTechnik})
	require.NoError(t, err)
	require.Len(t, tech, 1)
	assert.Equal(t, "r2", tech[0].ID)

	carl, err := s.Query(ctx, Query{ParticipantID: "c"})
	require.NoError(t, err)
	require.Len(t, carl, 2)
	assert.Equal(t, "r3", carl[0].ID)

	window, err := s.Query(ctx, Query{Start: base.Add(30 * time.Second), End: base.Add(90 * time.Second)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "r2", window[0].ID)

	limited, err := s.Query(ctx, Query{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "r2", limited[1].ID)
}

func TestJSONLStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist", "broadcasts.jsonl")
	s, err := NewJSONLStore(path, 1, 2, 0)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestJSONLStoreSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broadcasts.jsonl")
	s, err := NewJSONLStore(path, 0, 0, 0)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Append(context.Background(), Record{ID: "ok", Timestamp: time.Now()}))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	recs, err := s.Query(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "ok", recs[0].ID)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "broadcasts.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		backend string
		want    any
	}{
		{"jsonl", &JSONLStore{}},
		{"sqlite", &SQLiteStore{}},
		{"none", NopStore{}},
	}
	for _, tc := range cases {
		t.Run(tc.backend, func(t *testing.T) {
			cfg := Config{Backend: tc.backend, Path: filepath.Join(dir, tc.backend)}
			require.NoError(t, cfg.Validate())
			s, err := Open(cfg)
			require.NoError(t, err)
			assert.IsType(t, tc.want, s)
			assert.NoError(t, s.Close())
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, "jsonl", c.Backend)
	assert.Equal(t, "broadcasts.jsonl", c.Path)
	assert.Error(t, Config{Backend: "redis", Path: "x"}.Validate())
}
