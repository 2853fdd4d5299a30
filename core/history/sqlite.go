package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS broadcasts (
        id TEXT PRIMARY KEY,
        ts INTEGER NOT NULL,
        target_group TEXT,
        record TEXT NOT NULL
    );
    CREATE TABLE IF NOT EXISTS broadcast_participants (
        broadcast_id TEXT NOT NULL REFERENCES broadcasts(id),
        participant_id TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_broadcasts_ts ON broadcasts(ts);
    CREATE INDEX IF NOT EXISTS idx_participants ON broadcast_participants(participant_id);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the record and its participant index in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	var group any
	if rec.Target.Group != "" {
		group = string(rec.Target.Group)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO broadcasts (id, ts, target_group, record) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixNano(), group, string(b)); err != nil {
		return err
	}
	ids := map[string]struct{}{}
	if rec.Sender.ID != "" {
		ids[rec.Sender.ID] = struct{}{}
	}
	for _, r := range rec.Recipients {
		ids[r.ID] = struct{}{}
	}
	for id := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO broadcast_participants (broadcast_id, participant_id) VALUES (?, ?)`, rec.ID, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Query returns records matching q, newest first.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var args []any
	query := `SELECT record FROM broadcasts WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.Group != "" {
		query += ` AND target_group = ?`
		args = append(args, string(q.Group))
	}
	if q.ParticipantID != "" {
		query += ` AND id IN (SELECT broadcast_id FROM broadcast_participants WHERE participant_id = ?)`
		args = append(args, q.ParticipantID)
	}
	query += ` ORDER BY ts DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
