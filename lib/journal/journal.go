package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/after5cst/gracecam/lib/event"
	"github.com/after5cst/gracecam/lib/position"
)

// Journal is an append-only record of switching decisions. Nothing reads it
// back into orchestration state.
type Journal struct {
	db *sql.DB
}

func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS activations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trace_id TEXT NOT NULL,
		at INTEGER NOT NULL,
		target TEXT NOT NULL,
		action TEXT NOT NULL,
		before_json TEXT NOT NULL,
		after_json TEXT NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_activations_at ON activations(at);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create table: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Record(r event.Report) error {
	before, err := json.Marshal(r.Before)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	after, err := json.Marshal(r.After)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	_, err = j.db.Exec(
		`INSERT INTO activations (trace_id, at, target, action, before_json, after_json, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.TraceID, r.Time.UnixMilli(), r.Target.String(), string(r.Action), string(before), string(after), r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// Recent returns up to limit reports, newest first.
func (j *Journal) Recent(limit int) ([]event.Report, error) {
	rows, err := j.db.Query(
		`SELECT trace_id, at, target, action, before_json, after_json, duration_ms FROM activations ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []event.Report
	for rows.Next() {
		var (
			r              event.Report
			at, durationMS int64
			target, action string
			before, after  string
		)
		if err := rows.Scan(&r.TraceID, &at, &target, &action, &before, &after, &durationMS); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		r.Time = time.UnixMilli(at)
		r.Action = event.Action(action)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.Target = position.Unknown
		if p, err := position.Parse(target); err == nil {
			r.Target = p
		}
		if err := json.Unmarshal([]byte(before), &r.Before); err != nil {
			return nil, fmt.Errorf("journal: decode before: %w", err)
		}
		if err := json.Unmarshal([]byte(after), &r.After); err != nil {
			return nil, fmt.Errorf("journal: decode after: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
