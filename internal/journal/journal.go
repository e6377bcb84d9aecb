// Package journal keeps an append-only SQLite record of relay
// transitions. The journal is history for humans; the engine never reads
// it to make decisions, so a broken journal degrades to a warning, not a
// failed operation.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded transition.
type Entry struct {
	ID        int64
	Timestamp time.Time
	On        bool
	Operation string
	// Battery is the charge level the decision used, when it used one.
	Battery *float64
}

// Journal appends and reads transition entries.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at dbPath.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		relay_on INTEGER NOT NULL,
		operation TEXT NOT NULL,
		battery REAL
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_timestamp ON transitions(timestamp);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends one transition.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	relay := 0
	if e.On {
		relay = 1
	}

	_, err := j.db.ExecContext(ctx,
		"INSERT INTO transitions (timestamp, relay_on, operation, battery) VALUES (?, ?, ?, ?)",
		e.Timestamp.Unix(), relay, e.Operation, e.Battery,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// Recent returns up to n transitions, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, timestamp, relay_on, operation, battery FROM transitions ORDER BY id DESC LIMIT ?",
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			ts      int64
			relay   int
			battery sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &ts, &relay, &e.Operation, &battery); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}

		e.Timestamp = time.Unix(ts, 0)
		e.On = relay == 1
		if battery.Valid {
			v := battery.Float64
			e.Battery = &v
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
