package storage

import (
	"database/sql"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const turnsSchema = `CREATE TABLE IF NOT EXISTS turns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_input TEXT NOT NULL,
	response   TEXT NOT NULL,
	timestamp  TEXT NOT NULL
)`

// SQLiteRecorder keeps the conversation log in a single-table SQLite file.
type SQLiteRecorder struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &IOError{Op: "init", Path: path, Err: fmt.Errorf("ensure db dir: %w", err)}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(turnsSchema); err != nil {
		_ = db.Close()
		return nil, &IOError{Op: "migrate", Path: path, Err: err}
	}
	return &SQLiteRecorder{path: path, db: db}, nil
}

func (r *SQLiteRecorder) Append(turn Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(`INSERT INTO turns (user_input, response, timestamp) VALUES (?, ?, ?)`,
		turn.UserInput, turn.Response, turn.FormattedTimestamp())
	if err != nil {
		return &IOError{Op: "append", Path: r.path, Err: err}
	}
	return nil
}

func (r *SQLiteRecorder) ReadAll() iter.Seq2[Turn, error] {
	return func(yield func(Turn, error) bool) {
		rows, err := r.db.Query(`SELECT user_input, response, timestamp FROM turns ORDER BY id`)
		if err != nil {
			yield(Turn{}, &IOError{Op: "read", Path: r.path, Err: err})
			return
		}
		defer rows.Close()
		for rows.Next() {
			var t Turn
			var ts string
			if err := rows.Scan(&t.UserInput, &t.Response, &ts); err != nil {
				yield(Turn{}, &IOError{Op: "scan", Path: r.path, Err: err})
				return
			}
			t.Timestamp, err = time.ParseInLocation(TimestampLayout, ts, time.Local)
			if err != nil {
				yield(Turn{}, &IOError{Op: "parse timestamp", Path: r.path, Err: err})
				return
			}
			if !yield(t, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Turn{}, &IOError{Op: "read", Path: r.path, Err: err})
		}
	}
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
