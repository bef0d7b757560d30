package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// TurnLogEntry is one finished turn as recorded in the durable turn log.
type TurnLogEntry struct {
	TurnID    string
	SessionID string
	Handle    string
	Prompt    string
	FinalText string
	Status    string
	StartedAt time.Time
	EndedAt   time.Time
}

// TurnLog is a sqlite-backed append log of every turn across all sessions.
// Transcripts hold the per-session view; the log is the flat audit trail.
type TurnLog struct {
	db *sql.DB
}

func NewTurnLog(dataDir string) (*TurnLog, error) {
	dbPath := filepath.Join(dataDir, "turns.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log := &TurnLog{db: db}

	if err := log.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return log, nil
}

func (tl *TurnLog) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		turn_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		handle TEXT,
		prompt TEXT NOT NULL,
		final_text TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
	`

	_, err := tl.db.Exec(schema)
	if err != nil {
		return err
	}

	// Migration: the handle column was added after the initial schema
	if err := tl.migrateSchema(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	return nil
}

// migrateSchema adds missing columns to existing databases
func (tl *TurnLog) migrateSchema() error {
	hasHandle, err := tl.columnExists("turns", "handle")
	if err != nil {
		return fmt.Errorf("failed to check for handle column: %w", err)
	}

	switch {
	case !hasHandle:
		_, err := tl.db.Exec(`ALTER TABLE turns ADD COLUMN handle TEXT DEFAULT ''`)
		if err != nil {
			return fmt.Errorf("failed to add handle column: %w", err)
		}
	}

	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info
func (tl *TurnLog) columnExists(tableName, columnName string) (bool, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", tableName)
	rows, err := tl.db.Query(query)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var dataType string
		var notNull int
		var defaultValue interface{}
		var pk int

		err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk)
		if err != nil {
			return false, err
		}

		switch {
		case name == columnName:
			return true, nil
		}
	}

	return false, rows.Err()
}

// Record appends one turn to the log. Re-recording the same turn id
// replaces the earlier row.
func (tl *TurnLog) Record(entry TurnLogEntry) error {
	query := `
	INSERT OR REPLACE INTO turns (turn_id, session_id, handle, prompt, final_text, status, started_at, ended_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tl.db.Exec(query,
		entry.TurnID,
		entry.SessionID,
		entry.Handle,
		entry.Prompt,
		entry.FinalText,
		entry.Status,
		entry.StartedAt,
		entry.EndedAt,
	)

	return err
}

// Load returns one turn by id, nil when absent.
func (tl *TurnLog) Load(turnID string) (*TurnLogEntry, error) {
	query := `
	SELECT turn_id, session_id, handle, prompt, final_text, status, started_at, ended_at
	FROM turns
	WHERE turn_id = ?
	`

	var entry TurnLogEntry
	err := tl.db.QueryRow(query, turnID).Scan(
		&entry.TurnID,
		&entry.SessionID,
		&entry.Handle,
		&entry.Prompt,
		&entry.FinalText,
		&entry.Status,
		&entry.StartedAt,
		&entry.EndedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// SessionTurns returns all turns for a session, oldest first.
func (tl *TurnLog) SessionTurns(sessionID string) ([]TurnLogEntry, error) {
	query := `
	SELECT turn_id, session_id, handle, prompt, final_text, status, started_at, ended_at
	FROM turns
	WHERE session_id = ?
	ORDER BY started_at ASC
	`

	return tl.queryTurns(query, sessionID)
}

// RecentTurns returns the most recent turns across all sessions.
func (tl *TurnLog) RecentTurns(limit int) ([]TurnLogEntry, error) {
	query := `
	SELECT turn_id, session_id, handle, prompt, final_text, status, started_at, ended_at
	FROM turns
	ORDER BY started_at DESC
	LIMIT ?
	`

	return tl.queryTurns(query, limit)
}

func (tl *TurnLog) queryTurns(query string, args ...interface{}) ([]TurnLogEntry, error) {
	rows, err := tl.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []TurnLogEntry
	for rows.Next() {
		var entry TurnLogEntry
		err := rows.Scan(
			&entry.TurnID,
			&entry.SessionID,
			&entry.Handle,
			&entry.Prompt,
			&entry.FinalText,
			&entry.Status,
			&entry.StartedAt,
			&entry.EndedAt,
		)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// DeleteSession removes every logged turn for a session.
func (tl *TurnLog) DeleteSession(sessionID string) error {
	query := `DELETE FROM turns WHERE session_id = ?`
	_, err := tl.db.Exec(query, sessionID)
	return err
}

func (tl *TurnLog) Close() error {
	if tl.db != nil {
		return tl.db.Close()
	}
	return nil
}
