// Package db persists the watchdog's audit trail: recovery events,
// control actions issued through the dashboard, and service lifecycle
// events.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection and provides the event-log methods.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the SQLite database at the specified path.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency between the watchdog loop and
	// dashboard request handlers.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn != nil {
		db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return db.conn.Close()
	}
	return nil
}

func (db *DB) initSchema() error {
	schema := `
	-- Automatic recovery attempts made by the watchdog
	CREATE TABLE IF NOT EXISTS recovery_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reason TEXT NOT NULL,
		details TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Control actions issued through the dashboard
	CREATE TABLE IF NOT EXISTS control_actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		success INTEGER NOT NULL,
		remote_addr TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Watchdog service lifecycle events
	CREATE TABLE IF NOT EXISTS service_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		details TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_recovery_events_timestamp ON recovery_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_control_actions_timestamp ON control_actions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_service_events_timestamp ON service_events(timestamp);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// RecoveryEvent is one automatic recovery attempt.
type RecoveryEvent struct {
	ID        int64     `json:"id"`
	Reason    string    `json:"reason"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// LogRecovery records a recovery attempt. Retries briefly when the
// database is locked; the watchdog must never block on its audit trail.
func (db *DB) LogRecovery(reason, details string) error {
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		_, err := db.conn.Exec(
			`INSERT INTO recovery_events (reason, details, timestamp)
			 VALUES (?, ?, ?)`,
			reason, details, time.Now(),
		)
		if err == nil {
			return nil
		}
		if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "SQLITE_BUSY") {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		return err
	}
	return fmt.Errorf("failed to log recovery event after %d retries: database locked", maxRetries)
}

// ControlAction is one operator-issued gateway control request.
type ControlAction struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"`
	Success    bool      `json:"success"`
	RemoteAddr string    `json:"remote_addr"`
	Timestamp  time.Time `json:"timestamp"`
}

// LogControlAction records a control action issued through the dashboard.
func (db *DB) LogControlAction(action string, success bool, remoteAddr string) error {
	_, err := db.conn.Exec(
		`INSERT INTO control_actions (action, success, remote_addr, timestamp)
		 VALUES (?, ?, ?, ?)`,
		action, success, remoteAddr, time.Now(),
	)
	return err
}

// LogServiceEvent records a watchdog lifecycle event.
func (db *DB) LogServiceEvent(eventType, details string) error {
	_, err := db.conn.Exec(
		`INSERT INTO service_events (event_type, details, timestamp)
		 VALUES (?, ?, ?)`,
		eventType, details, time.Now(),
	)
	return err
}

// RecentRecoveries retrieves recent recovery events, newest first.
func (db *DB) RecentRecoveries(limit int) ([]RecoveryEvent, error) {
	rows, err := db.conn.Query(
		`SELECT id, reason, details, timestamp
		 FROM recovery_events
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []RecoveryEvent{}
	for rows.Next() {
		var e RecoveryEvent
		if err := rows.Scan(&e.ID, &e.Reason, &e.Details, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RecentControlActions retrieves recent control actions, newest first.
func (db *DB) RecentControlActions(limit int) ([]ControlAction, error) {
	rows, err := db.conn.Query(
		`SELECT id, action, success, remote_addr, timestamp
		 FROM control_actions
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := []ControlAction{}
	for rows.Next() {
		var a ControlAction
		if err := rows.Scan(&a.ID, &a.Action, &a.Success, &a.RemoteAddr, &a.Timestamp); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
