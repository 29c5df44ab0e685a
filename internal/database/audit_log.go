// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hive-dispatch/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"` // SUBMIT, PROCESS, FAIL or INTERRUPT
	Queue     string    `json:"queue"`
	Details   string    `json:"details"`
}

// Open opens the SQLite database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return db, nil
}

// AuditLogStore manages audit logs
type AuditLogStore struct {
	db *sql.DB
}

// NewAuditLogStore creates a new audit log store
func NewAuditLogStore(db *sql.DB) (*AuditLogStore, error) {
	store := &AuditLogStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit logs schema: %w", err)
	}
	return store, nil
}

// initSchema creates the audit_logs table if it doesn't exist
func (s *AuditLogStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		action TEXT NOT NULL,
		queue TEXT NOT NULL,
		details TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_queue ON audit_logs(queue);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record logs a new audit entry
func (s *AuditLogStore) Record(ctx context.Context, action, queue, details string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_logs (timestamp, action, queue, details) VALUES (?, ?, ?, ?)",
		time.Now().UTC(),
		action,
		queue,
		details,
	)
	if err != nil {
		logger.Errorf("AuditLogStore.Record: failed to insert %s for %s: %v", action, queue, err)
		return err
	}
	return nil
}

// GetRecentLogs returns the last N audit logs, newest first.
// If actionFilter is provided, filters by action type
// If queueFilter is provided, filters by queue name
func (s *AuditLogStore) GetRecentLogs(ctx context.Context, limit int, actionFilter, queueFilter string) ([]AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := "SELECT id, timestamp, action, queue, details FROM audit_logs WHERE 1=1"
	var args []interface{}
	if actionFilter != "" {
		query += " AND action = ?"
		args = append(args, actionFilter)
	}
	if queueFilter != "" {
		query += " AND queue = ?"
		args = append(args, queueFilter)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []AuditLog{}
	for rows.Next() {
		var entry AuditLog
		var details sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Action, &entry.Queue, &details); err != nil {
			return nil, err
		}
		entry.Details = details.String
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
