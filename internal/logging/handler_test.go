// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/aihubjp/eventhub/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL DEFAULT 'info',
			category TEXT NOT NULL DEFAULT 'system',
			message TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	return db
}

func countAuditRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM audit_log`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	return count
}

func TestAuditLogHandlerWritesWarnAndAbove(t *testing.T) {
	db := setupTestDB(t)
	logger := slog.New(NewAuditLogHandler(slog.NewTextHandler(io.Discard, nil), db))

	logger.Info("routine info message")
	if got := countAuditRows(t, db); got != 0 {
		t.Fatalf("info message landed in audit log: %d rows", got)
	}

	logger.Warn("sync skipped source", "source", "openai")
	logger.Error("sync failed", "source", "oracle", "error", "status 502")

	if got := countAuditRows(t, db); got != 2 {
		t.Fatalf("audit rows = %d, want 2", got)
	}

	var level, category, message, metadata string
	err := db.QueryRow(`
		SELECT level, category, message, metadata FROM audit_log ORDER BY id DESC LIMIT 1`).
		Scan(&level, &category, &message, &metadata)
	if err != nil {
		t.Fatal(err)
	}

	if level != model.AuditLevelError {
		t.Errorf("level = %q, want error", level)
	}
	if category != model.AuditCategorySync {
		t.Errorf("category = %q, want sync", category)
	}
	if message != "sync failed" {
		t.Errorf("message = %q", message)
	}
	if metadata == "{}" || metadata == "" {
		t.Error("metadata not captured")
	}
}

func TestAuditLogHandlerExplicitCategory(t *testing.T) {
	db := setupTestDB(t)
	logger := slog.New(NewAuditLogHandler(slog.NewTextHandler(io.Discard, nil), db))

	logger.Warn("something odd happened", "category", model.AuditCategoryCache)

	var category string
	if err := db.QueryRow(`SELECT category FROM audit_log`).Scan(&category); err != nil {
		t.Fatal(err)
	}
	if category != model.AuditCategoryCache {
		t.Errorf("category = %q, want cache", category)
	}
}

func TestAuditLogHandlerCustomLevel(t *testing.T) {
	db := setupTestDB(t)
	handler := NewAuditLogHandlerWithLevel(
		slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}), db, slog.LevelInfo)
	logger := slog.New(handler)

	logger.Info("sync completed", "source", "gemini", "count", 3)

	if got := countAuditRows(t, db); got != 1 {
		t.Fatalf("audit rows = %d, want 1", got)
	}
}

func TestEscapeJSON(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`plain`, `plain`},
		{`has "quotes"`, `has \"quotes\"`},
		{"line\nbreak", `line\nbreak`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := escapeJSON(tt.input); got != tt.expected {
			t.Errorf("escapeJSON(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
