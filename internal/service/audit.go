// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic services.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aihubjp/eventhub/internal/model"
	"github.com/aihubjp/eventhub/internal/store"
)

// AuditService records operational audit entries.
type AuditService struct {
	queries *store.Queries
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{queries: store.New(db)}
}

// Record writes an audit entry. Metadata is optional and stored as JSON.
func (s *AuditService) Record(ctx context.Context, level, category, message string, metadata map[string]any) error {
	metaJSON := "{}"
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		metaJSON = string(b)
	}

	_, err := s.queries.CreateAuditEntry(ctx, store.CreateAuditEntryParams{
		Level:     level,
		Category:  category,
		Message:   message,
		Metadata:  metaJSON,
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// RecordSyncError records a failed source sync. Failures here are logged
// but never propagated, a broken audit trail must not break a sync run.
func (s *AuditService) RecordSyncError(ctx context.Context, source string, syncErr error) {
	err := s.Record(ctx, model.AuditLevelError, model.AuditCategorySync,
		fmt.Sprintf("sync failed for source %s", source),
		map[string]any{"source": source, "error": syncErr.Error()})
	if err != nil {
		slog.Error("failed to record sync audit entry", "source", source, "error", err)
	}
}

// CleanupOld deletes audit entries older than the given number of days.
func (s *AuditService) CleanupOld(ctx context.Context, days int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	return s.queries.DeleteOldAuditEntries(ctx, cutoff)
}
