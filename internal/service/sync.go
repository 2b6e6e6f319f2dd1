// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aihubjp/eventhub/internal/cache"
	"github.com/aihubjp/eventhub/internal/model"
	"github.com/aihubjp/eventhub/internal/source"
	"github.com/aihubjp/eventhub/internal/store"
)

// SyncService pulls event feeds from the registered providers and merges
// them into the event store. Providers are synced strictly one at a time;
// a failing provider is reported and never blocks the remaining ones.
type SyncService struct {
	db       *sql.DB
	queries  *store.Queries
	registry *source.Registry
	cache    *cache.SyncCache
	audit    *AuditService
	logger   *slog.Logger
}

// NewSyncService creates a new sync service.
func NewSyncService(db *sql.DB, registry *source.Registry, syncCache *cache.SyncCache, audit *AuditService, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		db:       db,
		queries:  store.New(db),
		registry: registry,
		cache:    syncCache,
		audit:    audit,
		logger:   logger,
	}
}

// SyncAll syncs every registered source in sequence and returns one summary
// per source. Sources whose cached summary is still within its TTL are
// skipped and report the cached summary. With force set, all cache entries
// are invalidated first so every provider is re-fetched.
func (s *SyncService) SyncAll(ctx context.Context, force bool) []cache.SyncSummary {
	sources := s.registry.Sources()

	// Run ID ties together the log lines of one pass over all sources.
	logger := s.logger.With("run_id", uuid.NewString())
	logger.Info("sync started", "sources", len(sources), "forced", force)

	if force {
		if err := s.cache.InvalidateAll(ctx, sources); err != nil {
			logger.Warn("failed to invalidate sync cache", "error", err)
		}
	}

	summaries := make([]cache.SyncSummary, 0, len(sources))
	for _, name := range sources {
		summaries = append(summaries, s.syncSource(ctx, logger, name, force))
	}
	return summaries
}

// syncSource syncs a single source: cache check, fetch, merge, cache write.
func (s *SyncService) syncSource(ctx context.Context, logger *slog.Logger, name string, force bool) cache.SyncSummary {
	// Audit rows must land even when the request context was canceled
	// partway through a slow run.
	auditCtx := context.WithoutCancel(ctx)

	if !force {
		if cached := s.cache.GetSummary(ctx, name); cached != nil {
			logger.Debug("sync skipped, cache fresh", "source", name, "age", time.Since(cached.SyncedAt))
			return *cached
		}
	}

	adapter := s.registry.Get(name)
	if adapter == nil {
		return cache.SyncSummary{
			Source:   name,
			Status:   "error",
			Error:    "no adapter registered",
			SyncedAt: time.Now().UTC(),
		}
	}

	raws, err := adapter.Fetch(ctx)
	if err != nil {
		logger.Error("source fetch failed", "source", name, "error", err)
		s.audit.RecordSyncError(auditCtx, name, err)
		return cache.SyncSummary{
			Source:   name,
			Status:   "error",
			Error:    err.Error(),
			SyncedAt: time.Now().UTC(),
		}
	}

	count, err := s.merge(ctx, name, raws)
	if err != nil {
		logger.Error("merge failed", "source", name, "merged", count, "error", err)
		s.audit.RecordSyncError(auditCtx, name, err)
		return cache.SyncSummary{
			Source:   name,
			Status:   "error",
			Count:    count,
			Error:    err.Error(),
			SyncedAt: time.Now().UTC(),
		}
	}

	summary := cache.SyncSummary{
		Source:   name,
		Status:   "ok",
		Count:    count,
		SyncedAt: time.Now().UTC(),
	}
	// Only successful runs are cached. A failed source is retried on the
	// next sync instead of waiting out a TTL.
	if err := s.cache.PutSummary(ctx, summary); err != nil {
		logger.Warn("failed to cache sync summary", "source", name, "error", err)
	}

	if err := s.audit.Record(auditCtx, model.AuditLevelInfo, model.AuditCategorySync,
		fmt.Sprintf("synced %d events from %s", count, name),
		map[string]any{"source": name, "count": count}); err != nil {
		logger.Warn("failed to record sync audit entry", "source", name, "error", err)
	}

	logger.Info("source synced", "source", name, "count", count)
	return summary
}

// merge upserts a batch of provider records keyed by (external_id, source).
// Each record is merged independently; bad records and per-record write
// failures are skipped with a log line. Only a lookup failure, which means
// the store itself is unavailable, aborts the rest of the batch.
func (s *SyncService) merge(ctx context.Context, sourceName string, raws []source.RawEvent) (int, error) {
	now := time.Now().UTC()
	count := 0

	for _, raw := range raws {
		if raw.ExternalID == "" || raw.Title == "" {
			s.logger.Warn("skipping feed record without id or title", "source", sourceName)
			continue
		}

		existing, err := s.queries.GetEventByExternalID(ctx, raw.ExternalID, sourceName)
		switch {
		case err == nil:
			if err := s.updateFromRaw(ctx, existing.ID, raw, now); err != nil {
				s.logger.Warn("skipping feed record, update failed",
					"source", sourceName, "external_id", raw.ExternalID, "error", err)
				continue
			}
		case errors.Is(err, sql.ErrNoRows):
			inserted, err := s.insertFromRaw(ctx, sourceName, raw, now)
			if err != nil {
				s.logger.Warn("skipping feed record, insert failed",
					"source", sourceName, "external_id", raw.ExternalID, "error", err)
				continue
			}
			if !inserted {
				continue
			}
		default:
			return count, fmt.Errorf("lookup event %s/%s: %w", sourceName, raw.ExternalID, err)
		}
		count++
	}

	return count, nil
}

// insertFromRaw creates a new event row from a provider record, filling
// defaults for anything the provider omitted. Returns false when the record
// was dropped instead of inserted.
func (s *SyncService) insertFromRaw(ctx context.Context, sourceName string, raw source.RawEvent, now time.Time) (bool, error) {
	category := strOr(raw.Category, model.CategoryAnnouncements)
	if !model.IsValidCategory(category) {
		category = model.CategoryAnnouncements
	}
	eventType := strOr(raw.Type, model.TypeAnnouncement)
	if !model.IsValidType(eventType) {
		eventType = model.TypeAnnouncement
	}

	eventDate := strOr(raw.EventDate, "")
	if eventDate == "" {
		// A feed record without a date cannot be listed; drop it.
		s.logger.Warn("skipping feed record without event date",
			"source", sourceName, "external_id", raw.ExternalID)
		return false, nil
	}

	metadata := "{}"
	if len(raw.Metadata) > 0 {
		b, err := json.Marshal(raw.Metadata)
		if err != nil {
			return false, fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = string(b)
	}

	featured := false
	if raw.IsFeatured != nil {
		featured = *raw.IsFeatured
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		ExternalID:      sql.NullString{String: raw.ExternalID, Valid: true},
		Source:          sourceName,
		Title:           raw.Title,
		Description:     strOr(raw.Description, ""),
		Category:        category,
		Type:            eventType,
		EventDate:       eventDate,
		EventTime:       strOr(raw.EventTime, ""),
		Location:        strOr(raw.Location, ""),
		Organizer:       strOr(raw.Organizer, ""),
		RegistrationURL: strOr(raw.RegistrationURL, ""),
		VideoURL:        strOr(raw.VideoURL, ""),
		IsFeatured:      featured,
		IsActive:        true,
		LastSyncedAt:    sql.NullTime{Time: now, Valid: true},
		Metadata:        metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// updateFromRaw overwrites only the fields present in the provider record.
// A provider omitting a field never erases data merged earlier, so the SET
// clause is assembled per record rather than generated ahead of time.
func (s *SyncService) updateFromRaw(ctx context.Context, id int64, raw source.RawEvent, now time.Time) error {
	sets := []string{"title = ?", "last_synced_at = ?", "updated_at = ?"}
	args := []any{raw.Title, now, now}

	addSet := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}
	addSet("description", raw.Description)
	addSet("event_date", raw.EventDate)
	addSet("event_time", raw.EventTime)
	addSet("location", raw.Location)
	addSet("organizer", raw.Organizer)
	addSet("registration_url", raw.RegistrationURL)
	addSet("video_url", raw.VideoURL)

	if raw.Category != nil && model.IsValidCategory(*raw.Category) {
		sets = append(sets, "category = ?")
		args = append(args, *raw.Category)
	}
	if raw.Type != nil && model.IsValidType(*raw.Type) {
		sets = append(sets, "type = ?")
		args = append(args, *raw.Type)
	}
	if raw.IsFeatured != nil {
		sets = append(sets, "is_featured = ?")
		args = append(args, *raw.IsFeatured)
	}
	if len(raw.Metadata) > 0 {
		b, err := json.Marshal(raw.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		sets = append(sets, "metadata = ?")
		args = append(args, string(b))
	}

	args = append(args, id)
	query := `UPDATE events SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// SourceStatus describes the sync state of one source.
type SourceStatus struct {
	Source       string             `json:"source"`
	TTL          string             `json:"ttl"`
	LastSyncedAt *time.Time         `json:"last_synced_at,omitempty"`
	LastResult   *cache.SyncSummary `json:"last_result,omitempty"`
}

// Status reports per-source sync state: the configured TTL, the newest
// last_synced_at in the store, and the cached summary if one is still fresh.
func (s *SyncService) Status(ctx context.Context) ([]SourceStatus, error) {
	lastSyncs, err := s.queries.ListLastSyncBySource(ctx)
	if err != nil {
		return nil, fmt.Errorf("list last sync times: %w", err)
	}
	bySource := make(map[string]time.Time, len(lastSyncs))
	for _, ls := range lastSyncs {
		if ls.LastSyncedAt.Valid {
			bySource[ls.Source] = ls.LastSyncedAt.Time
		}
	}

	statuses := make([]SourceStatus, 0, len(s.registry.Sources()))
	for _, name := range s.registry.Sources() {
		status := SourceStatus{
			Source:     name,
			TTL:        s.cache.TTL(name).String(),
			LastResult: s.cache.GetSummary(ctx, name),
		}
		if t, ok := bySource[name]; ok {
			tt := t
			status.LastSyncedAt = &tt
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// strOr dereferences p, falling back to def when p is nil.
func strOr(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}
