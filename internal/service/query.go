// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aihubjp/eventhub/internal/markdown"
	"github.com/aihubjp/eventhub/internal/model"
	"github.com/aihubjp/eventhub/internal/store"
)

// List defaults and caps.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// QueryService answers read requests against the event store. Reads are
// always live, the sync cache never sits between a caller and the store.
type QueryService struct {
	db      *sql.DB
	queries *store.Queries
}

// NewQueryService creates a new query service.
func NewQueryService(db *sql.DB) *QueryService {
	return &QueryService{db: db, queries: store.New(db)}
}

// ListParams holds the event listing filters. All filters are optional and
// compose independently.
type ListParams struct {
	Category string // exact match, "" or "all" means no filter
	Source   string // exact match
	Upcoming bool   // event_date >= today
	Featured bool
	Search   string // case-insensitive contains on title/description/organizer
	Limit    int    // defaults to DefaultListLimit, capped at MaxListLimit
	Page     int    // 1-based
}

// ListResult is the listing payload: the page of events plus the source
// overview callers use to render filter menus.
type ListResult struct {
	Events   []model.Event
	Total    int64
	Page     int
	Limit    int
	Sources  []string
	LastSync map[string]time.Time
}

// List returns active events matching the filters, ordered by event date
// then event time ascending.
// The filter combinations are assembled as direct SQL because every clause
// is conditional.
func (s *QueryService) List(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	page := params.Page
	if page < 1 {
		page = 1
	}

	where := []string{"is_active = 1"}
	var args []any

	if params.Category != "" && params.Category != "all" {
		where = append(where, "category = ?")
		args = append(args, params.Category)
	}
	if params.Source != "" {
		where = append(where, "source = ?")
		args = append(args, params.Source)
	}
	if params.Upcoming {
		where = append(where, "event_date >= ?")
		args = append(args, time.Now().UTC().Format("2006-01-02"))
	}
	if params.Featured {
		where = append(where, "is_featured = 1")
	}
	if q := strings.TrimSpace(params.Search); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(organizer) LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM events WHERE ` + whereClause
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	events := []model.Event{}
	if total > 0 {
		listQuery := `
			SELECT id, external_id, source, slug, title, description, category, type,
				event_date, event_time, location, organizer, organizer_id,
				registration_url, video_url, is_featured, is_active, last_synced_at,
				metadata, created_at, updated_at
			FROM events
			WHERE ` + whereClause + `
			ORDER BY event_date ASC, event_time ASC
			LIMIT ? OFFSET ?`
		listArgs := append(append([]any{}, args...), limit, (page-1)*limit)

		rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var e model.Event
			if err := rows.Scan(
				&e.ID, &e.ExternalID, &e.Source, &e.Slug, &e.Title, &e.Description,
				&e.Category, &e.Type, &e.EventDate, &e.EventTime, &e.Location,
				&e.Organizer, &e.OrganizerID, &e.RegistrationURL, &e.VideoURL,
				&e.IsFeatured, &e.IsActive, &e.LastSyncedAt, &e.Metadata,
				&e.CreatedAt, &e.UpdatedAt,
			); err != nil {
				return nil, fmt.Errorf("scan event: %w", err)
			}
			events = append(events, e)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate events: %w", err)
		}
	}

	sources, err := s.queries.ListEventSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	lastSyncs, err := s.queries.ListLastSyncBySource(ctx)
	if err != nil {
		return nil, fmt.Errorf("list last sync times: %w", err)
	}
	lastSync := make(map[string]time.Time, len(lastSyncs))
	for _, ls := range lastSyncs {
		if ls.LastSyncedAt.Valid {
			lastSync[ls.Source] = ls.LastSyncedAt.Time
		}
	}

	return &ListResult{
		Events:   events,
		Total:    total,
		Page:     page,
		Limit:    limit,
		Sources:  sources,
		LastSync: lastSync,
	}, nil
}

// EventDetail is a single event plus its description rendered to HTML.
type EventDetail struct {
	model.Event
	DescriptionHTML string
}

// GetByID returns a single active event by ID.
func (s *QueryService) GetByID(ctx context.Context, id int64) (*EventDetail, error) {
	event, err := s.queries.GetEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return s.detail(event)
}

// GetBySlug returns a single active event by slug.
func (s *QueryService) GetBySlug(ctx context.Context, slug string) (*EventDetail, error) {
	event, err := s.queries.GetEventBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event %q: %w", slug, err)
	}
	return s.detail(event)
}

func (s *QueryService) detail(event model.Event) (*EventDetail, error) {
	if !event.IsActive {
		return nil, ErrNotFound
	}
	detail := &EventDetail{Event: event}
	if event.Description != "" {
		html, err := markdown.Render(event.Description)
		if err != nil {
			// Fall back to the raw text rather than failing the read.
			slog.Warn("failed to render event description", "event_id", event.ID, "error", err)
		} else {
			detail.DescriptionHTML = html
		}
	}
	return detail, nil
}
