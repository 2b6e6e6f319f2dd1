// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aihubjp/eventhub/internal/model"
	"github.com/aihubjp/eventhub/internal/store"
	"github.com/aihubjp/eventhub/internal/util"
)

// EventService manages internally created events. Externally synced events
// are owned by their provider feed and can only be hidden here.
type EventService struct {
	db      *sql.DB
	queries *store.Queries
	audit   *AuditService
}

// NewEventService creates a new event service.
func NewEventService(db *sql.DB, audit *AuditService) *EventService {
	return &EventService{db: db, queries: store.New(db), audit: audit}
}

// EventInput holds the editable fields of an internal event.
type EventInput struct {
	Title           string
	Description     string
	Category        string
	Type            string
	EventDate       string // YYYY-MM-DD
	EventTime       string // HH:MM, optional
	Location        string
	Organizer       string
	OrganizerID     int64 // optional, 0 means none
	RegistrationURL string
	VideoURL        string
	IsFeatured      bool
}

func (in *EventInput) validate() error {
	if in.Title == "" {
		return &ValidationError{Field: "title", Message: "is required"}
	}
	if !model.IsValidCategory(in.Category) {
		return &ValidationError{Field: "category", Message: "unknown category"}
	}
	if !model.IsValidType(in.Type) {
		return &ValidationError{Field: "type", Message: "unknown type"}
	}
	if _, err := time.Parse("2006-01-02", in.EventDate); err != nil {
		return &ValidationError{Field: "event_date", Message: "must be YYYY-MM-DD"}
	}
	if in.EventTime != "" {
		if _, err := time.Parse("15:04", in.EventTime); err != nil {
			return &ValidationError{Field: "event_time", Message: "must be HH:MM"}
		}
	}
	return nil
}

// Create inserts a new internal event with a generated unique slug.
func (s *EventService) Create(ctx context.Context, input EventInput) (*model.Event, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	slug, err := s.uniqueSlug(ctx, util.Slugify(input.Title))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	id, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Source:          model.SourceInternal,
		Slug:            sql.NullString{String: slug, Valid: true},
		Title:           input.Title,
		Description:     input.Description,
		Category:        input.Category,
		Type:            input.Type,
		EventDate:       input.EventDate,
		EventTime:       input.EventTime,
		Location:        input.Location,
		Organizer:       input.Organizer,
		OrganizerID:     sql.NullInt64{Int64: input.OrganizerID, Valid: input.OrganizerID != 0},
		RegistrationURL: input.RegistrationURL,
		VideoURL:        input.VideoURL,
		IsFeatured:      input.IsFeatured,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	event, err := s.queries.GetEventByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload event %d: %w", id, err)
	}

	_ = s.audit.Record(ctx, model.AuditLevelInfo, model.AuditCategoryEvent,
		fmt.Sprintf("event created: %s", event.Title),
		map[string]any{"event_id": event.ID, "slug": slug})
	return &event, nil
}

// Update replaces the editable fields of an internal event.
func (s *EventService) Update(ctx context.Context, id int64, input EventInput) (*model.Event, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	existing, err := s.queries.GetEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	if !existing.IsInternal() {
		return nil, ErrExternalEvent
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE events SET
			title = ?, description = ?, category = ?, type = ?,
			event_date = ?, event_time = ?, location = ?, organizer = ?,
			registration_url = ?, video_url = ?, is_featured = ?, updated_at = ?
		WHERE id = ?`,
		input.Title, input.Description, input.Category, input.Type,
		input.EventDate, input.EventTime, input.Location, input.Organizer,
		input.RegistrationURL, input.VideoURL, input.IsFeatured,
		time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update event %d: %w", id, err)
	}

	event, err := s.queries.GetEventByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload event %d: %w", id, err)
	}
	return &event, nil
}

// Delete removes an internal event. Externally synced events cannot be
// deleted: the next sync would re-insert them.
func (s *EventService) Delete(ctx context.Context, id int64) error {
	existing, err := s.queries.GetEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get event %d: %w", id, err)
	}
	if !existing.IsInternal() {
		return ErrExternalEvent
	}

	if err := s.queries.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}

	_ = s.audit.Record(ctx, model.AuditLevelInfo, model.AuditCategoryEvent,
		fmt.Sprintf("event deleted: %s", existing.Title),
		map[string]any{"event_id": id})
	return nil
}

// SetActive toggles event visibility. This is allowed for external events
// too; hiding is the only local override syncs preserve.
func (s *EventService) SetActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.queries.GetEventByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get event %d: %w", id, err)
	}

	err := s.queries.SetEventActive(ctx, store.SetEventActiveParams{
		IsActive:  active,
		UpdatedAt: time.Now().UTC(),
		ID:        id,
	})
	if err != nil {
		return fmt.Errorf("set event %d active: %w", id, err)
	}
	return nil
}

// uniqueSlug appends a numeric suffix until the slug is unused.
func (s *EventService) uniqueSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "event"
	}
	slug := base
	for i := 2; ; i++ {
		count, err := s.queries.CountEventsBySlug(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", slug, err)
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
