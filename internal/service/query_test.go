// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"
)

type testEvent struct {
	externalID string
	source     string
	slug       string
	title      string
	desc       string
	category   string
	eventDate  string
	eventTime  string
	organizer  string
	featured   bool
	active     bool
}

func insertTestEvent(t *testing.T, db *sql.DB, e testEvent) int64 {
	t.Helper()
	if e.source == "" {
		e.source = "internal"
	}
	if e.category == "" {
		e.category = "announcements"
	}
	res, err := db.Exec(`
		INSERT INTO events (external_id, source, slug, title, description, category, type,
			event_date, event_time, organizer, is_featured, is_active)
		VALUES (?, ?, ?, ?, ?, ?, 'announcement', ?, ?, ?, ?, ?)`,
		sql.NullString{String: e.externalID, Valid: e.externalID != ""},
		e.source,
		sql.NullString{String: e.slug, Valid: e.slug != ""},
		e.title, e.desc, e.category, e.eventDate, e.eventTime, e.organizer,
		e.featured, e.active,
	)
	if err != nil {
		t.Fatalf("insert test event: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func TestListFiltersByCategory(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQueryService(db)

	insertTestEvent(t, db, testEvent{title: "A", category: "stargate", eventDate: "2026-10-01", active: true})
	insertTestEvent(t, db, testEvent{title: "B", category: "conferences", eventDate: "2026-10-02", active: true})

	result, err := svc.List(context.Background(), ListParams{Category: "stargate"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 1 || len(result.Events) != 1 || result.Events[0].Title != "A" {
		t.Errorf("got total=%d events=%v, want only event A", result.Total, result.Events)
	}

	// "all" disables the category filter
	result, err = svc.List(context.Background(), ListParams{Category: "all"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("total = %d, want 2 with category=all", result.Total)
	}
}

func TestListFiltersBySource(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQueryService(db)

	insertTestEvent(t, db, testEvent{externalID: "x", source: "openai", title: "A", eventDate: "2026-10-01", active: true})
	insertTestEvent(t, db, testEvent{title: "B", eventDate: "2026-10-02", active: true})

	result, err := svc.List(context.Background(), ListParams{Source: "openai"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 1 || result.Events[0].Title != "A" {
		t.Errorf("source filter returned %+v, want only event A", result.Events)
	}
}

func TestListUpcomingFilter(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQueryService(db)

	// The filter compares against the UTC day, so the fixture dates
	// must be derived the same way.
	now := time.Now().UTC()
	past := now.AddDate(0, 0, -7).Format("2006-01-02")
	today := now.Format("2006-01-02")
	future := now.AddDate(0, 0, 7).Format("2006-01-02")

	insertTestEvent(t, db, testEvent{title: "Past", eventDate: past, active: true})
	insertTestEvent(t, db, testEvent{title: "Today", eventDate: today, active: true})
	insertTestEvent(t, db, testEvent{title: "Future", eventDate: future, active: true})

	result, err := svc.List(context.Background(), ListParams{Upcoming: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("total = %d, want 2 (today counts as upcoming)", result.Total)
	}
	for _, e := range result.Events {
		if e.Title == "Past" {
			t.Error("upcoming filter returned a past event")
		}
	}
}

func TestListFeaturedAndComposedFilters(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQueryService(db)

	insertTestEvent(t, db, testEvent{title: "A", category: "stargate", eventDate: "2026-10-01", featured: true, active: true})
	insertTestEvent(t, db, testEvent{title: "B", category: "stargate", eventDate: "2026-10-02", active: true})
	insertTestEvent(t, db, testEvent{title: "C", category: "meetings", eventDate: "2026-10-03", featured: true, active: true})

	result, err := svc.List(context.Background(), ListParams{Category: "stargate", Featured: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 1 || result.Events[0].Title != "A" {
		t.Errorf("composed filters returned %+v, want only event A", result.Events)
	}
}

func TestListSearchMatchesTitleDescriptionOrganizer(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQueryService(db)

	insertTestEvent(t, db, testEvent{title: "Stargate Briefing", eventDate: "2026-10-01", active: true})
	insertTestEvent(t, db, testEvent{title: "B", desc: "About the Stargate program", eventDate: "2026-10-02", active: true})
	insertTestEvent(t, db, testEvent{title: "C", organizer: "Stargate LLC", eventDate: "2026-10-03", active: true})
	insertTestEvent(t, db, testEvent{title: "Unrelated", eventDate: "2026-10-04", active: true})

	result, err := svc.List(context.Background(), ListParams{Search: "STARGATE"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 3 {
		t.Errorf("total = %d, want 3 (case-insensitive contains over three columns)", result.Total)
	}
}

func TestListExcludesInactive(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQueryService(db)

	insertTestEvent(t, db, testEvent{title: "Visible", eventDate: "2026-10-01", active: true})
	insertTestEvent(t, db, testEvent{title: "Hidden", eventDate: "2026-10-02", active: false})

	result, err := svc.List(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 1 || result.Events[0].Title != "Visible" {
		t.Errorf("got %+v, want only the active event", result.Events)
	}
}

func TestListOrderedByDateThenTime(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQueryService(db)

	insertTestEvent(t, db, testEvent{title: "Third", eventDate: "2026-10-02", eventTime: "09:00", active: true})
	insertTestEvent(t, db, testEvent{title: "Second", eventDate: "2026-10-01", eventTime: "14:00", active: true})
	insertTestEvent(t, db, testEvent{title: "First", eventDate: "2026-10-01", eventTime: "09:00", active: true})

	result, err := svc.List(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var titles []string
	for _, e := range result.Events {
		titles = append(titles, e.Title)
	}
	want := []string{"First", "Second", "Third"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("order = %v, want %v", titles, want)
		}
	}
}

func TestListLimitDefaultAndCap(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQueryService(db)

	for i := 0; i < 25; i++ {
		insertTestEvent(t, db, testEvent{
			title:     fmt.Sprintf("Event %02d", i),
			eventDate: fmt.Sprintf("2026-10-%02d", i%28+1),
			active:    true,
		})
	}

	result, err := svc.List(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Events) != DefaultListLimit {
		t.Errorf("default page size = %d, want %d", len(result.Events), DefaultListLimit)
	}
	if result.Total != 25 {
		t.Errorf("total = %d, want 25", result.Total)
	}

	result, err = svc.List(context.Background(), ListParams{Limit: 1000})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Limit != MaxListLimit {
		t.Errorf("limit = %d, want capped at %d", result.Limit, MaxListLimit)
	}

	// Second page picks up the remainder
	result, err = svc.List(context.Background(), ListParams{Page: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Events) != 5 {
		t.Errorf("second page = %d events, want 5", len(result.Events))
	}
}

func TestListReportsSourcesAndLastSync(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQueryService(db)

	insertTestEvent(t, db, testEvent{title: "A", eventDate: "2026-10-01", active: true})
	insertTestEvent(t, db, testEvent{externalID: "x", source: "openai", title: "B", eventDate: "2026-10-02", active: true})
	if _, err := db.Exec(`UPDATE events SET last_synced_at = ? WHERE source = 'openai'`, time.Now()); err != nil {
		t.Fatal(err)
	}

	result, err := svc.List(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Sources) != 2 {
		t.Errorf("sources = %v, want [internal openai]", result.Sources)
	}
	if _, ok := result.LastSync["openai"]; !ok {
		t.Error("last sync map missing openai")
	}
	if _, ok := result.LastSync["internal"]; ok {
		t.Error("last sync map should not include internal (never synced)")
	}
}

func TestGetByIDAndSlug(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQueryService(db)

	id := insertTestEvent(t, db, testEvent{
		slug: "devday-2026", title: "DevDay",
		desc: "# Agenda\n\nKeynote at **9am**.", eventDate: "2026-10-06", active: true,
	})

	detail, err := svc.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if detail.Title != "DevDay" {
		t.Errorf("title = %q, want DevDay", detail.Title)
	}
	if detail.DescriptionHTML == "" {
		t.Error("DescriptionHTML empty, want rendered markdown")
	}

	bySlug, err := svc.GetBySlug(context.Background(), "devday-2026")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if bySlug.ID != id {
		t.Errorf("GetBySlug returned id %d, want %d", bySlug.ID, id)
	}
}

func TestGetNotFoundAndInactive(t *testing.T) {
	db := setupTestDB(t)
	svc := NewQueryService(db)

	if _, err := svc.GetByID(context.Background(), 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing event error = %v, want ErrNotFound", err)
	}

	id := insertTestEvent(t, db, testEvent{title: "Hidden", eventDate: "2026-10-01", active: false})
	if _, err := svc.GetByID(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Errorf("inactive event error = %v, want ErrNotFound", err)
	}
}
