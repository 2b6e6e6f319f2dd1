// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/aihubjp/eventhub/internal/model"
	"github.com/aihubjp/eventhub/internal/service"
	"github.com/aihubjp/eventhub/internal/store"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT,
			source TEXT NOT NULL DEFAULT 'internal',
			slug TEXT,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'announcements',
			type TEXT NOT NULL DEFAULT 'announcement',
			event_date TEXT NOT NULL DEFAULT '',
			event_time TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			organizer TEXT NOT NULL DEFAULT '',
			organizer_id INTEGER,
			registration_url TEXT NOT NULL DEFAULT '',
			video_url TEXT NOT NULL DEFAULT '',
			is_featured INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			last_synced_at DATETIME,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX idx_events_external_id_source ON events(external_id, source)
			WHERE external_id IS NOT NULL;
		CREATE UNIQUE INDEX idx_events_slug ON events(slug) WHERE slug IS NOT NULL;

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

// newTestRouter mounts the events handler the way main wires it, minus auth.
func newTestRouter(t *testing.T) (*chi.Mux, *sql.DB) {
	t.Helper()

	db := setupTestDB(t)
	audit := service.NewAuditService(db)
	handler := NewEventsHandler(service.NewQueryService(db), service.NewEventService(db, audit))

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events", handler.List)
		r.Get("/events/{id:[0-9]+}", handler.Get)
		r.Get("/events/slug/{slug}", handler.GetBySlug)
		r.Post("/events", handler.Create)
		r.Put("/events/{id:[0-9]+}", handler.Update)
		r.Delete("/events/{id:[0-9]+}", handler.Delete)
		r.Patch("/events/{id:[0-9]+}/active", handler.SetActive)
	})
	return r, db
}

func insertEvent(t *testing.T, db *sql.DB, source, externalID, slug, title, date string) int64 {
	t.Helper()

	now := time.Now().UTC()
	params := store.CreateEventParams{
		Source:      source,
		Title:       title,
		Description: "Details for " + title,
		Category:    model.CategoryAnnouncements,
		Type:        model.TypeAnnouncement,
		EventDate:   date,
		Organizer:   "Test Organizer",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if externalID != "" {
		params.ExternalID = sql.NullString{String: externalID, Valid: true}
	}
	if slug != "" {
		params.Slug = sql.NullString{String: slug, Valid: true}
	}

	id, err := store.New(db).CreateEvent(context.Background(), params)
	if err != nil {
		t.Fatalf("insert event failed: %v", err)
	}
	return id
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("invalid JSON response: %v\nbody: %s", err, rec.Body.String())
	}
}

func TestEventsListEnvelope(t *testing.T) {
	router, db := newTestRouter(t)
	insertEvent(t, db, model.SourceInternal, "", "meetup-tokyo", "Meetup Tokyo", "2026-09-20")
	insertEvent(t, db, model.SourceOpenAI, "oa-1", "", "DevDay", "2026-10-06")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Data ListResponse `json:"data"`
		Meta *Meta        `json:"meta"`
	}
	decodeResponse(t, rec, &resp)

	if len(resp.Data.Events) != 2 {
		t.Errorf("got %d events, want 2", len(resp.Data.Events))
	}
	if resp.Meta == nil || resp.Meta.Total != 2 {
		t.Errorf("meta = %+v, want total 2", resp.Meta)
	}
	if len(resp.Data.Sources) == 0 {
		t.Error("sources list is empty")
	}
}

func TestEventsListSourceFilter(t *testing.T) {
	router, db := newTestRouter(t)
	insertEvent(t, db, model.SourceInternal, "", "", "Internal Event", "2026-09-20")
	insertEvent(t, db, model.SourceOpenAI, "oa-1", "", "DevDay", "2026-10-06")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?source=openai", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp struct {
		Data ListResponse `json:"data"`
	}
	decodeResponse(t, rec, &resp)

	if len(resp.Data.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(resp.Data.Events))
	}
	if resp.Data.Events[0].Source != model.SourceOpenAI {
		t.Errorf("source = %q, want openai", resp.Data.Events[0].Source)
	}
}

func TestEventsListRejectsBadPagination(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, target := range []string{"/api/v1/events?limit=0", "/api/v1/events?page=abc"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestEventsGetByIDAndSlug(t *testing.T) {
	router, db := newTestRouter(t)
	id := insertEvent(t, db, model.SourceInternal, "", "meetup-tokyo", "Meetup Tokyo", "2026-09-20")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/"+idPath(id), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get by id: status = %d, want 200", rec.Code)
	}

	var resp struct {
		Data EventView `json:"data"`
	}
	decodeResponse(t, rec, &resp)
	if resp.Data.Title != "Meetup Tokyo" {
		t.Errorf("title = %q", resp.Data.Title)
	}
	if resp.Data.DescriptionHTML == "" {
		t.Error("detail view missing rendered description")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/events/slug/meetup-tokyo", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get by slug: status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/events/999", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing event: status = %d, want 404", rec.Code)
	}
}

func TestEventsCreate(t *testing.T) {
	router, db := newTestRouter(t)

	body := `{
		"title": "Partner Meetup",
		"description": "Quarterly partner meetup.",
		"category": "meetings",
		"type": "meeting",
		"event_date": "2026-09-25",
		"event_time": "18:30",
		"location": "Tokyo"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data EventView `json:"data"`
	}
	decodeResponse(t, rec, &resp)
	if resp.Data.Source != model.SourceInternal {
		t.Errorf("source = %q, want internal", resp.Data.Source)
	}
	if resp.Data.Slug != "partner-meetup" {
		t.Errorf("slug = %q, want partner-meetup", resp.Data.Slug)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("events in db = %d, want 1", count)
	}
}

func TestEventsCreateValidationError(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"title": "", "category": "meetings", "type": "meeting", "event_date": "2026-09-25"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var resp ErrorResponse
	decodeResponse(t, rec, &resp)
	if resp.Error.Code != "validation_error" {
		t.Errorf("error code = %q, want validation_error", resp.Error.Code)
	}
	if _, ok := resp.Error.Details["title"]; !ok {
		t.Errorf("details = %v, want title field error", resp.Error.Details)
	}
}

func TestEventsWriteRejectedForExternal(t *testing.T) {
	router, db := newTestRouter(t)
	id := insertEvent(t, db, model.SourceOpenAI, "oa-1", "", "DevDay", "2026-10-06")

	body := `{"title": "Hijacked", "category": "meetings", "type": "meeting", "event_date": "2026-09-25"}`
	target := "/api/v1/events/" + idPath(id)

	req := httptest.NewRequest(http.MethodPut, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("update external: status = %d, want 422", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, target, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("delete external: status = %d, want 422", rec.Code)
	}

	// Hiding an external event is the one allowed write
	req = httptest.NewRequest(http.MethodPatch, target+"/active", strings.NewReader(`{"is_active": false}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("hide external: status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
}

func TestEventsDelete(t *testing.T) {
	router, db := newTestRouter(t)
	id := insertEvent(t, db, model.SourceInternal, "", "meetup", "Meetup", "2026-09-20")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/events/"+idPath(id), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("events in db = %d, want 0", count)
	}
}

// idPath formats an ID for use in URL paths.
func idPath(id int64) string {
	return strconv.FormatInt(id, 10)
}
