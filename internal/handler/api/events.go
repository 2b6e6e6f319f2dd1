// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aihubjp/eventhub/internal/model"
	"github.com/aihubjp/eventhub/internal/service"
)

// EventsHandler serves event listing, detail, and internal event CRUD.
type EventsHandler struct {
	query  *service.QueryService
	events *service.EventService
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(query *service.QueryService, events *service.EventService) *EventsHandler {
	return &EventsHandler{query: query, events: events}
}

// EventView is the API representation of an event.
type EventView struct {
	ID              int64          `json:"id"`
	Source          string         `json:"source"`
	Slug            string         `json:"slug,omitempty"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	DescriptionHTML string         `json:"description_html,omitempty"`
	Category        string         `json:"category"`
	Type            string         `json:"type"`
	EventDate       string         `json:"event_date"`
	EventTime       string         `json:"event_time,omitempty"`
	Location        string         `json:"location,omitempty"`
	Organizer       string         `json:"organizer,omitempty"`
	RegistrationURL string         `json:"registration_url,omitempty"`
	VideoURL        string         `json:"video_url,omitempty"`
	IsFeatured      bool           `json:"is_featured"`
	LastSyncedAt    *time.Time     `json:"last_synced_at,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func toEventView(e model.Event) EventView {
	v := EventView{
		ID:              e.ID,
		Source:          e.Source,
		Title:           e.Title,
		Description:     e.Description,
		Category:        e.Category,
		Type:            e.Type,
		EventDate:       e.EventDate,
		EventTime:       e.EventTime,
		Location:        e.Location,
		Organizer:       e.Organizer,
		RegistrationURL: e.RegistrationURL,
		VideoURL:        e.VideoURL,
		IsFeatured:      e.IsFeatured,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	if e.Slug.Valid {
		v.Slug = e.Slug.String
	}
	if e.LastSyncedAt.Valid {
		t := e.LastSyncedAt.Time
		v.LastSyncedAt = &t
	}
	if e.Metadata != "" && e.Metadata != "{}" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(e.Metadata), &meta); err == nil {
			v.Metadata = meta
		}
	}
	return v
}

// ListResponse is the listing payload.
type ListResponse struct {
	Events   []EventView          `json:"events"`
	Sources  []string             `json:"sources"`
	LastSync map[string]time.Time `json:"last_sync,omitempty"`
}

// List handles GET /api/v1/events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := service.ListParams{
		Category: q.Get("category"),
		Source:   q.Get("source"),
		Upcoming: parseBool(q.Get("upcoming")),
		Featured: parseBool(q.Get("featured")),
		Search:   q.Get("search"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteBadRequest(w, "Invalid limit parameter", nil)
			return
		}
		params.Limit = n
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteBadRequest(w, "Invalid page parameter", nil)
			return
		}
		params.Page = n
	}

	result, err := h.query.List(r.Context(), params)
	if err != nil {
		slog.Error("failed to list events", "error", err)
		WriteInternalError(w, "Failed to list events")
		return
	}

	views := make([]EventView, 0, len(result.Events))
	for _, e := range result.Events {
		views = append(views, toEventView(e))
	}

	pages := int((result.Total + int64(result.Limit) - 1) / int64(result.Limit))
	WriteSuccess(w, ListResponse{
		Events:   views,
		Sources:  result.Sources,
		LastSync: result.LastSync,
	}, &Meta{
		Total:   result.Total,
		Page:    result.Page,
		PerPage: result.Limit,
		Pages:   pages,
	})
}

// Get handles GET /api/v1/events/{id}.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid event ID", nil)
		return
	}

	detail, err := h.query.GetByID(r.Context(), id)
	if err != nil {
		h.writeReadError(w, err)
		return
	}
	h.writeDetail(w, detail)
}

// GetBySlug handles GET /api/v1/events/slug/{slug}.
func (h *EventsHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		WriteBadRequest(w, "Missing slug", nil)
		return
	}

	detail, err := h.query.GetBySlug(r.Context(), slug)
	if err != nil {
		h.writeReadError(w, err)
		return
	}
	h.writeDetail(w, detail)
}

func (h *EventsHandler) writeDetail(w http.ResponseWriter, detail *service.EventDetail) {
	view := toEventView(detail.Event)
	view.DescriptionHTML = detail.DescriptionHTML
	WriteSuccess(w, view, nil)
}

func (h *EventsHandler) writeReadError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrNotFound) {
		WriteNotFound(w, "Event not found")
		return
	}
	slog.Error("failed to load event", "error", err)
	WriteInternalError(w, "Failed to load event")
}

// EventRequest is the write payload for internal events.
type EventRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	Type            string `json:"type"`
	EventDate       string `json:"event_date"`
	EventTime       string `json:"event_time"`
	Location        string `json:"location"`
	Organizer       string `json:"organizer"`
	RegistrationURL string `json:"registration_url"`
	VideoURL        string `json:"video_url"`
	IsFeatured      bool   `json:"is_featured"`
}

func (req *EventRequest) toInput() service.EventInput {
	return service.EventInput{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Type:            req.Type,
		EventDate:       req.EventDate,
		EventTime:       req.EventTime,
		Location:        req.Location,
		Organizer:       req.Organizer,
		RegistrationURL: req.RegistrationURL,
		VideoURL:        req.VideoURL,
		IsFeatured:      req.IsFeatured,
	}
}

// Create handles POST /api/v1/events.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	event, err := h.events.Create(r.Context(), req.toInput())
	if err != nil {
		h.writeWriteError(w, err)
		return
	}
	WriteCreated(w, toEventView(*event))
}

// Update handles PUT /api/v1/events/{id}.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid event ID", nil)
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	event, err := h.events.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.writeWriteError(w, err)
		return
	}
	WriteSuccess(w, toEventView(*event), nil)
}

// Delete handles DELETE /api/v1/events/{id}.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid event ID", nil)
		return
	}

	if err := h.events.Delete(r.Context(), id); err != nil {
		h.writeWriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, Response{Data: map[string]string{"status": "deleted"}})
}

// SetActive handles PATCH /api/v1/events/{id}/active.
func (h *EventsHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid event ID", nil)
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	if err := h.events.SetActive(r.Context(), id, req.IsActive); err != nil {
		h.writeWriteError(w, err)
		return
	}
	WriteSuccess(w, map[string]any{"id": id, "is_active": req.IsActive}, nil)
}

func (h *EventsHandler) writeWriteError(w http.ResponseWriter, err error) {
	var ve *service.ValidationError
	switch {
	case errors.Is(err, service.ErrNotFound):
		WriteNotFound(w, "Event not found")
	case errors.Is(err, service.ErrExternalEvent):
		WriteValidationError(w, map[string]string{"source": "Externally synced events cannot be modified"})
	case errors.As(err, &ve):
		WriteValidationError(w, map[string]string{ve.Field: ve.Message})
	default:
		slog.Error("event write failed", "error", err)
		WriteInternalError(w, "Failed to save event")
	}
}

func parseBool(v string) bool {
	switch v {
	case "1", "true", "yes":
		return true
	}
	return false
}
