// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"log/slog"
	"net/http"

	"github.com/aihubjp/eventhub/internal/service"
)

// SyncHandler serves the sync trigger and sync status endpoints.
type SyncHandler struct {
	sync *service.SyncService
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(sync *service.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Run handles POST /api/v1/sync. With ?force=1 every cached summary is
// invalidated first so all providers are re-fetched.
func (h *SyncHandler) Run(w http.ResponseWriter, r *http.Request) {
	force := parseBool(r.URL.Query().Get("force"))

	summaries := h.sync.SyncAll(r.Context(), force)
	WriteSuccess(w, map[string]any{
		"forced":  force,
		"results": summaries,
	}, nil)
}

// Status handles GET /api/v1/sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.sync.Status(r.Context())
	if err != nil {
		slog.Error("failed to load sync status", "error", err)
		WriteInternalError(w, "Failed to load sync status")
		return
	}
	WriteSuccess(w, map[string]any{"sources": statuses}, nil)
}
