// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aihubjp/eventhub/internal/model"
)

const geminiTimeout = 30 * time.Second

// GeminiAdapter fetches the Google Gemini events feed.
type GeminiAdapter struct {
	apiKey  string
	baseURL string
}

// GeminiOptions configures the Gemini adapter.
type GeminiOptions struct {
	APIKey  string
	BaseURL string
}

// NewGeminiAdapter creates the Gemini source adapter.
func NewGeminiAdapter(opts GeminiOptions) *GeminiAdapter {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiAdapter{apiKey: opts.APIKey, baseURL: baseURL}
}

// ID implements Adapter.
func (a *GeminiAdapter) ID() string { return model.SourceGemini }

// Fetch implements Adapter.
func (a *GeminiAdapter) Fetch(ctx context.Context) ([]RawEvent, error) {
	if a.apiKey == "" {
		return geminiSampleEvents(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini request: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("x-goog-api-key", a.apiKey)

	client := &http.Client{Timeout: geminiTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini call: %v", ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini read: %v", ErrSourceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: gemini status %d: %s", ErrSourceUnavailable, resp.StatusCode, string(body))
	}

	var payload struct {
		Events []struct {
			EventID     string `json:"eventId"`
			Title       string `json:"title"`
			Description string `json:"description"`
			StartDate   string `json:"startDate"`
			StartTime   string `json:"startTime"`
			Venue       string `json:"venue"`
			StreamURL   string `json:"streamUrl"`
		} `json:"events"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: gemini decode: %v", ErrSourceUnavailable, err)
	}

	raws := make([]RawEvent, 0, len(payload.Events))
	for _, item := range payload.Events {
		if item.EventID == "" || item.Title == "" {
			continue
		}
		raw := RawEvent{
			ExternalID: item.EventID,
			Title:      item.Title,
			Category:   strPtr(model.CategoryAnnouncements),
			Type:       strPtr(model.TypeAnnouncement),
			Organizer:  strPtr("Google DeepMind"),
		}
		if item.Description != "" {
			raw.Description = strPtr(item.Description)
		}
		if item.StartDate != "" {
			raw.EventDate = strPtr(item.StartDate)
		}
		if item.StartTime != "" {
			raw.EventTime = strPtr(item.StartTime)
		}
		if item.Venue != "" {
			raw.Location = strPtr(item.Venue)
		}
		if item.StreamURL != "" {
			raw.VideoURL = strPtr(item.StreamURL)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

func geminiSampleEvents() []RawEvent {
	return []RawEvent{
		{
			ExternalID:  "gemini-api-workshop-tokyo",
			Title:       "Gemini API Workshop Tokyo",
			Description: strPtr("Hands-on workshop covering the Gemini API and multimodal prompting."),
			Category:    strPtr(model.CategoryMeetings),
			Type:        strPtr(model.TypeWorkshop),
			EventDate:   strPtr("2026-09-24"),
			EventTime:   strPtr("13:00"),
			Location:    strPtr("Tokyo, Japan"),
			Organizer:   strPtr("Google DeepMind"),
		},
	}
}
