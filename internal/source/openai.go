// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package source

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/aihubjp/eventhub/internal/model"
)

const openAITimeout = 30 * time.Second

// OpenAIAdapter fetches the OpenAI events feed. Without an API key it serves
// the built-in sample feed instead of calling out.
type OpenAIAdapter struct {
	apiKey  string
	baseURL string
}

// OpenAIOptions configures the OpenAI adapter.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string // override for tests; empty means the SDK default
}

// NewOpenAIAdapter creates the OpenAI source adapter.
func NewOpenAIAdapter(opts OpenAIOptions) *OpenAIAdapter {
	return &OpenAIAdapter{apiKey: opts.APIKey, baseURL: opts.BaseURL}
}

// ID implements Adapter.
func (a *OpenAIAdapter) ID() string { return model.SourceOpenAI }

// openAIEventsPayload mirrors the events feed response shape.
type openAIEventsPayload struct {
	Data []struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Date        string `json:"date"`
		Time        string `json:"time"`
		Location    string `json:"location"`
		URL         string `json:"url"`
	} `json:"data"`
}

// Fetch implements Adapter. It performs a single attempt with no retries.
func (a *OpenAIAdapter) Fetch(ctx context.Context) ([]RawEvent, error) {
	if a.apiKey == "" {
		return openAISampleEvents(), nil
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(a.apiKey),
		option.WithRequestTimeout(openAITimeout),
	}
	if a.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(a.baseURL))
	}
	client := openai.NewClient(clientOpts...)

	// The events feed is not part of the typed SDK surface, so use the
	// client's raw request support against the feed path.
	var payload openAIEventsPayload
	if err := client.Get(ctx, "/events", nil, &payload); err != nil {
		return nil, fmt.Errorf("%w: openai: %v", ErrSourceUnavailable, err)
	}

	raws := make([]RawEvent, 0, len(payload.Data))
	for _, item := range payload.Data {
		if item.ID == "" || item.Title == "" {
			continue
		}
		raw := RawEvent{
			ExternalID: item.ID,
			Title:      item.Title,
			Category:   strPtr(model.CategoryAnnouncements),
			Type:       strPtr(model.TypeAnnouncement),
			Organizer:  strPtr("OpenAI"),
		}
		if item.Description != "" {
			raw.Description = strPtr(item.Description)
		}
		if item.Date != "" {
			raw.EventDate = strPtr(item.Date)
		}
		if item.Time != "" {
			raw.EventTime = strPtr(item.Time)
		}
		if item.Location != "" {
			raw.Location = strPtr(item.Location)
		}
		if item.URL != "" {
			raw.RegistrationURL = strPtr(item.URL)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// openAISampleEvents is the fixed feed served when no API key is configured.
func openAISampleEvents() []RawEvent {
	return []RawEvent{
		{
			ExternalID:  "openai-devday-2026",
			Title:       "OpenAI DevDay 2026",
			Description: strPtr("Annual developer conference with product announcements and workshops."),
			Category:    strPtr(model.CategoryConferences),
			Type:        strPtr(model.TypeConference),
			EventDate:   strPtr("2026-10-06"),
			EventTime:   strPtr("09:00"),
			Location:    strPtr("San Francisco, CA"),
			Organizer:   strPtr("OpenAI"),
			IsFeatured:  boolPtr(true),
		},
		{
			ExternalID:  "openai-stargate-briefing-q4",
			Title:       "Stargate Infrastructure Briefing",
			Description: strPtr("Quarterly update on the Stargate compute build-out."),
			Category:    strPtr(model.CategoryStargate),
			Type:        strPtr(model.TypeAnnouncement),
			EventDate:   strPtr("2026-11-12"),
			EventTime:   strPtr("17:00"),
			Organizer:   strPtr("OpenAI"),
		},
	}
}
