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

const cohereTimeout = 30 * time.Second

// CohereAdapter fetches the Cohere events feed.
type CohereAdapter struct {
	apiKey  string
	baseURL string
}

// CohereOptions configures the Cohere adapter.
type CohereOptions struct {
	APIKey  string
	BaseURL string
}

// NewCohereAdapter creates the Cohere source adapter.
func NewCohereAdapter(opts CohereOptions) *CohereAdapter {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.cohere.com/v1"
	}
	return &CohereAdapter{apiKey: opts.APIKey, baseURL: baseURL}
}

// ID implements Adapter.
func (a *CohereAdapter) ID() string { return model.SourceCohere }

// Fetch implements Adapter.
func (a *CohereAdapter) Fetch(ctx context.Context) ([]RawEvent, error) {
	if a.apiKey == "" {
		return cohereSampleEvents(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: cohere request: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: cohereTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: cohere call: %v", ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: cohere read: %v", ErrSourceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: cohere status %d: %s", ErrSourceUnavailable, resp.StatusCode, string(body))
	}

	var payload struct {
		Events []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Summary  string `json:"summary"`
			Date     string `json:"date"`
			Time     string `json:"time"`
			Location string `json:"location"`
			Link     string `json:"link"`
		} `json:"events"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: cohere decode: %v", ErrSourceUnavailable, err)
	}

	raws := make([]RawEvent, 0, len(payload.Events))
	for _, item := range payload.Events {
		if item.ID == "" || item.Name == "" {
			continue
		}
		raw := RawEvent{
			ExternalID: item.ID,
			Title:      item.Name,
			Category:   strPtr(model.CategoryAnnouncements),
			Type:       strPtr(model.TypeAnnouncement),
			Organizer:  strPtr("Cohere"),
		}
		if item.Summary != "" {
			raw.Description = strPtr(item.Summary)
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
		if item.Link != "" {
			raw.RegistrationURL = strPtr(item.Link)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

func cohereSampleEvents() []RawEvent {
	return []RawEvent{
		{
			ExternalID:  "cohere-enterprise-summit",
			Title:       "Cohere Enterprise AI Summit",
			Description: strPtr("Enterprise deployments of retrieval-augmented generation at scale."),
			Category:    strPtr(model.CategoryConferences),
			Type:        strPtr(model.TypeConference),
			EventDate:   strPtr("2026-10-20"),
			EventTime:   strPtr("10:00"),
			Location:    strPtr("Toronto, Canada"),
			Organizer:   strPtr("Cohere"),
		},
	}
}
