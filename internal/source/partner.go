// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/aihubjp/eventhub/internal/model"
)

// PartnerAdapter handles the partner feeds (SoftBank, Oracle, MGX). Their
// payloads are loosely shaped and differ per partner, so fields are picked
// out with gjson instead of a fixed struct. Without a base URL the adapter
// serves its built-in sample feed.
type PartnerAdapter struct {
	name      string
	organizer string
	baseURL   string
	apiKey    string
	timeout   time.Duration
	samples   func() []RawEvent
}

// PartnerOptions configures a partner adapter.
type PartnerOptions struct {
	BaseURL string
	APIKey  string
}

// NewSoftBankAdapter creates the SoftBank partner adapter.
func NewSoftBankAdapter(opts PartnerOptions) *PartnerAdapter {
	return &PartnerAdapter{
		name:      model.SourceSoftBank,
		organizer: "SoftBank Group",
		baseURL:   opts.BaseURL,
		apiKey:    opts.APIKey,
		timeout:   60 * time.Second,
		samples:   softBankSampleEvents,
	}
}

// NewOracleAdapter creates the Oracle partner adapter.
func NewOracleAdapter(opts PartnerOptions) *PartnerAdapter {
	return &PartnerAdapter{
		name:      model.SourceOracle,
		organizer: "Oracle",
		baseURL:   opts.BaseURL,
		apiKey:    opts.APIKey,
		timeout:   45 * time.Second,
		samples:   oracleSampleEvents,
	}
}

// NewMGXAdapter creates the MGX partner adapter.
func NewMGXAdapter(opts PartnerOptions) *PartnerAdapter {
	return &PartnerAdapter{
		name:      model.SourceMGX,
		organizer: "MGX",
		baseURL:   opts.BaseURL,
		apiKey:    opts.APIKey,
		timeout:   20 * time.Second,
		samples:   mgxSampleEvents,
	}
}

// ID implements Adapter.
func (a *PartnerAdapter) ID() string { return a.name }

// Fetch implements Adapter.
func (a *PartnerAdapter) Fetch(ctx context.Context) ([]RawEvent, error) {
	if a.baseURL == "" {
		return a.samples(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s request: %v", ErrSourceUnavailable, a.name, err)
	}
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: a.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s call: %v", ErrSourceUnavailable, a.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s read: %v", ErrSourceUnavailable, a.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s status %d", ErrSourceUnavailable, a.name, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s: invalid JSON payload", ErrSourceUnavailable, a.name)
	}

	return a.parse(body), nil
}

// parse extracts events from a partner payload. Partners disagree on the
// envelope key and on field names, so probe the common variants.
func (a *PartnerAdapter) parse(body []byte) []RawEvent {
	root := gjson.ParseBytes(body)

	items := root.Get("events")
	if !items.Exists() {
		items = root.Get("items")
	}
	if !items.Exists() {
		items = root.Get("data")
	}
	if !items.IsArray() {
		return nil
	}

	var raws []RawEvent
	items.ForEach(func(_, item gjson.Result) bool {
		externalID := firstString(item, "id", "event_id", "eventId")
		title := firstString(item, "title", "name")
		if externalID == "" || title == "" {
			return true
		}

		raw := RawEvent{
			ExternalID: externalID,
			Title:      title,
			Category:   strPtr(model.CategoryAnnouncements),
			Type:       strPtr(model.TypeAnnouncement),
			Organizer:  strPtr(a.organizer),
		}
		if v := firstString(item, "description", "summary"); v != "" {
			raw.Description = strPtr(v)
		}
		if v := firstString(item, "date", "event_date", "start_date"); v != "" {
			raw.EventDate = strPtr(v)
		}
		if v := firstString(item, "time", "event_time", "start_time"); v != "" {
			raw.EventTime = strPtr(v)
		}
		if v := firstString(item, "location", "venue"); v != "" {
			raw.Location = strPtr(v)
		}
		if v := firstString(item, "url", "registration_url", "link"); v != "" {
			raw.RegistrationURL = strPtr(v)
		}
		raws = append(raws, raw)
		return true
	})
	return raws
}

// firstString returns the first non-empty string value among the given keys.
func firstString(item gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := item.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func softBankSampleEvents() []RawEvent {
	return []RawEvent{
		{
			ExternalID:  "sb-world-2026",
			Title:       "SoftBank World 2026",
			Description: strPtr("SoftBank's flagship technology conference."),
			Category:    strPtr(model.CategoryConferences),
			Type:        strPtr(model.TypeConference),
			EventDate:   strPtr("2026-10-01"),
			EventTime:   strPtr("10:00"),
			Location:    strPtr("Tokyo, Japan"),
			Organizer:   strPtr("SoftBank Group"),
			IsFeatured:  boolPtr(true),
		},
		{
			ExternalID:  "sb-cristal-kickoff",
			Title:       "Cristal Intelligence Partner Kickoff",
			Description: strPtr("Joint enterprise AI program launch with partner companies."),
			Category:    strPtr(model.CategoryCristal),
			Type:        strPtr(model.TypeMeeting),
			EventDate:   strPtr("2026-09-18"),
			EventTime:   strPtr("14:00"),
			Location:    strPtr("Tokyo, Japan"),
			Organizer:   strPtr("SoftBank Group"),
		},
	}
}

func oracleSampleEvents() []RawEvent {
	return []RawEvent{
		{
			ExternalID:  "ocw-2026",
			Title:       "Oracle CloudWorld 2026",
			Description: strPtr("Oracle's annual cloud and AI infrastructure conference."),
			Category:    strPtr(model.CategoryConferences),
			Type:        strPtr(model.TypeConference),
			EventDate:   strPtr("2026-10-26"),
			EventTime:   strPtr("09:00"),
			Location:    strPtr("Las Vegas, NV"),
			Organizer:   strPtr("Oracle"),
		},
		{
			ExternalID:  "oci-stargate-capacity",
			Title:       "OCI Capacity Update for Stargate",
			Description: strPtr("Data center capacity milestones for the Stargate program."),
			Category:    strPtr(model.CategoryStargate),
			Type:        strPtr(model.TypeAnnouncement),
			EventDate:   strPtr("2026-09-30"),
			Organizer:   strPtr("Oracle"),
		},
	}
}

func mgxSampleEvents() []RawEvent {
	return []RawEvent{
		{
			ExternalID:  "mgx-investment-forum",
			Title:       "MGX AI Infrastructure Investment Forum",
			Description: strPtr("Investment outlook for global AI infrastructure."),
			Category:    strPtr(model.CategoryMeetings),
			Type:        strPtr(model.TypeMeeting),
			EventDate:   strPtr("2026-11-03"),
			EventTime:   strPtr("11:00"),
			Location:    strPtr("Abu Dhabi, UAE"),
			Organizer:   strPtr("MGX"),
		},
	}
}
