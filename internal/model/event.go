// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application.
package model

import (
	"database/sql"
	"time"
)

// Event sources
const (
	SourceInternal = "internal"
	SourceOpenAI   = "openai"
	SourceGemini   = "gemini"
	SourceCohere   = "cohere"
	SourceSoftBank = "softbank"
	SourceOracle   = "oracle"
	SourceMGX      = "mgx"
)

// Event categories
const (
	CategoryStargate      = "stargate"
	CategoryCristal       = "cristal"
	CategoryConferences   = "conferences"
	CategoryMeetings      = "meetings"
	CategoryAnnouncements = "announcements"
)

// Event types
const (
	TypeConference   = "conference"
	TypeMeeting      = "meeting"
	TypeAnnouncement = "announcement"
	TypeWorkshop     = "workshop"
	TypeVideo        = "video"
)

// ExternalSources lists every source that is populated by sync, in the order
// sync iterates them. Internal events are never touched by sync.
func ExternalSources() []string {
	return []string{
		SourceOpenAI,
		SourceGemini,
		SourceCohere,
		SourceSoftBank,
		SourceOracle,
		SourceMGX,
	}
}

// IsExternalSource reports whether name is a known sync-managed source.
func IsExternalSource(name string) bool {
	for _, s := range ExternalSources() {
		if s == name {
			return true
		}
	}
	return false
}

// IsValidCategory reports whether name is a known event category.
func IsValidCategory(name string) bool {
	switch name {
	case CategoryStargate, CategoryCristal, CategoryConferences, CategoryMeetings, CategoryAnnouncements:
		return true
	}
	return false
}

// IsValidType reports whether name is a known event type.
func IsValidType(name string) bool {
	switch name {
	case TypeConference, TypeMeeting, TypeAnnouncement, TypeWorkshop, TypeVideo:
		return true
	}
	return false
}

// Event represents a single event row, either created internally by an
// organizer or merged from an external provider feed.
type Event struct {
	ID              int64          `json:"id"`
	ExternalID      sql.NullString `json:"-"`
	Source          string         `json:"source"`
	Slug            sql.NullString `json:"-"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Category        string         `json:"category"`
	Type            string         `json:"type"`
	EventDate       string         `json:"event_date"` // YYYY-MM-DD
	EventTime       string         `json:"event_time"` // HH:MM, may be empty
	Location        string         `json:"location"`
	Organizer       string         `json:"organizer"`
	OrganizerID     sql.NullInt64  `json:"-"`
	RegistrationURL string         `json:"registration_url,omitempty"`
	VideoURL        string         `json:"video_url,omitempty"`
	IsFeatured      bool           `json:"is_featured"`
	IsActive        bool           `json:"is_active"`
	LastSyncedAt    sql.NullTime   `json:"-"`
	Metadata        string         `json:"-"` // JSON string
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// IsInternal returns true if the event was created by an organizer rather
// than merged from a provider.
func (e *Event) IsInternal() bool {
	return e.Source == SourceInternal
}

// IsUpcoming returns true if the event date is today or later.
func (e *Event) IsUpcoming(today time.Time) bool {
	return e.EventDate >= today.Format("2006-01-02")
}
