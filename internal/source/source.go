// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

// Package source defines the provider adapters that fetch raw event records
// from external APIs, and the registry the sync orchestration iterates.
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrSourceUnavailable wraps any transport or payload failure from a provider.
// Sync treats it as "zero events, logged error" and moves on to the next
// source; it is never fatal.
var ErrSourceUnavailable = errors.New("source unavailable")

// RawEvent is one event record as supplied by a provider. ExternalID and
// Title are always present; everything else is optional and nil when the
// provider omitted it, so the merge can tell "absent" from "empty".
type RawEvent struct {
	ExternalID      string
	Title           string
	Description     *string
	Category        *string
	Type            *string
	EventDate       *string // YYYY-MM-DD
	EventTime       *string // HH:MM
	Location        *string
	Organizer       *string
	RegistrationURL *string
	VideoURL        *string
	IsFeatured      *bool
	Metadata        map[string]any
}

// Adapter fetches the current event feed for one provider. Implementations
// make a single attempt per call, bounded by their own HTTP timeout, and do
// not retry.
type Adapter interface {
	ID() string
	Fetch(ctx context.Context) ([]RawEvent, error)
}

// Registry maps source names to adapters and preserves registration order,
// which is the order sync iterates.
type Registry struct {
	order    []string
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter. Registering the same source twice is an error.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return errors.New("nil adapter")
	}
	name := a.ID()
	if name == "" {
		return errors.New("adapter has empty ID")
	}
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter %q already registered", name)
	}
	r.adapters[name] = a
	r.order = append(r.order, name)
	return nil
}

// Get returns the adapter for a source name, or nil if unknown.
func (r *Registry) Get(name string) Adapter {
	return r.adapters[name]
}

// Sources returns the registered source names in registration order.
func (r *Registry) Sources() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// SourcesSorted returns the registered source names alphabetically, for
// stable display in status responses.
func (r *Registry) SourcesSorted() []string {
	out := r.Sources()
	sort.Strings(out)
	return out
}

// strPtr and boolPtr build optional RawEvent fields from literals.
func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
