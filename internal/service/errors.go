// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExternalEvent is returned when a write targets an event owned by a
	// provider feed. Externally sourced events can only be hidden, not
	// edited or deleted, since the next sync would resurrect them.
	ErrExternalEvent = errors.New("event is managed by an external source")
)

// ValidationError reports an invalid field in a write request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
