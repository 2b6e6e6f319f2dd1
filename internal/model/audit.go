// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Audit levels
const (
	AuditLevelInfo    = "info"
	AuditLevelWarning = "warning"
	AuditLevelError   = "error"
)

// Audit categories
const (
	AuditCategorySync   = "sync"
	AuditCategoryEvent  = "event"
	AuditCategoryCache  = "cache"
	AuditCategorySystem = "system"
)

// AuditEntry represents a system audit log row.
type AuditEntry struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Metadata  string // JSON string
	CreatedAt time.Time
}
