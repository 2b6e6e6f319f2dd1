// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"time"
)

// syncKeyPrefix namespaces sync summaries within the shared cache backend.
const syncKeyPrefix = "sync:"

// SyncSummary is the cached outcome of the most recent sync attempt for one
// source. It only gates outbound provider calls; event reads never consult it.
type SyncSummary struct {
	Source   string    `json:"source"`
	Status   string    `json:"status"` // "ok" or "error"
	Count    int       `json:"count"`
	Error    string    `json:"error,omitempty"`
	SyncedAt time.Time `json:"synced_at"`
}

// SyncCache stores per-source sync summaries with source-specific TTLs.
// Losing it is harmless: the next sync just re-fetches every source.
type SyncCache struct {
	cache      *TypedCache[SyncSummary]
	ttls       map[string]time.Duration
	defaultTTL time.Duration
}

// NewSyncCache creates a SyncCache over the given backend. ttls maps source
// names to their freshness windows; sources not listed use defaultTTL.
func NewSyncCache(backend Cacher, ttls map[string]time.Duration, defaultTTL time.Duration) *SyncCache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &SyncCache{
		cache:      NewTypedCache[SyncSummary](backend, defaultTTL),
		ttls:       ttls,
		defaultTTL: defaultTTL,
	}
}

// TTL returns the freshness window for a source.
func (c *SyncCache) TTL(source string) time.Duration {
	if ttl, ok := c.ttls[source]; ok && ttl > 0 {
		return ttl
	}
	return c.defaultTTL
}

// GetSummary returns the cached summary for a source, or nil if absent or
// older than the source's TTL.
func (c *SyncCache) GetSummary(ctx context.Context, source string) *SyncSummary {
	summary, ok := c.cache.Get(ctx, syncKeyPrefix+source)
	if !ok {
		return nil
	}
	// The backend already expires entries by TTL, but the summary carries its
	// own timestamp so a backend with a longer default TTL stays correct.
	if time.Since(summary.SyncedAt) >= c.TTL(source) {
		return nil
	}
	return summary
}

// PutSummary stores the summary for a source under its configured TTL.
func (c *SyncCache) PutSummary(ctx context.Context, summary SyncSummary) error {
	return c.cache.SetWithTTL(ctx, syncKeyPrefix+summary.Source, &summary, c.TTL(summary.Source))
}

// Invalidate drops the cached summary for one source.
func (c *SyncCache) Invalidate(ctx context.Context, source string) error {
	return c.cache.Delete(ctx, syncKeyPrefix+source)
}

// InvalidateAll drops the cached summaries for all given sources.
func (c *SyncCache) InvalidateAll(ctx context.Context, sources []string) error {
	for _, source := range sources {
		if err := c.Invalidate(ctx, source); err != nil {
			return err
		}
	}
	return nil
}
