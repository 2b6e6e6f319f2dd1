// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic background jobs: provider syncs,
// audit log retention, and rate limiter cleanup.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/aihubjp/eventhub/internal/middleware"
	"github.com/aihubjp/eventhub/internal/service"
)

// Options configures the scheduler jobs.
type Options struct {
	// SyncSpec is the cron expression for the periodic provider sync.
	SyncSpec string
	// AuditRetentionDays controls how long audit entries are kept.
	AuditRetentionDays int
	// RateLimiter is cleaned up daily when set.
	RateLimiter *middleware.GlobalRateLimiter
}

// Scheduler runs the periodic sync and housekeeping jobs.
type Scheduler struct {
	sync   *service.SyncService
	audit  *service.AuditService
	opts   Options
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a new scheduler instance.
func New(sync *service.SyncService, audit *service.AuditService, opts Options, logger *slog.Logger) *Scheduler {
	if opts.SyncSpec == "" {
		opts.SyncSpec = "@hourly"
	}
	if opts.AuditRetentionDays <= 0 {
		opts.AuditRetentionDays = 90
	}
	return &Scheduler{
		sync:   sync,
		audit:  audit,
		opts:   opts,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.opts.SyncSpec, s.runSync)
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc("@daily", s.runHousekeeping)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()), "sync_spec", s.opts.SyncSpec)
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// runSync performs the periodic provider sync. The sync cache makes this
// cheap for sources still within their TTL.
func (s *Scheduler) runSync() {
	summaries := s.sync.SyncAll(context.Background(), false)

	var failed int
	for _, summary := range summaries {
		if summary.Status == "error" {
			failed++
		}
	}
	s.logger.Info("scheduled sync finished", "sources", len(summaries), "failed", failed)
}

// runHousekeeping trims the audit log and resets the rate limiter cache.
func (s *Scheduler) runHousekeeping() {
	if err := s.audit.CleanupOld(context.Background(), s.opts.AuditRetentionDays); err != nil {
		s.logger.Error("failed to trim audit log", "error", err)
	}

	if s.opts.RateLimiter != nil && s.opts.RateLimiter.Cleanup(10000) {
		s.logger.Info("rate limiter cache cleared")
	}
}
