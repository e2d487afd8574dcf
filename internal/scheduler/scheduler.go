// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the console's housekeeping jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lensfolio/folio-admin/internal/model"
)

// Default schedules.
const (
	SweepSchedule = "*/15 * * * *"
	PurgeSchedule = "30 3 * * *"
)

// Sweeper removes abandoned upload sets.
type Sweeper interface {
	Sweep(olderThan time.Duration) (int, error)
}

// EventPurger removes old activity log entries.
type EventPurger interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Config holds the retention windows of the jobs.
type Config struct {
	StagingTTL     time.Duration
	EventRetention time.Duration
}

// Scheduler handles periodic cleanup of staged uploads and old events.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	staging Sweeper
	events  EventPurger
	cfg     Config
}

// New creates a new scheduler instance. Either dependency may be nil to skip its job.
func New(staging Sweeper, events EventPurger, cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger,
		staging: staging,
		events:  events,
		cfg:     cfg,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.staging != nil && s.cfg.StagingTTL > 0 {
		if _, err := s.cron.AddFunc(SweepSchedule, s.SweepStaging); err != nil {
			return err
		}
	}
	if s.events != nil && s.cfg.EventRetention > 0 {
		if _, err := s.cron.AddFunc(PurgeSchedule, s.PurgeEvents); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// SweepStaging removes upload sets untouched for longer than the staging TTL.
func (s *Scheduler) SweepStaging() {
	n, err := s.staging.Sweep(s.cfg.StagingTTL)
	if err != nil {
		s.logger.Error("failed to sweep staged uploads", "error", err, "category", model.EventCategoryStaging)
	}
	if n > 0 {
		s.logger.Info("swept abandoned upload sets", "count", n)
	}
}

// PurgeEvents removes activity events older than the retention window.
func (s *Scheduler) PurgeEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.events.DeleteOldEvents(ctx, s.cfg.EventRetention)
	if err != nil {
		s.logger.Error("failed to purge old events", "error", err, "category", model.EventCategorySystem)
		return
	}
	if n > 0 {
		s.logger.Info("purged old events", "count", n, "retention", s.cfg.EventRetention)
	}
}
