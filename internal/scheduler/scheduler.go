// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// LateMarkSchedule runs the overdue medication check every five minutes.
const LateMarkSchedule = "*/5 * * * *"

// jobTimeout bounds a single run of a job.
const jobTimeout = 2 * time.Minute

// LateMarker flips overdue pending medications to late.
type LateMarker interface {
	MarkLateMedications(ctx context.Context, lateAfter time.Duration) (int, error)
}

// Scheduler handles scheduled tasks like marking overdue medications.
type Scheduler struct {
	marker    LateMarker
	lateAfter time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
}

// New creates a new scheduler instance.
func New(marker LateMarker, lateAfter time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		marker:    marker,
		lateAfter: lateAfter,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:    logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(LateMarkSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		s.RunLateMark(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		"jobs", len(s.cron.Entries()),
		"late_after", s.lateAfter.String(),
		"next_run", s.NextRun().Format(time.RFC3339))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// RunLateMark runs the overdue medication check once and returns how many
// medications were marked.
func (s *Scheduler) RunLateMark(ctx context.Context) int {
	n, err := s.marker.MarkLateMedications(ctx, s.lateAfter)
	if err != nil {
		s.logger.Error("failed to mark late medications", "error", err, "marked", n)
	}
	if n > 0 {
		s.logger.Info("medications marked late", "count", n)
	}
	return n
}

// NextRun reports when the late mark job fires next. It is zero before Start.
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
