// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package coordinator

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ai4all-network/coordinator/internal/xerrors"
)

// ScheduleConfig names the two cron triggers spec §4.9 calls for.
type ScheduleConfig struct {
	StartCron    string // e.g. "0 0 * * *" - fires StartDay
	FinalizeCron string // e.g. "0 0 * * *" the following UTC day - fires Finalize
	DayID        func(now time.Time) string
}

// Scheduler wraps a Coordinator with the two cron triggers. A skipped
// tick (wrong phase, empty roster) is logged and ignored rather than
// propagated, per spec §4.9.
type Scheduler struct {
	coord *Coordinator
	cron  *cron.Cron
	dayID func(now time.Time) string
}

// NewScheduler registers the start/finalize cron entries against coord.
func NewScheduler(coord *Coordinator, cfg ScheduleConfig) (*Scheduler, error) {
	dayIDFn := cfg.DayID
	if dayIDFn == nil {
		dayIDFn = func(now time.Time) string { return now.UTC().Format("2006-01-02") }
	}

	s := &Scheduler{coord: coord, cron: cron.New(), dayID: dayIDFn}

	if _, err := s.cron.AddFunc(cfg.StartCron, s.tickStart); err != nil {
		return nil, xerrors.Wrap(xerrors.InvalidInput, "coordinator.NewScheduler", err)
	}
	if _, err := s.cron.AddFunc(cfg.FinalizeCron, s.tickFinalize); err != nil {
		return nil, xerrors.Wrap(xerrors.InvalidInput, "coordinator.NewScheduler", err)
	}
	return s, nil
}

func (s *Scheduler) tickStart() {
	now := time.Now()
	if err := s.coord.StartDay(s.dayID(now), now); err != nil {
		logger.Warn("scheduled startDay skipped", "error", err)
	}
}

func (s *Scheduler) tickFinalize() {
	now := time.Now()
	if err := s.coord.Finalize(now); err != nil {
		logger.Warn("scheduled finalize skipped", "error", err)
	}
}

// Start begins firing the registered cron triggers in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler, waiting for any in-flight tick to finish.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }
