// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.
//
// The ai4all-network coordinator is free software: you can redistribute it
// and/or modify it under the terms of the GNU Lesser General Public License
// as published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The ai4all-network coordinator is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ai4all-network coordinator. If not, see
// <http://www.gnu.org/licenses/>.

// Package submission implements the per-submission state transitions
// of spec §4.4: canary pass/fail bookkeeping, reputation recomputation,
// and the batch processor that drives a day's submissions in order.
package submission

import (
	"github.com/ai4all-network/coordinator/internal/xerrors"
	"github.com/ai4all-network/coordinator/internal/xlog"
	"github.com/ai4all-network/coordinator/model"
	"github.com/ai4all-network/coordinator/points"
)

var logger = xlog.NewModuleLogger("submission")

// Outcome classifies what happened to one submission, used by the
// event builder to decide which domain events to append.
type Outcome int

const (
	Accepted Outcome = iota
	CanaryPassed
	CanaryFailed
)

// Result pairs an updated (cloned) contributor with what happened, so
// callers can append audit events without recomputing state.
type Result struct {
	Contributor *model.Contributor // the new value; the input is never mutated
	Outcome     Outcome
	Block       model.CompletedBlock
}

// Config is the slice of spec §6 knobs this package consumes.
type Config struct {
	CanaryFailurePenalty float64
}

// Apply processes a single submission against contributor, given
// whether blockId was selected as a canary for the day. It never
// mutates contributor; it always returns a new value.
func Apply(contributor *model.Contributor, sub model.Submission, isCanary bool, cfg Config) (*Result, error) {
	if contributor == nil {
		return nil, xerrors.New(xerrors.NotFound, "submission.Apply", "unknown contributorId")
	}
	if isCanary && sub.CanaryAnswerCorrect == nil {
		return nil, xerrors.New(xerrors.InvalidInput, "submission.Apply", "canary submission missing canaryAnswerCorrect")
	}

	next := contributor.Clone()

	block := model.CompletedBlock{
		BlockID:              sub.BlockID,
		BlockType:            sub.BlockType,
		ResourceUsage:        sub.ResourceUsage,
		DifficultyMultiplier: sub.DifficultyMultiplier,
		ValidationPassed:     sub.ValidationPassed,
		Timestamp:            sub.Timestamp,
		IsCanary:             isCanary,
	}
	if isCanary {
		correct := *sub.CanaryAnswerCorrect
		block.CanaryAnswerCorrect = &correct
	}
	next.Blocks = append(next.Blocks, block)

	outcome := Accepted
	if isCanary {
		if *sub.CanaryAnswerCorrect {
			next.CanaryPasses++
			outcome = CanaryPassed
			logger.Debug("canary passed", "contributorId", contributor.ID, "blockId", sub.BlockID)
		} else {
			next.CanaryFailures++
			t := sub.Timestamp
			next.LastCanaryFailureTime = &t
			// Validate the penalty arithmetic is well-formed now so a
			// bad config fails fast instead of surfacing later inside
			// isActive/RewardEngine; the base Reputation field itself
			// is never mutated, only the derived effective figure.
			if _, err := points.Reputation(contributor.Reputation, next.CanaryFailures, cfg.CanaryFailurePenalty); err != nil {
				return nil, err
			}
			outcome = CanaryFailed
			logger.Debug("canary failed", "contributorId", contributor.ID, "blockId", sub.BlockID, "failures", next.CanaryFailures)
		}
	}

	return &Result{Contributor: next, Outcome: outcome, Block: block}, nil
}

// BatchApply processes submissions in input order, threading the
// evolving contributor map forward. An unknown contributorId is a hard
// error, not a silent skip, per spec §4.4.
func BatchApply(contributors map[string]*model.Contributor, submissions []model.Submission, canarySet map[string]bool, cfg Config) (map[string]*model.Contributor, []Result, error) {
	working := make(map[string]*model.Contributor, len(contributors))
	for id, c := range contributors {
		working[id] = c
	}

	results := make([]Result, 0, len(submissions))
	for _, sub := range submissions {
		current, ok := working[sub.ContributorID]
		if !ok {
			return nil, nil, xerrors.New(xerrors.NotFound, "submission.BatchApply", "unknown contributorId: "+sub.ContributorID)
		}
		res, err := Apply(current, sub, canarySet[sub.BlockID], cfg)
		if err != nil {
			return nil, nil, err
		}
		working[sub.ContributorID] = res.Contributor
		results = append(results, *res)
	}
	return working, results, nil
}
