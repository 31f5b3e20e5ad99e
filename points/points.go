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

// Package points implements per-block scoring, reputation arithmetic,
// and the active/blocked predicates of spec §4.2.
package points

import (
	"time"

	"github.com/ai4all-network/coordinator/internal/xerrors"
	"github.com/ai4all-network/coordinator/internal/xlog"
	"github.com/ai4all-network/coordinator/model"
)

var logger = xlog.NewModuleLogger("points")

// Config carries the knobs from spec §6 this package consumes.
type Config struct {
	MinReliability        float64
	MinBlocksForActive    int
	CanaryFailurePenalty  float64
	CanaryBlockDuration   time.Duration
	PerformanceLookback   time.Duration
	BaseCanaryPercentage  float64
	CanaryIncreasePerFail float64
	CanaryDecreasePerPass float64
	MaxCanaryPercentage   float64
	MinCanaryPercentage   float64
}

// BlockScore computes a single block's raw score:
// base[blockType] * resourceUsage * difficultyMultiplier * (validationPassed ? 1 : 0),
// forced to 0 if it is a canary block with an incorrect answer.
func BlockScore(b model.CompletedBlock) (float64, error) {
	if b.ResourceUsage < 0 || b.ResourceUsage > 1 {
		return 0, xerrors.New(xerrors.InvalidInput, "points.BlockScore", "resourceUsage out of [0,1]")
	}
	if b.DifficultyMultiplier < 1 {
		return 0, xerrors.New(xerrors.InvalidInput, "points.BlockScore", "difficultyMultiplier below 1.0")
	}
	if b.IsCanary && b.CanaryAnswerCorrect == nil {
		return 0, xerrors.New(xerrors.InvalidInput, "points.BlockScore", "canary block missing canaryAnswerCorrect")
	}

	base, ok := model.BasePoints[b.BlockType]
	if !ok {
		return 0, xerrors.New(xerrors.InvalidInput, "points.BlockScore", "unknown blockType: "+string(b.BlockType))
	}

	if b.IsCanary && !*b.CanaryAnswerCorrect {
		return 0, nil
	}
	if !b.ValidationPassed {
		return 0, nil
	}
	return base * b.ResourceUsage * b.DifficultyMultiplier, nil
}

// RewardPoints sums block scores for the blocks that are eligible to
// feed the performance reward pool: every canary block (passed or
// failed) is excluded, and if lookback > 0 only blocks whose timestamp
// falls in [now-lookback, now] count.
func RewardPoints(blocks []model.CompletedBlock, lookback time.Duration, now time.Time) (float64, error) {
	var total float64
	var windowStart time.Time
	hasWindow := lookback > 0
	if hasWindow {
		windowStart = now.Add(-lookback)
	}

	for _, b := range blocks {
		if b.IsCanary {
			continue
		}
		if hasWindow && (b.Timestamp.Before(windowStart) || b.Timestamp.After(now)) {
			continue
		}
		score, err := BlockScore(b)
		if err != nil {
			return 0, err
		}
		total += score
	}
	return total, nil
}

// Reputation applies the canary-failure penalty to a base reputation:
// max(0, base - failures*penalty). Reputation never goes negative and
// no hard ban is ever applied by this arithmetic.
func Reputation(base float64, failures int, penalty float64) (float64, error) {
	if base < 0 || base > 1 {
		return 0, xerrors.New(xerrors.InvalidInput, "points.Reputation", "base reputation out of [0,1]")
	}
	if failures < 0 {
		return 0, xerrors.New(xerrors.InvalidInput, "points.Reputation", "negative failure count")
	}
	r := base - float64(failures)*penalty
	if r < 0 {
		r = 0
	}
	return r, nil
}

// lastCanaryFailure resolves the effective last-failure time: the
// cached field if present, else the block-derived max, per spec §3's
// invariant that the two must agree.
func lastCanaryFailure(c *model.Contributor) *time.Time {
	if c.LastCanaryFailureTime != nil {
		return c.LastCanaryFailureTime
	}
	return c.DerivedLastCanaryFailureTime()
}

// IsActive evaluates the four independent predicates of spec §4.2, in
// order, short-circuiting on the first that fails.
func IsActive(c *model.Contributor, cfg Config, now time.Time) (bool, error) {
	// 1. Not blocked by a recent canary failure. At exactly the
	// configured duration the contributor is already unblocked.
	if failedAt := lastCanaryFailure(c); failedAt != nil {
		since := now.Sub(*failedAt)
		if since < cfg.CanaryBlockDuration {
			return false, nil
		}
	}

	// 2. Effective reputation after penalty >= minReliability.
	rep, err := Reputation(c.Reputation, c.CanaryFailures, cfg.CanaryFailurePenalty)
	if err != nil {
		return false, err
	}
	if rep < cfg.MinReliability {
		return false, nil
	}

	// 3. Number of validated blocks >= minBlocksForActive.
	validated := 0
	for _, b := range c.Blocks {
		if b.ValidationPassed {
			validated++
		}
	}
	if validated < cfg.MinBlocksForActive {
		return false, nil
	}

	// 4. Effective (reputation-scaled) compute points > 0.
	raw, err := RewardPoints(c.Blocks, cfg.PerformanceLookback, now)
	if err != nil {
		return false, err
	}
	if raw*rep <= 0 {
		return false, nil
	}

	return true, nil
}

// DynamicCanaryRate computes clamp(base + failures*up - passes*down, min, max).
func DynamicCanaryRate(cfg Config, failures, passes int) float64 {
	rate := cfg.BaseCanaryPercentage + float64(failures)*cfg.CanaryIncreasePerFail - float64(passes)*cfg.CanaryDecreasePerPass
	if rate < cfg.MinCanaryPercentage {
		rate = cfg.MinCanaryPercentage
	}
	if rate > cfg.MaxCanaryPercentage {
		rate = cfg.MaxCanaryPercentage
	}
	return rate
}

// PerformanceWindowSum is the 30-day (or configured lookback) raw
// performance figure the BlockAssigner weights its lottery on. It
// intentionally includes canary blocks (unlike RewardPoints), matching
// spec §4.3's "30-day performance is the sum of raw block points".
func PerformanceWindowSum(blocks []model.CompletedBlock, lookback time.Duration, now time.Time) (float64, error) {
	var total float64
	windowStart := now.Add(-lookback)
	for _, b := range blocks {
		if b.Timestamp.Before(windowStart) || b.Timestamp.After(now) {
			continue
		}
		score, err := BlockScore(b)
		if err != nil {
			logger.Debug("skipping invalid block in performance window", "contributorBlock", b.BlockType, "err", err)
			continue
		}
		total += score
	}
	return total, nil
}
