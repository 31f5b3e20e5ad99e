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

// Package reward implements the fixed-point pooled-reward distributor
// of spec §4.5: base pool + performance pool split, with an exact-sum
// verification step any caller can run independently. It is the
// ai4all-network analogue of the teacher's contracts/reward package,
// which minted and split a block reward between a proposer, the KIR
// fund and the PoC fund; here the two pools are the base pool (equal
// split among active contributors) and the performance pool (sqrt-weighted
// by reward points).
package reward

import (
	"math/big"
	"sort"
	"time"

	"github.com/ai4all-network/coordinator/fixedpoint"
	"github.com/ai4all-network/coordinator/internal/xerrors"
	"github.com/ai4all-network/coordinator/internal/xlog"
	"github.com/ai4all-network/coordinator/model"
	"github.com/ai4all-network/coordinator/points"
)

var logger = xlog.NewModuleLogger("reward")

// Config is the pool-split slice of spec §6's knobs.
type Config struct {
	DailyEmissions            float64 // in whole tokens
	BasePoolPercentage        float64
	PerformancePoolPercentage float64
	PerformanceLookback       time.Duration
	Points                    points.Config
}

// pctToNanoFraction renders a percentage as BigInt(floor(pct*1e6))/1e6,
// per spec §4.5, to keep the pool split itself exact integer arithmetic
// rather than floating point.
func pctToNanoFraction(totalNano *big.Int, pct float64) *big.Int {
	scaledPct := big.NewInt(int64(pct * 1e6))
	num := new(big.Int).Mul(totalNano, scaledPct)
	return num.Quo(num, big.NewInt(1e6))
}

// Distribution is the full result of one day's reward run.
type Distribution struct {
	DayID             string
	BasePoolNano      *big.Int
	PerformancePool   *big.Int
	Rewards           []model.ContributorReward
	ActiveContributor map[string]bool
}

// Distribute runs the daily reward flow of spec §4.5:
//  1. filter contributors by isActive(now)
//  2. equal-split the base pool among active contributors
//  3. sqrt-weight-split the performance pool by reward points
//  4. sum per account into a ContributorReward
func Distribute(dayID string, contributors []*model.Contributor, cfg Config, now time.Time) (*Distribution, error) {
	dailyNano, err := fixedpoint.ToNano(cfg.DailyEmissions)
	if err != nil {
		return nil, err
	}
	basePool := pctToNanoFraction(dailyNano, cfg.BasePoolPercentage)
	perfPool := pctToNanoFraction(dailyNano, cfg.PerformancePoolPercentage)

	sorted := append([]*model.Contributor(nil), contributors...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var active []*model.Contributor
	activeSet := make(map[string]bool)
	for _, c := range sorted {
		ok, err := points.IsActive(c, cfg.Points, now)
		if err != nil {
			return nil, err
		}
		if ok {
			active = append(active, c)
			activeSet[c.ID] = true
		}
	}

	if len(active) == 0 {
		logger.Info("no active contributors for day", "dayId", dayID)
		return &Distribution{DayID: dayID, BasePoolNano: basePool, PerformancePool: perfPool, ActiveContributor: activeSet}, nil
	}

	unitWeights := make([]*big.Int, len(active))
	for i := range active {
		unitWeights[i] = big.NewInt(1)
	}
	baseShares, err := fixedpoint.DistributeProportional(unitWeights, basePool)
	if err != nil {
		return nil, err
	}

	perfPointsNano := make([]*big.Int, len(active))
	for i, c := range active {
		raw, err := points.RewardPoints(c.Blocks, cfg.PerformanceLookback, now)
		if err != nil {
			return nil, err
		}
		pn, err := fixedpoint.ToNano(raw)
		if err != nil {
			return nil, err
		}
		perfPointsNano[i] = pn
	}
	perfShares, err := fixedpoint.DistributeSqrtWeighted(perfPointsNano, perfPool)
	if err != nil {
		return nil, err
	}

	rewards := make([]model.ContributorReward, len(active))
	for i, c := range active {
		total := new(big.Int).Add(baseShares[i], perfShares[i])
		rewards[i] = model.ContributorReward{
			AccountID:             c.ID,
			BasePoolReward:        baseShares[i],
			PerformancePoolReward: perfShares[i],
			TotalReward:           total,
			Reason:                "daily-distribution",
		}
	}

	dist := &Distribution{
		DayID:             dayID,
		BasePoolNano:      basePool,
		PerformancePool:   perfPool,
		Rewards:           rewards,
		ActiveContributor: activeSet,
	}

	if err := Verify(dist); err != nil {
		return nil, err
	}
	return dist, nil
}

// VerifyResult is the public verification report: where
// DistributeProportional/SqrtWeighted return an InvariantBug error on
// internal miscomputation, this lets an external caller ask "is this
// already-built distribution exact?" and get a plain {valid, error}
// value back.
type VerifyResult struct {
	Valid bool
	Error string
}

// Verify checks the exact-sum postcondition: Σ totalReward ==
// basePool + performancePool. Returns an error (xerrors.InvariantBug)
// if violated, since this indicates an implementation bug per spec §7.
func Verify(d *Distribution) error {
	expected := new(big.Int).Add(d.BasePoolNano, d.PerformancePool)
	sum := big.NewInt(0)
	for _, r := range d.Rewards {
		sum.Add(sum, r.TotalReward)
	}
	if sum.Cmp(expected) != 0 {
		return xerrors.New(xerrors.InvariantBug, "reward.Verify", "sum of totalReward does not equal basePool+performancePool")
	}
	return nil
}

// VerifyReport runs Verify and renders the result as a non-panicking
// report, the "separate public operation that returns {valid, error?}"
// spec §4.5 step 5 calls for.
func VerifyReport(d *Distribution) VerifyResult {
	if err := Verify(d); err != nil {
		return VerifyResult{Valid: false, Error: err.Error()}
	}
	return VerifyResult{Valid: true}
}
