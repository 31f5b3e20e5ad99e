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

// Package assign implements the weighted block-assignment lottery and
// deterministic canary selection of spec §4.3.
package assign

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	set "gopkg.in/fatih/set.v0"

	"github.com/ai4all-network/coordinator/internal/xerrors"
	"github.com/ai4all-network/coordinator/internal/xlog"
	"github.com/ai4all-network/coordinator/model"
	"github.com/ai4all-network/coordinator/points"
)

var logger = xlog.NewModuleLogger("assign")

// Config carries the assignment-relevant knobs of spec §6.
type Config struct {
	DailyBlockQuota         int
	BatchSize               int
	NewContributorMinWeight float64
	PerformanceLookback     time.Duration
	BaseCanaryPercentage    float64
}

// Weight computes max(sqrt(30-day performance), minWeight) * reputation,
// the Sybil-attenuating weight spec §4.3 assigns each contributor. If
// roster is non-nil, a prior cached weight for (dayID, c.ID) is reused
// and a freshly computed one is cached back, so a caller that needs
// the day's weights more than once (e.g. to log the distribution
// alongside WORK_ASSIGNED) never recomputes the sqrt/window lookup.
func Weight(c *model.Contributor, cfg Config, cache *points.WindowCache, dayID string, now time.Time, roster *RosterCache) (float64, error) {
	if roster != nil {
		if cached, ok := roster.Get(dayID, c.ID); ok {
			return cached, nil
		}
	}
	perf, err := cache.Get(dayID, c, cfg.PerformanceLookback, now)
	if err != nil {
		return 0, err
	}
	sqrtPerf := sqrtFloat(perf)
	base := sqrtPerf
	if base < cfg.NewContributorMinWeight {
		base = cfg.NewContributorMinWeight
	}
	weight := base * c.Reputation
	if roster != nil {
		roster.Put(dayID, c.ID, weight)
	}
	return weight, nil
}

func sqrtFloat(x float64) float64 {
	if x <= 0 {
		return 0
	}
	// Newton's method in float64; adequate for lottery weighting where
	// only the relative magnitude matters, unlike fixedpoint.SqrtInt
	// which must be exact for nanounit splitting.
	z := x
	for i := 0; i < 32; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// Distribute runs dailyBlockQuota/batchSize independent weighted
// lottery draws (cumulative-weight walk seeded from the day seed) and
// returns exactly one BlockAssignment per batch, naming that batch's
// winner; a contributor who wins several batches gets one entry per
// batch won. roster may be nil; when provided it caches each
// contributor's weight for the day.
func Distribute(contributors []*model.Contributor, cfg Config, cache *points.WindowCache, dayID string, seed int64, assignedAt time.Time, roster *RosterCache) ([]model.BlockAssignment, error) {
	if len(contributors) == 0 {
		return nil, xerrors.New(xerrors.InvalidInput, "assign.Distribute", "empty roster")
	}
	if cfg.BatchSize <= 0 {
		return nil, xerrors.New(xerrors.InvalidInput, "assign.Distribute", "batchSize must be positive")
	}

	sorted := append([]*model.Contributor(nil), contributors...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	weights := make([]float64, len(sorted))
	sumWeight := 0.0
	for i, c := range sorted {
		w, err := Weight(c, cfg, cache, dayID, assignedAt, roster)
		if err != nil {
			return nil, err
		}
		weights[i] = w
		sumWeight += w
	}

	numBatches := cfg.DailyBlockQuota / cfg.BatchSize
	logger.Debug("distributing batches", "dayId", dayID, "contributors", len(sorted), "batches", numBatches, "sumWeight", sumWeight)
	picker := rand.New(rand.NewSource(seed))

	assignments := make([]model.BlockAssignment, 0, numBatches)
	for batch := 1; batch <= numBatches; batch++ {
		winner := pickWeighted(sorted, weights, sumWeight, picker)
		blockIDs := make([]string, cfg.BatchSize)
		for slot := 1; slot <= cfg.BatchSize; slot++ {
			blockIDs[slot-1] = fmt.Sprintf("block_%d_%d", batch, slot)
		}
		assignments = append(assignments, model.BlockAssignment{
			ContributorID: winner.ID,
			BlockIDs:      blockIDs,
			AssignedAt:    assignedAt,
			BatchNumber:   batch,
		})
	}
	return assignments, nil
}

// pickWeighted performs the cumulative-weight walk: draw in
// [0, sumWeight), return the first contributor whose cumulative weight
// exceeds the draw; on floating-point fallthrough (the draw lands past
// every cumulative weight due to rounding) the last contributor wins.
func pickWeighted(contributors []*model.Contributor, weights []float64, sumWeight float64, picker *rand.Rand) *model.Contributor {
	if sumWeight <= 0 {
		return contributors[picker.Intn(len(contributors))]
	}
	draw := picker.Float64() * sumWeight
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if draw < cumulative {
			return contributors[i]
		}
	}
	return contributors[len(contributors)-1]
}

// mixBlockIDSeed folds a blockId's character codes into a 32-bit seed
// via a small bitwise mix, then XORs it with the day's configured
// seed, as spec §4.3/§9 requires (the seed XOR is mandatory for the
// daily roster, derived from the coordinator's day seed).
func mixBlockIDSeed(blockID string, daySeed int64) int64 {
	var h uint32 = 2166136261 // FNV-ish offset basis, bit-mixed below
	for i := 0; i < len(blockID); i++ {
		h ^= uint32(blockID[i])
		h *= 16777619
		h = (h << 13) | (h >> 19)
	}
	return int64(h) ^ daySeed
}

// lcgNext advances a simple linear congruential generator (Numerical
// Recipes constants) and returns its output mapped into [0,1).
func lcgNext(state int64) (next int64, value float64) {
	const (
		a = 1664525
		c = 1013904223
		m = 1 << 32
	)
	next = (a*state + c) % m
	if next < 0 {
		next += m
	}
	return next, float64(next) / float64(m)
}

// SelectCanaries deterministically derives, for each blockId, an LCG
// seed mixed with daySeed; the block is canary iff the first LCG draw
// is below percentage. The returned set is unordered; callers that
// need a stable order sort its members themselves.
func SelectCanaries(blockIDs []string, daySeed int64, percentage float64) *set.Set {
	canaries := set.New()
	for _, id := range blockIDs {
		seed := mixBlockIDSeed(id, daySeed)
		_, draw := lcgNext(seed)
		if draw < percentage {
			canaries.Add(id)
		}
	}
	return canaries
}
