// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package reward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4all-network/coordinator/model"
	"github.com/ai4all-network/coordinator/points"
)

func testConfig() Config {
	return Config{
		DailyEmissions:            22000,
		BasePoolPercentage:        0.20,
		PerformancePoolPercentage: 0.80,
		PerformanceLookback:       30 * 24 * time.Hour,
		Points: points.Config{
			MinReliability:       0.0,
			MinBlocksForActive:   1,
			CanaryFailurePenalty: 0.1,
		},
	}
}

func activeContributor(id string, difficultyPoints float64, now time.Time) *model.Contributor {
	return &model.Contributor{
		ID:         id,
		Reputation: 1.0,
		Blocks: []model.CompletedBlock{
			{
				BlockType:            model.BlockInference,
				ResourceUsage:        1,
				DifficultyMultiplier: difficultyPoints / model.BasePoints[model.BlockInference],
				ValidationPassed:     true,
				Timestamp:            now,
			},
		},
	}
}

// Scenario 1 (spec §8): a single active contributor receives the
// entire daily emission, exactly, with no remainder dropped or leaked.
func TestDistributeSingleContributorGetsFullEmission(t *testing.T) {
	now := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	contributors := []*model.Contributor{activeContributor("alice", 10, now)}

	dist, err := Distribute("2026-01-28", contributors, testConfig(), now)
	require.NoError(t, err)
	require.Len(t, dist.Rewards, 1)

	wantNano := int64(22000) * 1_000_000_000
	assert.Equal(t, wantNano, dist.Rewards[0].TotalReward.Int64())

	report := VerifyReport(dist)
	assert.True(t, report.Valid)
}

// Scenario 4 (spec §8): three contributors with performance weights
// 130/60/10 split the pool with no unit lost or duplicated.
func TestDistributeExactSumUnderSkewedWeights(t *testing.T) {
	now := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	contributors := []*model.Contributor{
		activeContributor("alice", 130, now),
		activeContributor("bob", 60, now),
		activeContributor("carol", 10, now),
	}

	dist, err := Distribute("2026-01-28", contributors, testConfig(), now)
	require.NoError(t, err)
	require.Len(t, dist.Rewards, 3)

	report := VerifyReport(dist)
	assert.True(t, report.Valid, report.Error)

	// alice should out-earn bob, bob should out-earn carol.
	byID := make(map[string]*model.ContributorReward)
	for i := range dist.Rewards {
		byID[dist.Rewards[i].AccountID] = &dist.Rewards[i]
	}
	assert.True(t, byID["alice"].TotalReward.Cmp(byID["bob"].TotalReward) > 0)
	assert.True(t, byID["bob"].TotalReward.Cmp(byID["carol"].TotalReward) > 0)
}

func TestDistributeNoActiveContributorsYieldsEmptyRewardsNoError(t *testing.T) {
	now := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	inactive := &model.Contributor{ID: "dave", Reputation: 1.0} // no blocks => fails minBlocksForActive
	dist, err := Distribute("2026-01-28", []*model.Contributor{inactive}, testConfig(), now)
	require.NoError(t, err)
	assert.Len(t, dist.Rewards, 0)
}

func TestVerifyReportCatchesTamperedSum(t *testing.T) {
	now := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	contributors := []*model.Contributor{activeContributor("alice", 10, now)}
	dist, err := Distribute("2026-01-28", contributors, testConfig(), now)
	require.NoError(t, err)

	dist.Rewards[0].TotalReward.Add(dist.Rewards[0].TotalReward, dist.Rewards[0].TotalReward)
	report := VerifyReport(dist)
	assert.False(t, report.Valid)
	assert.NotEmpty(t, report.Error)
}
