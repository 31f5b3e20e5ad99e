// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package eventlog

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4all-network/coordinator/model"
	"github.com/ai4all-network/coordinator/reward"
	"github.com/ai4all-network/coordinator/submission"
)

func TestBuildDayBurstProducesValidChain(t *testing.T) {
	now := time.Date(2026, 1, 28, 12, 0, 0, 0, time.UTC)

	assignments := []model.BlockAssignment{
		{ContributorID: "alice", BlockIDs: []string{"block_1_1"}, AssignedAt: now, BatchNumber: 1},
	}
	sub := model.Submission{ContributorID: "alice", BlockID: "block_1_1", BlockType: model.BlockInference, ResourceUsage: 1, DifficultyMultiplier: 1, ValidationPassed: true, Timestamp: now}
	res := submission.Result{
		Contributor: &model.Contributor{ID: "alice", Reputation: 1.0},
		Outcome:     submission.Accepted,
		Block:       model.CompletedBlock{BlockID: "block_1_1", BlockType: model.BlockInference, ValidationPassed: true, Timestamp: now},
	}

	dist := &reward.Distribution{
		DayID:           "2026-01-28",
		BasePoolNano:    big.NewInt(1000),
		PerformancePool: big.NewInt(0),
		Rewards: []model.ContributorReward{
			{AccountID: "alice", BasePoolReward: big.NewInt(1000), PerformancePoolReward: big.NewInt(0), TotalReward: big.NewInt(1000), Reason: "daily-distribution"},
		},
	}

	events, err := BuildDayBurst(BurstInput{
		DayID:             "2026-01-28",
		PrevLastEventHash: GenesisHash,
		Assignments:       assignments,
		CanaryBlockIDs:    nil,
		Submissions:       []model.Submission{sub},
		SubmissionResults: []submission.Result{res},
		Distribution:      dist,
		RewardHash:        "deadbeef",
		Now:               now,
	})
	require.NoError(t, err)

	// WORK_ASSIGNED, CANARIES_SELECTED, RECEIVED, PROCESSED, DAY_FINALIZED, REWARDS_COMMITTED
	require.Len(t, events, 6)
	assert.Equal(t, WorkAssigned, events[0].EventType)
	assert.Equal(t, CanariesSelected, events[1].EventType)
	assert.Equal(t, SubmissionReceived, events[2].EventType)
	assert.Equal(t, SubmissionProcessed, events[3].EventType)
	assert.Equal(t, DayFinalized, events[4].EventType)
	assert.Equal(t, RewardsCommitted, events[5].EventType)

	for i, ev := range events {
		assert.Equal(t, int64(i), ev.SequenceNumber)
	}

	brokenAt, err := VerifyChain(events, GenesisHash)
	require.NoError(t, err)
	assert.Equal(t, -1, brokenAt)

	// REWARDS_COMMITTED references DAY_FINALIZED's own hash, not its own.
	assert.Equal(t, events[4].EventHash, events[5].Payload["lastEventHash"])
}

func TestBuildDayBurstEmitsCanaryOutcomeEvent(t *testing.T) {
	now := time.Date(2026, 1, 28, 12, 0, 0, 0, time.UTC)
	correct := false
	sub := model.Submission{ContributorID: "alice", BlockID: "block_1_1", BlockType: model.BlockInference, ResourceUsage: 1, DifficultyMultiplier: 1, ValidationPassed: true, CanaryAnswerCorrect: &correct, Timestamp: now}
	failTime := now
	res := submission.Result{
		Contributor: &model.Contributor{ID: "alice", Reputation: 1.0, CanaryFailures: 1, LastCanaryFailureTime: &failTime},
		Outcome:     submission.CanaryFailed,
		Block:       model.CompletedBlock{BlockID: "block_1_1", IsCanary: true, CanaryAnswerCorrect: &correct, Timestamp: now},
	}
	dist := &reward.Distribution{DayID: "2026-01-28", BasePoolNano: big.NewInt(0), PerformancePool: big.NewInt(0)}

	events, err := BuildDayBurst(BurstInput{
		DayID:             "2026-01-28",
		PrevLastEventHash: GenesisHash,
		CanaryBlockIDs:    []string{"block_1_1"},
		Submissions:       []model.Submission{sub},
		SubmissionResults: []submission.Result{res},
		Distribution:      dist,
		RewardHash:        "abc",
		Now:               now,
	})
	require.NoError(t, err)

	// CANARIES_SELECTED, RECEIVED, PROCESSED, CANARY_FAILED, DAY_FINALIZED, REWARDS_COMMITTED
	require.Len(t, events, 6)
	assert.Equal(t, CanaryFailed, events[3].EventType)
	assert.Equal(t, 1, events[3].Payload["canaryFailures"])
}
