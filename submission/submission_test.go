// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package submission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4all-network/coordinator/model"
)

func boolPtr(b bool) *bool { return &b }

func TestApplyNeverMutatesInput(t *testing.T) {
	original := &model.Contributor{ID: "alice", Reputation: 1.0}
	sub := model.Submission{
		ContributorID: "alice", BlockID: "block_1_1", BlockType: model.BlockInference,
		ResourceUsage: 1, DifficultyMultiplier: 1, ValidationPassed: true, Timestamp: time.Now(),
	}
	res, err := Apply(original, sub, false, Config{CanaryFailurePenalty: 0.1})
	require.NoError(t, err)

	assert.Len(t, original.Blocks, 0)
	assert.Len(t, res.Contributor.Blocks, 1)
	assert.NotSame(t, original, res.Contributor)
}

func TestApplyCanaryPass(t *testing.T) {
	c := &model.Contributor{ID: "alice", Reputation: 1.0}
	sub := model.Submission{
		ContributorID: "alice", BlockID: "block_1_1", BlockType: model.BlockInference,
		ResourceUsage: 1, DifficultyMultiplier: 1, ValidationPassed: true,
		CanaryAnswerCorrect: boolPtr(true), Timestamp: time.Now(),
	}
	res, err := Apply(c, sub, true, Config{CanaryFailurePenalty: 0.1})
	require.NoError(t, err)
	assert.Equal(t, CanaryPassed, res.Outcome)
	assert.Equal(t, 1, res.Contributor.CanaryPasses)
	assert.Equal(t, 0, res.Contributor.CanaryFailures)
}

func TestApplyCanaryFailSetsFailureTimeAndCount(t *testing.T) {
	c := &model.Contributor{ID: "alice", Reputation: 1.0}
	ts := time.Date(2026, 1, 28, 12, 0, 0, 0, time.UTC)
	sub := model.Submission{
		ContributorID: "alice", BlockID: "block_1_1", BlockType: model.BlockInference,
		ResourceUsage: 1, DifficultyMultiplier: 1, ValidationPassed: true,
		CanaryAnswerCorrect: boolPtr(false), Timestamp: ts,
	}
	res, err := Apply(c, sub, true, Config{CanaryFailurePenalty: 0.1})
	require.NoError(t, err)
	assert.Equal(t, CanaryFailed, res.Outcome)
	assert.Equal(t, 1, res.Contributor.CanaryFailures)
	require.NotNil(t, res.Contributor.LastCanaryFailureTime)
	assert.True(t, res.Contributor.LastCanaryFailureTime.Equal(ts))
}

func TestApplyCanaryMissingAnswerIsError(t *testing.T) {
	c := &model.Contributor{ID: "alice", Reputation: 1.0}
	sub := model.Submission{ContributorID: "alice", BlockID: "b", BlockType: model.BlockInference, ResourceUsage: 1, DifficultyMultiplier: 1, ValidationPassed: true, Timestamp: time.Now()}
	_, err := Apply(c, sub, true, Config{CanaryFailurePenalty: 0.1})
	require.Error(t, err)
}

func TestBatchApplyUnknownContributorIsError(t *testing.T) {
	contributors := map[string]*model.Contributor{"alice": {ID: "alice", Reputation: 1.0}}
	subs := []model.Submission{{ContributorID: "mallory", BlockID: "b", BlockType: model.BlockInference, ResourceUsage: 1, DifficultyMultiplier: 1, ValidationPassed: true, Timestamp: time.Now()}}

	_, _, err := BatchApply(contributors, subs, map[string]bool{}, Config{CanaryFailurePenalty: 0.1})
	require.Error(t, err)
}

func TestBatchApplyThreadsStateForward(t *testing.T) {
	contributors := map[string]*model.Contributor{"alice": {ID: "alice", Reputation: 1.0}}
	now := time.Now()
	subs := []model.Submission{
		{ContributorID: "alice", BlockID: "b1", BlockType: model.BlockInference, ResourceUsage: 1, DifficultyMultiplier: 1, ValidationPassed: true, Timestamp: now},
		{ContributorID: "alice", BlockID: "b2", BlockType: model.BlockInference, ResourceUsage: 1, DifficultyMultiplier: 1, ValidationPassed: true, Timestamp: now},
	}
	updated, results, err := BatchApply(contributors, subs, map[string]bool{}, Config{CanaryFailurePenalty: 0.1})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Len(t, updated["alice"].Blocks, 2)
	// original map's contributor must be untouched
	assert.Len(t, contributors["alice"].Blocks, 0)
}
