// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package coordinator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4all-network/coordinator/assign"
	"github.com/ai4all-network/coordinator/auth"
	"github.com/ai4all-network/coordinator/model"
	"github.com/ai4all-network/coordinator/points"
	"github.com/ai4all-network/coordinator/reward"
	"github.com/ai4all-network/coordinator/store"
	"github.com/ai4all-network/coordinator/submission"
)

type fixtureKey struct {
	accountID string
	public    []byte
	private   []byte
}

func newFixtureKey(t *testing.T, accountID string) fixtureKey {
	t.Helper()
	pub, priv, err := auth.Ed25519GenerateKey()
	require.NoError(t, err)
	return fixtureKey{accountID: accountID, public: pub, private: priv}
}

func testCoordinator(t *testing.T, keys []fixtureKey) *Coordinator {
	t.Helper()

	lookup := make(map[string][]byte, len(keys))
	for _, k := range keys {
		lookup[k.accountID] = k.public
	}
	verifier := auth.NewVerifier(auth.Ed25519Verify, func(accountID string) ([]byte, bool) {
		pk, ok := lookup[accountID]
		return pk, ok
	})

	cache, err := points.NewWindowCache(0)
	require.NoError(t, err)

	eventFile, err := store.NewEventFile(filepath.Join(t.TempDir(), "events"))
	require.NoError(t, err)

	cfg := Config{
		Assign: assign.Config{
			DailyBlockQuota:         10,
			BatchSize:               5,
			NewContributorMinWeight: 0.1,
			PerformanceLookback:     30 * 24 * time.Hour,
			BaseCanaryPercentage:    0.1,
		},
		Points: points.Config{
			MinReliability:       0.0,
			MinBlocksForActive:   1,
			CanaryFailurePenalty: 0.1,
			CanaryBlockDuration:  24 * time.Hour,
			PerformanceLookback:  30 * 24 * time.Hour,
			BaseCanaryPercentage: 0.1,
			MaxCanaryPercentage:  0.5,
			MinCanaryPercentage:  0.05,
		},
		Submission: submission.Config{CanaryFailurePenalty: 0.1},
		Reward: reward.Config{
			DailyEmissions:            22000,
			BasePoolPercentage:        0.20,
			PerformancePoolPercentage: 0.80,
			PerformanceLookback:       30 * 24 * time.Hour,
			Points: points.Config{
				MinReliability:       0.0,
				MinBlocksForActive:   1,
				CanaryFailurePenalty: 0.1,
			},
		},
	}

	deps := Dependencies{
		Verifier:    verifier,
		WindowCache: cache,
		EventFile:   eventFile,
	}

	c := New(cfg, deps)
	now := time.Now()
	for _, k := range keys {
		require.NoError(t, c.RegisterContributor(k.accountID, k.public, now))
	}
	return c
}

func sign(t *testing.T, k fixtureKey, now time.Time) auth.Request {
	t.Helper()
	msg := auth.CanonicalMessage(k.accountID, now)
	sig := auth.Ed25519Sign(k.private, msg)
	return auth.Request{AccountID: k.accountID, Timestamp: now, Signature: sig}
}

func TestStartDayRejectsEmptyRoster(t *testing.T) {
	c := testCoordinator(t, nil)
	err := c.StartDay("2026-07-30", time.Now())
	assert.Error(t, err)
}

func TestFinalizeRejectsOutsideActive(t *testing.T) {
	c := testCoordinator(t, []fixtureKey{newFixtureKey(t, "alice")})
	err := c.Finalize(time.Now())
	assert.Error(t, err)
}

func TestFullDayLifecycleFinalizesAndCreditsBalance(t *testing.T) {
	now := time.Now()
	alice := newFixtureKey(t, "alice")
	bob := newFixtureKey(t, "bob")
	c := testCoordinator(t, []fixtureKey{alice, bob})

	require.NoError(t, c.StartDay("2026-07-30", now))
	status := c.GetStatus()
	assert.Equal(t, PhaseActive, status.Phase)
	assert.Equal(t, 2, status.RosterSize)

	blockID := c.assignments[0].BlockIDs[0]
	contributorID := c.assignments[0].ContributorID
	signer := alice
	if contributorID == bob.accountID {
		signer = bob
	}

	req := SubmissionRequest{
		Auth: sign(t, signer, now),
		Submission: model.Submission{
			ContributorID:        contributorID,
			BlockID:              blockID,
			BlockType:            model.BlockInference,
			ResourceUsage:        1.0,
			DifficultyMultiplier: 1.0,
			ValidationPassed:     true,
			Timestamp:            now,
		},
	}
	if c.canarySet[blockID] {
		ok := true
		req.Submission.CanaryAnswerCorrect = &ok
	}
	require.NoError(t, c.AcceptSubmission(req, now))

	// duplicate submission for the same blockId is rejected
	assert.Error(t, c.AcceptSubmission(req, now))

	require.NoError(t, c.Finalize(now))

	status = c.GetStatus()
	assert.Equal(t, PhaseIdle, status.Phase)
	assert.NotEmpty(t, status.LastEventHash)
	assert.Equal(t, int64(1), status.LastBlockNumber)

	ledger := c.GetLedger()
	require.NotNil(t, ledger)
	assert.True(t, ledger.GetBalance(contributorID).Sign() > 0)
}

func TestAcceptSubmissionRejectsTamperedSignature(t *testing.T) {
	now := time.Now()
	alice := newFixtureKey(t, "alice")
	c := testCoordinator(t, []fixtureKey{alice})
	require.NoError(t, c.StartDay("2026-07-30", now))

	req := sign(t, alice, now)
	req.Signature[0] ^= 0xFF

	err := c.AcceptSubmission(SubmissionRequest{
		Auth: req,
		Submission: model.Submission{
			ContributorID:        alice.accountID,
			BlockID:              c.assignments[0].BlockIDs[0],
			BlockType:            model.BlockInference,
			ResourceUsage:        1.0,
			DifficultyMultiplier: 1.0,
			ValidationPassed:     true,
			Timestamp:            now,
		},
	}, now)
	assert.Error(t, err)
}
