// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package eventlog

import (
	"sort"
	"time"

	"github.com/ai4all-network/coordinator/model"
	"github.com/ai4all-network/coordinator/reward"
	"github.com/ai4all-network/coordinator/submission"
)

// BurstInput is everything one finalized day needs to render into the
// ordered event burst of spec §4.6.
type BurstInput struct {
	DayID             string
	PrevLastEventHash string // GenesisHash for the network's first day, else the prior day's last event hash
	Assignments       []model.BlockAssignment
	CanaryBlockIDs    []string
	Submissions       []model.Submission
	SubmissionResults []submission.Result // same order as Submissions
	Distribution      *reward.Distribution
	RewardRoot        string
	RewardHash        string
	Now               time.Time
}

// BuildDayBurst renders the strictly ordered per-day event sequence:
// WORK_ASSIGNED, CANARIES_SELECTED, per-submission triples, DAY_FINALIZED,
// REWARDS_COMMITTED. The returned events already carry consistent
// sequenceNumber/prevEventHash/eventHash chaining.
func BuildDayBurst(in BurstInput) ([]DomainEvent, error) {
	appender := NewAppender(in.DayID, 0, in.PrevLastEventHash)
	var events []DomainEvent

	if len(in.Assignments) > 0 {
		ev, err := appendWorkAssigned(appender, in.Assignments, in.Now)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	canariesEv, err := appendCanariesSelected(appender, in.CanaryBlockIDs, in.Now)
	if err != nil {
		return nil, err
	}
	events = append(events, canariesEv)

	for i, sub := range in.Submissions {
		res := in.SubmissionResults[i]

		receivedEv, err := appendSubmissionReceived(appender, sub, in.Now)
		if err != nil {
			return nil, err
		}
		events = append(events, receivedEv)

		processedEv, err := appendSubmissionProcessed(appender, sub, res, in.Now)
		if err != nil {
			return nil, err
		}
		events = append(events, processedEv)

		if canaryEv, ok, err := appendCanaryOutcome(appender, sub, res, in.Now); err != nil {
			return nil, err
		} else if ok {
			events = append(events, canaryEv)
		}
	}

	finalizedEv, err := appendDayFinalized(appender, in.Distribution, in.Now)
	if err != nil {
		return nil, err
	}
	events = append(events, finalizedEv)

	committedEv, err := appendRewardsCommitted(appender, in.RewardHash, finalizedEv.EventHash, in.Now)
	if err != nil {
		return nil, err
	}
	events = append(events, committedEv)

	return events, nil
}

func appendWorkAssigned(a *Appender, assignments []model.BlockAssignment, now time.Time) (DomainEvent, error) {
	sorted := append([]model.BlockAssignment(nil), assignments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ContributorID < sorted[j].ContributorID })

	rendered := make([]interface{}, len(sorted))
	totalBlocks := 0
	for i, asn := range sorted {
		rendered[i] = map[string]interface{}{
			"contributorId": asn.ContributorID,
			"blockIds":      toInterfaceSlice(asn.BlockIDs),
		}
		totalBlocks += len(asn.BlockIDs)
	}
	payload := map[string]interface{}{
		"assignments": rendered,
		"totalBlocks": totalBlocks,
	}
	return a.Append(WorkAssigned, "", payload, now)
}

func appendCanariesSelected(a *Appender, canaryBlockIDs []string, now time.Time) (DomainEvent, error) {
	sorted := append([]string(nil), canaryBlockIDs...)
	sort.Strings(sorted)
	payload := map[string]interface{}{
		"canaryBlockIds": toInterfaceSlice(sorted),
	}
	return a.Append(CanariesSelected, "", payload, now)
}

func appendSubmissionReceived(a *Appender, sub model.Submission, now time.Time) (DomainEvent, error) {
	payload := map[string]interface{}{
		"blockId":              sub.BlockID,
		"blockType":            string(sub.BlockType),
		"resourceUsage":        sub.ResourceUsage,
		"difficultyMultiplier": sub.DifficultyMultiplier,
	}
	return a.Append(SubmissionReceived, sub.ContributorID, payload, now)
}

func appendSubmissionProcessed(a *Appender, sub model.Submission, res submission.Result, now time.Time) (DomainEvent, error) {
	payload := map[string]interface{}{
		"blockId":              sub.BlockID,
		"accepted":             true, // every submission reaching this stage is appended to history
		"blockType":            string(res.Block.BlockType),
		"resourceUsage":        res.Block.ResourceUsage,
		"difficultyMultiplier": res.Block.DifficultyMultiplier,
		"isCanary":             res.Block.IsCanary,
		"validationPassed":     sub.ValidationPassed,
	}
	if res.Block.CanaryAnswerCorrect != nil {
		payload["canaryAnswerCorrect"] = *res.Block.CanaryAnswerCorrect
	}
	return a.Append(SubmissionProcessed, sub.ContributorID, payload, now)
}

// appendCanaryOutcome emits CANARY_PASSED/CANARY_FAILED carrying the
// *committed* canary counts (and, for a failure, the failure time), so
// replay copies them verbatim rather than recomputing (spec §4.6's
// projection rule). Reputation is not in either payload.
func appendCanaryOutcome(a *Appender, sub model.Submission, res submission.Result, now time.Time) (DomainEvent, bool, error) {
	switch res.Outcome {
	case submission.CanaryPassed:
		payload := map[string]interface{}{
			"blockId":       sub.BlockID,
			"canaryPasses":  res.Contributor.CanaryPasses,
			"canaryFailures": res.Contributor.CanaryFailures,
		}
		ev, err := a.Append(CanaryPassed, sub.ContributorID, payload, now)
		return ev, true, err
	case submission.CanaryFailed:
		payload := map[string]interface{}{
			"blockId":        sub.BlockID,
			"canaryPasses":   res.Contributor.CanaryPasses,
			"canaryFailures": res.Contributor.CanaryFailures,
		}
		if res.Contributor.LastCanaryFailureTime != nil {
			payload["failureTime"] = *res.Contributor.LastCanaryFailureTime
		}
		ev, err := a.Append(CanaryFailed, sub.ContributorID, payload, now)
		return ev, true, err
	default:
		return DomainEvent{}, false, nil
	}
}

func appendDayFinalized(a *Appender, dist *reward.Distribution, now time.Time) (DomainEvent, error) {
	rewards := append([]model.ContributorReward(nil), dist.Rewards...)
	sort.Slice(rewards, func(i, j int) bool { return rewards[i].AccountID < rewards[j].AccountID })

	rendered := make([]interface{}, len(rewards))
	for i, r := range rewards {
		rendered[i] = map[string]interface{}{
			"accountId":             r.AccountID,
			"basePoolReward":        r.BasePoolReward,
			"performancePoolReward": r.PerformancePoolReward,
			"totalReward":           r.TotalReward,
		}
	}
	payload := map[string]interface{}{
		"rewards":         rendered,
		"basePoolNano":    dist.BasePoolNano,
		"performancePool": dist.PerformancePool,
	}
	return a.Append(DayFinalized, "", payload, now)
}

func appendRewardsCommitted(a *Appender, rewardHash, lastEventHash string, now time.Time) (DomainEvent, error) {
	payload := map[string]interface{}{
		"rewardHash":        rewardHash,
		"verificationValid": true,
		"lastEventHash":     lastEventHash,
	}
	return a.Append(RewardsCommitted, "", payload, now)
}

func toInterfaceSlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
