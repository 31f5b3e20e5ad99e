// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package eventlog

import (
	"time"

	"github.com/ai4all-network/coordinator/internal/xerrors"
	"github.com/ai4all-network/coordinator/model"
)

// NetworkState is the replayed projection of the event log: the same
// shape the live Coordinator keeps in memory, rebuilt byte-for-byte
// from events alone. Projection trusts committed payloads rather than
// recomputing them, which is what makes replay reproduce the live
// state exactly even if scoring logic later changes.
type NetworkState struct {
	Contributors map[string]*model.Contributor
	CanarySet    map[string]bool
	DayNumber    int
}

// NewNetworkState returns an empty projection, the replay starting point.
func NewNetworkState() *NetworkState {
	return &NetworkState{
		Contributors: make(map[string]*model.Contributor),
		CanarySet:    make(map[string]bool),
	}
}

// Project applies events in sequence to state, per spec §4.6:
//   - NODE_REGISTERED inserts a fresh contributor.
//   - CANARIES_SELECTED replaces the canary set.
//   - SUBMISSION_PROCESSED (accepted=true) appends a CompletedBlock.
//   - CANARY_PASSED/CANARY_FAILED copy the committed counts and
//     failureTime verbatim from payload, never recomputed; Reputation
//     is left untouched.
//   - REWARDS_COMMITTED increments dayNumber.
//   - WORK_ASSIGNED, DAY_FINALIZED are no-ops (audit only).
func Project(state *NetworkState, events []DomainEvent) error {
	for i := range events {
		if err := projectOne(state, &events[i]); err != nil {
			return err
		}
	}
	return nil
}

func projectOne(state *NetworkState, ev *DomainEvent) error {
	switch ev.EventType {
	case NodeRegistered:
		state.Contributors[ev.ActorID] = &model.Contributor{
			ID:           ev.ActorID,
			Reputation:   1.0,
			RegisteredAt: ev.Timestamp,
		}

	case CanariesSelected:
		ids, _ := ev.Payload["canaryBlockIds"].([]interface{})
		fresh := make(map[string]bool, len(ids))
		for _, raw := range ids {
			if s, ok := raw.(string); ok {
				fresh[s] = true
			}
		}
		state.CanarySet = fresh

	case SubmissionProcessed:
		accepted, _ := ev.Payload["accepted"].(bool)
		if !accepted {
			break
		}
		c, ok := state.Contributors[ev.ActorID]
		if !ok {
			return xerrors.New(xerrors.StateConflict, "eventlog.Project", "SUBMISSION_PROCESSED for unknown contributor: "+ev.ActorID)
		}
		blockID, _ := ev.Payload["blockId"].(string)
		blockTypeRaw, _ := ev.Payload["blockType"].(string)
		isCanary, _ := ev.Payload["isCanary"].(bool)
		validationPassed, _ := ev.Payload["validationPassed"].(bool)
		resourceUsage, _ := asFloat(ev.Payload["resourceUsage"])
		difficultyMultiplier, _ := asFloat(ev.Payload["difficultyMultiplier"])
		block := model.CompletedBlock{
			BlockID:              blockID,
			BlockType:            model.BlockType(blockTypeRaw),
			ResourceUsage:        resourceUsage,
			DifficultyMultiplier: difficultyMultiplier,
			ValidationPassed:     validationPassed,
			IsCanary:             isCanary,
			Timestamp:            ev.Timestamp,
		}
		if isCanary {
			if correct, ok := ev.Payload["canaryAnswerCorrect"].(bool); ok {
				block.CanaryAnswerCorrect = &correct
			}
		}
		c.Blocks = append(c.Blocks, block)

	case CanaryPassed, CanaryFailed:
		c, ok := state.Contributors[ev.ActorID]
		if !ok {
			return xerrors.New(xerrors.StateConflict, "eventlog.Project", "canary outcome for unknown contributor: "+ev.ActorID)
		}
		if v, ok := asInt(ev.Payload["canaryPasses"]); ok {
			c.CanaryPasses = v
		}
		if v, ok := asInt(ev.Payload["canaryFailures"]); ok {
			c.CanaryFailures = v
		}
		if ft, ok := ev.Payload["failureTime"].(time.Time); ok {
			t := ft
			c.LastCanaryFailureTime = &t
		}

	case RewardsCommitted:
		state.DayNumber++

	case WorkAssigned, DayFinalized, DevicePaired, DeviceUnpaired:
		// audit-only: no state mutation.
	}
	return nil
}

// asInt tolerates the several numeric shapes a payload value may take
// after round-tripping through canonical JSON (float64) or arriving
// in-process (int).
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// asFloat mirrors asInt for float64 payload fields.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
