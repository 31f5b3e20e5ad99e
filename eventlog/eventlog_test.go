// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package eventlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHashExcludesTimestamp(t *testing.T) {
	base := DomainEvent{
		EventID:        "fixed-id",
		DayID:          "2026-01-28",
		SequenceNumber: 0,
		EventType:      NodeRegistered,
		ActorID:        "alice",
		Payload:        map[string]interface{}{"x": 1},
		PrevEventHash:  GenesisHash,
	}
	ev1 := base
	ev1.Timestamp = time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	ev2 := base
	ev2.Timestamp = time.Date(2026, 1, 28, 23, 59, 0, 0, time.UTC)

	hash1, err := computeEventHash(&ev1)
	require.NoError(t, err)
	hash2, err := computeEventHash(&ev2)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)
}

func TestAppenderChainsSequenceAndPrevHash(t *testing.T) {
	a := NewAppender("2026-01-28", 0, GenesisHash)
	ev0, err := a.Append(NodeRegistered, "alice", map[string]interface{}{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), ev0.SequenceNumber)
	assert.Equal(t, GenesisHash, ev0.PrevEventHash)

	ev1, err := a.Append(WorkAssigned, "", map[string]interface{}{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), ev1.SequenceNumber)
	assert.Equal(t, ev0.EventHash, ev1.PrevEventHash)
}

func TestVerifyChainDetectsBrokenLink(t *testing.T) {
	a := NewAppender("2026-01-28", 0, GenesisHash)
	ev0, _ := a.Append(NodeRegistered, "alice", map[string]interface{}{}, time.Now())
	ev1, _ := a.Append(WorkAssigned, "", map[string]interface{}{}, time.Now())
	events := []DomainEvent{ev0, ev1}

	brokenAt, err := VerifyChain(events, GenesisHash)
	require.NoError(t, err)
	assert.Equal(t, -1, brokenAt)

	events[1].PrevEventHash = "tampered"
	brokenAt, err = VerifyChain(events, GenesisHash)
	require.NoError(t, err)
	assert.Equal(t, 1, brokenAt)
}

func TestVerifyChainDetectsTamperedPayload(t *testing.T) {
	a := NewAppender("2026-01-28", 0, GenesisHash)
	ev0, _ := a.Append(NodeRegistered, "alice", map[string]interface{}{}, time.Now())
	events := []DomainEvent{ev0}

	events[0].Payload = map[string]interface{}{"tampered": true}
	brokenAt, err := VerifyChain(events, GenesisHash)
	require.NoError(t, err)
	assert.Equal(t, 0, brokenAt)
}

func TestVerifyChainAcceptsMultiDayConcatenation(t *testing.T) {
	day1 := NewAppender("2026-01-28", 0, GenesisHash)
	d1ev0, _ := day1.Append(NodeRegistered, "alice", map[string]interface{}{}, time.Now())
	d1ev1, _ := day1.Append(WorkAssigned, "", map[string]interface{}{}, time.Now())

	// day 2's appender resets sequenceNumber to 0, chaining from day 1's
	// last event hash, exactly as BuildDayBurst does across days.
	day2 := NewAppender("2026-01-29", 0, d1ev1.EventHash)
	d2ev0, _ := day2.Append(WorkAssigned, "", map[string]interface{}{}, time.Now())
	d2ev1, _ := day2.Append(RewardsCommitted, "", map[string]interface{}{}, time.Now())

	events := []DomainEvent{d1ev0, d1ev1, d2ev0, d2ev1}
	brokenAt, err := VerifyChain(events, GenesisHash)
	require.NoError(t, err)
	assert.Equal(t, -1, brokenAt)
}

func TestOmittedActorIDIsStableAcrossEqualEvents(t *testing.T) {
	base := DomainEvent{
		EventID:        "fixed-id",
		DayID:          "d",
		SequenceNumber: 0,
		EventType:      DayFinalized,
		ActorID:        "",
		Payload:        map[string]interface{}{"rewards": []interface{}{}},
		PrevEventHash:  GenesisHash,
	}
	ev1 := base
	ev1.Timestamp = time.Now()
	ev2 := base
	ev2.Timestamp = ev1.Timestamp.Add(time.Minute)

	hash1, err := computeEventHash(&ev1)
	require.NoError(t, err)
	hash2, err := computeEventHash(&ev2)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)
}
