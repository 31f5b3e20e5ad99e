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

// Package eventlog implements the hash-chained, append-only domain
// event log of spec §4.6: event hashing that excludes wall-clock
// timestamps, per-day ordered event bursts, hash-chain verification,
// and replay (state projection).
package eventlog

import (
	"time"

	uuid "github.com/hashicorp/go-uuid"

	"github.com/ai4all-network/coordinator/canonical"
	"github.com/ai4all-network/coordinator/internal/xerrors"
	"github.com/ai4all-network/coordinator/internal/xlog"
)

var logger = xlog.NewModuleLogger("eventlog")

// GenesisHash is the prevEventHash of the very first event this log
// ever records. It is a distinct sentinel from chain.GenesisHash
// ("0"*64): the event log and the wallet/transaction chains are
// independent hash-linked structures and must never be confused.
const GenesisHash = "GENESIS"

// EventType enumerates every domain event kind spec §3 defines.
type EventType string

const (
	NodeRegistered      EventType = "NODE_REGISTERED"
	WorkAssigned        EventType = "WORK_ASSIGNED"
	CanariesSelected    EventType = "CANARIES_SELECTED"
	SubmissionReceived  EventType = "SUBMISSION_RECEIVED"
	SubmissionProcessed EventType = "SUBMISSION_PROCESSED"
	CanaryPassed        EventType = "CANARY_PASSED"
	CanaryFailed        EventType = "CANARY_FAILED"
	DayFinalized        EventType = "DAY_FINALIZED"
	RewardsCommitted    EventType = "REWARDS_COMMITTED"
	DevicePaired        EventType = "DEVICE_PAIRED"
	DeviceUnpaired      EventType = "DEVICE_UNPAIRED"
)

// DomainEvent is the 9-field append-only record of spec §3.
type DomainEvent struct {
	EventID        string
	DayID          string
	SequenceNumber int64
	Timestamp      time.Time
	EventType      EventType
	ActorID        string // empty means omitted from the hash input
	Payload        map[string]interface{}
	PrevEventHash  string
	EventHash      string
}

// NewEventID mints a fresh event identifier, grounded on the teacher's
// use of hashicorp/go-uuid to stamp outbound Kafka client/message ids.
func NewEventID() (string, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", xerrors.Wrap(xerrors.InvariantBug, "eventlog.NewEventID", err)
	}
	return id, nil
}

// computeEventHash is SHA256(canonical({eventId, dayId, sequenceNumber,
// eventType, actorId, payload, prevEventHash})); timestamp and eventHash
// itself are excluded so the chain never depends on wall-clock drift.
func computeEventHash(e *DomainEvent) (string, error) {
	actor := interface{}(canonical.Omitted)
	if e.ActorID != "" {
		actor = e.ActorID
	}
	obj := map[string]interface{}{
		"eventId":        e.EventID,
		"dayId":          e.DayID,
		"sequenceNumber": e.SequenceNumber,
		"eventType":      string(e.EventType),
		"actorId":        actor,
		"payload":        e.Payload,
		"prevEventHash":  e.PrevEventHash,
	}
	return canonical.HashHex(obj)
}

// Appender threads sequenceNumber and prevEventHash across a run of
// events, whether a single registration event or a whole day's burst.
type Appender struct {
	dayID    string
	seq      int64
	prevHash string
}

// NewAppender starts a chain at startSeq (0 for a fresh day), chained
// from prevHash (GenesisHash for the network's very first event, or the
// previous day's last event hash otherwise).
func NewAppender(dayID string, startSeq int64, prevHash string) *Appender {
	return &Appender{dayID: dayID, seq: startSeq, prevHash: prevHash}
}

// Append builds, hashes and appends one event, advancing the chain.
func (a *Appender) Append(eventType EventType, actorID string, payload map[string]interface{}, timestamp time.Time) (DomainEvent, error) {
	id, err := NewEventID()
	if err != nil {
		return DomainEvent{}, err
	}
	ev := DomainEvent{
		EventID:        id,
		DayID:          a.dayID,
		SequenceNumber: a.seq,
		Timestamp:      timestamp,
		EventType:      eventType,
		ActorID:        actorID,
		Payload:        payload,
		PrevEventHash:  a.prevHash,
	}
	hash, err := computeEventHash(&ev)
	if err != nil {
		return DomainEvent{}, err
	}
	ev.EventHash = hash

	a.seq++
	a.prevHash = hash
	return ev, nil
}

// LastHash returns the hash the next-appended event would chain from.
func (a *Appender) LastHash() string { return a.prevHash }

// NextSequence returns the sequence number the next-appended event
// would receive.
func (a *Appender) NextSequence() int64 { return a.seq }

// VerifyChain recomputes every event's hash and checks the linkage;
// expectedFirstPrev is typically GenesisHash for day 1, or the prior
// day's last event hash otherwise. sequenceNumber is checked relative
// to the start of each dayId's own run, since NewAppender resets it to
// 0 at the start of every day (per spec §5) rather than threading one
// global counter across days. Returns the index of the first broken
// link, or -1 if the whole list verifies.
func VerifyChain(events []DomainEvent, expectedFirstPrev string) (brokenAt int, err error) {
	prev := expectedFirstPrev
	var expectedSeq int64
	var currentDay string
	for i := range events {
		ev := events[i]
		if i == 0 || ev.DayID != currentDay {
			currentDay = ev.DayID
			expectedSeq = 0
		}
		if ev.PrevEventHash != prev {
			return i, nil
		}
		recomputed, herr := computeEventHash(&ev)
		if herr != nil {
			return i, herr
		}
		if recomputed != ev.EventHash {
			return i, nil
		}
		if ev.SequenceNumber != expectedSeq {
			return i, nil
		}
		expectedSeq++
		prev = ev.EventHash
	}
	return -1, nil
}
