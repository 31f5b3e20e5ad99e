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

// Package coordinator owns the single daily state machine of spec
// §4.9 (IDLE -> ACTIVE -> FINALIZING -> IDLE) and every other
// package's wiring into one day's lifecycle. It is the ai4all-network
// analogue of the teacher's consensus/istanbul/backend.backend: a
// single struct guarded by one mutex that serializes every state
// mutation (there sealMu/coreMu guard proposal sealing and core
// start/stop; here the same mutex guards the whole day). The
// read-only queries take that mutex too, so they wait for an
// in-flight mutation and then read the last committed state.
package coordinator

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ai4all-network/coordinator/assign"
	"github.com/ai4all-network/coordinator/auth"
	"github.com/ai4all-network/coordinator/balance"
	"github.com/ai4all-network/coordinator/canonical"
	"github.com/ai4all-network/coordinator/chain"
	"github.com/ai4all-network/coordinator/eventlog"
	"github.com/ai4all-network/coordinator/internal/metrics"
	"github.com/ai4all-network/coordinator/internal/xerrors"
	"github.com/ai4all-network/coordinator/internal/xlog"
	"github.com/ai4all-network/coordinator/model"
	"github.com/ai4all-network/coordinator/points"
	"github.com/ai4all-network/coordinator/reward"
	"github.com/ai4all-network/coordinator/store"
	"github.com/ai4all-network/coordinator/submission"

	set "gopkg.in/fatih/set.v0"
)

var logger = xlog.NewModuleLogger("coordinator")

// Phase is the coordinator's position in the daily state machine.
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseActive     Phase = "ACTIVE"
	PhaseFinalizing Phase = "FINALIZING"
)

// Config bundles every package's slice of spec §6 knobs the
// coordinator threads through a day.
type Config struct {
	Assign     assign.Config
	Points     points.Config
	Submission submission.Config
	Reward     reward.Config
}

// Dependencies are the coordinator's suspension-point capabilities:
// everything that blocks on I/O or cryptographic verification, per
// spec §5.
type Dependencies struct {
	Verifier    *auth.Verifier
	WindowCache *points.WindowCache
	EventFile   *store.EventFile
	KV          store.KVStore
	Metrics     *metrics.Registry
	RosterCache *assign.RosterCache       // optional; caches per-day lottery weights
	EventSink   *eventlog.KafkaSink       // optional; mirrors each day's burst externally
	Archiver    *chain.Archiver           // optional; cold-stores transaction blocks pruned past retention
	Leaderboard *balance.RedisLeaderboard // optional; fast-path cache over the rebuilt ledger
}

// SubmissionRequest is one authenticated worker's claim, carrying the
// auth envelope alongside the domain submission itself.
type SubmissionRequest struct {
	Auth       auth.Request
	Submission model.Submission
}

// Status is a read-only snapshot for introspection (CLI status,
// health checks). GetStatus takes the coordinator's mutex, so it waits
// while StartDay or Finalize is running.
type Status struct {
	Phase              Phase
	DayID              string
	RosterSize         int
	AcceptedCount      int
	LastEventHash      string
	LastBlockNumber    int64
}

// Coordinator is the daily single-writer actor. Every exported method
// that mutates state takes mu; the getters GetLedger and GetStatus
// take mu as well, so they are safe to call from any goroutine but
// wait for an in-flight mutation to return.
type Coordinator struct {
	mu sync.Mutex

	cfg  Config
	deps Dependencies

	phase Phase
	state *eventlog.NetworkState

	dayID          string
	rosterSnapshot []*model.Contributor
	rosterHash     string
	seed           int64
	assignments    []model.BlockAssignment
	canaryBlockIDs []string
	canarySet      map[string]bool

	accepted []model.Submission
	seen     *set.Set

	allEvents     []eventlog.DomainEvent
	lastEventHash string
	lastTxBlock   *chain.TransactionBlock
	ledger        *balance.Ledger
}

// New builds a Coordinator starting IDLE with an empty network state.
// Callers that are resuming from persisted state should use Resume
// instead.
func New(cfg Config, deps Dependencies) *Coordinator {
	return &Coordinator{
		cfg:           cfg,
		deps:          deps,
		phase:         PhaseIdle,
		state:         eventlog.NewNetworkState(),
		lastEventHash: eventlog.GenesisHash,
	}
}

// Resume rebuilds a Coordinator from a prior run's event history and
// transaction chain tail, per spec §4.11's "rebuild is idempotent"
// guarantee extended to the whole coordinator.
func Resume(cfg Config, deps Dependencies, events []eventlog.DomainEvent, lastTxBlock *chain.TransactionBlock) (*Coordinator, error) {
	state := eventlog.NewNetworkState()
	if err := eventlog.Project(state, events); err != nil {
		return nil, err
	}
	ledger, err := balance.Rebuild(events)
	if err != nil {
		return nil, err
	}
	lastHash := eventlog.GenesisHash
	if len(events) > 0 {
		lastHash = events[len(events)-1].EventHash
	}
	return &Coordinator{
		cfg:           cfg,
		deps:          deps,
		phase:         PhaseIdle,
		state:         state,
		allEvents:     append([]eventlog.DomainEvent(nil), events...),
		lastEventHash: lastHash,
		lastTxBlock:   lastTxBlock,
		ledger:        ledger,
	}, nil
}

// RegisterContributor admits a new roster member. Valid only in IDLE,
// so a day's locked roster is never mutated mid-day.
func (c *Coordinator) RegisterContributor(id string, publicKey []byte, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdle {
		return xerrors.New(xerrors.StateConflict, "coordinator.RegisterContributor", "roster is locked for the active day")
	}
	if _, exists := c.state.Contributors[id]; exists {
		return xerrors.New(xerrors.InvalidInput, "coordinator.RegisterContributor", "contributor already registered: "+id)
	}
	c.state.Contributors[id] = &model.Contributor{
		ID:           id,
		PublicKey:    publicKey,
		Reputation:   1.0,
		RegisteredAt: now,
	}
	logger.Info("contributor registered", "contributorId", id)
	return nil
}

// rosterHash derives spec §4.9's rosterHash = SHA256(join(sorted ids)).
func rosterHash(sortedIDs []string) string {
	joined := ""
	for i, id := range sortedIDs {
		if i > 0 {
			joined += ","
		}
		joined += id
	}
	return canonical.SHA256Hex([]byte(joined))
}

// deriveSeed turns (dayId, rosterHash) into a deterministic int64 seed
// for seededRandom, per spec §4.9.
func deriveSeed(dayID, rosterHash string) (int64, error) {
	h, err := canonical.HashHex(map[string]interface{}{"dayId": dayID, "rosterHash": rosterHash})
	if err != nil {
		return 0, err
	}
	var seed int64
	for i := 0; i < 8 && i < len(h); i++ {
		seed = seed<<8 | int64(h[i])
	}
	if seed < 0 {
		seed = -seed
	}
	return seed, nil
}

// StartDay transitions IDLE -> ACTIVE: locks the roster, derives the
// deterministic seed, runs assignment and canary selection.
func (c *Coordinator) StartDay(dayID string, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdle {
		return xerrors.New(xerrors.StateConflict, "coordinator.StartDay", "startDay is only valid in IDLE")
	}

	roster := make([]*model.Contributor, 0, len(c.state.Contributors))
	for _, contributor := range c.state.Contributors {
		roster = append(roster, contributor.Clone())
	}
	if len(roster) == 0 {
		return xerrors.New(xerrors.InvalidInput, "coordinator.StartDay", "cannot start a day with an empty roster")
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })

	ids := make([]string, len(roster))
	for i, r := range roster {
		ids[i] = r.ID
	}
	rHash := rosterHash(ids)
	seed, err := deriveSeed(dayID, rHash)
	if err != nil {
		return err
	}

	if c.deps.RosterCache != nil {
		c.deps.RosterCache.Reset()
	}
	assignments, err := assign.Distribute(roster, c.cfg.Assign, c.deps.WindowCache, dayID, seed, now, c.deps.RosterCache)
	if err != nil {
		return err
	}

	var allBlockIDs []string
	for _, a := range assignments {
		allBlockIDs = append(allBlockIDs, a.BlockIDs...)
	}
	canaries := assign.SelectCanaries(allBlockIDs, seed, c.cfg.Assign.BaseCanaryPercentage)
	canaryList := set.StringSlice(canaries)
	sort.Strings(canaryList)
	canaryMap := make(map[string]bool, len(canaryList))
	for _, id := range canaryList {
		canaryMap[id] = true
	}

	c.dayID = dayID
	c.rosterSnapshot = roster
	c.rosterHash = rHash
	c.seed = seed
	c.assignments = assignments
	c.canaryBlockIDs = canaryList
	c.canarySet = canaryMap
	c.accepted = nil
	c.seen = set.New()
	c.phase = PhaseActive

	logger.Info("day started", "dayId", dayID, "roster", len(roster), "batches", len(assignments), "canaries", len(canaryList))
	return nil
}

// AcceptSubmission authenticates and queues a worker's submission for
// the active day, deduping per (contributorId, blockId). State
// mutation is deferred to Finalize, per spec §4.9.
func (c *Coordinator) AcceptSubmission(req SubmissionRequest, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseActive {
		return xerrors.New(xerrors.StateConflict, "coordinator.AcceptSubmission", "submissions are only accepted in ACTIVE")
	}

	ok, err := c.deps.Verifier.Verify(req.Auth, now)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.New(xerrors.IntegrityViolation, "coordinator.AcceptSubmission", "signature verification failed")
	}
	if req.Auth.AccountID != req.Submission.ContributorID {
		return xerrors.New(xerrors.InvalidInput, "coordinator.AcceptSubmission", "auth accountId does not match submission contributorId")
	}

	dedupKey := fmt.Sprintf("%s|%s", req.Submission.ContributorID, req.Submission.BlockID)
	if c.seen.Has(dedupKey) {
		return xerrors.New(xerrors.InvalidInput, "coordinator.AcceptSubmission", "duplicate submission for blockId "+req.Submission.BlockID)
	}
	c.seen.Add(dedupKey)
	c.accepted = append(c.accepted, req.Submission)
	return nil
}

// GetStatus returns a snapshot safe to read without blocking a writer
// for long.
func (c *Coordinator) GetStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	blockNumber := int64(0)
	if c.lastTxBlock != nil {
		blockNumber = c.lastTxBlock.BlockNumber
	}
	return Status{
		Phase:           c.phase,
		DayID:           c.dayID,
		RosterSize:      len(c.rosterSnapshot),
		AcceptedCount:   len(c.accepted),
		LastEventHash:   c.lastEventHash,
		LastBlockNumber: blockNumber,
	}
}

// GetLedger returns the balance ledger as of the last finalized day.
func (c *Coordinator) GetLedger() *balance.Ledger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger
}
