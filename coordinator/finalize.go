// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package coordinator

import (
	"encoding/json"
	"math/big"
	"sort"
	"time"

	"github.com/ai4all-network/coordinator/balance"
	"github.com/ai4all-network/coordinator/canonical"
	"github.com/ai4all-network/coordinator/chain"
	"github.com/ai4all-network/coordinator/eventlog"
	"github.com/ai4all-network/coordinator/internal/xerrors"
	"github.com/ai4all-network/coordinator/merkle"
	"github.com/ai4all-network/coordinator/model"
	"github.com/ai4all-network/coordinator/reward"
	"github.com/ai4all-network/coordinator/store"
	"github.com/ai4all-network/coordinator/submission"
)

// Finalize transitions ACTIVE -> FINALIZING, runs the submission
// batch, the reward engine, the event builder, the reward commitment
// and the next transaction block, persists the result, and rebuilds
// the balance ledger. On any error it rolls back to ACTIVE rather than
// leaving FINALIZING persisted, per spec §4.9/§4.12.
func (c *Coordinator) Finalize(now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseActive {
		return xerrors.New(xerrors.StateConflict, "coordinator.Finalize", "finalize is only valid in ACTIVE")
	}
	c.phase = PhaseFinalizing

	if err := c.runFinalize(now); err != nil {
		logger.Error("finalize failed, rolling back to ACTIVE", "dayId", c.dayID, "error", err)
		c.phase = PhaseActive
		return err
	}

	c.phase = PhaseIdle
	return nil
}

// runFinalize does the actual work; the caller restores ACTIVE on any
// returned error.
func (c *Coordinator) runFinalize(now time.Time) error {
	start := time.Now()

	contributors := make(map[string]*model.Contributor, len(c.rosterSnapshot))
	for _, contributor := range c.rosterSnapshot {
		contributors[contributor.ID] = contributor
	}

	updated, results, err := submission.BatchApply(contributors, c.accepted, c.canarySet, c.cfg.Submission)
	if err != nil {
		return err
	}

	updatedSlice := make([]*model.Contributor, 0, len(updated))
	for _, contributor := range updated {
		updatedSlice = append(updatedSlice, contributor)
	}

	dist, err := reward.Distribute(c.dayID, updatedSlice, c.cfg.Reward, now)
	if err != nil {
		return err
	}

	entries := make([]merkle.RewardEntry, len(dist.Rewards))
	for i, r := range dist.Rewards {
		entries[i] = merkle.RewardEntry{AccountID: r.AccountID, AmountNanounits: r.TotalReward}
	}
	commitment, err := merkle.BuildRewardCommitment(c.dayID, entries)
	if err != nil {
		return err
	}

	burst, err := eventlog.BuildDayBurst(eventlog.BurstInput{
		DayID:             c.dayID,
		PrevLastEventHash: c.lastEventHash,
		Assignments:       c.assignments,
		CanaryBlockIDs:    c.canaryBlockIDs,
		Submissions:       c.accepted,
		SubmissionResults: results,
		Distribution:      dist,
		RewardRoot:        commitment.Root(),
		RewardHash:        commitment.Root(),
		Now:               now,
	})
	if err != nil {
		return err
	}

	eventIDs := make([]string, len(burst))
	for i, ev := range burst {
		eventIDs[i] = ev.EventID
	}

	stateHashStr, err := stateHash(updated, dist.DayID)
	if err != nil {
		return err
	}

	activeCount := 0
	for _, active := range dist.ActiveContributor {
		if active {
			activeCount++
		}
	}
	totalEmissions := new(big.Int).Add(dist.BasePoolNano, dist.PerformancePool)

	blockNumber := int64(1)
	if c.lastTxBlock != nil {
		blockNumber = c.lastTxBlock.BlockNumber + 1
	}

	txBlock, err := chain.NewTransactionBlock(c.lastTxBlock, c.dayID, eventIDs, commitment.Root(), stateHashStr, "", activeCount, totalEmissions, blockNumber, now)
	if err != nil {
		return err
	}
	if err := chain.VerifyBlockInvariants(txBlock); err != nil {
		return err
	}

	if err := c.persist(burst, txBlock); err != nil {
		return xerrors.Wrap(xerrors.InvalidInput, "coordinator.Finalize.persist", err)
	}

	c.state.Contributors = updated
	c.state.CanarySet = c.canarySet
	c.state.DayNumber++

	c.allEvents = append(c.allEvents, burst...)
	ledger, err := balance.Rebuild(c.allEvents)
	if err != nil {
		return err
	}
	c.ledger = ledger

	if c.deps.Leaderboard != nil {
		if err := c.deps.Leaderboard.Rebuild(ledger); err != nil {
			logger.Warn("leaderboard cache rebuild failed, cache may be stale", "dayId", c.dayID, "error", err)
		}
	}

	c.lastEventHash = burst[len(burst)-1].EventHash
	c.lastTxBlock = txBlock

	if c.deps.EventSink != nil {
		if err := c.deps.EventSink.PublishBurst(burst); err != nil {
			logger.Warn("kafka event mirror failed, continuing without it", "dayId", c.dayID, "error", err)
		}
	}

	c.maintainTransactionChain(now)

	if c.deps.Metrics != nil {
		c.deps.Metrics.DaysFinalized.Inc()
		c.deps.Metrics.SubmissionsTotal.Add(float64(len(c.accepted)))
		c.deps.Metrics.ActiveContributors.Set(float64(activeCount))
		poolNano, _ := new(big.Float).SetInt(totalEmissions).Float64()
		c.deps.Metrics.RewardPoolNano.Set(poolNano)
		c.deps.Metrics.FinalizeDuration.Observe(time.Since(start).Seconds())
		for _, res := range results {
			if res.Outcome == submission.CanaryFailed {
				c.deps.Metrics.CanaryFailures.Inc()
			}
		}
	}

	logger.Info("day finalized", "dayId", c.dayID, "contributors", activeCount, "blockNumber", blockNumber)

	c.dayID = ""
	c.rosterSnapshot = nil
	c.assignments = nil
	c.canaryBlockIDs = nil
	c.canarySet = nil
	c.accepted = nil
	c.seen = nil

	return nil
}

// persist writes the day's event burst and transaction block as an
// atomic unit: events land in the per-day JSONL file, the block is
// keyed in the KV store by dayId. Neither is applied to in-memory
// state until both succeed, so a persistence error leaves the
// coordinator free to retry the whole day.
func (c *Coordinator) persist(burst []eventlog.DomainEvent, txBlock *chain.TransactionBlock) error {
	if c.deps.EventFile != nil {
		if err := c.deps.EventFile.AppendEvents(c.dayID, burst); err != nil {
			return err
		}
	}
	if c.deps.KV != nil {
		data, err := json.Marshal(txBlock)
		if err != nil {
			return err
		}
		if err := c.deps.KV.Put([]byte(store.TxBlockKeyPrefix+c.dayID), data); err != nil {
			return err
		}
	}
	return nil
}

// maintainTransactionChain enforces the 30-day transaction-chain
// retention window (spec §4.8) against whatever is durably persisted,
// archiving anything pruned before dropping it from the live KV store.
// Best-effort: a failure here never unwinds a day that has already
// committed, it is only logged, matching the scheduler's
// log-and-ignore treatment of non-critical maintenance work.
func (c *Coordinator) maintainTransactionChain(now time.Time) {
	if c.deps.KV == nil {
		return
	}
	blocks, err := store.ListTransactionBlocks(c.deps.KV)
	if err != nil {
		logger.Warn("transaction chain maintenance: list failed", "error", err)
		return
	}
	_, pruned := chain.Prune(blocks, now)
	if len(pruned) == 0 {
		return
	}
	if c.deps.Archiver != nil {
		if err := c.deps.Archiver.ArchiveBlocks(pruned); err != nil {
			logger.Warn("transaction chain maintenance: archive failed, leaving blocks live", "error", err)
			return
		}
	} else {
		logger.Warn("transaction chain maintenance: no archiver configured, leaving pruned blocks live", "count", len(pruned))
		return
	}
	for _, b := range pruned {
		if err := c.deps.KV.Delete([]byte(store.TxBlockKeyPrefix + b.DayID)); err != nil {
			logger.Warn("transaction chain maintenance: delete failed", "dayId", b.DayID, "error", err)
		}
	}
}

// stateHash summarizes the post-finalize network projection into a
// single canonical hash, the transaction block's stateHash field.
func stateHash(contributors map[string]*model.Contributor, dayID string) (string, error) {
	ids := make([]string, 0, len(contributors))
	for id := range contributors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rendered := make([]interface{}, len(ids))
	for i, id := range ids {
		contributor := contributors[id]
		rendered[i] = map[string]interface{}{
			"accountId":      contributor.ID,
			"reputation":     contributor.Reputation,
			"canaryPasses":   contributor.CanaryPasses,
			"canaryFailures": contributor.CanaryFailures,
			"blockCount":     len(contributor.Blocks),
		}
	}
	return canonical.HashHex(map[string]interface{}{"dayId": dayID, "contributors": rendered})
}
