// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package balance

import (
	"github.com/go-redis/redis/v7"

	"github.com/ai4all-network/coordinator/fixedpoint"
	"github.com/ai4all-network/coordinator/internal/xerrors"
)

// leaderboardKey is the single sorted-set key backing the cached
// leaderboard; it is rebuilt wholesale from the ledger rather than
// incrementally patched, so a stale Redis instance never diverges
// silently from the authoritative event-sourced balances.
const leaderboardKey = "ai4all:leaderboard"

// RedisLeaderboard is a fast-path cache over Ledger.GetLeaderboard,
// avoiding an in-process sort for every read once accounts number in
// the thousands.
type RedisLeaderboard struct {
	client *redis.Client
}

// NewRedisLeaderboard wraps an already-configured client.
func NewRedisLeaderboard(client *redis.Client) *RedisLeaderboard {
	return &RedisLeaderboard{client: client}
}

// Rebuild replaces the cached sorted set wholesale from ledger,
// scoring each member by its balance converted to whole tokens (Redis
// sorted-set scores are float64, which cannot carry full nanounit
// precision; GetBalance on the ledger itself remains the
// precision-exact source for any single account).
func (r *RedisLeaderboard) Rebuild(ledger *Ledger) error {
	pipe := r.client.TxPipeline()
	pipe.Del(leaderboardKey)
	for _, e := range ledger.byAccount {
		pipe.ZAdd(leaderboardKey, &redis.Z{
			Score:  fixedpoint.ToTokens(e.Balance),
			Member: e.AccountID,
		})
	}
	if _, err := pipe.Exec(); err != nil {
		return xerrors.Wrap(xerrors.InvariantBug, "balance.RedisLeaderboard.Rebuild", err)
	}
	return nil
}

// Top returns up to limit accountIds ordered by cached score descending.
func (r *RedisLeaderboard) Top(limit int) ([]string, error) {
	result, err := r.client.ZRevRange(leaderboardKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "balance.RedisLeaderboard.Top", err)
	}
	return result, nil
}
