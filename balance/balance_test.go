// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package balance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4all-network/coordinator/eventlog"
)

func finalizedEvent(dayID string, rewards []map[string]interface{}, now time.Time) eventlog.DomainEvent {
	a := eventlog.NewAppender(dayID, 0, eventlog.GenesisHash)
	rendered := make([]interface{}, len(rewards))
	for i, r := range rewards {
		rendered[i] = r
	}
	ev, _ := a.Append(eventlog.DayFinalized, "", map[string]interface{}{"rewards": rendered}, now)
	return ev
}

func TestRebuildAccumulatesAcrossDays(t *testing.T) {
	now := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	day1 := finalizedEvent("2026-01-27", []map[string]interface{}{
		{"accountId": "alice", "totalReward": "1000"},
	}, now)
	day2 := finalizedEvent("2026-01-28", []map[string]interface{}{
		{"accountId": "alice", "totalReward": "500"},
		{"accountId": "bob", "totalReward": "250"},
	}, now)

	ledger, err := Rebuild([]eventlog.DomainEvent{day2, day1}) // out of order on purpose
	require.NoError(t, err)

	assert.Equal(t, int64(1500), ledger.GetBalance("alice").Int64())
	assert.Equal(t, int64(250), ledger.GetBalance("bob").Int64())
	assert.Equal(t, int64(0), ledger.GetBalance("ghost").Int64())
	assert.Equal(t, int64(1750), ledger.GetTotalSupply().Int64())
}

func TestRebuildIsIdempotent(t *testing.T) {
	now := time.Now()
	day1 := finalizedEvent("2026-01-28", []map[string]interface{}{
		{"accountId": "alice", "totalReward": "1000"},
	}, now)

	l1, err := Rebuild([]eventlog.DomainEvent{day1})
	require.NoError(t, err)
	l2, err := Rebuild([]eventlog.DomainEvent{day1})
	require.NoError(t, err)

	assert.Equal(t, l1.GetBalance("alice").String(), l2.GetBalance("alice").String())
}

func TestGetLeaderboardOrdersDescendingWithTieBreak(t *testing.T) {
	now := time.Now()
	day1 := finalizedEvent("2026-01-28", []map[string]interface{}{
		{"accountId": "bob", "totalReward": "1000"},
		{"accountId": "alice", "totalReward": "1000"},
		{"accountId": "carol", "totalReward": "500"},
	}, now)

	ledger, err := Rebuild([]eventlog.DomainEvent{day1})
	require.NoError(t, err)

	top := ledger.GetLeaderboard(2)
	require.Len(t, top, 2)
	assert.Equal(t, "alice", top[0].AccountID) // tie broken by accountId ascending
	assert.Equal(t, "bob", top[1].AccountID)
}

func TestGetHistoryIsNewestFirst(t *testing.T) {
	now := time.Now()
	day1 := finalizedEvent("2026-01-27", []map[string]interface{}{{"accountId": "alice", "totalReward": "100"}}, now)
	day2 := finalizedEvent("2026-01-28", []map[string]interface{}{{"accountId": "alice", "totalReward": "200"}}, now)

	history := GetHistory([]eventlog.DomainEvent{day1, day2}, "alice", 10)
	require.Len(t, history, 2)
	assert.Equal(t, "2026-01-28", history[0].LastRewardDay)
	assert.Equal(t, "2026-01-27", history[1].LastRewardDay)
}
