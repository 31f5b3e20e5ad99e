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

// Package balance implements the derived BalanceLedger view of spec
// §4.11: rebuilt idempotently from DAY_FINALIZED events, never a
// separate source of truth.
package balance

import (
	"math/big"
	"sort"

	"github.com/ai4all-network/coordinator/eventlog"
	"github.com/ai4all-network/coordinator/internal/xlog"
)

var logger = xlog.NewModuleLogger("balance")

// Entry is one account's ledger row.
type Entry struct {
	AccountID     string
	Balance       *big.Int
	TotalEarned   *big.Int
	LastRewardDay string
}

// Ledger is the in-memory derived balance view.
type Ledger struct {
	byAccount map[string]*Entry
}

// Rebuild scans DAY_FINALIZED events sorted by dayId and accumulates
// balance/totalEarned/lastRewardDay per account. Rebuild is idempotent:
// calling it again from the same events yields byte-identical state.
func Rebuild(events []eventlog.DomainEvent) (*Ledger, error) {
	finalized := make([]eventlog.DomainEvent, 0, len(events))
	for _, ev := range events {
		if ev.EventType == eventlog.DayFinalized {
			finalized = append(finalized, ev)
		}
	}
	sort.Slice(finalized, func(i, j int) bool { return finalized[i].DayID < finalized[j].DayID })

	ledger := &Ledger{byAccount: make(map[string]*Entry)}
	for _, ev := range finalized {
		rewards, _ := ev.Payload["rewards"].([]interface{})
		for _, raw := range rewards {
			row, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			accountID, _ := row["accountId"].(string)
			total := asBigInt(row["totalReward"])
			if total == nil || total.Sign() <= 0 {
				continue
			}

			entry, ok := ledger.byAccount[accountID]
			if !ok {
				entry = &Entry{AccountID: accountID, Balance: big.NewInt(0), TotalEarned: big.NewInt(0)}
				ledger.byAccount[accountID] = entry
			}
			entry.Balance.Add(entry.Balance, total)
			entry.TotalEarned.Add(entry.TotalEarned, total)
			entry.LastRewardDay = ev.DayID
		}
	}
	logger.Info("balance ledger rebuilt", "accounts", len(ledger.byAccount), "daysScanned", len(finalized))
	return ledger, nil
}

// asBigInt tolerates the shapes a nanounit reward figure may arrive in
// after round-tripping through JSON (string or float64) or staying
// in-process (*big.Int).
func asBigInt(v interface{}) *big.Int {
	switch n := v.(type) {
	case *big.Int:
		return n
	case string:
		i, ok := new(big.Int).SetString(n, 10)
		if !ok {
			return nil
		}
		return i
	case float64:
		return big.NewInt(int64(n))
	default:
		return nil
	}
}

// GetBalance returns an account's current balance, or zero if unknown.
func (l *Ledger) GetBalance(accountID string) *big.Int {
	if e, ok := l.byAccount[accountID]; ok {
		return new(big.Int).Set(e.Balance)
	}
	return big.NewInt(0)
}

// GetTotalSupply returns Σ balances across every account.
func (l *Ledger) GetTotalSupply() *big.Int {
	total := big.NewInt(0)
	for _, e := range l.byAccount {
		total.Add(total, e.Balance)
	}
	return total
}

// GetLeaderboard returns up to limit accounts sorted by balance
// descending, ties broken by accountId ascending for determinism.
func (l *Ledger) GetLeaderboard(limit int) []Entry {
	all := make([]Entry, 0, len(l.byAccount))
	for _, e := range l.byAccount {
		all = append(all, *e)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Balance.Cmp(all[j].Balance) != 0 {
			return all[i].Balance.Cmp(all[j].Balance) > 0
		}
		return all[i].AccountID < all[j].AccountID
	})
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// GetHistory returns up to limit DAY_FINALIZED reward rows for
// accountID, newest-first by event timestamp; events with equal
// timestamps keep the later one in events first.
func GetHistory(events []eventlog.DomainEvent, accountID string, limit int) []Entry {
	var finalized []eventlog.DomainEvent
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].EventType == eventlog.DayFinalized {
			finalized = append(finalized, events[i])
		}
	}
	sort.SliceStable(finalized, func(i, j int) bool { return finalized[i].Timestamp.After(finalized[j].Timestamp) })

	var rows []Entry
	for _, ev := range finalized {
		rewards, _ := ev.Payload["rewards"].([]interface{})
		for _, raw := range rewards {
			row, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if id, _ := row["accountId"].(string); id != accountID {
				continue
			}
			total := asBigInt(row["totalReward"])
			if total == nil {
				continue
			}
			rows = append(rows, Entry{AccountID: accountID, Balance: total, LastRewardDay: ev.DayID})
			if limit > 0 && len(rows) >= limit {
				return rows
			}
		}
	}
	return rows
}
