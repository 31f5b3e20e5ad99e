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

// Package store provides the coordinator's persistence layer: a
// pluggable key-value backend (badger or goleveldb) for transaction
// chain blocks, a JSONL event-log file tolerant of
// crash-truncated trailing lines, and an operational relational store
// for node/device bookkeeping.
package store

import (
	"encoding/json"

	"github.com/ai4all-network/coordinator/chain"
	"github.com/ai4all-network/coordinator/internal/xerrors"
)

// KVStore is the minimal key-value contract the coordinator needs,
// deliberately narrow so either backend satisfies it without exposing
// engine-specific transaction types.
type KVStore interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	Keys(prefix []byte) ([][]byte, error)
	Close() error
}

// ErrKeyNotFound is returned by Get when the key is absent, normalized
// across backends so callers never branch on engine-specific sentinels.
var ErrKeyNotFound = xerrors.New(xerrors.NotFound, "store", "key not found")

// TxBlockKeyPrefix namespaces the per-day transaction block keyed by
// dayId (see Coordinator.persist), distinguishing it from any other
// key a future caller might store in the same KVStore.
const TxBlockKeyPrefix = "txblock:"

// ListTransactionBlocks scans every persisted "txblock:"-prefixed
// entry and decodes it, giving the maintenance path (chain.Prune,
// chain.Archiver) something to enumerate: the coordinator itself only
// ever holds the chain tail in memory, so this is the one place prior
// days' blocks can be gathered back up after a restart.
func ListTransactionBlocks(kv KVStore) ([]chain.TransactionBlock, error) {
	keys, err := kv.Keys([]byte(TxBlockKeyPrefix))
	if err != nil {
		return nil, err
	}
	blocks := make([]chain.TransactionBlock, 0, len(keys))
	for _, key := range keys {
		data, err := kv.Get(key)
		if err != nil {
			return nil, err
		}
		var block chain.TransactionBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, xerrors.Wrap(xerrors.InvariantBug, "store.ListTransactionBlocks", err)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// LastTransactionBlock returns the highest-numbered persisted
// transaction block, or nil if none exist (a fresh data directory),
// for handing Coordinator.Resume its chain tail on restart.
func LastTransactionBlock(kv KVStore) (*chain.TransactionBlock, error) {
	blocks, err := ListTransactionBlocks(kv)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, nil
	}
	last := blocks[0]
	for _, b := range blocks[1:] {
		if b.BlockNumber > last.BlockNumber {
			last = b
		}
	}
	return &last, nil
}
