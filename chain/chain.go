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

// Package chain implements the two hash-linked block chains of spec
// §4.8: a per-wallet identity chain that lives forever, and a single
// global transaction chain with 30-day rolling retention.
package chain

import (
	"math/big"
	"time"

	"github.com/ai4all-network/coordinator/canonical"
	"github.com/ai4all-network/coordinator/internal/xerrors"
	"github.com/ai4all-network/coordinator/internal/xlog"
)

var logger = xlog.NewModuleLogger("chain")

// GenesisHash is the prevBlockHash of the first block on any chain: a
// 64-char all-zero string, distinct from the event log's "GENESIS"
// literal sentinel (eventlog.GenesisHash) by design — the two chains
// and the event log are independent hash-linked structures.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ChainType discriminates the two chain kinds sharing this package.
type ChainType string

const (
	WalletChain      ChainType = "WALLET"
	TransactionChain ChainType = "TRANSACTION"
)

// WalletBlock is one entry in a single wallet's permanent identity
// chain: creation, device pairings, persona registration.
type WalletBlock struct {
	ChainType        ChainType
	PrevBlockHash    string
	BlockNumber      int64
	Timestamp        time.Time
	WalletAddress    string
	PublicKey        []byte
	Events           []string // event ids this block attests to
	EventsMerkleRoot string
	BlockHash        string
	Signature        []byte
}

// walletHashInput renders the fields that feed blockHash, explicitly
// excluding BlockHash and Signature themselves.
func walletHashInput(b *WalletBlock) map[string]interface{} {
	return map[string]interface{}{
		"chainType":        string(b.ChainType),
		"prevBlockHash":    b.PrevBlockHash,
		"blockNumber":      b.BlockNumber,
		"timestamp":        b.Timestamp,
		"walletAddress":    b.WalletAddress,
		"publicKey":        canonical.SHA256Hex(b.PublicKey),
		"events":           toInterfaceSlice(b.Events),
		"eventsMerkleRoot": b.EventsMerkleRoot,
	}
}

// ComputeWalletBlockHash hashes a wallet block's canonical content.
func ComputeWalletBlockHash(b *WalletBlock) (string, error) {
	return canonical.HashHex(walletHashInput(b))
}

// NewWalletBlock builds and hashes the next block in a wallet chain.
// Signature is left empty; callers sign BlockHash afterward with the
// wallet's secret key and set it on the returned block.
func NewWalletBlock(prev *WalletBlock, walletAddress string, publicKey []byte, events []string, eventsMerkleRoot string, blockNumber int64, now time.Time) (*WalletBlock, error) {
	prevHash := GenesisHash
	if prev != nil {
		prevHash = prev.BlockHash
	}
	block := &WalletBlock{
		ChainType:        WalletChain,
		PrevBlockHash:    prevHash,
		BlockNumber:      blockNumber,
		Timestamp:        now,
		WalletAddress:    walletAddress,
		PublicKey:        publicKey,
		Events:           events,
		EventsMerkleRoot: eventsMerkleRoot,
	}
	hash, err := ComputeWalletBlockHash(block)
	if err != nil {
		return nil, err
	}
	block.BlockHash = hash
	return block, nil
}

// TransactionBlock is one entry in the single global transaction
// chain: one block per finalized day.
type TransactionBlock struct {
	ChainType           ChainType
	PrevBlockHash       string
	BlockNumber         int64
	Timestamp           time.Time
	DayID               string
	Events              []string
	RewardMerkleRoot    string
	StateHash           string
	WalletChainRef      string // optional; empty means absent
	ContributorCount    int
	TotalEmissionsMicro *big.Int
	BlockHash           string
}

func transactionHashInput(b *TransactionBlock) map[string]interface{} {
	walletRef := interface{}(canonical.Omitted)
	if b.WalletChainRef != "" {
		walletRef = b.WalletChainRef
	}
	return map[string]interface{}{
		"chainType":           string(b.ChainType),
		"prevBlockHash":       b.PrevBlockHash,
		"blockNumber":         b.BlockNumber,
		"timestamp":           b.Timestamp,
		"dayId":               b.DayID,
		"events":              toInterfaceSlice(b.Events),
		"rewardMerkleRoot":    b.RewardMerkleRoot,
		"stateHash":           b.StateHash,
		"walletChainRef":      walletRef,
		"contributorCount":    b.ContributorCount,
		"totalEmissionsMicro": b.TotalEmissionsMicro,
	}
}

// ComputeTransactionBlockHash hashes a transaction block's canonical
// content, excluding BlockHash itself.
func ComputeTransactionBlockHash(b *TransactionBlock) (string, error) {
	return canonical.HashHex(transactionHashInput(b))
}

// NewTransactionBlock builds and hashes the next day's transaction block.
func NewTransactionBlock(prev *TransactionBlock, dayID string, events []string, rewardMerkleRoot, stateHash, walletChainRef string, contributorCount int, totalEmissionsMicro *big.Int, blockNumber int64, now time.Time) (*TransactionBlock, error) {
	prevHash := GenesisHash
	if prev != nil {
		prevHash = prev.BlockHash
	}
	block := &TransactionBlock{
		ChainType:           TransactionChain,
		PrevBlockHash:       prevHash,
		BlockNumber:         blockNumber,
		Timestamp:           now,
		DayID:               dayID,
		Events:              events,
		RewardMerkleRoot:    rewardMerkleRoot,
		StateHash:           stateHash,
		WalletChainRef:      walletChainRef,
		ContributorCount:    contributorCount,
		TotalEmissionsMicro: totalEmissionsMicro,
	}
	hash, err := ComputeTransactionBlockHash(block)
	if err != nil {
		return nil, err
	}
	block.BlockHash = hash
	return block, nil
}

// VerifyTransactionChain re-derives each block's hash and checks
// prevBlockHash linkage; the first block must reference GenesisHash.
// Returns the index of the first broken block, or -1 if the chain verifies.
func VerifyTransactionChain(blocks []TransactionBlock) (brokenAt int, err error) {
	prevHash := GenesisHash
	for i := range blocks {
		b := blocks[i]
		if b.PrevBlockHash != prevHash {
			return i, nil
		}
		recomputed, herr := ComputeTransactionBlockHash(&b)
		if herr != nil {
			return i, herr
		}
		if recomputed != b.BlockHash {
			return i, nil
		}
		prevHash = b.BlockHash
	}
	return -1, nil
}

// VerifyWalletChain is the wallet-chain analogue of VerifyTransactionChain.
func VerifyWalletChain(blocks []WalletBlock) (brokenAt int, err error) {
	prevHash := GenesisHash
	for i := range blocks {
		b := blocks[i]
		if b.PrevBlockHash != prevHash {
			return i, nil
		}
		recomputed, herr := ComputeWalletBlockHash(&b)
		if herr != nil {
			return i, herr
		}
		if recomputed != b.BlockHash {
			return i, nil
		}
		prevHash = b.BlockHash
	}
	return -1, nil
}

// RetentionWindow is the transaction chain's rolling retention, per
// spec §4.8.
const RetentionWindow = 30 * 24 * time.Hour

// Prune returns the subset of blocks whose dayId is within the 30-day
// retention window of currentDay, plus the blocks that fell outside
// it (for archival before they are dropped from the live chain). A
// block whose dayId is not a YYYY-MM-DD date is dated by its Timestamp.
func Prune(blocks []TransactionBlock, currentDay time.Time) (kept, pruned []TransactionBlock) {
	cutoff := currentDay.Add(-RetentionWindow)
	for _, b := range blocks {
		day, err := time.Parse("2006-01-02", b.DayID)
		if err != nil {
			day = b.Timestamp
		}
		if day.Before(cutoff) {
			pruned = append(pruned, b)
		} else {
			kept = append(kept, b)
		}
	}
	if len(pruned) > 0 {
		logger.Info("pruning transaction chain blocks past retention window", "count", len(pruned), "currentDay", currentDay)
	}
	return kept, pruned
}

// VerifyBlockInvariants is a convenience guard used by callers building
// a transaction block: the declared contributorCount must be
// non-negative and totalEmissionsMicro must never be negative, since a
// negative emissions figure can only indicate an upstream bug.
func VerifyBlockInvariants(b *TransactionBlock) error {
	if b.ContributorCount < 0 {
		return xerrors.New(xerrors.InvariantBug, "chain.VerifyBlockInvariants", "negative contributorCount")
	}
	if b.TotalEmissionsMicro != nil && b.TotalEmissionsMicro.Sign() < 0 {
		return xerrors.New(xerrors.InvariantBug, "chain.VerifyBlockInvariants", "negative totalEmissionsMicro")
	}
	return nil
}

// toInterfaceSlice preserves input order: the events list is a
// sequence, not a set, so canonical serialization must not reorder it.
func toInterfaceSlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
