// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package chain

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransactionBlockChainsFromGenesis(t *testing.T) {
	now := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	b0, err := NewTransactionBlock(nil, "2026-01-28", []string{"e1", "e2"}, "root1", "state1", "", 3, big.NewInt(22000), 1, now)
	require.NoError(t, err)
	assert.Equal(t, GenesisHash, b0.PrevBlockHash)
	assert.Len(t, GenesisHash, 64)

	b1, err := NewTransactionBlock(b0, "2026-01-29", []string{"e3"}, "root2", "state2", "", 2, big.NewInt(22000), 2, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, b0.BlockHash, b1.PrevBlockHash)

	brokenAt, err := VerifyTransactionChain([]TransactionBlock{*b0, *b1})
	require.NoError(t, err)
	assert.Equal(t, -1, brokenAt)
}

func TestVerifyTransactionChainDetectsTamperedField(t *testing.T) {
	now := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	b0, err := NewTransactionBlock(nil, "2026-01-28", []string{"e1"}, "root1", "state1", "", 1, big.NewInt(100), 1, now)
	require.NoError(t, err)

	tampered := *b0
	tampered.ContributorCount = 999

	brokenAt, err := VerifyTransactionChain([]TransactionBlock{tampered})
	require.NoError(t, err)
	assert.Equal(t, 0, brokenAt)
}

func TestWalletBlockHashExcludesSignature(t *testing.T) {
	now := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	b, err := NewWalletBlock(nil, "AI4Aabc123", []byte("pubkey"), []string{"e1"}, "root", 1, now)
	require.NoError(t, err)

	signed := *b
	signed.Signature = []byte("somesig")
	rehash, err := ComputeWalletBlockHash(&signed)
	require.NoError(t, err)
	assert.Equal(t, b.BlockHash, rehash)
}

func TestPruneSplitsByRetentionWindow(t *testing.T) {
	now := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	recent := TransactionBlock{DayID: "2026-01-27", Timestamp: now.Add(-1 * 24 * time.Hour)}
	old := TransactionBlock{DayID: "2025-12-01", Timestamp: now.Add(-40 * 24 * time.Hour)}

	kept, pruned := Prune([]TransactionBlock{recent, old}, now)
	require.Len(t, kept, 1)
	require.Len(t, pruned, 1)
	assert.Equal(t, "2026-01-27", kept[0].DayID)
	assert.Equal(t, "2025-12-01", pruned[0].DayID)
}

func TestVerifyBlockInvariantsRejectsNegativeEmissions(t *testing.T) {
	b := &TransactionBlock{ContributorCount: 1, TotalEmissionsMicro: big.NewInt(-1)}
	err := VerifyBlockInvariants(b)
	assert.Error(t, err)
}
