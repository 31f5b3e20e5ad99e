// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package merkle

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ai4all-network/coordinator/internal/xerrors"
)

// RewardEntry is one account's nanounit reward for a day, the unit the
// commitment is built over.
type RewardEntry struct {
	AccountID       string
	AmountNanounits *big.Int
}

// RewardProof is everything an off-chain observer needs to verify that
// (accountID, amountNanounits) really was committed for dayID under root.
type RewardProof struct {
	AccountID       string
	AmountNanounits *big.Int
	DayID           string
	Leaf            string
	LeafHash        string
	Proof           []ProofStep
	Root            string
}

// RewardCommitment is a built Merkle commitment over a day's rewards.
type RewardCommitment struct {
	dayID          string
	tree           *Tree
	entries        []RewardEntry // sorted ascending by AccountID
	indexByAccount map[string]int
	totalNanounits *big.Int
}

// rewardLeaf renders the versioned, null-separated leaf format:
// "v1\0{accountId}\0{amountNanounits}\0{dayId}".
func rewardLeaf(accountID string, amount *big.Int, dayID string) (string, error) {
	if strings.ContainsRune(accountID, 0) {
		return "", xerrors.New(xerrors.InvalidInput, "merkle.rewardLeaf", "accountId contains NUL")
	}
	if strings.ContainsRune(dayID, 0) {
		return "", xerrors.New(xerrors.InvalidInput, "merkle.rewardLeaf", "dayId contains NUL")
	}
	return fmt.Sprintf("v1\x00%s\x00%s\x00%s", accountID, amount.String(), dayID), nil
}

// BuildRewardCommitment sorts entries ascending by AccountID, rejects
// duplicate account ids, and builds the leaf-prefixed tree described in
// spec §4.7.
func BuildRewardCommitment(dayID string, entries []RewardEntry) (*RewardCommitment, error) {
	sorted := append([]RewardEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AccountID < sorted[j].AccountID })

	seen := make(map[string]bool, len(sorted))
	leaves := make([]string, len(sorted))
	total := big.NewInt(0)
	indexByAccount := make(map[string]int, len(sorted))

	for i, e := range sorted {
		if seen[e.AccountID] {
			return nil, xerrors.New(xerrors.InvalidInput, "merkle.BuildRewardCommitment", "duplicate accountId: "+e.AccountID)
		}
		seen[e.AccountID] = true
		if e.AmountNanounits.Sign() < 0 {
			return nil, xerrors.New(xerrors.InvalidInput, "merkle.BuildRewardCommitment", "negative reward for "+e.AccountID)
		}

		leaf, err := rewardLeaf(e.AccountID, e.AmountNanounits, dayID)
		if err != nil {
			return nil, err
		}
		leaves[i] = leaf
		indexByAccount[e.AccountID] = i
		total.Add(total, e.AmountNanounits)
	}

	return &RewardCommitment{
		dayID:          dayID,
		tree:           Build(leaves),
		entries:        sorted,
		indexByAccount: indexByAccount,
		totalNanounits: total,
	}, nil
}

// Root returns the commitment's Merkle root.
func (c *RewardCommitment) Root() string { return c.tree.Root() }

// LeafCount returns the number of reward entries committed.
func (c *RewardCommitment) LeafCount() int { return c.tree.LeafCount() }

// TotalNanounits returns the sum of every committed reward.
func (c *RewardCommitment) TotalNanounits() *big.Int { return new(big.Int).Set(c.totalNanounits) }

// GetProof returns a verifiable proof for accountID, or an error if the
// account was not part of this commitment.
func (c *RewardCommitment) GetProof(accountID string) (*RewardProof, error) {
	idx, ok := c.indexByAccount[accountID]
	if !ok {
		return nil, xerrors.New(xerrors.NotFound, "merkle.GetProof", "accountId not in commitment: "+accountID)
	}
	entry := c.entries[idx]
	leaf, err := rewardLeaf(entry.AccountID, entry.AmountNanounits, c.dayID)
	if err != nil {
		return nil, err
	}
	steps, ok := c.tree.Proof(idx)
	if !ok {
		return nil, xerrors.New(xerrors.InvariantBug, "merkle.GetProof", "leaf index out of range")
	}

	return &RewardProof{
		AccountID:       entry.AccountID,
		AmountNanounits: new(big.Int).Set(entry.AmountNanounits),
		DayID:           c.dayID,
		Leaf:            leaf,
		LeafHash:        LeafHash(leaf),
		Proof:           steps,
		Root:            c.tree.Root(),
	}, nil
}

// VerifyRewardProof recomputes the expected leaf from the claimed
// account/amount/day, confirms it matches LeafHash, and walks the
// proof to root. Any single-field tamper (account, amount, dayId,
// leaf, leafHash, a proof node, a position flip, or the root) fails.
func VerifyRewardProof(p *RewardProof) bool {
	if p == nil {
		return false
	}
	expectedLeaf, err := rewardLeaf(p.AccountID, p.AmountNanounits, p.DayID)
	if err != nil {
		return false
	}
	if expectedLeaf != p.Leaf {
		return false
	}
	if LeafHash(p.Leaf) != p.LeafHash {
		return false
	}
	return VerifyProof(p.LeafHash, p.Proof, p.Root)
}
