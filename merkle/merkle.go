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

// Package merkle implements the leaf-prefixed SHA-256 binary tree used
// to commit a day's reward distribution, and its proof verification.
package merkle

import (
	"github.com/ai4all-network/coordinator/canonical"
)

// EmptyTreeHash is the sentinel root of a tree built over zero leaves.
var EmptyTreeHash = canonical.SHA256Hex([]byte("EMPTY_MERKLE_TREE"))

// LeafHash returns SHA256("leaf:" || leaf).
func LeafHash(leaf string) string {
	return canonical.SHA256Hex(append([]byte("leaf:"), leaf...))
}

// NodeHash returns SHA256("node:" || left || right). Positional:
// swapping left and right changes the hash, there is no canonical
// ordering of siblings.
func NodeHash(left, right string) string {
	b := append([]byte("node:"), left...)
	b = append(b, right...)
	return canonical.SHA256Hex(b)
}

// Tree is a binary Merkle tree with levels[0] the leaf-hash row and
// levels[len-1] a single-element row holding the root.
type Tree struct {
	leaves []string // original leaf values, in input order
	levels [][]string
}

// Build constructs a tree over leaves in the given order. An odd node
// at a level is promoted unchanged to the next level rather than
// duplicated.
func Build(leaves []string) *Tree {
	if len(leaves) == 0 {
		return &Tree{levels: [][]string{{EmptyTreeHash}}}
	}

	level := make([]string, len(leaves))
	for i, l := range leaves {
		level[i] = LeafHash(l)
	}

	levels := [][]string{level}
	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, NodeHash(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		levels = append(levels, next)
		level = next
	}

	return &Tree{leaves: append([]string(nil), leaves...), levels: levels}
}

// Root returns the tree's root hash.
func (t *Tree) Root() string {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// LeafCount returns the number of leaves the tree was built over.
func (t *Tree) LeafCount() int {
	return len(t.leaves)
}

// ProofStep is one sibling hash a verifier must combine with the
// running hash while walking from a leaf to the root.
type ProofStep struct {
	Hash       string
	IsLeftSide bool // true if Hash is the LEFT operand at this level
}

// Proof returns the sibling path from leaves[index] to the root, or
// false if index is out of range.
func (t *Tree) Proof(index int) ([]ProofStep, bool) {
	if index < 0 || index >= len(t.leaves) {
		return nil, false
	}

	var steps []ProofStep
	idx := index
	for lvl := 0; lvl < len(t.levels)-1; lvl++ {
		level := t.levels[lvl]
		isRightChild := idx%2 == 1
		var siblingIdx int
		if isRightChild {
			siblingIdx = idx - 1
		} else {
			siblingIdx = idx + 1
		}
		if siblingIdx < len(level) {
			if isRightChild {
				steps = append(steps, ProofStep{Hash: level[siblingIdx], IsLeftSide: true})
			} else {
				steps = append(steps, ProofStep{Hash: level[siblingIdx], IsLeftSide: false})
			}
		}
		// else: this node was promoted unchanged, no sibling to combine.
		idx /= 2
	}
	return steps, true
}

// VerifyProof recomputes the root from a leaf hash and a sibling path,
// and reports whether it equals root.
func VerifyProof(leafHash string, proof []ProofStep, root string) bool {
	cur := leafHash
	for _, step := range proof {
		if step.IsLeftSide {
			cur = NodeHash(step.Hash, cur)
		} else {
			cur = NodeHash(cur, step.Hash)
		}
	}
	return cur == root
}
