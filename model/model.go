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

// Package model holds the data types shared by every component: the
// data model of spec.md section 3.
package model

import (
	"math/big"
	"time"
)

// BlockType names the kind of compute block a contributor performed.
type BlockType string

const (
	BlockInference  BlockType = "INFERENCE"
	BlockEmbeddings BlockType = "EMBEDDINGS"
	BlockValidation BlockType = "VALIDATION"
	BlockTraining   BlockType = "TRAINING"
)

// BasePoints maps each BlockType to its base score per spec §4.2.
var BasePoints = map[BlockType]float64{
	BlockInference:  10,
	BlockEmbeddings: 8,
	BlockValidation: 5,
	BlockTraining:   15,
}

// CompletedBlock is one unit of work a contributor submitted and, if
// accepted, that now lives permanently on their record.
type CompletedBlock struct {
	BlockID               string
	BlockType             BlockType
	ResourceUsage         float64 // in [0,1]
	DifficultyMultiplier  float64 // >= 1.0
	ValidationPassed      bool
	Timestamp             time.Time
	IsCanary              bool
	CanaryAnswerCorrect   *bool // must be non-nil iff IsCanary
}

// Contributor is a registered network participant and their full
// completed-block history.
type Contributor struct {
	ID                    string
	PublicKey             []byte
	Reputation            float64 // in [0,1], the *base* reputation before any cached penalty math
	CanaryPasses          int
	CanaryFailures         int
	LastCanaryFailureTime *time.Time
	Blocks                []CompletedBlock
	RegisteredAt          time.Time
}

// Clone returns a deep copy so pipeline stages never mutate a shared
// Contributor in place; spec §4.4 requires submission processing to
// always return a new value.
func (c *Contributor) Clone() *Contributor {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Blocks = append([]CompletedBlock(nil), c.Blocks...)
	if c.LastCanaryFailureTime != nil {
		t := *c.LastCanaryFailureTime
		clone.LastCanaryFailureTime = &t
	}
	return &clone
}

// DerivedLastCanaryFailureTime returns the max timestamp among blocks
// marked canary-failed, which per spec §3 must agree with the cached
// LastCanaryFailureTime field.
func (c *Contributor) DerivedLastCanaryFailureTime() *time.Time {
	var latest *time.Time
	for i := range c.Blocks {
		b := &c.Blocks[i]
		if b.IsCanary && b.CanaryAnswerCorrect != nil && !*b.CanaryAnswerCorrect {
			if latest == nil || b.Timestamp.After(*latest) {
				t := b.Timestamp
				latest = &t
			}
		}
	}
	return latest
}

// BlockAssignment is one contributor's batch of assigned block ids for
// a day.
type BlockAssignment struct {
	ContributorID string
	BlockIDs      []string
	AssignedAt    time.Time
	BatchNumber   int // >= 1
}

// Submission is a worker's claim of having completed a block.
type Submission struct {
	ContributorID        string
	BlockID              string
	BlockType            BlockType
	ResourceUsage        float64
	DifficultyMultiplier float64
	ValidationPassed     bool
	CanaryAnswerCorrect  *bool
	Timestamp            time.Time
	TokenUsage           *int64 // optional
}

// RewardEntry is one account's nanounit reward, the unit the Merkle
// commitment and the balance ledger both operate over.
type RewardEntry struct {
	AccountID       string
	AmountNanounits *big.Int
}

// ContributorReward is the display-level breakdown of one day's reward
// for one contributor.
type ContributorReward struct {
	AccountID             string
	BasePoolReward        *big.Int
	PerformancePoolReward *big.Int
	TotalReward           *big.Int
	Reason                string
}
