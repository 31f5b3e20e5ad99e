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

// Package fixedpoint implements all token-amount arithmetic in
// nanounits (1 token = 1e9 nanounits) using math/big so that every
// component shares one exact, overflow-free representation.
package fixedpoint

import (
	"math"
	"math/big"
	"sort"

	"github.com/ai4all-network/coordinator/internal/xerrors"
)

// NanoPerToken is the number of nanounits in one token.
const NanoPerToken = 1_000_000_000

// maxSafeFloat is 2^53, the largest float64 that round-trips exactly
// through an integer; toNano rejects anything above it per spec §4.1.
const maxSafeFloat = 1 << 53

// ToNano converts a token amount expressed as a float64 into an exact
// nanounit integer, rounding to nearest. Negative values and values
// above 2^53 are rejected.
func ToNano(tokens float64) (*big.Int, error) {
	if tokens < 0 {
		return nil, xerrors.New(xerrors.InvalidInput, "fixedpoint.ToNano", "negative token amount")
	}
	if tokens > maxSafeFloat {
		return nil, xerrors.New(xerrors.InvalidInput, "fixedpoint.ToNano", "token amount exceeds 2^53")
	}
	scaled := math.Round(tokens * NanoPerToken)
	bi, _ := big.NewFloat(scaled).Int(nil)
	return bi, nil
}

// ToTokens converts a nanounit amount back to a float64 token amount.
func ToTokens(nano *big.Int) float64 {
	f := new(big.Float).SetInt(nano)
	f.Quo(f, big.NewFloat(NanoPerToken))
	out, _ := f.Float64()
	return out
}

// SqrtInt returns floor(sqrt(n)) for n >= 0 via Newton's method,
// satisfying sqrtInt(n)^2 <= n < (sqrtInt(n)+1)^2 for all n.
func SqrtInt(n *big.Int) *big.Int {
	if n.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sqrt(n)
}

// SqrtPoints computes sqrtInt(points * NanoPerToken), preserving one
// full unit of fractional precision before taking the integer root, as
// required by spec §4.1 so that sub-unit performance scores still
// produce a meaningfully distinct weight.
func SqrtPoints(points float64) (*big.Int, error) {
	if points < 0 {
		return nil, xerrors.New(xerrors.InvalidInput, "fixedpoint.SqrtPoints", "negative points")
	}
	scaled, err := ToNano(points)
	if err != nil {
		return nil, err
	}
	return SqrtInt(scaled), nil
}

type weightedRemainder struct {
	index int
	frac  *big.Int // (weight_i * pool) mod sumWeights
}

// DistributeProportional splits pool nanounits across weights
// proportionally to each weight, guaranteeing Σshares == pool exactly.
//
// Each share starts at floor(weight_i*pool/Σw); the remainder is handed
// out one nanounit at a time to the indices with the largest fractional
// remainder (weight_i*pool mod Σw), ties broken by ascending index. If
// Σw == 0 every index is treated as weight 1 (equal split), using the
// same remainder rule.
func DistributeProportional(weights []*big.Int, pool *big.Int) ([]*big.Int, error) {
	if pool.Sign() < 0 {
		return nil, xerrors.New(xerrors.InvalidInput, "fixedpoint.DistributeProportional", "negative pool")
	}
	n := len(weights)
	shares := make([]*big.Int, n)
	if n == 0 {
		if pool.Sign() != 0 {
			return nil, xerrors.New(xerrors.InvariantBug, "fixedpoint.DistributeProportional", "nonzero pool with no recipients")
		}
		return shares, nil
	}

	sumW := big.NewInt(0)
	for _, w := range weights {
		if w.Sign() < 0 {
			return nil, xerrors.New(xerrors.InvalidInput, "fixedpoint.DistributeProportional", "negative weight")
		}
		sumW.Add(sumW, w)
	}

	effective := weights
	if sumW.Sign() == 0 {
		effective = make([]*big.Int, n)
		for i := range effective {
			effective[i] = big.NewInt(1)
		}
		sumW = big.NewInt(int64(n))
	}

	remainders := make([]weightedRemainder, n)
	distributed := big.NewInt(0)
	for i, w := range effective {
		num := new(big.Int).Mul(w, pool)
		q, r := new(big.Int).QuoRem(num, sumW, new(big.Int))
		shares[i] = q
		remainders[i] = weightedRemainder{index: i, frac: r}
		distributed.Add(distributed, q)
	}

	remainder := new(big.Int).Sub(pool, distributed)
	if remainder.Sign() < 0 {
		return nil, xerrors.New(xerrors.InvariantBug, "fixedpoint.DistributeProportional", "distributed more than pool")
	}

	sort.SliceStable(remainders, func(i, j int) bool {
		c := remainders[i].frac.Cmp(remainders[j].frac)
		if c != 0 {
			return c > 0
		}
		return remainders[i].index < remainders[j].index
	})

	// remainder is always < n: Σr_i = sumW*remainder and each r_i < sumW
	// over n terms, so a single pass over the ranked indices suffices.
	one := big.NewInt(1)
	remCount := remainder.Int64()
	for i := int64(0); i < remCount; i++ {
		shares[remainders[i].index].Add(shares[remainders[i].index], one)
	}

	sum := big.NewInt(0)
	for _, s := range shares {
		sum.Add(sum, s)
	}
	if sum.Cmp(pool) != 0 {
		return nil, xerrors.New(xerrors.InvariantBug, "fixedpoint.DistributeProportional", "sum of shares does not equal pool")
	}
	return shares, nil
}

// DistributeSqrtWeighted splits pool nanounits proportionally to
// sqrtInt(points_i), reusing DistributeProportional's remainder rule so
// the same exact-sum guarantee holds.
func DistributeSqrtWeighted(points []*big.Int, pool *big.Int) ([]*big.Int, error) {
	weights := make([]*big.Int, len(points))
	for i, p := range points {
		if p.Sign() < 0 {
			return nil, xerrors.New(xerrors.InvalidInput, "fixedpoint.DistributeSqrtWeighted", "negative points")
		}
		weights[i] = SqrtInt(p)
	}
	return DistributeProportional(weights, pool)
}
