// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToNanoRejectsNegativeAndTooLarge(t *testing.T) {
	_, err := ToNano(-1)
	require.Error(t, err)

	_, err = ToNano(maxSafeFloat + 1)
	require.Error(t, err)
}

func TestToNanoRoundTrips(t *testing.T) {
	n, err := ToNano(1.5)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_500_000_000), n)
}

func TestSqrtIntBounds(t *testing.T) {
	for _, n := range []int64{0, 1, 2, 3, 4, 9999, 1_000_000_007} {
		bn := big.NewInt(n)
		s := SqrtInt(bn)
		sSq := new(big.Int).Mul(s, s)
		assert.True(t, sSq.Cmp(bn) <= 0, "s^2 <= n for n=%d", n)

		next := new(big.Int).Add(s, big.NewInt(1))
		nextSq := new(big.Int).Mul(next, next)
		assert.True(t, bn.Cmp(nextSq) < 0, "n < (s+1)^2 for n=%d", n)
	}
}

func TestDistributeProportionalExactSum(t *testing.T) {
	weights := []*big.Int{big.NewInt(130), big.NewInt(60), big.NewInt(10)}
	pool := new(big.Int).Mul(big.NewInt(22000), big.NewInt(NanoPerToken))

	shares, err := DistributeProportional(weights, pool)
	require.NoError(t, err)

	sum := big.NewInt(0)
	for _, s := range shares {
		assert.True(t, s.Sign() >= 0)
		sum.Add(sum, s)
	}
	assert.Equal(t, 0, sum.Cmp(pool))
}

func TestDistributeProportionalZeroWeightsFallsBackToEqualSplit(t *testing.T) {
	weights := []*big.Int{big.NewInt(0), big.NewInt(0), big.NewInt(0)}
	pool := big.NewInt(10)

	shares, err := DistributeProportional(weights, pool)
	require.NoError(t, err)

	sum := big.NewInt(0)
	for _, s := range shares {
		sum.Add(sum, s)
	}
	assert.Equal(t, 0, sum.Cmp(pool))
}

func TestDistributeProportionalRemainderTieBreaksByIndex(t *testing.T) {
	weights := []*big.Int{big.NewInt(1), big.NewInt(1), big.NewInt(1)}
	pool := big.NewInt(10)

	shares, err := DistributeProportional(weights, pool)
	require.NoError(t, err)
	// 10/3 -> base 3 each, remainder 1, lowest index gets the extra unit.
	assert.Equal(t, big.NewInt(4), shares[0])
	assert.Equal(t, big.NewInt(3), shares[1])
	assert.Equal(t, big.NewInt(3), shares[2])
}

func TestDistributeSqrtWeightedExactSum(t *testing.T) {
	points := []*big.Int{big.NewInt(1_000_000), big.NewInt(1)}
	pool := big.NewInt(22000 * NanoPerToken)

	shares, err := DistributeSqrtWeighted(points, pool)
	require.NoError(t, err)

	sum := big.NewInt(0)
	for _, s := range shares {
		sum.Add(sum, s)
	}
	assert.Equal(t, 0, sum.Cmp(pool))

	// Sybil attenuation: reward-per-point for the tiny contributor must
	// strictly exceed the whale's, while the whale's total reward must
	// strictly exceed the shrimp's.
	whalePerPoint := new(big.Int).Quo(shares[0], points[0])
	shrimpPerPoint := new(big.Int).Quo(shares[1], points[1])
	assert.True(t, shrimpPerPoint.Cmp(whalePerPoint) > 0)
	assert.True(t, shares[0].Cmp(shares[1]) > 0)
}

func TestDistributePropotionalRejectsNegativePool(t *testing.T) {
	_, err := DistributeProportional([]*big.Int{big.NewInt(1)}, big.NewInt(-1))
	require.Error(t, err)
}
