// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifierAcceptsFreshSignedRequest(t *testing.T) {
	pub, priv, err := Ed25519GenerateKey()
	require.NoError(t, err)

	lookup := func(accountID string) ([]byte, bool) {
		if accountID == "alice" {
			return pub, true
		}
		return nil, false
	}
	v := NewVerifier(Ed25519Verify, lookup)

	now := time.Date(2026, 1, 28, 12, 0, 0, 0, time.UTC)
	sig := Ed25519Sign(priv, CanonicalMessage("alice", now))

	ok, err := v.Verify(Request{AccountID: "alice", Timestamp: now, Signature: sig}, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifierRejectsOutsideReplayWindow(t *testing.T) {
	pub, priv, err := Ed25519GenerateKey()
	require.NoError(t, err)
	lookup := func(string) ([]byte, bool) { return pub, true }
	v := NewVerifier(Ed25519Verify, lookup)

	ts := time.Date(2026, 1, 28, 12, 0, 0, 0, time.UTC)
	sig := Ed25519Sign(priv, CanonicalMessage("alice", ts))

	now := ts.Add(31 * time.Second)
	ok, err := v.Verify(Request{AccountID: "alice", Timestamp: ts, Signature: sig}, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifierRejectsUnknownAccount(t *testing.T) {
	lookup := func(string) ([]byte, bool) { return nil, false }
	v := NewVerifier(Ed25519Verify, lookup)

	now := time.Now()
	_, err := v.Verify(Request{AccountID: "ghost", Timestamp: now, Signature: []byte("x")}, now)
	require.Error(t, err)
}

func TestVerifierRejectsTamperedSignature(t *testing.T) {
	pub, priv, err := Ed25519GenerateKey()
	require.NoError(t, err)
	lookup := func(string) ([]byte, bool) { return pub, true }
	v := NewVerifier(Ed25519Verify, lookup)

	now := time.Date(2026, 1, 28, 12, 0, 0, 0, time.UTC)
	sig := Ed25519Sign(priv, CanonicalMessage("alice", now))
	sig[0] ^= 0xFF

	ok, err := v.Verify(Request{AccountID: "alice", Timestamp: now, Signature: sig}, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeriveAddressIs44Chars(t *testing.T) {
	pub, _, err := Ed25519GenerateKey()
	require.NoError(t, err)
	addr := DeriveAddress(pub)
	assert.Len(t, addr, 44)
	assert.Equal(t, AddressPrefix, addr[:4])
}
