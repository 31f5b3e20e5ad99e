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

// Package auth implements the pluggable worker-auth capability of
// spec §4.10: canonical message reconstruction, a ±30s replay window,
// and account-address derivation from a public key.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ai4all-network/coordinator/internal/xerrors"
	"github.com/ai4all-network/coordinator/internal/xlog"
)

var logger = xlog.NewModuleLogger("auth")

// ReplayWindow bounds how far a worker-auth timestamp may drift from
// the verifier's clock in either direction.
const ReplayWindow = 30 * time.Second

// AddressPrefix is the 4-byte literal prepended to every derived address.
const AddressPrefix = "ai4a"

// VerifyFunc is the pluggable signature-verification capability the
// core depends on: verify(message, sig, pk) -> bool. The core never
// assumes a particular signature primitive.
type VerifyFunc func(message, sig, pk []byte) bool

// KeyLookup resolves an accountId to its registered public key.
type KeyLookup func(accountID string) ([]byte, bool)

// Request is a worker's authentication claim.
type Request struct {
	AccountID string
	Timestamp time.Time
	Signature []byte
}

// Verifier rebuilds the canonical auth message and delegates actual
// signature checking to a pluggable VerifyFunc.
type Verifier struct {
	verify VerifyFunc
	lookup KeyLookup
}

// NewVerifier builds a Verifier around a signature primitive and a
// public-key lookup.
func NewVerifier(verify VerifyFunc, lookup KeyLookup) *Verifier {
	return &Verifier{verify: verify, lookup: lookup}
}

// CanonicalMessage renders the exact UTF-8 bytes a worker must sign:
// "AI4ALL:v1:{accountId}:{iso8601Timestamp}".
func CanonicalMessage(accountID string, timestamp time.Time) []byte {
	return []byte(fmt.Sprintf("AI4ALL:v1:%s:%s", accountID, timestamp.UTC().Format(time.RFC3339Nano)))
}

// Verify checks a worker-auth request: replay window, public-key
// lookup, then delegated signature verification, in that order.
func (v *Verifier) Verify(req Request, now time.Time) (bool, error) {
	drift := now.Sub(req.Timestamp)
	if drift < 0 {
		drift = -drift
	}
	if drift > ReplayWindow {
		logger.Warn("auth timestamp outside replay window", "accountId", req.AccountID, "drift", drift)
		return false, nil
	}

	pk, ok := v.lookup(req.AccountID)
	if !ok {
		return false, xerrors.New(xerrors.NotFound, "auth.Verifier.Verify", "unknown accountId: "+req.AccountID)
	}

	msg := CanonicalMessage(req.AccountID, req.Timestamp)
	return v.verify(msg, req.Signature, pk), nil
}

// DeriveAddress computes the 44-char account address: a 4-byte literal
// prefix followed by the lowercase hex of the first 20 bytes of
// SHA-256(publicKey).
func DeriveAddress(publicKey []byte) string {
	sum := sha256.Sum256(publicKey)
	return AddressPrefix + hex.EncodeToString(sum[:20])
}
