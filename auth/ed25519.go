// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package auth

import (
	"golang.org/x/crypto/ed25519"
)

// Ed25519Verify is the default VerifyFunc implementation. It is a
// stand-in signature primitive: spec §4.10 explicitly keeps the core
// agnostic to any one scheme, and no lattice/post-quantum signature
// library is available in this module's dependency set, so ed25519
// stands in as the concrete default wired at the composition root.
func Ed25519Verify(message, sig, pk []byte) bool {
	if len(pk) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pk), message, sig)
}

// Ed25519GenerateKey is a small test/bootstrap helper producing a
// fresh keypair for local development and unit tests.
func Ed25519GenerateKey() (pub ed25519.PublicKey, priv ed25519.PrivateKey, err error) {
	return ed25519.GenerateKey(nil)
}

// Ed25519Sign signs message with priv, for use by callers (and tests)
// constructing a Request.
func Ed25519Sign(priv ed25519.PrivateKey, message []byte) []byte {
	return ed25519.Sign(priv, message)
}
