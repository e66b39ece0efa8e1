package oraclecrypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// DefaultVerifier is a concrete stand-in for the VRF scheme spec.md
// §1 scopes out as an external black box ("secp256k1 VRF — treated as
// a black box"). It checks an ECDSA signature over the message hash
// under the given compressed public key; a real deployment would swap
// this for an actual VRF verifier without changing any caller.
type DefaultVerifier struct{}

// Verify reports whether proof is a valid signature over hash by the
// holder of pubKey.
func (DefaultVerifier) Verify(pubKey PublicKey, hash, proof []byte) error {
	pk, err := secp256k1.ParsePubKey(pubKey[:])
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}
	sig, err := ecdsa.ParseDERSignature(proof)
	if err != nil {
		return fmt.Errorf("parse proof: %w", err)
	}
	if !sig.Verify(hash, pk) {
		return fmt.Errorf("proof verification failed")
	}
	return nil
}
