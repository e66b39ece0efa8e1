// Package oraclecrypto wraps the secp256k1/keccak256 primitives the
// oracle module treats as external black boxes (public-key parsing,
// domain-separated hashing, and VRF-proof verification).
package oraclecrypto

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PublicKeyLen is the length of a compressed secp256k1 public key.
const PublicKeyLen = 33

// PublicKey is the 33-byte compressed secp256k1 identity of a staker
// or executor.
type PublicKey [PublicKeyLen]byte

// ParsePublicKeyHex decodes and validates a hex-encoded compressed
// public key. Errors mirror the contract's InvalidPublicKeyLength /
// hex-decode discriminants (spec §7).
func ParsePublicKeyHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("hex decode public key: %w", err)
	}
	return ParsePublicKeyBytes(b)
}

// ParsePublicKeyBytes validates a raw compressed public key, checking
// both length and that it decodes to a point on the curve.
func ParsePublicKeyBytes(b []byte) (PublicKey, error) {
	if len(b) != PublicKeyLen {
		return PublicKey{}, fmt.Errorf("invalid public key length: %d", len(b))
	}
	if _, err := secp256k1.ParsePubKey(b); err != nil {
		return PublicKey{}, fmt.Errorf("invalid public key: %w", err)
	}
	var pk PublicKey
	copy(pk[:], b)
	return pk, nil
}

func (pk PublicKey) Hex() string {
	return hex.EncodeToString(pk[:])
}

func (pk PublicKey) Bytes() []byte {
	return pk[:]
}
