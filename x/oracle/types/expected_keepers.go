package types

import "onchainpoker/apps/cosmos/internal/oraclecrypto"

// VRFVerifier is the external collaborator spec.md §1 scopes out as a
// black box: "secp256k1 VRF — treated as a black box". The keeper
// holds one of these rather than implementing proof verification
// itself; NewKeeper panics if nil, same discipline as the teacher's
// other injected keepers.
type VRFVerifier interface {
	Verify(pubKey oraclecrypto.PublicKey, hash, proof []byte) error
}
