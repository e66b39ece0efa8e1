// Package committee computes deterministic committee-eligibility
// windows over a sorted list of active stakers, kept separate from
// keeper state access the same way x/dealer/committee separates
// selection math from store reads.
package committee

import sdkmath "cosmossdk.io/math"

// ActiveStaker is one entry of the deterministic byte-ordered active
// staker list a caller gathers before calling IsEligible.
type ActiveStaker struct {
	PublicKey string // hex, used only for the position_of lookup
}

// IsEligible implements the committee-eligibility selector of spec §4.H:
// given the ordered list of active stakers, the data request id and its
// replication factor, decide whether pk falls in the deterministic
// window starting at be_u256(dr_id) mod N.
//
// Per spec §4.H item 2, a pk absent from active is ineligible rather
// than an error — this is a deliberate divergence from the original
// Rust implementation, which panics via .expect() on the equivalent
// lookup failure (see DESIGN.md).
func IsEligible(active []ActiveStaker, drID []byte, replicationFactor uint16, pk string) bool {
	n := len(active)
	if n == 0 {
		return false
	}
	index := -1
	for i, a := range active {
		if a.PublicKey == pk {
			index = i
			break
		}
	}
	if index < 0 {
		return false
	}

	nUint := sdkmath.NewUint(uint64(n))
	drIndex := beBytesToUint(drID).Mod(nUint)
	rf := sdkmath.NewUint(uint64(replicationFactor))
	endIndex := drIndex.Add(rf).Mod(nUint)

	i := sdkmath.NewUint(uint64(index))

	if drIndex.LT(endIndex) {
		return i.GTE(drIndex) && i.LT(endIndex)
	}
	return i.GTE(drIndex) || i.LT(endIndex)
}

// beBytesToUint interprets b as a big-endian unsigned integer,
// matching spec §4.H's be_u256(dr_id).
func beBytesToUint(b []byte) sdkmath.Uint {
	if len(b) == 0 {
		return sdkmath.ZeroUint()
	}
	u := sdkmath.NewUintFromBigInt(bigEndianBigInt(b))
	return u
}
