package types

import sdkmath "cosmossdk.io/math"

// DefaultStakingConfig mirrors the original contract's instantiate-time
// defaults: both minima must be positive (spec §4.I).
func DefaultStakingConfig() StakingConfig {
	return StakingConfig{
		MinimumStake:             sdkmath.NewInt(1),
		MinimumStakeForCommittee: sdkmath.NewInt(1),
		AllowlistEnabled:         false,
	}
}

// DefaultTimeoutConfig mirrors the original contract's instantiate-time
// defaults for commit/reveal expiry windows, in blocks.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		CommitTimeoutBlocks: 100,
		RevealTimeoutBlocks: 100,
	}
}
