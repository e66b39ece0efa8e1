package types

import "fmt"

// GenesisState is the exported/imported module state. Requests and
// stakers are flattened lists rather than the keeper's internal
// index structures; the keeper's InitGenesis rebuilds the ordered-set and
// timeout indices from these lists.
type GenesisState struct {
	Owner         string        `json:"owner"`
	ChainID       string        `json:"chain_id"`
	TokenDenom    string        `json:"token_denom"`
	Paused        bool          `json:"paused"`
	StakingConfig StakingConfig `json:"staking_config"`
	TimeoutConfig TimeoutConfig `json:"timeout_config"`

	Stakers   []GenesisStaker  `json:"stakers"`
	Allowlist []string         `json:"allowlist"`
	Requests  []GenesisRequest `json:"requests"`
}

type GenesisStaker struct {
	PublicKey string `json:"public_key"`
	Staker    Staker `json:"staker"`
	Sequence  uint64 `json:"sequence"`
}

type GenesisRequest struct {
	Request Request       `json:"request"`
	Status  RequestStatus `json:"status"`
	Escrow  Escrow        `json:"escrow"`
	// ExpiryHeight is the timeout-index entry for requests in
	// Committing or Revealing; zero (unused) for Tallying requests,
	// which carry no timeout entry (spec §3 "Timeout index").
	ExpiryHeight uint64 `json:"expiry_height,omitempty"`
}

func DefaultGenesisState() *GenesisState {
	return &GenesisState{
		StakingConfig: DefaultStakingConfig(),
		TimeoutConfig: DefaultTimeoutConfig(),
	}
}

func ValidateGenesis(gs *GenesisState) error {
	if gs == nil {
		return fmt.Errorf("genesis state is nil")
	}
	if gs.Owner == "" {
		return fmt.Errorf("owner must be set")
	}
	if gs.TokenDenom == "" {
		return fmt.Errorf("token_denom must be set")
	}
	if err := gs.StakingConfig.Validate(); err != nil {
		return fmt.Errorf("invalid staking_config: %w", err)
	}
	if gs.TimeoutConfig.CommitTimeoutBlocks == 0 {
		return fmt.Errorf("commit_timeout_blocks must be > 0")
	}
	if gs.TimeoutConfig.RevealTimeoutBlocks == 0 {
		return fmt.Errorf("reveal_timeout_blocks must be > 0")
	}
	seen := make(map[string]bool, len(gs.Stakers))
	for _, s := range gs.Stakers {
		if seen[s.PublicKey] {
			return fmt.Errorf("duplicate staker public key %s", s.PublicKey)
		}
		seen[s.PublicKey] = true
	}
	seenReq := make(map[string]bool, len(gs.Requests))
	for _, r := range gs.Requests {
		if seenReq[r.Request.ID] {
			return fmt.Errorf("duplicate request id %s", r.Request.ID)
		}
		seenReq[r.Request.ID] = true
		if len(r.Request.Commits) > int(r.Request.ReplicationFactor) {
			return fmt.Errorf("request %s: |commits| exceeds replication_factor", r.Request.ID)
		}
		if len(r.Request.Reveals) > len(r.Request.Commits) {
			return fmt.Errorf("request %s: |reveals| exceeds |commits|", r.Request.ID)
		}
	}
	return nil
}
