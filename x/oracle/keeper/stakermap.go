package keeper

import (
	"context"
	"encoding/json"

	"onchainpoker/apps/cosmos/x/oracle/types"
)

// Component C: staker map. Wraps an ordered-set index (A) over raw
// public-key bytes plus a pk -> Staker JSON map, enforcing invariant
// S2 (a record exists iff either balance is non-zero) on every write.
func (k Keeper) stakerSet() orderedSet {
	return newOrderedSet(nsStakerSetLen, nsStakerSetKeyToIndex, nsStakerSetIndexToKey)
}

func stakerKey(pk []byte) []byte {
	return byteKeyRaw(nsStakers, pk)
}

// GetStaker loads the staker record for pk, if any.
func (k Keeper) GetStaker(ctx context.Context, pk []byte) (types.Staker, bool, error) {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := kv.Get(stakerKey(pk))
	if err != nil {
		return types.Staker{}, false, err
	}
	if bz == nil {
		return types.Staker{}, false, nil
	}
	var s types.Staker
	if err := json.Unmarshal(bz, &s); err != nil {
		return types.Staker{}, false, err
	}
	return s, true, nil
}

// SetStaker persists s for pk, adding pk to the ordered set if this is
// its first appearance, or removing both the record and the set entry
// if s has settled to zero (invariant S2).
func (k Keeper) SetStaker(ctx context.Context, pk []byte, s types.Staker) error {
	kv := k.storeService.OpenKVStore(ctx)
	set := k.stakerSet()

	has, err := set.Has(kv, pk)
	if err != nil {
		return err
	}

	if s.IsZero() {
		if has {
			if err := set.Remove(kv, pk); err != nil {
				return err
			}
			return kv.Delete(stakerKey(pk))
		}
		return nil
	}

	if !has {
		if err := set.Add(kv, pk); err != nil {
			return err
		}
	}
	bz, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return kv.Set(stakerKey(pk), bz)
}

// StakerCount returns the number of registered stakers (used by
// post_request's replication-factor bound, spec §4.E item 2).
func (k Keeper) StakerCount(ctx context.Context) (uint32, error) {
	kv := k.storeService.OpenKVStore(ctx)
	return k.stakerSet().Len(kv)
}

// AllActiveStakers returns, in ordered-set index order, every staker
// whose tokens_staked meets the committee-eligibility minimum (spec
// §4.C's is_executor staking-floor clause, without the allowlist
// gate — callers combine this with IsOnAllowlist as needed).
func (k Keeper) AllActiveStakers(ctx context.Context, minForCommittee types.Staker) ([]ActiveStakerEntry, error) {
	kv := k.storeService.OpenKVStore(ctx)
	set := k.stakerSet()
	n, err := set.Len(kv)
	if err != nil {
		return nil, err
	}
	out := make([]ActiveStakerEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		pk, err := set.At(kv, i)
		if err != nil {
			return nil, err
		}
		staker, ok, err := k.GetStaker(ctx, pk)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if staker.TokensStaked.LT(minForCommittee.TokensStaked) {
			continue
		}
		out = append(out, ActiveStakerEntry{PublicKey: pk, Staker: staker})
	}
	return out, nil
}

// ActiveStakerEntry pairs a raw public key with its staker record, in
// the deterministic order AllActiveStakers collects them.
type ActiveStakerEntry struct {
	PublicKey []byte
	Staker    types.Staker
}

// IsExecutor implements the is_executor predicate of spec §4.C.
func (k Keeper) IsExecutor(ctx context.Context, pk []byte, cfg types.StakingConfig) (bool, error) {
	if cfg.AllowlistEnabled {
		onList, err := k.IsOnAllowlist(ctx, pk)
		if err != nil {
			return false, err
		}
		if !onList {
			return false, nil
		}
	}
	staker, ok, err := k.GetStaker(ctx, pk)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return staker.TokensStaked.GTE(cfg.MinimumStakeForCommittee), nil
}
