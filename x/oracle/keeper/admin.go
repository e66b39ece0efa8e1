package keeper

import (
	"context"
	"encoding/json"

	sdkmath "cosmossdk.io/math"

	"onchainpoker/apps/cosmos/x/oracle/types"
)

// Component I: owner handoff, pause flag, allowlist gate,
// timeout/staking config. Grounded on
// original_source/seda-chain-contracts/contract/src/msgs/owner/utils.rs
// and spec §4.I; follows x/dealer/keeper/params.go's Get/Set-pair
// idiom for the two config singletons.

func singletonKey(ns string) []byte { return []byte(ns) }

// ---- Staking / timeout config ----

func (k Keeper) GetStakingConfig(ctx context.Context) (types.StakingConfig, error) {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := kv.Get(singletonKey(nsStakingConfig))
	if err != nil {
		return types.StakingConfig{}, err
	}
	if bz == nil {
		return types.DefaultStakingConfig(), nil
	}
	var c types.StakingConfig
	if err := json.Unmarshal(bz, &c); err != nil {
		return types.StakingConfig{}, err
	}
	return c, nil
}

func (k Keeper) SetStakingConfig(ctx context.Context, c types.StakingConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return kv.Set(singletonKey(nsStakingConfig), bz)
}

func (k Keeper) GetTimeoutConfig(ctx context.Context) (types.TimeoutConfig, error) {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := kv.Get(singletonKey(nsTimeoutConfig))
	if err != nil {
		return types.TimeoutConfig{}, err
	}
	if bz == nil {
		return types.DefaultTimeoutConfig(), nil
	}
	var c types.TimeoutConfig
	if err := json.Unmarshal(bz, &c); err != nil {
		return types.TimeoutConfig{}, err
	}
	return c, nil
}

func (k Keeper) SetTimeoutConfig(ctx context.Context, c types.TimeoutConfig) error {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return kv.Set(singletonKey(nsTimeoutConfig), bz)
}

// ---- Token denom / chain id singletons ----

func (k Keeper) GetTokenDenom(ctx context.Context) (string, error) {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := kv.Get(singletonKey(nsToken))
	if err != nil {
		return "", err
	}
	return string(bz), nil
}

func (k Keeper) GetChainID(ctx context.Context) (string, error) {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := kv.Get(singletonKey(nsChainID))
	if err != nil {
		return "", err
	}
	return string(bz), nil
}

// ---- Owner handoff ----

func (k Keeper) GetOwner(ctx context.Context) (string, error) {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := kv.Get(singletonKey(nsOwner))
	if err != nil {
		return "", err
	}
	return string(bz), nil
}

func (k Keeper) setOwner(ctx context.Context, addr string) error {
	kv := k.storeService.OpenKVStore(ctx)
	return kv.Set(singletonKey(nsOwner), []byte(addr))
}

func (k Keeper) GetPendingOwner(ctx context.Context) (string, bool, error) {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := kv.Get(singletonKey(nsPendingOwner))
	if err != nil {
		return "", false, err
	}
	if bz == nil {
		return "", false, nil
	}
	return string(bz), true, nil
}

func (k Keeper) clearPendingOwner(ctx context.Context) error {
	kv := k.storeService.OpenKVStore(ctx)
	return kv.Delete(singletonKey(nsPendingOwner))
}

// TransferOwnership starts the two-step handoff: only the current
// owner may nominate a pending owner (spec §4.I).
func (k Keeper) TransferOwnership(ctx context.Context, sender, newOwner string) error {
	owner, err := k.GetOwner(ctx)
	if err != nil {
		return err
	}
	if sender != owner {
		return types.ErrNotOwner
	}
	kv := k.storeService.OpenKVStore(ctx)
	return kv.Set(singletonKey(nsPendingOwner), []byte(newOwner))
}

// AcceptOwnership completes the handoff: only the nominated pending
// owner may call it.
func (k Keeper) AcceptOwnership(ctx context.Context, sender string) error {
	pending, ok, err := k.GetPendingOwner(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrNoPendingOwnerFound
	}
	if sender != pending {
		return types.ErrNotPendingOwner
	}
	if err := k.setOwner(ctx, sender); err != nil {
		return err
	}
	return k.clearPendingOwner(ctx)
}

func (k Keeper) requireOwner(ctx context.Context, sender string) error {
	owner, err := k.GetOwner(ctx)
	if err != nil {
		return err
	}
	if sender != owner {
		return types.ErrNotOwner
	}
	return nil
}

// ---- Pause flag ----

func (k Keeper) IsPaused(ctx context.Context) (bool, error) {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := kv.Get(singletonKey(nsPaused))
	if err != nil {
		return false, err
	}
	return len(bz) == 1 && bz[0] == 1, nil
}

func (k Keeper) setPaused(ctx context.Context, paused bool) error {
	kv := k.storeService.OpenKVStore(ctx)
	var b byte
	if paused {
		b = 1
	}
	return kv.Set(singletonKey(nsPaused), []byte{b})
}

func (k Keeper) Pause(ctx context.Context, sender string) error {
	if err := k.requireOwner(ctx, sender); err != nil {
		return err
	}
	paused, err := k.IsPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return types.ErrContractPaused
	}
	return k.setPaused(ctx, true)
}

func (k Keeper) Unpause(ctx context.Context, sender string) error {
	if err := k.requireOwner(ctx, sender); err != nil {
		return err
	}
	paused, err := k.IsPaused(ctx)
	if err != nil {
		return err
	}
	if !paused {
		return types.ErrContractNotPaused
	}
	return k.setPaused(ctx, false)
}

// RequireNotPaused enforces the pause gate for a variant named by its
// "<group>.<variant>" wire discriminator, consulting the declarative
// exemption table instead of a hand-enumerated switch (spec §9 open
// question 2).
func (k Keeper) RequireNotPaused(ctx context.Context, variant string) error {
	if types.IsPauseExempt(variant) {
		return nil
	}
	paused, err := k.IsPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return types.ErrContractPaused.Wrap(variant)
	}
	return nil
}

// ---- Allowlist ----

func allowlistKey(pk []byte) []byte {
	return byteKeyRaw(nsAllowlist, pk)
}

func (k Keeper) IsOnAllowlist(ctx context.Context, pk []byte) (bool, error) {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := kv.Get(allowlistKey(pk))
	if err != nil {
		return false, err
	}
	return bz != nil, nil
}

// AddToAllowlist admits pk; owner-only.
func (k Keeper) AddToAllowlist(ctx context.Context, sender string, pk []byte) error {
	if err := k.requireOwner(ctx, sender); err != nil {
		return err
	}
	kv := k.storeService.OpenKVStore(ctx)
	return kv.Set(allowlistKey(pk), []byte{1})
}

// RemoveFromAllowlist evicts pk; owner-only. If pk still has a staker
// record, its staked tokens move to pending withdrawal (spec §4.I:
// "Removing an entry that has a staker record moves all
// tokens_staked into tokens_pending_withdrawal").
func (k Keeper) RemoveFromAllowlist(ctx context.Context, sender string, pk []byte) error {
	if err := k.requireOwner(ctx, sender); err != nil {
		return err
	}
	kv := k.storeService.OpenKVStore(ctx)
	if err := kv.Delete(allowlistKey(pk)); err != nil {
		return err
	}
	staker, found, err := k.GetStaker(ctx, pk)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	staker.TokensPendingWithdrawal = staker.TokensPendingWithdrawal.Add(staker.TokensStaked)
	staker.TokensStaked = sdkmath.ZeroInt()
	return k.SetStaker(ctx, pk, staker)
}
