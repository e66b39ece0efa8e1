package keeper

import (
	"context"
	"encoding/hex"
	"encoding/json"

	sdkmath "cosmossdk.io/math"

	"onchainpoker/apps/cosmos/x/oracle/types"
)

// InitGenesis rebuilds the keeper's indices (ordered sets, timeout
// index) from the flattened GenesisState lists. Not wired into an
// AppModule: registering x/oracle into the chain's module manager is
// out of scope (spec §1 Non-goal "CLI/packaging"), but the keeper-level
// genesis import/export this module needs independent of that wiring
// still belongs here, per SPEC_FULL.md §2's ambient "Genesis" item.
func (k Keeper) InitGenesis(ctx context.Context, gs *types.GenesisState) error {
	if err := k.setOwner(ctx, gs.Owner); err != nil {
		return err
	}
	kv := k.storeService.OpenKVStore(ctx)
	if err := kv.Set(singletonKey(nsToken), []byte(gs.TokenDenom)); err != nil {
		return err
	}
	if err := kv.Set(singletonKey(nsChainID), []byte(gs.ChainID)); err != nil {
		return err
	}
	if err := k.setPaused(ctx, gs.Paused); err != nil {
		return err
	}
	if err := k.SetStakingConfig(ctx, gs.StakingConfig); err != nil {
		return err
	}
	if err := k.SetTimeoutConfig(ctx, gs.TimeoutConfig); err != nil {
		return err
	}

	for _, pkHex := range gs.Allowlist {
		pk, err := hex.DecodeString(pkHex)
		if err != nil {
			return types.ErrHexDecode.Wrap(err.Error())
		}
		if err := kv.Set(allowlistKey(pk), []byte{1}); err != nil {
			return err
		}
	}

	for _, gStaker := range gs.Stakers {
		pk, err := hex.DecodeString(gStaker.PublicKey)
		if err != nil {
			return types.ErrHexDecode.Wrap(err.Error())
		}
		if err := k.SetStaker(ctx, pk, gStaker.Staker); err != nil {
			return err
		}
		if gStaker.Sequence > 0 {
			bz, err := json.Marshal(sdkmath.NewUint(gStaker.Sequence))
			if err != nil {
				return err
			}
			if err := kv.Set(accountSeqKey(pk), bz); err != nil {
				return err
			}
		}
	}

	for _, gReq := range gs.Requests {
		idBytes, err := hex.DecodeString(gReq.Request.ID)
		if err != nil {
			return types.ErrHexDecode.Wrap(err.Error())
		}
		r := gReq.Request
		r.Status = gReq.Status
		if err := k.saveRequest(kv, idBytes, r); err != nil {
			return err
		}
		if err := k.statusSet(gReq.Status).Add(kv, idBytes); err != nil {
			return err
		}
		if gReq.Status != types.StatusTallying {
			if err := k.timeouts().Insert(kv, gReq.ExpiryHeight, idBytes); err != nil {
				return err
			}
		}
		if err := k.SetEscrow(ctx, idBytes, gReq.Escrow); err != nil {
			return err
		}
	}

	return nil
}

// ExportGenesis flattens the keeper's live state back into a
// GenesisState, the inverse of InitGenesis.
func (k Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	owner, err := k.GetOwner(ctx)
	if err != nil {
		return nil, err
	}
	kv := k.storeService.OpenKVStore(ctx)
	denomBz, err := kv.Get(singletonKey(nsToken))
	if err != nil {
		return nil, err
	}
	chainIDBz, err := kv.Get(singletonKey(nsChainID))
	if err != nil {
		return nil, err
	}
	paused, err := k.IsPaused(ctx)
	if err != nil {
		return nil, err
	}
	stakingCfg, err := k.GetStakingConfig(ctx)
	if err != nil {
		return nil, err
	}
	timeoutCfg, err := k.GetTimeoutConfig(ctx)
	if err != nil {
		return nil, err
	}

	gs := &types.GenesisState{
		Owner:         owner,
		ChainID:       string(chainIDBz),
		TokenDenom:    string(denomBz),
		Paused:        paused,
		StakingConfig: stakingCfg,
		TimeoutConfig: timeoutCfg,
	}

	n, err := k.stakerSet().Len(kv)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < n; i++ {
		pk, err := k.stakerSet().At(kv, i)
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
		seq, err := k.GetAccountSeq(ctx, pk)
		if err != nil {
			return nil, err
		}
		gs.Stakers = append(gs.Stakers, types.GenesisStaker{
			PublicKey: hex.EncodeToString(pk),
			Staker:    staker,
			Sequence:  seq.Uint64(),
		})
	}

	for _, status := range []types.RequestStatus{types.StatusCommitting, types.StatusRevealing, types.StatusTallying} {
		set := k.statusSet(status)
		total, err := set.Len(kv)
		if err != nil {
			return nil, err
		}
		for i := uint32(0); i < total; i++ {
			id, err := set.At(kv, i)
			if err != nil {
				return nil, err
			}
			req, ok, err := k.GetRequest(ctx, id)
			if err != nil {
				return nil, err
			}
			if !ok {
				panic("oracle: status set referenced a missing request during export")
			}
			escrow, ok, err := k.GetEscrow(ctx, id)
			if err != nil {
				return nil, err
			}
			if !ok {
				panic("oracle: live request missing escrow during export")
			}
			var expiry uint64
			if status != types.StatusTallying {
				h, ok, err := k.timeouts().GetHeight(kv, id)
				if err != nil {
					return nil, err
				}
				if !ok {
					panic("oracle: committing/revealing request missing timeout entry during export")
				}
				expiry = h
			}
			gs.Requests = append(gs.Requests, types.GenesisRequest{
				Request:      req,
				Status:       status,
				Escrow:       escrow,
				ExpiryHeight: expiry,
			})
		}
	}

	return gs, nil
}
