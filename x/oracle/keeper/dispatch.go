package keeper

import (
	"context"
	"encoding/json"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"onchainpoker/apps/cosmos/x/oracle/types"
)

// Component dispatch: the JSON Execute/Sudo entry points that switch
// on the decoded discriminator the way the original contract's
// msgs/mod.rs ExecuteHandler impl does, delegating one keeper method
// per variant (spec §4, "Wire model"). Query's analogous switch lives
// in query.go.

func (k Keeper) authContext(ctx context.Context) (authContext, error) {
	chainID, err := k.GetChainID(ctx)
	if err != nil {
		return authContext{}, err
	}
	return authContext{ChainID: []byte(chainID), Authority: []byte(k.authority)}, nil
}

// Execute decodes raw as an ExecuteMsg and dispatches to the matching
// keeper operation. now is the current block height, supplied by the
// caller rather than read off ctx so state-machine code stays a pure
// function of its explicit inputs (spec §5 "determinism").
func (k Keeper) Execute(ctx context.Context, sender sdk.AccAddress, funds sdk.Coin, raw json.RawMessage, now int64) (*types.Response, error) {
	var msg types.ExecuteMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, types.ErrInvalidRequest.Wrap(err.Error())
	}

	switch {
	case msg.DataRequest != nil:
		return k.executeDataRequest(ctx, sender, funds, msg.DataRequest, now)
	case msg.Staking != nil:
		return k.executeStaking(ctx, sender, funds, msg.Staking)
	case msg.Owner != nil:
		return k.executeOwner(ctx, sender, msg.Owner)
	default:
		return nil, types.ErrUnknownVariant
	}
}

func (k Keeper) executeDataRequest(ctx context.Context, sender sdk.AccAddress, funds sdk.Coin, m *types.DataRequestExecuteMsg, now int64) (*types.Response, error) {
	switch {
	case m.PostDataRequest != nil:
		if err := k.RequireNotPaused(ctx, "data_request.post_data_request"); err != nil {
			return nil, err
		}
		denom, err := k.GetTokenDenom(ctx)
		if err != nil {
			return nil, err
		}
		timeoutCfg, err := k.GetTimeoutConfig(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := k.PostRequest(ctx, *m.PostDataRequest, sender.String(), funds.Amount, funds.Denom, denom, now, timeoutCfg)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return nil, err
		}
		return &types.Response{Data: data}, nil

	case m.CommitDataResult != nil:
		if err := k.RequireNotPaused(ctx, "data_request.commit_data_result"); err != nil {
			return nil, err
		}
		stakingCfg, err := k.GetStakingConfig(ctx)
		if err != nil {
			return nil, err
		}
		ac, err := k.authContext(ctx)
		if err != nil {
			return nil, err
		}
		if err := k.CommitResult(ctx, *m.CommitDataResult, now, stakingCfg, ac); err != nil {
			return nil, err
		}
		return &types.Response{}, nil

	case m.RevealDataResult != nil:
		if err := k.RequireNotPaused(ctx, "data_request.reveal_data_result"); err != nil {
			return nil, err
		}
		ac, err := k.authContext(ctx)
		if err != nil {
			return nil, err
		}
		if err := k.RevealResult(ctx, *m.RevealDataResult, now, ac); err != nil {
			return nil, err
		}
		return &types.Response{}, nil

	case m.SetTimeoutConfig != nil:
		// Pause-exempt (spec §9 open question 2).
		if err := k.requireOwner(ctx, sender.String()); err != nil {
			return nil, err
		}
		if err := k.SetTimeoutConfig(ctx, m.SetTimeoutConfig.Config); err != nil {
			return nil, err
		}
		return &types.Response{}, nil

	default:
		return nil, types.ErrUnknownVariant
	}
}

func (k Keeper) executeStaking(ctx context.Context, sender sdk.AccAddress, funds sdk.Coin, m *types.StakingExecuteMsg) (*types.Response, error) {
	ac, err := k.authContext(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case m.Stake != nil:
		if err := k.RequireNotPaused(ctx, "staking.stake"); err != nil {
			return nil, err
		}
		if err := k.Stake(ctx, *m.Stake, sender.String(), funds.Amount, ac); err != nil {
			return nil, err
		}
		return &types.Response{}, nil

	case m.Unstake != nil:
		if err := k.RequireNotPaused(ctx, "staking.unstake"); err != nil {
			return nil, err
		}
		if err := k.Unstake(ctx, *m.Unstake, sender.String(), ac); err != nil {
			return nil, err
		}
		return &types.Response{}, nil

	case m.Withdraw != nil:
		if err := k.RequireNotPaused(ctx, "staking.withdraw"); err != nil {
			return nil, err
		}
		denom, err := k.GetTokenDenom(ctx)
		if err != nil {
			return nil, err
		}
		effect, err := k.Withdraw(ctx, *m.Withdraw, sender.String(), denom, ac)
		if err != nil {
			return nil, err
		}
		return &types.Response{BankEffects: []types.BankEffect{effect}}, nil

	case m.SetStakingConfig != nil:
		// Pause-exempt (spec §9 open question 2).
		if err := k.SetStakingConfigOp(ctx, sender.String(), m.SetStakingConfig.Config); err != nil {
			return nil, err
		}
		return &types.Response{}, nil

	default:
		return nil, types.ErrUnknownVariant
	}
}

func (k Keeper) executeOwner(ctx context.Context, sender sdk.AccAddress, m *types.OwnerExecuteMsg) (*types.Response, error) {
	// Owner-group variants are never pause-gated (spec §4.I: the owner
	// must always be able to pause/unpause and manage the allowlist).
	switch {
	case m.TransferOwnership != nil:
		if err := k.TransferOwnership(ctx, sender.String(), m.TransferOwnership.NewOwner); err != nil {
			return nil, err
		}
		return &types.Response{}, nil

	case m.AcceptOwnership != nil:
		if err := k.AcceptOwnership(ctx, sender.String()); err != nil {
			return nil, err
		}
		return &types.Response{}, nil

	case m.AddToAllowlist != nil:
		pk, err := decodeHex(m.AddToAllowlist.PublicKey)
		if err != nil {
			return nil, err
		}
		if err := k.AddToAllowlist(ctx, sender.String(), pk); err != nil {
			return nil, err
		}
		return &types.Response{}, nil

	case m.RemoveFromAllowlist != nil:
		pk, err := decodeHex(m.RemoveFromAllowlist.PublicKey)
		if err != nil {
			return nil, err
		}
		if err := k.RemoveFromAllowlist(ctx, sender.String(), pk); err != nil {
			return nil, err
		}
		return &types.Response{}, nil

	case m.Pause != nil:
		if err := k.Pause(ctx, sender.String()); err != nil {
			return nil, err
		}
		return &types.Response{}, nil

	case m.Unpause != nil:
		if err := k.Unpause(ctx, sender.String()); err != nil {
			return nil, err
		}
		return &types.Response{}, nil

	default:
		return nil, types.ErrUnknownVariant
	}
}

// Sudo decodes raw as a SudoMsg and dispatches to the matching
// host-only operation. Unlike Execute, sudo entry points are never
// pause-gated: remove_data_requests/expire_data_requests run under
// host authority, outside the ordinary message flow (spec §4.F, §4.E).
func (k Keeper) Sudo(ctx context.Context, raw json.RawMessage, now int64) (*types.Response, error) {
	var msg types.SudoMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, types.ErrInvalidRequest.Wrap(err.Error())
	}
	if msg.DataRequest == nil {
		return nil, types.ErrUnknownVariant
	}

	switch {
	case msg.DataRequest.RemoveDataRequests != nil:
		denom, err := k.GetTokenDenom(ctx)
		if err != nil {
			return nil, err
		}
		results, effects, err := k.RemoveRequests(ctx, msg.DataRequest.RemoveDataRequests.Requests, denom)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(results)
		if err != nil {
			return nil, err
		}
		return &types.Response{Data: data, BankEffects: effects}, nil

	case msg.DataRequest.ExpireDataRequests != nil:
		ids, err := k.Expire(ctx, now)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(ids)
		if err != nil {
			return nil, err
		}
		return &types.Response{Data: data}, nil

	default:
		return nil, types.ErrUnknownVariant
	}
}
