package keeper

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"onchainpoker/apps/cosmos/x/oracle/committee"
	"onchainpoker/apps/cosmos/x/oracle/types"
)

// Query decodes raw as a QueryMsg and dispatches to the matching
// read-only handler, marshaling its result back to JSON. Query
// handlers never mutate state and never pause-gate (spec §4.I: reads
// always run).
func (k Keeper) Query(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var msg types.QueryMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, types.ErrInvalidRequest.Wrap(err.Error())
	}

	switch {
	case msg.DataRequest != nil:
		return k.queryDataRequest(ctx, msg.DataRequest)
	case msg.Staking != nil:
		return k.queryStaking(ctx, msg.Staking)
	case msg.Owner != nil:
		return k.queryOwner(ctx, msg.Owner)
	default:
		return nil, types.ErrUnknownVariant
	}
}

func (k Keeper) queryDataRequest(ctx context.Context, m *types.DataRequestQueryMsg) (json.RawMessage, error) {
	switch {
	case m.CanExecutorCommit != nil:
		ok, err := k.canExecutorCommit(ctx, m.CanExecutorCommit.DrID, m.CanExecutorCommit.PublicKey)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ok)

	case m.CanExecutorReveal != nil:
		ok, err := k.canExecutorReveal(ctx, m.CanExecutorReveal.DrID, m.CanExecutorReveal.PublicKey)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ok)

	case m.GetDataRequest != nil:
		id, err := decodeHex(m.GetDataRequest.DrID)
		if err != nil {
			return nil, err
		}
		req, ok, err := k.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, types.ErrNotFound
		}
		return json.Marshal(req)

	case m.GetDataRequestCommitment != nil:
		id, err := decodeHex(m.GetDataRequestCommitment.DrID)
		if err != nil {
			return nil, err
		}
		req, ok, err := k.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, types.ErrNotFound
		}
		commitment, ok := req.Commits[m.GetDataRequestCommitment.PublicKey]
		if !ok {
			return json.Marshal(nil)
		}
		return json.Marshal(commitment)

	case m.GetDataRequestCommitments != nil:
		id, err := decodeHex(m.GetDataRequestCommitments.DrID)
		if err != nil {
			return nil, err
		}
		req, ok, err := k.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, types.ErrNotFound
		}
		return json.Marshal(req.Commits)

	case m.GetDataRequestReveal != nil:
		id, err := decodeHex(m.GetDataRequestReveal.DrID)
		if err != nil {
			return nil, err
		}
		req, ok, err := k.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, types.ErrNotFound
		}
		reveal, ok := req.Reveals[m.GetDataRequestReveal.PublicKey]
		if !ok {
			return json.Marshal(nil)
		}
		return json.Marshal(reveal)

	case m.GetDataRequestReveals != nil:
		id, err := decodeHex(m.GetDataRequestReveals.DrID)
		if err != nil {
			return nil, err
		}
		req, ok, err := k.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, types.ErrNotFound
		}
		return json.Marshal(req.Reveals)

	case m.GetDataRequestsByStatus != nil:
		status, ok := types.ParseRequestStatus(m.GetDataRequestsByStatus.Status)
		if !ok {
			return nil, types.ErrInvalidRequest.Wrapf("unknown status %q", m.GetDataRequestsByStatus.Status)
		}
		ids, err := k.GetRequestsByStatus(ctx, status, m.GetDataRequestsByStatus.Offset, m.GetDataRequestsByStatus.Limit)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = hex.EncodeToString(id)
		}
		return json.Marshal(out)

	default:
		return nil, types.ErrUnknownVariant
	}
}

// canExecutorCommit reports whether pk may successfully call
// commit_data_result on dr right now: the request exists and is in
// the Committing stage, pk has not already committed, the
// replication factor has not been met, and pk clears the
// committee-eligibility staking floor (spec §4.E commit_result's
// precondition set, without the VRF proof check a dry-run query has
// no proof to verify). No commit timeout is checked.
func (k Keeper) canExecutorCommit(ctx context.Context, drIDHex, pkHex string) (bool, error) {
	id, err := decodeHex(drIDHex)
	if err != nil {
		return false, nil
	}
	req, ok, err := k.GetRequest(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok || req.Status != types.StatusCommitting {
		return false, nil
	}
	if _, already := req.Commits[pkHex]; already {
		return false, nil
	}
	if uint16(len(req.Commits)) >= req.ReplicationFactor {
		return false, nil
	}
	pk, err := decodeHex(pkHex)
	if err != nil {
		return false, nil
	}
	cfg, err := k.GetStakingConfig(ctx)
	if err != nil {
		return false, err
	}
	return k.IsExecutor(ctx, pk, cfg)
}

// canExecutorReveal is canExecutorCommit's analogue for the reveal
// stage: the request's commit phase is complete, pk committed and has
// not yet revealed.
func (k Keeper) canExecutorReveal(ctx context.Context, drIDHex, pkHex string) (bool, error) {
	id, err := decodeHex(drIDHex)
	if err != nil {
		return false, nil
	}
	req, ok, err := k.GetRequest(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok || req.Status != types.StatusRevealing {
		return false, nil
	}
	if _, committed := req.Commits[pkHex]; !committed {
		return false, nil
	}
	if _, already := req.Reveals[pkHex]; already {
		return false, nil
	}
	return true, nil
}

func (k Keeper) queryStaking(ctx context.Context, m *types.StakingQueryMsg) (json.RawMessage, error) {
	switch {
	case m.GetStaker != nil:
		pk, err := decodeHex(m.GetStaker.PublicKey)
		if err != nil {
			return nil, err
		}
		staker, ok, err := k.GetStaker(ctx, pk)
		if err != nil {
			return nil, err
		}
		if !ok {
			return json.Marshal(nil)
		}
		return json.Marshal(staker)

	case m.GetAccountSeq != nil:
		pk, err := decodeHex(m.GetAccountSeq.PublicKey)
		if err != nil {
			return nil, err
		}
		seq, err := k.GetAccountSeq(ctx, pk)
		if err != nil {
			return nil, err
		}
		return json.Marshal(seq.Uint64())

	case m.GetStakerAndSeq != nil:
		pk, err := decodeHex(m.GetStakerAndSeq.PublicKey)
		if err != nil {
			return nil, err
		}
		staker, ok, err := k.GetStaker(ctx, pk)
		if err != nil {
			return nil, err
		}
		seq, err := k.GetAccountSeq(ctx, pk)
		if err != nil {
			return nil, err
		}
		type stakerAndSeq struct {
			Staker   *types.Staker `json:"staker"`
			Sequence uint64        `json:"seq"`
		}
		out := stakerAndSeq{Sequence: seq.Uint64()}
		if ok {
			out.Staker = &staker
		}
		return json.Marshal(out)

	case m.IsStakerExecutor != nil:
		pk, err := decodeHex(m.IsStakerExecutor.PublicKey)
		if err != nil {
			return nil, err
		}
		cfg, err := k.GetStakingConfig(ctx)
		if err != nil {
			return nil, err
		}
		ok, err := k.IsExecutor(ctx, pk, cfg)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ok)

	case m.IsExecutorEligible != nil:
		ok, err := k.isExecutorEligible(ctx, m.IsExecutorEligible.DrID, m.IsExecutorEligible.PublicKey)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ok)

	case m.GetStakingConfig != nil:
		cfg, err := k.GetStakingConfig(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(cfg)

	default:
		return nil, types.ErrUnknownVariant
	}
}

// isExecutorEligible implements the is_executor_eligible query (spec
// §4.H): gather the active-staker set, then delegate the pure
// selection math to the committee package.
func (k Keeper) isExecutorEligible(ctx context.Context, drIDHex, pkHex string) (bool, error) {
	drID, err := decodeHex(drIDHex)
	if err != nil {
		return false, nil
	}
	req, ok, err := k.GetRequest(ctx, drID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	cfg, err := k.GetStakingConfig(ctx)
	if err != nil {
		return false, err
	}
	entries, err := k.AllActiveStakers(ctx, types.Staker{TokensStaked: cfg.MinimumStakeForCommittee})
	if err != nil {
		return false, err
	}
	active := make([]committee.ActiveStaker, len(entries))
	for i, e := range entries {
		active[i] = committee.ActiveStaker{PublicKey: hex.EncodeToString(e.PublicKey)}
	}
	return committee.IsEligible(active, drID, req.ReplicationFactor, pkHex), nil
}

func (k Keeper) queryOwner(ctx context.Context, m *types.OwnerQueryMsg) (json.RawMessage, error) {
	switch {
	case m.GetOwner != nil:
		owner, err := k.GetOwner(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(owner)

	case m.GetPendingOwner != nil:
		pending, ok, err := k.GetPendingOwner(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return json.Marshal(nil)
		}
		return json.Marshal(pending)

	case m.IsPaused != nil:
		paused, err := k.IsPaused(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(paused)

	default:
		return nil, types.ErrUnknownVariant
	}
}
