package keeper

import (
	"context"
	"encoding/hex"

	sdkmath "cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"onchainpoker/apps/cosmos/internal/oraclecrypto"
	"onchainpoker/apps/cosmos/x/oracle/types"
)

// Component E: the request state machine. Grounded file-for-file on
// original_source/seda-chain-contracts/contract/src/msgs/data_requests/execute/
// {post_request,commit_result,reveal_result}.rs; control flow (validate,
// mutate, emit) follows x/dealer/keeper/msg_server.go's handlers.

// PostRequest implements spec §4.E's post_request operation.
func (k Keeper) PostRequest(
	ctx context.Context,
	msg types.MsgPostDataRequest,
	sender string,
	attachedFunds sdkmath.Int,
	denom, expectedDenom string,
	now int64,
	cfg types.TimeoutConfig,
) (*types.PostRequestResponse, error) {
	if denom != expectedDenom {
		return nil, types.ErrWrongDenom.Wrapf("expected %s, got %s", expectedDenom, denom)
	}

	args := msg.PostedDR
	if args.ReplicationFactor == 0 {
		return nil, types.ErrReplicationFactorZero
	}

	stakersLen, err := k.StakerCount(ctx)
	if err != nil {
		return nil, err
	}
	if uint32(args.ReplicationFactor) > stakersLen {
		return nil, types.ErrReplicationFactorTooHigh.Wrapf("have %d stakers", stakersLen)
	}

	idBytes, err := computeRequestID(args)
	if err != nil {
		return nil, err
	}
	exists, err := k.RequestExists(ctx, idBytes)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, types.ErrAlreadyExists
	}

	gasPrice, ok := sdkmath.NewIntFromString(args.GasPrice)
	if !ok {
		return nil, types.ErrInvalidRequest.Wrapf("invalid gas_price: %s", args.GasPrice)
	}
	required := sdkmath.NewIntFromUint64(args.ExecGasLimit).
		Add(sdkmath.NewIntFromUint64(args.TallyGasLimit)).
		Mul(gasPrice)
	if attachedFunds.LT(required) {
		return nil, types.ErrInsufficientFunds.Wrapf("required %s, have %s", required, attachedFunds)
	}

	idHex := hex.EncodeToString(idBytes)

	if err := k.SetEscrow(ctx, idBytes, types.Escrow{Amount: attachedFunds, Poster: sender}); err != nil {
		return nil, err
	}

	req := types.Request{
		ID:                idHex,
		VersionMajor:      args.VersionMajor,
		VersionMinor:      args.VersionMinor,
		VersionPatch:      args.VersionPatch,
		ExecProgramID:     args.ExecProgramID,
		ExecInputs:        args.ExecInputs,
		ExecGasLimit:      args.ExecGasLimit,
		TallyProgramID:    args.TallyProgramID,
		TallyInputs:       args.TallyInputs,
		TallyGasLimit:     args.TallyGasLimit,
		ReplicationFactor: args.ReplicationFactor,
		ConsensusFilter:   args.ConsensusFilter,
		GasPrice:          args.GasPrice,
		Memo:              args.Memo,
		PaybackAddress:    msg.PaybackAddress,
		SedaPayload:       msg.SedaPayload,
		Commits:           map[string]string{},
		Reveals:           map[string]types.RevealBody{},
		Height:            now,
	}

	commitExpiry := uint64(now) + cfg.CommitTimeoutBlocks
	if err := k.InsertRequest(ctx, idBytes, req, commitExpiry); err != nil {
		return nil, err
	}

	sdkCtx := sdk.UnwrapSDKContext(ctx)
	sdkCtx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeDataRequest,
		sdk.NewAttribute(types.AttributeKeyDRID, idHex),
		sdk.NewAttribute(types.AttributeKeyDRPoster, sender),
		sdk.NewAttribute(types.AttributeKeyExecProgramID, args.ExecProgramID),
		sdk.NewAttribute(types.AttributeKeyExecInputs, args.ExecInputs),
		sdk.NewAttribute(types.AttributeKeyExecGasLimit, sdkmath.NewIntFromUint64(args.ExecGasLimit).String()),
		sdk.NewAttribute(types.AttributeKeyTallyProgramID, args.TallyProgramID),
		sdk.NewAttribute(types.AttributeKeyTallyInputs, args.TallyInputs),
		sdk.NewAttribute(types.AttributeKeyTallyGasLimit, sdkmath.NewIntFromUint64(args.TallyGasLimit).String()),
		sdk.NewAttribute(types.AttributeKeyReplicationFactor, sdkmath.NewIntFromUint64(uint64(args.ReplicationFactor)).String()),
		sdk.NewAttribute(types.AttributeKeyConsensusFilter, args.ConsensusFilter),
		sdk.NewAttribute(types.AttributeKeyGasPrice, args.GasPrice),
		sdk.NewAttribute(types.AttributeKeyMemo, args.Memo),
		sdk.NewAttribute(types.AttributeKeySedaPayload, msg.SedaPayload),
		sdk.NewAttribute(types.AttributeKeyPaybackAddress, msg.PaybackAddress),
	))

	return &types.PostRequestResponse{IDHex: idHex, Height: now}, nil
}

// CommitResult implements spec §4.E's commit_result operation.
func (k Keeper) CommitResult(ctx context.Context, msg types.MsgCommitDataResult, now int64, cfg types.StakingConfig, ac authContext) error {
	idBytes, err := decodeHex(msg.DrID)
	if err != nil {
		return err
	}
	req, ok, err := k.GetRequest(ctx, idBytes)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrNotFound
	}
	if _, already := req.Commits[msg.PublicKey]; already {
		return types.ErrAlreadyCommitted
	}
	if uint16(len(req.Commits)) >= req.ReplicationFactor {
		return types.ErrRevealStarted
	}

	height, ok, err := k.timeouts().GetHeight(k.storeService.OpenKVStore(ctx), idBytes)
	if err != nil {
		return err
	}
	if !ok || height <= uint64(now) {
		return types.ErrDataRequestExpired.Wrapf("height %d, stage commit", height)
	}

	pk, err := oraclecrypto.ParsePublicKeyHex(msg.PublicKey)
	if err != nil {
		return types.ErrInvalidPublicKeyLength.Wrap(err.Error())
	}
	staker, found, err := k.GetStaker(ctx, pk[:])
	if err != nil {
		return err
	}
	if !found {
		return types.ErrStakerNotFound
	}
	if staker.TokensStaked.LT(cfg.MinimumStakeForCommittee) {
		return types.ErrInsufficientFunds.Wrapf("need %s, have %s", cfg.MinimumStakeForCommittee, staker.TokensStaked)
	}

	commitment, err := decodeHex(msg.Commitment)
	if err != nil {
		return err
	}
	proof, err := decodeHex(msg.Proof)
	if err != nil {
		return err
	}
	payloadHash := oraclecrypto.Keccak256([]byte(msg.DrID), commitment)
	if err := k.verifyCommit(ctx, pk, payloadHash, proof, req.Height, ac); err != nil {
		return err
	}

	req.Commits[msg.PublicKey] = msg.Commitment
	if uint16(len(req.Commits)) == req.ReplicationFactor {
		timeoutCfg, err := k.GetTimeoutConfig(ctx)
		if err != nil {
			return err
		}
		revealExpiry := uint64(now) + timeoutCfg.RevealTimeoutBlocks
		if err := k.TransitionToRevealing(ctx, idBytes, req, revealExpiry); err != nil {
			return err
		}
	} else {
		kv := k.storeService.OpenKVStore(ctx)
		if err := k.saveRequest(kv, idBytes, req); err != nil {
			return err
		}
	}

	sdkCtx := sdk.UnwrapSDKContext(ctx)
	sdkCtx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeCommitment,
		sdk.NewAttribute(types.AttributeKeyDRID, msg.DrID),
		sdk.NewAttribute(types.AttributeKeyExecutor, msg.PublicKey),
		sdk.NewAttribute(types.AttributeKeyCommitment, msg.Commitment),
	))
	return nil
}

// RevealResult implements spec §4.E's reveal_result operation.
func (k Keeper) RevealResult(ctx context.Context, msg types.MsgRevealDataResult, now int64, ac authContext) error {
	idBytes, err := decodeHex(msg.DrID)
	if err != nil {
		return err
	}
	req, ok, err := k.GetRequest(ctx, idBytes)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrNotFound
	}
	if uint16(len(req.Commits)) != req.ReplicationFactor {
		return types.ErrRevealNotStarted
	}

	height, ok, err := k.timeouts().GetHeight(k.storeService.OpenKVStore(ctx), idBytes)
	if err != nil {
		return err
	}
	if !ok || height <= uint64(now) {
		return types.ErrDataRequestExpired.Wrapf("height %d, stage reveal", height)
	}

	pk, err := oraclecrypto.ParsePublicKeyHex(msg.PublicKey)
	if err != nil {
		return types.ErrInvalidPublicKeyLength.Wrap(err.Error())
	}

	revealInput, proxyKeys, err := decodeRevealBody(msg.Reveal)
	if err != nil {
		return err
	}
	revealHash := oraclecrypto.RevealBodyHash(revealInput)

	proof, err := decodeHex(msg.Proof)
	if err != nil {
		return err
	}
	payloadHash := oraclecrypto.Keccak256([]byte(msg.DrID), revealHash)
	if err := k.verifyReveal(ctx, pk, payloadHash, proof, req.Height, revealHash, ac); err != nil {
		return err
	}

	commitment, committed := req.Commits[msg.PublicKey]
	if !committed {
		return types.ErrNotCommitted
	}
	if _, already := req.Reveals[msg.PublicKey]; already {
		return types.ErrAlreadyRevealed
	}
	if hex.EncodeToString(revealHash) != commitment {
		return types.ErrRevealMismatch
	}
	for _, pkHex := range proxyKeys {
		if _, err := oraclecrypto.ParsePublicKeyHex(pkHex); err != nil {
			return types.ErrInvalidPublicKeyLength.Wrap(err.Error())
		}
	}

	req.Reveals[msg.PublicKey] = msg.Reveal
	if len(req.Reveals) == int(req.ReplicationFactor) {
		if err := k.TransitionToTallying(ctx, idBytes, req); err != nil {
			return err
		}
	} else {
		kv := k.storeService.OpenKVStore(ctx)
		if err := k.saveRequest(kv, idBytes, req); err != nil {
			return err
		}
	}

	sdkCtx := sdk.UnwrapSDKContext(ctx)
	sdkCtx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeReveal,
		sdk.NewAttribute(types.AttributeKeyDRID, msg.DrID),
		sdk.NewAttribute(types.AttributeKeyRevealer, msg.PublicKey),
	))
	return nil
}

func decodeRevealBody(body types.RevealBody) (oraclecrypto.RevealBodyInput, []string, error) {
	id, err := decodeHex(body.ID)
	if err != nil {
		return oraclecrypto.RevealBodyInput{}, nil, err
	}
	salt, err := decodeBase64(body.Salt)
	if err != nil {
		return oraclecrypto.RevealBodyInput{}, nil, err
	}
	revealBytes, err := decodeBase64(body.RevealBytes)
	if err != nil {
		return oraclecrypto.RevealBodyInput{}, nil, err
	}
	proxyBytes := make([][]byte, 0, len(body.ProxyPublicKeys))
	for _, pkHex := range body.ProxyPublicKeys {
		b, err := decodeHex(pkHex)
		if err != nil {
			return oraclecrypto.RevealBodyInput{}, nil, err
		}
		proxyBytes = append(proxyBytes, b)
	}
	return oraclecrypto.RevealBodyInput{
		ID:              id,
		Salt:            salt,
		ExitCode:        body.ExitCode,
		GasUsed:         body.GasUsed,
		RevealBytes:     revealBytes,
		ProxyPublicKeys: proxyBytes,
	}, body.ProxyPublicKeys, nil
}

// Expire implements spec §4.E's expire (owner/sudo) operation.
func (k Keeper) Expire(ctx context.Context, now int64) ([]string, error) {
	ids, err := k.SweepExpired(ctx, uint64(now))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, hex.EncodeToString(id))
	}
	return out, nil
}
