package keeper

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	sdkmath "cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"onchainpoker/apps/cosmos/internal/oraclecrypto"
	"onchainpoker/apps/cosmos/x/oracle/types"
)

func setupLifecycleKeeper(t *testing.T, replicationFactor uint16) (sdk.Context, Keeper, string) {
	t.Helper()
	sdkCtx, k := newOracleKeeper(t)
	ctx := sdk.WrapSDKContext(sdkCtx)

	gs := &types.GenesisState{
		Owner:      sdk.AccAddress([]byte("owner_______________")).String(),
		ChainID:    "test-chain-1",
		TokenDenom: "uoracle",
		StakingConfig: types.StakingConfig{
			MinimumStake:             sdkmath.NewInt(1),
			MinimumStakeForCommittee: sdkmath.NewInt(1),
		},
		TimeoutConfig: types.TimeoutConfig{CommitTimeoutBlocks: 100, RevealTimeoutBlocks: 100},
	}
	require.NoError(t, k.InitGenesis(ctx, gs))

	pk, err := hex.DecodeString(executorPubKeyHex)
	require.NoError(t, err)
	require.NoError(t, k.SetStaker(ctx, pk, types.Staker{
		TokensStaked:            sdkmath.NewInt(10),
		TokensPendingWithdrawal: sdkmath.ZeroInt(),
	}))

	poster := sdk.AccAddress([]byte("poster______________")).String()
	args := types.PostedDataRequestArgs{
		VersionPatch:      1,
		ExecProgramID:     hex.EncodeToString(oraclecrypto.Keccak256([]byte("exec"))),
		ExecInputs:        base64.StdEncoding.EncodeToString([]byte("in")),
		ExecGasLimit:      1,
		TallyProgramID:    hex.EncodeToString(oraclecrypto.Keccak256([]byte("tally"))),
		TallyInputs:       base64.StdEncoding.EncodeToString([]byte("in")),
		TallyGasLimit:     1,
		ReplicationFactor: replicationFactor,
		GasPrice:          "10",
	}
	msg := types.MsgPostDataRequest{PostedDR: args}
	timeoutCfg, err := k.GetTimeoutConfig(ctx)
	require.NoError(t, err)
	resp, err := k.PostRequest(ctx, msg, poster, sdkmath.NewInt(20), "uoracle", "uoracle", 100, timeoutCfg)
	require.NoError(t, err)
	require.NotEmpty(t, resp.IDHex)

	return sdkCtx, k, resp.IDHex
}

func TestDataRequestLifecycle_PostCommitReveal(t *testing.T) {
	sdkCtx, k, idHex := setupLifecycleKeeper(t, 1)
	ctx := sdk.WrapSDKContext(sdkCtx)

	id, err := hex.DecodeString(idHex)
	require.NoError(t, err)
	req, ok, err := k.GetRequest(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.StatusCommitting, req.Status)

	reveal := types.RevealBody{
		ID:          idHex,
		Salt:        base64.StdEncoding.EncodeToString([]byte("salt")),
		ExitCode:    0,
		GasUsed:     5,
		RevealBytes: base64.StdEncoding.EncodeToString([]byte("result")),
	}
	revealInput, _, err := decodeRevealBody(reveal)
	require.NoError(t, err)
	commitment := hex.EncodeToString(oraclecrypto.RevealBodyHash(revealInput))

	stakingCfg, err := k.GetStakingConfig(ctx)
	require.NoError(t, err)
	ac := authContext{ChainID: []byte("test-chain-1"), Authority: []byte(k.authority)}

	commitMsg := types.MsgCommitDataResult{DrID: idHex, Commitment: commitment, PublicKey: executorPubKeyHex, Proof: "00"}
	require.NoError(t, k.CommitResult(ctx, commitMsg, 100, stakingCfg, ac))

	req, ok, err = k.GetRequest(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.StatusRevealing, req.Status, "replication factor 1 means a single commit fills the committee")

	revealMsg := types.MsgRevealDataResult{DrID: idHex, PublicKey: executorPubKeyHex, Proof: "00", Reveal: reveal}
	require.NoError(t, k.RevealResult(ctx, revealMsg, 100, ac))

	req, ok, err = k.GetRequest(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.StatusTallying, req.Status)
}

func TestDataRequestLifecycle_RevealMismatchRejected(t *testing.T) {
	sdkCtx, k, idHex := setupLifecycleKeeper(t, 1)
	ctx := sdk.WrapSDKContext(sdkCtx)

	reveal := types.RevealBody{ID: idHex, RevealBytes: base64.StdEncoding.EncodeToString([]byte("result"))}
	revealInput, _, err := decodeRevealBody(reveal)
	require.NoError(t, err)
	commitment := hex.EncodeToString(oraclecrypto.RevealBodyHash(revealInput))

	stakingCfg, err := k.GetStakingConfig(ctx)
	require.NoError(t, err)
	ac := authContext{ChainID: []byte("test-chain-1"), Authority: []byte(k.authority)}
	require.NoError(t, k.CommitResult(ctx, types.MsgCommitDataResult{
		DrID: idHex, Commitment: commitment, PublicKey: executorPubKeyHex, Proof: "00",
	}, 100, stakingCfg, ac))

	wrongReveal := types.RevealBody{ID: idHex, RevealBytes: base64.StdEncoding.EncodeToString([]byte("tampered"))}
	err = k.RevealResult(ctx, types.MsgRevealDataResult{
		DrID: idHex, PublicKey: executorPubKeyHex, Proof: "00", Reveal: wrongReveal,
	}, 100, ac)
	require.ErrorIs(t, err, types.ErrRevealMismatch)
}

func TestPostRequest_ReplicationFactorExceedsStakerCount(t *testing.T) {
	sdkCtx, k := newOracleKeeper(t)
	ctx := sdk.WrapSDKContext(sdkCtx)
	gs := &types.GenesisState{
		Owner:      sdk.AccAddress([]byte("owner_______________")).String(),
		ChainID:    "test-chain-1",
		TokenDenom: "uoracle",
		StakingConfig: types.StakingConfig{
			MinimumStake:             sdkmath.NewInt(1),
			MinimumStakeForCommittee: sdkmath.NewInt(1),
		},
		TimeoutConfig: types.TimeoutConfig{CommitTimeoutBlocks: 100, RevealTimeoutBlocks: 100},
	}
	require.NoError(t, k.InitGenesis(ctx, gs))

	args := types.PostedDataRequestArgs{
		ExecProgramID:     hex.EncodeToString(oraclecrypto.Keccak256([]byte("exec"))),
		TallyProgramID:    hex.EncodeToString(oraclecrypto.Keccak256([]byte("tally"))),
		ReplicationFactor: 2,
		GasPrice:          "1",
	}
	_, err := k.PostRequest(ctx, types.MsgPostDataRequest{PostedDR: args},
		sdk.AccAddress([]byte("poster______________")).String(), sdkmath.NewInt(10), "uoracle", "uoracle", 100,
		types.TimeoutConfig{CommitTimeoutBlocks: 100, RevealTimeoutBlocks: 100})
	require.ErrorIs(t, err, types.ErrReplicationFactorTooHigh)
}

func TestExpire_MovesCommittingRequestToTallyingPastDeadline(t *testing.T) {
	sdkCtx, k := newOracleKeeper(t)
	ctx := sdk.WrapSDKContext(sdkCtx)
	gs := &types.GenesisState{
		Owner:      sdk.AccAddress([]byte("owner_______________")).String(),
		ChainID:    "test-chain-1",
		TokenDenom: "uoracle",
		StakingConfig: types.StakingConfig{
			MinimumStake:             sdkmath.NewInt(1),
			MinimumStakeForCommittee: sdkmath.NewInt(1),
		},
		TimeoutConfig: types.TimeoutConfig{CommitTimeoutBlocks: 5, RevealTimeoutBlocks: 5},
	}
	require.NoError(t, k.InitGenesis(ctx, gs))

	pk, err := hex.DecodeString(executorPubKeyHex)
	require.NoError(t, err)
	require.NoError(t, k.SetStaker(ctx, pk, types.Staker{TokensStaked: sdkmath.NewInt(10), TokensPendingWithdrawal: sdkmath.ZeroInt()}))

	args := types.PostedDataRequestArgs{
		ExecProgramID:     hex.EncodeToString(oraclecrypto.Keccak256([]byte("exec"))),
		TallyProgramID:    hex.EncodeToString(oraclecrypto.Keccak256([]byte("tally"))),
		ReplicationFactor: 1,
		GasPrice:          "1",
	}
	resp, err := k.PostRequest(ctx, types.MsgPostDataRequest{PostedDR: args},
		sdk.AccAddress([]byte("poster______________")).String(), sdkmath.NewInt(10), "uoracle", "uoracle", 100,
		types.TimeoutConfig{CommitTimeoutBlocks: 5, RevealTimeoutBlocks: 5})
	require.NoError(t, err)

	expired, err := k.Expire(ctx, 105)
	require.NoError(t, err)
	require.Equal(t, []string{resp.IDHex}, expired)

	id, err := hex.DecodeString(resp.IDHex)
	require.NoError(t, err)
	req, ok, err := k.GetRequest(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.StatusTallying, req.Status)
}
