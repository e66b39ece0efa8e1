package keeper

import (
	"encoding/hex"
	"testing"

	sdkmath "cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"onchainpoker/apps/cosmos/internal/oraclecrypto"
	"onchainpoker/apps/cosmos/x/oracle/types"
)

// executorPubKeyHex is the secp256k1 base point G in compressed form:
// a fixed, always-valid curve point usable as a stand-in executor
// identity anywhere a test needs one without a real keypair.
const executorPubKeyHex = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

// fixtureID derives a deterministic 32-byte request id from a label,
// so tests don't need to hand-pad literal byte strings to length.
func fixtureID(label string) string {
	return hex.EncodeToString(oraclecrypto.Keccak256([]byte(label)))
}

func seedRequest(t *testing.T, sdkCtx sdk.Context, k Keeper, idHex string, escrowAmount int64, poster string) []byte {
	t.Helper()
	ctx := sdk.WrapSDKContext(sdkCtx)
	id, err := hex.DecodeString(idHex)
	require.NoError(t, err)

	require.NoError(t, k.SetEscrow(ctx, id, types.Escrow{Amount: sdkmath.NewInt(escrowAmount), Poster: poster}))
	req := types.Request{ID: idHex, ReplicationFactor: 1, Commits: map[string]string{}, Reveals: map[string]types.RevealBody{}}
	require.NoError(t, k.InsertRequest(ctx, id, req, 1000))
	r, ok, err := k.GetRequest(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, k.TransitionToRevealing(ctx, id, r, 2000))
	r, ok, err = k.GetRequest(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, k.TransitionToTallying(ctx, id, r))
	return id
}

func TestSettlement_BurnThenProxyRewardThenRefund(t *testing.T) {
	sdkCtx, k := newOracleKeeper(t)
	ctx := sdk.WrapSDKContext(sdkCtx)
	require.NoError(t, k.SetStakingConfig(ctx, types.StakingConfig{
		MinimumStake:             sdkmath.NewInt(1),
		MinimumStakeForCommittee: sdkmath.NewInt(1),
	}))

	poster := sdk.AccAddress([]byte("poster______________")).String()
	target := sdk.AccAddress([]byte("proxy_target________")).String()
	idHex := fixtureID("request-one-32-bytes!!!")
	id := seedRequest(t, sdkCtx, k, idHex, 100, poster)

	reqs := types.OrderedRequestMessages{
		Keys: []string{idHex},
		Values: [][]types.DistributionMessage{{
			{Kind: types.DistBurn, Amount: sdkmath.NewInt(30)},
			{Kind: types.DistProxyReward, Amount: sdkmath.NewInt(20), Target: target},
		}},
	}

	results, effects, err := k.RemoveRequests(ctx, reqs, "uoracle")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, types.SettlementOK, results[0].StatusCode)

	require.Len(t, effects, 3)
	require.Equal(t, types.BankEffect{Kind: types.BankEffectBurn, Amount: sdkmath.NewInt(30), Denom: "uoracle"}, effects[0])
	require.Equal(t, types.BankEffect{Kind: types.BankEffectSend, To: target, Amount: sdkmath.NewInt(20), Denom: "uoracle"}, effects[1])
	require.Equal(t, types.BankEffect{Kind: types.BankEffectSend, To: poster, Amount: sdkmath.NewInt(50), Denom: "uoracle"}, effects[2])

	exists, err := k.RequestExists(ctx, id)
	require.NoError(t, err)
	require.False(t, exists)
	_, ok, err := k.GetEscrow(ctx, id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSettlement_BurnCapsAtEscrowBalance(t *testing.T) {
	sdkCtx, k := newOracleKeeper(t)
	ctx := sdk.WrapSDKContext(sdkCtx)
	require.NoError(t, k.SetStakingConfig(ctx, types.DefaultStakingConfig()))

	poster := sdk.AccAddress([]byte("poster______________")).String()
	idHex := fixtureID("request-two-32-bytes!!!")
	seedRequest(t, sdkCtx, k, idHex, 50, poster)

	reqs := types.OrderedRequestMessages{
		Keys:   []string{idHex},
		Values: [][]types.DistributionMessage{{{Kind: types.DistBurn, Amount: sdkmath.NewInt(80)}}},
	}

	_, effects, err := k.RemoveRequests(ctx, reqs, "uoracle")
	require.NoError(t, err)
	require.Len(t, effects, 1)
	require.Equal(t, sdkmath.NewInt(50), effects[0].Amount, "burn must cap at the remaining escrow, not the requested amount")
}

func TestSettlement_InvalidProxyTargetBurnsInstead(t *testing.T) {
	sdkCtx, k := newOracleKeeper(t)
	ctx := sdk.WrapSDKContext(sdkCtx)
	require.NoError(t, k.SetStakingConfig(ctx, types.DefaultStakingConfig()))

	poster := sdk.AccAddress([]byte("poster______________")).String()
	idHex := fixtureID("request-three-32-byte!!!")
	seedRequest(t, sdkCtx, k, idHex, 10, poster)

	reqs := types.OrderedRequestMessages{
		Keys: []string{idHex},
		Values: [][]types.DistributionMessage{{
			{Kind: types.DistProxyReward, Amount: sdkmath.NewInt(10), Target: "not-a-bech32-address"},
		}},
	}

	_, effects, err := k.RemoveRequests(ctx, reqs, "uoracle")
	require.NoError(t, err)
	require.Len(t, effects, 1)
	require.Equal(t, types.BankEffectBurn, effects[0].Kind)
}

func TestSettlement_ExecutorRewardTopsUpBelowMinimumThenCredits(t *testing.T) {
	sdkCtx, k := newOracleKeeper(t)
	ctx := sdk.WrapSDKContext(sdkCtx)
	cfg := types.StakingConfig{MinimumStake: sdkmath.NewInt(100), MinimumStakeForCommittee: sdkmath.NewInt(1)}
	require.NoError(t, k.SetStakingConfig(ctx, cfg))

	pk, err := hex.DecodeString(executorPubKeyHex)
	require.NoError(t, err)
	require.NoError(t, k.SetStaker(ctx, pk, types.Staker{
		TokensStaked:            sdkmath.NewInt(40),
		TokensPendingWithdrawal: sdkmath.ZeroInt(),
	}))

	poster := sdk.AccAddress([]byte("poster______________")).String()
	idHex := fixtureID("request-four-32-bytes!!!")
	seedRequest(t, sdkCtx, k, idHex, 80, poster)

	reqs := types.OrderedRequestMessages{
		Keys: []string{idHex},
		Values: [][]types.DistributionMessage{{
			{Kind: types.DistExecutorReward, Amount: sdkmath.NewInt(80), Target: executorPubKeyHex},
		}},
	}

	_, effects, err := k.RemoveRequests(ctx, reqs, "uoracle")
	require.NoError(t, err)
	require.Empty(t, effects, "the full escrow was absorbed by the executor credit, nothing left to refund")

	staker, ok, err := k.GetStaker(ctx, pk)
	require.NoError(t, err)
	require.True(t, ok)
	// top-up of 60 brings tokens_staked to the 100 minimum; the
	// remaining 20 of the 80 reward goes to pending withdrawal.
	require.Equal(t, sdkmath.NewInt(100), staker.TokensStaked)
	require.Equal(t, sdkmath.NewInt(20), staker.TokensPendingWithdrawal)
}

func TestSettlement_ExecutorRewardUnknownTargetBurns(t *testing.T) {
	sdkCtx, k := newOracleKeeper(t)
	ctx := sdk.WrapSDKContext(sdkCtx)
	require.NoError(t, k.SetStakingConfig(ctx, types.DefaultStakingConfig()))

	poster := sdk.AccAddress([]byte("poster______________")).String()
	idHex := fixtureID("request-five-32-bytes!!!")
	seedRequest(t, sdkCtx, k, idHex, 15, poster)

	reqs := types.OrderedRequestMessages{
		Keys: []string{idHex},
		Values: [][]types.DistributionMessage{{
			{Kind: types.DistExecutorReward, Amount: sdkmath.NewInt(15), Target: executorPubKeyHex},
		}},
	}

	_, effects, err := k.RemoveRequests(ctx, reqs, "uoracle")
	require.NoError(t, err)
	require.Len(t, effects, 1)
	require.Equal(t, types.BankEffectBurn, effects[0].Kind, "a target with no staker record burns rather than credits")
}

func TestSettlement_InvalidIDAndNotFoundStatusCodesDoNotAbort(t *testing.T) {
	sdkCtx, k := newOracleKeeper(t)
	ctx := sdk.WrapSDKContext(sdkCtx)
	require.NoError(t, k.SetStakingConfig(ctx, types.DefaultStakingConfig()))

	poster := sdk.AccAddress([]byte("poster______________")).String()
	goodID := fixtureID("request-six-32-bytes!!!!")
	seedRequest(t, sdkCtx, k, goodID, 5, poster)

	missingID := fixtureID("request-never-posted!!!!")

	reqs := types.OrderedRequestMessages{
		Keys: []string{"not-hex-at-all", missingID, goodID},
		Values: [][]types.DistributionMessage{
			{},
			{},
			{{Kind: types.DistBurn, Amount: sdkmath.NewInt(5)}},
		},
	}

	results, _, err := k.RemoveRequests(ctx, reqs, "uoracle")
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, types.SettlementInvalidID, results[0].StatusCode)
	require.Equal(t, types.SettlementNotFound, results[1].StatusCode)
	require.Equal(t, types.SettlementOK, results[2].StatusCode)
}
