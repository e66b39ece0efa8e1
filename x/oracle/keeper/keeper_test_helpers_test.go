package keeper

import (
	"bytes"
	"testing"
	"time"

	storetypes "cosmossdk.io/store/types"

	"cosmossdk.io/core/store"

	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/runtime"
	"github.com/cosmos/cosmos-sdk/testutil"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"onchainpoker/apps/cosmos/internal/oraclecrypto"
	"onchainpoker/apps/cosmos/x/oracle/types"
)

// Test harness pattern follows x/dealer/keeper/params_test.go's
// newParamsKeeper: a real KVStoreService over a transient test DB, a
// bare Keeper struct literal (bypassing NewKeeper's nil-panics since
// tests don't need a registered codec), and sdk.WrapSDKContext to hand
// the keeper a plain context.Context.

// acceptAllVerifier stands in for a real VRF verifier in tests that
// exercise the auth protocol's bookkeeping (sequence bump, hash
// construction) without needing a real signature.
type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(oraclecrypto.PublicKey, []byte, []byte) error { return nil }

func newOracleKeeper(t *testing.T) (sdk.Context, Keeper) {
	t.Helper()

	key := storetypes.NewKVStoreKey(types.StoreKey)
	storeService := runtime.NewKVStoreService(key)
	testCtx := testutil.DefaultContextWithDB(t, key, storetypes.NewTransientStoreKey("transient_test"))

	sdkCtx := testCtx.Ctx.WithEventManager(sdk.NewEventManager()).WithBlockTime(time.Unix(100, 0).UTC())

	ir := codectypes.NewInterfaceRegistry()
	cdc := codec.NewProtoCodec(ir)

	auth := sdk.AccAddress(bytes.Repeat([]byte{0x11}, 20)).String()
	k := Keeper{
		storeService: storeService,
		cdc:          cdc,
		authority:    auth,
		verifier:     acceptAllVerifier{},
	}

	return sdkCtx, k
}

func newTestKV(t *testing.T) store.KVStore {
	t.Helper()
	sdkCtx, k := newOracleKeeper(t)
	return k.storeService.OpenKVStore(sdk.WrapSDKContext(sdkCtx))
}
