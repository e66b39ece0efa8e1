package keeper

import (
	"context"

	"cosmossdk.io/core/store"
	"cosmossdk.io/log"

	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"onchainpoker/apps/cosmos/x/oracle/types"
)

// Keeper holds the oracle module's store handle and its one external
// collaborator (VRF proof verification, spec §1's one named black
// box). Everything else — bank effects, host KV access — is modeled
// as a Cosmos SDK primitive rather than an injected interface, per
// SPEC_FULL.md §1.
type Keeper struct {
	storeService store.KVStoreService
	cdc          codec.BinaryCodec

	authority string

	verifier types.VRFVerifier
}

func NewKeeper(
	cdc codec.BinaryCodec,
	storeService store.KVStoreService,
	authority string,
	verifier types.VRFVerifier,
) Keeper {
	if cdc == nil {
		panic("oracle keeper: cdc is nil")
	}
	if storeService == nil {
		panic("oracle keeper: store service is nil")
	}
	if authority == "" {
		panic("oracle keeper: authority is empty")
	}
	if verifier == nil {
		panic("oracle keeper: verifier is nil")
	}
	return Keeper{
		storeService: storeService,
		cdc:          cdc,
		authority:    authority,
		verifier:     verifier,
	}
}

func (k Keeper) Logger(ctx context.Context) log.Logger {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return sdkCtx.Logger().With("module", "x/"+types.ModuleName)
}
