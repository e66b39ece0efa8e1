package keeper

import (
	"context"
	"encoding/json"

	"onchainpoker/apps/cosmos/x/oracle/types"
)

func escrowKey(id []byte) []byte {
	return byteKeyRaw(nsEscrow, id)
}

// GetEscrow loads the escrow record for a request id.
func (k Keeper) GetEscrow(ctx context.Context, id []byte) (types.Escrow, bool, error) {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := kv.Get(escrowKey(id))
	if err != nil {
		return types.Escrow{}, false, err
	}
	if bz == nil {
		return types.Escrow{}, false, nil
	}
	var e types.Escrow
	if err := json.Unmarshal(bz, &e); err != nil {
		return types.Escrow{}, false, err
	}
	return e, true, nil
}

// SetEscrow persists the escrow record for a request id.
func (k Keeper) SetEscrow(ctx context.Context, id []byte, e types.Escrow) error {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return kv.Set(escrowKey(id), bz)
}

// DeleteEscrow removes the escrow record, used once a request's funds
// are fully distributed by settlement.
func (k Keeper) DeleteEscrow(ctx context.Context, id []byte) error {
	kv := k.storeService.OpenKVStore(ctx)
	return kv.Delete(escrowKey(id))
}
