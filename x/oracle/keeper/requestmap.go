package keeper

import (
	"context"
	"encoding/json"
	"fmt"

	"cosmossdk.io/core/store"

	"onchainpoker/apps/cosmos/x/oracle/types"
)

// Component D: request storage plus the three disjoint status sets
// (A) and the timeout index (B). Enforces the transition table of
// spec §4.D; any other transition is a contract violation that
// panics rather than silently corrupting the index.

func requestKey(id []byte) []byte {
	return byteKeyRaw(nsRequests, id)
}

func (k Keeper) statusSet(status types.RequestStatus) orderedSet {
	switch status {
	case types.StatusCommitting:
		return newOrderedSet(nsStatusCommittingLen, nsStatusCommittingKeyToIndex, nsStatusCommittingIndexToKey)
	case types.StatusRevealing:
		return newOrderedSet(nsStatusRevealingLen, nsStatusRevealingKeyToIndex, nsStatusRevealingIndexToKey)
	case types.StatusTallying:
		return newOrderedSet(nsStatusTallyingLen, nsStatusTallyingKeyToIndex, nsStatusTallyingIndexToKey)
	default:
		panic(fmt.Sprintf("oracle: unknown request status %d", status))
	}
}

func (k Keeper) timeouts() timeoutIndex {
	return newTimeoutIndex(nsTimeoutsByHeight, nsTimeoutsByID)
}

// GetRequest loads a request by its raw id bytes.
func (k Keeper) GetRequest(ctx context.Context, id []byte) (types.Request, bool, error) {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := kv.Get(requestKey(id))
	if err != nil {
		return types.Request{}, false, err
	}
	if bz == nil {
		return types.Request{}, false, nil
	}
	var r types.Request
	if err := json.Unmarshal(bz, &r); err != nil {
		return types.Request{}, false, err
	}
	return r, true, nil
}

func (k Keeper) saveRequest(kv store.KVStore, id []byte, r types.Request) error {
	bz, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return kv.Set(requestKey(id), bz)
}

// RequestExists reports whether id names a live request (spec §4.E
// item 3's AlreadyExists check).
func (k Keeper) RequestExists(ctx context.Context, id []byte) (bool, error) {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := kv.Get(requestKey(id))
	if err != nil {
		return false, err
	}
	return bz != nil, nil
}

// InsertRequest inserts a brand-new request at status Committing
// (spec §4.D transition ∅ -> Committing) and starts its commit
// timeout.
func (k Keeper) InsertRequest(ctx context.Context, id []byte, r types.Request, commitExpiry uint64) error {
	kv := k.storeService.OpenKVStore(ctx)
	r.Status = types.StatusCommitting
	if err := k.saveRequest(kv, id, r); err != nil {
		return err
	}
	if err := k.statusSet(types.StatusCommitting).Add(kv, id); err != nil {
		return err
	}
	return k.timeouts().Insert(kv, commitExpiry, id)
}

// TransitionToRevealing moves id from Committing to Revealing (spec
// §4.D) and resets its timeout to the reveal window.
func (k Keeper) TransitionToRevealing(ctx context.Context, id []byte, r types.Request, revealExpiry uint64) error {
	kv := k.storeService.OpenKVStore(ctx)
	if r.Status != types.StatusCommitting {
		panic("oracle: TransitionToRevealing called on a request not in Committing")
	}
	if err := k.statusSet(types.StatusCommitting).Remove(kv, id); err != nil {
		return err
	}
	if err := k.statusSet(types.StatusRevealing).Add(kv, id); err != nil {
		return err
	}
	if err := k.timeouts().RemoveByID(kv, id); err != nil {
		return err
	}
	if err := k.timeouts().Insert(kv, revealExpiry, id); err != nil {
		return err
	}
	r.Status = types.StatusRevealing
	return k.saveRequest(kv, id, r)
}

// TransitionToTallying moves id from Revealing to Tallying via the
// ordinary "enough reveals arrived" path (spec §4.D), dropping its
// timeout entirely.
func (k Keeper) TransitionToTallying(ctx context.Context, id []byte, r types.Request) error {
	kv := k.storeService.OpenKVStore(ctx)
	if r.Status != types.StatusRevealing {
		panic("oracle: TransitionToTallying called on a request not in Revealing")
	}
	if err := k.statusSet(types.StatusRevealing).Remove(kv, id); err != nil {
		return err
	}
	if err := k.statusSet(types.StatusTallying).Add(kv, id); err != nil {
		return err
	}
	if err := k.timeouts().RemoveByID(kv, id); err != nil {
		return err
	}
	r.Status = types.StatusTallying
	return k.saveRequest(kv, id, r)
}

// ExpireToTallying moves id to Tallying on a timeout sweep, accepting
// either Committing or Revealing as its prior status: spec §4.D says "both Committing and
// Revealing are valid sources for a timeout-triggered move". The
// timeout index entry is assumed already removed by the caller's
// RemoveByHeight sweep.
func (k Keeper) ExpireToTallying(ctx context.Context, id []byte, r types.Request) error {
	kv := k.storeService.OpenKVStore(ctx)
	if r.Status != types.StatusCommitting && r.Status != types.StatusRevealing {
		panic("oracle: ExpireToTallying called on a request not in Committing or Revealing")
	}
	if err := k.statusSet(r.Status).Remove(kv, id); err != nil {
		return err
	}
	if err := k.statusSet(types.StatusTallying).Add(kv, id); err != nil {
		return err
	}
	r.Status = types.StatusTallying
	return k.saveRequest(kv, id, r)
}

// RemoveRequest deletes a Tallying request entirely (spec §4.D
// transition Tallying -> ∅), used by settlement.
func (k Keeper) RemoveRequest(ctx context.Context, id []byte, r types.Request) error {
	kv := k.storeService.OpenKVStore(ctx)
	if r.Status != types.StatusTallying {
		panic("oracle: RemoveRequest called on a request not in Tallying")
	}
	if err := k.statusSet(types.StatusTallying).Remove(kv, id); err != nil {
		return err
	}
	return kv.Delete(requestKey(id))
}

// SweepExpired moves every request whose timeout has reached height
// into Tallying, returning the affected raw ids (spec §4.E expire).
func (k Keeper) SweepExpired(ctx context.Context, height uint64) ([][]byte, error) {
	kv := k.storeService.OpenKVStore(ctx)
	ids, err := k.timeouts().RemoveByHeight(kv, height)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		r, ok, err := k.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			panic("oracle: timeout index referenced a missing request")
		}
		if err := k.ExpireToTallying(ctx, id, r); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// GetRequestsByStatus paginates the ordered-set index for one status
// (spec §4.D: "Pagination is offset/limit over the per-status ordered
// set index").
func (k Keeper) GetRequestsByStatus(ctx context.Context, status types.RequestStatus, offset, limit uint32) ([][]byte, error) {
	kv := k.storeService.OpenKVStore(ctx)
	return k.statusSet(status).Page(kv, offset, limit)
}
