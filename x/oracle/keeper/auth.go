package keeper

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"onchainpoker/apps/cosmos/internal/oraclecrypto"
	"onchainpoker/apps/cosmos/x/oracle/types"
)

// Component G: per-public-key sequence counter, domain-separated
// message hashing, and VRF proof verification. Grounded on spec §4.G.

func accountSeqKey(pk []byte) []byte {
	return byteKeyRaw(nsAccountSeq, pk)
}

// GetAccountSeq returns the current sequence for pk, defaulting to
// zero for an unseen key (spec §3 "Account sequence: public_key →
// u128 ... starts at 0").
func (k Keeper) GetAccountSeq(ctx context.Context, pk []byte) (sdkmath.Uint, error) {
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := kv.Get(accountSeqKey(pk))
	if err != nil {
		return sdkmath.Uint{}, err
	}
	if bz == nil {
		return sdkmath.ZeroUint(), nil
	}
	var seq sdkmath.Uint
	if err := json.Unmarshal(bz, &seq); err != nil {
		return sdkmath.Uint{}, err
	}
	return seq, nil
}

// incrementAccountSeq atomically bumps pk's sequence and returns the
// new value — the "freshness" value staking operations authenticate
// against (spec §4.G: "the account sequence after being incremented").
// It always advances, regardless of whether the caller's operation
// ultimately succeeds past this point, per spec §4.G's closing clause.
func (k Keeper) incrementAccountSeq(ctx context.Context, pk []byte) (sdkmath.Uint, error) {
	cur, err := k.GetAccountSeq(ctx, pk)
	if err != nil {
		return sdkmath.Uint{}, err
	}
	next := cur.Add(sdkmath.OneUint())
	kv := k.storeService.OpenKVStore(ctx)
	bz, err := json.Marshal(next)
	if err != nil {
		return sdkmath.Uint{}, err
	}
	if err := kv.Set(accountSeqKey(pk), bz); err != nil {
		return sdkmath.Uint{}, err
	}
	return next, nil
}

// authContext carries the chain-wide domain-separation inputs every
// authenticated message hash incorporates (spec §4.G).
type authContext struct {
	ChainID []byte
	// Authority stands in for the original "contract address" domain
	// separator: x/oracle is a native module rather than a CosmWasm
	// contract instance, so there is no per-instance address to
	// separate on — the module's authority address fills the same
	// structural role (see DESIGN.md).
	Authority []byte
}

// verifyStakingOp authenticates a stake/unstake/withdraw message:
// freshness is the sequence value after incrementing (spec §4.G).
func (k Keeper) verifyStakingOp(ctx context.Context, kind string, pk oraclecrypto.PublicKey, payloadHash, proof []byte, ac authContext) (sdkmath.Uint, error) {
	seq, err := k.incrementAccountSeq(ctx, pk[:])
	if err != nil {
		return sdkmath.Uint{}, err
	}
	hash := oraclecrypto.AuthMessageHash(kind, payloadHash, ac.ChainID, ac.Authority, seq.BigInt().Bytes())
	if err := k.verifier.Verify(pk, hash, proof); err != nil {
		return sdkmath.Uint{}, types.ErrInvalidProof.Wrap(err.Error())
	}
	return seq, nil
}

// verifyCommit authenticates a commit_data_result message: freshness
// is the request's posting height (spec §4.G).
func (k Keeper) verifyCommit(ctx context.Context, pk oraclecrypto.PublicKey, payloadHash, proof []byte, drHeight int64, ac authContext) error {
	if _, err := k.incrementAccountSeq(ctx, pk[:]); err != nil {
		return err
	}
	freshness := oraclecrypto.Keccak256([]byte(fmt.Sprintf("%d", drHeight)))
	hash := oraclecrypto.AuthMessageHash(oraclecrypto.KindCommit, payloadHash, ac.ChainID, ac.Authority, freshness)
	if err := k.verifier.Verify(pk, hash, proof); err != nil {
		return types.ErrInvalidProof.Wrap(err.Error())
	}
	return nil
}

// verifyReveal authenticates a reveal_data_result message: freshness
// is the request's posting height plus the reveal-body hash (spec
// §4.G).
func (k Keeper) verifyReveal(ctx context.Context, pk oraclecrypto.PublicKey, payloadHash, proof []byte, drHeight int64, revealBodyHash []byte, ac authContext) error {
	if _, err := k.incrementAccountSeq(ctx, pk[:]); err != nil {
		return err
	}
	freshness := oraclecrypto.Keccak256([]byte(fmt.Sprintf("%d", drHeight)), revealBodyHash)
	hash := oraclecrypto.AuthMessageHash(oraclecrypto.KindReveal, payloadHash, ac.ChainID, ac.Authority, freshness)
	if err := k.verifier.Verify(pk, hash, proof); err != nil {
		return types.ErrInvalidProof.Wrap(err.Error())
	}
	return nil
}
