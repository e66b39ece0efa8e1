package keeper

import (
	"math/big"

	sdkmath "cosmossdk.io/math"

	"onchainpoker/apps/cosmos/internal/oraclecrypto"
	"onchainpoker/apps/cosmos/x/oracle/types"
)

// computeRequestID builds the keccak256 request id from a posted
// args payload, per the hash layout of spec §6.
func computeRequestID(args types.PostedDataRequestArgs) ([]byte, error) {
	execProgramID, err := decodeHex(args.ExecProgramID)
	if err != nil {
		return nil, err
	}
	execInputs, err := decodeBase64(args.ExecInputs)
	if err != nil {
		return nil, err
	}
	tallyProgramID, err := decodeHex(args.TallyProgramID)
	if err != nil {
		return nil, err
	}
	tallyInputs, err := decodeBase64(args.TallyInputs)
	if err != nil {
		return nil, err
	}
	consensusFilter, err := decodeBase64(args.ConsensusFilter)
	if err != nil {
		return nil, err
	}
	memo, err := decodeBase64(args.Memo)
	if err != nil {
		return nil, err
	}
	gasPrice, ok := sdkmath.NewIntFromString(args.GasPrice)
	if !ok {
		return nil, types.ErrInvalidRequest.Wrapf("invalid gas_price: %s", args.GasPrice)
	}
	lo, hi, err := uint128Halves(gasPrice)
	if err != nil {
		return nil, err
	}

	return oraclecrypto.RequestID(oraclecrypto.RequestIDInput{
		VersionMajor:      args.VersionMajor,
		VersionMinor:      args.VersionMinor,
		VersionPatch:      args.VersionPatch,
		ExecProgramID:     execProgramID,
		ExecInputs:        execInputs,
		ExecGasLimit:      args.ExecGasLimit,
		TallyProgramID:    tallyProgramID,
		TallyInputs:       tallyInputs,
		TallyGasLimit:     args.TallyGasLimit,
		ReplicationFactor: args.ReplicationFactor,
		ConsensusFilter:   consensusFilter,
		GasPriceLo:        lo,
		GasPriceHi:        hi,
		Memo:              memo,
	}), nil
}

// uint128Halves splits a non-negative sdkmath.Int known to fit in 128
// bits into big-endian (lo, hi) 64-bit halves.
func uint128Halves(v sdkmath.Int) (lo, hi uint64, err error) {
	if v.IsNegative() {
		return 0, 0, types.ErrInvalidRequest.Wrap("gas_price must be non-negative")
	}
	max128 := new(big.Int).Lsh(big.NewInt(1), 128)
	bi := v.BigInt()
	if bi.Cmp(max128) >= 0 {
		return 0, 0, types.ErrInvalidRequest.Wrap("gas_price exceeds 128 bits")
	}
	mask64 := new(big.Int).SetUint64(^uint64(0))
	loBig := new(big.Int).And(bi, mask64)
	hiBig := new(big.Int).Rsh(bi, 64)
	return loBig.Uint64(), hiBig.Uint64(), nil
}
