package committee

import "math/big"

func bigEndianBigInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}
