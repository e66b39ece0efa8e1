package keeper

import (
	"encoding/base64"
	"encoding/hex"

	"onchainpoker/apps/cosmos/x/oracle/types"
)

func decodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, types.ErrHexDecode.Wrap(err.Error())
	}
	return b, nil
}

func decodeBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, types.ErrInvalidRequest.Wrapf("invalid base64: %s", err.Error())
	}
	return b, nil
}
