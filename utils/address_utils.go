package utils

import (
	"encoding/hex"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
)

// HexStringToAddress converts a hex string (with or without the "0x" prefix) to a common.Address. Returns the parsed
// address, or an error if the string is not exactly 20 hex encoded bytes.
func HexStringToAddress(s string) (*common.Address, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid address %q", s)
	}
	if len(b) != common.AddressLength {
		return nil, errors.Errorf("invalid address %q: expected %d bytes, got %d", s, common.AddressLength, len(b))
	}

	address := common.BytesToAddress(b)
	return &address, nil
}

// HexStringToHash converts a hex string (with or without the "0x" prefix) to a common.Hash, such as a transaction
// hash. Returns an error if the string is not exactly 32 hex encoded bytes.
func HexStringToHash(s string) (common.Hash, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "invalid hash %q", s)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, errors.Errorf("invalid hash %q: expected %d bytes, got %d", s, common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}
