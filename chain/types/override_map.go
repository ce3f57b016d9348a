package types

import (
	"bytes"
	"sort"

	"github.com/crytic/medusa-geth/common"
	"golang.org/x/exp/slices"
)

// OverrideMap maps a contract address to the bytecode which replaces its deployed code for one simulation. An address
// without an entry keeps its original code.
type OverrideMap map[common.Address][]byte

// Clone returns a deep copy of the OverrideMap.
func (o OverrideMap) Clone() OverrideMap {
	clone := make(OverrideMap, len(o))
	for address, code := range o {
		clone[address] = slices.Clone(code)
	}
	return clone
}

// Addresses returns the overridden addresses in ascending order.
func (o OverrideMap) Addresses() []common.Address {
	addresses := make([]common.Address, 0, len(o))
	for address := range o {
		addresses = append(addresses, address)
	}
	sort.Slice(addresses, func(i, j int) bool {
		return bytes.Compare(addresses[i][:], addresses[j][:]) < 0
	})
	return addresses
}

// Code returns the override bytecode for an address and whether one exists.
func (o OverrideMap) Code(address common.Address) ([]byte, bool) {
	code, ok := o[address]
	return code, ok
}
