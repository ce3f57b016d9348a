package state

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/shadow-hq/shadow/chain/state/cache"
	"github.com/shadow-hq/shadow/chain/types"
)

var _ StateView = (*Overlay)(nil)

// Overlay is a StateView which substitutes the deployed code of some accounts and passes everything else through to
// its base. The base is never written to, so any number of overlays may share one snapshot.
type Overlay struct {
	base      StateView
	overrides types.OverrideMap
}

// ApplyOverrides layers a code-only override map over base. The map is cloned, so later changes by the caller do
// not affect the overlay. An empty map yields a pass-through view.
func ApplyOverrides(base StateView, overrides types.OverrideMap) *Overlay {
	return &Overlay{
		base:      base,
		overrides: overrides.Clone(),
	}
}

// Base returns the view the overlay reads through to.
func (o *Overlay) Base() StateView {
	return o.base
}

// Overrides returns the overridden addresses in sorted order.
func (o *Overlay) Overrides() []common.Address {
	return o.overrides.Addresses()
}

// BlockNumber returns the block of the base view.
func (o *Overlay) BlockNumber() uint64 {
	return o.base.BlockNumber()
}

// GetStateObject returns the base account with its code replaced when the address is overridden. Balance and nonce
// are the base values.
func (o *Overlay) GetStateObject(addr common.Address) (*cache.StateObject, error) {
	obj, err := o.base.GetStateObject(addr)
	if err != nil {
		return nil, err
	}
	code, ok := o.overrides.Code(addr)
	if !ok {
		return obj, nil
	}
	return &cache.StateObject{
		Balance: obj.Balance,
		Nonce:   obj.Nonce,
		Code:    code,
	}, nil
}

// GetStorageAt passes through to the base view.
func (o *Overlay) GetStorageAt(addr common.Address, slot common.Hash) (common.Hash, error) {
	return o.base.GetStorageAt(addr, slot)
}

// GetBlockHash passes through to the base view.
func (o *Overlay) GetBlockHash(number uint64) (common.Hash, error) {
	return o.base.GetBlockHash(number)
}
