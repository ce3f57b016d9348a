package state

import (
	"context"

	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/shadow-hq/shadow/chain/state/cache"
)

/*
StateBackend defines an interface for fetching historical state from a source such as a remote RPC server. Every read
is pinned to an explicit block number, so one backend can serve snapshots at several heights.
*/
type StateBackend interface {
	// GetStateObject returns the balance, nonce and code of an account as of the end of the given block.
	GetStateObject(ctx context.Context, addr common.Address, block uint64) (*cache.StateObject, error)

	// GetStorageAt returns a storage slot of an account as of the end of the given block.
	GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash, block uint64) (common.Hash, error)

	// GetBlockHash returns the hash of the given block.
	GetBlockHash(ctx context.Context, block uint64) (common.Hash, error)
}

var _ StateBackend = (*EmptyBackend)(nil)
var _ StateBackend = (*RPCBackend)(nil)

// EmptyBackend is a StateBackend in which every account is empty and no block has a known hash.
type EmptyBackend struct{}

func (d EmptyBackend) GetStateObject(context.Context, common.Address, uint64) (*cache.StateObject, error) {
	return &cache.StateObject{Balance: uint256.NewInt(0)}, nil
}

func (d EmptyBackend) GetStorageAt(context.Context, common.Address, common.Hash, uint64) (common.Hash, error) {
	return common.Hash{}, nil
}

func (d EmptyBackend) GetBlockHash(context.Context, uint64) (common.Hash, error) {
	return common.Hash{}, nil
}
