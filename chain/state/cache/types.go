package cache

import (
	"errors"

	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
)

// ErrCacheMiss is returned when a requested item has not been cached.
var ErrCacheMiss = errors.New("not found in cache")

// StateObject gives us a way to store state objects without the overhead of using geth's stateObject
type StateObject struct {
	Balance *uint256.Int
	Nonce   uint64
	Code    []byte
}

// StateCache memoizes state read from a remote node at a single block height. Every item is written at most once:
// the first write for a key wins, and later writes return the value already stored, so every reader of a key
// observes the same value for the lifetime of the cache.
type StateCache interface {
	// GetStateObject returns the cached state object for addr, or ErrCacheMiss.
	GetStateObject(addr common.Address) (*StateObject, error)

	// WriteStateObject caches the state object for addr unless one is already cached, and returns the cached object.
	WriteStateObject(addr common.Address, data StateObject) (*StateObject, error)

	// GetSlotData returns the cached storage value for addr/slot, or ErrCacheMiss.
	GetSlotData(addr common.Address, slot common.Hash) (common.Hash, error)

	// WriteSlotData caches the storage value for addr/slot unless one is already cached, and returns the cached value.
	WriteSlotData(addr common.Address, slot common.Hash, data common.Hash) (common.Hash, error)

	// GetBlockHash returns the cached hash of the given block number, or ErrCacheMiss.
	GetBlockHash(number uint64) (common.Hash, error)

	// WriteBlockHash caches the hash of a block number unless one is already cached, and returns the cached hash.
	WriteBlockHash(number uint64, hash common.Hash) (common.Hash, error)

	// Close releases any resources held by the cache. Cached items remain readable from memory.
	Close() error
}
