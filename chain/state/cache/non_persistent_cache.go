package cache

import (
	"sync"

	"github.com/crytic/medusa-geth/common"
)

// slotKey identifies a storage slot of an account.
type slotKey struct {
	addr common.Address
	slot common.Hash
}

// nonPersistentStateCache provides a thread-safe, in-memory cache. Lookups of cached items take no locks, and
// concurrent writes of the same key resolve to the first value stored.
type nonPersistentStateCache struct {
	stateObjects sync.Map // common.Address -> *StateObject
	slots        sync.Map // slotKey -> common.Hash
	blockHashes  sync.Map // uint64 -> common.Hash
}

func newNonPersistentStateCache() *nonPersistentStateCache {
	return &nonPersistentStateCache{}
}

// GetStateObject checks if the addr is present in the cache, and if not, returns an error
func (s *nonPersistentStateCache) GetStateObject(addr common.Address) (*StateObject, error) {
	if obj, ok := s.stateObjects.Load(addr); ok {
		return obj.(*StateObject), nil
	}
	return nil, ErrCacheMiss
}

func (s *nonPersistentStateCache) WriteStateObject(addr common.Address, data StateObject) (*StateObject, error) {
	actual, _ := s.stateObjects.LoadOrStore(addr, &data)
	return actual.(*StateObject), nil
}

// GetSlotData checks if the specified data is stored in the cache, and if not, returns an error.
func (s *nonPersistentStateCache) GetSlotData(addr common.Address, slot common.Hash) (common.Hash, error) {
	if data, ok := s.slots.Load(slotKey{addr, slot}); ok {
		return data.(common.Hash), nil
	}
	return common.Hash{}, ErrCacheMiss
}

func (s *nonPersistentStateCache) WriteSlotData(addr common.Address, slot common.Hash, data common.Hash) (common.Hash, error) {
	actual, _ := s.slots.LoadOrStore(slotKey{addr, slot}, data)
	return actual.(common.Hash), nil
}

func (s *nonPersistentStateCache) GetBlockHash(number uint64) (common.Hash, error) {
	if hash, ok := s.blockHashes.Load(number); ok {
		return hash.(common.Hash), nil
	}
	return common.Hash{}, ErrCacheMiss
}

func (s *nonPersistentStateCache) WriteBlockHash(number uint64, hash common.Hash) (common.Hash, error) {
	actual, _ := s.blockHashes.LoadOrStore(number, hash)
	return actual.(common.Hash), nil
}

func (s *nonPersistentStateCache) Close() error {
	return nil
}
