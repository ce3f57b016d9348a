package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/holiman/uint256"
	"github.com/shadow-hq/shadow/chain/state/cache"
)

/* This file is exclusively for test fixtures. */

var _ StateBackend = (*prePopulatedBackend)(nil)

// prePopulatedBackend is an offline-only backend used for testing. It serves the same state at every block and
// counts the reads that reach it.
type prePopulatedBackend struct {
	lock         sync.RWMutex
	storageSlots map[common.Address]map[common.Hash]common.Hash
	stateObjects map[common.Address]cache.StateObject

	// failing makes every read of these accounts fail
	failing map[common.Address]struct{}

	// gate, when set, blocks every account read until it is closed
	gate chan struct{}

	accountReads atomic.Int64
	slotReads    atomic.Int64
	hashReads    atomic.Int64
}

var errBackendUnavailable = errors.New("backend unavailable")

func newPrepopulatedBackend(
	storageSlots map[common.Address]map[common.Hash]common.Hash,
	stateObjects map[common.Address]cache.StateObject,
) *prePopulatedBackend {
	return &prePopulatedBackend{
		storageSlots: storageSlots,
		stateObjects: stateObjects,
		failing:      make(map[common.Address]struct{}),
	}
}

func (p *prePopulatedBackend) GetStorageAt(_ context.Context, address common.Address, slot common.Hash, block uint64) (common.Hash, error) {
	p.slotReads.Add(1)
	p.lock.RLock()
	defer p.lock.RUnlock()
	if _, fail := p.failing[address]; fail {
		return common.Hash{}, newSlotFetchError("eth_getStorageAt", address, slot, block, errBackendUnavailable)
	}
	if c, exists := p.storageSlots[address]; exists {
		if data, exists := c[slot]; exists {
			return data, nil
		}
	}
	return common.Hash{}, nil
}

func (p *prePopulatedBackend) GetStateObject(ctx context.Context, address common.Address, block uint64) (*cache.StateObject, error) {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.accountReads.Add(1)
	p.lock.RLock()
	defer p.lock.RUnlock()
	if _, fail := p.failing[address]; fail {
		return nil, newAccountFetchError("eth_getBalance", address, block, errBackendUnavailable)
	}
	if s, exists := p.stateObjects[address]; exists {
		return &cache.StateObject{Balance: s.Balance.Clone(), Nonce: s.Nonce, Code: s.Code}, nil
	}
	return &cache.StateObject{Balance: uint256.NewInt(0)}, nil
}

func (p *prePopulatedBackend) GetBlockHash(_ context.Context, block uint64) (common.Hash, error) {
	p.hashReads.Add(1)
	return crypto.Keccak256Hash(new(uint256.Int).SetUint64(block).Bytes()), nil
}

func (p *prePopulatedBackend) SetStorageAt(address common.Address, slotKey common.Hash, value common.Hash) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if _, exists := p.storageSlots[address]; !exists {
		p.storageSlots[address] = make(map[common.Hash]common.Hash)
	}
	p.storageSlots[address][slotKey] = value
}

func (p *prePopulatedBackend) SetFailing(address common.Address) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.failing[address] = struct{}{}
}

// prepopulatedBackendFixture is a test fixture for a pre-populated backend
type prepopulatedBackendFixture struct {
	Backend *prePopulatedBackend

	StateObjectContractAddress common.Address
	StateObjectContract        cache.StateObject

	StorageSlotPopulatedKey  common.Hash
	StorageSlotPopulatedData common.Hash

	StorageSlotEmptyKey common.Hash
	StorageSlotEmpty    common.Hash

	StateObjectEOAAddress common.Address
	StateObjectEOA        cache.StateObject

	StateObjectEmptyAddress common.Address
	StateObjectEmpty        cache.StateObject
}

func newPrePopulatedBackendFixture() *prepopulatedBackendFixture {
	stateObjectContract := cache.StateObject{
		Balance: uint256.NewInt(1000),
		Nonce:   5,
		Code:    []byte{1, 2, 3},
	}
	stateObjectEOA := cache.StateObject{
		Balance: uint256.NewInt(5000),
		Nonce:   1,
		Code:    nil,
	}
	stateObjectEmpty := cache.StateObject{
		Balance: uint256.NewInt(0),
		Nonce:   0,
		Code:    nil,
	}

	contractAddress := common.BytesToAddress([]byte{5, 5, 5, 5})
	eoaAddress := common.BytesToAddress([]byte{6, 6, 6, 6})
	emptyAddress := common.BytesToAddress([]byte{0, 0, 0, 1})

	storageSlotPopulated := common.HexToHash("0xdeadbeef")
	storageSlotPopulatedKey := common.HexToHash("0xaaaaaaaa")

	storageSlotEmpty := common.Hash{}
	storageSlotEmptyKey := common.HexToHash("0xbbbbbbbbb")

	stateObjects := map[common.Address]cache.StateObject{
		contractAddress: stateObjectContract,
		eoaAddress:      stateObjectEOA,
		emptyAddress:    stateObjectEmpty,
	}
	storageObjects := map[common.Address]map[common.Hash]common.Hash{
		contractAddress: {
			storageSlotPopulatedKey: storageSlotPopulated,
			storageSlotEmptyKey:     storageSlotEmpty,
		},
	}

	return &prepopulatedBackendFixture{
		Backend:                    newPrepopulatedBackend(storageObjects, stateObjects),
		StateObjectContractAddress: contractAddress,
		StateObjectContract:        stateObjectContract,
		StorageSlotPopulatedKey:    storageSlotPopulatedKey,
		StorageSlotPopulatedData:   storageSlotPopulated,
		StorageSlotEmptyKey:        storageSlotEmptyKey,
		StorageSlotEmpty:           storageSlotEmpty,
		StateObjectEOAAddress:      eoaAddress,
		StateObjectEOA:             stateObjectEOA,
		StateObjectEmpty:           stateObjectEmpty,
		StateObjectEmptyAddress:    emptyAddress,
	}
}

// newFixtureSnapshot forks the fixture backend at block 100 with an in-memory cache.
func newFixtureSnapshot(fixture *prepopulatedBackendFixture) *Snapshot {
	return newSnapshot(context.Background(), 100, fixture.Backend, cache.NewNonPersistentCache())
}
