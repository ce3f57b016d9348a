package state

import (
	"context"
	"fmt"

	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/chain/state/cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// StateView is a read-only view of chain state at a fixed block. Snapshots and overlays implement it, and the
// executor builds its StateDB on top of one.
type StateView interface {
	// BlockNumber returns the block the view is pinned to. State reflects the end of this block.
	BlockNumber() uint64

	// GetStateObject returns the balance, nonce and code of an account. Callers must not mutate the result.
	GetStateObject(addr common.Address) (*cache.StateObject, error)

	// GetStorageAt returns the value of a storage slot.
	GetStorageAt(addr common.Address, slot common.Hash) (common.Hash, error)

	// GetBlockHash returns the hash of a block at or before BlockNumber.
	GetBlockHash(number uint64) (common.Hash, error)
}

var _ StateView = (*Snapshot)(nil)

// Snapshot is an immutable, lazily populated view of chain state pinned to one block. Accounts and slots are fetched
// from the backend the first time they are read and memoized for the lifetime of the snapshot, so every reader sees
// the same value for a key. Concurrent first reads of one key share a single backend fetch.
type Snapshot struct {
	ctx     context.Context
	block   uint64
	backend StateBackend
	cache   cache.StateCache

	// fetches collapses concurrent backend reads of the same key
	fetches singleflight.Group

	// intraBlock holds the post-state of earlier transactions in the following block, if any. It is applied on read
	// so that the memo only ever holds parent-block values.
	intraBlock *BlockStateDiff
}

func newSnapshot(ctx context.Context, block uint64, backend StateBackend, stateCache cache.StateCache) *Snapshot {
	return &Snapshot{
		ctx:     ctx,
		block:   block,
		backend: backend,
		cache:   stateCache,
	}
}

// BlockNumber returns the block the snapshot is pinned to.
func (s *Snapshot) BlockNumber() uint64 {
	return s.block
}

// HasIntraBlockState reports whether transactions of the following block were layered onto the snapshot.
func (s *Snapshot) HasIntraBlockState() bool {
	return s.intraBlock != nil
}

// GetStateObject returns the account at addr, fetching it from the backend on first use.
func (s *Snapshot) GetStateObject(addr common.Address) (*cache.StateObject, error) {
	obj, err := s.cache.GetStateObject(addr)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			return nil, errors.WithStack(err)
		}
		v, err, _ := s.fetches.Do("account:"+addr.Hex(), func() (any, error) {
			if cached, err := s.cache.GetStateObject(addr); err == nil {
				return cached, nil
			}
			fetched, err := s.backend.GetStateObject(s.ctx, addr, s.block)
			if err != nil {
				return nil, err
			}
			return s.cache.WriteStateObject(addr, *fetched)
		})
		if err != nil {
			return nil, err
		}
		obj = v.(*cache.StateObject)
	}
	if s.intraBlock != nil {
		return s.intraBlock.applyToAccount(addr, obj), nil
	}
	return obj, nil
}

// GetStorageAt returns the value of a storage slot, fetching it from the backend on first use.
func (s *Snapshot) GetStorageAt(addr common.Address, slot common.Hash) (common.Hash, error) {
	if s.intraBlock != nil {
		if value, ok := s.intraBlock.storageAt(addr, slot); ok {
			return value, nil
		}
	}

	value, err := s.cache.GetSlotData(addr, slot)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return common.Hash{}, errors.WithStack(err)
	}

	v, err, _ := s.fetches.Do("slot:"+addr.Hex()+slot.Hex(), func() (any, error) {
		if cached, err := s.cache.GetSlotData(addr, slot); err == nil {
			return cached, nil
		}
		fetched, err := s.backend.GetStorageAt(s.ctx, addr, slot, s.block)
		if err != nil {
			return nil, err
		}
		return s.cache.WriteSlotData(addr, slot, fetched)
	})
	if err != nil {
		return common.Hash{}, err
	}
	return v.(common.Hash), nil
}

// GetBlockHash returns the hash of a block at or before the snapshot block.
func (s *Snapshot) GetBlockHash(number uint64) (common.Hash, error) {
	if number > s.block {
		return common.Hash{}, &StateFetchError{
			Op:    "blockhash",
			Block: number,
			Err:   errors.Errorf("block is after the snapshot block %d", s.block),
		}
	}

	hash, err := s.cache.GetBlockHash(number)
	if err == nil {
		return hash, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return common.Hash{}, errors.WithStack(err)
	}

	v, err, _ := s.fetches.Do(fmt.Sprintf("blockhash:%d", number), func() (any, error) {
		if cached, err := s.cache.GetBlockHash(number); err == nil {
			return cached, nil
		}
		fetched, err := s.backend.GetBlockHash(s.ctx, number)
		if err != nil {
			return nil, err
		}
		return s.cache.WriteBlockHash(number, fetched)
	})
	if err != nil {
		return common.Hash{}, err
	}
	return v.(common.Hash), nil
}

// Prefetch loads the given accounts concurrently so that execution does not wait on them one at a time. The first
// failure is returned.
func (s *Snapshot) Prefetch(ctx context.Context, addrs []common.Address) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, addr := range addrs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := s.GetStateObject(addr)
			return err
		})
	}
	return g.Wait()
}

// Close releases the snapshot's cache. Values already read stay readable.
func (s *Snapshot) Close() error {
	return s.cache.Close()
}
