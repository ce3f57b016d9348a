package cache

import (
	"context"
)

var _ StateCache = (*nonPersistentStateCache)(nil)
var _ StateCache = (*persistentCache)(nil)

// NewPersistentCache creates a cache which persists its content to a bbolt file under cacheDir. Each file is indexed
// by the RPC address (to separate networks) and the block height. The cache is closed when ctx is done.
func NewPersistentCache(ctx context.Context, cacheDir string, rpcAddr string, height uint64) (StateCache, error) {
	return newPersistentCache(ctx, cacheDir, rpcAddr, height)
}

// NewNonPersistentCache creates an in-memory cache which lives as long as the value returned.
func NewNonPersistentCache() StateCache {
	return newNonPersistentStateCache()
}
