package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// DefaultCacheDirectory is the directory, relative to the working directory, persistent caches are stored in.
const DefaultCacheDirectory = ".shadowcache"

var cacheBucket = []byte("cache")

var blockHashKeyPrefix = []byte("blockhash:")

// persistentCache provides a thread-safe cache for storing objects/slots that persists the cache to disk. A cache file
// holds the state of one block of one node, which never changes once the block is final.
type persistentCache struct {
	memCache *nonPersistentStateCache
	db       *bbolt.DB

	pendingWriteMutex sync.Mutex
	pendingWrites     []pendingWrite
	flushThreshold    int

	closeOnce sync.Once
	closeErr  error
}

type pendingWrite struct {
	key   []byte
	value []byte
}

func newPersistentCache(ctx context.Context, cacheDir string, rpcAddr string, height uint64) (*persistentCache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}
	cacheFile := filepath.Join(cacheDir, getCacheFilename(rpcAddr, height))
	db, err := bbolt.Open(cacheFile, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "could not open db")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	p := &persistentCache{
		memCache:       newNonPersistentStateCache(),
		db:             db,
		flushThreshold: 25,
		pendingWrites:  []pendingWrite{},
	}

	// Flush and close once the owner of the context is done.
	go func() {
		<-ctx.Done()
		_ = p.Close()
	}()

	return p, nil
}

func (p *persistentCache) getFromPersist(key []byte, value any) (bool, error) {
	found := false
	err := p.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(cacheBucket).Get(key)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, value)
	})
	if err != nil {
		return false, errors.Wrap(err, "could not get value")
	}
	return found, nil
}

func (p *persistentCache) writeToPersist(key []byte, value any) error {
	serialized, err := json.Marshal(value)
	if err != nil {
		return err
	}

	p.pendingWriteMutex.Lock()
	defer p.pendingWriteMutex.Unlock()

	p.pendingWrites = append(p.pendingWrites, pendingWrite{key: key, value: serialized})
	if len(p.pendingWrites) >= p.flushThreshold {
		return p.flushWrites()
	}
	return nil
}

// flushWrites writes all pending writes to disk. The caller must hold pendingWriteMutex.
func (p *persistentCache) flushWrites() error {
	if len(p.pendingWrites) == 0 {
		return nil
	}
	return p.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(cacheBucket)
		for _, pw := range p.pendingWrites {
			if err := bucket.Put(pw.key, pw.value); err != nil {
				return err
			}
		}
		p.pendingWrites = p.pendingWrites[:0]
		return nil
	})
}

func (p *persistentCache) GetStateObject(addr common.Address) (*StateObject, error) {
	so, err := p.memCache.GetStateObject(addr)
	if !errors.Is(err, ErrCacheMiss) {
		return so, err
	}

	s := StateObject{}
	exists, err := p.getFromPersist(addr[:], &s)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrCacheMiss
	}
	return p.memCache.WriteStateObject(addr, s)
}

func (p *persistentCache) WriteStateObject(addr common.Address, data StateObject) (*StateObject, error) {
	if existing, err := p.memCache.GetStateObject(addr); err == nil {
		return existing, nil
	}
	actual, err := p.memCache.WriteStateObject(addr, data)
	if err != nil {
		return nil, err
	}
	return actual, p.writeToPersist(addr[:], actual)
}

func (p *persistentCache) GetSlotData(addr common.Address, slot common.Hash) (common.Hash, error) {
	data, err := p.memCache.GetSlotData(addr, slot)
	if !errors.Is(err, ErrCacheMiss) {
		return data, err
	}

	exists, err := p.getFromPersist(slotPersistKey(addr, slot), &data)
	if err != nil {
		return common.Hash{}, err
	}
	if !exists {
		return common.Hash{}, ErrCacheMiss
	}
	return p.memCache.WriteSlotData(addr, slot, data)
}

func (p *persistentCache) WriteSlotData(addr common.Address, slot common.Hash, data common.Hash) (common.Hash, error) {
	if existing, err := p.memCache.GetSlotData(addr, slot); err == nil {
		return existing, nil
	}
	actual, err := p.memCache.WriteSlotData(addr, slot, data)
	if err != nil {
		return common.Hash{}, err
	}
	return actual, p.writeToPersist(slotPersistKey(addr, slot), actual)
}

func (p *persistentCache) GetBlockHash(number uint64) (common.Hash, error) {
	hash, err := p.memCache.GetBlockHash(number)
	if !errors.Is(err, ErrCacheMiss) {
		return hash, err
	}

	exists, err := p.getFromPersist(blockHashPersistKey(number), &hash)
	if err != nil {
		return common.Hash{}, err
	}
	if !exists {
		return common.Hash{}, ErrCacheMiss
	}
	return p.memCache.WriteBlockHash(number, hash)
}

func (p *persistentCache) WriteBlockHash(number uint64, hash common.Hash) (common.Hash, error) {
	if existing, err := p.memCache.GetBlockHash(number); err == nil {
		return existing, nil
	}
	actual, err := p.memCache.WriteBlockHash(number, hash)
	if err != nil {
		return common.Hash{}, err
	}
	return actual, p.writeToPersist(blockHashPersistKey(number), actual)
}

// Close flushes pending writes and closes the database. It is safe to call more than once.
func (p *persistentCache) Close() error {
	p.closeOnce.Do(func() {
		p.pendingWriteMutex.Lock()
		err := p.flushWrites()
		p.pendingWriteMutex.Unlock()
		if closeErr := p.db.Close(); err == nil {
			err = closeErr
		}
		p.closeErr = err
	})
	return p.closeErr
}

func slotPersistKey(addr common.Address, slot common.Hash) []byte {
	key := make([]byte, 0, common.AddressLength+common.HashLength)
	key = append(key, addr[:]...)
	return append(key, slot[:]...)
}

func blockHashPersistKey(number uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, blockHashKeyPrefix...), number)
}

func getCacheFilename(rpcAddr string, height uint64) string {
	h := sha256.New()
	h.Write([]byte(rpcAddr))
	bs := h.Sum(nil)

	return fmt.Sprintf("%d-%x.dat", height, bs[0:10])
}
