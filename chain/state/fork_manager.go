package state

import (
	"context"

	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/chain/state/cache"
	"github.com/shadow-hq/shadow/logging"
	"github.com/shadow-hq/shadow/logging/colors"
)

// ForkConfig configures how snapshots are cached and populated.
type ForkConfig struct {
	// DiskCache persists fetched state under CacheDirectory, keyed by Endpoint and block, so later runs against the
	// same block read it from disk.
	DiskCache bool

	// CacheDirectory is where disk caches are kept. Defaults to cache.DefaultCacheDirectory.
	CacheDirectory string

	// Endpoint identifies the remote node in disk cache file names.
	Endpoint string

	// IntraBlockState replays the transactions preceding the target transaction in its block, so that the target
	// observes the state it saw on-chain rather than the parent block's state.
	IntraBlockState bool
}

// ForkManager creates snapshots of remote chain state.
type ForkManager struct {
	backend StateBackend
	config  ForkConfig
	logger  *logging.Logger
}

// NewForkManager creates a ForkManager reading from backend.
func NewForkManager(backend StateBackend, config ForkConfig) *ForkManager {
	if config.CacheDirectory == "" {
		config.CacheDirectory = cache.DefaultCacheDirectory
	}
	return &ForkManager{
		backend: backend,
		config:  config,
		logger:  logging.GlobalLogger.NewSubLogger("module", logging.STATE_SERVICE),
	}
}

// Config returns the configuration of the ForkManager.
func (f *ForkManager) Config() ForkConfig {
	return f.config
}

// Fork returns a lazy snapshot of state at the end of blockNumber. Nothing is fetched until the snapshot is read.
// Reads made through the snapshot use ctx, so the snapshot must not outlive it.
func (f *ForkManager) Fork(ctx context.Context, blockNumber uint64) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stateCache cache.StateCache
	if f.config.DiskCache {
		var err error
		stateCache, err = cache.NewPersistentCache(ctx, f.config.CacheDirectory, f.config.Endpoint, blockNumber)
		if err != nil {
			return nil, errors.Wrap(err, "could not open the state disk cache")
		}
	} else {
		stateCache = cache.NewNonPersistentCache()
	}
	return newSnapshot(ctx, blockNumber, f.backend, stateCache), nil
}

// ForkBeforeTransaction returns a snapshot of the state the transaction at txIndex of blockNumber executed against.
// Without intra-block state this is the parent block. With it, the transactions preceding the target are layered on
// top, which needs a node serving trace_replayBlockTransactions; a node without it degrades to the parent block with
// a warning.
func (f *ForkManager) ForkBeforeTransaction(ctx context.Context, blockNumber uint64, txIndex uint, txHash common.Hash) (*Snapshot, error) {
	if blockNumber == 0 {
		return nil, errors.New("cannot fork before a transaction of the genesis block")
	}
	snapshot, err := f.Fork(ctx, blockNumber-1)
	if err != nil {
		return nil, err
	}
	if !f.config.IntraBlockState || txIndex == 0 {
		return snapshot, nil
	}

	traceSource, ok := f.backend.(BlockTraceSource)
	if !ok {
		f.logger.Warn("the state backend cannot replay blocks, intra-block state is ignored")
		return snapshot, nil
	}

	diffs, err := traceSource.ReplayBlockStateDiffs(ctx, blockNumber)
	if err != nil {
		if IsMethodUnsupported(err) {
			f.logger.Warn(
				colors.Bold, "trace_replayBlockTransactions", colors.Reset,
				" is not available on the node, replaying against the state of block ", blockNumber-1,
				" without the ", txIndex, " preceding transactions", err,
			)
			return snapshot, nil
		}
		_ = snapshot.Close()
		return nil, err
	}

	snapshot.intraBlock = NewBlockStateDiff(diffs, txIndex, txHash)
	f.logger.Debug("layered ", snapshot.intraBlock.Len(), " accounts changed by the ", txIndex, " preceding transactions of block ", blockNumber)
	return snapshot, nil
}
