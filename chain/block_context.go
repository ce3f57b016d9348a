package chain

import (
	"math/big"
	"sync"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/consensus/misc/eip4844"
	"github.com/crytic/medusa-geth/core"
	"github.com/crytic/medusa-geth/core/vm"
	"github.com/crytic/medusa-geth/params"
	"github.com/shadow-hq/shadow/chain/state"
	"github.com/shadow-hq/shadow/chain/types"
)

// blockHashSource serves BLOCKHASH lookups from a state view. The EVM cannot receive an error from GetHash, so the
// first failure is kept and reported once execution ends.
type blockHashSource struct {
	view state.StateView

	lock sync.Mutex
	err  error
}

// getHash implements vm.GetHashFunc. Failed lookups resolve to the zero hash.
func (b *blockHashSource) getHash(n uint64) common.Hash {
	hash, err := b.view.GetBlockHash(n)
	if err != nil {
		b.lock.Lock()
		if b.err == nil {
			b.err = err
		}
		b.lock.Unlock()
		return common.Hash{}
	}
	return hash
}

// Err returns the first lookup failure, if any.
func (b *blockHashSource) Err() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.err
}

// newReplayBlockContext obtains a vm.BlockContext which presents the replayed transaction's own block to the EVM.
// Block hashes are read through the view, so they are memoized by the underlying snapshot.
func newReplayBlockContext(env *types.BlockEnvironment, chainConfig *params.ChainConfig, hashes *blockHashSource) vm.BlockContext {
	header := env.Header

	difficulty := new(big.Int)
	if header.Difficulty != nil {
		difficulty.Set(header.Difficulty)
	}

	// Post-merge blocks carry the beacon randomness in the mix digest, which also switches the EVM to merge rules.
	var random *common.Hash
	if difficulty.Sign() == 0 {
		mixDigest := header.MixDigest
		random = &mixDigest
	}

	var blobBaseFee *big.Int
	if header.ExcessBlobGas != nil {
		blobBaseFee = eip4844.CalcBlobFee(chainConfig, header)
	}

	return vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash:     hashes.getHash,
		Coinbase:    header.Coinbase,
		BlockNumber: new(big.Int).Set(header.Number),
		Time:        header.Time,
		Difficulty:  difficulty,
		BaseFee:     env.BaseFee(),
		BlobBaseFee: blobBaseFee,
		GasLimit:    header.GasLimit,
		Random:      random,
	}
}
