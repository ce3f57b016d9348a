package types

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	coreTypes "github.com/crytic/medusa-geth/core/types"
)

// BlockEnvironment holds the block-level values a replayed transaction observes (block.number, block.timestamp,
// block.coinbase, and so on). They are taken from the header of the block which included the transaction, not from
// the parent block the state is forked at.
type BlockEnvironment struct {
	// Header is the header of the block which included the replayed transaction.
	Header *coreTypes.Header

	// ChainID identifies the chain the block belongs to, selecting the fork schedule used for execution.
	ChainID *big.Int
}

// NewBlockEnvironment returns a BlockEnvironment for the given header and chain id.
func NewBlockEnvironment(header *coreTypes.Header, chainID *big.Int) *BlockEnvironment {
	return &BlockEnvironment{
		Header:  coreTypes.CopyHeader(header),
		ChainID: new(big.Int).Set(chainID),
	}
}

// Number returns the block number.
func (b *BlockEnvironment) Number() uint64 {
	return b.Header.Number.Uint64()
}

// Time returns the block timestamp.
func (b *BlockEnvironment) Time() uint64 {
	return b.Header.Time
}

// Coinbase returns the block beneficiary.
func (b *BlockEnvironment) Coinbase() common.Address {
	return b.Header.Coinbase
}

// BaseFee returns the block base fee, or nil before London.
func (b *BlockEnvironment) BaseFee() *big.Int {
	if b.Header.BaseFee == nil {
		return nil
	}
	return new(big.Int).Set(b.Header.BaseFee)
}

// GasLimit returns the block gas limit.
func (b *BlockEnvironment) GasLimit() uint64 {
	return b.Header.GasLimit
}
