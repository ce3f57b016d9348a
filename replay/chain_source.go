package replay

import (
	"context"
	"math/big"

	"github.com/crytic/medusa-geth/common"
	coreTypes "github.com/crytic/medusa-geth/core/types"
)

// TransactionInfo is a mined transaction together with its recovered sender and inclusion position.
type TransactionInfo struct {
	Tx          *coreTypes.Transaction
	From        common.Address
	BlockNumber uint64
	BlockHash   common.Hash
	Index       uint
}

// ChainSource provides the historical chain data a replay needs besides state. Every method is read-only.
type ChainSource interface {
	// ChainID returns the id of the chain the source serves.
	ChainID(ctx context.Context) (*big.Int, error)

	// GetBlock returns the header of the block with the given number.
	GetBlock(ctx context.Context, number uint64) (*coreTypes.Header, error)

	// GetTransaction returns a mined transaction with its sender and inclusion position.
	GetTransaction(ctx context.Context, hash common.Hash) (*TransactionInfo, error)

	// GetReceipt returns the receipt of a mined transaction.
	GetReceipt(ctx context.Context, hash common.Hash) (*coreTypes.Receipt, error)
}
