package types

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/crytic/medusa-geth/core"
	coreTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/params"
	"golang.org/x/exp/slices"
)

// ReplayMessage describes a historical transaction as a message to re-execute, along with where it was included.
type ReplayMessage struct {
	// TxHash is the hash of the transaction being replayed.
	TxHash common.Hash `json:"txHash"`

	// BlockNumber is the number of the block which included the transaction.
	BlockNumber uint64 `json:"blockNumber"`

	// TxIndex is the position of the transaction within its block.
	TxIndex uint `json:"txIndex"`

	// From is the recovered sender of the transaction.
	From common.Address `json:"from"`

	// To is the recipient of the transaction, or nil for a contract creation.
	To *common.Address `json:"to"`

	Nonce     uint64   `json:"nonce"`
	Value     *big.Int `json:"value"`
	GasLimit  uint64   `json:"gas"`
	GasPrice  *big.Int `json:"gasPrice"`
	GasFeeCap *big.Int `json:"gasFeeCap"`
	GasTipCap *big.Int `json:"gasTipCap"`

	// Data is the calldata (or init code for a contract creation).
	Data hexutil.Bytes `json:"data"`

	AccessList    coreTypes.AccessList `json:"accessList"`
	BlobGasFeeCap *big.Int             `json:"blobGasFeeCap,omitempty"`
	BlobHashes    []common.Hash        `json:"blobHashes,omitempty"`

	// Authorizations is the EIP-7702 authorization list of a set-code transaction.
	Authorizations []coreTypes.SetCodeAuthorization `json:"authorizationList,omitempty"`
}

// NewReplayMessage builds a ReplayMessage from a transaction, its recovered sender and its inclusion position.
func NewReplayMessage(tx *coreTypes.Transaction, from common.Address, blockNumber uint64, txIndex uint) *ReplayMessage {
	return &ReplayMessage{
		TxHash:        tx.Hash(),
		BlockNumber:   blockNumber,
		TxIndex:       txIndex,
		From:          from,
		To:            tx.To(),
		Nonce:         tx.Nonce(),
		Value:         new(big.Int).Set(tx.Value()),
		GasLimit:      tx.Gas(),
		GasPrice:      new(big.Int).Set(tx.GasPrice()),
		GasFeeCap:     new(big.Int).Set(tx.GasFeeCap()),
		GasTipCap:     new(big.Int).Set(tx.GasTipCap()),
		Data:          slices.Clone(tx.Data()),
		AccessList:    tx.AccessList(),
		BlobGasFeeCap: tx.BlobGasFeeCap(),
		BlobHashes:    tx.BlobHashes(),

		Authorizations: tx.SetCodeAuthorizations(),
	}
}

// IsBlobMessage reports whether the message carries blob hashes.
func (m *ReplayMessage) IsBlobMessage() bool {
	return len(m.BlobHashes) > 0
}

// ToCoreMessage converts the message into a core.Message for execution. The effective gas price is derived from the
// fee caps and baseFee as it was when the transaction was included. When unlimitedGas is set, the gas price is zero
// and the gas limit is raised to blockGasLimit so execution is never bound by the sender's funds or gas limit.
func (m *ReplayMessage) ToCoreMessage(baseFee *big.Int, unlimitedGas bool, blockGasLimit uint64) *core.Message {
	msg := &core.Message{
		To:            m.To,
		From:          m.From,
		Nonce:         m.Nonce,
		Value:         bigOrZero(m.Value),
		GasLimit:      m.GasLimit,
		GasPrice:      bigOrZero(m.GasPrice),
		GasFeeCap:     bigOrZero(m.GasFeeCap),
		GasTipCap:     bigOrZero(m.GasTipCap),
		Data:          slices.Clone(m.Data),
		AccessList:    m.AccessList,
		BlobGasFeeCap: m.BlobGasFeeCap,
		BlobHashes:    m.BlobHashes,

		SetCodeAuthorizations: m.Authorizations,
	}

	if baseFee != nil && msg.GasFeeCap.Sign() > 0 {
		// Dynamic fee transactions pay min(feeCap, baseFee + tipCap).
		effective := new(big.Int).Add(baseFee, msg.GasTipCap)
		if effective.Cmp(msg.GasFeeCap) > 0 {
			effective.Set(msg.GasFeeCap)
		}
		msg.GasPrice = effective
	}

	if unlimitedGas {
		msg.GasPrice = new(big.Int)
		msg.GasFeeCap = new(big.Int)
		msg.GasTipCap = new(big.Int)
		if blockGasLimit > msg.GasLimit {
			msg.GasLimit = blockGasLimit
		}
		if msg.BlobGasFeeCap != nil {
			msg.BlobGasFeeCap = new(big.Int)
		}
	}
	return msg
}

// BlobGas returns the blob gas consumed by the message.
func (m *ReplayMessage) BlobGas() uint64 {
	return uint64(len(m.BlobHashes)) * params.BlobTxBlobGasPerBlob
}

func bigOrZero(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(value)
}
