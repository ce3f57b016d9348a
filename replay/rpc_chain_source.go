package replay

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"time"

	ethereum "github.com/crytic/medusa-geth"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	coreTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/ethclient"
	"github.com/crytic/medusa-geth/rpc"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/shadow"
)

var _ ChainSource = (*RPCChainSource)(nil)

// RPCChainSource is a ChainSource backed by a JSON-RPC node. Each call is bounded by the configured request timeout.
type RPCChainSource struct {
	rpcClient      *rpc.Client
	client         *ethclient.Client
	requestTimeout time.Duration

	chainIDLock sync.Mutex
	chainID     *big.Int
}

// DialRPCChainSource connects to the node at url.
func DialRPCChainSource(ctx context.Context, url string, requestTimeout time.Duration) (*RPCChainSource, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "could not connect to %s", url)
	}
	return NewRPCChainSource(rpcClient, requestTimeout), nil
}

// NewRPCChainSource creates an RPCChainSource over an existing client.
func NewRPCChainSource(rpcClient *rpc.Client, requestTimeout time.Duration) *RPCChainSource {
	return &RPCChainSource{
		rpcClient:      rpcClient,
		client:         ethclient.NewClient(rpcClient),
		requestTimeout: requestTimeout,
	}
}

// Close closes the underlying connection.
func (s *RPCChainSource) Close() {
	s.client.Close()
}

func (s *RPCChainSource) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.requestTimeout)
}

// ChainID returns the chain id reported by the node. It is fetched once.
func (s *RPCChainSource) ChainID(ctx context.Context) (*big.Int, error) {
	s.chainIDLock.Lock()
	defer s.chainIDLock.Unlock()
	if s.chainID != nil {
		return new(big.Int).Set(s.chainID), nil
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	chainID, err := s.client.ChainID(callCtx)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch the chain id")
	}
	s.chainID = chainID
	return new(big.Int).Set(chainID), nil
}

// GetBlock returns the header of a block.
func (s *RPCChainSource) GetBlock(ctx context.Context, number uint64) (*coreTypes.Header, error) {
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	header, err := s.client.HeaderByNumber(callCtx, new(big.Int).SetUint64(number))
	if err != nil {
		return nil, errors.Wrapf(err, "could not fetch block %d", number)
	}
	return header, nil
}

// rpcTransaction is the eth_getTransactionByHash result: the transaction plus where it was included and by whom.
type rpcTransaction struct {
	tx *coreTypes.Transaction
	txExtraInfo
}

type txExtraInfo struct {
	BlockNumber      *hexutil.Big    `json:"blockNumber,omitempty"`
	BlockHash        *common.Hash    `json:"blockHash,omitempty"`
	TransactionIndex *hexutil.Uint64 `json:"transactionIndex,omitempty"`
	From             *common.Address `json:"from,omitempty"`
}

func (tx *rpcTransaction) UnmarshalJSON(msg []byte) error {
	if err := json.Unmarshal(msg, &tx.tx); err != nil {
		return err
	}
	return json.Unmarshal(msg, &tx.txExtraInfo)
}

// GetTransaction returns a mined transaction. Pending transactions cannot be replayed and are rejected with a
// shadow.ValidationError. The sender reported by the node is used; it is recovered from the signature when the
// node omits it.
func (s *RPCChainSource) GetTransaction(ctx context.Context, hash common.Hash) (*TransactionInfo, error) {
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *rpcTransaction
	if err := s.rpcClient.CallContext(callCtx, &result, "eth_getTransactionByHash", hash); err != nil {
		return nil, errors.Wrapf(err, "could not fetch transaction %s", hash.Hex())
	}
	if result == nil || result.tx == nil {
		return nil, errors.Wrapf(ethereum.NotFound, "transaction %s", hash.Hex())
	}
	if result.BlockNumber == nil || result.BlockHash == nil || result.TransactionIndex == nil {
		return nil, errors.WithStack(shadow.NewInvalidTransactionError("transaction %s is not mined yet", hash.Hex()))
	}

	info := &TransactionInfo{
		Tx:          result.tx,
		BlockNumber: result.BlockNumber.ToInt().Uint64(),
		BlockHash:   *result.BlockHash,
		Index:       uint(*result.TransactionIndex),
	}
	if result.From != nil {
		info.From = *result.From
		return info, nil
	}

	chainID, err := s.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	from, err := coreTypes.Sender(coreTypes.LatestSignerForChainID(chainID), result.tx)
	if err != nil {
		return nil, errors.Wrapf(err, "could not recover the sender of transaction %s", hash.Hex())
	}
	info.From = from
	return info, nil
}

// GetCode returns the code currently deployed at an address.
func (s *RPCChainSource) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	code, err := s.client.CodeAt(callCtx, address, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "could not fetch the code of %s", address.Hex())
	}
	return code, nil
}

// GetReceipt returns the receipt of a mined transaction.
func (s *RPCChainSource) GetReceipt(ctx context.Context, hash common.Hash) (*coreTypes.Receipt, error) {
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	receipt, err := s.client.TransactionReceipt(callCtx, hash)
	if err != nil {
		return nil, errors.Wrapf(err, "could not fetch the receipt of transaction %s", hash.Hex())
	}
	return receipt, nil
}
