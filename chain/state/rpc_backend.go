package state

import (
	"context"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/chain/state/cache"
	"github.com/shadow-hq/shadow/chain/state/rpc"
)

/*
RPCBackend defines a StateBackend for fetching state from a remote RPC server. It does not cache anything itself;
snapshots memoize what they read.
*/
type RPCBackend struct {
	clientPool *rpc.ClientPool
}

// NewRPCBackend dials poolSize connections to url.
func NewRPCBackend(url string, poolSize uint, config rpc.ClientPoolConfig) (*RPCBackend, error) {
	clientPool, err := rpc.NewClientPool(url, poolSize, config)
	if err != nil {
		return nil, err
	}
	return NewRPCBackendFromPool(clientPool), nil
}

// NewRPCBackendFromPool creates an RPCBackend over an existing client pool.
func NewRPCBackendFromPool(clientPool *rpc.ClientPool) *RPCBackend {
	return &RPCBackend{clientPool: clientPool}
}

// Endpoint returns the URL of the remote node.
func (q *RPCBackend) Endpoint() string {
	return q.clientPool.Endpoint()
}

// Close closes the underlying connections.
func (q *RPCBackend) Close() {
	q.clientPool.Close()
}

/*
GetStorageAt returns data stored in the remote RPC for the given address/slot.
Note that Ethereum RPC will return zero for slots that have never been written to or are associated with undeployed
contracts.
*/
func (q *RPCBackend) GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash, block uint64) (common.Hash, error) {
	method := "eth_getStorageAt"
	var result hexutil.Bytes
	err := q.clientPool.ExecuteRequestBlocking(ctx, &result, method, addr, slot, hexutil.Uint64(block))
	if err != nil {
		return common.Hash{}, newSlotFetchError(method, addr, slot, block, err)
	}
	return common.BytesToHash(result), nil
}

/*
GetStateObject returns the data stored in the remote RPC for the specified state object. The balance, nonce and code
are requested concurrently.
Note that the Ethereum RPC will return zero for accounts that do not exist.
*/
func (q *RPCBackend) GetStateObject(ctx context.Context, addr common.Address, block uint64) (*cache.StateObject, error) {
	height := hexutil.Uint64(block)
	balance := hexutil.Big{}
	nonce := hexutil.Uint64(0)
	code := hexutil.Bytes{}

	pendingBalance, err := q.clientPool.ExecuteRequestAsync(ctx, "eth_getBalance", addr, height)
	if err != nil {
		return nil, newAccountFetchError("eth_getBalance", addr, block, err)
	}
	pendingNonce, err := q.clientPool.ExecuteRequestAsync(ctx, "eth_getTransactionCount", addr, height)
	if err != nil {
		return nil, newAccountFetchError("eth_getTransactionCount", addr, block, err)
	}
	pendingCode, err := q.clientPool.ExecuteRequestAsync(ctx, "eth_getCode", addr, height)
	if err != nil {
		return nil, newAccountFetchError("eth_getCode", addr, block, err)
	}

	if err = pendingBalance.GetResultBlocking(&balance); err != nil {
		return nil, newAccountFetchError("eth_getBalance", addr, block, err)
	}
	balanceTyped, overflow := uint256.FromBig(balance.ToInt())
	if overflow {
		return nil, newAccountFetchError("eth_getBalance", addr, block, errors.New("balance overflows 256 bits"))
	}
	if err = pendingNonce.GetResultBlocking(&nonce); err != nil {
		return nil, newAccountFetchError("eth_getTransactionCount", addr, block, err)
	}
	if err = pendingCode.GetResultBlocking(&code); err != nil {
		return nil, newAccountFetchError("eth_getCode", addr, block, err)
	}

	return &cache.StateObject{
		Balance: balanceTyped,
		Nonce:   uint64(nonce),
		Code:    code,
	}, nil
}

// rpcBlockHeader is the subset of an eth_getBlockByNumber result this backend reads.
type rpcBlockHeader struct {
	Hash *common.Hash `json:"hash"`
}

// GetBlockHash returns the hash of a block through eth_getBlockByNumber.
func (q *RPCBackend) GetBlockHash(ctx context.Context, block uint64) (common.Hash, error) {
	method := "eth_getBlockByNumber"
	var header *rpcBlockHeader
	if err := q.clientPool.ExecuteRequestBlocking(ctx, &header, method, hexutil.Uint64(block), false); err != nil {
		return common.Hash{}, &StateFetchError{Op: method, Block: block, Err: err}
	}
	if header == nil || header.Hash == nil {
		return common.Hash{}, &StateFetchError{Op: method, Block: block, Err: errors.New("block not found")}
	}
	return *header.Hash, nil
}
