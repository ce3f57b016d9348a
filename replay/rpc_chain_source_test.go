package replay

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	ethereum "github.com/crytic/medusa-geth"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	coreTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/medusa-geth/params"
	"github.com/crytic/medusa-geth/rpc"
	"github.com/shadow-hq/shadow/shadow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainService is served as the "eth" namespace of an in-process node.
type chainService struct {
	transactions map[common.Hash]json.RawMessage
	receipts     map[common.Hash]*coreTypes.Receipt
	headers      map[uint64]*coreTypes.Header
	code         map[common.Address]hexutil.Bytes
}

func (s *chainService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(1))
}

func (s *chainService) GetTransactionByHash(hash common.Hash) json.RawMessage {
	if tx, ok := s.transactions[hash]; ok {
		return tx
	}
	return json.RawMessage("null")
}

func (s *chainService) GetTransactionReceipt(hash common.Hash) *coreTypes.Receipt {
	return s.receipts[hash]
}

func (s *chainService) GetBlockByNumber(number hexutil.Uint64, full bool) *coreTypes.Header {
	return s.headers[uint64(number)]
}

func (s *chainService) GetCode(address common.Address, block string) hexutil.Bytes {
	return s.code[address]
}

// withExtraFields merges extra into the JSON object form of value.
func withExtraFields(t *testing.T, value any, extra map[string]any) json.RawMessage {
	data, err := json.Marshal(value)
	require.NoError(t, err)
	fields := make(map[string]any)
	require.NoError(t, json.Unmarshal(data, &fields))
	for key, field := range extra {
		fields[key] = field
	}
	data, err = json.Marshal(fields)
	require.NoError(t, err)
	return data
}

func TestRPCChainSource(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	chainID := big.NewInt(1)
	to := fixtureContract

	sign := func(nonce uint64) *coreTypes.Transaction {
		tx, err := coreTypes.SignTx(coreTypes.NewTx(&coreTypes.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: big.NewInt(params.GWei),
			GasFeeCap: big.NewInt(20 * params.GWei),
			Gas:       50_000,
			To:        &to,
			Value:     big.NewInt(1),
		}), coreTypes.LatestSignerForChainID(chainID), key)
		require.NoError(t, err)
		return tx
	}
	minedWithSender, minedWithoutSender, pending := sign(0), sign(1), sign(2)
	blockHash := common.HexToHash("0xb10c")
	mined := map[string]any{
		"blockNumber":      hexutil.Uint64(fixtureBlock),
		"blockHash":        blockHash,
		"transactionIndex": hexutil.Uint64(7),
	}

	withSender := map[string]any{"from": sender}
	for key, value := range mined {
		withSender[key] = value
	}

	header := fixtureHeader(fixtureBlock)
	service := &chainService{
		transactions: map[common.Hash]json.RawMessage{
			minedWithSender.Hash():    withExtraFields(t, minedWithSender, withSender),
			minedWithoutSender.Hash(): withExtraFields(t, minedWithoutSender, mined),
			pending.Hash():            withExtraFields(t, pending, map[string]any{}),
		},
		receipts: map[common.Hash]*coreTypes.Receipt{
			minedWithSender.Hash(): {
				Type:              coreTypes.DynamicFeeTxType,
				Status:            coreTypes.ReceiptStatusSuccessful,
				CumulativeGasUsed: 21_000,
				GasUsed:           21_000,
				TxHash:            minedWithSender.Hash(),
				BlockHash:         blockHash,
				BlockNumber:       new(big.Int).SetUint64(fixtureBlock),
				TransactionIndex:  7,
				Logs:              []*coreTypes.Log{},
			},
		},
		headers: map[uint64]*coreTypes.Header{fixtureBlock: header},
		code:    map[common.Address]hexutil.Bytes{fixtureContract: {0x60, 0x80}},
	}

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", service))
	t.Cleanup(server.Stop)
	source := NewRPCChainSource(rpc.DialInProc(server), time.Second)
	t.Cleanup(source.Close)
	ctx := context.Background()

	id, err := source.ChainID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, id.Uint64())

	info, err := source.GetTransaction(ctx, minedWithSender.Hash())
	require.NoError(t, err)
	assert.Equal(t, sender, info.From)
	assert.Equal(t, fixtureBlock, info.BlockNumber)
	assert.Equal(t, blockHash, info.BlockHash)
	assert.EqualValues(t, 7, info.Index)
	assert.Equal(t, minedWithSender.Hash(), info.Tx.Hash())

	info, err = source.GetTransaction(ctx, minedWithoutSender.Hash())
	require.NoError(t, err)
	assert.Equal(t, sender, info.From)

	_, err = source.GetTransaction(ctx, pending.Hash())
	var validationErr *shadow.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, shadow.InvalidTransaction, validationErr.Kind)

	_, err = source.GetTransaction(ctx, common.HexToHash("0x01"))
	assert.ErrorIs(t, err, ethereum.NotFound)

	receipt, err := source.GetReceipt(ctx, minedWithSender.Hash())
	require.NoError(t, err)
	assert.EqualValues(t, 7, receipt.TransactionIndex)
	assert.Equal(t, coreTypes.ReceiptStatusSuccessful, receipt.Status)

	_, err = source.GetReceipt(ctx, minedWithoutSender.Hash())
	assert.ErrorIs(t, err, ethereum.NotFound)

	fetched, err := source.GetBlock(ctx, fixtureBlock)
	require.NoError(t, err)
	assert.Equal(t, header.Hash(), fetched.Hash())
	assert.Equal(t, header.BaseFee, fetched.BaseFee)

	_, err = source.GetBlock(ctx, fixtureBlock+1)
	assert.ErrorIs(t, err, ethereum.NotFound)

	code, err := source.GetCode(ctx, fixtureContract)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80}, code)
	code, err = source.GetCode(ctx, sender)
	require.NoError(t, err)
	assert.Empty(t, code)
}
