package replay

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	coreTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/medusa-geth/params"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/chain"
	"github.com/shadow-hq/shadow/chain/state"
	"github.com/shadow-hq/shadow/chain/state/cache"
	compilationTypes "github.com/shadow-hq/shadow/compilation/types"
	"github.com/shadow-hq/shadow/group"
	"github.com/shadow-hq/shadow/shadow"
	"github.com/stretchr/testify/require"
)

/* This file is exclusively for test fixtures. */

var _ state.StateBackend = (*memoryBackend)(nil)

// memoryBackend serves the same accounts at every block.
type memoryBackend struct {
	lock     sync.RWMutex
	accounts map[common.Address]*cache.StateObject
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{accounts: make(map[common.Address]*cache.StateObject)}
}

func (m *memoryBackend) setAccount(addr common.Address, balance uint64, nonce uint64, code []byte) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.accounts[addr] = &cache.StateObject{Balance: uint256.NewInt(balance), Nonce: nonce, Code: code}
}

func (m *memoryBackend) GetStateObject(_ context.Context, addr common.Address, _ uint64) (*cache.StateObject, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if obj, ok := m.accounts[addr]; ok {
		return &cache.StateObject{Balance: obj.Balance.Clone(), Nonce: obj.Nonce, Code: obj.Code}, nil
	}
	return &cache.StateObject{Balance: uint256.NewInt(0)}, nil
}

func (m *memoryBackend) GetStorageAt(context.Context, common.Address, common.Hash, uint64) (common.Hash, error) {
	return common.Hash{}, nil
}

func (m *memoryBackend) GetBlockHash(_ context.Context, block uint64) (common.Hash, error) {
	return crypto.Keccak256Hash(new(uint256.Int).SetUint64(block).Bytes()), nil
}

var _ ChainSource = (*fakeSource)(nil)

// fakeSource serves transactions, receipts and headers registered by the test.
type fakeSource struct {
	chainID      *big.Int
	transactions map[common.Hash]*TransactionInfo
	receipts     map[common.Hash]*coreTypes.Receipt
	headers      map[uint64]*coreTypes.Header
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		chainID:      new(big.Int).Set(params.MainnetChainConfig.ChainID),
		transactions: make(map[common.Hash]*TransactionInfo),
		receipts:     make(map[common.Hash]*coreTypes.Receipt),
		headers:      make(map[uint64]*coreTypes.Header),
	}
}

var errNotFound = errors.New("not found")

func (f *fakeSource) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeSource) GetBlock(_ context.Context, number uint64) (*coreTypes.Header, error) {
	if header, ok := f.headers[number]; ok {
		return header, nil
	}
	return nil, errors.Wrapf(errNotFound, "block %d", number)
}

func (f *fakeSource) GetTransaction(_ context.Context, hash common.Hash) (*TransactionInfo, error) {
	if info, ok := f.transactions[hash]; ok {
		return info, nil
	}
	return nil, errors.Wrapf(errNotFound, "transaction %s", hash.Hex())
}

func (f *fakeSource) GetReceipt(_ context.Context, hash common.Hash) (*coreTypes.Receipt, error) {
	if receipt, ok := f.receipts[hash]; ok {
		return receipt, nil
	}
	return nil, errors.Wrapf(errNotFound, "receipt %s", hash.Hex())
}

const fixtureBlock = uint64(20_000_000)

var (
	fixtureContract = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	fixtureABI      = mustParseABI(`[
		{"type":"event","name":"Recorded","anonymous":false,"inputs":[{"name":"value","type":"uint256","indexed":false}]},
		{"type":"event","name":"Observed","anonymous":false,"inputs":[{"name":"amount","type":"uint256","indexed":false}]}
	]`)
	recordedTopic = fixtureABI.Events["Recorded"].ID
	observedTopic = fixtureABI.Events["Observed"].ID
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(err)
	}
	return parsed
}

// fixtureHeader is a Cancun-era mainnet block.
func fixtureHeader(number uint64) *coreTypes.Header {
	zero := uint64(0)
	return &coreTypes.Header{
		Number:        new(big.Int).SetUint64(number),
		Time:          1_720_000_000,
		GasLimit:      30_000_000,
		BaseFee:       big.NewInt(5 * params.GWei),
		Difficulty:    big.NewInt(0),
		Coinbase:      common.HexToAddress("0x00000000000000000000000000000000000c01b5"),
		ExcessBlobGas: &zero,
		BlobGasUsed:   &zero,
	}
}

// replayFixture wires an Engine over an in-memory chain holding fixtureContract.
type replayFixture struct {
	key     *ecdsa.PrivateKey
	sender  common.Address
	backend *memoryBackend
	source  *fakeSource
	engine  *Engine
}

func newReplayFixture(t *testing.T, contractCode []byte) *replayFixture {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	f := &replayFixture{
		key:     key,
		sender:  crypto.PubkeyToAddress(key.PublicKey),
		backend: newMemoryBackend(),
		source:  newFakeSource(),
	}
	f.backend.setAccount(f.sender, params.Ether, 0, nil)
	f.backend.setAccount(fixtureContract, 0, 1, contractCode)
	f.source.headers[fixtureBlock] = fixtureHeader(fixtureBlock)

	forks := state.NewForkManager(f.backend, state.ForkConfig{})
	f.engine = NewEngine(f.source, forks, chain.NewExecutor(chain.GasModeTransaction))
	return f
}

// addTransaction registers a call to fixtureContract at the given position and returns its hash. The receipt claims
// receiptLogs logs.
func (f *replayFixture) addTransaction(t *testing.T, block uint64, index uint, nonce uint64, receiptLogs int) common.Hash {
	to := fixtureContract
	tx, err := coreTypes.SignTx(coreTypes.NewTx(&coreTypes.DynamicFeeTx{
		ChainID:   f.source.chainID,
		Nonce:     nonce,
		GasTipCap: big.NewInt(params.GWei),
		GasFeeCap: big.NewInt(20 * params.GWei),
		Gas:       100_000,
		To:        &to,
		Value:     new(big.Int),
	}), coreTypes.LatestSignerForChainID(f.source.chainID), f.key)
	require.NoError(t, err)

	hash := tx.Hash()
	f.source.transactions[hash] = &TransactionInfo{Tx: tx, From: f.sender, BlockNumber: block, Index: index}
	receipt := &coreTypes.Receipt{TxHash: hash, BlockNumber: new(big.Int).SetUint64(block), TransactionIndex: index, Logs: make([]*coreTypes.Log, 0)}
	for i := 0; i < receiptLogs; i++ {
		receipt.Logs = append(receipt.Logs, &coreTypes.Log{})
	}
	f.source.receipts[hash] = receipt
	return hash
}

// newFixtureGroup binds fixtureContract to shadowCode on mainnet.
func newFixtureGroup(shadowCode []byte, chainID uint64) *group.ContractGroup {
	g := group.NewContractGroup("fixture")
	g.Bindings = append(g.Bindings, group.Binding{
		Address: fixtureContract,
		ChainID: chainID,
		Artifact: &shadow.ShadowArtifact{
			CompiledArtifact: &compilationTypes.CompiledArtifact{
				Name:             "Fixture",
				ABI:              fixtureABI,
				DeployedBytecode: shadowCode,
				MethodSelectors:  make(map[compilationTypes.Selector]string),
			},
		},
	})
	return g
}

// The helpers below hand-assemble EVM bytecode.

// emitWord emits LOG1(word, topic) with the word stored in memory[0:32].
func emitWord(value byte, topic common.Hash) []byte {
	code := []byte{0x60, value, 0x60, 0x00, 0x52, 0x7f}
	code = append(code, topic.Bytes()...)
	return append(code, 0x60, 0x20, 0x60, 0x00, 0xa1)
}

// returnWord returns memory[0:32].
func returnWord() []byte {
	return []byte{0x60, 0x20, 0x60, 0x00, 0xf3}
}

// revertWord reverts with memory[0:32].
func revertWord() []byte {
	return []byte{0x60, 0x20, 0x60, 0x00, 0xfd}
}

func assemble(parts ...[]byte) []byte {
	var code []byte
	for _, part := range parts {
		code = append(code, part...)
	}
	return code
}

// originalCode emits Recorded(42) and returns 42.
func originalCode() []byte {
	return assemble(emitWord(0x2a, recordedTopic), returnWord())
}

// instrumentedCode emits Observed(7) ahead of Recorded(42) and returns 42, like originalCode.
func instrumentedCode() []byte {
	return assemble(emitWord(0x07, observedTopic), emitWord(0x2a, recordedTopic), returnWord())
}
