package chain

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	coreTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/medusa-geth/params"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/chain/state"
	"github.com/shadow-hq/shadow/chain/state/cache"
	"github.com/shadow-hq/shadow/chain/types"
)

/* This file is exclusively for test fixtures. */

var _ state.StateView = (*memoryView)(nil)

// memoryView is an in-memory state.StateView pinned to a block.
type memoryView struct {
	block    uint64
	accounts map[common.Address]*cache.StateObject
	storage  map[common.Address]map[common.Hash]common.Hash
	failing  map[common.Address]struct{}
}

func newMemoryView(block uint64) *memoryView {
	return &memoryView{
		block:    block,
		accounts: make(map[common.Address]*cache.StateObject),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		failing:  make(map[common.Address]struct{}),
	}
}

func (m *memoryView) setAccount(addr common.Address, balance uint64, nonce uint64, code []byte) {
	m.accounts[addr] = &cache.StateObject{Balance: uint256.NewInt(balance), Nonce: nonce, Code: code}
}

func (m *memoryView) BlockNumber() uint64 {
	return m.block
}

func (m *memoryView) GetStateObject(addr common.Address) (*cache.StateObject, error) {
	if _, fail := m.failing[addr]; fail {
		return nil, &state.StateFetchError{Op: "eth_getBalance", Address: &addr, Block: m.block, Err: errors.New("node unavailable")}
	}
	if obj, ok := m.accounts[addr]; ok {
		return &cache.StateObject{Balance: obj.Balance.Clone(), Nonce: obj.Nonce, Code: obj.Code}, nil
	}
	return &cache.StateObject{Balance: uint256.NewInt(0)}, nil
}

func (m *memoryView) GetStorageAt(addr common.Address, slot common.Hash) (common.Hash, error) {
	return m.storage[addr][slot], nil
}

func (m *memoryView) GetBlockHash(number uint64) (common.Hash, error) {
	if number > m.block {
		return common.Hash{}, &state.StateFetchError{Op: "blockhash", Block: number, Err: errors.New("block is after the fork point")}
	}
	return fixtureBlockHash(number), nil
}

func fixtureBlockHash(number uint64) common.Hash {
	return crypto.Keccak256Hash(new(uint256.Int).SetUint64(number).Bytes())
}

var (
	fixtureSender   = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	fixtureContract = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	fixtureCallee   = common.HexToAddress("0x000000000000000000000000000000000000beef")
	fixtureTopic    = common.HexToHash("0xfeed")
)

// fixtureEnvironment is a Cancun-era mainnet block.
func fixtureEnvironment() *types.BlockEnvironment {
	zero := uint64(0)
	header := &coreTypes.Header{
		Number:        big.NewInt(20_000_000),
		Time:          1_720_000_000,
		GasLimit:      30_000_000,
		BaseFee:       big.NewInt(5 * params.GWei),
		Difficulty:    big.NewInt(0),
		MixDigest:     common.HexToHash("0x0123"),
		Coinbase:      common.HexToAddress("0x00000000000000000000000000000000000c01b5"),
		ExcessBlobGas: &zero,
		BlobGasUsed:   &zero,
	}
	return types.NewBlockEnvironment(header, params.MainnetChainConfig.ChainID)
}

// fixtureView forks the fixture environment's parent block with a funded sender.
func fixtureView() *memoryView {
	view := newMemoryView(fixtureEnvironment().Number() - 1)
	view.setAccount(fixtureSender, params.Ether, 3, nil)
	return view
}

// fixtureMessage calls fixtureContract from fixtureSender.
func fixtureMessage() *types.ReplayMessage {
	to := fixtureContract
	return &types.ReplayMessage{
		TxHash:      common.HexToHash("0x7a"),
		BlockNumber: 20_000_000,
		TxIndex:     4,
		From:        fixtureSender,
		To:          &to,
		Nonce:       3,
		Value:       new(big.Int),
		GasLimit:    100_000,
		GasPrice:    big.NewInt(6 * params.GWei),
		GasFeeCap:   big.NewInt(20 * params.GWei),
		GasTipCap:   big.NewInt(1 * params.GWei),
	}
}

// The helpers below hand-assemble EVM bytecode.

// storeWord writes value to memory[0:32].
func storeWord(value byte) []byte {
	return []byte{0x60, value, 0x60, 0x00, 0x52}
}

// log1Code emits LOG1(memory[0:32], topic).
func log1Code(topic common.Hash) []byte {
	code := append([]byte{0x7f}, topic.Bytes()...)
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

// callCode calls target with no value, input or output, then discards the result.
func callCode(target common.Address) []byte {
	code := []byte{0x60, 0x00, 0x60, 0x00, 0x60, 0x00, 0x60, 0x00, 0x60, 0x00, 0x73}
	code = append(code, target.Bytes()...)
	return append(code, 0x5a, 0xf1, 0x50)
}

func assemble(parts ...[]byte) []byte {
	var code []byte
	for _, part := range parts {
		code = append(code, part...)
	}
	return code
}

// emitterCode emits one LOG1 carrying the word 0x2a and returns that word.
func emitterCode() []byte {
	return assemble(storeWord(0x2a), log1Code(fixtureTopic), returnWord())
}
