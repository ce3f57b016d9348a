package state

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/shadow-hq/shadow/chain/state/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDelta(t *testing.T) {
	tests := []struct {
		raw     string
		value   string
		changed bool
		fails   bool
	}{
		{raw: `"="`},
		{raw: `null`},
		{raw: ``},
		{raw: `{"+": "0x10"}`, value: "0x10", changed: true},
		{raw: `{"*": {"from": "0x1", "to": "0x2"}}`, value: "0x2", changed: true},
		{raw: `{"-": "0x5"}`, value: "", changed: true},
		{raw: `"?"`, fails: true},
		{raw: `{}`, fails: true},
		{raw: `[1]`, fails: true},
	}
	for _, test := range tests {
		value, changed, err := parseDelta(json.RawMessage(test.raw))
		if test.fails {
			assert.Error(t, err, test.raw)
			continue
		}
		require.NoError(t, err, test.raw)
		assert.Equal(t, test.value, value, test.raw)
		assert.Equal(t, test.changed, changed, test.raw)
	}
}

func TestParseAccountDiffRemovals(t *testing.T) {
	diff, err := parseAccountDiff(rpcAccountDiff{
		Balance: json.RawMessage(`{"-": "0x10"}`),
		Nonce:   json.RawMessage(`{"-": "0x1"}`),
		Code:    json.RawMessage(`{"-": "0x6000"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(0), diff.Balance)
	require.NotNil(t, diff.Nonce)
	assert.Zero(t, *diff.Nonce)
	require.NotNil(t, diff.Code)
	assert.Empty(t, *diff.Code)

	_, err = parseAccountDiff(rpcAccountDiff{Balance: json.RawMessage(`{"+": "zz"}`)})
	assert.Error(t, err)
}

func TestBlockStateDiffAccumulation(t *testing.T) {
	addr := common.HexToAddress("0xaa")
	slot := common.HexToHash("0x01")
	nonce := uint64(3)
	code := []byte{0x60}
	diffs := []TransactionStateDiff{
		{TxHash: common.HexToHash("0x01"), Accounts: map[common.Address]*AccountDiff{
			addr: {Balance: uint256.NewInt(5), Storage: map[common.Hash]common.Hash{slot: common.HexToHash("0x05")}},
		}},
		{TxHash: common.HexToHash("0x02"), Accounts: map[common.Address]*AccountDiff{
			addr: {Nonce: &nonce, Code: &code, Storage: map[common.Hash]common.Hash{slot: common.HexToHash("0x06")}},
		}},
		{TxHash: common.HexToHash("0x03"), Accounts: map[common.Address]*AccountDiff{
			addr: {Balance: uint256.NewInt(99)},
		}},
	}

	// Up to (not including) index 2
	accumulated := NewBlockStateDiff(diffs, 2, common.Hash{})
	assert.Equal(t, 1, accumulated.Len())
	base := &cache.StateObject{Balance: uint256.NewInt(1), Nonce: 1}
	obj := accumulated.applyToAccount(addr, base)
	assert.Equal(t, uint256.NewInt(5), obj.Balance)
	assert.EqualValues(t, 3, obj.Nonce)
	assert.Equal(t, code, obj.Code)
	assert.EqualValues(t, 1, base.Nonce)
	value, ok := accumulated.storageAt(addr, slot)
	assert.True(t, ok)
	assert.Equal(t, common.HexToHash("0x06"), value)

	// The target hash wins over a larger index
	accumulated = NewBlockStateDiff(diffs, 3, common.HexToHash("0x02"))
	obj = accumulated.applyToAccount(addr, base)
	assert.EqualValues(t, 1, obj.Nonce)
	assert.Equal(t, uint256.NewInt(5), obj.Balance)

	// Untouched accounts and slots fall through
	untouched := common.HexToAddress("0xbb")
	assert.Same(t, base, accumulated.applyToAccount(untouched, base))
	_, ok = accumulated.storageAt(untouched, slot)
	assert.False(t, ok)
}

func TestIsMethodUnsupported(t *testing.T) {
	assert.False(t, IsMethodUnsupported(nil))
	assert.False(t, IsMethodUnsupported(errors.New("connection reset by peer")))
	assert.True(t, IsMethodUnsupported(errors.New("the method trace_replayBlockTransactions does not exist/is not available")))
	assert.True(t, IsMethodUnsupported(errors.New("Method not found")))
	assert.True(t, IsMethodUnsupported(errors.New("Unsupported method: trace_replayBlockTransactions")))
	assert.True(t, IsMethodUnsupported(&StateFetchError{Op: "trace_replayBlockTransactions", Err: errors.New("method not supported")}))
	assert.True(t, IsMethodUnsupported(&StateFetchError{Op: "trace_replayBlockTransactions", Err: methodNotFoundError{}}))

	// Missing blocks and pruned state are fetch failures, not a missing method
	assert.False(t, IsMethodUnsupported(&StateFetchError{Op: "trace_replayBlockTransactions", Err: errors.New("header not found")}))
	assert.False(t, IsMethodUnsupported(&StateFetchError{
		Op:  "trace_replayBlockTransactions",
		Err: errors.New("missing trie node 0x5ee4 (path ) state 0x5ee4 is not available"),
	}))
	assert.False(t, IsMethodUnsupported(errors.New("block 0x10 not found")))
}

// methodNotFoundError is a JSON-RPC error carrying the method-not-found code with an uninformative message.
type methodNotFoundError struct{}

func (methodNotFoundError) Error() string  { return "rpc error" }
func (methodNotFoundError) ErrorCode() int { return -32601 }
