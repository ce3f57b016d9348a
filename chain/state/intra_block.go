package state

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/chain/state/cache"
	"github.com/shadow-hq/shadow/chain/state/rpc"
)

// BlockTraceSource replays the transactions of a block on the remote node and reports the state each one changed.
type BlockTraceSource interface {
	ReplayBlockStateDiffs(ctx context.Context, block uint64) ([]TransactionStateDiff, error)
}

var _ BlockTraceSource = (*RPCBackend)(nil)

// TransactionStateDiff is the post-state a single transaction left behind, for every account it touched.
type TransactionStateDiff struct {
	TxHash   common.Hash
	Accounts map[common.Address]*AccountDiff
}

// AccountDiff holds the fields of one account changed by a transaction. A nil field is unchanged.
type AccountDiff struct {
	Balance *uint256.Int
	Nonce   *uint64
	Code    *[]byte
	Storage map[common.Hash]common.Hash
}

// BlockStateDiff is the accumulated post-state of a prefix of a block's transactions.
type BlockStateDiff struct {
	accounts map[common.Address]*AccountDiff
}

// NewBlockStateDiff accumulates the diffs of every transaction preceding the target transaction, identified by its
// hash or, when the hash is zero or not found, by its index. Later transactions overwrite earlier values.
func NewBlockStateDiff(diffs []TransactionStateDiff, txIndex uint, txHash common.Hash) *BlockStateDiff {
	accumulated := &BlockStateDiff{accounts: make(map[common.Address]*AccountDiff)}
	for i, diff := range diffs {
		if uint(i) >= txIndex || (txHash != (common.Hash{}) && diff.TxHash == txHash) {
			break
		}
		for addr, accountDiff := range diff.Accounts {
			accumulated.merge(addr, accountDiff)
		}
	}
	return accumulated
}

func (d *BlockStateDiff) merge(addr common.Address, diff *AccountDiff) {
	existing, ok := d.accounts[addr]
	if !ok {
		existing = &AccountDiff{Storage: make(map[common.Hash]common.Hash)}
		d.accounts[addr] = existing
	}
	if diff.Balance != nil {
		existing.Balance = diff.Balance
	}
	if diff.Nonce != nil {
		existing.Nonce = diff.Nonce
	}
	if diff.Code != nil {
		existing.Code = diff.Code
	}
	for slot, value := range diff.Storage {
		existing.Storage[slot] = value
	}
}

// Len returns the number of accounts touched.
func (d *BlockStateDiff) Len() int {
	return len(d.accounts)
}

// applyToAccount returns obj with the accumulated changes of addr applied, or obj itself when addr is untouched.
func (d *BlockStateDiff) applyToAccount(addr common.Address, obj *cache.StateObject) *cache.StateObject {
	diff, ok := d.accounts[addr]
	if !ok || (diff.Balance == nil && diff.Nonce == nil && diff.Code == nil) {
		return obj
	}
	updated := *obj
	if diff.Balance != nil {
		updated.Balance = diff.Balance
	}
	if diff.Nonce != nil {
		updated.Nonce = *diff.Nonce
	}
	if diff.Code != nil {
		updated.Code = *diff.Code
	}
	return &updated
}

func (d *BlockStateDiff) storageAt(addr common.Address, slot common.Hash) (common.Hash, bool) {
	diff, ok := d.accounts[addr]
	if !ok {
		return common.Hash{}, false
	}
	value, ok := diff.Storage[slot]
	return value, ok
}

// rpcTransactionTrace is one element of a trace_replayBlockTransactions result.
type rpcTransactionTrace struct {
	TransactionHash common.Hash                       `json:"transactionHash"`
	StateDiff       map[common.Address]rpcAccountDiff `json:"stateDiff"`
}

type rpcAccountDiff struct {
	Balance json.RawMessage                 `json:"balance"`
	Nonce   json.RawMessage                 `json:"nonce"`
	Code    json.RawMessage                 `json:"code"`
	Storage map[common.Hash]json.RawMessage `json:"storage"`
}

// ReplayBlockStateDiffs replays a block with trace_replayBlockTransactions and returns the state diff of every
// transaction in block order.
func (q *RPCBackend) ReplayBlockStateDiffs(ctx context.Context, block uint64) ([]TransactionStateDiff, error) {
	method := "trace_replayBlockTransactions"
	var traces []rpcTransactionTrace
	if err := q.clientPool.ExecuteRequestBlocking(ctx, &traces, method, hexutil.Uint64(block), []string{"stateDiff"}); err != nil {
		return nil, &StateFetchError{Op: method, Block: block, Err: err}
	}
	diffs, err := parseTransactionTraces(traces)
	if err != nil {
		return nil, &StateFetchError{Op: method, Block: block, Err: err}
	}
	return diffs, nil
}

func parseTransactionTraces(traces []rpcTransactionTrace) ([]TransactionStateDiff, error) {
	diffs := make([]TransactionStateDiff, 0, len(traces))
	for _, trace := range traces {
		diff := TransactionStateDiff{
			TxHash:   trace.TransactionHash,
			Accounts: make(map[common.Address]*AccountDiff, len(trace.StateDiff)),
		}
		for addr, raw := range trace.StateDiff {
			accountDiff, err := parseAccountDiff(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid state diff for %s in transaction %s", addr.Hex(), trace.TransactionHash.Hex())
			}
			diff.Accounts[addr] = accountDiff
		}
		diffs = append(diffs, diff)
	}
	return diffs, nil
}

func parseAccountDiff(raw rpcAccountDiff) (*AccountDiff, error) {
	diff := &AccountDiff{Storage: make(map[common.Hash]common.Hash, len(raw.Storage))}

	if value, ok, err := parseDelta(raw.Balance); err != nil {
		return nil, errors.Wrap(err, "balance")
	} else if ok {
		diff.Balance = uint256.NewInt(0)
		if value != "" {
			var balance hexutil.Big
			if err = balance.UnmarshalText([]byte(value)); err != nil {
				return nil, errors.Wrap(err, "balance")
			}
			converted, overflow := uint256.FromBig(balance.ToInt())
			if overflow {
				return nil, errors.New("balance overflows 256 bits")
			}
			diff.Balance = converted
		}
	}

	if value, ok, err := parseDelta(raw.Nonce); err != nil {
		return nil, errors.Wrap(err, "nonce")
	} else if ok {
		var nonce hexutil.Uint64
		if value != "" {
			if err = nonce.UnmarshalText([]byte(value)); err != nil {
				return nil, errors.Wrap(err, "nonce")
			}
		}
		n := uint64(nonce)
		diff.Nonce = &n
	}

	if value, ok, err := parseDelta(raw.Code); err != nil {
		return nil, errors.Wrap(err, "code")
	} else if ok {
		code := []byte{}
		if value != "" && value != "0x" {
			if code, err = hexutil.Decode(value); err != nil {
				return nil, errors.Wrap(err, "code")
			}
		}
		diff.Code = &code
	}

	for slot, rawValue := range raw.Storage {
		value, ok, err := parseDelta(rawValue)
		if err != nil {
			return nil, errors.Wrapf(err, "storage slot %s", slot.Hex())
		}
		if ok {
			diff.Storage[slot] = common.HexToHash(value)
		}
	}
	return diff, nil
}

// parseDelta decodes a parity-style delta: "=" (unchanged), {"+": v} (created), {"-": v} (deleted) or
// {"*": {"from": a, "to": b}} (changed). It returns the post value as a hex string and whether the field changed.
// A deleted value is reported as changed to the empty string, which callers read as zero.
func parseDelta(raw json.RawMessage) (string, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false, nil
	}

	var marker string
	if err := json.Unmarshal(trimmed, &marker); err == nil {
		if marker == "=" {
			return "", false, nil
		}
		return "", false, errors.Errorf("unknown delta marker %q", marker)
	}

	var delta struct {
		Added   *string `json:"+"`
		Removed *string `json:"-,"`
		Changed *struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"*"`
	}
	if err := json.Unmarshal(trimmed, &delta); err != nil {
		return "", false, errors.WithStack(err)
	}
	switch {
	case delta.Added != nil:
		return *delta.Added, true, nil
	case delta.Changed != nil:
		return delta.Changed.To, true, nil
	case delta.Removed != nil:
		return "", true, nil
	default:
		return "", false, errors.Errorf("malformed delta %s", string(trimmed))
	}
}

// IsMethodUnsupported reports whether err means the node does not serve the JSON-RPC method at all, as opposed to
// failing to serve a particular request. Only a method-not-found response, or an error message naming the method as
// missing, qualifies; missing blocks and pruned state do not.
func IsMethodUnsupported(err error) bool {
	if err == nil {
		return false
	}
	if rpc.IsMethodNotFound(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{"method not found", "method not supported", "method not available", "unsupported method"} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return strings.Contains(msg, "the method ") && strings.Contains(msg, "does not exist")
}
