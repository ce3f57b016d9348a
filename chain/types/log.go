package types

import (
	"bytes"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	coreTypes "github.com/crytic/medusa-geth/core/types"
	"golang.org/x/exp/slices"
)

// Log is an event log entry emitted during execution. Two logs are equal when their address, topics and data are
// equal; block and transaction positions are not part of a Log.
type Log struct {
	// Address is the contract which emitted the log.
	Address common.Address `json:"address"`

	// Topics holds the indexed topics. For non-anonymous events, the first topic is the event signature hash.
	Topics []common.Hash `json:"topics"`

	// Data holds the ABI encoded non-indexed values.
	Data hexutil.Bytes `json:"data"`
}

// NewLogFromGethLog copies the structural fields of a geth log.
func NewLogFromGethLog(log *coreTypes.Log) Log {
	return Log{
		Address: log.Address,
		Topics:  slices.Clone(log.Topics),
		Data:    slices.Clone(log.Data),
	}
}

// NewLogsFromGethLogs copies a list of geth logs, preserving order.
func NewLogsFromGethLogs(logs []*coreTypes.Log) []Log {
	converted := make([]Log, len(logs))
	for i, log := range logs {
		converted[i] = NewLogFromGethLog(log)
	}
	return converted
}

// Equal reports whether two logs are structurally identical.
func (l Log) Equal(other Log) bool {
	return l.Address == other.Address && slices.Equal(l.Topics, other.Topics) && bytes.Equal(l.Data, other.Data)
}

// Topic0 returns the first topic of the log, if any.
func (l Log) Topic0() (common.Hash, bool) {
	if len(l.Topics) == 0 {
		return common.Hash{}, false
	}
	return l.Topics[0], true
}

// LogsEqual reports whether two log sequences are structurally identical, in order.
func LogsEqual(a, b []Log) bool {
	return slices.EqualFunc(a, b, func(x, y Log) bool {
		return x.Equal(y)
	})
}
