package types

import (
	"bytes"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
)

// ExecutionTrace is the observable outcome of executing one message: what it returned, whether it succeeded, which
// logs it emitted and how much gas it used. A trace is never mutated after it is produced.
type ExecutionTrace struct {
	// ReturnData is the data returned by the top-level call, or the revert data if it failed.
	ReturnData hexutil.Bytes `json:"returnData"`

	// Success indicates the top-level call did not revert or halt with an error.
	Success bool `json:"success"`

	// Logs are the logs emitted by the execution, in emission order. Reverted frames contribute no logs.
	Logs []Log `json:"logs"`

	// GasUsed is the gas consumed by the execution, after refunds.
	GasUsed uint64 `json:"gasUsed"`

	// Err is the text of the VM error which ended the execution, if any.
	Err string `json:"error,omitempty"`

	// ExecutedAddresses lists every address whose code was entered, in first-entry order.
	ExecutedAddresses []common.Address `json:"executedAddresses"`
}

// EquivalentTo reports whether two traces have identical return data, success and logs. Gas is not compared.
func (t *ExecutionTrace) EquivalentTo(other *ExecutionTrace) bool {
	return bytes.Equal(t.ReturnData, other.ReturnData) && t.Success == other.Success && LogsEqual(t.Logs, other.Logs)
}
