package chain

import (
	"fmt"

	"github.com/crytic/medusa-geth/common"
)

// ExecutionError describes a message the EVM refused to execute at all, such as one whose intrinsic gas is too low or
// whose sender cannot pay for it. Reverts and other VM-level failures are not ExecutionErrors; they produce an
// unsuccessful trace instead.
type ExecutionError struct {
	// TxHash is the hash of the rejected transaction.
	TxHash common.Hash

	// Reason is the EVM's rejection text.
	Reason string

	// Err is the rejection returned by the EVM.
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution of transaction %s was rejected: %s", e.TxHash.Hex(), e.Reason)
}

// Unwrap returns the EVM's rejection, so callers may match it against core errors such as core.ErrIntrinsicGas.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func newExecutionError(txHash common.Hash, err error) *ExecutionError {
	return &ExecutionError{TxHash: txHash, Reason: err.Error(), Err: err}
}
