package state

import (
	"fmt"

	"github.com/crytic/medusa-geth/common"
)

// StateFetchError describes state which the remote node could not serve, after any retries were exhausted. It is
// fatal to the operation which needed the state.
type StateFetchError struct {
	// Op is the JSON-RPC method or logical operation which failed.
	Op string

	// Address is the account being read, if any.
	Address *common.Address

	// Slot is the storage slot being read, if any.
	Slot *common.Hash

	// Block is the block number the read was pinned to.
	Block uint64

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *StateFetchError) Error() string {
	msg := fmt.Sprintf("could not fetch state (%s) at block %d", e.Op, e.Block)
	if e.Address != nil {
		msg += fmt.Sprintf(" for account %s", e.Address.Hex())
	}
	if e.Slot != nil {
		msg += fmt.Sprintf(" slot %s", e.Slot.Hex())
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StateFetchError) Unwrap() error {
	return e.Err
}

func newAccountFetchError(op string, addr common.Address, block uint64, err error) *StateFetchError {
	return &StateFetchError{Op: op, Address: &addr, Block: block, Err: err}
}

func newSlotFetchError(op string, addr common.Address, slot common.Hash, block uint64, err error) *StateFetchError {
	return &StateFetchError{Op: op, Address: &addr, Slot: &slot, Block: block, Err: err}
}
