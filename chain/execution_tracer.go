package chain

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core/tracing"
	"github.com/crytic/medusa-geth/core/vm"
	"golang.org/x/exp/slices"
)

// executionTracer records the addresses whose code is entered while a message executes.
type executionTracer struct {
	// addresses holds every entered address, in first-entry order.
	addresses []common.Address

	// seen indexes addresses.
	seen map[common.Address]struct{}
}

// newExecutionTracer returns an executionTracer with nothing recorded.
func newExecutionTracer() *executionTracer {
	return &executionTracer{
		addresses: make([]common.Address, 0),
		seen:      make(map[common.Address]struct{}),
	}
}

// hooks returns the tracing.Hooks which feed this tracer.
func (t *executionTracer) hooks() *tracing.Hooks {
	return &tracing.Hooks{
		OnEnter: t.OnEnter,
	}
}

// OnEnter records the code address of a new call frame. For DELEGATECALL and CALLCODE frames, to is the address whose
// code runs. Self-destruct frames only move funds to the beneficiary and are skipped.
func (t *executionTracer) OnEnter(depth int, typ byte, from common.Address, to common.Address, input []byte, gas uint64, value *big.Int) {
	if vm.OpCode(typ) == vm.SELFDESTRUCT {
		return
	}
	if _, ok := t.seen[to]; ok {
		return
	}
	t.seen[to] = struct{}{}
	t.addresses = append(t.addresses, to)
}

// Addresses returns a copy of the recorded addresses.
func (t *executionTracer) Addresses() []common.Address {
	return slices.Clone(t.addresses)
}
