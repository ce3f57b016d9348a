package chain

import (
	"context"
	"math"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core"
	"github.com/crytic/medusa-geth/core/tracing"
	"github.com/crytic/medusa-geth/core/vm"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/chain/state"
	"github.com/shadow-hq/shadow/chain/types"
	"github.com/shadow-hq/shadow/logging"
	"golang.org/x/exp/slices"
)

// GasMode describes how gas is priced and limited when a historical transaction is re-executed.
type GasMode string

const (
	// GasModeTransaction executes with the transaction's own gas limit and effective gas price.
	GasModeTransaction GasMode = "transaction"
	// GasModeUnlimited executes with a zero gas price and the block gas limit, so the sender's funds and gas limit
	// never bound execution.
	GasModeUnlimited GasMode = "unlimited"
)

// ParseGasMode converts a string into a GasMode. An empty string selects GasModeTransaction.
func ParseGasMode(mode string) (GasMode, error) {
	switch GasMode(mode) {
	case "", GasModeTransaction:
		return GasModeTransaction, nil
	case GasModeUnlimited:
		return GasModeUnlimited, nil
	default:
		return "", errors.Errorf("unknown gas mode %q (expected %q or %q)", mode, GasModeTransaction, GasModeUnlimited)
	}
}

// Executor re-executes historical transactions on the EVM over a state view. It holds no state between
// executions and may be used concurrently.
type Executor struct {
	gasMode GasMode
	logger  *logging.Logger
}

// NewExecutor returns an Executor using the given gas mode.
func NewExecutor(gasMode GasMode) *Executor {
	if gasMode == "" {
		gasMode = GasModeTransaction
	}
	return &Executor{
		gasMode: gasMode,
		logger:  logging.GlobalLogger.NewSubLogger("module", logging.EXECUTION_SERVICE),
	}
}

// GasMode returns the gas mode used by the Executor.
func (e *Executor) GasMode() GasMode {
	return e.gasMode
}

// Execute runs msg inside the block described by env, over a fresh StateDB which reads through view. Nothing is
// written back to view, so the same view may back any number of executions.
//
// A message the EVM refuses to run yields an ExecutionError. State the view could not serve yields a
// state.StateFetchError, even when the EVM carried on with zero values. A reverting message is not an error: its
// trace reports Success == false.
func (e *Executor) Execute(ctx context.Context, msg *types.ReplayMessage, env *types.BlockEnvironment, view state.StateView) (*types.ExecutionTrace, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	chainConfig, err := ChainConfigForID(env.ChainID)
	if err != nil {
		return nil, err
	}

	stateDB, provider, err := state.NewStateDB(view)
	if err != nil {
		return nil, err
	}

	// Transactions earlier in the block may have raised the sender's nonce past the forked value.
	stateDB.SetNonce(msg.From, msg.Nonce, tracing.NonceChangeUnspecified)

	hashes := &blockHashSource{view: view}
	blockContext := newReplayBlockContext(env, chainConfig, hashes)
	tracer := newExecutionTracer()

	evm := vm.NewEVM(blockContext, stateDB, chainConfig, vm.Config{
		Tracer:    tracer.hooks(),
		NoBaseFee: true,
		ConfigExtensions: &vm.ConfigExtensions{
			AdditionalPrecompiles:    make(map[common.Address]vm.PrecompiledContract),
			ContractAddressOverrides: make(map[common.Hash]common.Address),
		},
	})

	stateDB.SetTxContext(msg.TxHash, int(msg.TxIndex))
	coreMsg := msg.ToCoreMessage(env.BaseFee(), e.gasMode == GasModeUnlimited, env.GasLimit())

	// Fund the gas pool, so the message is never bound by the gas other transactions used in the block.
	gasPool := new(core.GasPool).AddGas(math.MaxUint64)
	result, err := core.ApplyMessage(evm, coreMsg, gasPool)

	// Fetch errors come first: an unreadable balance surfaces from the EVM as insufficient funds.
	if fetchErr := provider.Err(); fetchErr != nil {
		return nil, errors.WithStack(fetchErr)
	}
	if hashErr := hashes.Err(); hashErr != nil {
		return nil, errors.WithStack(hashErr)
	}
	if err != nil {
		return nil, newExecutionError(msg.TxHash, err)
	}

	trace := &types.ExecutionTrace{
		ReturnData:        slices.Clone(result.ReturnData),
		Success:           !result.Failed(),
		Logs:              types.NewLogsFromGethLogs(stateDB.GetLogs(msg.TxHash, env.Number(), common.Hash{})),
		GasUsed:           result.UsedGas,
		ExecutedAddresses: tracer.Addresses(),
	}
	if result.Err != nil {
		trace.Err = result.Err.Error()
	}

	e.logger.Debug("Executed ", msg.TxHash.Hex(), " at block ", env.Number(), logging.StructuredLogInfo{
		"success": trace.Success,
		"gasUsed": trace.GasUsed,
		"logs":    len(trace.Logs),
	})
	return trace, nil
}
