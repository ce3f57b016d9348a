package replay

import (
	"context"

	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/chain"
	"github.com/shadow-hq/shadow/chain/state"
	"github.com/shadow-hq/shadow/chain/types"
	"github.com/shadow-hq/shadow/group"
	"github.com/shadow-hq/shadow/logging"
	"github.com/shadow-hq/shadow/logging/colors"
	"github.com/shadow-hq/shadow/shadow"
	"github.com/shadow-hq/shadow/utils"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// Engine replays historical transactions twice, once against the original code and once with a contract group's
// shadow bytecode substituted, and compares the results.
type Engine struct {
	source   ChainSource
	forks    *state.ForkManager
	executor *chain.Executor

	// Events are published as replays progress.
	Events EngineEvents

	logger *logging.Logger
}

// NewEngine creates an Engine. Transactions are fetched from source, state is forked through forks and messages run
// on executor.
func NewEngine(source ChainSource, forks *state.ForkManager, executor *chain.Executor) *Engine {
	return &Engine{
		source:   source,
		forks:    forks,
		executor: executor,
		logger:   logging.GlobalLogger.NewSubLogger("module", logging.REPLAY_SERVICE),
	}
}

func (e *Engine) enterStep(ctx context.Context, step ReplayStep, txHash common.Hash) error {
	if err := utils.ContextError(ctx); err != nil {
		return errors.WithStack(err)
	}
	e.logger.Trace("replay of ", txHash.Hex(), " entering step ", string(step))
	return e.Events.ReplayStep.Publish(ReplayStepEvent{Step: step, TxHash: txHash})
}

// Replay re-executes txHash against the state it originally saw, first with the original code and then with every
// address of g running its shadow bytecode, and returns the comparison. A shadow execution that diverges from the
// baseline is reported through DiffReport.BehaviorPreserved and DiffReport.Divergence, not as an error.
func (e *Engine) Replay(ctx context.Context, txHash common.Hash, g *group.ContractGroup) (*DiffReport, error) {
	if err := e.enterStep(ctx, StepFetch, txHash); err != nil {
		return nil, err
	}
	info, err := e.source.GetTransaction(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if info.BlockNumber == 0 {
		return nil, errors.WithStack(shadow.NewInvalidTransactionError("transaction %s is in the genesis block, which has no parent state", txHash.Hex()))
	}
	receipt, err := e.source.GetReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	header, err := e.source.GetBlock(ctx, info.BlockNumber)
	if err != nil {
		return nil, err
	}
	chainID, err := e.source.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	msg := types.NewReplayMessage(info.Tx, info.From, info.BlockNumber, info.Index)
	env := types.NewBlockEnvironment(header, chainID)

	if err = e.enterStep(ctx, StepFork, txHash); err != nil {
		return nil, err
	}
	snapshot, err := e.forks.ForkBeforeTransaction(ctx, info.BlockNumber, info.Index, txHash)
	if err != nil {
		return nil, err
	}
	defer snapshot.Close()

	targets := e.targets(g, chainID.Uint64())
	if err = snapshot.Prefetch(ctx, prefetchAddresses(msg, targets)); err != nil {
		return nil, err
	}

	if err = e.enterStep(ctx, StepBaseline, txHash); err != nil {
		return nil, err
	}
	baseline, err := e.executor.Execute(ctx, msg, env, snapshot)
	if err != nil {
		return nil, err
	}

	if err = e.enterStep(ctx, StepResolve, txHash); err != nil {
		return nil, err
	}
	overrides := group.Resolve(g, targets)

	if err = e.enterStep(ctx, StepShadow, txHash); err != nil {
		return nil, err
	}
	shadowTrace, err := e.executor.Execute(ctx, msg, env, state.ApplyOverrides(snapshot, overrides))
	if err != nil {
		return nil, err
	}

	if err = e.enterStep(ctx, StepDiff, txHash); err != nil {
		return nil, err
	}
	report := ComputeDiff(baseline, shadowTrace)
	report.TxHash = txHash
	report.BlockNumber = info.BlockNumber
	report.Overrides = overrides.Addresses()
	report.ID = NewReportID(txHash, info.BlockNumber, overrides)

	if receipt != nil && len(receipt.Logs) != len(baseline.Logs) {
		report.ReceiptMismatch = true
		e.logger.Warn(
			"baseline of ", txHash.Hex(), " emitted ", len(baseline.Logs), " logs but the receipt holds ", len(receipt.Logs),
			", the replay may be missing the state of earlier transactions in block ", info.BlockNumber,
		)
	}
	if divergence := report.Divergence(); divergence != nil {
		e.logger.Warn(colors.Red, "shadow execution of ", txHash.Hex(), " diverged: ", divergence.String(), colors.Reset)
	} else {
		e.logger.Info(colors.Green, colors.CHECK_MARK, colors.Reset, " ", txHash.Hex(), " preserved behavior, ", len(report.AddedLogs), " log(s) added")
	}

	if err = e.Events.ReplayCompleted.Publish(ReplayCompletedEvent{Report: report}); err != nil {
		return nil, err
	}
	return report, nil
}

// targets returns the group addresses bound on the given chain, in binding order.
func (e *Engine) targets(g *group.ContractGroup, chainID uint64) []common.Address {
	if g == nil {
		return nil
	}
	targets := make([]common.Address, 0, len(g.Bindings))
	for _, binding := range g.Bindings {
		if binding.ChainID != 0 && binding.ChainID != chainID {
			e.logger.Debug("skipping ", binding.Address.Hex(), ", it is bound on chain ", binding.ChainID)
			continue
		}
		targets = append(targets, binding.Address)
	}
	return targets
}

// prefetchAddresses returns the sender, the recipient and the targets without duplicates.
func prefetchAddresses(msg *types.ReplayMessage, targets []common.Address) []common.Address {
	addrs := []common.Address{msg.From}
	if msg.To != nil {
		addrs = append(addrs, *msg.To)
	}
	for _, target := range targets {
		if !slices.Contains(addrs, target) {
			addrs = append(addrs, target)
		}
	}
	return addrs
}

// ReplayBatch replays independent transactions in parallel, at most parallelism at a time, and returns their
// reports in input order. Each replay forks its own snapshot. The first failure cancels the remaining replays.
func (e *Engine) ReplayBatch(ctx context.Context, txHashes []common.Hash, g *group.ContractGroup, parallelism int) ([]*DiffReport, error) {
	if parallelism < 1 {
		parallelism = 1
	}
	// Disk caches for one block share a file, which only one snapshot may hold open.
	if e.forks.Config().DiskCache && parallelism > 1 {
		e.logger.Warn("the state disk cache is enabled, replaying one transaction at a time")
		parallelism = 1
	}

	reports := make([]*DiffReport, len(txHashes))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)
	for i, txHash := range txHashes {
		eg.Go(func() error {
			report, err := e.Replay(ctx, txHash, g)
			if err != nil {
				return errors.Wrapf(err, "replay of %s failed", txHash.Hex())
			}
			reports[i] = report
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
