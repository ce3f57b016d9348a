package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/chain"
	"github.com/shadow-hq/shadow/chain/state"
	"github.com/shadow-hq/shadow/cmd/exitcodes"
	"github.com/shadow-hq/shadow/config"
	"github.com/shadow-hq/shadow/group"
	"github.com/shadow-hq/shadow/logging/colors"
	"github.com/shadow-hq/shadow/replay"
	"github.com/shadow-hq/shadow/utils"
	"github.com/spf13/cobra"
)

// replayCmd represents the command provider for replays
var replayCmd = &cobra.Command{
	Use:   "replay <tx-hash>...",
	Short: "Replays transactions against a contract group's shadow contracts",
	Long: `Replays historical transactions twice, once with the original code and once with the contract group's shadow
bytecode, and reports the logs the shadow contracts add along with any change in behavior`,
	Args:              cmdValidateReplayArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunReplay,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the replay command
	err := addReplayFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the replay command", err)
	}

	// Add the replay command and its associated flags to the root command
	rootCmd.AddCommand(replayCmd)
}

// cmdValidateReplayArgs makes sure that every positional argument is a transaction hash
func cmdValidateReplayArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
		err = fmt.Errorf("replay requires at least one transaction hash")
		cmdLogger.Error("Failed to validate args to the replay command", err)
		return err
	}
	if _, err := parseTransactionHashes(args); err != nil {
		cmdLogger.Error("Failed to validate args to the replay command", err)
		return err
	}
	return nil
}

// parseTransactionHashes parses transaction hashes, rejecting duplicates.
func parseTransactionHashes(args []string) ([]common.Hash, error) {
	hashes := make([]common.Hash, 0, len(args))
	seen := make(map[common.Hash]struct{}, len(args))
	for _, arg := range args {
		hash, err := utils.HexStringToHash(arg)
		if err != nil {
			return nil, err
		}
		if _, duplicate := seen[hash]; duplicate {
			return nil, errors.Errorf("transaction %s was provided more than once", hash.Hex())
		}
		seen[hash] = struct{}{}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

// cmdRunReplay executes the CLI replay command. Reports are logged, and optionally written to a JSON file. The command
// exits with exitcodes.ExitCodeDivergence if any shadow execution diverged from its baseline.
func cmdRunReplay(cmd *cobra.Command, args []string) error {
	projectConfig, _, err := readProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	err = updateProjectConfigWithReplayFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	if projectConfig.RPC.URL == "" {
		err = errors.New("no rpc url was configured, provide one with --rpc-url or in the project configuration")
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	if err = projectConfig.Validate(); err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	txHashes, err := parseTransactionHashes(args)
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	groupDirectory, err := cmd.Flags().GetString("group")
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}

	// Loggers of the replay components derive from the configured global logger
	closeLogs, err := configureLogging(projectConfig.Logging)
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	defer closeLogs()

	g, err := group.LoadContractGroup(groupDirectory)
	if err != nil {
		cmdLogger.Error("Failed to load the contract group", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	cmdLogger.Info("Loaded contract group ", colors.Bold, g.Metadata.DisplayName, colors.Reset, " with ", len(g.Bindings), " contract(s)")

	// Stop replaying on keyboard interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine, closeEngine, err := newReplayEngine(ctx, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to connect to the remote node", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	defer closeEngine()

	engine.Events.ReplayStep.Subscribe(func(event replay.ReplayStepEvent) error {
		cmdLogger.Debug("replay of ", event.TxHash.Hex(), ": ", string(event.Step))
		return nil
	})

	reports, err := engine.ReplayBatch(ctx, txHashes, g, projectConfig.Replay.Parallelism)
	if err != nil {
		cmdLogger.Error("Failed to replay the transactions", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	var abis []*abi.ABI
	if projectConfig.Replay.DecodeLogs {
		abis = g.ABIs()
	}
	diverged := 0
	for _, report := range reports {
		cmdLogger.Info(report.Log(abis))
		if !report.BehaviorPreserved {
			diverged++
		}
	}

	if outputPath != "" {
		if err = utils.WriteJSONFile(outputPath, reports); err != nil {
			cmdLogger.Error("Failed to write the replay reports", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
		}
		cmdLogger.Info("Reports written to: ", colors.Bold, outputPath, colors.Reset)
	}

	if diverged > 0 {
		err = errors.Errorf("%d of %d replayed transaction(s) diverged from their original behavior", diverged, len(reports))
		cmdLogger.Error(colors.RedBold, err.Error(), colors.Reset)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeDivergence)
	}
	cmdLogger.Info(colors.GreenBold, colors.CHECK_MARK, " all ", len(reports), " replayed transaction(s) preserved their original behavior", colors.Reset)
	return nil
}

// newReplayEngine connects to the remote node and wires a replay.Engine for projectConfig. The returned function
// closes the connections.
func newReplayEngine(ctx context.Context, projectConfig *config.ProjectConfig) (*replay.Engine, func(), error) {
	gasMode, err := chain.ParseGasMode(projectConfig.Replay.GasMode)
	if err != nil {
		return nil, nil, err
	}
	backend, err := state.NewRPCBackend(projectConfig.RPC.URL, projectConfig.RPC.PoolSize, projectConfig.RPC.ClientPoolConfig())
	if err != nil {
		return nil, nil, err
	}
	source, err := replay.DialRPCChainSource(ctx, projectConfig.RPC.URL, projectConfig.RPC.RequestTimeout())
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	forks := state.NewForkManager(backend, projectConfig.ForkConfig())
	engine := replay.NewEngine(source, forks, chain.NewExecutor(gasMode))
	return engine, func() {
		source.Close()
		backend.Close()
	}, nil
}
