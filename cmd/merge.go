package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/cmd/exitcodes"
	"github.com/shadow-hq/shadow/compilation"
	"github.com/shadow-hq/shadow/compilation/types"
	"github.com/shadow-hq/shadow/group"
	"github.com/shadow-hq/shadow/logging"
	"github.com/shadow-hq/shadow/logging/colors"
	"github.com/shadow-hq/shadow/replay"
	"github.com/shadow-hq/shadow/shadow"
	"github.com/spf13/cobra"
)

// mergeCmd represents the command provider for merge
var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Validates a shadow build against the original contract and adds it to a contract group",
	Long: `Validates a shadow build against the original build of a deployed contract and records both in a contract
group. The shadow build is compiled from the project unless --shadow provides it.`,
	Args:              cobra.NoArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunMerge,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the merge command
	err := addMergeFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the merge command", err)
	}

	// Add the merge command and its associated flags to the root command
	rootCmd.AddCommand(mergeCmd)
}

// cmdRunMerge executes the CLI merge command
func cmdRunMerge(cmd *cobra.Command, args []string) error {
	projectConfig, configPath, err := readProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the merge command", err)
		return err
	}
	err = updateProjectConfigWithMergeFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the merge command", err)
		return err
	}
	options, err := getMergeOptions(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the merge command", err)
		return err
	}
	closeLogs, err := configureLogging(projectConfig.Logging)
	if err != nil {
		cmdLogger.Error("Failed to run the merge command", err)
		return err
	}
	defer closeLogs()

	original, err := readArtifact(options.originalPath, options.contractName)
	if err != nil {
		cmdLogger.Error("Failed to read the original build", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	contractName := options.contractName
	if contractName == "" {
		contractName = original.Name
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Check the original build against the chain when a node is configured
	if projectConfig.RPC.URL != "" {
		checkOriginalBuild(ctx, projectConfig.RPC.URL, projectConfig.RPC.RequestTimeout(), options, original)
	}

	// Obtain the shadow build, compiling the project when no artifact file was provided
	var shadowBuild *types.CompiledArtifact
	if options.shadowPath != "" {
		shadowBuild, err = readArtifact(options.shadowPath, contractName)
		if err != nil {
			cmdLogger.Error("Failed to read the shadow build", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
		}
	} else {
		artifacts, err := compileProject(ctx, projectConfig, configPath)
		if err != nil {
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
		}
		shadowBuild, err = compilation.FindArtifact(artifacts, contractName)
		if err != nil {
			cmdLogger.Error("Failed to find the shadow build", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
		}
	}

	// Create the group on first use
	if !group.IsContractGroup(options.groupDirectory) {
		if _, err = group.InitContractGroup(options.groupDirectory, filepath.Base(options.groupDirectory), nil); err != nil {
			cmdLogger.Error("Failed to create the contract group", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
		}
	}

	merged, err := group.AddContract(options.groupDirectory, options.address, options.chainID, original, shadowBuild)
	if err != nil {
		var validationErr *shadow.ValidationError
		if errors.As(err, &validationErr) {
			cmdLogger.Error(colors.RedBold, colors.CROSS_MARK, " The shadow build of ", shadowBuild.Name,
				" does not preserve the original contract", colors.Reset, err)
		} else {
			cmdLogger.Error("Failed to add the contract to the group", err)
		}
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	cmdLogger.Info(describeMerge(merged, options.address))

	if options.export {
		g, err := group.LoadContractGroup(options.groupDirectory)
		if err != nil {
			cmdLogger.Error("Failed to load the contract group", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
		}
		overridesPath := filepath.Join(options.groupDirectory, group.OverridesFileName)
		if err = g.WriteOverridesFile(overridesPath); err != nil {
			cmdLogger.Error("Failed to export the overrides", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
		}
		cmdLogger.Info("Overrides exported to: ", colors.Bold, overridesPath, colors.Reset)
	}
	return nil
}

// checkOriginalBuild logs whether the original build is the code deployed at the merged address. A mismatch is only
// a warning, since immutables and linked libraries change deployed code.
func checkOriginalBuild(ctx context.Context, url string, timeout time.Duration, options *mergeOptions, original *types.CompiledArtifact) {
	source, err := replay.DialRPCChainSource(ctx, url, timeout)
	if err != nil {
		cmdLogger.Warn("Could not check the original build against the deployed code", err)
		return
	}
	defer source.Close()

	if options.chainID != 0 {
		chainID, err := source.ChainID(ctx)
		if err != nil {
			cmdLogger.Warn("Could not check the original build against the deployed code", err)
			return
		}
		if chainID.Uint64() != options.chainID {
			cmdLogger.Warn("The node serves chain ", chainID, " instead of ", options.chainID, ", the original build was not checked")
			return
		}
	}

	if err = verifyOriginalBuild(ctx, source, options.address, original); err != nil {
		cmdLogger.Warn(colors.Yellow, "The original build could not be verified", colors.Reset, err)
		return
	}
	cmdLogger.Info(colors.Green, colors.CHECK_MARK, colors.Reset, " The original build of ", original.Name, " matches the code deployed at ", options.address.Hex())
}

// codeReader reads the code currently deployed at an address.
type codeReader interface {
	GetCode(ctx context.Context, address common.Address) ([]byte, error)
}

// verifyOriginalBuild returns an error unless the original build, metadata aside, is the code deployed at address.
func verifyOriginalBuild(ctx context.Context, reader codeReader, address common.Address, original *types.CompiledArtifact) error {
	code, err := reader.GetCode(ctx, address)
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return errors.Errorf("no contract is deployed at %s", address.Hex())
	}
	if !original.MatchesDeployedCode(code) {
		return errors.Errorf("the original build of %s differs from the code deployed at %s", original.Name, address.Hex())
	}
	return nil
}

// readArtifact reads a compiled artifact from a JSON file holding either a single artifact or a list of them, as
// written by `shadow compile --out`. A list is searched for name.
func readArtifact(path string, name string) (*types.CompiledArtifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if trimmed := strings.TrimSpace(string(b)); strings.HasPrefix(trimmed, "[") {
		var artifacts []*types.CompiledArtifact
		if err = json.Unmarshal(b, &artifacts); err != nil {
			return nil, errors.Wrapf(err, "could not parse %s", path)
		}
		if name == "" && len(artifacts) == 1 {
			return artifacts[0], nil
		}
		if name == "" {
			return nil, errors.Errorf("%s holds %d artifacts, select one with --contract", path, len(artifacts))
		}
		return compilation.FindArtifact(artifacts, name)
	}

	var artifact types.CompiledArtifact
	if err = json.Unmarshal(b, &artifact); err != nil {
		return nil, errors.Wrapf(err, "could not parse %s", path)
	}
	return &artifact, nil
}

// describeMerge summarizes what a shadow build adds to the original contract.
func describeMerge(merged *shadow.ShadowArtifact, address common.Address) *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	buffer.Append(colors.GreenBold, colors.CHECK_MARK, " ", merged.Name, " (", address.Hex(), ") preserves the original contract", colors.Reset)
	if len(merged.AddedEvents) > 0 {
		buffer.Append("\nAdded events:")
		for _, event := range merged.AddedEvents {
			buffer.Append("\n  ", event.Sig)
		}
	}
	if len(merged.AddedSelectors) > 0 {
		buffer.Append("\nAdded selectors:")
		for _, selector := range merged.AddedSelectors {
			buffer.Append("\n  ", selector.Hex(), " ", merged.MethodSelectors[selector])
		}
	}
	return buffer
}
