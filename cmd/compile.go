package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/shadow-hq/shadow/cmd/exitcodes"
	"github.com/shadow-hq/shadow/compilation"
	"github.com/shadow-hq/shadow/compilation/types"
	"github.com/shadow-hq/shadow/config"
	"github.com/shadow-hq/shadow/logging/colors"
	"github.com/shadow-hq/shadow/utils"
	"github.com/spf13/cobra"
)

// ArtifactCacheDirectory holds the hash of the last shadow build, relative to the project configuration.
const ArtifactCacheDirectory = ".shadow"

// compileCmd represents the command provider for compile
var compileCmd = &cobra.Command{
	Use:               "compile",
	Short:             "Compiles the shadow contracts",
	Long:              `Compiles the shadow contracts with the configured platform and optionally writes the artifacts to a file`,
	Args:              cobra.NoArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunCompile,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the compile command
	err := addCompileFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the compile command", err)
	}

	// Add the compile command and its associated flags to the root command
	rootCmd.AddCommand(compileCmd)
}

// cmdRunCompile executes the CLI compile command
func cmdRunCompile(cmd *cobra.Command, args []string) error {
	projectConfig, configPath, err := readProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}
	err = updateProjectConfigWithCompileFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}
	closeLogs, err := configureLogging(projectConfig.Logging)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}
	defer closeLogs()

	// Resolve output paths before moving to the configuration directory
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}
	if outputPath != "" {
		if outputPath, err = filepath.Abs(outputPath); err != nil {
			cmdLogger.Error("Failed to run the compile command", err)
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	artifacts, err := compileProject(ctx, projectConfig, configPath)
	if err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	for _, artifact := range artifacts {
		cmdLogger.Info(describeArtifact(artifact))
	}

	if outputPath != "" {
		if err = utils.WriteJSONFile(outputPath, artifacts); err != nil {
			cmdLogger.Error("Failed to write the compiled artifacts", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
		}
		cmdLogger.Info("Artifacts written to: ", colors.Bold, outputPath, colors.Reset)
	}
	return nil
}

// compileProject compiles the project from the directory holding its configuration, since compilation targets are
// relative to it, and reports whether the build changed since the last compile.
func compileProject(ctx context.Context, projectConfig *config.ProjectConfig, configPath string) ([]*types.CompiledArtifact, error) {
	projectDirectory := filepath.Dir(configPath)
	if err := os.Chdir(projectDirectory); err != nil {
		cmdLogger.Error("Failed to change to the project directory", err)
		return nil, err
	}

	artifacts, err := compilation.Compile(ctx, "", projectConfig.Compilation)
	if err != nil {
		cmdLogger.Error("Failed to compile the shadow contracts", err)
		return nil, err
	}
	compilation.NotifyArtifactHashStatus(artifacts, filepath.Join(projectDirectory, ArtifactCacheDirectory), cmdLogger)
	return artifacts, nil
}

// describeArtifact summarizes a compiled artifact on one line.
func describeArtifact(artifact *types.CompiledArtifact) string {
	description := fmt.Sprintf("%s: %d bytes of code, %d selector(s), %d event(s)",
		artifact.Name, len(artifact.DeployedBytecode), len(artifact.MethodSelectors), len(artifact.ABI.Events))
	if artifact.CompilerVersion != "" {
		description += ", compiler " + artifact.CompilerVersion
	}
	if metadataHash := artifact.MetadataHash(); metadataHash != nil {
		description += ", metadata hash " + hex.EncodeToString(metadataHash)
	}
	return description
}
