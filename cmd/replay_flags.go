package cmd

import (
	"fmt"

	"github.com/shadow-hq/shadow/config"
	"github.com/spf13/cobra"
)

// addReplayFlags adds the various flags for the replay command
func addReplayFlags() error {
	// Get the default project config and throw an error if we cant
	defaultConfig, err := config.GetDefaultProjectConfig(DefaultCompilationPlatform)
	if err != nil {
		return err
	}

	// Prevent alphabetical sorting of usage message
	replayCmd.Flags().SortFlags = false

	// Config file
	replayCmd.Flags().String("config", "", "path to config file")

	// Contract group
	replayCmd.Flags().String("group", DefaultGroupDirectory, "contract group directory")

	// Remote node
	replayCmd.Flags().String("rpc-url", "", "JSON-RPC url of an archive node (unless a config file is provided)")

	// Gas mode
	replayCmd.Flags().String("gas-mode", "",
		fmt.Sprintf("gas accounting, \"transaction\" or \"unlimited\" (unless a config file is provided, default is %q)", defaultConfig.Replay.GasMode))

	// Intra-block state
	replayCmd.Flags().Bool("intra-block", false,
		fmt.Sprintf("apply the state changes of the preceding transactions of the block (unless a config file is provided, default is %t)", defaultConfig.Replay.IntraBlockState))

	// Parallelism
	replayCmd.Flags().Int("parallelism", 0,
		fmt.Sprintf("number of transactions replayed at once (unless a config file is provided, default is %d)", defaultConfig.Replay.Parallelism))

	// Disk cache
	replayCmd.Flags().Bool("disk-cache", false,
		fmt.Sprintf("persist fetched state on disk (unless a config file is provided, default is %t)", defaultConfig.RPC.DiskCache))

	// Log decoding
	replayCmd.Flags().Bool("no-decode", false, "show logs raw instead of decoding them with the group's ABIs")

	// Report output
	replayCmd.Flags().String("out", "", "path of a JSON file receiving the replay reports")

	addLoggingFlags(replayCmd)
	return nil
}

// updateProjectConfigWithReplayFlags will update the given projectConfig with any CLI arguments that were provided to
// the replay command
func updateProjectConfigWithReplayFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update the rpc url
	if cmd.Flags().Changed("rpc-url") {
		projectConfig.RPC.URL, err = cmd.Flags().GetString("rpc-url")
		if err != nil {
			return err
		}
	}

	// Update the gas mode
	if cmd.Flags().Changed("gas-mode") {
		projectConfig.Replay.GasMode, err = cmd.Flags().GetString("gas-mode")
		if err != nil {
			return err
		}
	}

	// Update intra-block state enablement
	if cmd.Flags().Changed("intra-block") {
		projectConfig.Replay.IntraBlockState, err = cmd.Flags().GetBool("intra-block")
		if err != nil {
			return err
		}
	}

	// Update parallelism
	if cmd.Flags().Changed("parallelism") {
		projectConfig.Replay.Parallelism, err = cmd.Flags().GetInt("parallelism")
		if err != nil {
			return err
		}
	}

	// Update disk cache enablement
	if cmd.Flags().Changed("disk-cache") {
		projectConfig.RPC.DiskCache, err = cmd.Flags().GetBool("disk-cache")
		if err != nil {
			return err
		}
	}

	// Update log decoding
	if cmd.Flags().Changed("no-decode") {
		noDecode, err := cmd.Flags().GetBool("no-decode")
		if err != nil {
			return err
		}
		projectConfig.Replay.DecodeLogs = !noDecode
	}

	return updateLoggingConfigWithFlags(cmd, projectConfig)
}
