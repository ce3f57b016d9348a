package cmd

import (
	"path/filepath"

	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
	"github.com/shadow-hq/shadow/config"
	"github.com/shadow-hq/shadow/utils"
	"github.com/spf13/cobra"
)

// mergeOptions holds the merge command inputs which are not part of the project configuration.
type mergeOptions struct {
	originalPath   string
	shadowPath     string
	contractName   string
	address        common.Address
	chainID        uint64
	groupDirectory string
	export         bool
}

// addMergeFlags adds the various flags for the merge command
func addMergeFlags() error {
	// Prevent alphabetical sorting of usage message
	mergeCmd.Flags().SortFlags = false

	// Config file
	mergeCmd.Flags().String("config", "", "path to config file")

	// Target
	mergeCmd.Flags().String("target", "", TargetFlagDescription)

	// Builds
	mergeCmd.Flags().String("original", "", "path of the JSON artifact of the deployed contract's original build")
	mergeCmd.Flags().String("shadow", "", "path of the JSON artifact(s) of the shadow build (default is to compile the project)")
	mergeCmd.Flags().String("contract", "", "name of the contract to select from the shadow build (default is the original's name)")

	// Deployment
	mergeCmd.Flags().String("address", "", "address of the deployed contract")
	mergeCmd.Flags().Uint64("chain-id", 1, "chain id of the deployed contract, 0 binds the contract on every chain")

	// RPC
	mergeCmd.Flags().String("rpc-url", "", "JSON-RPC url used to check the original build against the deployed code")

	// Group
	mergeCmd.Flags().String("group", DefaultGroupDirectory, "contract group directory, created if missing")
	mergeCmd.Flags().Bool("export", false, "export the group's address to shadow bytecode map after merging")

	addLoggingFlags(mergeCmd)

	if err := mergeCmd.MarkFlagRequired("original"); err != nil {
		return err
	}
	return mergeCmd.MarkFlagRequired("address")
}

// updateProjectConfigWithMergeFlags will update the given projectConfig with any CLI arguments that were provided
// to the merge command
func updateProjectConfigWithMergeFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	if err := updateCompilationTarget(cmd, projectConfig); err != nil {
		return err
	}
	if cmd.Flags().Changed("rpc-url") {
		url, err := cmd.Flags().GetString("rpc-url")
		if err != nil {
			return err
		}
		projectConfig.RPC.URL = url
	}
	return updateLoggingConfigWithFlags(cmd, projectConfig)
}

// getMergeOptions reads the merge flags. Paths are made absolute, since compiling changes the working directory.
func getMergeOptions(cmd *cobra.Command) (*mergeOptions, error) {
	var (
		options mergeOptions
		err     error
	)
	paths := []struct {
		flag   string
		target *string
	}{
		{"original", &options.originalPath},
		{"shadow", &options.shadowPath},
		{"group", &options.groupDirectory},
	}
	for _, path := range paths {
		value, err := cmd.Flags().GetString(path.flag)
		if err != nil {
			return nil, err
		}
		if value != "" {
			if value, err = filepath.Abs(value); err != nil {
				return nil, errors.WithStack(err)
			}
		}
		*path.target = value
	}

	if options.contractName, err = cmd.Flags().GetString("contract"); err != nil {
		return nil, err
	}
	addressHex, err := cmd.Flags().GetString("address")
	if err != nil {
		return nil, err
	}
	address, err := utils.HexStringToAddress(addressHex)
	if err != nil {
		return nil, err
	}
	options.address = *address
	if options.chainID, err = cmd.Flags().GetUint64("chain-id"); err != nil {
		return nil, err
	}
	if options.export, err = cmd.Flags().GetBool("export"); err != nil {
		return nil, err
	}
	return &options, nil
}
