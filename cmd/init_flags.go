package cmd

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/shadow-hq/shadow/config"
	"github.com/shadow-hq/shadow/utils"
	"github.com/spf13/cobra"
)

// addInitFlags adds the various flags for the init command
func addInitFlags() error {
	// Output path for configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file")

	// Overwrite without asking
	initCmd.Flags().Bool("force", false, "overwrite an existing configuration file without asking")

	// Target file / directory
	initCmd.Flags().String("target", "", TargetFlagDescription)

	// Remote node
	initCmd.Flags().String("rpc-url", "", "JSON-RPC url of an archive node used by replays")

	// Contract group
	initCmd.Flags().String("group", "", "directory in which to create an empty contract group")
	initCmd.Flags().String("name", "", "display name of the contract group (default is the group directory name)")
	initCmd.Flags().String("creator", "", "address recorded as the creator of the contract group")

	return nil
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to the init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	// Update target if necessary
	err := updateCompilationTarget(cmd, projectConfig)
	if err != nil {
		return err
	}

	// Update the rpc url
	if cmd.Flags().Changed("rpc-url") {
		projectConfig.RPC.URL, err = cmd.Flags().GetString("rpc-url")
		if err != nil {
			return err
		}
	}
	return nil
}

// initGroupFlags reads the group directory and the optional creator address provided to the init command.
func initGroupFlags(cmd *cobra.Command) (string, *common.Address, error) {
	groupDirectory, err := cmd.Flags().GetString("group")
	if err != nil {
		return "", nil, err
	}
	creatorHex, err := cmd.Flags().GetString("creator")
	if err != nil || creatorHex == "" {
		return groupDirectory, nil, err
	}
	creator, err := utils.HexStringToAddress(creatorHex)
	if err != nil {
		return "", nil, err
	}
	return groupDirectory, creator, nil
}
