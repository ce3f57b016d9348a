package cmd

import (
	"github.com/shadow-hq/shadow/config"
	"github.com/spf13/cobra"
)

// addCompileFlags adds the various flags for the compile command
func addCompileFlags() error {
	// Prevent alphabetical sorting of usage message
	compileCmd.Flags().SortFlags = false

	// Config file
	compileCmd.Flags().String("config", "", "path to config file")

	// Target
	compileCmd.Flags().String("target", "", TargetFlagDescription)

	// Output file
	compileCmd.Flags().String("out", "", "path of a JSON file receiving the compiled artifacts")

	addLoggingFlags(compileCmd)
	return nil
}

// updateProjectConfigWithCompileFlags will update the given projectConfig with any CLI arguments that were provided
// to the compile command
func updateProjectConfigWithCompileFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	if err := updateCompilationTarget(cmd, projectConfig); err != nil {
		return err
	}
	return updateLoggingConfigWithFlags(cmd, projectConfig)
}
