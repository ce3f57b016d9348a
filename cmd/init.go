package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shadow-hq/shadow/compilation"
	"github.com/shadow-hq/shadow/config"
	"github.com/shadow-hq/shadow/group"
	"github.com/shadow-hq/shadow/logging/colors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Get supported platforms for customized static completions of "init" flag `$ shadow init <tab> <tab>`
// and to cache supported platforms for CLI arguments validation
var supportedPlatforms = compilation.GetSupportedCompilationPlatforms()

// initCmd represents the command provider for init
var initCmd = &cobra.Command{
	Use:               "init [platform]",
	Short:             "Initializes a project configuration and an empty contract group",
	Long:              `Initializes a project configuration and, with --group, an empty contract group directory`,
	Args:              cmdValidateInitArgs,
	ValidArgsFunction: cmdValidInitArgs,
	RunE:              cmdRunInit,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add flags to init command
	err := addInitFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the init command", err)
	}

	// Add the init command and its associated flags to the root command
	rootCmd.AddCommand(initCmd)
}

// cmdValidInitArgs will return which flags and sub-commands are valid for dynamic completion for the init command
func cmdValidInitArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	unusedFlags, directive := cmdValidFlagArgs(cmd, args, toComplete)

	// Suggest platforms only while no flag has been used, since flags imply the default platform
	flagUsed := false
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		flagUsed = true
	})
	if len(args) == 0 && !flagUsed {
		unusedFlags = append(unusedFlags, supportedPlatforms...)
	}
	return unusedFlags, directive
}

// cmdValidateInitArgs validates CLI arguments
func cmdValidateInitArgs(cmd *cobra.Command, args []string) error {
	// Make sure we have no more than 1 arg
	if err := cobra.RangeArgs(0, 1)(cmd, args); err != nil {
		err = fmt.Errorf("init accepts at most 1 platform argument (options: %s). "+
			"default platform is %v", strings.Join(supportedPlatforms, ", "), DefaultCompilationPlatform)
		cmdLogger.Error("Failed to validate args to the init command", err)
		return err
	}

	// Ensure the optional provided argument refers to a supported platform
	if len(args) == 1 && !compilation.IsSupportedCompilationPlatform(args[0]) {
		err := fmt.Errorf("init was provided invalid platform argument '%s' (options: %s)", args[0], strings.Join(supportedPlatforms, ", "))
		cmdLogger.Error("Failed to validate args to the init command", err)
		return err
	}

	return nil
}

// cmdRunInit executes the init CLI command and updates the project configuration with any flags
func cmdRunInit(cmd *cobra.Command, args []string) error {
	// If we weren't provided an output path, we use our working directory
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	if !cmd.Flags().Changed("out") {
		workingDirectory, err := os.Getwd()
		if err != nil {
			cmdLogger.Error("Failed to run the init command", err)
			return err
		}
		outputPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	platform := DefaultCompilationPlatform
	if len(args) == 1 {
		platform = args[0]
	}
	projectConfig, err := config.GetDefaultProjectConfig(platform)
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithInitFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	if err = projectConfig.Validate(); err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	if _, err = os.Stat(outputPath); err == nil && !force {
		// Prompt user for overwrite confirmation
		fmt.Print("The file already exists. Overwrite? (y/n): ")
		var response string
		if _, err := fmt.Scan(&response); err != nil {
			cmdLogger.Error("Failed to scan input", err)
			return err
		}
		if response != "y" && response != "Y" {
			fmt.Println("Operation canceled.")
			return nil
		}
	}

	// Write our project configuration
	err = projectConfig.WriteToFile(outputPath)
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	if absoluteOutputPath, err := filepath.Abs(outputPath); err == nil {
		outputPath = absoluteOutputPath
	}
	cmdLogger.Info("Project configuration successfully output to: ", colors.Bold, outputPath, colors.Reset)

	// Create the contract group if one was requested
	if !cmd.Flags().Changed("group") {
		return nil
	}
	groupDirectory, creator, err := initGroupFlags(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	displayName, err := cmd.Flags().GetString("name")
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	if displayName == "" {
		displayName = filepath.Base(groupDirectory)
	}
	if _, err = group.InitContractGroup(groupDirectory, displayName, creator); err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	cmdLogger.Info("Contract group ", colors.Bold, displayName, colors.Reset, " created in: ", colors.Bold, groupDirectory, colors.Reset)
	return nil
}
