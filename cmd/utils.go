package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shadow-hq/shadow/config"
	"github.com/shadow-hq/shadow/logging"
	"github.com/shadow-hq/shadow/logging/colors"
	"github.com/shadow-hq/shadow/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// cmdValidFlagArgs returns the flags of a command which have not been used yet, for dynamic completion.
func cmdValidFlagArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var unusedFlags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			// The "--" prefix tells the shell that the suggestion is a flag and not a positional argument
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveNoFileComp
}

// readProjectConfig obtains the project configuration for a command:
// #1: If --config was used, or the default config file (shadow.json) exists in the working directory, read it.
// #2: If --config was used but the file does not exist, fail.
// #3: Otherwise use the default project configuration for the default compilation platform.
// Returns the configuration and the path it was (or would have been) read from.
func readProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, string, error) {
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, "", err
	}
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}
	configPath, err = filepath.Abs(configPath)
	if err != nil {
		return nil, "", err
	}

	// Possibility #1
	_, existenceError := os.Stat(configPath)
	if existenceError == nil {
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		projectConfig, err := config.ReadProjectConfigFromFile(configPath)
		if err != nil {
			return nil, "", err
		}
		// Configs written without a compilation section fall back to the default platform
		if projectConfig.Compilation == nil {
			defaults, err := config.GetDefaultProjectConfig(DefaultCompilationPlatform)
			if err != nil {
				return nil, "", err
			}
			projectConfig.Compilation = defaults.Compilation
		}
		return projectConfig, configPath, nil
	}

	// Possibility #2
	if configFlagUsed {
		return nil, "", existenceError
	}

	// Possibility #3
	cmdLogger.Warn(fmt.Sprintf("Unable to find the config file at %v, will use the default project configuration for the "+
		"%v compilation platform instead", configPath, DefaultCompilationPlatform))
	projectConfig, err := config.GetDefaultProjectConfig(DefaultCompilationPlatform)
	if err != nil {
		return nil, "", err
	}
	return projectConfig, configPath, nil
}

// addLoggingFlags adds the flags overriding the logging section of the project configuration.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "", "minimum level of logs to emit (trace, debug, info, warn, error)")
	cmd.Flags().String("log-dir", "", "directory where log files are written")
	cmd.Flags().Bool("no-color", false, "disable colored terminal output")
}

// updateLoggingConfigWithFlags will update the logging section of projectConfig with any logging flags that were set.
func updateLoggingConfigWithFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update the log level
	if cmd.Flags().Changed("log-level") {
		levelName, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		projectConfig.Logging.Level, err = zerolog.ParseLevel(levelName)
		if err != nil {
			return err
		}
	}

	// Update the log directory
	if cmd.Flags().Changed("log-dir") {
		projectConfig.Logging.LogDirectory, err = cmd.Flags().GetString("log-dir")
		if err != nil {
			return err
		}
	}

	// Update color output
	if cmd.Flags().Changed("no-color") {
		projectConfig.Logging.NoColor, err = cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
	}
	return nil
}

// configureLogging rebuilds the global logger and the command logger from the logging configuration. Every package
// logger created afterwards derives from it. The returned function closes the log file, if one was opened.
func configureLogging(loggingConfig config.LoggingConfig) (func(), error) {
	if loggingConfig.NoColor {
		colors.DisableColor()
	}

	logging.GlobalLogger = logging.NewLogger(loggingConfig.Level, loggingConfig.EnableConsoleLogging)
	logging.GlobalLogger.SetConsoleOutput(os.Stdout)
	cmdLogger = logging.GlobalLogger.NewSubLogger("module", logging.CLI_SERVICE)

	if loggingConfig.LogDirectory == "" {
		return func() {}, nil
	}
	if err := utils.MakeDirectory(loggingConfig.LogDirectory); err != nil {
		return nil, err
	}
	logFile, err := os.Create(filepath.Join(loggingConfig.LogDirectory, fmt.Sprintf("shadow-%d.log", time.Now().Unix())))
	if err != nil {
		return nil, err
	}
	logging.GlobalLogger.AddWriter(logFile, logging.UNSTRUCTURED)
	cmdLogger.AddWriter(logFile, logging.UNSTRUCTURED)
	return func() {
		logging.GlobalLogger.RemoveWriter(logFile)
		cmdLogger.RemoveWriter(logFile)
		_ = logFile.Close()
	}, nil
}

// updateCompilationTarget will update the compilation target in the projectConfig if the --target flag is used in the
// command
func updateCompilationTarget(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	if !cmd.Flags().Changed("target") {
		return nil
	}
	newTarget, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	return projectConfig.Compilation.SetTarget(newTarget)
}
