package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/shadow-hq/shadow/logging"
	"github.com/shadow-hq/shadow/version"
	"github.com/spf13/cobra"
)

// cmdLogger is the logger used by the commands. It is rebuilt from the project configuration once a command has read
// it.
var cmdLogger = newCmdLogger(zerolog.InfoLevel)

var rootCmd = &cobra.Command{
	Use:     "shadow",
	Short:   "Shadow contracts: build event-augmented contracts and replay transactions against them",
	Long:    "shadow merges event-augmented builds of deployed contracts and verifies them by replaying historical transactions",
	Version: version.GetInfo().Short(),
}

func newCmdLogger(level zerolog.Level) *logging.Logger {
	logger := logging.NewLogger(level, true)
	logger.SetConsoleOutput(os.Stdout)
	return logger.NewSubLogger("module", logging.CLI_SERVICE)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
