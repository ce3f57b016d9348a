package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/shadow-hq/shadow/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command that displays build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Long: `Print the version and build information of shadow: the semantic version, git commit,
commit time and the Go toolchain used to compile the binary.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.GetInfo()
		asJSON, err := cmd.Flags().GetBool("json")
		if err != nil {
			return err
		}
		if !asJSON {
			fmt.Fprint(cmd.OutOrStdout(), info.String())
			return nil
		}
		b, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "print the build information as JSON")
	rootCmd.AddCommand(versionCmd)
}
