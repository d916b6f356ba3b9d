package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/foundry/display"
	"github.com/teranos/foundry/version"
)

// VersionCmd prints build information for the running binary.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show foundry version information",
	Long:  `Display version, build time, commit hash, and platform information for the foundry binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(info)
		}

		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		fmt.Fprintf(cmd.OutOrStdout(), "Platform: %s\n", info.Platform)
		fmt.Fprintf(cmd.OutOrStdout(), "Go: %s\n", info.GoVersion)
		return nil
	},
}
