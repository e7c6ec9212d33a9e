// Package cli assembles the cobra command tree described in spec.md §6:
// the root "run" behavior plus lock/history/credential-helper/version
// subcommands. Structured the way re-cinq-detergent's internal/cli does
// (a package-level rootCmd, flags bound in init(), subcommands added to
// it), generalized from that daemon's single-config-file invocation to
// autogitpull's much larger flag surface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "autogitpull [root]",
	Short: "Keep a tree of Git repositories pulled and up to date",
	Long: `autogitpull scans one or more root directories for Git repositories and
keeps each one fast-forwarded to its remote, on a timer, with resource
caps, credential resolution, and an adaptive (mutant) mode that tunes its
own pull timeout from observed behavior.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRoot,
}

func init() {
	bindRunFlags(rootCmd)
	rootCmd.AddCommand(versionCmd, lockCmd, historyCmd, credentialHelperCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("autogitpull %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
