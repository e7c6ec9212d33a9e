package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autogitpull/autogitpull/internal/creds"
)

// credentialHelperCmd is the GIT_ASKPASS target internal/creds points
// git at: git invokes "autogitpull credential-helper '<prompt>'" and
// reads the single-line answer from stdout.
var credentialHelperCmd = &cobra.Command{
	Use:    "credential-helper <prompt>",
	Short:  "Answer a GIT_ASKPASS prompt from the environment (internal use)",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		answer, ok := creds.AskpassRespond(args[0])
		if !ok {
			return fmt.Errorf("credential-helper: unrecognized prompt %q", args[0])
		}
		fmt.Println(answer)
		return nil
	},
}
