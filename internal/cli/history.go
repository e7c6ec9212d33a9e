package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autogitpull/autogitpull/internal/config"
)

var historyCmd = &cobra.Command{
	Use:   "history <root>",
	Short: "Print the recorded invocation history for a root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultHistoryFile(args[0])
		lines, err := config.ReadHistory(path)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
		if len(lines) == 0 {
			fmt.Println("no history recorded at", path)
			return nil
		}
		for _, l := range lines {
			fmt.Println(l)
		}
		return nil
	},
}
