package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autogitpull/autogitpull/internal/lockfile"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Inspect or clear single-instance locks",
}

var lockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List autogitpull instances found on this machine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		instances := lockfile.FindRunningInstances()
		if len(instances) == 0 {
			fmt.Println("no autogitpull instances found")
			return nil
		}
		for _, inst := range instances {
			fmt.Printf("%-20s pid=%d\n", inst.Name, inst.PID)
		}
		return nil
	},
}

var lockRemoveCmd = &cobra.Command{
	Use:   "remove <root>",
	Short: "Remove a lock file for root, killing its owner if still alive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0] + "/" + lockfile.LockFileName
		pid, err := lockfile.ReadPID(path)
		if err == nil && lockfile.ProcessAlive(pid) {
			if !lockfile.Terminate(pid) {
				return fmt.Errorf("failed to terminate pid %d holding %s", pid, path)
			}
		}
		if err := lockfile.Release(path); err != nil {
			return fmt.Errorf("removing lock file: %w", err)
		}
		fmt.Println("lock removed:", path)
		return nil
	},
}

func init() {
	lockCmd.AddCommand(lockListCmd, lockRemoveCmd)
}
