package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all local reminder state",
	Long: `Cancel every pending alert and wipe all local state: schedule records,
sync metadata, and cached voice messages.

Used on logout or when switching patients. The care service is untouched;
the next sync rebuilds everything from scratch.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel all pending alerts",
	Long: `Cancel every pending alert without touching the schedule records.
The next sync re-schedules whatever should still alert.`,
	Args: cobra.NoArgs,
	RunE: runCancel,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !clearYes {
		fmt.Print("This removes all local reminders and cached voice messages. Continue? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := a.engine.ClearAllLocalReminders(cmd.Context()); err != nil {
		return fmt.Errorf("clear local state: %w", err)
	}

	fmt.Println("All local reminder state cleared.")
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.engine.CancelPendingNotifications(cmd.Context())
	if err != nil {
		return fmt.Errorf("cancel pending alerts: %w", err)
	}

	fmt.Printf("Cancelled %d pending alerts.\n", n)
	return nil
}
