package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caredose/caredose/internal/reconciler"
)

var snoozeCmd = &cobra.Command{
	Use:   "snooze <reminder-id>",
	Short: "Push a reminder's alert back by the snooze delay",
	Long: `Cancel the pending alerts for one reminder and re-schedule it for a few
minutes from now. The reminder itself is untouched on the care service;
the next sync still treats it normally.`,
	Args: cobra.ExactArgs(1),
	RunE: runSnooze,
}

func runSnooze(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	id := args[0]
	if err := a.engine.SnoozeReminderLocally(cmd.Context(), id); err != nil {
		if errors.Is(err, reconciler.ErrUnknownReminder) {
			return fmt.Errorf("no scheduled reminder %s (run 'caredose status' to list them)", id)
		}
		return err
	}

	fmt.Printf("Snoozed %s for %s.\n", id, a.cfg.Schedule.SnoozeDelay)
	return nil
}
