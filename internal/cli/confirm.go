package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caredose/caredose/internal/reconciler"
)

var confirmCmd = &cobra.Command{
	Use:   "confirm <reminder-id>",
	Short: "Mark a dose as taken",
	Long: `Cancel the pending alerts for one reminder and record the confirmation
locally, pending upload to the care service on the next sync.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfirm,
}

func runConfirm(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	id := args[0]
	if err := a.engine.ConfirmReminderLocally(cmd.Context(), id); err != nil {
		if errors.Is(err, reconciler.ErrUnknownReminder) {
			return fmt.Errorf("no scheduled reminder %s (run 'caredose status' to list them)", id)
		}
		return err
	}

	fmt.Printf("Confirmed %s. Alerts cancelled.\n", id)
	return nil
}
