package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/caredose/caredose/internal/reconciler"
)

var (
	syncForce bool
	syncDays  int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize local alerts with the care service",
	Long: `Download the upcoming reminder set from the care service and reconcile
local alerts against it: new reminders are scheduled, changed ones
rescheduled, and reminders removed server-side are cancelled.

Unforced syncs within the rate-limit window are skipped.

Examples:
  caredose sync
  caredose sync --force
  caredose sync --days 7`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "bypass the sync rate limit")
	syncCmd.Flags().IntVar(&syncDays, "days", 0, "fetch horizon in days (default from config)")
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireToken(); err != nil {
		return err
	}

	days := a.cfg.Remote.DaysAhead
	if syncDays > 0 {
		days = syncDays
	}

	res, err := a.engine.Reconcile(cmd.Context(), a.cfg.Remote.Token, days,
		reconciler.Options{Force: syncForce})
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if res.Skipped {
		fmt.Println("Sync skipped (another sync ran recently; use --force to override).")
		return nil
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	fmt.Printf("%s (%d reminders upstream)\n", headerStyle.Render("SYNCED"), res.RemoteCount)
	fmt.Printf("  scheduled: %d\n", res.Scheduled)
	fmt.Printf("  updated:   %d\n", res.Updated)
	fmt.Printf("  removed:   %d\n", res.Removed)
	if res.AudioDownloaded > 0 {
		fmt.Printf("  voice messages downloaded: %d\n", res.AudioDownloaded)
	}
	if res.CancelledNotifications > 0 {
		fmt.Printf("  stale alerts cancelled: %d\n", res.CancelledNotifications)
	}
	return nil
}
