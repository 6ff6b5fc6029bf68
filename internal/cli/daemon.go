package cli

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/caredose/caredose/internal/log"
	"github.com/caredose/caredose/internal/reconciler"
)

var daemonSchedule string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sync loop in the foreground",
	Long: `Run a foreground agent that periodically syncs local alerts with the
care service. An immediate sync runs at startup; after that, the cron
schedule drives unforced syncs (the engine's own rate limit still
applies).

Examples:
  caredose daemon
  caredose daemon --schedule "@every 15m"`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&daemonSchedule, "schedule", "@every 5m", "cron schedule for periodic syncs")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireToken(); err != nil {
		return err
	}

	ctx := cmd.Context()
	token := a.cfg.Remote.Token
	days := a.cfg.Remote.DaysAhead

	syncOnce := func(force bool) {
		res, err := a.engine.Reconcile(ctx, token, days, reconciler.Options{Force: force})
		if err != nil {
			log.Errorf("daemon: sync: %v", err)
			return
		}
		if res.Skipped {
			return
		}
		log.Printf("daemon: synced %d reminders (scheduled %d, updated %d, removed %d)\n",
			res.RemoteCount, res.Scheduled, res.Updated, res.Removed)
	}

	syncOnce(true)

	c := cron.New()
	if _, err := c.AddFunc(daemonSchedule, func() { syncOnce(false) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", daemonSchedule, err)
	}
	c.Start()

	fmt.Printf("Caredose daemon running (schedule %q). Ctrl-C to stop.\n", daemonSchedule)
	<-ctx.Done()

	cronCtx := c.Stop()
	<-cronCtx.Done()
	fmt.Println("Daemon stopped.")
	return nil
}
