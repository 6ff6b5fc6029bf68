// Package cli provides the command-line interface for Caredose.
package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/caredose/caredose/internal/config"
	"github.com/caredose/caredose/internal/platform"
	"github.com/caredose/caredose/internal/reconciler"
	"github.com/caredose/caredose/internal/remote"
	"github.com/caredose/caredose/internal/store"
	"github.com/caredose/caredose/internal/voicecache"
	"github.com/caredose/caredose/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "caredose",
	Short: "Local medication reminder agent",
	Long: `Local medication reminder agent.

Caredose mirrors a patient's upcoming medication reminders from the remote
care service onto this device: it downloads the authoritative reminder set,
schedules local alerts (with caregiver voice messages where recorded), and
keeps both in sync as prescriptions change.

Reminders are owned by the care service; this agent only reflects them.

Configuration comes from the environment (or a .env file):
  CAREDOSE_API_URL        care-service base URL
  CAREDOSE_TOKEN          patient API token
  CAREDOSE_DIR            data directory (default: XDG data home)
  CAREDOSE_LANG           locale for notification sounds
  CAREDOSE_NATIVE_ALARMS  use the full-screen alarm bridge
  CAREDOSE_DAYS_AHEAD     reminder fetch horizon in days`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(snoozeCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(daemonCmd)
}

// Execute runs the CLI with fang enhancements.
func Execute(ctx context.Context) error {
	return fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(version.Short()),
		fang.WithCommit(version.Commit),
	)
}

// app bundles everything a command needs. Commands build it per invocation
// and close it when done.
type app struct {
	cfg    *config.Config
	store  *store.Store
	cache  *voicecache.Cache
	engine *reconciler.Engine
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	paths := config.GetPaths(cfg)
	st, err := store.New(store.DefaultConfig(paths.Database))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.RateLimit)
	notifier := platform.NewStoreNotifier(st)

	var alarm platform.AlarmAPI
	if cfg.Schedule.NativeAlarms {
		alarm = platform.NewStoreAlarms(st)
	}

	sched := platform.Detect(alarm, notifier, platform.Options{
		MaxPending:     cfg.Schedule.MaxPending,
		RepeatCount:    cfg.Schedule.RepeatCount,
		RepeatInterval: cfg.Schedule.RepeatInterval,
		Locale:         cfg.Locale,
	})

	cache := voicecache.New(paths.VoiceCache, st, client)

	engine := reconciler.New(reconciler.Config{
		Store:           st,
		Cache:           cache,
		Scheduler:       sched,
		Notifications:   notifier,
		Fetcher:         client,
		MinSyncInterval: cfg.Schedule.MinSyncInterval,
		SnoozeDelay:     cfg.Schedule.SnoozeDelay,
	})

	return &app{cfg: cfg, store: st, cache: cache, engine: engine}, nil
}

func (a *app) close() {
	_ = a.store.Close()
}

func (a *app) requireToken() error {
	if a.cfg.Remote.Token == "" {
		return fmt.Errorf("no API token configured, set CAREDOSE_TOKEN")
	}
	return nil
}
