package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/caredose/caredose/internal/platform"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local reminder state",
	Long: `Show the locally scheduled reminders, pending alerts, and the time of
the last successful sync with the care service.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	records, err := a.store.LoadRecords()
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	pending, err := platform.NewStoreNotifier(a.store).ListPending(cmd.Context())
	if err != nil {
		return fmt.Errorf("list pending alerts: %w", err)
	}

	last, err := a.engine.GetLastSyncTime()
	if err != nil {
		return fmt.Errorf("load sync state: %w", err)
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	dimStyle := lipgloss.NewStyle().Faint(true)

	fmt.Printf("%s (%d reminders, %d pending alerts)\n",
		headerStyle.Render("CAREDOSE STATUS"), len(records), len(pending))
	if last != nil {
		fmt.Printf("Last sync: %s (%s ago)\n",
			last.Format(time.RFC3339), time.Since(*last).Round(time.Second))
	} else {
		fmt.Println("Last sync: never")
	}
	if size := a.cache.Size(); size > 0 {
		fmt.Printf("Voice cache: %.1f KiB\n", float64(size)/1024)
	}

	if len(records) == 0 {
		fmt.Println("\nNo reminders scheduled. Run 'caredose sync' to download them.")
		return nil
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return records[ids[i]].Schedule.ScheduledAtMs < records[ids[j]].Schedule.ScheduledAtMs
	})

	fmt.Println()
	for _, id := range ids {
		rec := records[id]
		at := time.UnixMilli(rec.Schedule.ScheduledAtMs).Local()
		voice := ""
		if rec.Voice != nil && rec.Voice.LocalPath != "" {
			voice = " [voice]"
		}
		fmt.Printf("  %s  %s %s%s %s\n",
			at.Format("Mon 15:04"), rec.Medication, rec.Dosage, voice,
			dimStyle.Render(id))
	}
	return nil
}
