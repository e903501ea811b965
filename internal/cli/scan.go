package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/portfolio"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one sweep now",
	Long: `Run one sweep over every active lease and debt. Thresholds that are due
and not yet recorded are written to the ledger and delivered. Running scan
while the scheduler is active is safe.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().String("at", "", "Evaluate as of this date (YYYY-MM-DD) instead of now")
}

func runScan(cmd *cobra.Command, _ []string) error {
	at := time.Now()
	if raw, _ := cmd.Flags().GetString("at"); raw != "" {
		parsed, err := time.ParseInLocation(portfolio.DateLayout, raw, time.UTC)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
		at = parsed
	}

	return withApp(func(a *app) error {
		summary, err := a.scanner.Sweep(cmd.Context(), at)
		if err != nil {
			return err
		}

		fmt.Printf("Sweep complete in %s\n", summary.Duration().Round(time.Millisecond))
		fmt.Printf("  Scanned:        %d\n", summary.Scanned)
		fmt.Printf("  Processed:      %d\n", summary.Processed)
		fmt.Printf("  Skipped:        %d\n", summary.Skipped)
		fmt.Printf("  Failed:         %d\n", summary.Failed)
		fmt.Printf("  Alerts:         %d\n", summary.AlertsRecorded)
		fmt.Printf("  Notifications:  %d sent, %d failed\n", summary.NotificationsSent, summary.NotificationsFailed)
		fmt.Printf("  Auto-actioned:  %d\n", summary.TriggersAutoActioned)

		if len(summary.Errors) > 0 {
			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ENTITY\tSTAGE\tERROR\n")
			for _, e := range summary.Errors {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Entity.String(), e.Stage, e.Err)
			}
			w.Flush()
		}
		return nil
	})
}
