package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect and acknowledge the alert ledger",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded alerts, newest first",
	RunE:  runAlertsList,
}

var alertsAckCmd = &cobra.Command{
	Use:   "ack <id>",
	Short: "Acknowledge an alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.ledger.Acknowledge(cmd.Context(), args[0], time.Now()); err != nil {
				return err
			}
			fmt.Printf("Alert %s acknowledged\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsListCmd, alertsAckCmd)

	alertsListCmd.Flags().StringP("entity", "e", "", "Filter by entity ID")
	alertsListCmd.Flags().StringP("type", "t", "", "Filter by alert type (90day, 60day, 30day, 7day)")
	alertsListCmd.Flags().String("to", "", "Filter by recipient")
	alertsListCmd.Flags().Bool("unacked", false, "Only unacknowledged alerts")
}

func runAlertsList(cmd *cobra.Command, _ []string) error {
	entity, _ := cmd.Flags().GetString("entity")
	alertType, _ := cmd.Flags().GetString("type")
	to, _ := cmd.Flags().GetString("to")
	unacked, _ := cmd.Flags().GetBool("unacked")

	return withApp(func(a *app) error {
		entries, err := a.ledger.List(cmd.Context(), model.AlertFilter{
			EntityID:       entity,
			AlertType:      model.Threshold(alertType),
			SentTo:         to,
			Unacknowledged: unacked,
		})
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No alerts recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tENTITY\tTYPE\tSENT\tTO\tACK\n")
		for _, e := range entries {
			ack := "-"
			if e.AcknowledgedAt != nil {
				ack = e.AcknowledgedAt.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.ID, e.Entity.String(), e.AlertType, e.SentAt.Format("2006-01-02 15:04"), e.SentTo, ack)
		}
		w.Flush()
		return nil
	})
}
