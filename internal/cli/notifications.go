package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Inspect the delivery log",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List delivery records, newest first",
	RunE:  runNotificationsList,
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsListCmd)

	notificationsListCmd.Flags().Bool("failed", false, "Only failed deliveries")
	notificationsListCmd.Flags().IntP("limit", "l", 50, "Maximum records to show")
}

func runNotificationsList(cmd *cobra.Command, _ []string) error {
	failed, _ := cmd.Flags().GetBool("failed")
	limit, _ := cmd.Flags().GetInt("limit")

	var status model.NotificationStatus
	if failed {
		status = model.NotificationFailed
	}

	return withApp(func(a *app) error {
		notifications, err := a.store.ListNotifications(cmd.Context(), status, limit)
		if err != nil {
			return err
		}

		if len(notifications) == 0 {
			fmt.Println("No notifications found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "TIME\tRECIPIENT\tCHANNEL\tPRIORITY\tSTATUS\tERROR\n")
		for _, n := range notifications {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				n.CreatedAt.Format("2006-01-02 15:04"), n.Recipient, n.Channel, n.Priority, n.Status, n.Error)
		}
		w.Flush()
		return nil
	})
}
