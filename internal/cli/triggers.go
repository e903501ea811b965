package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

var triggersCmd = &cobra.Command{
	Use:   "triggers",
	Short: "List and resolve triggers",
}

var triggersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List triggers, most urgent first",
	RunE:  runTriggersList,
}

var triggersDismissCmd = &cobra.Command{
	Use:   "dismiss <id>",
	Short: "Dismiss an open trigger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.triggers.Dismiss(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Trigger %s dismissed\n", args[0])
			return nil
		})
	},
}

var triggersActionCmd = &cobra.Command{
	Use:   "action <id>",
	Short: "Mark an open trigger as actioned",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.triggers.Actioned(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Trigger %s actioned\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(triggersCmd)
	triggersCmd.AddCommand(triggersListCmd, triggersDismissCmd, triggersActionCmd)

	triggersListCmd.Flags().StringP("status", "s", "", "Filter by status (pending, active, dismissed, actioned)")
	triggersListCmd.Flags().StringP("priority", "p", "", "Filter by priority (low, medium, high, critical)")
	triggersListCmd.Flags().StringP("entity", "e", "", "Filter by entity ID")
	triggersListCmd.Flags().Bool("open", false, "Only pending and active triggers")
}

func runTriggersList(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetString("status")
	priority, _ := cmd.Flags().GetString("priority")
	entity, _ := cmd.Flags().GetString("entity")
	open, _ := cmd.Flags().GetBool("open")

	return withApp(func(a *app) error {
		triggers, err := a.triggers.List(cmd.Context(), model.TriggerFilter{
			Status:   model.TriggerStatus(status),
			Priority: model.Priority(priority),
			EntityID: entity,
			OpenOnly: open,
		})
		if err != nil {
			return err
		}

		if len(triggers) == 0 {
			fmt.Println("No triggers found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tTYPE\tENTITY\tDATE\tPRIORITY\tSTATUS\n")
		for _, t := range triggers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.Type, t.Entity.String(), t.TriggerDate.Format("2006-01-02"), t.Priority, t.Status)
		}
		w.Flush()
		return nil
	})
}
