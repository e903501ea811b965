package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

var assignCmd = &cobra.Command{
	Use:   "assign <lease|debt> <entity-id> [user-id]",
	Short: "Assign, remove or show the users notified for an entity",
	Long: `Assign a user to an entity so they receive its alerts. Owners are
notified before agents and the first owner is recorded in the ledger.
Without a user ID the current assignments are shown.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runAssign,
}

func init() {
	rootCmd.AddCommand(assignCmd)
	assignCmd.Flags().StringP("role", "r", string(model.RoleOwner), "Role (owner, agent)")
	assignCmd.Flags().Bool("remove", false, "Remove the assignment instead of adding it")
}

func runAssign(cmd *cobra.Command, args []string) error {
	ref := model.EntityRef{Kind: model.EntityKind(args[0]), ID: args[1]}
	if !ref.Kind.Valid() {
		return fmt.Errorf("unknown entity kind %q (want lease or debt)", args[0])
	}
	role, _ := cmd.Flags().GetString("role")
	remove, _ := cmd.Flags().GetBool("remove")

	return withApp(func(a *app) error {
		ctx := cmd.Context()

		if len(args) == 3 {
			user := args[2]
			if remove {
				if err := a.store.RemoveAssignment(ctx, ref, user); err != nil {
					return err
				}
				fmt.Printf("Removed %s from %s\n", user, ref.String())
				return nil
			}

			r := model.AssignmentRole(role)
			if r != model.RoleOwner && r != model.RoleAgent {
				return fmt.Errorf("unknown role %q (want owner or agent)", role)
			}
			if err := a.store.SetAssignment(ctx, &model.Assignment{Entity: ref, UserID: user, Role: r}); err != nil {
				return err
			}
			fmt.Printf("Assigned %s to %s as %s\n", user, ref.String(), r)
			return nil
		}

		assignments, err := a.store.ListAssignments(ctx, ref)
		if err != nil {
			return err
		}
		if len(assignments) == 0 {
			fmt.Printf("No users assigned to %s\n", ref.String())
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "USER\tROLE\tSINCE\n")
		for _, as := range assignments {
			fmt.Fprintf(w, "%s\t%s\t%s\n", as.UserID, as.Role, as.CreatedAt.Format("2006-01-02"))
		}
		w.Flush()
		return nil
	})
}
