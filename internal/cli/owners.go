package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"querydesk/internal/di"
	"querydesk/internal/models"
	"querydesk/pkg/api"
)

var ownersCmd = &cobra.Command{
	Use:   "owners",
	Short: "Manage who owns a data source",
}

var ownersListCmd = &cobra.Command{
	Use:   "list <source-id>",
	Short: "List the owners of a data source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			ctx := cmd.Context()
			if err := requireAuth(ctx, app); err != nil {
				return err
			}
			owners, err := app.Client.Owners(ctx, args[0])
			if err != nil {
				return err
			}
			for _, owner := range owners {
				fmt.Printf("  %d\t%s\n", owner.ID, owner.Username)
			}
			return nil
		})
	},
}

var ownersAddCmd = &cobra.Command{
	Use:   "add <source-id> <username>",
	Short: "Grant ownership of a data source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			ctx := cmd.Context()
			if err := requireAuth(ctx, app); err != nil {
				return err
			}
			owner, err := addOwnerChecked(ctx, app.Client, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Added owner %s (id %d)\n", owner.Username, owner.ID)
			return nil
		})
	},
}

// addOwnerChecked rejects a duplicate username against the current
// owner list before any create call reaches the server.
func addOwnerChecked(ctx context.Context, client *api.Client, sourceID, username string) (models.Owner, error) {
	owners, err := client.Owners(ctx, sourceID)
	if err != nil {
		return models.Owner{}, err
	}
	for _, owner := range owners {
		if owner.Username == username {
			return models.Owner{}, fmt.Errorf("User is already an owner")
		}
	}
	return client.AddOwner(ctx, sourceID, username)
}

var ownersRemoveCmd = &cobra.Command{
	Use:   "remove <source-id> <owner-id>",
	Short: "Revoke ownership of a data source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return di.Invoke(func(app di.App) error {
			ctx := cmd.Context()
			if err := requireAuth(ctx, app); err != nil {
				return err
			}
			ownerID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid owner id %q", args[1])
			}
			if err := app.Client.RemoveOwner(ctx, args[0], ownerID); err != nil {
				return err
			}
			fmt.Println("Owner removed")
			return nil
		})
	},
}

func init() {
	ownersCmd.AddCommand(ownersListCmd, ownersAddCmd, ownersRemoveCmd)
	rootCmd.AddCommand(ownersCmd)
}
