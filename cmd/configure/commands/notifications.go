package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/billminder/billminder/internal/database"
	"github.com/billminder/billminder/internal/models"
)

// NewNotificationsCmd creates the notifications configuration command with
// list and set subcommands.
func NewNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Manage notification defaults",
		Long:  "List or update the default reminder frequency applied to devices without saved settings. Stored in database.",
	}
	cmd.AddCommand(newNotificationsListCmd())
	cmd.AddCommand(newNotificationsSetCmd())
	return cmd
}

func newNotificationsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current notification defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, db *database.DB) error {
				c, err := database.NewNotificationConfigRepository(db).Get(ctx)
				if err != nil {
					return fmt.Errorf("get notification config: %w", err)
				}
				if c == nil {
					fmt.Println("No notification defaults in database. Use 'notifications set' to add one.")
					return nil
				}
				fmt.Println("Notification defaults:")
				fmt.Printf("  Default frequency: %s\n", c.DefaultFrequency)
				return nil
			})
		},
	}
}

func newNotificationsSetCmd() *cobra.Command {
	var frequency string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set notification defaults",
		Long:  "Update the default reminder frequency (off, due-only, urgent-due, 3-day, 5-day). Stored in database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			freq := models.ReminderFrequency(strings.TrimSpace(frequency))
			if !freq.Valid() {
				return fmt.Errorf("--frequency must be one of: off, due-only, urgent-due, 3-day, 5-day")
			}
			return withDB(func(ctx context.Context, db *database.DB) error {
				repo := database.NewNotificationConfigRepository(db)
				if err := repo.Set(ctx, &models.NotificationConfig{DefaultFrequency: freq}); err != nil {
					return fmt.Errorf("set notification config: %w", err)
				}
				fmt.Println("Notification defaults updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&frequency, "frequency", "", "Default reminder frequency (required)")
	return cmd
}
