package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/billminder/billminder/internal/database"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured OIDC providers",
		Long:  "List all configured OIDC providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, db *database.DB) error {
				configs, err := database.NewOIDCConfigRepository(db).GetAll(ctx)
				if err != nil {
					return fmt.Errorf("failed to list OIDC configs: %w", err)
				}

				if len(configs) == 0 {
					fmt.Println("No OIDC providers configured")
					return nil
				}

				fmt.Println("Configured OIDC providers:")
				for _, c := range configs {
					fmt.Printf("  - Provider: %s\n", c.Provider)
					fmt.Printf("    Issuer: %s\n", c.Issuer)
					fmt.Printf("    Client ID: %s\n", c.ClientID)
					fmt.Printf("    Redirect URI: %s\n", c.RedirectURI)
					if c.JWKSUrl != nil {
						fmt.Printf("    JWKS URL: %s\n", *c.JWKSUrl)
					}
					fmt.Println()
				}
				return nil
			})
		},
	}
}
