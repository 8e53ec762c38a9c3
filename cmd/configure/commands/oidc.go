package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/billminder/billminder/internal/database"
	"github.com/billminder/billminder/internal/models"
)

// NewOIDCCmd creates the OIDC configuration command
func NewOIDCCmd() *cobra.Command {
	var issuer, domain, clientID, clientSecret, redirectURI string

	cmd := &cobra.Command{
		Use:   "oidc <provider-name>",
		Short: "Configure OIDC provider",
		Long:  "Configure an OIDC provider for authentication. Provider name can be any identifier (e.g., 'cognito', 'okta', 'auth0')",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			if provider == "" {
				return fmt.Errorf("provider name cannot be empty")
			}
			if issuer == "" || clientID == "" || redirectURI == "" {
				return fmt.Errorf("required flags: --issuer, --client-id, --redirect-uri (--client-secret is optional for public clients)")
			}

			return withDB(func(ctx context.Context, db *database.DB) error {
				repo := database.NewOIDCConfigRepository(db)
				jwksURL := issuer + "/.well-known/jwks.json"

				existing, err := repo.GetByProvider(ctx, provider)
				if err == nil && existing != nil {
					existing.Issuer = issuer
					existing.ClientID = clientID
					existing.RedirectURI = redirectURI
					existing.JWKSUrl = &jwksURL
					existing.ClientSecret = optional(clientSecret)
					if domain != "" {
						existing.Domain = &domain
					}
					if err := repo.Update(ctx, existing); err != nil {
						return fmt.Errorf("failed to update OIDC config: %w", err)
					}
					fmt.Printf("Updated OIDC configuration for provider: %s\n", provider)
					return nil
				}

				cfg := &models.OIDCConfig{
					ID:           uuid.New(),
					Provider:     provider,
					Issuer:       issuer,
					ClientID:     clientID,
					ClientSecret: optional(clientSecret),
					RedirectURI:  redirectURI,
					Domain:       optional(domain),
					JWKSUrl:      &jwksURL,
				}
				if err := repo.Create(ctx, cfg); err != nil {
					return fmt.Errorf("failed to create OIDC config: %w", err)
				}
				fmt.Printf("Created OIDC configuration for provider: %s\n", provider)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer URL (required)")
	cmd.Flags().StringVar(&domain, "domain", "", "OAuth2 domain (optional, e.g., for Cognito custom domains)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID (required)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret (optional for public clients)")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "OAuth2 redirect URI (required)")

	return cmd
}

// optional returns nil for empty strings so blank flags clear the column.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
