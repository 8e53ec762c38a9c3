package oidc

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/billminder/billminder/internal/models"
)

// Client wraps the oauth2 authorization code flow for a configured provider.
type Client struct {
	config *oauth2.Config
}

// NewClient creates an OAuth2 client from OIDC config. ClientSecret stays
// empty for public clients.
func NewClient(oidcConfig *models.OIDCConfig) *Client {
	var secret string
	if oidcConfig.ClientSecret != nil {
		secret = *oidcConfig.ClientSecret
	}

	return &Client{config: &oauth2.Config{
		ClientID:     oidcConfig.ClientID,
		ClientSecret: secret,
		RedirectURL:  oidcConfig.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  issuerEndpoint(oidcConfig.Issuer, "oauth2/authorize"),
			TokenURL: issuerEndpoint(oidcConfig.Issuer, "oauth2/token"),
		},
	}}
}

// ExchangeCode exchanges an authorization code for tokens
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code)
}

// AuthCodeURL returns the authorization URL
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}
