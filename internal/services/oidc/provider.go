package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/billminder/billminder/internal/database"
	"github.com/billminder/billminder/internal/models"
)

// Provider manages OIDC provider configuration
type Provider struct {
	repo *database.OIDCConfigRepository
}

// NewProvider creates a new OIDC provider manager
func NewProvider(repo *database.OIDCConfigRepository) *Provider {
	return &Provider{repo: repo}
}

// GetConfig retrieves OIDC configuration for a provider
func (p *Provider) GetConfig(ctx context.Context, providerName string) (*models.OIDCConfig, error) {
	config, err := p.repo.GetByProvider(ctx, providerName)
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC config: %w", err)
	}
	return config, nil
}

// GetLoginConfig returns the endpoints and client settings the frontend
// needs to start an authorization code flow.
func (p *Provider) GetLoginConfig(ctx context.Context, providerName string) (*LoginConfig, error) {
	config, err := p.GetConfig(ctx, providerName)
	if err != nil {
		return nil, err
	}

	authEndpoint := discoverAuthorizationEndpoint(config.Issuer)
	if authEndpoint == "" {
		authEndpoint = issuerEndpoint(config.Issuer, "oauth2/authorize")
	}
	tokenEndpoint := issuerEndpoint(config.Issuer, "oauth2/token")

	// Cognito OAuth2 flows go through the user pool domain, not the issuer.
	if config.Domain != nil && *config.Domain != "" && strings.Contains(config.Issuer, "cognito-idp.") {
		base := *config.Domain
		if !strings.HasPrefix(base, "https://") {
			base = "https://" + base
		}
		authEndpoint = base + "/oauth2/authorize"
		tokenEndpoint = base + "/oauth2/token"
	}

	return &LoginConfig{
		AuthorizationEndpoint: authEndpoint,
		TokenEndpoint:         tokenEndpoint,
		ClientID:              config.ClientID,
		RedirectURI:           config.RedirectURI,
		Scope:                 "openid email profile",
	}, nil
}

// discoverAuthorizationEndpoint reads the issuer's OIDC discovery document.
// Returns "" on any failure so callers fall back to issuer-derived endpoints.
func discoverAuthorizationEndpoint(issuer string) string {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(issuerEndpoint(issuer, ".well-known/openid-configuration"))
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var discovery struct {
		AuthorizationEndpoint string `json:"authorization_endpoint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&discovery); err != nil {
		return ""
	}
	return discovery.AuthorizationEndpoint
}

func issuerEndpoint(issuer, path string) string {
	return strings.TrimSuffix(issuer, "/") + "/" + path
}

// LoginConfig contains OIDC login configuration for frontend
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}
