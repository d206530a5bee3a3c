package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// OAuthProvider describes one third-party identity provider wired into the
// /api/v1/auth/oauth/:provider/callback flow.
type OAuthProvider struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
	// RedirectBase is the application origin; the provider callback path is
	// derived from it.
	RedirectBase string
}

// Config builds the oauth2 configuration for the provider.
func (p OAuthProvider) Config() (*oauth2.Config, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("oauth: provider name is required")
	}
	if p.ClientID == "" || p.AuthURL == "" || p.TokenURL == "" {
		return nil, fmt.Errorf("oauth: provider %q is missing clientId or endpoint URLs", p.Name)
	}
	base := strings.TrimRight(p.RedirectBase, "/")
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Scopes:       p.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthURL,
			TokenURL: p.TokenURL,
		},
		RedirectURL: fmt.Sprintf("%s/api/v1/auth/oauth/%s/callback", base, p.Name),
	}, nil
}

// AuthCodeURL returns the provider's consent page URL for the given state.
func (p OAuthProvider) AuthCodeURL(state string) (string, error) {
	cfg, err := p.Config()
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange trades an authorization code for a provider token.
func (p OAuthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	cfg, err := p.Config()
	if err != nil {
		return nil, err
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth: exchange code with %s: %w", p.Name, err)
	}
	return tok, nil
}
