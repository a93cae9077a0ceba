// Package auth wraps the external OAuth identity provider. The service
// delegates authentication entirely: it sends the user through the
// provider's authorization-code flow and consumes a verified
// (external_id, email, name, picture) tuple from the userinfo endpoint,
// nothing else.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/versefeed/versefeed/internal/config"
)

// Identity is the tuple the rest of the application consumes from the
// provider.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
	Picture    string
}

// Provider performs the code exchange and userinfo fetch against the
// configured identity provider.
type Provider struct {
	oauth       *oauth2.Config
	userInfoURL string
	client      *http.Client
}

// NewProvider builds a Provider from configuration. Provider HTTP calls use
// a fixed request timeout; a timed-out call surfaces as an error to the
// caller, the same as any non-200 response.
func NewProvider(cfg config.Config) *Provider {
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuthAuthURL,
				TokenURL: cfg.OAuthTokenURL,
			},
		},
		userInfoURL: cfg.OAuthUserInfoURL,
		client:      &http.Client{Timeout: cfg.OAuthTimeout},
	}
}

// AuthURL returns the provider URL to redirect the user to, carrying the
// anti-CSRF state value.
func (p *Provider) AuthURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange trades the callback code for a token.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	return p.oauth.Exchange(ctx, code)
}

// FetchIdentity retrieves the userinfo tuple with the exchanged token.
func (p *Provider) FetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return Identity{}, err
	}
	token.SetAuthHeader(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return Identity{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, err
	}

	// Providers disagree on the subject field name ("id" vs "sub").
	var info struct {
		ID      string `json:"id"`
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return Identity{}, err
	}
	external := info.ID
	if external == "" {
		external = info.Sub
	}
	if external == "" {
		return Identity{}, fmt.Errorf("userinfo: no subject identifier in response")
	}
	return Identity{ExternalID: external, Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}
