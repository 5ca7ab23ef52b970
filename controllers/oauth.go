package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/cppla/devboard/config"
	"github.com/cppla/devboard/services"
)

// OAuthProvider pairs an oauth2 config with the call that reads the signed-in identity.
type OAuthProvider struct {
	Config   *oauth2.Config
	Identify func(ctx context.Context, client *http.Client) (*services.ProviderIdentity, error)
}

// NewOAuthProviders returns the providers that have client credentials configured.
func NewOAuthProviders(cfg config.AppConfig) map[string]*OAuthProvider {
	providers := map[string]*OAuthProvider{}
	base := strings.TrimRight(cfg.OAuthRedirectBase, "/")
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		providers["github"] = &OAuthProvider{
			Config: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				RedirectURL:  base + "/auth/oauth/github/callback",
				Scopes:       []string{"read:user", "user:email"},
				Endpoint:     github.Endpoint,
			},
			Identify: fetchGitHubIdentity,
		}
	}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		providers["google"] = &OAuthProvider{
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  base + "/auth/oauth/google/callback",
				Scopes:       []string{"openid", "profile", "email"},
				Endpoint:     google.Endpoint,
			},
			Identify: fetchGoogleIdentity,
		}
	}
	return providers
}

func fetchGitHubIdentity(ctx context.Context, client *http.Client) (*services.ProviderIdentity, error) {
	var payload struct {
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user", &payload); err != nil {
		return nil, err
	}

	email := payload.Email
	if email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err != nil {
			return nil, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	return &services.ProviderIdentity{
		Provider: "github",
		Email:    email,
		Name:     fallback(payload.Name, payload.Login),
	}, nil
}

func fetchGoogleIdentity(ctx context.Context, client *http.Client) (*services.ProviderIdentity, error) {
	var payload struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
		return nil, err
	}
	if !payload.VerifiedEmail {
		payload.Email = ""
	}
	return &services.ProviderIdentity{
		Provider: "google",
		Email:    payload.Email,
		Name:     payload.Name,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
