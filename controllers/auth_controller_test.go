package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/cppla/devboard/config"
	"github.com/cppla/devboard/services"
	"github.com/cppla/devboard/stores"
)

func newOAuthEngine(t *testing.T, identify func(context.Context, *http.Client) (*services.ProviderIdentity, error)) *gin.Engine {
	t.Helper()
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-token","token_type":"bearer"}`))
	}))
	t.Cleanup(tokenServer.Close)

	store := stores.NewMemoryStore()
	auth := services.NewAuthService(store, []byte("secret"), time.Hour, nil)
	providers := map[string]*OAuthProvider{
		"github": {
			Config: &oauth2.Config{
				ClientID:     "id",
				ClientSecret: "secret",
				RedirectURL:  "http://localhost/auth/oauth/github/callback",
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://provider.example/authorize",
					TokenURL: tokenServer.URL,
				},
			},
			Identify: identify,
		},
	}
	c := NewAuthController(auth, nil, providers)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/auth/oauth/:provider/login", c.OAuthRedirect)
	r.GET("/auth/oauth/:provider/callback", c.OAuthCallback)
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestOAuthRoundTrip(t *testing.T) {
	var gotToken string
	r := newOAuthEngine(t, func(_ context.Context, client *http.Client) (*services.ProviderIdentity, error) {
		tr := client.Transport.(*oauth2.Transport)
		tok, err := tr.Source.Token()
		if err != nil {
			return nil, err
		}
		gotToken = tok.AccessToken
		return &services.ProviderIdentity{Provider: "github", Email: "octo@example.com", Name: "octo"}, nil
	})

	w := get(r, "/auth/oauth/github/login")
	require.Equal(t, http.StatusOK, w.Code)
	var redirect struct {
		AuthorizationURL string `json:"authorizationUrl"`
		State            string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &redirect))
	assert.Contains(t, redirect.AuthorizationURL, "state="+redirect.State)

	q := url.Values{"code": {"abc"}, "state": {redirect.State}}
	w = get(r, "/auth/oauth/github/callback?"+q.Encode())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res services.AuthResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "octo@example.com", res.User.Email)
	assert.Equal(t, "provider-token", gotToken)

	// state is single use
	w = get(r, "/auth/oauth/github/callback?"+q.Encode())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOAuthCallbackRejections(t *testing.T) {
	r := newOAuthEngine(t, func(context.Context, *http.Client) (*services.ProviderIdentity, error) {
		return &services.ProviderIdentity{Provider: "github"}, nil
	})

	assert.Equal(t, http.StatusBadRequest, get(r, "/auth/oauth/gitlab/login").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/auth/oauth/github/callback?code=x").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/auth/oauth/github/callback?code=x&state=forged").Code)
}

func TestNewOAuthProvidersOnlyConfigured(t *testing.T) {
	providers := NewOAuthProviders(config.AppConfig{
		GitHubClientID:     "id",
		GitHubClientSecret: "secret",
		GoogleClientID:     "only-id",
		OAuthRedirectBase:  "https://board.example/",
	})
	require.Contains(t, providers, "github")
	assert.NotContains(t, providers, "google")
	assert.Equal(t, "https://board.example/auth/oauth/github/callback", providers["github"].Config.RedirectURL)
}
