package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/devboard/config"
	"github.com/cppla/devboard/routes"
	"github.com/cppla/devboard/services"
	"github.com/cppla/devboard/stores"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := stores.NewMemoryStore()
	cfg := config.AppConfig{JWTSecret: "client-test", GinMode: "test", RateLimitPerMinute: 6000}
	srv := httptest.NewServer(routes.SetupRouter(routes.Deps{
		Config: cfg,
		Auth:   services.NewAuthService(store, []byte(cfg.JWTSecret), time.Hour, nil),
		Posts:  services.NewPostService(store, store),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSessionLifecycleIsPersisted(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	c, err := New(srv.URL, path)
	require.NoError(t, err)
	assert.False(t, c.Session.LoggedIn())

	user, err := c.Signup(ctx, "kim", "kim@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "kim", user.Username)
	assert.True(t, c.Session.LoggedIn())

	// A new client picks the session up from disk.
	restored, err := New(srv.URL, path)
	require.NoError(t, err)
	require.True(t, restored.Session.LoggedIn())
	me, err := restored.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	require.NoError(t, restored.Logout(ctx))
	assert.False(t, restored.Session.LoggedIn())
	assert.NoFileExists(t, path)

	// The old token was revoked server side.
	_, err = c.Me(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestPostsThroughClient(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c, err := New(srv.URL, "")
	require.NoError(t, err)
	_, err = c.Login(ctx, "nobody@example.com", "secret1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.NotEmpty(t, apiErr.Message)

	_, err = c.Signup(ctx, "kim", "kim@example.com", "secret1")
	require.NoError(t, err)

	post, err := c.CreatePost(ctx, "Hello", "World", "")
	require.NoError(t, err)
	assert.Equal(t, "kim", post.Author)

	post, err = c.AddComment(ctx, post.ID, "", "first!")
	require.NoError(t, err)
	require.Len(t, post.Comments, 1)
	assert.Equal(t, "kim", post.Comments[0].Author)

	title := "Hello again"
	post, err = c.UpdatePost(ctx, post.ID, &title, nil)
	require.NoError(t, err)
	assert.Equal(t, title, post.Title)

	got, err := c.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Views)

	page, err := c.ListPosts(ctx, ListOptions{Page: 1, Limit: 5, Search: "again", Sort: "comments"})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, 1, page.TotalPages)

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{UserCount: 1, PostCount: 1, CommentCount: 1}, *st)

	msg, err := c.DeletePost(ctx, post.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, msg)

	_, err = c.GetPost(ctx, post.ID)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "post not found", apiErr.Message)
}

func TestNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)
	_, err = c.Stats(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestLoadSessionMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadSession(filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())

	good := filepath.Join(dir, "good.json")
	require.NoError(t, SaveSession(good, Session{Token: "t"}))
	loaded, err := LoadSession(good)
	require.NoError(t, err)
	assert.Equal(t, "t", loaded.Token)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = LoadSession(bad)
	assert.Error(t, err)
}
