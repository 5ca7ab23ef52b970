// Package client is a Go client for the board's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/devboard/models"
)

// APIError is any non-2xx response. Message is the server's text, suitable for display.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// ListOptions are the query parameters of ListPosts. Zero values use server defaults.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
	Sort   string
}

// PostPage is one page of the post listing.
type PostPage struct {
	Posts       []models.Post `json:"posts"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
}

// Stats mirrors the /stats payload.
type Stats struct {
	UserCount    int64 `json:"userCount"`
	PostCount    int64 `json:"postCount"`
	CommentCount int64 `json:"commentCount"`
}

type authResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// Client talks to one board server. Session is updated by Signup, Login and Logout
// and sent as a bearer token on every request while set. If SessionPath is set the
// session is persisted there on every change.
type Client struct {
	BaseURL     string
	HTTPClient  *http.Client
	Session     Session
	SessionPath string
}

// New creates a Client for baseURL, restoring a session saved at sessionPath when given.
func New(baseURL, sessionPath string) (*Client, error) {
	c := &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
		SessionPath: sessionPath,
	}
	if sessionPath != "" {
		s, err := LoadSession(sessionPath)
		if err != nil {
			return nil, err
		}
		c.Session = s
	}
	return c, nil
}

// Signup registers an account and starts a session for it.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*models.PublicUser, error) {
	var res authResponse
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/signup", body, &res); err != nil {
		return nil, err
	}
	return &res.User, c.setSession(Session{Token: res.Token, User: &res.User})
}

// Login starts a session with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*models.PublicUser, error) {
	var res authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return nil, err
	}
	return &res.User, c.setSession(Session{Token: res.Token, User: &res.User})
}

// Logout revokes the token on the server and clears the session. The local session
// is cleared even if the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	var err error
	if c.Session.LoggedIn() {
		err = c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	}
	if clearErr := c.setSession(Session{}); err == nil {
		err = clearErr
	}
	return err
}

// Me returns the user the current session belongs to.
func (c *Client) Me(ctx context.Context) (*models.PublicUser, error) {
	var u models.PublicUser
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListPosts fetches one page of posts.
func (c *Client) ListPosts(ctx context.Context, opts ListOptions) (*PostPage, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	path := "/posts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page PostPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPost fetches a post, which counts as a view.
func (c *Client) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return c.post(ctx, http.MethodGet, "/posts/"+url.PathEscape(id), nil)
}

// CreatePost publishes a post. An empty author lets a signed-in server fill it in.
func (c *Client) CreatePost(ctx context.Context, title, content, author string) (*models.Post, error) {
	body := map[string]string{"title": title, "content": content}
	if author != "" {
		body["author"] = author
	}
	return c.post(ctx, http.MethodPost, "/posts", body)
}

// UpdatePost changes the non-nil fields of a post.
func (c *Client) UpdatePost(ctx context.Context, id string, title, content *string) (*models.Post, error) {
	body := map[string]*string{}
	if title != nil {
		body["title"] = title
	}
	if content != nil {
		body["content"] = content
	}
	return c.post(ctx, http.MethodPatch, "/posts/"+url.PathEscape(id), body)
}

// DeletePost removes a post and returns the server's confirmation.
func (c *Client) DeletePost(ctx context.Context, id string) (string, error) {
	var res struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), nil, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// AddComment comments on a post and returns the updated post.
func (c *Client) AddComment(ctx context.Context, postID, author, content string) (*models.Post, error) {
	body := map[string]string{"content": content}
	if author != "" {
		body["author"] = author
	}
	return c.post(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/comments", body)
}

// Stats fetches board counters.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) post(ctx context.Context, method, path string, body interface{}) (*models.Post, error) {
	var p models.Post
	if err := c.do(ctx, method, path, body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) setSession(s Session) error {
	c.Session = s
	if c.SessionPath == "" {
		return nil
	}
	if !s.LoggedIn() {
		return ClearSession(c.SessionPath)
	}
	return SaveSession(c.SessionPath, s)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Session.LoggedIn() {
		req.Header.Set("Authorization", "Bearer "+c.Session.Token)
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(b, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(b))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
