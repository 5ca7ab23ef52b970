// Package stores holds the persistence adapters for users and posts.
package stores

import (
	"context"
	"errors"
	"strings"

	"github.com/cppla/devboard/models"
)

var (
	// ErrNotFound is returned when a user or post id/email does not resolve.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint (user email) is violated.
	ErrDuplicate = errors.New("duplicate record")
)

// SortKey selects the ordering of a post listing. Every key sorts descending.
type SortKey string

const (
	SortLatest   SortKey = "latest"
	SortViews    SortKey = "views"
	SortComments SortKey = "comments"
)

// ParseSortKey maps a query value to a SortKey. "popular" is an alias of views;
// empty or unknown values fall back to latest.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "popular", "views":
		return SortViews
	case "comments":
		return SortComments
	default:
		return SortLatest
	}
}

// Value returns the comparable sort value of p under k.
func (k SortKey) Value(p *models.Post) int64 {
	switch k {
	case SortViews:
		return p.Views
	case SortComments:
		return int64(len(p.Comments))
	default:
		return p.CreatedAt.UnixNano()
	}
}

// PostQuery describes one page of a filtered, sorted listing.
type PostQuery struct {
	Search string
	Sort   SortKey
	Offset int
	Limit  int
}

// PostPatch carries the fields of an update; nil fields are left untouched.
type PostPatch struct {
	Title   *string
	Content *string
}

// Empty reports whether the patch changes nothing.
func (p PostPatch) Empty() bool {
	return p.Title == nil && p.Content == nil
}

// UserStore persists user credentials.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// PostStore persists posts with their embedded comments.
type PostStore interface {
	// ListPosts returns the requested page and the number of posts matching the search.
	ListPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error)
	// IncrementViews atomically adds one view and returns the updated post.
	IncrementViews(ctx context.Context, id string) (*models.Post, error)
	CreatePost(ctx context.Context, p *models.Post) error
	UpdatePost(ctx context.Context, id string, patch PostPatch) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
	// AppendComment adds c at the end of the post's comments and returns the updated post.
	AppendComment(ctx context.Context, postID string, c models.Comment) (*models.Post, error)
	// CountPosts counts the posts matching search; an empty search counts all.
	CountPosts(ctx context.Context, search string) (int64, error)
	CountComments(ctx context.Context) (int64, error)
}

// Store bundles both stores, as every backend implements them together.
type Store interface {
	UserStore
	PostStore
	Close(ctx context.Context) error
}
