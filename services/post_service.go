package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cppla/devboard/models"
	"github.com/cppla/devboard/stores"
	"github.com/cppla/devboard/utils"
)

// ListParams selects one page of the post listing.
type ListParams struct {
	Page   int
	Limit  int
	Search string
	Sort   string
}

// PageEnvelope is one page of posts plus paging metadata.
type PageEnvelope struct {
	Posts       []models.Post `json:"posts"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
}

// CreatePostInput is the payload of a new post.
type CreatePostInput struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
	Author  string `json:"author" validate:"required,max=64"`
}

// UpdatePostInput carries the fields to change; nil fields are kept.
type UpdatePostInput struct {
	Title   *string `json:"title" validate:"omitempty,max=255"`
	Content *string `json:"content"`
}

// CommentInput is the payload of a new comment.
type CommentInput struct {
	Author  string `json:"author" validate:"required,max=64"`
	Content string `json:"content" validate:"required"`
}

// Stats holds board wide counters.
type Stats struct {
	UserCount    int64 `json:"userCount"`
	PostCount    int64 `json:"postCount"`
	CommentCount int64 `json:"commentCount"`
}

// PostService lists, reads and mutates posts and their comments.
type PostService struct {
	posts    stores.PostStore
	users    stores.UserStore
	validate *validator.Validate
}

// NewPostService creates a PostService. users is only consulted for Stats.
func NewPostService(posts stores.PostStore, users stores.UserStore) *PostService {
	return &PostService{posts: posts, users: users, validate: newValidator()}
}

// ListPosts returns the requested page of posts matching the search, in sort order.
func (s *PostService) ListPosts(ctx context.Context, p ListParams) (*PageEnvelope, error) {
	if p.Page < 1 {
		return nil, fmt.Errorf("%w: page must be at least 1", ErrValidation)
	}
	if p.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrValidation)
	}

	search := strings.TrimSpace(p.Search)
	if p.Page-1 > math.MaxInt/p.Limit {
		// The offset is past any store's capacity; only the page count is needed.
		total, err := s.posts.CountPosts(ctx, search)
		if err != nil {
			return nil, fmt.Errorf("count posts: %w", err)
		}
		return newPage([]models.Post{}, p, total), nil
	}

	posts, total, err := s.posts.ListPosts(ctx, stores.PostQuery{
		Search: search,
		Sort:   stores.ParseSortKey(p.Sort),
		Offset: (p.Page - 1) * p.Limit,
		Limit:  p.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return newPage(posts, p, total), nil
}

func newPage(posts []models.Post, p ListParams, total int64) *PageEnvelope {
	return &PageEnvelope{
		Posts:       posts,
		CurrentPage: p.Page,
		TotalPages:  int((total + int64(p.Limit) - 1) / int64(p.Limit)),
	}
}

// GetPost returns a post after counting one more view of it.
func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	post, err := s.posts.IncrementViews(ctx, id)
	if err != nil {
		return nil, storeError("get post", err)
	}
	return post, nil
}

// CreatePost stores a new post with no views and no comments.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	in.Title = utils.SanitizePlain(in.Title)
	in.Author = utils.SanitizePlain(in.Author)
	in.Content = strings.TrimSpace(utils.Sanitize(in.Content))
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    in.Title,
		Content:  in.Content,
		Author:   in.Author,
		Comments: []models.Comment{},
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// UpdatePost merges the supplied fields into the post and bumps its updatedAt.
func (s *PostService) UpdatePost(ctx context.Context, id string, in UpdatePostInput) (*models.Post, error) {
	var patch stores.PostPatch
	if in.Title != nil {
		t := utils.SanitizePlain(*in.Title)
		if t == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
		}
		patch.Title = &t
	}
	if in.Content != nil {
		c := strings.TrimSpace(utils.Sanitize(*in.Content))
		if c == "" {
			return nil, fmt.Errorf("%w: content must not be empty", ErrValidation)
		}
		patch.Content = &c
	}
	in.Title, in.Content = patch.Title, patch.Content
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}

	post, err := s.posts.UpdatePost(ctx, id, patch)
	if err != nil {
		return nil, storeError("update post", err)
	}
	return post, nil
}

// DeletePost removes a post with its comments and returns a confirmation message.
func (s *PostService) DeletePost(ctx context.Context, id string) (string, error) {
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return "", storeError("delete post", err)
	}
	return fmt.Sprintf("post %s deleted", id), nil
}

// AddComment appends a comment to the post and returns the updated post.
func (s *PostService) AddComment(ctx context.Context, postID string, in CommentInput) (*models.Post, error) {
	in.Author = utils.SanitizePlain(in.Author)
	in.Content = strings.TrimSpace(utils.Sanitize(in.Content))
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}

	post, err := s.posts.AppendComment(ctx, postID, models.Comment{
		Author:  in.Author,
		Content: in.Content,
	})
	if err != nil {
		return nil, storeError("add comment", err)
	}
	return post, nil
}

// Stats counts users, posts and comments.
func (s *PostService) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	var err error
	if st.UserCount, err = s.users.CountUsers(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if st.PostCount, err = s.posts.CountPosts(ctx, ""); err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	if st.CommentCount, err = s.posts.CountComments(ctx); err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	return &st, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, stores.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
