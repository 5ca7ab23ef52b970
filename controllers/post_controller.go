package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/devboard/middleware"
	"github.com/cppla/devboard/services"
	"github.com/cppla/devboard/utils"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PostController manages post listing, reading and mutation, and comments.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a PostController.
func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

// ListPosts returns one page of posts, optionally filtered by search and sorted.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, limit := parsePagination(ctx)
	res, err := p.posts.ListPosts(ctx.Request.Context(), services.ListParams{
		Page:   page,
		Limit:  limit,
		Search: ctx.Query("search"),
		Sort:   ctx.DefaultQuery("sort", "latest"),
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// GetPost returns a post with its comments and counts the view.
func (p *PostController) GetPost(ctx *gin.Context) {
	post, err := p.posts.GetPost(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// CreatePost stores a new post. Authenticated callers may omit the author.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req services.CreatePostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}
	req.Author = authorOrCurrentUser(ctx, req.Author)

	post, err := p.posts.CreatePost(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, post)
}

// UpdatePost changes title and/or content of a post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req services.UpdatePostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}

	post, err := p.posts.UpdatePost(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// DeletePost removes a post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	msg, err := p.posts.DeletePost(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": msg})
}

// AddComment appends a comment and returns the whole post.
func (p *PostController) AddComment(ctx *gin.Context) {
	var req services.CommentInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}
	req.Author = authorOrCurrentUser(ctx, req.Author)

	post, err := p.posts.AddComment(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// parsePagination reads page and limit, falling back to defaults on bad input.
func parsePagination(ctx *gin.Context) (page, limit int) {
	page, limit = 1, defaultPageSize
	if v := strings.TrimSpace(ctx.Query("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := strings.TrimSpace(ctx.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, maxPageSize)
		}
	}
	return page, limit
}

func authorOrCurrentUser(ctx *gin.Context, author string) string {
	if strings.TrimSpace(author) != "" {
		return author
	}
	if user, ok := middleware.CurrentUser(ctx); ok {
		return user.Username
	}
	return author
}
