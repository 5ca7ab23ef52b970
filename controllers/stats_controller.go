package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/devboard/services"
	"github.com/cppla/devboard/utils"
)

// StatsController provides board statistics.
type StatsController struct {
	posts *services.PostService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(posts *services.PostService) *StatsController {
	return &StatsController{posts: posts}
}

// GetStats returns aggregate counts of users, posts and comments.
func (s *StatsController) GetStats(ctx *gin.Context) {
	st, err := s.posts.Stats(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, st)
}
