package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/cppla/devboard/models"
)

// DemoPostCount is the number of posts SeedDemoPosts creates by default.
const DemoPostCount = 52

var (
	demoTitles = []string{
		"Getting the most out of React hooks",
		"Building a realtime chat server",
		"Validating request payloads without tears",
		"When to reach for generics",
		"Comparing local LLM runtimes",
		"Aggregation pipelines by example",
		"Is lightweight state management enough?",
		"CSS-in-JS libraries side by side",
		"A reproducible dev environment with Docker",
		"Clean architecture on the backend",
		"Generating boilerplate with AI assistants",
		"Designing document schemas",
		"Server components in depth",
		"Customising utility-first CSS",
		"Benchmarking JavaScript runtimes",
	}
	demoAuthors  = []string{"devkim", "codelee", "junior.park", "senior.choi", "eng.jung", "design.yoon"}
	demoContents = []string{
		"Sharing a few lessons from a recent project. This approach paid off most in large applications.",
		"The concept looks hard at first, but a handful of core rules go a long way. Let us walk through an example.",
		"There are several things to keep in mind when tuning performance. Understanding the rendering pipeline matters most.",
		"The official docs are a bit terse, so here are the notes I collected while figuring things out myself.",
		"Common beginner mistakes and how to avoid them. Hopefully this saves you some time.",
	}
	demoComments = []models.Comment{
		{Author: "cheerbot", Content: "Really useful, thanks for writing this up!"},
		{Author: "curious", Content: "Could you go into more detail on the second part?"},
		{Author: "passerby", Content: "Nice read, bookmarked."},
		{Author: "devilsadvocate", Content: "I see it differently, this has some drawbacks at scale."},
		{Author: "hookmaster", Content: "Another option worth trying, it might be simpler."},
	}
)

// SeedDemoPosts fills an empty board with n demo posts spread over the past days,
// with random views and up to four comments each. It does nothing when any post exists.
func (s *PostService) SeedDemoPosts(ctx context.Context, n int) (int, error) {
	existing, err := s.posts.CountPosts(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	if existing > 0 || n <= 0 {
		return 0, nil
	}

	now := time.Now()
	for i := 0; i < n; i++ {
		created := now.AddDate(0, 0, -i/2).Add(-time.Duration(i%2) * time.Minute)
		comments := make([]models.Comment, rand.Intn(5))
		for j := range comments {
			c := demoComments[j%len(demoComments)]
			c.CreatedAt = created.Add(time.Duration(j+1) * time.Hour)
			c.UpdatedAt = c.CreatedAt
			comments[j] = c
		}
		post := &models.Post{
			Title:     fmt.Sprintf("%s #%d", demoTitles[i%len(demoTitles)], i/5+1),
			Author:    demoAuthors[i%len(demoAuthors)],
			Content:   fmt.Sprintf("Demo post %d. %s", i+1, demoContents[i%len(demoContents)]),
			Views:     int64(rand.Intn(1500)),
			Comments:  comments,
			CreatedAt: created,
			UpdatedAt: created,
		}
		if err := s.posts.CreatePost(ctx, post); err != nil {
			return i, fmt.Errorf("seed post %d: %w", i+1, err)
		}
	}
	return n, nil
}
