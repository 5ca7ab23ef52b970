package stores

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/devboard/models"
)

// Every backend must pass the same behavioural suite. The document store only runs
// when MONGO_URI points at a reachable server.

func TestMemoryStoreSuite(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestGormStoreSuite(t *testing.T) {
	runStoreSuite(t, newSQLiteStore)
}

func TestMongoStoreSuite(t *testing.T) {
	runStoreSuite(t, newMongoTestStore)
}

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(GormModels()...))

	s := NewGormStore(db)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func newMongoTestStore(t *testing.T) Store {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)

	name := "devboard_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	db := client.Database(name)
	s, err := NewMongoStore(ctx, db)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

// suiteEpoch spaces creation times a second apart so ordering never depends on
// the backend's timestamp precision.
var suiteEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func createSuitePosts(t *testing.T, s Store, titles ...string) []*models.Post {
	t.Helper()
	out := make([]*models.Post, 0, len(titles))
	for i, title := range titles {
		p := &models.Post{
			Title:     title,
			Content:   "body of " + title,
			Author:    "kim",
			CreatedAt: suiteEpoch.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.CreatePost(context.Background(), p))
		require.NotEmpty(t, p.ID)
		out = append(out, p)
	}
	return out
}

func numberedTitles(n int) []string {
	titles := make([]string, n)
	for i := range titles {
		titles[i] = fmt.Sprintf("post %02d", i)
	}
	return titles
}

func titlesOf(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}

func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	t.Run("users", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		u := &models.User{Username: "kim", Email: "kim@example.com", PasswordHash: "h"}
		require.NoError(t, s.CreateUser(ctx, u))
		require.NotEmpty(t, u.ID)

		err := s.CreateUser(ctx, &models.User{Username: "kim2", Email: "kim@example.com"})
		assert.ErrorIs(t, err, ErrDuplicate)

		byEmail, err := s.FindUserByEmail(ctx, "kim@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
		assert.Equal(t, "h", byEmail.PasswordHash)

		byID, err := s.FindUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "kim", byID.Username)

		_, err = s.FindUserByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.FindUserByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		n, err := s.CountUsers(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("latest pages are disjoint and complete", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		createSuitePosts(t, s, numberedTitles(15)...)

		first, total, err := s.ListPosts(ctx, PostQuery{Sort: SortLatest, Offset: 0, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 15, total)
		require.Len(t, first, 10)
		assert.Equal(t, "post 14", first[0].Title)

		second, total, err := s.ListPosts(ctx, PostQuery{Sort: SortLatest, Offset: 10, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 15, total)
		require.Len(t, second, 5)
		assert.Equal(t, "post 00", second[4].Title)

		seen := map[string]bool{}
		for _, p := range append(first, second...) {
			assert.False(t, seen[p.ID], "post %s listed twice", p.Title)
			seen[p.ID] = true
			assert.NotNil(t, p.Comments)
		}
		assert.Len(t, seen, 15)

		beyond, total, err := s.ListPosts(ctx, PostQuery{Sort: SortLatest, Offset: 30, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, beyond)
		assert.EqualValues(t, 15, total)
	})

	t.Run("search matches literal wildcards across fields", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		createSuitePosts(t, s, "React Hooks", "100% coverage", "snake_case names", "plain")
		require.NoError(t, s.CreatePost(ctx, &models.Post{
			Title: "misc", Content: "about REACT", Author: "lee", CreatedAt: suiteEpoch.Add(time.Minute),
		}))

		posts, total, err := s.ListPosts(ctx, PostQuery{Search: "react", Sort: SortLatest, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Equal(t, []string{"misc", "React Hooks"}, titlesOf(posts))

		for term, want := range map[string]string{"%": "100% coverage", "_": "snake_case names"} {
			posts, total, err := s.ListPosts(ctx, PostQuery{Search: term, Sort: SortLatest, Limit: 10})
			require.NoError(t, err, term)
			assert.EqualValues(t, 1, total, term)
			assert.Equal(t, []string{want}, titlesOf(posts), term)
		}

		n, err := s.CountPosts(ctx, "REACT")
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
		n, err = s.CountPosts(ctx, "")
		require.NoError(t, err)
		assert.EqualValues(t, 5, n)
	})

	t.Run("sort by views and comments", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		posts := createSuitePosts(t, s, "a", "b", "c")

		for i := 0; i < 3; i++ {
			_, err := s.AppendComment(ctx, posts[0].ID, models.Comment{Author: "x", Content: "c"})
			require.NoError(t, err)
		}
		_, err := s.AppendComment(ctx, posts[2].ID, models.Comment{Author: "x", Content: "c"})
		require.NoError(t, err)

		byComments, _, err := s.ListPosts(ctx, PostQuery{Sort: SortComments, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c", "b"}, titlesOf(byComments))
		assert.Len(t, byComments[0].Comments, 3)

		for i := 0; i < 2; i++ {
			_, err := s.IncrementViews(ctx, posts[1].ID)
			require.NoError(t, err)
		}
		byViews, _, err := s.ListPosts(ctx, PostQuery{Sort: SortViews, Limit: 10})
		require.NoError(t, err)
		// Ties fall back to newest first.
		assert.Equal(t, []string{"b", "c", "a"}, titlesOf(byViews))
		assert.EqualValues(t, 2, byViews[0].Views)
	})

	t.Run("concurrent views are not lost", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		p := createSuitePosts(t, s, "hot")[0]

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.IncrementViews(ctx, p.ID)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.IncrementViews(ctx, p.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 51, got.Views)

		_, err = s.IncrementViews(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("comments keep append order", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		p := createSuitePosts(t, s, "thread")[0]

		for _, body := range []string{"first", "second", "third"} {
			_, err := s.AppendComment(ctx, p.ID, models.Comment{Author: "lee", Content: body})
			require.NoError(t, err)
		}
		got, err := s.IncrementViews(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, got.Comments, 3)
		for i, body := range []string{"first", "second", "third"} {
			assert.Equal(t, body, got.Comments[i].Content)
			assert.False(t, got.Comments[i].CreatedAt.IsZero())
		}

		n, err := s.CountComments(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		_, err = s.AppendComment(ctx, "missing", models.Comment{Author: "x", Content: "y"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update then delete", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		p := createSuitePosts(t, s, "draft")[0]
		_, err := s.AppendComment(ctx, p.ID, models.Comment{Author: "lee", Content: "hi"})
		require.NoError(t, err)

		title := "final"
		updated, err := s.UpdatePost(ctx, p.ID, PostPatch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "final", updated.Title)
		assert.Equal(t, "body of draft", updated.Content)
		assert.Len(t, updated.Comments, 1)
		assert.True(t, updated.UpdatedAt.After(p.CreatedAt))

		require.NoError(t, s.DeletePost(ctx, p.ID))
		assert.ErrorIs(t, s.DeletePost(ctx, p.ID), ErrNotFound)
		_, err = s.IncrementViews(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.UpdatePost(ctx, p.ID, PostPatch{Title: &title})
		assert.ErrorIs(t, err, ErrNotFound)

		n, err := s.CountPosts(ctx, "")
		require.NoError(t, err)
		assert.Zero(t, n)
		n, err = s.CountComments(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
