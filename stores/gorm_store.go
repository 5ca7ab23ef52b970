package stores

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/devboard/models"
)

// commentCountExpr counts a post's rows in the comments table.
const commentCountExpr = "(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id)"

// GormStore persists users and posts in a relational database. Comments live in
// their own table and are preloaded in insertion order.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore wraps an opened and migrated gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// GormModels lists the tables the store needs migrated.
func GormModels() []interface{} {
	return []interface{}{&models.User{}, &models.Post{}, &models.Comment{}}
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return translateGormError(err)
	}
	return nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &user, nil
}

func (s *GormStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (s *GormStore) ListPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error) {
	total, err := s.CountPosts(ctx, q.Search)
	if err != nil {
		return nil, 0, err
	}

	posts := []models.Post{}
	err = s.db.WithContext(ctx).
		Scopes(searchScope(q.Search)).
		Order(orderExpr(q.Sort)).
		Order("created_at DESC").
		Order("id DESC").
		Offset(q.Offset).
		Limit(q.Limit).
		Preload("Comments", orderComments).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *GormStore) IncrementViews(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).Where("id = ?", id).UpdateColumn("views", gorm.Expr("views + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Preload("Comments", orderComments).Where("id = ?", id).First(&post).Error
	})
	if err != nil {
		return nil, translateGormError(err)
	}
	return &post, nil
}

func (s *GormStore) CreatePost(ctx context.Context, p *models.Post) error {
	return translateGormError(s.db.WithContext(ctx).Create(p).Error)
}

func (s *GormStore) UpdatePost(ctx context.Context, id string, patch PostPatch) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&post).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{"updated_at": time.Now()}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if patch.Content != nil {
			updates["content"] = *patch.Content
		}
		if err := tx.Model(&post).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Preload("Comments", orderComments).Where("id = ?", id).First(&post).Error
	})
	if err != nil {
		return nil, translateGormError(err)
	}
	return &post, nil
}

func (s *GormStore) DeletePost(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error
	})
	return translateGormError(err)
}

func (s *GormStore) AppendComment(ctx context.Context, postID string, c models.Comment) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", postID).First(&post).Error; err != nil {
			return err
		}
		c.ID = 0
		c.PostID = postID
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		if err := tx.Model(&post).UpdateColumn("updated_at", c.CreatedAt).Error; err != nil {
			return err
		}
		return tx.Preload("Comments", orderComments).Where("id = ?", postID).First(&post).Error
	})
	if err != nil {
		return nil, translateGormError(err)
	}
	return &post, nil
}

func (s *GormStore) CountPosts(ctx context.Context, search string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).Scopes(searchScope(search)).Count(&n).Error
	return n, err
}

func (s *GormStore) CountComments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Comment{}).Count(&n).Error
	return n, err
}

func (s *GormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// searchScope matches term as a case-insensitive substring of title, content or author.
func searchScope(term string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if term == "" {
			return db
		}
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		return db.Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(content) LIKE ? ESCAPE '!' OR LOWER(author) LIKE ? ESCAPE '!'", like, like, like)
	}
}

func orderExpr(k SortKey) string {
	switch k {
	case SortViews:
		return "views DESC"
	case SortComments:
		return commentCountExpr + " DESC"
	default:
		return "created_at DESC"
	}
}

func orderComments(db *gorm.DB) *gorm.DB {
	return db.Order("comments.created_at ASC").Order("comments.id ASC")
}

// likeEscaper escapes LIKE wildcards with '!', which every supported dialect
// accepts in an ESCAPE clause.
var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func translateGormError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
