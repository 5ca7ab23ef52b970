package stores

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/cppla/devboard/models"
)

// MongoStore persists users and posts as documents; comments are embedded in posts.
type MongoStore struct {
	users *mongo.Collection
	posts *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore binds the store to the users and posts collections of db and makes
// sure the indexes it relies on exist.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	s := &MongoStore{
		users: db.Collection("users"),
		posts: db.Collection("posts"),
	}
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, err
	}
	if _, err := s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "views", Value: -1}}},
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	u.Prepare(time.Now())
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		return translateMongoError(err)
	}
	return nil
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&user); err != nil {
		return nil, translateMongoError(err)
	}
	return &user, nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&user); err != nil {
		return nil, translateMongoError(err)
	}
	return &user, nil
}

func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	return s.users.CountDocuments(ctx, bson.D{})
}

func (s *MongoStore) ListPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error) {
	filter := searchFilter(q.Search)
	total, err := s.posts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := s.posts.Aggregate(ctx, listPipeline(filter, q))
	if err != nil {
		return nil, 0, err
	}
	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, 0, err
	}
	for i := range posts {
		if posts[i].Comments == nil {
			posts[i].Comments = []models.Comment{}
		}
	}
	return posts, total, nil
}

func (s *MongoStore) IncrementViews(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := s.posts.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "views", Value: 1}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err != nil {
		return nil, translateMongoError(err)
	}
	return &post, nil
}

func (s *MongoStore) CreatePost(ctx context.Context, p *models.Post) error {
	p.Prepare(time.Now())
	_, err := s.posts.InsertOne(ctx, p)
	return translateMongoError(err)
}

func (s *MongoStore) UpdatePost(ctx context.Context, id string, patch PostPatch) (*models.Post, error) {
	set := bson.D{{Key: "updatedAt", Value: time.Now()}}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Content != nil {
		set = append(set, bson.E{Key: "content", Value: *patch.Content})
	}
	return s.findAndUpdate(ctx, id, bson.D{{Key: "$set", Value: set}})
}

func (s *MongoStore) DeletePost(ctx context.Context, id string) error {
	res, err := s.posts.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) AppendComment(ctx context.Context, postID string, c models.Comment) (*models.Post, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = c.CreatedAt
	return s.findAndUpdate(ctx, postID, bson.D{
		{Key: "$push", Value: bson.D{{Key: "comments", Value: c}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: c.CreatedAt}}},
	})
}

func (s *MongoStore) CountPosts(ctx context.Context, search string) (int64, error) {
	return s.posts.CountDocuments(ctx, searchFilter(search))
}

func (s *MongoStore) CountComments(ctx context.Context) (int64, error) {
	cursor, err := s.posts.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: commentCountField()}}},
		}}},
	})
	if err != nil {
		return 0, err
	}
	var out []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Total, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.posts.Database().Client().Disconnect(ctx)
}

func (s *MongoStore) findAndUpdate(ctx context.Context, id string, update bson.D) (*models.Post, error) {
	var post models.Post
	err := s.posts.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err != nil {
		return nil, translateMongoError(err)
	}
	return &post, nil
}

// searchFilter matches term as a case-insensitive substring of title, content or author.
func searchFilter(term string) bson.D {
	if term == "" {
		return bson.D{}
	}
	re := bson.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "title", Value: re}},
		bson.D{{Key: "content", Value: re}},
		bson.D{{Key: "author", Value: re}},
	}}}
}

// listPipeline derives a sortKey field for every sort mode so all modes share one
// match/sort/skip/limit path.
func listPipeline(filter bson.D, q PostQuery) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$addFields", Value: bson.D{{Key: "sortKey", Value: sortKeyExpr(q.Sort)}}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "sortKey", Value: -1},
			{Key: "createdAt", Value: -1},
			{Key: "_id", Value: -1},
		}}},
		{{Key: "$skip", Value: int64(q.Offset)}},
		{{Key: "$limit", Value: int64(q.Limit)}},
		{{Key: "$project", Value: bson.D{{Key: "sortKey", Value: 0}}}},
	}
}

func sortKeyExpr(k SortKey) interface{} {
	switch k {
	case SortViews:
		return "$views"
	case SortComments:
		return commentCountField()
	default:
		return "$createdAt"
	}
}

func commentCountField() bson.D {
	return bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$comments", bson.A{}}}}}}
}

func translateMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}
