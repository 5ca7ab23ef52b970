package stores

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cppla/devboard/models"
)

// MemoryStore keeps users and posts in process memory. Posts are held in insertion
// order; listings break ties newest first.
type MemoryStore struct {
	mu    sync.RWMutex
	users []*models.User
	posts []*models.Post
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}
	u.Prepare(m.now())
	cp := *u
	m.users = append(m.users, &cp)
	return nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CountUsers(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *MemoryStore) ListPosts(_ context.Context, q PostQuery) ([]models.Post, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := m.matchLocked(q.Search)
	slices.Reverse(matched)

	// Ties go to the newest post, then the most recently inserted one.
	key := q.Sort
	sort.SliceStable(matched, func(i, j int) bool {
		vi, vj := key.Value(matched[i]), key.Value(matched[j])
		if vi != vj {
			return vi > vj
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	page := []models.Post{}
	if q.Offset >= 0 && q.Offset < len(matched) {
		end := len(matched)
		if q.Limit > 0 && q.Limit < end-q.Offset {
			end = q.Offset + q.Limit
		}
		for _, p := range matched[q.Offset:end] {
			page = append(page, *p.Clone())
		}
	}
	return page, total, nil
}

func (m *MemoryStore) IncrementViews(_ context.Context, id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.findLocked(id)
	if p == nil {
		return nil, ErrNotFound
	}
	p.Views++
	return p.Clone(), nil
}

func (m *MemoryStore) CreatePost(_ context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.Prepare(m.now())
	m.posts = append(m.posts, p.Clone())
	return nil
}

func (m *MemoryStore) UpdatePost(_ context.Context, id string, patch PostPatch) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.findLocked(id)
	if p == nil {
		return nil, ErrNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	p.UpdatedAt = m.now()
	return p.Clone(), nil
}

func (m *MemoryStore) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range m.posts {
		if p.ID == id {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) AppendComment(_ context.Context, postID string, c models.Comment) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.findLocked(postID)
	if p == nil {
		return nil, ErrNotFound
	}
	now := m.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt
	p.Comments = append(p.Comments, c)
	p.UpdatedAt = now
	return p.Clone(), nil
}

func (m *MemoryStore) CountPosts(_ context.Context, search string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.matchLocked(search))), nil
}

func (m *MemoryStore) CountComments(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, p := range m.posts {
		n += int64(len(p.Comments))
	}
	return n, nil
}

func (m *MemoryStore) Close(context.Context) error { return nil }

// matchLocked returns the posts whose title, content or author contain search,
// ignoring case, in insertion order.
func (m *MemoryStore) matchLocked(search string) []*models.Post {
	term := strings.ToLower(search)
	matched := make([]*models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		if term == "" ||
			strings.Contains(strings.ToLower(p.Title), term) ||
			strings.Contains(strings.ToLower(p.Content), term) ||
			strings.Contains(strings.ToLower(p.Author), term) {
			matched = append(matched, p)
		}
	}
	return matched
}

func (m *MemoryStore) findLocked(id string) *models.Post {
	for _, p := range m.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}
