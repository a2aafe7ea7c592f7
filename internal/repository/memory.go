package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/debemdeboas/blockpress/internal/model"
)

// MemoryPostRepository keeps posts in a map. It is used when no database is
// configured and in tests.
type MemoryPostRepository struct {
	mu    sync.RWMutex
	posts map[model.PostID]model.Post
}

func NewMemoryPostRepository() *MemoryPostRepository {
	return &MemoryPostRepository{posts: make(map[model.PostID]model.Post)}
}

func (m *MemoryPostRepository) SavePost(_ context.Context, post *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.posts[post.ID]; ok {
		post.CreatedDate = existing.CreatedDate
	}
	m.posts[post.ID] = *post
	return nil
}

func (m *MemoryPostRepository) GetPost(_ context.Context, id model.PostID) (*model.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	return &post, nil
}

func (m *MemoryPostRepository) ListPosts(context.Context) ([]model.PostSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts := make([]model.PostSummary, 0, len(m.posts))
	for _, p := range m.posts {
		posts = append(posts, p.Summary())
	}
	slices.SortStableFunc(posts, func(a, b model.PostSummary) int {
		if c := -a.CreatedDate.Compare(b.CreatedDate); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return posts, nil
}
