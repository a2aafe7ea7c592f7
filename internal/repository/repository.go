// Package repository persists published posts.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/debemdeboas/blockpress/internal/model"
)

var ErrPostNotFound = errors.New("post not found")

type PostRepository interface {
	SavePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id model.PostID) (*model.Post, error)

	// ListPosts returns summaries, newest first.
	ListPosts(ctx context.Context) ([]model.PostSummary, error)
}

// Archiver keeps an off-site copy of each published post.
type Archiver interface {
	Archive(ctx context.Context, post *model.Post) error
}

// NewPost builds a post with a fresh id and timestamps.
func NewPost(title string, content model.Draft, owner model.UserID) *model.Post {
	now := time.Now().UTC()

	return &model.Post{
		ID:      model.PostID(uuid.New().String()),
		Title:   title,
		Content: content,
		Owner:   owner,

		CreatedDate:  now,
		ModifiedDate: now,
	}
}
