package model

import "time"

type PostID string

type UserID string

// Post is the persisted form of a published draft.
type Post struct {
	ID PostID `json:"id"`

	Title   string `json:"title"`
	Content Draft  `json:"content"`

	// SHA-256 of the stored (compressed) content, used to detect changes.
	ContentHash string `json:"content_hash,omitempty"`

	CreatedDate  time.Time `json:"created_at"`
	ModifiedDate time.Time `json:"modified_at"`

	Owner UserID `json:"owner,omitempty"`
}

// PostSummary is the listing view of a post.
type PostSummary struct {
	ID          PostID    `json:"id"`
	Title       string    `json:"title"`
	CreatedDate time.Time `json:"created_at"`
}

func (p *Post) Summary() PostSummary {
	return PostSummary{ID: p.ID, Title: p.Title, CreatedDate: p.CreatedDate}
}
