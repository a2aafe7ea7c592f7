package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/blockpress/internal/cache"
	"github.com/debemdeboas/blockpress/internal/db"
	"github.com/debemdeboas/blockpress/internal/model"
	"github.com/debemdeboas/blockpress/internal/util"
	"github.com/debemdeboas/blockpress/internal/util/compression"
)

// DBPostRepository stores post content as zstd-compressed JSON and keeps
// recently read posts in memory.
type DBPostRepository struct { // implements PostRepository
	postsCache *cache.Cache[model.PostID, *model.Post]

	db         db.DB
	compressor compression.Compressor
}

func NewDBPostRepository(db db.DB, cacheSize int) *DBPostRepository {
	return &DBPostRepository{
		postsCache: cache.NewBoundedCache[model.PostID, *model.Post](cacheSize),

		db: db,

		compressor: &compression.ZstdCompressor{},
	}
}

// SavePost inserts the post or replaces the content of an existing one.
func (r *DBPostRepository) SavePost(ctx context.Context, post *model.Post) error {
	raw, err := json.Marshal(post.Content)
	if err != nil {
		return fmt.Errorf("error encoding content: %w", err)
	}

	compressed, err := r.compressor.Compress(raw)
	if err != nil {
		return fmt.Errorf("error compressing content: %w", err)
	}

	// Calculate the content hash for the compressed content
	post.ContentHash = util.ContentHash(compressed)
	if post.ModifiedDate.IsZero() {
		post.ModifiedDate = time.Now().UTC()
	}
	if post.CreatedDate.IsZero() {
		post.CreatedDate = post.ModifiedDate
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, content_hash, user_id, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     title = excluded.title,
		     content = excluded.content,
		     content_hash = excluded.content_hash,
		     modified_at = excluded.modified_at`,
		post.ID, post.Title, compressed, post.ContentHash, post.Owner, post.CreatedDate, post.ModifiedDate,
	)
	if err != nil {
		return fmt.Errorf("error saving post: %w", err)
	}

	stored := *post
	r.postsCache.Set(post.ID, &stored)

	repoLogger.Debug().Interface("result", res).Str("post_id", string(post.ID)).Msg("Post saved")
	return nil
}

func (r *DBPostRepository) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	if post, ok := r.postsCache.Get(id); ok {
		p := *post
		return &p, nil
	}

	var (
		post       model.Post
		compressed []byte
		owner      sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, content, content_hash, user_id, created_at, modified_at FROM posts WHERE id = ?`, id,
	).Scan(&post.ID, &post.Title, &compressed, &post.ContentHash, &owner, &post.CreatedDate, &post.ModifiedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning post: %w", err)
	}
	post.Owner = model.UserID(owner.String)

	raw, err := r.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing content: %w", err)
	}
	if err := json.Unmarshal(raw, &post.Content); err != nil {
		return nil, fmt.Errorf("error decoding content: %w", err)
	}

	cached := post
	r.postsCache.Set(id, &cached)
	return &post, nil
}

func (r *DBPostRepository) ListPosts(ctx context.Context) ([]model.PostSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, created_at FROM posts ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("error querying posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.PostSummary, 0)
	for rows.Next() {
		var s model.PostSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedDate); err != nil {
			return nil, fmt.Errorf("error scanning post: %w", err)
		}
		posts = append(posts, s)
	}
	return posts, rows.Err()
}
