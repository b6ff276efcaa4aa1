package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/muralapp/mural/internal/mural"
)

const postNamespace = "-pst"

// InsertPosts stores a batch of posts. Rows colliding on
// (feed_id, platform_post_id) are dropped by the conflict clause rather
// than erroring, so re-ingesting the same upstream items is a no-op.
func (r Repo) InsertPosts(ctx context.Context, posts []mural.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	// Create id's for the posts
	for i := range posts {
		posts[i].ID = fmt.Sprintf("%s%s", uuid.NewString(), postNamespace)
	}

	const q = `INSERT INTO posts (id, feed_id, platform, platform_post_id, username, avatar_url, media_type, media_url, description, likes, comments, created_at)
	VALUES (:id, :feed_id, :platform, :platform_post_id, :username, :avatar_url, :media_type, :media_url, :description, :likes, :comments, :created_at)
	ON CONFLICT(feed_id, platform_post_id) DO NOTHING;`
	res, err := r.db.NamedExecContext(ctx, q, posts)
	if err != nil {
		return 0, fmt.Errorf("error inserting posts: %s", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting inserted posts: %s", err)
	}

	return int(inserted), nil
}

func (r Repo) Post(ctx context.Context, id string) (mural.Post, error) {
	const q = `SELECT * FROM posts WHERE id = ?;`

	var post mural.Post
	err := r.db.GetContext(ctx, &post, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return mural.Post{}, mural.ErrNotFound
	}
	if err != nil {
		return mural.Post{}, fmt.Errorf("error fetching post: %s", err)
	}

	return post, nil
}

// PostsByFeedIDs returns posts across the given feeds, newest first.
func (r Repo) PostsByFeedIDs(ctx context.Context, feedIDs []string, limit, offset int) ([]mural.Post, error) {
	if len(feedIDs) == 0 {
		return []mural.Post{}, nil
	}

	query, args, err := sq.Select("*").
		From("posts").
		Where(sq.Eq{"feed_id": feedIDs}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	var posts []mural.Post
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("error fetching posts: %s", err)
	}

	return posts, nil
}
