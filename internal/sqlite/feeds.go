package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/muralapp/mural/internal/mural"
)

const feedNamespace = "-fd"

func (r Repo) InsertFeed(ctx context.Context, args mural.NewFeed) (mural.Feed, error) {
	const q = `INSERT INTO feeds (id, user_id, platform, username, profile_url)
	VALUES (:id, :user_id, :platform, :username, :profile_url);`

	f := mural.Feed{
		ID:         fmt.Sprintf("%s%s", uuid.NewString(), feedNamespace),
		UserID:     args.UserID,
		Platform:   args.Platform,
		Username:   args.Username,
		ProfileURL: args.ProfileURL,
	}
	if _, err := r.db.NamedExecContext(ctx, q, f); err != nil {
		return mural.Feed{}, fmt.Errorf("error inserting feed: %s", err)
	}

	return r.Feed(ctx, f.ID)
}

func (r Repo) Feed(ctx context.Context, id string) (mural.Feed, error) {
	const q = `SELECT * FROM feeds WHERE id = ?;`

	var feed mural.Feed
	err := r.db.GetContext(ctx, &feed, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return mural.Feed{}, mural.ErrNotFound
	}
	if err != nil {
		return mural.Feed{}, fmt.Errorf("error fetching feed: %s", err)
	}

	return feed, nil
}

func (r Repo) UserFeeds(ctx context.Context, userID string) ([]mural.Feed, error) {
	const q = `SELECT * FROM feeds WHERE user_id = ? ORDER BY created_at DESC;`

	var feeds []mural.Feed
	if err := r.db.SelectContext(ctx, &feeds, q, userID); err != nil {
		return nil, fmt.Errorf("error selecting user feeds: %s", err)
	}

	return feeds, nil
}

// AllFeeds retrieves _all_ feeds from the database, across every user.
// Only the sync cycle should need this.
func (r Repo) AllFeeds(ctx context.Context) ([]mural.Feed, error) {
	const q = "SELECT * FROM feeds;"

	var feeds []mural.Feed
	if err := r.db.SelectContext(ctx, &feeds, q); err != nil {
		return nil, fmt.Errorf("error selecting all feeds: %s", err)
	}

	return feeds, nil
}

// DeleteFeed removes a feed; its posts go with it via cascade.
func (r Repo) DeleteFeed(ctx context.Context, id string) error {
	const q = `DELETE FROM feeds WHERE id = ?;`

	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("error deleting feed: %s", err)
	}

	return nil
}
