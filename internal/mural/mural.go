// Package mural holds the domain types and repository surfaces shared
// by the sync and enrichment pipeline.
package mural

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrUnsupportedPlatform is returned for platforms the mirroring
	// service has no bridge for.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrMissingAPIKey is returned when no Gemini credential is configured.
	ErrMissingAPIKey = errors.New("gemini api key not configured")
	// ErrNotFoundOrUnauthorized rejects an enrichment request for a post
	// that doesn't exist or isn't owned by the caller. The two cases are
	// deliberately indistinguishable.
	ErrNotFoundOrUnauthorized = errors.New("post not found or unauthorized")
)

// Platform is a supported social media source.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformTikTok    Platform = "tiktok"
	PlatformThreads   Platform = "threads"
	PlatformBluesky   Platform = "bluesky"
)

// ParsePlatform normalizes and validates a platform name.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(s))
	switch p {
	case PlatformInstagram, PlatformTwitter, PlatformTikTok, PlatformThreads, PlatformBluesky:
		return p, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedPlatform)
}

// MediaType is the kind of media a post carries. It is derived during
// normalization, never asserted by the source.
type MediaType string

const (
	MediaTypeText  MediaType = "text"
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

type (
	// Feed is one tracked (platform, username) profile owned by a user.
	Feed struct {
		ID         string    `db:"id"`
		UserID     string    `db:"user_id"`
		Platform   Platform  `db:"platform"`
		Username   string    `db:"username"`
		ProfileURL string    `db:"profile_url"`
		AvatarURL  *string   `db:"avatar_url"`
		CreatedAt  time.Time `db:"created_at"`
	}

	// NewFeed holds the caller-supplied fields for creating a feed.
	NewFeed struct {
		UserID     string
		Platform   Platform
		Username   string
		ProfileURL string
	}

	// Post is a normalized social media post. Posts are immutable once
	// stored; they only go away when their feed is deleted.
	Post struct {
		ID             string    `db:"id"`
		FeedID         string    `db:"feed_id"`
		Platform       Platform  `db:"platform"`
		PlatformPostID string    `db:"platform_post_id"`
		Username       string    `db:"username"`
		AvatarURL      *string   `db:"avatar_url"`
		MediaType      MediaType `db:"media_type"`
		MediaURL       *string   `db:"media_url"`
		Description    string    `db:"description"`
		Likes          int       `db:"likes"`
		Comments       int       `db:"comments"`
		CreatedAt      time.Time `db:"created_at"`
	}

	FeedRepo interface {
		InsertFeed(ctx context.Context, args NewFeed) (Feed, error)
		Feed(ctx context.Context, id string) (Feed, error)
		UserFeeds(ctx context.Context, userID string) ([]Feed, error)
		AllFeeds(ctx context.Context) ([]Feed, error)
		DeleteFeed(ctx context.Context, id string) error
	}

	PostRepo interface {
		// InsertPosts stores a batch, silently skipping rows that collide
		// on (feed_id, platform_post_id). Returns how many were inserted.
		InsertPosts(ctx context.Context, posts []Post) (int, error)
		Post(ctx context.Context, id string) (Post, error)
		// PostsByFeedIDs returns posts across the given feeds, newest first.
		PostsByFeedIDs(ctx context.Context, feedIDs []string, limit, offset int) ([]Post, error)
	}

	Repository interface {
		FeedRepo
		PostRepo
	}
)
