// Package enrich implements the read-then-generate operations layered
// over stored posts: feed summaries, post summaries, reply suggestions.
//
// Callers supply an already-authenticated user id; this package only
// checks that the post being enriched belongs to one of that user's
// feeds.
package enrich

import (
	"context"
	"errors"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/lo"

	"github.com/muralapp/mural/internal/gemini"
	"github.com/muralapp/mural/internal/mural"
)

const (
	summaryPostLimit = 20

	noFeedsMessage = "No feeds available to summarize."
	noPostsMessage = "No posts available to summarize."
)

// Generator produces text from stored post content.
type Generator interface {
	SummarizeFeed(ctx context.Context, posts []gemini.PostLine) (string, error)
	SummarizePost(ctx context.Context, text string) (string, error)
	SuggestReplies(ctx context.Context, text string) (string, error)
}

// Repo is the slice of the store the enrichment operations read from.
type Repo interface {
	UserFeeds(ctx context.Context, userID string) ([]mural.Feed, error)
	PostsByFeedIDs(ctx context.Context, feedIDs []string, limit, offset int) ([]mural.Post, error)
	Post(ctx context.Context, id string) (mural.Post, error)
	Feed(ctx context.Context, id string) (mural.Feed, error)
}

type Service struct {
	repo Repo
	gen  Generator

	// Posts are immutable, so generated text for one never goes stale.
	cache *lru.Cache[string, string]
}

func New(repo Repo, gen Generator) *Service {
	cache, _ := lru.New[string, string](1024)

	return &Service{
		repo:  repo,
		gen:   gen,
		cache: cache,
	}
}

// SummarizeFeedForUser summarizes the user's 20 most recent posts
// across all of their feeds. A user with nothing to summarize gets a
// canned message back, not an error.
func (s *Service) SummarizeFeedForUser(ctx context.Context, userID string) (string, error) {
	feeds, err := s.repo.UserFeeds(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(feeds) == 0 {
		return noFeedsMessage, nil
	}

	feedIDs := lo.Map(feeds, func(f mural.Feed, _ int) string { return f.ID })
	posts, err := s.repo.PostsByFeedIDs(ctx, feedIDs, summaryPostLimit, 0)
	if err != nil {
		slog.WarnContext(ctx, "error loading posts for summary", "error", err)
		return noPostsMessage, nil
	}
	if len(posts) == 0 {
		return noPostsMessage, nil
	}

	lines := lo.Map(posts, func(p mural.Post, _ int) gemini.PostLine {
		return gemini.PostLine{
			Username:    p.Username,
			Platform:    p.Platform,
			Description: p.Description,
		}
	})

	return s.gen.SummarizeFeed(ctx, lines)
}

// SummarizePost summarizes one post's description.
func (s *Service) SummarizePost(ctx context.Context, postID, userID string) (string, error) {
	post, err := s.ownedPost(ctx, postID, userID)
	if err != nil {
		return "", err
	}

	key := "summary:" + post.ID
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	summary, err := s.gen.SummarizePost(ctx, post.Description)
	if err != nil {
		return "", err
	}
	s.cache.Add(key, summary)

	return summary, nil
}

// SuggestReplies generates three reply suggestions for one post.
func (s *Service) SuggestReplies(ctx context.Context, postID, userID string) (string, error) {
	post, err := s.ownedPost(ctx, postID, userID)
	if err != nil {
		return "", err
	}

	key := "replies:" + post.ID
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	suggestions, err := s.gen.SuggestReplies(ctx, post.Description)
	if err != nil {
		return "", err
	}
	s.cache.Add(key, suggestions)

	return suggestions, nil
}

// ownedPost loads a post and verifies its feed belongs to the user.
// Missing posts and other users' posts are indistinguishable to the
// caller.
func (s *Service) ownedPost(ctx context.Context, postID, userID string) (mural.Post, error) {
	post, err := s.repo.Post(ctx, postID)
	if errors.Is(err, mural.ErrNotFound) {
		return mural.Post{}, mural.ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return mural.Post{}, err
	}

	feed, err := s.repo.Feed(ctx, post.FeedID)
	if errors.Is(err, mural.ErrNotFound) {
		return mural.Post{}, mural.ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return mural.Post{}, err
	}
	if feed.UserID != userID {
		return mural.Post{}, mural.ErrNotFoundOrUnauthorized
	}

	return post, nil
}
