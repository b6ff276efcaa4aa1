// Package syncer drives batch synchronization of all registered feeds.
//
// Feeds are processed one at a time; a failure while syncing one feed
// is recorded in its result and never aborts the rest of the batch.
package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/muralapp/mural/internal/mirror"
	"github.com/muralapp/mural/internal/mural"
	"github.com/muralapp/mural/logger"
)

const (
	// Caps on posts written per feed, bounding write amplification.
	batchPostLimit   = 20
	initialPostLimit = 10
)

// Fetcher pulls raw posts for one (platform, username) pair.
type Fetcher interface {
	Fetch(ctx context.Context, platform mural.Platform, username string) ([]mirror.RawPost, error)
}

// Repo is the slice of the store the syncer needs.
type Repo interface {
	AllFeeds(ctx context.Context) ([]mural.Feed, error)
	InsertPosts(ctx context.Context, posts []mural.Post) (int, error)
}

type Syncer struct {
	repo    Repo
	fetcher Fetcher
}

func New(repo Repo, fetcher Fetcher) *Syncer {
	return &Syncer{
		repo:    repo,
		fetcher: fetcher,
	}
}

type FeedStatus string

const (
	FeedStatusUpdated FeedStatus = "updated"
	FeedStatusSkipped FeedStatus = "skipped"
	FeedStatusFailed  FeedStatus = "failed"
)

type (
	// FeedResult is the outcome of syncing a single feed.
	FeedResult struct {
		FeedID   string
		Status   FeedStatus
		Inserted int
		Reason   string
	}

	// Report aggregates a whole sync cycle.
	Report struct {
		Updated int
		Total   int
		Results []FeedResult
	}
)

// SyncAll synchronizes every registered feed sequentially and reports
// each feed's outcome. It only errors when the feed list itself can't
// be loaded.
func (s *Syncer) SyncAll(ctx context.Context) (Report, error) {
	feeds, err := s.repo.AllFeeds(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("error loading feeds to sync: %s", err)
	}

	report := Report{Total: len(feeds)}
	for _, feed := range feeds {
		result := s.syncFeed(ctx, feed, batchPostLimit)
		if result.Status == FeedStatusUpdated {
			report.Updated++
		}
		report.Results = append(report.Results, result)
	}

	slog.InfoContext(ctx, "sync cycle completed", "updated", report.Updated, "total", report.Total)

	return report, nil
}

// InitialSync pulls the first, smaller batch of posts for a freshly
// added feed. Failures are logged and swallowed: feed creation must
// succeed even when the very first fetch does not.
func (s *Syncer) InitialSync(ctx context.Context, feed mural.Feed) {
	if result := s.syncFeed(ctx, feed, initialPostLimit); result.Status != FeedStatusUpdated {
		slog.WarnContext(ctx, "initial sync incomplete", "feed_id", feed.ID, "reason", result.Reason)
	}
}

func (s *Syncer) syncFeed(ctx context.Context, feed mural.Feed, limit int) FeedResult {
	ctx = logger.Ctx(ctx,
		slog.String("feed_id", feed.ID),
		slog.String("platform", string(feed.Platform)),
		slog.String("feed_username", feed.Username),
	)

	raws, err := s.fetcher.Fetch(ctx, feed.Platform, feed.Username)
	if err != nil {
		slog.WarnContext(ctx, "feed fetch failed", "error", err)
		return FeedResult{FeedID: feed.ID, Status: FeedStatusFailed, Reason: err.Error()}
	}
	if len(raws) == 0 {
		slog.WarnContext(ctx, "no posts found for feed")
		return FeedResult{FeedID: feed.ID, Status: FeedStatusSkipped, Reason: "no posts returned"}
	}

	if len(raws) > limit {
		raws = raws[:limit]
	}
	posts := lo.Map(raws, func(raw mirror.RawPost, _ int) mural.Post {
		return mirror.Normalize(raw, feed.Platform, feed.ID)
	})

	inserted, err := s.repo.InsertPosts(ctx, posts)
	if err != nil {
		slog.ErrorContext(ctx, "error inserting posts", "error", err)
		return FeedResult{FeedID: feed.ID, Status: FeedStatusFailed, Reason: err.Error()}
	}

	slog.InfoContext(ctx, "feed updated", "fetched", len(posts), "inserted", inserted)

	return FeedResult{FeedID: feed.ID, Status: FeedStatusUpdated, Inserted: inserted}
}
