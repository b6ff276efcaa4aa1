package syncer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muralapp/mural/internal/mirror"
	"github.com/muralapp/mural/internal/mural"
)

type fakeRepo struct {
	feeds   []mural.Feed
	inserts [][]mural.Post

	insertErrFor map[string]error // keyed by feed id
}

func (r *fakeRepo) AllFeeds(ctx context.Context) ([]mural.Feed, error) {
	return r.feeds, nil
}

func (r *fakeRepo) InsertPosts(ctx context.Context, posts []mural.Post) (int, error) {
	if err := r.insertErrFor[posts[0].FeedID]; err != nil {
		return 0, err
	}
	r.inserts = append(r.inserts, posts)

	return len(posts), nil
}

type fetcherFunc func(ctx context.Context, platform mural.Platform, username string) ([]mirror.RawPost, error)

func (f fetcherFunc) Fetch(ctx context.Context, platform mural.Platform, username string) ([]mirror.RawPost, error) {
	return f(ctx, platform, username)
}

func rawPosts(n int) []mirror.RawPost {
	posts := make([]mirror.RawPost, n)
	for i := range posts {
		posts[i] = mirror.RawPost{
			URI:     fmt.Sprintf("https://example.com/p/%d", i),
			Content: fmt.Sprintf("post %d", i),
			Author:  "alice",
		}
	}

	return posts
}

func testFeed(id, username string) mural.Feed {
	return mural.Feed{ID: id, UserID: "user-1", Platform: mural.PlatformInstagram, Username: username}
}

func TestSyncAll_IsolatesPerFeedFailures(t *testing.T) {
	repo := &fakeRepo{
		feeds: []mural.Feed{
			testFeed("feed-bad", "broken"),
			testFeed("feed-good", "alice"),
			testFeed("feed-empty", "quiet"),
		},
	}
	fetcher := fetcherFunc(func(ctx context.Context, platform mural.Platform, username string) ([]mirror.RawPost, error) {
		switch username {
		case "broken":
			return nil, &mirror.FetchError{Platform: platform, Username: username}
		case "quiet":
			return nil, nil
		}
		return rawPosts(2), nil
	})

	report, err := New(repo, fetcher).SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 3, report.Total)
	require.Len(t, report.Results, 3)
	assert.Equal(t, FeedStatusFailed, report.Results[0].Status)
	assert.Equal(t, FeedStatusUpdated, report.Results[1].Status)
	assert.Equal(t, 2, report.Results[1].Inserted)
	assert.Equal(t, FeedStatusSkipped, report.Results[2].Status)
}

func TestSyncAll_CapsPostsPerFeed(t *testing.T) {
	repo := &fakeRepo{feeds: []mural.Feed{testFeed("feed-1", "alice")}}
	fetcher := fetcherFunc(func(ctx context.Context, platform mural.Platform, username string) ([]mirror.RawPost, error) {
		return rawPosts(35), nil
	})

	report, err := New(repo, fetcher).SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	require.Len(t, repo.inserts, 1)
	assert.Len(t, repo.inserts[0], 20)
}

func TestSyncAll_InsertFailureDoesNotAbortBatch(t *testing.T) {
	repo := &fakeRepo{
		feeds: []mural.Feed{
			testFeed("feed-1", "alice"),
			testFeed("feed-2", "bob"),
		},
		insertErrFor: map[string]error{"feed-1": errors.New("disk full")},
	}
	fetcher := fetcherFunc(func(ctx context.Context, platform mural.Platform, username string) ([]mirror.RawPost, error) {
		return rawPosts(3), nil
	})

	report, err := New(repo, fetcher).SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, FeedStatusFailed, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Reason, "disk full")
	assert.Equal(t, FeedStatusUpdated, report.Results[1].Status)
}

func TestInitialSync_CapsAtTen(t *testing.T) {
	repo := &fakeRepo{}
	fetcher := fetcherFunc(func(ctx context.Context, platform mural.Platform, username string) ([]mirror.RawPost, error) {
		return rawPosts(12), nil
	})

	New(repo, fetcher).InitialSync(context.Background(), testFeed("feed-1", "alice"))

	require.Len(t, repo.inserts, 1)
	assert.Len(t, repo.inserts[0], 10)
}

func TestInitialSync_SwallowsFetchFailure(t *testing.T) {
	repo := &fakeRepo{}
	fetcher := fetcherFunc(func(ctx context.Context, platform mural.Platform, username string) ([]mirror.RawPost, error) {
		return nil, &mirror.FetchError{Platform: platform, Username: username}
	})

	// Must not panic or error: feed creation proceeds regardless
	New(repo, fetcher).InitialSync(context.Background(), testFeed("feed-1", "alice"))

	assert.Empty(t, repo.inserts)
}
