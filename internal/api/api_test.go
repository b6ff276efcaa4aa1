package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/muralapp/mural/internal/enrich"
	"github.com/muralapp/mural/internal/gemini"
	"github.com/muralapp/mural/internal/migrations"
	"github.com/muralapp/mural/internal/mirror"
	"github.com/muralapp/mural/internal/mural"
	"github.com/muralapp/mural/internal/sqlite"
	"github.com/muralapp/mural/internal/syncer"
)

const testCronSecret = "its-a-secret"

type fakeGenerator struct{}

func (fakeGenerator) SummarizeFeed(ctx context.Context, posts []gemini.PostLine) (string, error) {
	return "um resumo do feed", nil
}

func (fakeGenerator) SummarizePost(ctx context.Context, text string) (string, error) {
	return "um resumo do post", nil
}

func (fakeGenerator) SuggestReplies(ctx context.Context, text string) (string, error) {
	return "- legal!", nil
}

// mirrorItems renders a mirror instance payload with n posts.
func mirrorItems(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"uri": "https://example.com/p/%d", "content": "post %d", "author": "alice"}`, i, i)
	}

	return fmt.Sprintf(`{"items": [%s]}`, strings.Join(items, ","))
}

// newTestServer wires a server against a throwaway database and the
// given mirror instance.
func newTestServer(t *testing.T, mirrorURL string) (*Server, mural.Repository) {
	t.Helper()

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)", filepath.Join(t.TempDir(), "test.db"))
	dbx, err := sqlx.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { dbx.Close() })
	require.NoError(t, migrations.Run(dbx))

	repo := sqlite.New(dbx)
	sync := syncer.New(repo, mirror.NewClient([]string{mirrorURL}))
	enricher := enrich.New(repo, fakeGenerator{})

	return NewServer(ServerConfig{
		Port:       0,
		CronSecret: testCronSecret,
		CorsOrigin: "http://localhost:3000",
	}, repo, sync, enricher), repo
}

func doJSON(t *testing.T, srvr *Server, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	rec := httptest.NewRecorder()
	srvr.Server.Handler.ServeHTTP(rec, req)

	return rec
}

func TestAuthedRoutes_RequireIdentity(t *testing.T) {
	srvr, _ := newTestServer(t, "http://localhost:0")

	rec := doJSON(t, srvr, http.MethodGet, "/api/feeds", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCronTrigger_BadSecret(t *testing.T) {
	srvr, _ := newTestServer(t, "http://localhost:0")

	req := httptest.NewRequest(http.MethodPost, "/api/cron/trigger", nil)
	req.Header.Set("X-Cron-Secret", "wrong")
	rec := httptest.NewRecorder()
	srvr.Server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCronTrigger_ReportsCycle(t *testing.T) {
	instance := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, mirrorItems(3))
	}))
	t.Cleanup(instance.Close)

	srvr, repo := newTestServer(t, instance.URL)
	_, err := repo.InsertFeed(context.Background(), mural.NewFeed{
		UserID:     "user-1",
		Platform:   mural.PlatformInstagram,
		Username:   "alice",
		ProfileURL: "https://instagram.com/alice",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/cron/trigger", nil)
	req.Header.Set("X-Cron-Secret", testCronSecret)
	rec := httptest.NewRecorder()
	srvr.Server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CronResp
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Cron job completed", resp.Message)
	assert.Equal(t, 1, resp.Updated)
	assert.Equal(t, 1, resp.Total)
}

func TestPostFeed_CapsInitialPull(t *testing.T) {
	instance := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, mirrorItems(12))
	}))
	t.Cleanup(instance.Close)

	srvr, _ := newTestServer(t, instance.URL)

	rec := doJSON(t, srvr, http.MethodPost, "/api/feeds", "user-1",
		`{"platform": "instagram", "profile_url": "https://instagram.com/alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var feed FeedResp
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&feed))
	assert.Equal(t, "instagram", feed.Platform)
	assert.Equal(t, "alice", feed.Username, "username falls back to the profile url's last segment")

	rec = doJSON(t, srvr, http.MethodGet, "/api/posts", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var posts []PostResp
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&posts))
	assert.Len(t, posts, 10)
}

func TestPostFeed_MirrorDownStillCreates(t *testing.T) {
	instance := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(instance.Close)

	srvr, _ := newTestServer(t, instance.URL)

	rec := doJSON(t, srvr, http.MethodPost, "/api/feeds", "user-1",
		`{"platform": "twitter", "profile_url": "https://twitter.com/bob", "username": "bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srvr, http.MethodGet, "/api/posts", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var posts []PostResp
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&posts))
	assert.Empty(t, posts)
}

func TestPostFeed_Validation(t *testing.T) {
	srvr, _ := newTestServer(t, "http://localhost:0")

	rec := doJSON(t, srvr, http.MethodPost, "/api/feeds", "user-1",
		`{"platform": "myspace"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteFeed_OtherUser(t *testing.T) {
	srvr, repo := newTestServer(t, "http://localhost:0")
	feed, err := repo.InsertFeed(context.Background(), mural.NewFeed{
		UserID:     "user-1",
		Platform:   mural.PlatformInstagram,
		Username:   "alice",
		ProfileURL: "https://instagram.com/alice",
	})
	require.NoError(t, err)

	rec := doJSON(t, srvr, http.MethodDelete, "/api/feeds/"+feed.ID, "user-2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The owner can still see it
	rec = doJSON(t, srvr, http.MethodGet, "/api/feeds", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var feeds []FeedResp
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&feeds))
	assert.Len(t, feeds, 1)

	rec = doJSON(t, srvr, http.MethodDelete, "/api/feeds/"+feed.ID, "user-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSummarizeFeed_NoFeeds(t *testing.T) {
	srvr, _ := newTestServer(t, "http://localhost:0")

	rec := doJSON(t, srvr, http.MethodPost, "/api/gemini/summarize-feed", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SummaryResp
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "No feeds available to summarize.", resp.Summary)
}

func TestSummarizePost_OtherUsersPost(t *testing.T) {
	instance := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, mirrorItems(1))
	}))
	t.Cleanup(instance.Close)

	srvr, repo := newTestServer(t, instance.URL)

	rec := doJSON(t, srvr, http.MethodPost, "/api/feeds", "user-1",
		`{"platform": "instagram", "profile_url": "https://instagram.com/alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	feeds, err := repo.UserFeeds(context.Background(), "user-1")
	require.NoError(t, err)
	posts, err := repo.PostsByFeedIDs(context.Background(), []string{feeds[0].ID}, 1, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	rec = doJSON(t, srvr, http.MethodPost, "/api/posts/"+posts[0].ID+"/summarize", "user-2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srvr, http.MethodPost, "/api/posts/"+posts[0].ID+"/summarize", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SummaryResp
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "um resumo do post", resp.Summary)
}
