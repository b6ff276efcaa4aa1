package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/muralapp/mural/internal/mural"
)

const defaultPostLimit = 50

type PostResp struct {
	ID             string    `json:"id"`
	FeedID         string    `json:"feed_id"`
	Platform       string    `json:"platform"`
	PlatformPostID string    `json:"platform_post_id"`
	Username       string    `json:"username"`
	AvatarURL      *string   `json:"avatar_url"`
	MediaType      string    `json:"media_type"`
	MediaURL       *string   `json:"media_url"`
	Description    string    `json:"description"`
	Likes          int       `json:"likes"`
	Comments       int       `json:"comments"`
	CreatedAt      time.Time `json:"created_at"`
}

func apiPost(p mural.Post) PostResp {
	return PostResp{
		ID:             p.ID,
		FeedID:         p.FeedID,
		Platform:       string(p.Platform),
		PlatformPostID: p.PlatformPostID,
		Username:       p.Username,
		AvatarURL:      p.AvatarURL,
		MediaType:      string(p.MediaType),
		MediaURL:       p.MediaURL,
		Description:    p.Description,
		Likes:          p.Likes,
		Comments:       p.Comments,
		CreatedAt:      p.CreatedAt,
	}
}

// getPosts returns the caller's unified feed, newest first.
func (s *Server) getPosts(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	limit := queryInt(r, "limit", defaultPostLimit)
	offset := queryInt(r, "offset", 0)

	feeds, err := s.repo.UserFeeds(ctx, userID(r))
	if err != nil {
		return err
	}
	if len(feeds) == 0 {
		return writeJSON(w, http.StatusOK, []PostResp{})
	}

	feedIDs := lo.Map(feeds, func(f mural.Feed, _ int) string { return f.ID })
	posts, err := s.repo.PostsByFeedIDs(ctx, feedIDs, limit, offset)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, lo.Map(posts, func(p mural.Post, _ int) PostResp {
		return apiPost(p)
	}))
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return fallback
	}

	return v
}
