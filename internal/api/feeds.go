package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	muralerrs "github.com/muralapp/mural/internal/errors"
	"github.com/muralapp/mural/internal/mural"
)

type FeedResp struct {
	ID         string    `json:"id"`
	Platform   string    `json:"platform"`
	Username   string    `json:"username"`
	ProfileURL string    `json:"profile_url"`
	AvatarURL  *string   `json:"avatar_url"`
	CreatedAt  time.Time `json:"created_at"`
}

func apiFeed(f mural.Feed) FeedResp {
	return FeedResp{
		ID:         f.ID,
		Platform:   string(f.Platform),
		Username:   f.Username,
		ProfileURL: f.ProfileURL,
		AvatarURL:  f.AvatarURL,
		CreatedAt:  f.CreatedAt,
	}
}

func (s *Server) getFeeds(w http.ResponseWriter, r *http.Request) error {
	feeds, err := s.repo.UserFeeds(r.Context(), userID(r))
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, lo.Map(feeds, func(f mural.Feed, _ int) FeedResp {
		return apiFeed(f)
	}))
}

type PostFeedReq struct {
	Platform   string `json:"platform"`
	ProfileURL string `json:"profile_url"`
	Username   string `json:"username"`
}

func (req PostFeedReq) Validate() error {
	var details []muralerrs.Detail
	if _, err := mural.ParsePlatform(req.Platform); err != nil {
		details = append(details, muralerrs.Detail{Field: "platform", Error: err.Error()})
	}
	if req.ProfileURL == "" {
		details = append(details, muralerrs.Detail{Field: "profile_url", Error: "is required"})
	}
	if details != nil {
		return muralerrs.E("invalid feed", http.StatusBadRequest, details)
	}

	return nil
}

func (s *Server) postFeed(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	body, err := decodeValid[PostFeedReq](r.Body)
	if err != nil {
		return muralerrs.E(err, http.StatusBadRequest)
	}

	platform, _ := mural.ParsePlatform(body.Platform)
	username := body.Username
	if username == "" {
		username = usernameFromURL(body.ProfileURL)
	}

	feed, err := s.repo.InsertFeed(ctx, mural.NewFeed{
		UserID:     userID(r),
		Platform:   platform,
		Username:   username,
		ProfileURL: body.ProfileURL,
	})
	if err != nil {
		return err
	}

	// First pull for the new feed; never fails the creation.
	s.syncer.InitialSync(ctx, feed)

	return writeJSON(w, http.StatusCreated, apiFeed(feed))
}

type DeleteFeedResp struct {
	Success bool `json:"success"`
}

func (s *Server) deleteFeed(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		feedID = mux.Vars(r)["feedID"]
	)

	feed, err := s.repo.Feed(ctx, feedID)
	if errors.Is(err, mural.ErrNotFound) || (err == nil && feed.UserID != userID(r)) {
		return muralerrs.E("feed not found or unauthorized", http.StatusNotFound)
	}
	if err != nil {
		return err
	}

	// Posts go with the feed via cascade
	if err := s.repo.DeleteFeed(ctx, feedID); err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, DeleteFeedResp{Success: true})
}

// usernameFromURL falls back to the last path segment of the profile
// url when the caller didn't name the account explicitly.
func usernameFromURL(profileURL string) string {
	segments := strings.Split(profileURL, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}

	return "unknown"
}
