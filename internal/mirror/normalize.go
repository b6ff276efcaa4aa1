package mirror

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/samber/lo"

	"github.com/muralapp/mural/internal/mural"
)

// Normalize converts a raw mirror item into the canonical Post shape.
// It never fails: missing fields degrade to defaults instead.
func Normalize(raw RawPost, platform mural.Platform, feedID string) mural.Post {
	post := mural.Post{
		FeedID:         feedID,
		Platform:       platform,
		PlatformPostID: raw.URI,
		Username:       "Unknown",
		MediaType:      mural.MediaTypeText,
		Description:    sanitize(lo.CoalesceOrEmpty(raw.Content, raw.Title)),
		CreatedAt:      time.Now().UTC(),
	}

	if post.PlatformPostID == "" {
		// No stable upstream id to dedup on, so synthesize one from the
		// clock plus randomness. Re-fetching the same item can then store
		// it twice; the upstream simply gives us nothing better.
		post.PlatformPostID = fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString())
	}
	if raw.Author != "" {
		post.Username = raw.Author
	}
	if raw.Avatar != "" {
		avatar := raw.Avatar
		post.AvatarURL = &avatar
	}
	if len(raw.Enclosures) > 0 {
		post.MediaType = mural.MediaTypeImage
		if strings.HasPrefix(raw.Enclosures[0].Type, "video/") {
			post.MediaType = mural.MediaTypeVideo
		}
		if u := raw.Enclosures[0].URL; u != "" {
			post.MediaURL = &u
		}
	}
	if raw.Timestamp > 0 {
		post.CreatedAt = time.Unix(raw.Timestamp, 0).UTC()
	}

	return post
}

var stripPolicy = bluemonday.StrictPolicy()

// Removes all html tags from the string, usually a description.
//
// Also limits the length of the string so there's not a massive chunk
// of scraped text being stored per post.
func sanitize(s string) string {
	s = stripPolicy.Sanitize(s)
	s = strings.TrimSpace(s)
	if len(s) > 2048 {
		s = s[:2048]
	}

	return s
}
