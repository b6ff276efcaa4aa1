// Package mirror fetches a profile's posts from the feed-mirroring
// service, failing over across a ranked list of instances.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/muralapp/mural/internal/mural"
)

// bridgeNames maps a platform to the mirroring service's bridge name.
var bridgeNames = map[mural.Platform]string{
	mural.PlatformInstagram: "Instagram",
	mural.PlatformTwitter:   "Twitter",
	mural.PlatformTikTok:    "TikTok",
	mural.PlatformThreads:   "Threads",
	mural.PlatformBluesky:   "BlueSky",
}

type (
	// RawPost is one feed item as the mirroring service reports it.
	// Every field is optional.
	RawPost struct {
		Title      string      `json:"title"`
		Content    string      `json:"content"`
		URI        string      `json:"uri"`
		Timestamp  int64       `json:"timestamp"`
		Author     string      `json:"author"`
		Avatar     string      `json:"avatar"`
		Enclosures []Enclosure `json:"enclosures"`
	}

	Enclosure struct {
		URL  string `json:"url"`
		Type string `json:"type"`
	}
)

// FetchError means every mirror instance was tried and none produced a
// valid item list. Callers should treat it as recoverable: log, skip
// the feed, move on.
type FetchError struct {
	Platform mural.Platform
	Username string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("all mirror instances failed for %s/%s", e.Platform, e.Username)
}

// Client fetches mirrored feeds from an ordered list of instances.
type Client struct {
	endpoints []string
	http      *http.Client
}

// NewClient creates a Client trying `endpoints` in the given order.
func NewClient(endpoints []string) *Client {
	return &Client{
		endpoints: endpoints,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Fetch returns the raw posts for one (platform, username) pair.
//
// Instances are tried in order, once each; any network error, bad
// status, or payload without an items array advances to the next one.
// An items array that is present but empty counts as success.
func (c *Client) Fetch(ctx context.Context, platform mural.Platform, username string) ([]RawPost, error) {
	bridge, ok := bridgeNames[platform]
	if !ok {
		return nil, fmt.Errorf("%q: %w", platform, mural.ErrUnsupportedPlatform)
	}

	for _, endpoint := range c.endpoints {
		items, err := c.fetchInstance(ctx, endpoint, bridge, username)
		if err != nil {
			slog.WarnContext(ctx, "mirror instance failed", "instance", endpoint, "error", err)
			continue
		}

		return items, nil
	}

	return nil, &FetchError{Platform: platform, Username: username}
}

func (c *Client) fetchInstance(ctx context.Context, endpoint, bridge, username string) ([]RawPost, error) {
	u := fmt.Sprintf("%s/feeds/%s.json?u=%s", endpoint, bridge, url.QueryEscape(username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %s", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error getting feed: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// A nil Items distinguishes "no items array at all" from an empty
	// one; only the former moves on to the next instance.
	var body struct {
		Items *[]RawPost `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("error decoding feed: %s", err)
	}
	if body.Items == nil {
		return nil, fmt.Errorf("response has no items array")
	}

	return *body.Items, nil
}
