package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/muralapp/mural/internal/mural"
)

// PostLine is the per-post input to a feed summary prompt.
type PostLine struct {
	Username    string
	Platform    mural.Platform
	Description string
}

// SummarizeFeed asks for a short summary of the given posts.
func (c *Client) SummarizeFeed(ctx context.Context, posts []PostLine) (string, error) {
	lines := lo.Map(posts, func(p PostLine, _ int) string {
		return fmt.Sprintf("%s (%s): %s", p.Username, p.Platform, p.Description)
	})

	prompt := fmt.Sprintf(
		"Analyze the following posts from a social media feed and provide a short summary (2-3 sentences) of the main topics and sentiments. Respond in Portuguese (Brazil):\n\n%s",
		strings.Join(lines, "\n---\n"),
	)

	return c.Complete(ctx, prompt)
}

// SummarizePost asks for a one-sentence summary of a single post.
func (c *Client) SummarizePost(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following post in a single short and concise sentence. Respond in Portuguese (Brazil):\n\n%s",
		text,
	)

	return c.Complete(ctx, prompt)
}

// SuggestReplies asks for three short casual replies to a post.
func (c *Client) SuggestReplies(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(
		"Suggest 3 short and casual replies (in Portuguese - Brazil) for the following post. Format as a bulleted list:\n\n%s",
		text,
	)

	return c.Complete(ctx, prompt)
}
