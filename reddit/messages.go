package reddit

import (
	"context"
	"fmt"
	"net/http"
)

// Compose sends a private message. Prefix the recipient with "/r/" to send
// modmail to a subreddit instead of a user.
func (c *Client) Compose(ctx context.Context, to, subject, text string) error {
	var resp jsonErrorBody
	params := map[string]any{
		"to":       to,
		"subject":  subject,
		"text":     text,
		"api_type": "json",
	}
	if err := c.do(ctx, http.MethodPost, "/api/compose", params, &resp); err != nil {
		return fmt.Errorf("sending message to %s: %w", to, err)
	}
	if err := checkFormResponse(resp); err != nil {
		return fmt.Errorf("sending message to %s: %w", to, err)
	}
	return nil
}
