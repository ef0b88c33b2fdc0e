package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WikiPage fetches the markdown content of a wiki page. A missing page is
// reported as a 404 *Error (check with IsNotFound).
func (c *Client) WikiPage(ctx context.Context, subreddit, page string) (string, error) {
	var resp struct {
		Kind string `json:"kind"`
		Data struct {
			ContentMD string `json:"content_md"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/r/%s/wiki/%s", subreddit, page), nil, &resp); err != nil {
		return "", err
	}
	return resp.Data.ContentMD, nil
}

// EditWikiPage writes the content of a wiki page, creating the page if it
// does not exist. Oversized content is rejected by the API (check with
// IsTooLarge).
func (c *Client) EditWikiPage(ctx context.Context, subreddit, page, content, reason string) error {
	var resp json.RawMessage
	params := map[string]any{
		"page":    page,
		"content": content,
		"reason":  reason,
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/r/%s/api/wiki/edit", subreddit), params, &resp); err != nil {
		return fmt.Errorf("editing wiki r/%s/%s: %w", subreddit, page, err)
	}
	return nil
}
