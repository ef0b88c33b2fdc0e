package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const listingPageSize = 100

// BannedUsers returns every currently banned user of a subreddit, keyed by
// account name, with the free-text ban note as the value. The listing is
// paginated internally until exhausted.
func (c *Client) BannedUsers(ctx context.Context, subreddit string) (map[string]string, error) {
	banned := make(map[string]string)
	after := ""
	for {
		params := map[string]any{"limit": listingPageSize}
		if after != "" {
			params["after"] = after
		}
		var page listing
		if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/r/%s/about/banned", subreddit), params, &page); err != nil {
			return nil, fmt.Errorf("listing bans for r/%s: %w", subreddit, err)
		}
		for _, child := range page.Data.Children {
			var u BannedUser
			if err := json.Unmarshal(child.Data, &u); err != nil {
				return nil, fmt.Errorf("parsing banned-user entry: %w", err)
			}
			banned[u.Name] = u.Note
		}
		after = page.Data.After
		if after == "" || len(page.Data.Children) == 0 {
			break
		}
	}
	return banned, nil
}

// Moderators returns the moderator account names of a subreddit.
func (c *Client) Moderators(ctx context.Context, subreddit string) ([]string, error) {
	var resp struct {
		Data struct {
			Children []struct {
				Name string `json:"name"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/r/%s/about/moderators", subreddit), nil, &resp); err != nil {
		return nil, fmt.Errorf("listing moderators for r/%s: %w", subreddit, err)
	}
	names := make([]string, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		names = append(names, child.Name)
	}
	return names, nil
}

// ModeratedSubreddits returns the display names of every subreddit the
// authenticated account moderates, in the order the API reports them.
func (c *Client) ModeratedSubreddits(ctx context.Context) ([]string, error) {
	var subs []string
	after := ""
	for {
		params := map[string]any{"limit": listingPageSize}
		if after != "" {
			params["after"] = after
		}
		var page listing
		if err := c.do(ctx, http.MethodGet, "/subreddits/mine/moderator", params, &page); err != nil {
			return nil, fmt.Errorf("listing moderated subreddits: %w", err)
		}
		for _, child := range page.Data.Children {
			var sub struct {
				DisplayName string `json:"display_name"`
			}
			if err := json.Unmarshal(child.Data, &sub); err != nil {
				return nil, fmt.Errorf("parsing subreddit entry: %w", err)
			}
			subs = append(subs, sub.DisplayName)
		}
		after = page.Data.After
		if after == "" || len(page.Data.Children) == 0 {
			break
		}
	}
	return subs, nil
}

// BanUser permanently bans a user from a subreddit. The note is the private
// moderator annotation shown in the banned-user listing; the reason is shown
// to the banned user.
func (c *Client) BanUser(ctx context.Context, subreddit, name, reason, note string) error {
	var resp jsonErrorBody
	params := map[string]any{
		"type":       "banned",
		"name":       name,
		"ban_reason": reason,
		"note":       note,
		"api_type":   "json",
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/r/%s/api/friend", subreddit), params, &resp); err != nil {
		return fmt.Errorf("banning u/%s from r/%s: %w", name, subreddit, err)
	}
	if err := checkFormResponse(resp); err != nil {
		return fmt.Errorf("banning u/%s from r/%s: %w", name, subreddit, err)
	}
	return nil
}

// ModLog returns up to limit recent moderation-log entries of the given
// action type, newest first. Use the special subreddit "mod" to query the
// combined log of every subreddit the account moderates.
func (c *Client) ModLog(ctx context.Context, subreddit, action string, limit int) ([]ModAction, error) {
	var actions []ModAction
	after := ""
	for len(actions) < limit {
		want := limit - len(actions)
		if want > 500 {
			want = 500
		}
		params := map[string]any{"type": action, "limit": want}
		if after != "" {
			params["after"] = after
		}
		var page listing
		if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/r/%s/about/log", subreddit), params, &page); err != nil {
			return nil, fmt.Errorf("fetching mod log: %w", err)
		}
		if len(page.Data.Children) == 0 {
			break
		}
		for _, child := range page.Data.Children {
			var entry ModAction
			if err := json.Unmarshal(child.Data, &entry); err != nil {
				return nil, fmt.Errorf("parsing mod-log entry: %w", err)
			}
			actions = append(actions, entry)
		}
		after = page.Data.After
		if after == "" {
			break
		}
	}
	if len(actions) > limit {
		actions = actions[:limit]
	}
	return actions, nil
}
