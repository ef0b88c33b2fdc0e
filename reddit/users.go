package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// AboutUser fetches the public profile of an account. Shadow-banned accounts
// return a 404 *Error; suspended accounts return a profile with IsSuspended
// set.
func (c *Client) AboutUser(ctx context.Context, name string) (*Account, error) {
	var resp struct {
		Data Account `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/user/%s/about", name), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// UserSubmissions returns up to limit of the account's newest submissions.
func (c *Client) UserSubmissions(ctx context.Context, name string, limit int) ([]Submission, error) {
	var page listing
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/user/%s/submitted", name), map[string]any{"limit": limit, "sort": "new"}, &page); err != nil {
		return nil, err
	}
	subs := make([]Submission, 0, len(page.Data.Children))
	for _, child := range page.Data.Children {
		var s Submission
		if err := json.Unmarshal(child.Data, &s); err != nil {
			return nil, fmt.Errorf("parsing submission: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, nil
}

// UserComments returns up to limit of the account's newest comments.
func (c *Client) UserComments(ctx context.Context, name string, limit int) ([]Comment, error) {
	var page listing
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/user/%s/comments", name), map[string]any{"limit": limit, "sort": "new"}, &page); err != nil {
		return nil, err
	}
	comments := make([]Comment, 0, len(page.Data.Children))
	for _, child := range page.Data.Children {
		var cm Comment
		if err := json.Unmarshal(child.Data, &cm); err != nil {
			return nil, fmt.Errorf("parsing comment: %w", err)
		}
		comments = append(comments, cm)
	}
	return comments, nil
}

// Info refreshes a batch of things by fullname. Objects fetched this way
// carry moderator-visible removal state, which per-user listings omit.
func (c *Client) Info(ctx context.Context, fullnames []string) ([]Content, error) {
	if len(fullnames) == 0 {
		return nil, nil
	}
	var out []Content
	// the endpoint caps each request at 100 ids
	for start := 0; start < len(fullnames); start += 100 {
		end := start + 100
		if end > len(fullnames) {
			end = len(fullnames)
		}
		var page listing
		params := map[string]any{"id": strings.Join(fullnames[start:end], ",")}
		if err := c.do(ctx, http.MethodGet, "/api/info", params, &page); err != nil {
			return nil, fmt.Errorf("fetching thing info: %w", err)
		}
		for _, child := range page.Data.Children {
			switch child.Kind {
			case kindComment:
				var cm Comment
				if err := json.Unmarshal(child.Data, &cm); err != nil {
					return nil, fmt.Errorf("parsing comment info: %w", err)
				}
				out = append(out, cm)
			case kindSubmission:
				var s Submission
				if err := json.Unmarshal(child.Data, &s); err != nil {
					return nil, fmt.Errorf("parsing submission info: %w", err)
				}
				out = append(out, s)
			default:
				return nil, fmt.Errorf("unexpected thing kind in info response: %s", child.Kind)
			}
		}
	}
	return out, nil
}
