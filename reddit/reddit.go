// Package reddit implements a minimal JSON-over-HTTP client for the parts of
// the Reddit API that a moderation bot needs: banned-user listings, the mod
// log, wiki pages, ban actions, private messages, and user activity.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"
)

const (
	authHost = "https://www.reddit.com"
	apiHost  = "https://oauth.reddit.com"
)

// Client is an authenticated Reddit API client. The zero value is not
// usable; construct with NewClient and call Login before issuing requests.
type Client struct {
	// Client is an HTTP client to use. If not set, defaults to RobustHTTPClient().
	Client    *http.Client
	Host      string
	AuthHost  string
	UserAgent string
	Limiter   *rate.Limiter

	creds Credentials
	token string
}

// Credentials holds the OAuth "script app" password-grant inputs, normally
// loaded from the environment at startup.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

func NewClient(creds Credentials, userAgent string) *Client {
	if userAgent == "" {
		userAgent = "warden/" + versioninfo.Short()
	}
	return &Client{
		Host:      apiHost,
		AuthHost:  authHost,
		UserAgent: userAgent,
		// Reddit allows 100 requests per minute for OAuth clients.
		Limiter: rate.NewLimiter(rate.Limit(100.0/60.0), 10),
		creds:   creds,
	}
}

func (c *Client) getClient() *http.Client {
	if c.Client == nil {
		c.Client = RobustHTTPClient()
	}
	return c.Client
}

// Username returns the account the client authenticates as.
func (c *Client) Username() string {
	return c.creds.Username
}

// Error is returned for any non-2xx API response.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("reddit API error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("reddit API error: status=%d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is an API 404. Reddit signals shadow-banned
// accounts and missing wiki pages this way.
func IsNotFound(err error) bool {
	return isStatus(err, http.StatusNotFound)
}

// IsForbidden reports whether err is an API 403. Reddit signals suspended
// accounts and permission problems this way.
func IsForbidden(err error) bool {
	return isStatus(err, http.StatusForbidden)
}

// IsTooLarge reports whether err indicates the payload exceeded a remote
// size limit (oversized wiki page).
func IsTooLarge(err error) bool {
	if isStatus(err, http.StatusRequestEntityTooLarge) {
		return true
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Code == "TOO_LONG"
	}
	return false
}

// IsBadRequest reports whether err is an API 400, the status Reddit uses for
// actions against accounts that no longer exist or are suspended site-wide.
func IsBadRequest(err error) bool {
	return isStatus(err, http.StatusBadRequest)
}

func isStatus(err error, status int) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.StatusCode == status
	}
	return false
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	ErrorStr    string `json:"error"`
}

// Login performs the OAuth2 password grant and stores the bearer token for
// subsequent requests. One run is well within the token lifetime, so no
// refresh handling is done.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.creds.Username)
	form.Set("password", c.creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.AuthHost+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.getClient().Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{StatusCode: resp.StatusCode}
	}
	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("decoding auth response: %w", err)
	}
	if tok.ErrorStr != "" || tok.AccessToken == "" {
		return fmt.Errorf("auth rejected: %s", tok.ErrorStr)
	}
	c.token = tok.AccessToken
	return nil
}

// makeParams converts a map of string keys and any values into url.Values.
// Generally the values will be strings, numbers, or booleans.
func makeParams(p map[string]any) url.Values {
	params := url.Values{}
	for k, v := range p {
		params.Set(k, fmt.Sprint(v))
	}
	return params
}

// do issues one API request. GET requests encode params in the query string;
// POST requests send them form-encoded. A non-nil out is filled from the
// JSON response body.
func (c *Client) do(ctx context.Context, method, path string, params map[string]any, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var body io.Reader
	uri := c.Host + path
	encoded := makeParams(params).Encode()
	switch method {
	case http.MethodGet:
		if encoded != "" {
			uri += "?" + encoded
		}
	case http.MethodPost:
		body = strings.NewReader(encoded)
	default:
		return fmt.Errorf("unsupported request method: %s", method)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return err
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("User-Agent", c.UserAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.getClient().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// jsonErrorBody is the envelope Reddit wraps form-endpoint errors in, eg
// {"json": {"errors": [["TOO_LONG", "this is too long", "content"]]}}.
type jsonErrorBody struct {
	JSON struct {
		Errors [][]string `json:"errors"`
	} `json:"json"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func errorFromResponse(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}
	var body jsonErrorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return apiErr
	}
	if len(body.JSON.Errors) > 0 && len(body.JSON.Errors[0]) >= 2 {
		apiErr.Code = body.JSON.Errors[0][0]
		apiErr.Message = body.JSON.Errors[0][1]
	} else if body.Reason != "" {
		apiErr.Code = body.Reason
		apiErr.Message = body.Message
	}
	return apiErr
}

// checkFormResponse inspects a 200 response from a form endpoint for
// embedded errors, which Reddit reports with a success status.
func checkFormResponse(body jsonErrorBody) error {
	if len(body.JSON.Errors) > 0 && len(body.JSON.Errors[0]) >= 2 {
		return &Error{
			StatusCode: http.StatusOK,
			Code:       body.JSON.Errors[0][0],
			Message:    body.JSON.Errors[0][1],
		}
	}
	return nil
}
