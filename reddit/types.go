package reddit

import "encoding/json"

// thing is the generic typed-envelope Reddit wraps every API object in.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	After    string  `json:"after"`
	Children []thing `json:"children"`
}

type listing struct {
	Kind string      `json:"kind"`
	Data listingData `json:"data"`
}

// BannedUser is one entry of a subreddit's banned-user listing.
type BannedUser struct {
	Name string `json:"name"`
	Note string `json:"note"`
}

// ModAction is one entry of the moderation log.
type ModAction struct {
	Mod          string `json:"mod"`
	TargetAuthor string `json:"target_author"`
	Subreddit    string `json:"subreddit"`
	Action       string `json:"action"`
}

// Account is the public profile of a user account.
type Account struct {
	Name             string  `json:"name"`
	CreatedUTC       float64 `json:"created_utc"`
	LinkKarma        int     `json:"link_karma"`
	CommentKarma     int     `json:"comment_karma"`
	HasVerifiedEmail bool    `json:"has_verified_email"`
	IsSuspended      bool    `json:"is_suspended"`
}

// Content is either a Comment or a Submission. Consumers distinguish the
// two variants with a type switch.
type Content interface {
	// Fullname is the globally unique type-prefixed id ("t1_..." for
	// comments, "t3_..." for submissions).
	Fullname() string
}

// Comment is a user comment.
type Comment struct {
	Name      string `json:"name"`
	Body      string `json:"body"`
	Subreddit string `json:"subreddit"`
	Permalink string `json:"permalink"`
}

func (c Comment) Fullname() string { return c.Name }

// Submission is a link or self post.
type Submission struct {
	Name              string `json:"name"`
	Subreddit         string `json:"subreddit"`
	URL               string `json:"url"`
	IsSelf            bool   `json:"is_self"`
	RemovedByCategory string `json:"removed_by_category"`
}

func (s Submission) Fullname() string { return s.Name }

const (
	kindComment    = "t1"
	kindSubmission = "t3"
)
