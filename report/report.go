// Package report builds human-readable behavioral summaries of banned
// accounts: activity histograms, removal rates, profanity flags, and linked
// external domains. Reports are included in the notification sent to the
// moderator who originated a ban.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/modfleet/warden/reddit"
)

const (
	submissionSample = 100
	commentSample    = 250
	quoteLimit       = 200
	tableLimit       = 10
)

// AccountStatus classifies whether an account can still be inspected.
// Suspended and shadow-banned accounts are expected, frequent outcomes, not
// errors.
type AccountStatus int

const (
	StatusActive AccountStatus = iota
	StatusSuspended
	StatusShadowBanned
)

func accountStatus(err error) AccountStatus {
	switch {
	case reddit.IsForbidden(err):
		return StatusSuspended
	case reddit.IsNotFound(err):
		return StatusShadowBanned
	default:
		return StatusActive
	}
}

// ActivitySource is the slice of the platform client the generator needs.
type ActivitySource interface {
	AboutUser(ctx context.Context, name string) (*reddit.Account, error)
	UserSubmissions(ctx context.Context, name string, limit int) ([]reddit.Submission, error)
	UserComments(ctx context.Context, name string, limit int) ([]reddit.Comment, error)
	Info(ctx context.Context, fullnames []string) ([]reddit.Content, error)
}

// Generator produces Markdown reports from an account's recent public
// activity.
type Generator struct {
	Logger     *slog.Logger
	Source     ActivitySource
	Classifier Classifier

	// Now is swappable in tests; defaults to time.Now.
	Now func() time.Time
}

func NewGenerator(logger *slog.Logger, source ActivitySource, classifier Classifier) *Generator {
	return &Generator{
		Logger:     logger.With("system", "report"),
		Source:     source,
		Classifier: classifier,
		Now:        time.Now,
	}
}

// Generate builds the report for one account. Accounts that are already
// suspended or shadow-banned yield a one-line notice instead of a full
// report.
func (g *Generator) Generate(ctx context.Context, username string) (string, error) {
	submissions, err := g.Source.UserSubmissions(ctx, username, submissionSample)
	if err != nil {
		switch accountStatus(err) {
		case StatusSuspended:
			return fmt.Sprintf("User u/%s is likely already suspended.", username), nil
		case StatusShadowBanned:
			return fmt.Sprintf("User u/%s is likely already shadow-banned.", username), nil
		default:
			return "", fmt.Errorf("fetching submissions for u/%s: %w", username, err)
		}
	}
	comments, err := g.Source.UserComments(ctx, username, commentSample)
	if err != nil {
		return "", fmt.Errorf("fetching comments for u/%s: %w", username, err)
	}
	account, err := g.Source.AboutUser(ctx, username)
	if err != nil {
		return "", fmt.Errorf("fetching profile for u/%s: %w", username, err)
	}

	var b strings.Builder
	b.WriteString(g.header(username, account, len(submissions), len(comments)))
	b.WriteString(" ")
	b.WriteString(g.submissionSection(ctx, submissions))
	b.WriteString(" ")
	b.WriteString(g.commentSection(ctx, comments))
	b.WriteString(" ")

	var linked []string
	for _, s := range submissions {
		if !s.IsSelf {
			linked = append(linked, extractDomains(s.URL)...)
		}
	}
	profanitySection, commentDomains := g.examineComments(comments)
	linked = append(linked, commentDomains...)

	b.WriteString(profanitySection)
	b.WriteString(" ")
	b.WriteString(domainSection(linked))
	b.WriteString(footer)
	return b.String(), nil
}

func (g *Generator) header(username string, account *reddit.Account, numSubmissions, numComments int) string {
	p := message.NewPrinter(language.English)
	created := time.Unix(int64(account.CreatedUTC), 0).UTC()
	ageDays := int(g.Now().Sub(created).Hours() / 24)

	var b strings.Builder
	fmt.Fprintf(&b, "#### u/%s\n\n", username)
	p.Fprintf(&b, "* Submission Karma: %d\n", account.LinkKarma)
	fmt.Fprintf(&b, "* Examined Submissions: %d/%d\n", numSubmissions, submissionSample)
	p.Fprintf(&b, "* Comment Karma: %d\n", account.CommentKarma)
	fmt.Fprintf(&b, "* Examined Comments: %d/%d\n", numComments, commentSample)
	p.Fprintf(&b, "* Account Age: %d days (created %s)\n", ageDays, created.Format(time.DateOnly))
	fmt.Fprintf(&b, "* Verified Email: %t\n\n", account.HasVerifiedEmail)
	return b.String()
}

func (g *Generator) submissionSection(ctx context.Context, submissions []reddit.Submission) string {
	if len(submissions) == 0 {
		return ""
	}
	var subreddits []string
	fullnames := make([]string, 0, len(submissions))
	for _, s := range submissions {
		subreddits = append(subreddits, s.Subreddit)
		fullnames = append(fullnames, s.Fullname())
	}
	var b strings.Builder
	b.WriteString("\n#### Submissions\n\n| Subreddit | Count |\n|-----------|-------|")
	for _, rc := range rankCounts(subreddits, tableLimit) {
		fmt.Fprintf(&b, "\n| r/%s | %d |", rc.name, rc.count)
	}
	fmt.Fprintf(&b, "\n\n*%s*\n\n", g.removalSummary(ctx, fullnames, "submission"))
	return b.String()
}

func (g *Generator) commentSection(ctx context.Context, comments []reddit.Comment) string {
	if len(comments) == 0 {
		return ""
	}
	var subreddits []string
	fullnames := make([]string, 0, len(comments))
	for _, c := range comments {
		subreddits = append(subreddits, c.Subreddit)
		fullnames = append(fullnames, c.Fullname())
	}
	var b strings.Builder
	b.WriteString("\n#### Comments\n\n| Subreddit | Count |\n|-----------|-------|")
	for _, rc := range rankCounts(subreddits, tableLimit) {
		fmt.Fprintf(&b, "\n| r/%s | %d |", rc.name, rc.count)
	}
	fmt.Fprintf(&b, "\n\n*%s*\n\n", g.removalSummary(ctx, fullnames, "comment"))
	return b.String()
}

// removalSummary refreshes the objects by fullname, so moderator-visible
// removal state is present, and reports how many were removed site-wide.
// Comments signal removal with a body marker; submissions carry an explicit
// removal category.
func (g *Generator) removalSummary(ctx context.Context, fullnames []string, kind string) string {
	refreshed, err := g.Source.Info(ctx, fullnames)
	if err != nil {
		g.Logger.Warn("could not refresh objects for removal check", "err", err)
		return fmt.Sprintf("Removal data unavailable for %ss.", kind)
	}
	removed := 0
	for _, item := range refreshed {
		switch v := item.(type) {
		case reddit.Comment:
			if strings.Contains(v.Body, "[removed]") {
				removed++
			}
		case reddit.Submission:
			if v.RemovedByCategory != "" {
				removed++
			}
		}
	}
	pct := float64(removed) / float64(len(fullnames)) * 100
	return fmt.Sprintf("%d/%d %ss removed site-wide. (%.2f%%)", removed, len(fullnames), kind, pct)
}

// examineComments runs the profanity classifier over every comment body and
// collects linked domains along the way. Quoted bodies are flattened to one
// line and truncated for display; classification sees the full text.
func (g *Generator) examineComments(comments []reddit.Comment) (string, []string) {
	var flagged []string
	var domains []string
	for _, c := range comments {
		if g.Classifier.Classify(c.Body) == 1 {
			body := strings.ReplaceAll(c.Body, "\n", " ")
			if len(body) > quoteLimit {
				body = body[:quoteLimit] + "..."
			}
			flagged = append(flagged, fmt.Sprintf("%s (*[Link](%s) on r/%s*)", body, c.Permalink, c.Subreddit))
		}
		domains = append(domains, extractDomains(c.Body)...)
	}
	if len(flagged) == 0 {
		return "", domains
	}
	section := fmt.Sprintf("\n**Profanity Score**: (%d/%d)\n\n", len(flagged), len(comments))
	section += "\n> " + strings.Join(flagged, "\n> ")
	return section, domains
}

// domainSection formats the frequency-ranked table of externally linked
// domains. The platform's own domains are excluded.
func domainSection(domains []string) string {
	external := domains[:0:0]
	for _, d := range domains {
		if strings.Contains(d, "reddit.com") || strings.Contains(d, "redd.it") {
			continue
		}
		external = append(external, d)
	}
	if len(external) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n**Linked External Domains**:\n\n| Domain | Count |\n|--------|-------|")
	for _, rc := range rankCounts(external, tableLimit) {
		fmt.Fprintf(&b, "\n| `%s` | %d |", rc.name, rc.count)
	}
	return b.String()
}

type rankedCount struct {
	name  string
	count int
}

// rankCounts tallies occurrences and returns up to limit entries by
// descending count. Ties keep first-appearance order (stable).
func rankCounts(items []string, limit int) []rankedCount {
	counts := make(map[string]int)
	var order []string
	for _, item := range items {
		if _, seen := counts[item]; !seen {
			order = append(order, item)
		}
		counts[item]++
	}
	ranked := make([]rankedCount, 0, len(order))
	for _, name := range order {
		ranked = append(ranked, rankedCount{name: name, count: counts[name]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].count > ranked[j].count
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

const footer = "\n\n---\n\n" +
	"[Report for Spam](https://www.reddit.com/report?reason=this-is-spam) • " +
	"[Ban Evasion](https://www.reddit.com/report?reason=its-ban-evasion) • " +
	"[Abuse](https://www.reddit.com/report?reason=its-promoting-hate-based-on-identity-or-vulnerability) • " +
	"[Violence](https://www.reddit.com/report?reason=it-threatens-violence-or-physical-harm)"
