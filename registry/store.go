package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/modfleet/warden/reddit"
)

// DefaultPage is the wiki page name the registry lives under.
const DefaultPage = "warden_config"

// emptyTemplate is written when the page does not exist yet. All three
// sections start null so human editors see the expected shape.
const emptyTemplate = "    full_bans: null\n    ignore: null\n    soft_bans: null"

// WikiService is the slice of the platform client the store needs.
type WikiService interface {
	WikiPage(ctx context.Context, subreddit, page string) (string, error)
	EditWikiPage(ctx context.Context, subreddit, page, content, reason string) error
}

// WriteRejectedError wraps a registry write the remote side refused for
// size or permission reasons. Callers treat it as non-fatal and continue
// with the in-memory document.
type WriteRejectedError struct {
	Err error
}

func (e *WriteRejectedError) Error() string {
	return fmt.Sprintf("registry write rejected: %v", e.Err)
}

func (e *WriteRejectedError) Unwrap() error { return e.Err }

// Store reads and writes the registry document. It is the only component
// that touches the backing page, and it holds no state between calls: every
// Load fetches fresh so external edits are observed.
type Store struct {
	Logger    *slog.Logger
	Wiki      WikiService
	Subreddit string
	Page      string
}

func NewStore(logger *slog.Logger, wiki WikiService, subreddit string) *Store {
	return &Store{
		Logger:    logger.With("system", "registry"),
		Wiki:      wiki,
		Subreddit: subreddit,
		Page:      DefaultPage,
	}
}

// Load fetches and parses the registry. If the backing page does not exist
// it is created from the empty template and an empty document is returned.
// Malformed stored content is an error; the run cannot reconcile without a
// trusted source of truth.
func (s *Store) Load(ctx context.Context) (*Document, error) {
	content, err := s.Wiki.WikiPage(ctx, s.Subreddit, s.Page)
	if err != nil {
		if reddit.IsNotFound(err) {
			s.Logger.Info("registry page missing, creating template", "subreddit", s.Subreddit, "page", s.Page)
			if err := s.Wiki.EditWikiPage(ctx, s.Subreddit, s.Page, emptyTemplate, "Creating ban registry page."); err != nil {
				return nil, fmt.Errorf("creating registry page: %w", err)
			}
			return &Document{}, nil
		}
		return nil, fmt.Errorf("fetching registry page: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal([]byte(dedent(content)), &doc); err != nil {
		return nil, fmt.Errorf("malformed registry content: %w", err)
	}
	return &doc, nil
}

// Update applies mutate to a copy of existing and writes the result back,
// but only if the mutation changed anything. Repeated runs against an
// unchanged remote state therefore never rewrite the page. The returned
// document is the mutated copy regardless of whether a write happened, so a
// rejected write still leaves the caller with usable in-memory state.
//
// No locking is done; a concurrent external edit landing between Load and
// Update is overwritten (last-writer-wins, accepted under low contention).
func (s *Store) Update(ctx context.Context, existing *Document, mutate func(*Document)) (*Document, error) {
	next := existing.Clone()
	mutate(next)

	if next.Equal(existing) {
		s.Logger.Debug("no change in registry data, skipping write")
		return next, nil
	}

	out, err := yaml.Marshal(next)
	if err != nil {
		return next, fmt.Errorf("serializing registry: %w", err)
	}
	if err := s.Wiki.EditWikiPage(ctx, s.Subreddit, s.Page, indent(string(out)), "Updating with new data."); err != nil {
		if reddit.IsForbidden(err) || reddit.IsTooLarge(err) {
			return next, &WriteRejectedError{Err: err}
		}
		return next, fmt.Errorf("writing registry page: %w", err)
	}
	s.Logger.Info("updated registry page",
		"full_bans", len(next.FullBans), "soft_bans", len(next.SoftBans), "ignore", len(next.Ignore))
	return next, nil
}

// PageURL is a human-facing link to the registry, used in operator
// notifications.
func (s *Store) PageURL() string {
	return fmt.Sprintf("https://www.reddit.com/r/%s/wiki/%s", s.Subreddit, s.Page)
}

// indent prefixes each line with four spaces so the wiki renders the
// document as a code block.
func indent(content string) string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}

// dedent strips the display indentation before parsing.
func dedent(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, "    ")
	}
	return strings.Join(lines, "\n")
}
