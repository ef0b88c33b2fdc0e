package warden

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modfleet/warden/reddit"
	"github.com/modfleet/warden/registry"
)

const testKeyword = "WARDEN"

// fakeFleet is an in-memory stand-in for the platform: a set of communities
// with moderators and ban lists that ban actions mutate.
type fakeFleet struct {
	subs       []string
	mods       map[string][]string
	bans       map[string]map[string]string
	rejectBans map[string]bool

	banCalls int
	modLog   []reddit.ModAction
	logCalls []int
}

func newFakeFleet(subs ...string) *fakeFleet {
	f := &fakeFleet{
		subs:       subs,
		mods:       make(map[string][]string),
		bans:       make(map[string]map[string]string),
		rejectBans: make(map[string]bool),
	}
	for _, s := range subs {
		f.bans[s] = make(map[string]string)
	}
	return f
}

func (f *fakeFleet) ModeratedSubreddits(ctx context.Context) ([]string, error) {
	return f.subs, nil
}

func (f *fakeFleet) Moderators(ctx context.Context, subreddit string) ([]string, error) {
	return f.mods[subreddit], nil
}

func (f *fakeFleet) BannedUsers(ctx context.Context, subreddit string) (map[string]string, error) {
	out := make(map[string]string, len(f.bans[subreddit]))
	for k, v := range f.bans[subreddit] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeFleet) BanUser(ctx context.Context, subreddit, name, reason, note string) error {
	f.banCalls++
	if f.rejectBans[name] {
		return &reddit.Error{StatusCode: http.StatusBadRequest, Code: "USER_DOESNT_EXIST"}
	}
	f.bans[subreddit][name] = note
	return nil
}

func (f *fakeFleet) ModLog(ctx context.Context, subreddit, action string, limit int) ([]reddit.ModAction, error) {
	f.logCalls = append(f.logCalls, limit)
	if len(f.modLog) > limit {
		return f.modLog[:limit], nil
	}
	return f.modLog, nil
}

type sentMessage struct {
	Recipient string
	Subject   string
	Body      string
}

type fakeNotifier struct {
	sent []sentMessage
}

func (n *fakeNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	n.sent = append(n.sent, sentMessage{recipient, subject, body})
	return nil
}

type fakeReporter struct{}

func (fakeReporter) Generate(ctx context.Context, username string) (string, error) {
	return fmt.Sprintf("report for u/%s", username), nil
}

// fakeWiki mirrors the registry backend, counting edits.
type fakeWiki struct {
	pages   map[string]string
	edits   int
	editErr error
}

func newFakeWiki(content string) *fakeWiki {
	w := &fakeWiki{pages: make(map[string]string)}
	if content != "" {
		w.pages["fleethq/"+registry.DefaultPage] = content
	}
	return w
}

func (w *fakeWiki) WikiPage(ctx context.Context, subreddit, page string) (string, error) {
	content, ok := w.pages[subreddit+"/"+page]
	if !ok {
		return "", &reddit.Error{StatusCode: http.StatusNotFound}
	}
	return content, nil
}

func (w *fakeWiki) EditWikiPage(ctx context.Context, subreddit, page, content, reason string) error {
	if w.editErr != nil {
		return w.editErr
	}
	w.edits++
	w.pages[subreddit+"/"+page] = content
	return nil
}

func engineFixture(fleet *fakeFleet, wiki *fakeWiki, notifier *fakeNotifier) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Engine{
		Logger:   logger,
		Client:   fleet,
		Registry: registry.NewStore(logger, wiki, "fleethq"),
		Resolver: &Resolver{Log: fleet, Self: "wardenbot"},
		Reporter: fakeReporter{},
		Notifier: notifier,
		Keyword:  testKeyword,
	}
}

const seededRegistry = "    full_bans:\n        - alice\n        - bob\n    ignore: null\n    soft_bans: null"

func TestConvergence(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fleet := newFakeFleet("one", "two", "three")
	fleet.bans["one"]["alice"] = "manual ban"
	fleet.modLog = []reddit.ModAction{
		{Mod: "modkate", TargetAuthor: "alice", Subreddit: "one", Action: "banuser"},
		{Mod: "modkate", TargetAuthor: "bob", Subreddit: "one", Action: "banuser"},
	}
	wiki := newFakeWiki(seededRegistry)
	notifier := &fakeNotifier{}

	engine := engineFixture(fleet, wiki, notifier)
	require.NoError(t, engine.Run(ctx))

	for _, sub := range []string{"one", "two", "three"} {
		assert.Contains(fleet.bans[sub], "alice")
		assert.Contains(fleet.bans[sub], "bob")
	}
	// alice was already banned on one; five bans were applied
	assert.Equal(5, fleet.banCalls)
	// nothing tagged, so the registry is untouched
	assert.Equal(0, wiki.edits)
	// each newly banned identity produced one notification, deduplicated
	assert.Len(notifier.sent, 2)
	assert.Equal("modkate", notifier.sent[0].Recipient)
	assert.Contains(notifier.sent[0].Body, "report for")
}

func TestConvergenceWithRejection(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fleet := newFakeFleet("one", "two", "three")
	fleet.rejectBans["bob"] = true
	fleet.modLog = []reddit.ModAction{
		{Mod: "modkate", TargetAuthor: "alice", Subreddit: "one", Action: "banuser"},
	}
	wiki := newFakeWiki(seededRegistry)
	notifier := &fakeNotifier{}

	engine := engineFixture(fleet, wiki, notifier)
	require.NoError(t, engine.Run(ctx))

	// bob's rejections must not block alice anywhere
	for _, sub := range []string{"one", "two", "three"} {
		assert.Contains(fleet.bans[sub], "alice")
		assert.NotContains(fleet.bans[sub], "bob")
	}
	// rejected attempts are not newly-banned, so only alice is notified about
	assert.Len(notifier.sent, 1)
	assert.Contains(notifier.sent[0].Subject, "u/alice")
}

func TestIdempotence(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fleet := newFakeFleet("one", "two")
	fleet.bans["one"]["tagged_x"] = testKeyword + " - spammer"
	fleet.modLog = []reddit.ModAction{
		{Mod: "modkate", TargetAuthor: "tagged_x", Subreddit: "one", Action: "banuser"},
	}
	wiki := newFakeWiki(seededRegistry)
	notifier := &fakeNotifier{}

	engine := engineFixture(fleet, wiki, notifier)
	require.NoError(t, engine.Run(ctx))

	firstBanCalls := fleet.banCalls
	firstEdits := wiki.edits
	firstSent := len(notifier.sent)
	assert.Equal(1, firstEdits)

	// second run against converged external state: no writes, no bans
	require.NoError(t, engine.Run(ctx))
	assert.Equal(firstBanCalls, fleet.banCalls)
	assert.Equal(firstEdits, wiki.edits)
	assert.Len(notifier.sent, firstSent)
}

func TestIgnorePrecedence(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fleet := newFakeFleet("one", "two")
	wiki := newFakeWiki("    full_bans:\n        - alice\n    ignore:\n        - alice\n    soft_bans: null")
	notifier := &fakeNotifier{}

	engine := engineFixture(fleet, wiki, notifier)
	require.NoError(t, engine.Run(ctx))

	assert.Equal(0, fleet.banCalls)
	for _, sub := range []string{"one", "two"} {
		assert.NotContains(fleet.bans[sub], "alice")
	}
}

func TestModeratorExclusion(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fleet := newFakeFleet("one", "two")
	fleet.mods["two"] = []string{"alice"}
	wiki := newFakeWiki("    full_bans:\n        - alice\n    ignore: null\n    soft_bans: null")
	notifier := &fakeNotifier{}

	engine := engineFixture(fleet, wiki, notifier)
	require.NoError(t, engine.Run(ctx))

	// a moderator anywhere in the fleet is banned nowhere
	assert.Equal(0, fleet.banCalls)
}

func TestPromotion(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fleet := newFakeFleet("one", "two", "three")
	fleet.bans["one"]["spambot9"] = testKeyword + " - repeated spam"
	wiki := newFakeWiki("    full_bans: null\n    ignore: null\n    soft_bans: null")
	notifier := &fakeNotifier{}

	engine := engineFixture(fleet, wiki, notifier)
	require.NoError(t, engine.Run(ctx))

	// the tagged ban landed in the registry with exactly one page write
	assert.Equal(1, wiki.edits)
	store := registry.NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)), wiki, "fleethq")
	doc, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(doc.HasFullBan("spambot9"))

	// and propagated to the other communities within the same run
	assert.Contains(fleet.bans["two"], "spambot9")
	assert.Contains(fleet.bans["three"], "spambot9")
}

func TestPromotionSkipsModerators(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fleet := newFakeFleet("one", "two")
	fleet.mods["two"] = []string{"modkate"}
	fleet.bans["one"]["modkate"] = testKeyword + " - tagged by mistake"
	wiki := newFakeWiki("    full_bans: null\n    ignore: null\n    soft_bans: null")
	notifier := &fakeNotifier{}

	engine := engineFixture(fleet, wiki, notifier)
	require.NoError(t, engine.Run(ctx))

	assert.Equal(0, wiki.edits)
	assert.Equal(0, fleet.banCalls)
}

func TestAttributionNotFound(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// empty mod log: the full_bans entries came from a manual registry edit
	fleet := newFakeFleet("one")
	wiki := newFakeWiki(seededRegistry)
	notifier := &fakeNotifier{}

	engine := engineFixture(fleet, wiki, notifier)
	require.NoError(t, engine.Run(ctx))

	assert.Equal(2, fleet.banCalls)
	assert.Empty(notifier.sent)
}

func TestAttributionLookbackScaling(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fleet := newFakeFleet("one", "two", "three")
	wiki := newFakeWiki(seededRegistry)
	notifier := &fakeNotifier{}

	engine := engineFixture(fleet, wiki, notifier)
	require.NoError(t, engine.Run(ctx))

	require.NotEmpty(t, fleet.logCalls)
	for _, limit := range fleet.logCalls {
		assert.GreaterOrEqual(limit, 6*len(fleet.subs))
	}
}

func TestRegistryWriteRejectionNotifiesOperator(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fleet := newFakeFleet("one", "two")
	fleet.bans["one"]["spambot9"] = testKeyword + " - spam"
	wiki := newFakeWiki("    full_bans: null\n    ignore: null\n    soft_bans: null")
	wiki.editErr = &reddit.Error{StatusCode: http.StatusForbidden}
	notifier := &fakeNotifier{}

	engine := engineFixture(fleet, wiki, notifier)
	require.NoError(t, engine.Run(ctx))

	// the operator was asked to clean the page
	require.NotEmpty(t, notifier.sent)
	assert.Equal("/r/fleethq", notifier.sent[0].Recipient)
	assert.Contains(notifier.sent[0].Subject, registry.DefaultPage)

	// the run continued on the in-memory document
	assert.Contains(fleet.bans["two"], "spambot9")
}

func TestCollectModerators(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fleet := newFakeFleet("one", "two")
	fleet.mods["one"] = []string{"modkate", "modjoe"}
	fleet.mods["two"] = []string{"modjoe", "modsue"}

	mods, err := CollectModerators(ctx, fleet, fleet.subs)
	require.NoError(t, err)
	assert.Len(mods, 3)
	assert.True(mods["modkate"] && mods["modjoe"] && mods["modsue"])
}
