// Package warden implements the per-run ban reconciliation engine: it loads
// the shared registry, promotes keyword-tagged local bans into it, applies
// missing registry bans to every monitored community, and notifies the
// moderator who originated each freshly propagated ban.
package warden

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modfleet/warden/registry"
)

// DefaultBanReason is shown to users banned by propagation.
const DefaultBanReason = "Banned from the shared ban registry."

// ModerationClient is the slice of the platform client the engine needs.
type ModerationClient interface {
	ModeratedSubreddits(ctx context.Context) ([]string, error)
	Moderators(ctx context.Context, subreddit string) ([]string, error)
	BannedUsers(ctx context.Context, subreddit string) (map[string]string, error)
	BanUser(ctx context.Context, subreddit, name, reason, note string) error
}

// Reporter builds the behavioral summary included in attribution
// notifications.
type Reporter interface {
	Generate(ctx context.Context, username string) (string, error)
}

// Engine runs one reconciliation pass over the fleet. Construct with all
// fields set; there is no ambient state.
type Engine struct {
	Logger   *slog.Logger
	Client   ModerationClient
	Registry *registry.Store
	Resolver *Resolver
	Reporter Reporter
	Notifier Notifier

	// Keyword is the marker that flags a local ban note for registry
	// promotion.
	Keyword string
	// BanReason is the reason string used for propagated bans.
	BanReason string
}

// propagation is one ban this run actually applied.
type propagation struct {
	Identity  string
	Community string
}

// Run executes one full reconciliation pass. Only run-level failures are
// returned; per-identity and per-community failures are logged and skipped.
func (e *Engine) Run(ctx context.Context) error {
	reason := e.BanReason
	if reason == "" {
		reason = DefaultBanReason
	}

	doc, err := e.Registry.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading ban registry: %w", err)
	}

	communities, err := e.Client.ModeratedSubreddits(ctx)
	if err != nil {
		return fmt.Errorf("listing monitored communities: %w", err)
	}
	e.Logger.Info("starting reconciliation", "communities", len(communities))

	moderators, err := CollectModerators(ctx, e.Client, communities)
	if err != nil {
		return fmt.Errorf("collecting moderator roster: %w", err)
	}

	var newlyBanned []propagation
	for i, community := range communities {
		e.Logger.Info("assessing community", "community", community, "index", i+1, "total", len(communities))

		tagged, err := e.listBans(ctx, community, e.Keyword)
		if err != nil {
			e.Logger.Error("could not scan tagged bans, skipping community", "community", community, "err", err)
			continue
		}
		local, err := e.listBans(ctx, community, "")
		if err != nil {
			e.Logger.Error("could not scan local bans, skipping community", "community", community, "err", err)
			continue
		}

		doc, err = e.promoteTagged(ctx, doc, tagged, moderators)
		if err != nil {
			return fmt.Errorf("promoting tagged bans from %s: %w", community, err)
		}

		for _, identity := range doc.FullBans {
			if doc.Ignored(identity) {
				e.Logger.Debug("identity on ignore list", "identity", identity)
				identitiesIgnored.Inc()
				continue
			}
			if moderators[identity] {
				e.Logger.Debug("identity is a moderator, never banned", "identity", identity)
				continue
			}
			if _, banned := local[identity]; banned {
				e.Logger.Debug("identity already banned locally", "identity", identity, "community", community)
				continue
			}
			if err := e.Client.BanUser(ctx, community, identity, reason, e.Keyword); err != nil {
				// the account may no longer exist or be suspended site-wide
				e.Logger.Info("ban attempt rejected", "identity", identity, "community", community, "err", err)
				banFailures.Inc()
				continue
			}
			e.Logger.Info("identity banned", "identity", identity, "community", community)
			bansApplied.Inc()
			newlyBanned = append(newlyBanned, propagation{Identity: identity, Community: community})
		}
	}

	e.attributeAndNotify(ctx, newlyBanned, len(communities))
	e.Logger.Info("run completed", "newly_banned", len(newlyBanned))
	runsCompleted.Inc()
	return nil
}

// listBans returns one community's banned identities and notes. With a
// non-empty filterTag, only entries whose note contains the tag are kept.
func (e *Engine) listBans(ctx context.Context, community, filterTag string) (map[string]string, error) {
	banned, err := e.Client.BannedUsers(ctx, community)
	if err != nil {
		return nil, err
	}
	if filterTag == "" {
		return banned, nil
	}
	filtered := make(map[string]string)
	for identity, note := range banned {
		if strings.Contains(note, filterTag) {
			filtered[identity] = note
		}
	}
	return filtered, nil
}

// promoteTagged adds keyword-tagged local bans to the registry's full-ban
// set, one registry update per identity. Moderators are never promoted. A
// size- or permission-rejected registry write is reported to the operator
// and the run continues on the in-memory document; any other write failure
// is fatal.
func (e *Engine) promoteTagged(ctx context.Context, doc *registry.Document, tagged map[string]string, moderators map[string]bool) (*registry.Document, error) {
	for identity := range tagged {
		if moderators[identity] {
			continue
		}
		next, err := e.Registry.Update(ctx, doc, func(d *registry.Document) {
			d.Add(registry.KindFull, identity)
		})
		if err != nil {
			var rejected *registry.WriteRejectedError
			if !errors.As(err, &rejected) {
				return doc, err
			}
			e.Logger.Warn("registry page write rejected", "err", err)
			registryWriteRejections.Inc()
			e.notifyOperator(ctx)
		}
		doc = next
	}
	return doc, nil
}

// attributeAndNotify deduplicates the newly banned identities and, for each
// one whose originating ban can be found in the mod log, messages the
// moderator who made it with a behavioral report.
func (e *Engine) attributeAndNotify(ctx context.Context, newlyBanned []propagation, fleetSize int) {
	if len(newlyBanned) == 0 {
		e.Logger.Debug("nobody banned this run, no messages sent")
		return
	}

	seen := make(map[string]bool)
	lookback := AttributionLookback(fleetSize)
	for _, p := range newlyBanned {
		if seen[p.Identity] {
			continue
		}
		seen[p.Identity] = true

		attr, found, err := e.Resolver.Resolve(ctx, p.Identity, lookback)
		if err != nil {
			e.Logger.Error("attribution search failed", "identity", p.Identity, "err", err)
			continue
		}
		if !found {
			// likely a manual registry edit rather than a fresh ban
			e.Logger.Info("no originating ban found, skipping notification", "identity", p.Identity)
			continue
		}

		body, err := e.Reporter.Generate(ctx, p.Identity)
		if err != nil {
			e.Logger.Warn("report generation failed", "identity", p.Identity, "err", err)
			body = "(behavioral report unavailable)"
		}
		subject := fmt.Sprintf("[Notification] Ban applied for u/%s from r/%s", p.Identity, attr.Community)
		message := fmt.Sprintf(
			"The user u/%s has been added to the shared ban registry and banned from %d subreddits.\n\n%s",
			p.Identity, fleetSize, body)
		if err := e.Notifier.Send(ctx, attr.Moderator, subject, message); err != nil {
			e.Logger.Warn("could not notify moderator", "moderator", attr.Moderator, "err", err)
			continue
		}
		e.Logger.Info("notified originating moderator",
			"moderator", attr.Moderator, "identity", p.Identity, "community", attr.Community)
	}
}

// notifyOperator asks the registry community's moderators to clean up an
// oversized registry page.
func (e *Engine) notifyOperator(ctx context.Context) {
	subject := fmt.Sprintf("[Notification] %s wiki page full", e.Registry.Page)
	body := fmt.Sprintf("[Please check it out and clear it.](%s)", e.Registry.PageURL())
	if err := e.Notifier.Send(ctx, "/r/"+e.Registry.Subreddit, subject, body); err != nil {
		e.Logger.Warn("could not notify operator about registry page", "err", err)
	}
}
