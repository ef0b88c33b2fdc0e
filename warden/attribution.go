package warden

import (
	"context"
	"strings"

	"github.com/modfleet/warden/reddit"
)

// lookbackPerCommunity scales the attribution search window with fleet
// size: more communities means more unrelated log entries between a ban and
// its propagation.
const lookbackPerCommunity = 6

// AttributionLookback returns how many mod-log entries to examine for a
// fleet of the given size.
func AttributionLookback(fleetSize int) int {
	return fleetSize * lookbackPerCommunity
}

// Attribution identifies the moderator and community that originated a ban.
type Attribution struct {
	Moderator string
	Community string
}

// ModLogSource reads recent moderation-log entries, newest first.
type ModLogSource interface {
	ModLog(ctx context.Context, subreddit, action string, limit int) ([]reddit.ModAction, error)
}

// Resolver finds the original ban behind a propagated one by searching the
// fleet-wide moderation log retrospectively.
type Resolver struct {
	Log ModLogSource
	// Self is the agent's account name. Its own ban actions are skipped so
	// propagation is never attributed to the agent itself.
	Self string
}

// Resolve scans the most recent lookback ban entries for one targeting the
// identity. Not finding one is a normal outcome (found == false), typically
// meaning the ban came from a manual registry edit.
func (r *Resolver) Resolve(ctx context.Context, identity string, lookback int) (Attribution, bool, error) {
	entries, err := r.Log.ModLog(ctx, "mod", "banuser", lookback)
	if err != nil {
		return Attribution{}, false, err
	}
	for _, entry := range entries {
		if strings.Contains(entry.Mod, r.Self) {
			continue
		}
		if strings.Contains(entry.TargetAuthor, identity) {
			return Attribution{Moderator: entry.Mod, Community: entry.Subreddit}, true, nil
		}
	}
	return Attribution{}, false, nil
}
