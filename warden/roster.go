package warden

import "context"

// ModeratorLister lists the moderators of one community.
type ModeratorLister interface {
	Moderators(ctx context.Context, subreddit string) ([]string, error)
}

// CollectModerators unions the moderator lists of the given communities.
// The result is used purely as an exclusion filter: an identity in this set
// is never banned, so the agent cannot act against its own operators.
func CollectModerators(ctx context.Context, client ModeratorLister, communities []string) (map[string]bool, error) {
	all := make(map[string]bool)
	for _, community := range communities {
		mods, err := client.Moderators(ctx, community)
		if err != nil {
			return nil, err
		}
		for _, mod := range mods {
			all[mod] = true
		}
	}
	return all, nil
}
