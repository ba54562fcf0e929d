// Package feed implements the activity feed engine: source resolution,
// multi-source row building and ranking, the bounded live-subscription
// manager, and the optimistic mutation coordinator.
package feed

import (
	"context"

	"github.com/Luismorlan/socialmux/store"
	"github.com/Luismorlan/socialmux/utils"
	Logger "github.com/Luismorlan/socialmux/utils/log"
)

/*

SourceSet is the resolved set of content owners visible to a viewer

OwnerIds: self, accepted friends and watched owners, deduplicated
Friends: the accepted-friend subset, used for the defensive visibility
	re-filter during feed building
PublicOnly: owners reachable only through a watch; their FRIENDS_ONLY items
	must never surface for this viewer

*/
type SourceSet struct {
	ViewerID   string
	OwnerIds   []string
	Friends    map[string]bool
	PublicOnly map[string]bool
}

// ResolveSources computes the viewer's SourceSet. Failure of the friend or
// watch lookups degrades the scope down to the viewer alone, it is never
// fatal.
func ResolveSources(ctx context.Context, graph store.SocialGraph, viewerId string) *SourceSet {
	friendIds, err := graph.ListAcceptedFriendIds(ctx, viewerId)
	if err != nil {
		Logger.Log.Warn("fail to list friends, degrading feed scope to self: ", err)
		friendIds = nil
	}
	watchedIds, err := graph.ListWatchedOwnerIds(ctx, viewerId)
	if err != nil {
		Logger.Log.Warn("fail to list watched owners, degrading feed scope: ", err)
		watchedIds = nil
	}

	friends := utils.StringSetFromSlice(friendIds)
	ownerIds := []string{viewerId}
	seen := map[string]bool{viewerId: true}
	for _, id := range append(friendIds, watchedIds...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		ownerIds = append(ownerIds, id)
	}

	// Owners reachable only through a watch are restricted to public items
	// downstream.
	publicOnly := map[string]bool{}
	for _, id := range watchedIds {
		if id != viewerId && !friends[id] {
			publicOnly[id] = true
		}
	}

	return &SourceSet{
		ViewerID:   viewerId,
		OwnerIds:   ownerIds,
		Friends:    friends,
		PublicOnly: publicOnly,
	}
}

// PublicOnlySlice returns the public-only owners as a slice, for store calls
// that take id lists.
func (s *SourceSet) PublicOnlySlice() []string {
	ids := make([]string, 0, len(s.PublicOnly))
	for id := range s.PublicOnly {
		ids = append(ids, id)
	}
	return ids
}

// OwnerSet returns the owner ids as a membership set.
func (s *SourceSet) OwnerSet() map[string]bool {
	return utils.StringSetFromSlice(s.OwnerIds)
}
