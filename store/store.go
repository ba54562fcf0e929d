// Package store defines the persistence contracts the feed engine is built
// against, plus the Postgres/Redis/event-bus backed production implementation.
// The engine itself only ever sees these interfaces so tests can substitute
// fakes.
package store

import (
	"context"

	"github.com/Luismorlan/socialmux/model"
)

// UnsubscribeFunc tears down a live engagement channel. Safe to call more
// than once.
type UnsubscribeFunc func()

// SocialGraph resolves the viewer's relations. All lookups are scoped to the
// viewer and may partially fail; callers degrade rather than abort.
type SocialGraph interface {
	ListAcceptedFriendIds(ctx context.Context, viewerId string) ([]string, error)
	ListWatchedOwnerIds(ctx context.Context, viewerId string) ([]string, error)
	ListMutedUserIds(ctx context.Context, viewerId string) ([]string, error)
}

type ItemStore interface {
	// FetchCandidateItems returns up to limit items owned by ownerIds, newest
	// first, excluding FRIENDS_ONLY items owned by publicOnlyOwners.
	FetchCandidateItems(ctx context.Context, ownerIds []string, publicOnlyOwners []string, limit int) ([]*model.ContentItem, error)
	ListItemImages(ctx context.Context, itemId string) ([]*model.ItemImage, error)
}

type UserStore interface {
	// GetUserBatch resolves all ids in a single batched call. Callers fall back
	// to per-id GetUser on failure.
	GetUserBatch(ctx context.Context, ids []string) (map[string]*model.UserRef, error)
	GetUser(ctx context.Context, id string) (*model.UserRef, error)
}

// EngagementStore reads, live-subscribes and writes the per-item engagement
// rows (comments, likes, reposts, reactions).
type EngagementStore interface {
	ListComments(ctx context.Context, itemId string) ([]*model.ItemComment, error)
	ListLikes(ctx context.Context, itemId string) ([]*model.ItemLike, error)
	ListReposts(ctx context.Context, itemId string) ([]*model.ItemRepost, error)
	ListReactions(ctx context.Context, itemId string) ([]*model.ItemReaction, error)

	// Subscribe* opens a live channel for one item. onUpdate is invoked with
	// the full current row set after every change, onError on channel failure.
	// The returned UnsubscribeFunc closes the channel.
	SubscribeComments(itemId string, onUpdate func([]*model.ItemComment), onError func(error)) (UnsubscribeFunc, error)
	SubscribeLikes(itemId string, onUpdate func([]*model.ItemLike), onError func(error)) (UnsubscribeFunc, error)
	SubscribeReposts(itemId string, onUpdate func([]*model.ItemRepost), onError func(error)) (UnsubscribeFunc, error)

	ToggleLike(ctx context.Context, itemId string, userId string) error
	// ToggleReaction returns whether the reaction was added (true) or removed.
	ToggleReaction(ctx context.Context, itemId string, userId string, emoji string) (bool, error)
	ToggleRepost(ctx context.Context, itemId string, userId string) error
	AddComment(ctx context.Context, itemId string, userId string, text string) error
	// AddCommentDirect is the secondary write path used when AddComment fails:
	// a bare row insert that skips the notification pipeline. Losing user-typed
	// text is worse than a duplicate, so the engine prefers a direct write over
	// rolling the optimistic comment back.
	AddCommentDirect(ctx context.Context, itemId string, userId string, text string) error
}

// Store is the full persistence surface consumed by the feed engine.
type Store interface {
	SocialGraph
	ItemStore
	UserStore
	EngagementStore
}
