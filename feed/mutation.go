package feed

import (
	"context"
	"time"

	"github.com/Luismorlan/socialmux/model"
	"github.com/Luismorlan/socialmux/store"
	Logger "github.com/Luismorlan/socialmux/utils/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MutationTarget is the shared row store mutations operate on. The engine
// implements this over its ordered row list.
type MutationTarget interface {
	// ApplyToItem runs f against every row of the item (an item occupies up
	// to three feed slots) and returns how many rows were touched.
	ApplyToItem(itemId string, f func(*model.FeedRow)) int
	// Row returns a copy of one of the item's rows for state inspection.
	Row(itemId string) (model.FeedRow, bool)
	// ResortRows re-sorts the feed after a ranking-affecting mutation.
	ResortRows()
}

// RepostGate is raised before a repost toggle executes: undo is true when
// the viewer already reposted the item. Returning false aborts the toggle.
type RepostGate func(undo bool) bool

/*

MutationCoordinator applies optimistic local transforms with rollback

Protocol: snapshot the affected rows, apply the forward transform
immediately, issue the confirming remote call, and on failure restore the
snapshots exactly. The rollback is captured data, not recomputation, so a
failed call always lands the row back on its precise pre-call state.

Known race, accepted: two in-flight mutations on the same row are unordered,
a slow rollback can clobber a newer optimistic state. There is no versioning
at this layer.

*/
type MutationCoordinator struct {
	store    store.EngagementStore
	target   MutationTarget
	viewerId string
	metrics  *Metrics
}

func NewMutationCoordinator(s store.EngagementStore, target MutationTarget, viewerId string, metrics *Metrics) *MutationCoordinator {
	return &MutationCoordinator{
		store:    s,
		target:   target,
		viewerId: viewerId,
		metrics:  metrics,
	}
}

// mutationCommand holds the forward transform and, once applied, the exact
// pre-apply snapshots keyed by row, for undo.
type mutationCommand struct {
	itemId  string
	forward func(*model.FeedRow)
	prior   map[model.RowKey]model.FeedRow
}

// apply snapshots every affected row, then runs the forward transform.
// Returns false when the item has no rows in the store.
func (c *MutationCoordinator) apply(cmd *mutationCommand) bool {
	cmd.prior = map[model.RowKey]model.FeedRow{}
	touched := c.target.ApplyToItem(cmd.itemId, func(row *model.FeedRow) {
		cmd.prior[row.Key()] = *row
		cmd.forward(row)
	})
	return touched > 0
}

// undo restores the snapshots captured by apply.
func (c *MutationCoordinator) undo(cmd *mutationCommand) {
	c.target.ApplyToItem(cmd.itemId, func(row *model.FeedRow) {
		if prior, ok := cmd.prior[row.Key()]; ok {
			*row = prior
		}
	})
}

// Like toggles the viewer's like optimistically, confirming with the remote
// call and rolling back on failure.
func (c *MutationCoordinator) Like(ctx context.Context, itemId string) error {
	cmd := &mutationCommand{
		itemId: itemId,
		forward: func(row *model.FeedRow) {
			if row.Liked {
				row.Liked = false
				if row.LikeCount > 0 {
					row.LikeCount--
				}
			} else {
				row.Liked = true
				row.LikeCount++
			}
		},
	}
	if !c.apply(cmd) {
		return errors.New("unknown feed row: " + itemId)
	}

	if err := c.store.ToggleLike(ctx, itemId, c.viewerId); err != nil {
		c.undo(cmd)
		c.metrics.ReportMutation("like", "rolled_back")
		return errors.Wrap(err, "like toggle failed and was rolled back")
	}
	c.metrics.ReportMutation("like", "applied")
	return nil
}

// Reaction toggles the viewer's reaction within the matching emoji bucket,
// inserting a new bucket for an unseen emoji and dropping a bucket that
// empties out.
func (c *MutationCoordinator) Reaction(ctx context.Context, itemId string, emoji string) error {
	cmd := &mutationCommand{
		itemId: itemId,
		forward: func(row *model.FeedRow) {
			row.Reactions = toggleReactionBucket(row.Reactions, emoji)
		},
	}
	if !c.apply(cmd) {
		return errors.New("unknown feed row: " + itemId)
	}

	added, err := c.store.ToggleReaction(ctx, itemId, c.viewerId, emoji)
	if err != nil {
		c.undo(cmd)
		c.metrics.ReportMutation("reaction", "rolled_back")
		return errors.Wrap(err, "reaction toggle failed and was rolled back")
	}

	// The server's added flag only matters for notification side effects; the
	// optimistic counts are authoritative. A disagreement is reconciled
	// silently.
	if row, ok := c.target.Row(itemId); ok {
		if mine := bucketMine(row.Reactions, emoji); mine != added {
			Logger.Log.Info("reaction state disagreed with server for item ", itemId)
		}
	}
	c.metrics.ReportMutation("reaction", "applied")
	return nil
}

// Repost raises the confirmation gate first (confirm for a new repost, undo
// for an existing one) and only toggles once the caller confirms. The toggle
// re-sorts the feed since repost state participates in ranking.
func (c *MutationCoordinator) Repost(ctx context.Context, itemId string, gate RepostGate) error {
	row, ok := c.target.Row(itemId)
	if !ok {
		return errors.New("unknown feed row: " + itemId)
	}
	if gate != nil && !gate(row.Reposted) {
		return nil
	}

	cmd := &mutationCommand{
		itemId: itemId,
		forward: func(row *model.FeedRow) {
			if row.Reposted {
				row.Reposted = false
				if row.RepostCount > 0 {
					row.RepostCount--
				}
			} else {
				row.Reposted = true
				row.RepostCount++
			}
		},
	}
	c.apply(cmd)
	c.target.ResortRows()

	if err := c.store.ToggleRepost(ctx, itemId, c.viewerId); err != nil {
		c.undo(cmd)
		c.target.ResortRows()
		c.metrics.ReportMutation("repost", "rolled_back")
		return errors.Wrap(err, "repost toggle failed and was rolled back")
	}
	c.metrics.ReportMutation("repost", "applied")
	return nil
}

// Comment inserts an optimistic preview entry and increments the count. On
// remote failure it does NOT roll back: silently losing user-typed text is
// worse than a duplicate, so it falls back to the secondary direct-write
// path instead.
func (c *MutationCoordinator) Comment(ctx context.Context, itemId string, text string) error {
	entry := &model.ItemComment{
		Id:        "optimistic_" + uuid.New().String(),
		CreatedAt: time.Now(),
		ItemID:    itemId,
		AuthorID:  c.viewerId,
		Text:      text,
	}
	cmd := &mutationCommand{
		itemId: itemId,
		forward: func(row *model.FeedRow) {
			row.CommentCount++
			preview := append([]*model.ItemComment{entry}, row.CommentsPreview...)
			if len(preview) > commentsPreviewSize {
				preview = preview[:commentsPreviewSize]
			}
			row.CommentsPreview = preview
		},
	}
	if !c.apply(cmd) {
		return errors.New("unknown feed row: " + itemId)
	}

	if err := c.store.AddComment(ctx, itemId, c.viewerId, text); err != nil {
		Logger.Log.Warn("comment write failed, falling back to direct write: ", err)
		c.metrics.ReportMutation("comment", "fallback")
		if err := c.store.AddCommentDirect(ctx, itemId, c.viewerId, text); err != nil {
			return errors.Wrap(err, "both comment write paths failed")
		}
		return nil
	}
	c.metrics.ReportMutation("comment", "applied")
	return nil
}

// toggleReactionBucket returns a new bucket list with the viewer's reaction
// toggled for emoji. Buckets are copied so feed rows never share mutable
// bucket state.
func toggleReactionBucket(buckets []*model.ReactionBucket, emoji string) []*model.ReactionBucket {
	out := []*model.ReactionBucket{}
	found := false
	for _, b := range buckets {
		next := *b
		if next.Emoji == emoji {
			found = true
			if next.Mine {
				next.Mine = false
				next.Count--
			} else {
				next.Mine = true
				next.Count++
			}
			if next.Count <= 0 {
				continue
			}
		}
		out = append(out, &next)
	}
	if !found {
		out = append(out, &model.ReactionBucket{Emoji: emoji, Count: 1, Mine: true})
	}
	return out
}

func bucketMine(buckets []*model.ReactionBucket, emoji string) bool {
	for _, b := range buckets {
		if b.Emoji == emoji {
			return b.Mine
		}
	}
	return false
}
