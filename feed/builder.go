package feed

import (
	"context"
	"sort"
	"sync"

	"github.com/Luismorlan/socialmux/model"
	"github.com/Luismorlan/socialmux/store"
	Logger "github.com/Luismorlan/socialmux/utils/log"
	"github.com/pkg/errors"
)

// commentsPreviewSize is the number of most recent comments carried on a row.
const commentsPreviewSize = 3

// Builder assembles ranked feed rows from the candidate items of a resolved
// source set.
type Builder struct {
	store store.Store
}

func NewBuilder(s store.Store) *Builder {
	return &Builder{store: s}
}

type BuildResult struct {
	Rows []*model.FeedRow

	// HasMore reports whether the candidate fetch filled the row limit, in
	// which case paging further may surface more items.
	HasMore bool
}

// Build fetches up to rowLimit candidate items for the source set, enriches
// them concurrently, computes activity signals and emits ranked rows. A
// single item can emit up to three rows: the canonical base row plus one row
// per non-null signal. Per-row enrichment failures degrade to defaults, they
// never drop the row.
func (b *Builder) Build(ctx context.Context, src *SourceSet, mutedIds map[string]bool, rowLimit int) (*BuildResult, error) {
	items, err := b.store.FetchCandidateItems(ctx, src.OwnerIds, src.PublicOnlySlice(), rowLimit)
	if err != nil {
		return nil, errors.Wrap(err, "fail to fetch candidate items")
	}
	hasMore := len(items) == rowLimit

	// Defensive re-filter: the store already excludes FRIENDS_ONLY items of
	// public-only owners, but a FRIENDS_ONLY item must never pass unless the
	// viewer is the owner or an accepted friend.
	filtered := make([]*model.ContentItem, 0, len(items))
	for _, item := range items {
		if item.Visibility == model.VisibilityFriendsOnly &&
			item.OwnerID != src.ViewerID && !src.Friends[item.OwnerID] {
			Logger.Log.Warn("dropping friends-only item leaked past the store filter: ", item.Id)
			continue
		}
		filtered = append(filtered, item)
	}

	ownerRefs := b.resolveOwners(ctx, filtered)
	ownerSet := src.OwnerSet()

	// The owner batch above is the one deliberate batching optimization; all
	// remaining enrichment is fetched with per-row concurrency.
	enriched := make([]*model.FeedRow, len(filtered))
	signals := make([][]*model.ActivitySignal, len(filtered))
	var wg sync.WaitGroup
	for idx := range filtered {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			enriched[i], signals[i] = b.enrich(ctx, src, ownerSet, mutedIds, filtered[i], ownerRefs[filtered[i].OwnerID])
		}(idx)
	}
	wg.Wait()

	// Merge through an explicit (item, kind) keyed map: duplicates across
	// signal kinds are intended, exact duplicates are impossible.
	byKey := make(map[model.RowKey]*model.FeedRow)
	for i, base := range enriched {
		byKey[base.Key()] = base
		for _, signal := range signals[i] {
			row := cloneRow(base)
			row.Signal = signal
			byKey[row.Key()] = row
		}
	}

	rows := make([]*model.FeedRow, 0, len(byKey))
	for _, row := range byKey {
		rows = append(rows, row)
	}
	SortRows(rows)

	return &BuildResult{Rows: rows, HasMore: hasMore}, nil
}

// resolveOwners resolves all distinct owner ids in one batched, cache-first
// call, falling back to per-id lookups if the batch fails. Unresolvable
// owners stay nil on the row.
func (b *Builder) resolveOwners(ctx context.Context, items []*model.ContentItem) map[string]*model.UserRef {
	distinct := []string{}
	seen := map[string]bool{}
	for _, item := range items {
		if !seen[item.OwnerID] {
			seen[item.OwnerID] = true
			distinct = append(distinct, item.OwnerID)
		}
	}
	if len(distinct) == 0 {
		return map[string]*model.UserRef{}
	}

	refs, err := b.store.GetUserBatch(ctx, distinct)
	if err == nil {
		return refs
	}

	Logger.Log.Warn("batched user resolution failed, falling back to per-id lookups: ", err)
	refs = map[string]*model.UserRef{}
	for _, id := range distinct {
		ref, err := b.store.GetUser(ctx, id)
		if err != nil {
			Logger.Log.Warn("fail to resolve user ", id, ": ", err)
			continue
		}
		refs[id] = ref
	}
	return refs
}

// enrich loads one item's images, engagement aggregates and activity signals.
// Every lookup failure defaults the affected fields and keeps the row.
func (b *Builder) enrich(ctx context.Context, src *SourceSet, ownerSet map[string]bool, mutedIds map[string]bool, item *model.ContentItem, owner *model.UserRef) (*model.FeedRow, []*model.ActivitySignal) {
	row := &model.FeedRow{
		Item:            *item,
		Owner:           owner,
		Images:          []*model.ItemImage{},
		CommentsPreview: []*model.ItemComment{},
		Reactions:       []*model.ReactionBucket{},
	}
	signals := []*model.ActivitySignal{}

	images, err := b.store.ListItemImages(ctx, item.Id)
	if err != nil {
		Logger.Log.Warn("fail to enrich images for item ", item.Id, ": ", err)
		images = nil
	}
	if images != nil {
		row.Images = images
	}
	if signal := imageAddedSignal(item, images); signal != nil {
		signals = append(signals, signal)
	}

	comments, err := b.store.ListComments(ctx, item.Id)
	if err != nil {
		Logger.Log.Warn("fail to enrich comments for item ", item.Id, ": ", err)
		comments = nil
	}
	count, preview := SummarizeComments(comments, mutedIds)
	row.CommentCount = count
	row.CommentsPreview = preview

	likes, err := b.store.ListLikes(ctx, item.Id)
	if err != nil {
		Logger.Log.Warn("fail to enrich likes for item ", item.Id, ": ", err)
		likes = nil
	}
	row.LikeCount = len(likes)
	for _, like := range likes {
		if like.UserID == src.ViewerID {
			row.Liked = true
		}
	}

	reposts, err := b.store.ListReposts(ctx, item.Id)
	if err != nil {
		Logger.Log.Warn("fail to enrich reposts for item ", item.Id, ": ", err)
		reposts = nil
	}
	row.RepostCount = len(reposts)
	for _, repost := range reposts {
		if repost.UserID == src.ViewerID {
			row.Reposted = true
		}
	}
	if signal := repostSignal(src.ViewerID, ownerSet, reposts); signal != nil {
		signals = append(signals, signal)
	}

	reactions, err := b.store.ListReactions(ctx, item.Id)
	if err != nil {
		Logger.Log.Warn("fail to enrich reactions for item ", item.Id, ": ", err)
		reactions = nil
	}
	row.Reactions = BucketReactions(reactions, src.ViewerID)

	return row, signals
}

// imageAddedSignal returns the IMAGE_ADDED signal for the most recently
// created image uploaded by someone other than the item owner, or nil.
// images are expected newest first.
func imageAddedSignal(item *model.ContentItem, images []*model.ItemImage) *model.ActivitySignal {
	for _, image := range images {
		if image.UploaderID != item.OwnerID {
			return &model.ActivitySignal{
				Kind:    model.SignalKindImageAdded,
				ActorID: image.UploaderID,
				At:      image.CreatedAt,
			}
		}
	}
	return nil
}

// repostSignal returns the REPOST signal for the most recent repost by an
// actor in the owner set. If no relevant actor reposted but the viewer did,
// the viewer's own repost serves as the signal. reposts are expected newest
// first.
func repostSignal(viewerId string, ownerSet map[string]bool, reposts []*model.ItemRepost) *model.ActivitySignal {
	var mine *model.ItemRepost
	for _, repost := range reposts {
		if ownerSet[repost.UserID] {
			return &model.ActivitySignal{
				Kind:    model.SignalKindRepost,
				ActorID: repost.UserID,
				At:      repost.CreatedAt,
			}
		}
		if repost.UserID == viewerId && mine == nil {
			mine = repost
		}
	}
	if mine != nil {
		return &model.ActivitySignal{
			Kind:    model.SignalKindRepost,
			ActorID: mine.UserID,
			At:      mine.CreatedAt,
		}
	}
	return nil
}

// SummarizeComments drops comments authored by muted users, then returns the
// surviving count and the preview of the most recent ones. comments are
// expected newest first.
func SummarizeComments(comments []*model.ItemComment, mutedIds map[string]bool) (int, []*model.ItemComment) {
	kept := []*model.ItemComment{}
	for _, comment := range comments {
		if mutedIds[comment.AuthorID] {
			continue
		}
		kept = append(kept, comment)
	}
	preview := kept
	if len(preview) > commentsPreviewSize {
		preview = preview[:commentsPreviewSize]
	}
	return len(kept), preview
}

// BucketReactions aggregates raw reaction rows into per-emoji buckets,
// marking the viewer's own. Bucket order follows first appearance.
func BucketReactions(reactions []*model.ItemReaction, viewerId string) []*model.ReactionBucket {
	buckets := []*model.ReactionBucket{}
	byEmoji := map[string]*model.ReactionBucket{}
	for _, reaction := range reactions {
		bucket, ok := byEmoji[reaction.Emoji]
		if !ok {
			bucket = &model.ReactionBucket{Emoji: reaction.Emoji}
			byEmoji[reaction.Emoji] = bucket
			buckets = append(buckets, bucket)
		}
		bucket.Count++
		if reaction.UserID == viewerId {
			bucket.Mine = true
		}
	}
	return buckets
}

// SortRows orders rows by ranking key descending. Ties break by item id
// ascending, then signal kind ascending, so the order is fully deterministic.
func SortRows(rows []*model.FeedRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		ki, kj := rows[i].RankingKey(), rows[j].RankingKey()
		if ki != kj {
			return ki > kj
		}
		if rows[i].Item.Id != rows[j].Item.Id {
			return rows[i].Item.Id < rows[j].Item.Id
		}
		return rows[i].Key().Kind < rows[j].Key().Kind
	})
}

// cloneRow copies a row so signal variants don't alias the base row's
// mutable counters. Slice contents are shared, they are replaced wholesale
// on update rather than mutated in place.
func cloneRow(row *model.FeedRow) *model.FeedRow {
	clone := *row
	return &clone
}
