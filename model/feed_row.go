package model

/*

FeedRow is the derived, core-owned unit of the rendered activity feed

A single ContentItem may be emitted as up to three rows: the canonical BASE
row plus one row per non-null activity signal (IMAGE_ADDED, REPOST). Rows
are ephemeral: they are rebuilt on every feed load and mutated only through
the feed engine (live subscription callbacks and optimistic mutations).

CommentsPreview holds at most the 3 most recent comments, already filtered
against the viewer's muted-user set.

*/
type FeedRow struct {
	Item            ContentItem       `json:"item"`
	Signal          *ActivitySignal   `json:"signal,omitempty"`
	Owner           *UserRef          `json:"owner,omitempty"`
	Images          []*ItemImage      `json:"images"`
	LikeCount       int               `json:"like_count"`
	Liked           bool              `json:"liked"`
	RepostCount     int               `json:"repost_count"`
	Reposted        bool              `json:"reposted"`
	CommentCount    int               `json:"comment_count"`
	CommentsPreview []*ItemComment    `json:"comments_preview"`
	Reactions       []*ReactionBucket `json:"reactions"`
}

// RowKey uniquely identifies a feed row during merge. A (item, kind) pair can
// appear at most once in the feed by construction.
type RowKey struct {
	ItemID string
	Kind   SignalKind
}

func (r *FeedRow) Key() RowKey {
	kind := SignalKindBase
	if r.Signal != nil {
		kind = r.Signal.Kind
	}
	return RowKey{ItemID: r.Item.Id, Kind: kind}
}

// RankingKey returns the epoch-millis timestamp this row sorts by: the signal
// time when the signal is newer than the item, the item creation time
// otherwise.
func (r *FeedRow) RankingKey() int64 {
	key := r.Item.CreatedAt.UnixNano() / 1e6
	if r.Signal != nil {
		if at := r.Signal.At.UnixNano() / 1e6; at > key {
			key = at
		}
	}
	return key
}
