package feed

import (
	"context"
	"testing"
	"time"

	"github.com/Luismorlan/socialmux/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)

func publicItem(id string, ownerId string, at time.Time) *model.ContentItem {
	return &model.ContentItem{Id: id, OwnerID: ownerId, CreatedAt: at, Visibility: model.VisibilityPublic}
}

func selfSources(viewerId string) *SourceSet {
	return &SourceSet{
		ViewerID:   viewerId,
		OwnerIds:   []string{viewerId},
		Friends:    map[string]bool{},
		PublicOnly: map[string]bool{},
	}
}

func TestBuildSelfOnlyEmitsOneBaseRowPerItem(t *testing.T) {
	f := newFakeStore()
	f.items = []*model.ContentItem{
		publicItem("item_1", "viewer", t0),
		publicItem("item_2", "viewer", t0.Add(time.Hour)),
	}
	f.users["viewer"] = &model.UserRef{Uid: "viewer", Handle: "me"}

	result, err := NewBuilder(f).Build(context.Background(), selfSources("viewer"), nil, 20)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	// Newest first, every row a base row with resolved owner.
	assert.Equal(t, "item_2", result.Rows[0].Item.Id)
	assert.Equal(t, "item_1", result.Rows[1].Item.Id)
	for _, row := range result.Rows {
		assert.Nil(t, row.Signal)
		require.NotNil(t, row.Owner)
		assert.Equal(t, "me", row.Owner.Handle)
	}
	assert.False(t, result.HasMore)
}

func TestBuildRepostEmitsSignalAndBaseRow(t *testing.T) {
	f := newFakeStore()
	f.items = []*model.ContentItem{publicItem("item_x", "creator", t0)}
	f.reposts["item_x"] = []*model.ItemRepost{
		{Id: "r1", ItemID: "item_x", UserID: "friend", CreatedAt: t0.Add(time.Hour)},
	}

	src := &SourceSet{
		ViewerID:   "viewer",
		OwnerIds:   []string{"viewer", "friend", "creator"},
		Friends:    map[string]bool{"friend": true, "creator": true},
		PublicOnly: map[string]bool{},
	}
	result, err := NewBuilder(f).Build(context.Background(), src, nil, 20)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	// Repost row ranks by repost time, above the base row.
	repostRow := result.Rows[0]
	require.NotNil(t, repostRow.Signal)
	assert.Equal(t, model.SignalKindRepost, repostRow.Signal.Kind)
	assert.Equal(t, "friend", repostRow.Signal.ActorID)
	assert.Nil(t, result.Rows[1].Signal)
	assert.Equal(t, "item_x", result.Rows[1].Item.Id)
	assert.GreaterOrEqual(t, result.Rows[0].RankingKey(), result.Rows[1].RankingKey())
}

func TestBuildIgnoresIrrelevantReposts(t *testing.T) {
	f := newFakeStore()
	f.items = []*model.ContentItem{publicItem("item_x", "viewer", t0)}
	f.reposts["item_x"] = []*model.ItemRepost{
		{Id: "r1", ItemID: "item_x", UserID: "stranger", CreatedAt: t0.Add(time.Hour)},
	}

	result, err := NewBuilder(f).Build(context.Background(), selfSources("viewer"), nil, 20)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Nil(t, result.Rows[0].Signal)
	assert.Equal(t, 1, result.Rows[0].RepostCount)
}

func TestBuildImageAddedSignalSkipsOwnerUploads(t *testing.T) {
	f := newFakeStore()
	f.items = []*model.ContentItem{publicItem("item_x", "viewer", t0)}
	f.images["item_x"] = []*model.ItemImage{
		{Id: "img2", ItemID: "item_x", UploaderID: "viewer", CreatedAt: t0.Add(2 * time.Hour)},
		{Id: "img1", ItemID: "item_x", UploaderID: "guest", CreatedAt: t0.Add(time.Hour)},
	}

	result, err := NewBuilder(f).Build(context.Background(), selfSources("viewer"), nil, 20)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	signalRow := result.Rows[0]
	require.NotNil(t, signalRow.Signal)
	assert.Equal(t, model.SignalKindImageAdded, signalRow.Signal.Kind)
	// The owner's own upload never counts as a signal, the most recent
	// non-owner one does.
	assert.Equal(t, "guest", signalRow.Signal.ActorID)
	assert.Equal(t, t0.Add(time.Hour), signalRow.Signal.At)
}

func TestBuildFriendsOnlyExclusionSurvivesStoreLeak(t *testing.T) {
	f := newFakeStore()
	f.leakFriendsOnly = true
	f.items = []*model.ContentItem{
		{Id: "secret", OwnerID: "watched_owner", CreatedAt: t0, Visibility: model.VisibilityFriendsOnly},
		publicItem("open", "watched_owner", t0.Add(time.Minute)),
	}

	src := &SourceSet{
		ViewerID:   "viewer",
		OwnerIds:   []string{"viewer", "watched_owner"},
		Friends:    map[string]bool{},
		PublicOnly: map[string]bool{"watched_owner": true},
	}
	result, err := NewBuilder(f).Build(context.Background(), src, nil, 20)
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, "open", result.Rows[0].Item.Id)
}

func TestBuildEnrichmentFailureKeepsRowWithDefaults(t *testing.T) {
	f := newFakeStore()
	f.items = []*model.ContentItem{publicItem("item_1", "viewer", t0)}
	f.imagesErr = errors.New("image service down")
	f.listErr = errors.New("engagement service down")

	result, err := NewBuilder(f).Build(context.Background(), selfSources("viewer"), nil, 20)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Empty(t, row.Images)
	assert.Zero(t, row.LikeCount)
	assert.Zero(t, row.CommentCount)
	assert.Empty(t, row.Reactions)
}

func TestBuildMutedAuthorsFilteredFromComments(t *testing.T) {
	f := newFakeStore()
	f.items = []*model.ContentItem{publicItem("item_1", "viewer", t0)}
	f.comments["item_1"] = []*model.ItemComment{
		{Id: "c3", ItemID: "item_1", AuthorID: "troll", CreatedAt: t0.Add(3 * time.Minute)},
		{Id: "c2", ItemID: "item_1", AuthorID: "pal", CreatedAt: t0.Add(2 * time.Minute)},
		{Id: "c1", ItemID: "item_1", AuthorID: "pal", CreatedAt: t0.Add(time.Minute)},
	}

	muted := map[string]bool{"troll": true}
	result, err := NewBuilder(f).Build(context.Background(), selfSources("viewer"), muted, 20)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Equal(t, 2, row.CommentCount)
	for _, comment := range row.CommentsPreview {
		assert.NotEqual(t, "troll", comment.AuthorID)
	}
}

func TestBuildBatchUserFailureFallsBackPerId(t *testing.T) {
	f := newFakeStore()
	f.items = []*model.ContentItem{publicItem("item_1", "viewer", t0)}
	f.users["viewer"] = &model.UserRef{Uid: "viewer"}
	f.usersBatchErr = errors.New("batch endpoint down")

	result, err := NewBuilder(f).Build(context.Background(), selfSources("viewer"), nil, 20)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.NotNil(t, result.Rows[0].Owner)
	assert.Equal(t, "viewer", result.Rows[0].Owner.Uid)
	assert.Equal(t, 1, f.userCalls)
}

func TestBuildHasMoreWhenLimitFilled(t *testing.T) {
	f := newFakeStore()
	f.items = []*model.ContentItem{
		publicItem("item_1", "viewer", t0),
		publicItem("item_2", "viewer", t0.Add(time.Minute)),
		publicItem("item_3", "viewer", t0.Add(2*time.Minute)),
	}

	result, err := NewBuilder(f).Build(context.Background(), selfSources("viewer"), nil, 2)
	require.NoError(t, err)
	assert.True(t, result.HasMore)
	assert.Len(t, result.Rows, 2)
}

func TestSortRowsRankingMonotoneWithDeterministicTieBreak(t *testing.T) {
	rows := []*model.FeedRow{
		{Item: model.ContentItem{Id: "b", CreatedAt: t0}},
		{Item: model.ContentItem{Id: "a", CreatedAt: t0}},
		{Item: model.ContentItem{Id: "a", CreatedAt: t0},
			Signal: &model.ActivitySignal{Kind: model.SignalKindRepost, At: t0}},
		{Item: model.ContentItem{Id: "c", CreatedAt: t0.Add(time.Hour)}},
	}
	SortRows(rows)

	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].RankingKey(), rows[i].RankingKey())
	}
	// Equal keys: item id ascending, then signal kind ascending.
	assert.Equal(t, "c", rows[0].Item.Id)
	assert.Equal(t, model.RowKey{ItemID: "a", Kind: model.SignalKindBase}, rows[1].Key())
	assert.Equal(t, model.RowKey{ItemID: "a", Kind: model.SignalKindRepost}, rows[2].Key())
	assert.Equal(t, "b", rows[3].Item.Id)
}

func TestBucketReactions(t *testing.T) {
	reactions := []*model.ItemReaction{
		{Emoji: "🔥", UserID: "a"},
		{Emoji: "🔥", UserID: "viewer"},
		{Emoji: "👀", UserID: "b"},
	}
	buckets := BucketReactions(reactions, "viewer")

	assert.Len(t, buckets, 2)
	assert.Equal(t, "🔥", buckets[0].Emoji)
	assert.Equal(t, 2, buckets[0].Count)
	assert.True(t, buckets[0].Mine)
	assert.False(t, buckets[1].Mine)
}
