package feed

import (
	"context"
	"sync"

	"github.com/Luismorlan/socialmux/model"
	"github.com/Luismorlan/socialmux/store"
	Logger "github.com/Luismorlan/socialmux/utils/log"
	"github.com/pkg/errors"
)

type EngineConfig struct {
	PageSize      int
	Subscriptions SubscriptionManagerConfig
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PageSize:      DefaultPageSize,
		Subscriptions: DefaultSubscriptionManagerConfig(),
	}
}

/*

Engine is one viewer's feed session

It owns the shared row store every other component reads and mutates: the
builder rebuilds it, live subscription callbacks overwrite engagement fields
on it, the mutation coordinator applies optimistic transforms to it. All
access goes through the engine's mutex; every change is fanned out to the
viewer's rows-changed channels.

The engine guarantees a consistent local view with eventual reconciliation
against the backing store, nothing stronger.

*/
type Engine struct {
	store    store.Store
	cfg      EngineConfig
	metrics  *Metrics
	viewerId string

	builder *Builder
	subs    *SubscriptionManager
	mutator *MutationCoordinator
	chans   *RowChannels

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards everything below. generation invalidates in-flight builds
	// after a reload or close so stale results are dropped.
	mu         sync.Mutex
	sources    *SourceSet
	muted      map[string]bool
	cursor     *Cursor
	rows       []*model.FeedRow
	generation int
	closed     bool
}

func NewEngine(s store.Store, viewerId string, cfg EngineConfig, metrics *Metrics) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:    s,
		cfg:      cfg,
		metrics:  metrics,
		viewerId: viewerId,
		builder:  NewBuilder(s),
		chans:    NewRowChannels(),
		ctx:      ctx,
		cancel:   cancel,
		cursor:   NewCursor(cfg.PageSize),
		muted:    map[string]bool{},
	}
	e.subs = NewSubscriptionManager(cfg.Subscriptions, s, e, e.mutedIds, metrics)
	e.mutator = NewMutationCoordinator(s, e, viewerId, metrics)
	return e
}

// LoadFeed resolves the viewer's sources and builds the first page. Calling
// it again reloads from scratch, invalidating any in-flight build.
func (e *Engine) LoadFeed(ctx context.Context) ([]*model.FeedRow, error) {
	sources := ResolveSources(ctx, e.store, e.viewerId)

	mutedIds, err := e.store.ListMutedUserIds(ctx, e.viewerId)
	if err != nil {
		Logger.Log.Warn("fail to list muted users, continuing unfiltered: ", err)
		mutedIds = nil
	}
	muted := map[string]bool{}
	for _, id := range mutedIds {
		muted[id] = true
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, errors.New("feed engine is closed")
	}
	e.sources = sources
	e.muted = muted
	e.cursor.Reset()
	e.generation++
	gen := e.generation
	limit := e.cursor.Limit()
	e.mu.Unlock()

	result, err := e.builder.Build(ctx, sources, muted, limit)
	if err != nil {
		return nil, errors.Wrap(err, "fail to build feed for viewer "+e.viewerId)
	}

	e.mu.Lock()
	if e.closed || e.generation != gen {
		// The session reloaded or closed while building; drop the stale
		// result instead of clobbering the newer state.
		rows := e.snapshotLocked()
		e.mu.Unlock()
		return rows, nil
	}
	e.rows = e.cursor.MergeAppend(nil, result)
	rows := e.snapshotLocked()
	e.mu.Unlock()

	e.notify()
	return rows, nil
}

// LoadMore grows the row limit by one page and appends rows of items not yet
// on screen. Already rendered rows keep their positions.
func (e *Engine) LoadMore(ctx context.Context) ([]*model.FeedRow, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, errors.New("feed engine is closed")
	}
	if e.sources == nil {
		e.mu.Unlock()
		return nil, errors.New("LoadMore called before LoadFeed")
	}
	if !e.cursor.HasMore() {
		rows := e.snapshotLocked()
		e.mu.Unlock()
		return rows, nil
	}
	e.cursor.Advance()
	gen := e.generation
	sources := e.sources
	muted := e.muted
	limit := e.cursor.Limit()
	e.mu.Unlock()

	result, err := e.builder.Build(ctx, sources, muted, limit)
	if err != nil {
		return nil, errors.Wrap(err, "fail to page feed for viewer "+e.viewerId)
	}

	e.mu.Lock()
	if e.closed || e.generation != gen {
		rows := e.snapshotLocked()
		e.mu.Unlock()
		return rows, nil
	}
	e.rows = e.cursor.MergeAppend(e.rows, result)
	rows := e.snapshotLocked()
	e.mu.Unlock()

	e.notify()
	return rows, nil
}

// HasMore reports whether another LoadMore may surface additional items.
func (e *Engine) HasMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor.HasMore()
}

// SetRowVisible drives live subscriptions from viewport visibility. rowId is
// the content item id.
func (e *Engine) SetRowVisible(rowId string, visible bool) {
	e.subs.SetVisible(rowId, visible)
}

func (e *Engine) PerformLike(ctx context.Context, rowId string) error {
	return e.mutator.Like(ctx, rowId)
}

func (e *Engine) PerformReaction(ctx context.Context, rowId string, emoji string) error {
	return e.mutator.Reaction(ctx, rowId, emoji)
}

func (e *Engine) PerformRepost(ctx context.Context, rowId string, gate RepostGate) error {
	return e.mutator.Repost(ctx, rowId, gate)
}

func (e *Engine) PerformComment(ctx context.Context, rowId string, text string) error {
	return e.mutator.Comment(ctx, rowId, text)
}

// Rows returns a snapshot of the current ordered row list.
func (e *Engine) Rows() []*model.FeedRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// SubscribeRowsChanged opens a rows-changed channel bound to ctx.
func (e *Engine) SubscribeRowsChanged(ctx context.Context) chan *RowsChanged {
	return e.chans.AddNewConnection(ctx, e.viewerId)
}

// Close tears down all live subscriptions synchronously and invalidates the
// session. In-flight builds resolve against the bumped generation and drop
// their results.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.generation++
	e.mu.Unlock()

	e.cancel()
	e.subs.Close()
}

// === RowSink: live channel callbacks overwrite engagement fields ===

func (e *Engine) ApplyComments(itemId string, count int, preview []*model.ItemComment) {
	e.applyAndNotify(itemId, func(row *model.FeedRow) {
		row.CommentCount = count
		row.CommentsPreview = preview
	})
}

func (e *Engine) ApplyLikes(itemId string, likes []*model.ItemLike) {
	liked := false
	for _, like := range likes {
		if like.UserID == e.viewerId {
			liked = true
		}
	}
	e.applyAndNotify(itemId, func(row *model.FeedRow) {
		row.LikeCount = len(likes)
		row.Liked = liked
	})
}

func (e *Engine) ApplyReposts(itemId string, reposts []*model.ItemRepost) {
	reposted := false
	for _, repost := range reposts {
		if repost.UserID == e.viewerId {
			reposted = true
		}
	}
	e.applyAndNotify(itemId, func(row *model.FeedRow) {
		row.RepostCount = len(reposts)
		row.Reposted = reposted
	})
}

// === MutationTarget: the optimistic mutation surface ===

func (e *Engine) ApplyToItem(itemId string, f func(*model.FeedRow)) int {
	e.mu.Lock()
	touched := 0
	for _, row := range e.rows {
		if row.Item.Id == itemId {
			f(row)
			touched++
		}
	}
	e.mu.Unlock()

	if touched > 0 {
		e.notify()
	}
	return touched
}

func (e *Engine) Row(itemId string) (model.FeedRow, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, row := range e.rows {
		if row.Item.Id == itemId {
			return *row, true
		}
	}
	return model.FeedRow{}, false
}

func (e *Engine) ResortRows() {
	e.mu.Lock()
	SortRows(e.rows)
	e.mu.Unlock()
	e.notify()
}

// === internals ===

func (e *Engine) mutedIds() map[string]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

func (e *Engine) applyAndNotify(itemId string, f func(*model.FeedRow)) {
	e.ApplyToItem(itemId, f)
}

func (e *Engine) snapshotLocked() []*model.FeedRow {
	rows := make([]*model.FeedRow, len(e.rows))
	copy(rows, e.rows)
	return rows
}

func (e *Engine) notify() {
	e.mu.Lock()
	update := &RowsChanged{ViewerID: e.viewerId, Rows: e.snapshotLocked()}
	e.mu.Unlock()

	// No active connection is the common case for headless usage, not an
	// error worth logging.
	_ = e.chans.PushRowsToViewer(update, e.viewerId)
}
