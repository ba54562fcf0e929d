package feed

import (
	"sync"
	"time"

	"github.com/Luismorlan/socialmux/model"
	"github.com/Luismorlan/socialmux/store"
	Logger "github.com/Luismorlan/socialmux/utils/log"
)

const (
	// DefaultSubscriptionCap is the hard ceiling on concurrently live items.
	DefaultSubscriptionCap = 10
	// DefaultTeardownDebounce is how long a row stays subscribed after
	// leaving the viewport before its channels are torn down.
	DefaultTeardownDebounce = 2000 * time.Millisecond
)

type SubscriptionState int

const (
	StateUnsubscribed SubscriptionState = iota
	StateSubscribing
	StateSubscribed
	StatePendingTeardown
)

// SubscriptionHandle tracks the live channels of one feed item. Its lifetime
// is bounded by visibility state, not by the row's lifetime in the feed.
type SubscriptionHandle struct {
	rowId     string
	state     SubscriptionState
	teardowns []store.UnsubscribeFunc

	// Armed while in StatePendingTeardown, canceled if visibility re-enters
	// before it fires.
	timer *time.Timer
}

// RowSink receives the live channel updates and applies them to the shared
// row store. The engine implements this.
type RowSink interface {
	ApplyComments(itemId string, count int, preview []*model.ItemComment)
	ApplyLikes(itemId string, likes []*model.ItemLike)
	ApplyReposts(itemId string, reposts []*model.ItemRepost)
}

type SubscriptionManagerConfig struct {
	Cap      int
	Debounce time.Duration
}

func DefaultSubscriptionManagerConfig() SubscriptionManagerConfig {
	return SubscriptionManagerConfig{
		Cap:      DefaultSubscriptionCap,
		Debounce: DefaultTeardownDebounce,
	}
}

/*

SubscriptionManager owns the registry of live engagement subscriptions

Per item the state machine is
Unsubscribed -> Subscribing -> Subscribed -> PendingTeardown -> Unsubscribed.
Visibility-enter subscribes (subject to the cap, with no queueing: an over-cap
row simply won't live-update until a slot frees and visibility re-triggers),
visibility-exit arms the teardown debounce timer. At most one live
subscription exists per item at any time, and the number of live items never
exceeds the cap.

*/
type SubscriptionManager struct {
	cfg     SubscriptionManagerConfig
	store   store.EngagementStore
	sink    RowSink
	metrics *Metrics

	// mutedIds returns the viewer's current muted-user set, applied by the
	// comments channel before counts are computed.
	mutedIds func() map[string]bool

	// mu guards handles, liveCount and closed. All state transitions happen
	// under this lock.
	mu        sync.Mutex
	handles   map[string]*SubscriptionHandle
	liveCount int
	closed    bool
}

func NewSubscriptionManager(cfg SubscriptionManagerConfig, s store.EngagementStore, sink RowSink, mutedIds func() map[string]bool, metrics *Metrics) *SubscriptionManager {
	return &SubscriptionManager{
		cfg:      cfg,
		store:    s,
		sink:     sink,
		mutedIds: mutedIds,
		metrics:  metrics,
		handles:  map[string]*SubscriptionHandle{},
	}
}

// SetVisible drives the per-item state machine from viewport visibility.
func (m *SubscriptionManager) SetVisible(itemId string, visible bool) {
	if visible {
		m.enter(itemId)
	} else {
		m.exit(itemId)
	}
}

// LiveCount returns the number of items currently holding a cap slot.
func (m *SubscriptionManager) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveCount
}

// IsSubscribed reports whether the item holds live channels (Subscribed or
// PendingTeardown).
func (m *SubscriptionManager) IsSubscribed(itemId string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[itemId]
	return ok && (h.state == StateSubscribed || h.state == StatePendingTeardown)
}

func (m *SubscriptionManager) enter(itemId string) {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return
	}

	if h, ok := m.handles[itemId]; ok {
		// Re-entering within the debounce window keeps the subscription
		// alive. Subscribing/Subscribed entries are left alone so an item
		// never holds more than one live subscription.
		if h.state == StatePendingTeardown {
			h.timer.Stop()
			h.timer = nil
			h.state = StateSubscribed
		}
		m.mu.Unlock()
		return
	}

	if m.liveCount >= m.cfg.Cap {
		// No queueing. The row won't live-update until a slot frees and
		// visibility re-triggers.
		m.mu.Unlock()
		m.metrics.ReportCapRejected()
		return
	}

	// Reserve the slot, then open the channels outside the lock so a slow
	// subscribe call never serializes other visibility transitions or Close.
	h := &SubscriptionHandle{rowId: itemId, state: StateSubscribing}
	m.handles[itemId] = h
	m.liveCount++
	m.mu.Unlock()

	teardowns, err := m.openChannels(itemId)

	m.mu.Lock()
	if cur, ok := m.handles[itemId]; !ok || cur != h || m.closed {
		// Close (or an expired teardown) raced the subscribe and already
		// released the slot; discard what was opened.
		m.mu.Unlock()
		for _, td := range teardowns {
			td()
		}
		return
	}
	if err != nil {
		// No automatic retry, the next visibility cycle gets another chance.
		delete(m.handles, itemId)
		m.liveCount--
		if h.timer != nil {
			h.timer.Stop()
		}
		m.mu.Unlock()
		Logger.Log.Warn("fail to open live channels for item ", itemId, ": ", err)
		for _, td := range teardowns {
			td()
		}
		return
	}

	h.teardowns = teardowns
	if h.state == StateSubscribing {
		// An exit during the subscribe already moved the handle to
		// PendingTeardown; its armed timer stands.
		h.state = StateSubscribed
	}
	live := m.liveCount
	m.mu.Unlock()

	m.metrics.ReportSubscribe(itemId)
	m.metrics.ReportLiveSubscriptions(live)
}

func (m *SubscriptionManager) exit(itemId string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.handles[itemId]
	if !ok || m.closed {
		// Teardown of an untracked item is a no-op.
		return
	}

	if h.state != StateSubscribed && h.state != StateSubscribing {
		return
	}

	h.state = StatePendingTeardown
	h.timer = time.AfterFunc(m.cfg.Debounce, func() {
		m.expire(itemId, h)
	})
}

// expire fires when the debounce timer elapses without a re-enter. The handle
// identity check discards stale timers from a previous subscription cycle.
func (m *SubscriptionManager) expire(itemId string, h *SubscriptionHandle) {
	m.mu.Lock()
	cur, ok := m.handles[itemId]
	if !ok || cur != h || cur.state != StatePendingTeardown {
		m.mu.Unlock()
		return
	}
	delete(m.handles, itemId)
	m.liveCount--
	teardowns := h.teardowns
	count := m.liveCount
	m.mu.Unlock()

	for _, td := range teardowns {
		td()
	}
	m.metrics.ReportTeardown(itemId)
	m.metrics.ReportLiveSubscriptions(count)
}

// Close tears down every handle across all items unconditionally and
// synchronously, for page navigation away from the feed.
func (m *SubscriptionManager) Close() {
	m.mu.Lock()
	m.closed = true
	all := [][]store.UnsubscribeFunc{}
	for _, h := range m.handles {
		if h.timer != nil {
			h.timer.Stop()
		}
		all = append(all, h.teardowns)
	}
	m.handles = map[string]*SubscriptionHandle{}
	m.liveCount = 0
	m.mu.Unlock()

	for _, teardowns := range all {
		for _, td := range teardowns {
			td()
		}
	}
	m.metrics.ReportLiveSubscriptions(0)
}

// openChannels registers the three live channels for one item. On any
// failure the successfully opened channels are returned for cleanup along
// with the error.
func (m *SubscriptionManager) openChannels(itemId string) ([]store.UnsubscribeFunc, error) {
	teardowns := []store.UnsubscribeFunc{}

	onError := func(err error) {
		Logger.Log.Warn("live channel error for item ", itemId, ": ", err)
	}

	td, err := m.store.SubscribeComments(itemId, func(comments []*model.ItemComment) {
		count, preview := SummarizeComments(comments, m.mutedIds())
		m.sink.ApplyComments(itemId, count, preview)
	}, onError)
	if err != nil {
		return teardowns, err
	}
	teardowns = append(teardowns, td)

	td, err = m.store.SubscribeLikes(itemId, func(likes []*model.ItemLike) {
		m.sink.ApplyLikes(itemId, likes)
	}, onError)
	if err != nil {
		return teardowns, err
	}
	teardowns = append(teardowns, td)

	td, err = m.store.SubscribeReposts(itemId, func(reposts []*model.ItemRepost) {
		m.sink.ApplyReposts(itemId, reposts)
	}, onError)
	if err != nil {
		return teardowns, err
	}
	teardowns = append(teardowns, td)

	return teardowns, nil
}
