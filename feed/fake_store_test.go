package feed

import (
	"context"
	"sort"
	"sync"

	"github.com/Luismorlan/socialmux/model"
	"github.com/Luismorlan/socialmux/store"
	"github.com/pkg/errors"
)

var errUserNotFound = errors.New("user not found")

// fakeStore is an in-memory Store with per-method error injection, standing
// in for the Postgres/Redis/bus backed store in engine tests.
type fakeStore struct {
	mu sync.Mutex

	friends    []string
	friendsErr error
	watched    []string
	watchedErr error
	muted      []string
	mutedErr   error

	items []*model.ContentItem
	// leakFriendsOnly skips the store-side visibility filter, emulating a
	// buggy or stale backend the builder must re-filter against.
	leakFriendsOnly bool
	itemsErr        error

	users         map[string]*model.UserRef
	usersBatchErr error
	userCalls     int

	images    map[string][]*model.ItemImage
	imagesErr error
	comments  map[string][]*model.ItemComment
	likes     map[string][]*model.ItemLike
	reposts   map[string][]*model.ItemRepost
	reactions map[string][]*model.ItemReaction
	listErr   error

	subscribeErr error
	// subscribeStall, when set, blocks SubscribeComments for stallItem until
	// it is closed, simulating a slow channel setup.
	subscribeStall chan struct{}
	stallItem      string
	commentSubs    map[string]func([]*model.ItemComment)
	likeSubs       map[string]func([]*model.ItemLike)
	repostSubs     map[string]func([]*model.ItemRepost)
	activeSubs     int

	toggleLikeErr       error
	toggleRepostErr     error
	toggleReactionErr   error
	reactionAdded       bool
	addCommentErr       error
	addCommentDirectErr error

	likeCalls          int
	repostCalls        int
	reactionCalls      int
	commentCalls       int
	commentDirectCalls int
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         map[string]*model.UserRef{},
		images:        map[string][]*model.ItemImage{},
		comments:      map[string][]*model.ItemComment{},
		likes:         map[string][]*model.ItemLike{},
		reposts:       map[string][]*model.ItemRepost{},
		reactions:     map[string][]*model.ItemReaction{},
		commentSubs:   map[string]func([]*model.ItemComment){},
		likeSubs:      map[string]func([]*model.ItemLike){},
		repostSubs:    map[string]func([]*model.ItemRepost){},
		reactionAdded: true,
	}
}

func (f *fakeStore) ListAcceptedFriendIds(ctx context.Context, viewerId string) ([]string, error) {
	return f.friends, f.friendsErr
}

func (f *fakeStore) ListWatchedOwnerIds(ctx context.Context, viewerId string) ([]string, error) {
	return f.watched, f.watchedErr
}

func (f *fakeStore) ListMutedUserIds(ctx context.Context, viewerId string) ([]string, error) {
	return f.muted, f.mutedErr
}

func (f *fakeStore) FetchCandidateItems(ctx context.Context, ownerIds []string, publicOnlyOwners []string, limit int) ([]*model.ContentItem, error) {
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	owners := map[string]bool{}
	for _, id := range ownerIds {
		owners[id] = true
	}
	publicOnly := map[string]bool{}
	for _, id := range publicOnlyOwners {
		publicOnly[id] = true
	}

	out := []*model.ContentItem{}
	for _, item := range f.items {
		if !owners[item.OwnerID] {
			continue
		}
		if !f.leakFriendsOnly &&
			item.Visibility == model.VisibilityFriendsOnly && publicOnly[item.OwnerID] {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListItemImages(ctx context.Context, itemId string) ([]*model.ItemImage, error) {
	if f.imagesErr != nil {
		return nil, f.imagesErr
	}
	return f.images[itemId], nil
}

func (f *fakeStore) GetUserBatch(ctx context.Context, ids []string) (map[string]*model.UserRef, error) {
	if f.usersBatchErr != nil {
		return nil, f.usersBatchErr
	}
	refs := map[string]*model.UserRef{}
	for _, id := range ids {
		if ref, ok := f.users[id]; ok {
			refs[id] = ref
		}
	}
	return refs, nil
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (*model.UserRef, error) {
	f.mu.Lock()
	f.userCalls++
	f.mu.Unlock()
	if ref, ok := f.users[id]; ok {
		return ref, nil
	}
	return nil, errUserNotFound
}

func (f *fakeStore) ListComments(ctx context.Context, itemId string) ([]*model.ItemComment, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.comments[itemId], nil
}

func (f *fakeStore) ListLikes(ctx context.Context, itemId string) ([]*model.ItemLike, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.likes[itemId], nil
}

func (f *fakeStore) ListReposts(ctx context.Context, itemId string) ([]*model.ItemRepost, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.reposts[itemId], nil
}

func (f *fakeStore) ListReactions(ctx context.Context, itemId string) ([]*model.ItemReaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.reactions[itemId], nil
}

func (f *fakeStore) SubscribeComments(itemId string, onUpdate func([]*model.ItemComment), onError func(error)) (store.UnsubscribeFunc, error) {
	if f.subscribeStall != nil && itemId == f.stallItem {
		<-f.subscribeStall
	}
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commentSubs[itemId] = onUpdate
	f.activeSubs++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.commentSubs[itemId]; ok {
			delete(f.commentSubs, itemId)
			f.activeSubs--
		}
	}, nil
}

func (f *fakeStore) SubscribeLikes(itemId string, onUpdate func([]*model.ItemLike), onError func(error)) (store.UnsubscribeFunc, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.likeSubs[itemId] = onUpdate
	f.activeSubs++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.likeSubs[itemId]; ok {
			delete(f.likeSubs, itemId)
			f.activeSubs--
		}
	}, nil
}

func (f *fakeStore) SubscribeReposts(itemId string, onUpdate func([]*model.ItemRepost), onError func(error)) (store.UnsubscribeFunc, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repostSubs[itemId] = onUpdate
	f.activeSubs++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.repostSubs[itemId]; ok {
			delete(f.repostSubs, itemId)
			f.activeSubs--
		}
	}, nil
}

func (f *fakeStore) ToggleLike(ctx context.Context, itemId string, userId string) error {
	f.mu.Lock()
	f.likeCalls++
	f.mu.Unlock()
	return f.toggleLikeErr
}

func (f *fakeStore) ToggleReaction(ctx context.Context, itemId string, userId string, emoji string) (bool, error) {
	f.mu.Lock()
	f.reactionCalls++
	f.mu.Unlock()
	if f.toggleReactionErr != nil {
		return false, f.toggleReactionErr
	}
	return f.reactionAdded, nil
}

func (f *fakeStore) ToggleRepost(ctx context.Context, itemId string, userId string) error {
	f.mu.Lock()
	f.repostCalls++
	f.mu.Unlock()
	return f.toggleRepostErr
}

func (f *fakeStore) AddComment(ctx context.Context, itemId string, userId string, text string) error {
	f.mu.Lock()
	f.commentCalls++
	f.mu.Unlock()
	return f.addCommentErr
}

func (f *fakeStore) AddCommentDirect(ctx context.Context, itemId string, userId string, text string) error {
	f.mu.Lock()
	f.commentDirectCalls++
	f.mu.Unlock()
	return f.addCommentDirectErr
}

// pushComments simulates a live comments change for subscribed tests.
func (f *fakeStore) pushComments(itemId string, comments []*model.ItemComment) {
	f.mu.Lock()
	cb := f.commentSubs[itemId]
	f.mu.Unlock()
	if cb != nil {
		cb(comments)
	}
}

func (f *fakeStore) pushLikes(itemId string, likes []*model.ItemLike) {
	f.mu.Lock()
	cb := f.likeSubs[itemId]
	f.mu.Unlock()
	if cb != nil {
		cb(likes)
	}
}

func (f *fakeStore) liveSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeSubs
}
