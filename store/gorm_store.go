package store

import (
	"context"

	"github.com/Luismorlan/socialmux/model"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// GormStore is the production Store backed by Postgres. Engagement writes
// publish to the EngagementBus so live subscriptions pick up the change.
type GormStore struct {
	db    *gorm.DB
	bus   *EngagementBus
	cache *UserCache
}

// compile time check
var _ Store = (*GormStore)(nil)

// NewGormStore creates a store over db. bus must not be nil; cache may be nil
// to run without Redis.
func NewGormStore(db *gorm.DB, bus *EngagementBus, cache *UserCache) *GormStore {
	return &GormStore{db: db, bus: bus, cache: cache}
}

// === SocialGraph ===

// ListAcceptedFriendIds considers the friendship in both directions: the
// viewer may be either the requester or the acceptor of the relation.
func (s *GormStore) ListAcceptedFriendIds(ctx context.Context, viewerId string) ([]string, error) {
	var rows []model.Friendship
	res := s.db.WithContext(ctx).
		Where("accepted = ? AND (user_id = ? OR friend_id = ?)", true, viewerId, viewerId).
		Find(&rows)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "fail to list accepted friends for viewer "+viewerId)
	}

	ids := []string{}
	for _, row := range rows {
		if row.UserID == viewerId {
			ids = append(ids, row.FriendID)
		} else {
			ids = append(ids, row.UserID)
		}
	}
	return ids, nil
}

func (s *GormStore) ListWatchedOwnerIds(ctx context.Context, viewerId string) ([]string, error) {
	var ids []string
	res := s.db.WithContext(ctx).Model(&model.Watch{}).
		Where("user_id = ?", viewerId).
		Pluck("owner_id", &ids)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "fail to list watched owners for viewer "+viewerId)
	}
	return ids, nil
}

func (s *GormStore) ListMutedUserIds(ctx context.Context, viewerId string) ([]string, error) {
	var ids []string
	res := s.db.WithContext(ctx).Model(&model.Mute{}).
		Where("user_id = ?", viewerId).
		Pluck("muted_id", &ids)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "fail to list muted users for viewer "+viewerId)
	}
	return ids, nil
}

// === ItemStore ===

func (s *GormStore) FetchCandidateItems(ctx context.Context, ownerIds []string, publicOnlyOwners []string, limit int) ([]*model.ContentItem, error) {
	if len(ownerIds) == 0 {
		return []*model.ContentItem{}, nil
	}

	q := s.db.WithContext(ctx).Model(&model.ContentItem{}).
		Where("owner_id IN ?", ownerIds)
	if len(publicOnlyOwners) > 0 {
		// Watch-only owners contribute public items exclusively.
		q = q.Where("NOT (visibility = ? AND owner_id IN ?)", model.VisibilityFriendsOnly, publicOnlyOwners)
	}

	var items []*model.ContentItem
	res := q.Order("created_at desc").Limit(limit).Find(&items)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "fail to fetch candidate items")
	}
	return items, nil
}

func (s *GormStore) ListItemImages(ctx context.Context, itemId string) ([]*model.ItemImage, error) {
	var images []*model.ItemImage
	res := s.db.WithContext(ctx).
		Where("item_id = ?", itemId).
		Order("created_at desc").
		Find(&images)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "fail to list images for item "+itemId)
	}
	return images, nil
}

// === UserStore ===

func (s *GormStore) GetUserBatch(ctx context.Context, ids []string) (map[string]*model.UserRef, error) {
	refs, misses := s.cache.GetBatch(ctx, ids)
	if len(misses) == 0 {
		return refs, nil
	}

	var users []*model.User
	res := s.db.WithContext(ctx).Where("id IN ?", misses).Find(&users)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "fail to batch resolve users")
	}

	fresh := make(map[string]*model.UserRef, len(users))
	for _, u := range users {
		fresh[u.Id] = u.Ref()
		refs[u.Id] = u.Ref()
	}
	s.cache.SetBatch(ctx, fresh)
	return refs, nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*model.UserRef, error) {
	var user model.User
	res := s.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "fail to resolve user "+id)
	}
	return user.Ref(), nil
}

// === EngagementStore reads ===

func (s *GormStore) ListComments(ctx context.Context, itemId string) ([]*model.ItemComment, error) {
	var comments []*model.ItemComment
	res := s.db.WithContext(ctx).
		Where("item_id = ?", itemId).
		Order("created_at desc").
		Find(&comments)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "fail to list comments for item "+itemId)
	}
	return comments, nil
}

func (s *GormStore) ListLikes(ctx context.Context, itemId string) ([]*model.ItemLike, error) {
	var likes []*model.ItemLike
	res := s.db.WithContext(ctx).Where("item_id = ?", itemId).Find(&likes)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "fail to list likes for item "+itemId)
	}
	return likes, nil
}

func (s *GormStore) ListReposts(ctx context.Context, itemId string) ([]*model.ItemRepost, error) {
	var reposts []*model.ItemRepost
	res := s.db.WithContext(ctx).
		Where("item_id = ?", itemId).
		Order("created_at desc").
		Find(&reposts)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "fail to list reposts for item "+itemId)
	}
	return reposts, nil
}

func (s *GormStore) ListReactions(ctx context.Context, itemId string) ([]*model.ItemReaction, error) {
	var reactions []*model.ItemReaction
	res := s.db.WithContext(ctx).Where("item_id = ?", itemId).Find(&reactions)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "fail to list reactions for item "+itemId)
	}
	return reactions, nil
}

// === EngagementStore live channels ===

// Each subscription listens on the bus and re-reads the full row set on every
// change notification. Re-reading keeps the channel simple and makes delivery
// a level signal rather than a diff stream.
func (s *GormStore) SubscribeComments(itemId string, onUpdate func([]*model.ItemComment), onError func(error)) (UnsubscribeFunc, error) {
	return s.bus.Subscribe(TopicCommentsChanged, itemId, func() {
		comments, err := s.ListComments(context.Background(), itemId)
		if err != nil {
			onError(err)
			return
		}
		onUpdate(comments)
	})
}

func (s *GormStore) SubscribeLikes(itemId string, onUpdate func([]*model.ItemLike), onError func(error)) (UnsubscribeFunc, error) {
	return s.bus.Subscribe(TopicLikesChanged, itemId, func() {
		likes, err := s.ListLikes(context.Background(), itemId)
		if err != nil {
			onError(err)
			return
		}
		onUpdate(likes)
	})
}

func (s *GormStore) SubscribeReposts(itemId string, onUpdate func([]*model.ItemRepost), onError func(error)) (UnsubscribeFunc, error) {
	return s.bus.Subscribe(TopicRepostsChanged, itemId, func() {
		reposts, err := s.ListReposts(context.Background(), itemId)
		if err != nil {
			onError(err)
			return
		}
		onUpdate(reposts)
	})
}

// === EngagementStore writes ===

func (s *GormStore) ToggleLike(ctx context.Context, itemId string, userId string) error {
	var like model.ItemLike
	res := s.db.WithContext(ctx).
		Where("item_id = ? AND user_id = ?", itemId, userId).
		First(&like)
	switch {
	case errors.Is(res.Error, gorm.ErrRecordNotFound):
		like = model.ItemLike{UserID: userId, ItemID: itemId}
		if err := s.db.WithContext(ctx).Create(&like).Error; err != nil {
			return errors.Wrap(err, "fail to create like")
		}
	case res.Error != nil:
		return errors.Wrap(res.Error, "fail to look up like")
	default:
		// Hard delete. A soft delete would leave the composite (user, item)
		// primary key occupied and make the next like's insert conflict.
		if err := s.db.WithContext(ctx).Unscoped().Delete(&like).Error; err != nil {
			return errors.Wrap(err, "fail to remove like")
		}
	}

	return s.bus.Publish(TopicLikesChanged, itemId)
}

func (s *GormStore) ToggleReaction(ctx context.Context, itemId string, userId string, emoji string) (bool, error) {
	var reaction model.ItemReaction
	res := s.db.WithContext(ctx).
		Where("item_id = ? AND user_id = ? AND emoji = ?", itemId, userId, emoji).
		First(&reaction)
	switch {
	case errors.Is(res.Error, gorm.ErrRecordNotFound):
		reaction = model.ItemReaction{
			Id:     uuid.New().String(),
			ItemID: itemId,
			UserID: userId,
			Emoji:  emoji,
		}
		if err := s.db.WithContext(ctx).Create(&reaction).Error; err != nil {
			return false, errors.Wrap(err, "fail to create reaction")
		}
		return true, nil
	case res.Error != nil:
		return false, errors.Wrap(res.Error, "fail to look up reaction")
	default:
		if err := s.db.WithContext(ctx).Delete(&reaction).Error; err != nil {
			return false, errors.Wrap(err, "fail to remove reaction")
		}
		return false, nil
	}
}

func (s *GormStore) ToggleRepost(ctx context.Context, itemId string, userId string) error {
	var repost model.ItemRepost
	res := s.db.WithContext(ctx).
		Where("item_id = ? AND user_id = ?", itemId, userId).
		First(&repost)
	switch {
	case errors.Is(res.Error, gorm.ErrRecordNotFound):
		repost = model.ItemRepost{
			Id:     uuid.New().String(),
			ItemID: itemId,
			UserID: userId,
		}
		if err := s.db.WithContext(ctx).Create(&repost).Error; err != nil {
			return errors.Wrap(err, "fail to create repost")
		}
	case res.Error != nil:
		return errors.Wrap(res.Error, "fail to look up repost")
	default:
		if err := s.db.WithContext(ctx).Delete(&repost).Error; err != nil {
			return errors.Wrap(err, "fail to remove repost")
		}
	}

	return s.bus.Publish(TopicRepostsChanged, itemId)
}

func (s *GormStore) AddComment(ctx context.Context, itemId string, userId string, text string) error {
	if err := s.insertComment(ctx, itemId, userId, text); err != nil {
		return err
	}
	return s.bus.Publish(TopicCommentsChanged, itemId)
}

// AddCommentDirect inserts the row without announcing it on the bus, so the
// write survives even when bus delivery is wedged. Subscribed rows pick the
// comment up on their next change notification.
func (s *GormStore) AddCommentDirect(ctx context.Context, itemId string, userId string, text string) error {
	return s.insertComment(ctx, itemId, userId, text)
}

func (s *GormStore) insertComment(ctx context.Context, itemId string, userId string, text string) error {
	comment := model.ItemComment{
		Id:       uuid.New().String(),
		ItemID:   itemId,
		AuthorID: userId,
		Text:     text,
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return errors.Wrap(err, "fail to create comment")
	}
	return nil
}
