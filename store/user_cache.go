package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Luismorlan/socialmux/model"
	Logger "github.com/Luismorlan/socialmux/utils/log"
	"github.com/go-redis/redis/v8"
)

const (
	userRefKeyPrefix = "uref_"
	userRefTTL       = 30 * time.Minute
)

// UserCache is a cross-session Redis cache of UserRef entries sitting in
// front of the batched user lookup. It degrades to a full miss on any Redis
// failure, it never makes a user lookup fail.
type UserCache struct {
	inner *redis.Client
}

func NewUserCache(client *redis.Client) *UserCache {
	return &UserCache{inner: client}
}

func userRefKey(id string) string {
	return userRefKeyPrefix + id
}

// GetBatch returns the cached refs and the list of ids that still need a
// store lookup. A nil cache reports every id as a miss.
func (c *UserCache) GetBatch(ctx context.Context, ids []string) (map[string]*model.UserRef, []string) {
	hits := make(map[string]*model.UserRef)
	if c == nil || c.inner == nil || len(ids) == 0 {
		return hits, ids
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, userRefKey(id))
	}

	vals, err := c.inner.MGet(ctx, keys...).Result()
	if err != nil {
		Logger.Log.Warn("user cache read failed, treating all ids as misses: ", err)
		return hits, ids
	}

	misses := []string{}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			misses = append(misses, ids[i])
			continue
		}
		var ref model.UserRef
		if err := json.Unmarshal([]byte(s), &ref); err != nil {
			misses = append(misses, ids[i])
			continue
		}
		hits[ids[i]] = &ref
	}
	return hits, misses
}

// SetBatch caches the given refs with a TTL. Failures are logged and ignored.
func (c *UserCache) SetBatch(ctx context.Context, refs map[string]*model.UserRef) {
	if c == nil || c.inner == nil || len(refs) == 0 {
		return
	}

	pipe := c.inner.Pipeline()
	for id, ref := range refs {
		b, err := json.Marshal(ref)
		if err != nil {
			continue
		}
		pipe.Set(ctx, userRefKey(id), string(b), userRefTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		Logger.Log.Warn("user cache write failed: ", err)
	}
}
