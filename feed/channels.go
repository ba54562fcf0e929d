package feed

import (
	"context"
	"sync"

	"github.com/Luismorlan/socialmux/model"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// RowsChanged is pushed to listeners every time the viewer's row store
// changes (rebuild, live update, optimistic mutation or rollback).
type RowsChanged struct {
	ViewerID string           `json:"viewer_id"`
	Rows     []*model.FeedRow `json:"rows"`
}

// RowChannels contains all structures that handle a viewer's rows-changed
// channels. All internal state should not be handled directly by hand but
// managed by its public receivers.
type RowChannels struct {
	// connectionMap maps from viewer id to the viewer's active channels,
	// represented as a map from channel id (uuid) to the actual channel so
	// that deletion of a channel is O(1). Each connectionMap entry is deleted
	// once all of the viewer's active channels are closed. Multiple devices
	// of one viewer each hold their own channel.
	connectionMap map[string]map[string]chan *RowsChanged

	// Adding/Removing a connection must grab WriteLock, while all other usage
	// (e.g. pushing an update) should grab a ReadLock.
	mu sync.RWMutex
}

func NewRowChannels() *RowChannels {
	return &RowChannels{
		connectionMap: make(map[string]map[string]chan *RowsChanged),
		mu:            sync.RWMutex{},
	}
}

// cleanUp a single connection when the context terminates. If a viewer's all
// active connections terminate, clean up the viewer's top-level entry as
// well.
func (rc *RowChannels) cleanUp(ctx context.Context, chId string, viewerId string) {
	<-ctx.Done()

	rc.mu.Lock()
	defer rc.mu.Unlock()

	delete(rc.connectionMap[viewerId], chId)
	if len(rc.connectionMap[viewerId]) == 0 {
		delete(rc.connectionMap, viewerId)
	}
}

// Thread-safe
func (rc *RowChannels) AddNewConnection(ctx context.Context, viewerId string) chan *RowsChanged {
	chId := "rows_channel_" + uuid.New().String()
	ch := make(chan *RowsChanged, 1)

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if _, ok := rc.connectionMap[viewerId]; !ok {
		rc.connectionMap[viewerId] = make(map[string]chan *RowsChanged)
	}

	rc.connectionMap[viewerId][chId] = ch

	// Spin up a background garbage collector.
	go rc.cleanUp(ctx, chId, viewerId)

	return ch
}

// Thread-safe
func (rc *RowChannels) GetActiveConnectionsCount() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	count := 0
	for _, mp := range rc.connectionMap {
		count += len(mp)
	}
	return count
}

// PushRowsToViewer delivers the update to every active channel of the
// viewer. Delivery is non-blocking: rows-changed is a level signal, a slow
// consumer only misses intermediate states, never the final one, because the
// buffered slot always holds the most recent drop.
//
// Thread-safe
func (rc *RowChannels) PushRowsToViewer(update *RowsChanged, viewerId string) error {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	if _, ok := rc.connectionMap[viewerId]; !ok {
		return errors.New("no active connection for viewer: " + viewerId)
	}
	for _, ch := range rc.connectionMap[viewerId] {
		select {
		case ch <- update:
		default:
			// Drop the stale buffered update and try once more.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
	return nil
}
