package store

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	TopicCommentsChanged = "engagement_comments_changed"
	TopicLikesChanged    = "engagement_likes_changed"
	TopicRepostsChanged  = "engagement_reposts_changed"
)

// EngagementBus is the in-process event bus engagement writes publish to and
// live subscriptions listen on. The message payload is the affected item id.
// For now we use a golang channel implementation for the bus, but later when
// needed we could substitute it with a Kafka/Redis based one.
type EngagementBus struct {
	channel *gochannel.GoChannel

	// Root context all bus subscriptions are derived from, so closing the bus
	// terminates every listener.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewEngagementBus() *EngagementBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &EngagementBus{
		channel: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 16},
			watermill.NopLogger{},
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish announces that the engagement rows of itemId changed on topic.
func (b *EngagementBus) Publish(topic string, itemId string) error {
	msg := message.NewMessage(watermill.NewUUID(), []byte(itemId))
	return b.channel.Publish(topic, msg)
}

// Subscribe invokes notify every time topic announces a change for itemId.
// Messages for other items on the same topic are acked and dropped. The
// returned function cancels the subscription.
func (b *EngagementBus) Subscribe(topic string, itemId string, notify func()) (UnsubscribeFunc, error) {
	ctx, cancel := context.WithCancel(b.ctx)
	messages, err := b.channel.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		return nil, err
	}

	go func() {
		for msg := range messages {
			if string(msg.Payload) == itemId {
				notify()
			}
			msg.Ack()
		}
	}()

	return UnsubscribeFunc(cancel), nil
}

func (b *EngagementBus) Close() error {
	b.cancel()
	return b.channel.Close()
}
