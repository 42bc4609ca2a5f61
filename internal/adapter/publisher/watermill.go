package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

const (
	MetadataName      = "name"
	MetadataCreatedAt = "created_at"
)

// WatermillPublisher publishes outbox messages on a watermill publisher, one
// topic per event name. The watermill message UUID is the outbox id so
// consumers can deduplicate redeliveries.
type WatermillPublisher struct {
	pub message.Publisher
}

func NewWatermillPublisher(pub message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{pub: pub}
}

// NewRedisStreamPublisher publishes onto Redis Streams.
func NewRedisStreamPublisher(rdb redis.UniversalClient, logger watermill.LoggerAdapter) (*WatermillPublisher, error) {
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis stream publisher: %w", err)
	}

	return NewWatermillPublisher(pub), nil
}

func (p *WatermillPublisher) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	wm := message.NewMessage(msg.ID.String(), message.Payload(msg.Payload))
	wm.Metadata.Set(MetadataName, msg.Name)
	wm.Metadata.Set(MetadataCreatedAt, msg.CreatedAt.UTC().Format(time.RFC3339Nano))
	wm.SetContext(ctx)

	return p.pub.Publish(msg.Name, wm)
}

func (p *WatermillPublisher) Close() error {
	return p.pub.Close()
}
