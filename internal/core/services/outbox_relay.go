package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srgjo27/experience_escrow/internal/core/ports"
)

// OutboxRelay forwards committed events to the configured publisher.
// Delivery is at-least-once: a message stays pending until the publisher
// accepts it.
type OutboxRelay struct {
	outbox    ports.Outbox
	publisher ports.EventPublisher
	interval  time.Duration
	batchSize int
	log       logrus.FieldLogger
}

func NewOutboxRelay(outbox ports.Outbox, publisher ports.EventPublisher, interval time.Duration, batchSize int, log logrus.FieldLogger) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}

	return &OutboxRelay{
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.WithField("interval", r.interval).Info("Outbox relay started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil {
				r.log.WithError(err).Warn("Outbox relay flush incomplete")
			}
		}
	}
}

// Flush publishes one batch of pending messages in order and stops at the
// first failure so later events never overtake earlier ones.
func (r *OutboxRelay) Flush(ctx context.Context) (int, error) {
	pending, err := r.outbox.Pending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending events: %w", err)
	}

	published := 0
	for _, msg := range pending {
		if err := r.publisher.Publish(ctx, msg); err != nil {
			return published, fmt.Errorf("failed to publish %s %s: %w", msg.Name, msg.ID, err)
		}

		if err := r.outbox.MarkPublished(ctx, msg.ID); err != nil {
			return published, fmt.Errorf("failed to mark %s published: %w", msg.ID, err)
		}

		published++
	}

	if published > 0 {
		r.log.WithField("count", published).Debug("Published outbox events")
	}

	return published, nil
}
