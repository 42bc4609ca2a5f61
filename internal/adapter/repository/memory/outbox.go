package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

type Outbox struct {
	s *Store
}

func (o *Outbox) Append(ctx context.Context, msgs ...domain.OutboxMessage) error {
	tx, unlock := o.s.write(ctx)
	defer unlock()

	n := len(o.s.outbox)
	o.s.outbox = append(o.s.outbox, msgs...)
	tx.onRollback(func() { o.s.outbox = o.s.outbox[:n] })

	return nil
}

func (o *Outbox) Pending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	unlock := o.s.read(ctx)
	defer unlock()

	var pending []domain.OutboxMessage
	for _, msg := range o.s.outbox {
		if len(pending) == limit {
			break
		}
		if msg.PublishedAt == nil {
			pending = append(pending, msg)
		}
	}

	return pending, nil
}

// MarkPublished stamps the message and drops the published prefix, so the
// outbox only holds messages from the oldest pending one onwards.
func (o *Outbox) MarkPublished(ctx context.Context, id uuid.UUID) error {
	tx, unlock := o.s.write(ctx)
	defer unlock()

	i := slices.IndexFunc(o.s.outbox, func(msg domain.OutboxMessage) bool { return msg.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: outbox message %s", domain.ErrNotFound, id)
	}

	prev := o.s.outbox
	now := time.Now()
	prev[i].PublishedAt = &now

	keep := slices.IndexFunc(prev, func(msg domain.OutboxMessage) bool { return msg.PublishedAt == nil })
	if keep < 0 {
		keep = len(prev)
	}
	o.s.outbox = slices.Clone(prev[keep:])

	tx.onRollback(func() {
		prev[i].PublishedAt = nil
		o.s.outbox = prev
	})

	return nil
}

// All returns the messages still held: every pending message and any
// published ones queued behind it.
func (o *Outbox) All(ctx context.Context) []domain.OutboxMessage {
	unlock := o.s.read(ctx)
	defer unlock()

	return append([]domain.OutboxMessage(nil), o.s.outbox...)
}
