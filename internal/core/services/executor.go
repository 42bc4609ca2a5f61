package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/srgjo27/experience_escrow/internal/core/ports"
)

const maxConflictRetries = 3

type executor struct {
	tx     ports.Transactor
	outbox ports.Outbox
	cache  ports.RunCache
	locks  *RunLocks
	now    func() time.Time
	log    logrus.FieldLogger
}

type mutation func(ctx context.Context) ([]domain.Event, error)

// mutateRun serializes fn with every other mutation of the same run and
// commits it together with the events it produced.
func (e *executor) mutateRun(ctx context.Context, runID uint64, fn mutation) error {
	unlock := e.locks.Lock(runID)
	defer unlock()

	if err := e.commit(ctx, fn); err != nil {
		return err
	}

	e.invalidate(ctx, runID)

	return nil
}

// commit runs fn in a transaction, retrying lost optimistic updates.
func (e *executor) commit(ctx context.Context, fn mutation) error {
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err = e.tx.WithinTx(ctx, func(ctx context.Context) error {
			events, err := fn(ctx)
			if err != nil {
				return err
			}

			return e.record(ctx, events)
		})

		if !errors.Is(err, domain.ErrConflict) {
			return err
		}

		e.log.WithField("attempt", attempt).Warn("Concurrent modification, retrying")
	}

	return err
}

func (e *executor) record(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]domain.OutboxMessage, 0, len(events))
	for _, event := range events {
		msg, err := domain.NewOutboxMessage(event, e.now())
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := e.outbox.Append(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to append events to outbox: %w", err)
	}

	return nil
}

func (e *executor) invalidate(ctx context.Context, runID uint64) {
	if e.cache == nil {
		return
	}

	if err := e.cache.Invalidate(ctx, runID); err != nil {
		e.log.WithError(err).WithField("run_id", runID).Warn("Failed to invalidate run cache")
	}
}
