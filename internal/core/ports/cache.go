package ports

import (
	"context"

	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

// RunCache stores read-only run snapshots. Get returns (nil, nil) on a miss.
type RunCache interface {
	Get(ctx context.Context, runID uint64) (*domain.EventRun, error)
	Set(ctx context.Context, run *domain.EventRun) error
	Invalidate(ctx context.Context, runID uint64) error
}

type EventPublisher interface {
	Publish(ctx context.Context, msg domain.OutboxMessage) error
}
