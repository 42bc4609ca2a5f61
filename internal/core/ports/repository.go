package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

// Transactor runs fn atomically. Repositories called with the ctx handed to
// fn take part in the same transaction; nested calls join the outer one.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type RunRepository interface {
	Create(ctx context.Context, run *domain.EventRun) error
	GetByID(ctx context.Context, runID uint64) (*domain.EventRun, error)
	// Update persists run if its Version still matches the stored one and
	// bumps Version, returning domain.ErrConflict otherwise.
	Update(ctx context.Context, run *domain.EventRun) error
	ListByHost(ctx context.Context, host domain.Account) ([]domain.EventRun, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, bookingID uint64) (*domain.Booking, error)
	ListByRun(ctx context.Context, runID uint64) ([]domain.Booking, error)
	ListByUser(ctx context.Context, user domain.Account) ([]domain.Booking, error)
	// UpdateStatus settles an ACTIVE booking, returning domain.ErrConflict
	// if it was settled in the meantime.
	UpdateStatus(ctx context.Context, booking *domain.Booking) error
}

// Vault holds the custody balance and the balances credited to accounts on
// release.
type Vault interface {
	Deposit(ctx context.Context, entry domain.LedgerEntry) error
	Release(ctx context.Context, entry domain.LedgerEntry) error
	CustodyBalance(ctx context.Context) (domain.Amount, error)
	AccountBalance(ctx context.Context, account domain.Account) (domain.Amount, error)
	EntriesByRun(ctx context.Context, runID uint64) ([]domain.LedgerEntry, error)
}

type Outbox interface {
	Append(ctx context.Context, msgs ...domain.OutboxMessage) error
	Pending(ctx context.Context, limit int) ([]domain.OutboxMessage, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
}
