package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/srgjo27/experience_escrow/internal/adapter/repository/memory"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WithinTx_RollsBackEveryWrite(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	run := &domain.EventRun{Host: "host", MaxSeats: 2, Status: domain.RunCreated}
	require.NoError(t, store.Runs().Create(ctx, run))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		run.SeatsBooked = 1
		if err := store.Runs().Update(ctx, run); err != nil {
			return err
		}

		booking := &domain.Booking{RunID: run.ID, User: "alice", SeatCount: 1, Status: domain.BookingActive}
		if err := store.Bookings().Create(ctx, booking); err != nil {
			return err
		}

		entry := domain.NewLedgerEntry(run.ID, booking.ID, "alice", domain.EntryBookingDeposit, 120, time.Now())
		if err := store.Vault().Deposit(ctx, entry); err != nil {
			return err
		}

		msg, err := domain.NewOutboxMessage(domain.BookingCreatedEvent{BookingID: booking.ID}, time.Now())
		if err != nil {
			return err
		}
		if err := store.Outbox().Append(ctx, msg); err != nil {
			return err
		}

		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := store.Runs().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), stored.SeatsBooked)
	assert.Equal(t, 1, stored.Version)

	bookings, err := store.Bookings().ListByRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, bookings)

	custody, err := store.Vault().CustodyBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(0), custody)

	entries, err := store.Vault().EntriesByRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Empty(t, store.Outbox().All(ctx))
}

func TestRunRepository_Update_StaleVersionConflicts(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	run := &domain.EventRun{Host: "host", MaxSeats: 2, Status: domain.RunCreated}
	require.NoError(t, store.Runs().Create(ctx, run))

	first, err := store.Runs().GetByID(ctx, run.ID)
	require.NoError(t, err)
	second, err := store.Runs().GetByID(ctx, run.ID)
	require.NoError(t, err)

	first.SeatsBooked = 1
	require.NoError(t, store.Runs().Update(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.SeatsBooked = 2
	assert.ErrorIs(t, store.Runs().Update(ctx, second), domain.ErrConflict)
}

func TestBookingRepository_UpdateStatus_OnlySettlesActive(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	bookings := store.Bookings()

	booking := &domain.Booking{RunID: 1, User: "alice", SeatCount: 1, Status: domain.BookingActive, BookedAt: time.Now()}
	require.NoError(t, bookings.Create(ctx, booking))

	now := time.Now()
	completed := *booking
	completed.Status = domain.BookingCompleted
	completed.SettledAt = &now
	require.NoError(t, bookings.UpdateStatus(ctx, &completed))

	cancelled := *booking
	cancelled.Status = domain.BookingCancelled
	assert.ErrorIs(t, bookings.UpdateStatus(ctx, &cancelled), domain.ErrConflict)

	stored, err := bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCompleted, stored.Status)

	missing := &domain.Booking{ID: 999, Status: domain.BookingCancelled}
	assert.ErrorIs(t, bookings.UpdateStatus(ctx, missing), domain.ErrNotFound)
}

func TestVault_ReleaseCannotOverdrawCustody(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	vault := store.Vault()

	require.NoError(t, vault.Deposit(ctx, domain.NewLedgerEntry(1, 0, "host", domain.EntryHostStakeDeposit, 80, time.Now())))

	err := vault.Release(ctx, domain.NewLedgerEntry(1, 0, "host", domain.EntryHostStakeReturn, 81, time.Now()))
	assert.ErrorIs(t, err, domain.ErrInsufficientCustody)

	require.NoError(t, vault.Release(ctx, domain.NewLedgerEntry(1, 0, "host", domain.EntryHostStakeReturn, 80, time.Now())))

	custody, _ := vault.CustodyBalance(ctx)
	balance, _ := vault.AccountBalance(ctx, "host")
	assert.Equal(t, domain.Amount(0), custody)
	assert.Equal(t, domain.Amount(80), balance)

	err = vault.Deposit(ctx, domain.NewLedgerEntry(1, 0, "host", domain.EntryHostPayout, 1, time.Now()))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestOutbox_PendingRespectsLimitAndPublished(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	outbox := store.Outbox()

	var msgs []domain.OutboxMessage
	for i := uint64(1); i <= 3; i++ {
		msg, err := domain.NewOutboxMessage(domain.RunCreatedEvent{RunID: i}, time.Now())
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
	require.NoError(t, outbox.Append(ctx, msgs...))

	pending, err := outbox.Pending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, msgs[0].ID, pending[0].ID)

	require.NoError(t, outbox.MarkPublished(ctx, msgs[0].ID))

	pending, err = outbox.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, msgs[1].ID, pending[0].ID)
}

func TestOutbox_MarkPublishedTrimsPublishedPrefix(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	outbox := store.Outbox()

	var msgs []domain.OutboxMessage
	for i := uint64(1); i <= 3; i++ {
		msg, err := domain.NewOutboxMessage(domain.RunCreatedEvent{RunID: i}, time.Now())
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
	require.NoError(t, outbox.Append(ctx, msgs...))

	require.NoError(t, outbox.MarkPublished(ctx, msgs[1].ID))
	assert.Len(t, outbox.All(ctx), 3)

	require.NoError(t, outbox.MarkPublished(ctx, msgs[0].ID))
	held := outbox.All(ctx)
	require.Len(t, held, 1)
	assert.Equal(t, msgs[2].ID, held[0].ID)

	assert.ErrorIs(t, outbox.MarkPublished(ctx, msgs[0].ID), domain.ErrNotFound)

	failed := errors.New("publish failed")
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, outbox.MarkPublished(ctx, msgs[2].ID))
		assert.Empty(t, outbox.All(ctx))
		return failed
	})
	require.ErrorIs(t, err, failed)

	pending, err := outbox.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, msgs[2].ID, pending[0].ID)

	require.NoError(t, outbox.MarkPublished(ctx, msgs[2].ID))
	assert.Empty(t, outbox.All(ctx))
}
