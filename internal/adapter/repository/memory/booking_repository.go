package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

type BookingRepository struct {
	s *Store
}

func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	tx, unlock := r.s.write(ctx)
	defer unlock()

	r.s.lastBookingID++
	booking.ID = r.s.lastBookingID
	r.s.bookings[booking.ID] = *booking

	id := booking.ID
	tx.onRollback(func() { delete(r.s.bookings, id) })

	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID uint64) (*domain.Booking, error) {
	unlock := r.s.read(ctx)
	defer unlock()

	booking, ok := r.s.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("%w: booking %d", domain.ErrNotFound, bookingID)
	}

	return &booking, nil
}

func (r *BookingRepository) ListByRun(ctx context.Context, runID uint64) ([]domain.Booking, error) {
	return r.list(ctx, func(b domain.Booking) bool { return b.RunID == runID })
}

func (r *BookingRepository) ListByUser(ctx context.Context, user domain.Account) ([]domain.Booking, error) {
	return r.list(ctx, func(b domain.Booking) bool { return b.User == user })
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, booking *domain.Booking) error {
	tx, unlock := r.s.write(ctx)
	defer unlock()

	prev, ok := r.s.bookings[booking.ID]
	if !ok {
		return fmt.Errorf("%w: booking %d", domain.ErrNotFound, booking.ID)
	}

	if prev.Status != domain.BookingActive {
		return fmt.Errorf("%w: booking %d is no longer active", domain.ErrConflict, booking.ID)
	}

	updated := prev
	updated.Status = booking.Status
	updated.SettledAt = booking.SettledAt
	r.s.bookings[booking.ID] = updated
	tx.onRollback(func() { r.s.bookings[prev.ID] = prev })

	return nil
}

func (r *BookingRepository) list(ctx context.Context, match func(domain.Booking) bool) ([]domain.Booking, error) {
	unlock := r.s.read(ctx)
	defer unlock()

	var bookings []domain.Booking
	for _, b := range r.s.bookings {
		if match(b) {
			bookings = append(bookings, b)
		}
	}

	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })

	return bookings, nil
}
