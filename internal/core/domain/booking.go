package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingActive    BookingStatus = "ACTIVE"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingNoShow    BookingStatus = "NO_SHOW"
	BookingCancelled BookingStatus = "CANCELLED"
)

type Booking struct {
	ID           uint64        `json:"id" db:"id"`
	RunID        uint64        `json:"run_id" db:"run_id"`
	User         Account       `json:"user" db:"user_account"`
	SeatCount    uint32        `json:"seat_count" db:"seat_count"`
	TotalPayment Amount        `json:"total_payment" db:"total_payment"`
	UserStake    Amount        `json:"user_stake" db:"user_stake"`
	Status       BookingStatus `json:"status" db:"status"`
	BookedAt     time.Time     `json:"booked_at" db:"booked_at"`
	SettledAt    *time.Time    `json:"settled_at,omitempty" db:"settled_at"`
}

// Custody is what the ledger holds for this booking until settlement.
func (b *Booking) Custody() Amount {
	return b.TotalPayment + b.UserStake
}

func (b *Booking) IsActive() bool {
	return b.Status == BookingActive
}

// Settle moves an active booking to one of its terminal statuses.
func (b *Booking) Settle(status BookingStatus, at time.Time) error {
	if status == BookingActive {
		return fmt.Errorf("%w: %s is not a terminal status", ErrInvalidState, status)
	}

	if !b.IsActive() {
		return fmt.Errorf("%w: booking %d is %s", ErrInvalidState, b.ID, b.Status)
	}

	b.Status = status
	b.SettledAt = &at

	return nil
}
