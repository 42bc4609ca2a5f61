package domain

import (
	"fmt"
	"time"
)

type RunStatus string

const (
	RunCreated   RunStatus = "CREATED"
	RunActive    RunStatus = "ACTIVE"
	RunFull      RunStatus = "FULL"
	RunCompleted RunStatus = "COMPLETED"
	RunCancelled RunStatus = "CANCELLED"
)

func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunCancelled
}

// EventRun is a scheduled, capacity-limited instance of an experience.
type EventRun struct {
	ID                 uint64    `json:"id" db:"id"`
	Host               Account   `json:"host" db:"host"`
	ExperienceRef      string    `json:"experience_ref" db:"experience_ref"`
	PricePerSeat       Amount    `json:"price_per_seat" db:"price_per_seat"`
	MaxSeats           uint32    `json:"max_seats" db:"max_seats"`
	SeatsBooked        uint32    `json:"seats_booked" db:"seats_booked"`
	HostStake          Amount    `json:"host_stake" db:"host_stake"`
	EventTime          time.Time `json:"event_time" db:"event_time"`
	Status             RunStatus `json:"status" db:"status"`
	HostStakeWithdrawn bool      `json:"host_stake_withdrawn" db:"host_stake_withdrawn"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
	Version            int       `json:"version" db:"version"`
}

func (r *EventRun) RemainingSeats() uint32 {
	return r.MaxSeats - r.SeatsBooked
}

func (r *EventRun) IsOpenForBooking() bool {
	return r.Status == RunCreated || r.Status == RunActive
}

// Reserve books seats on the run and advances CREATED -> ACTIVE -> FULL.
func (r *EventRun) Reserve(seats uint32) error {
	if seats == 0 {
		return fmt.Errorf("%w: seat count must be at least 1", ErrInvalidArgument)
	}

	if r.Status == RunFull {
		return fmt.Errorf("%w: run %d is full", ErrCapacityExceeded, r.ID)
	}

	if !r.IsOpenForBooking() {
		return fmt.Errorf("%w: run %d is %s", ErrInvalidState, r.ID, r.Status)
	}

	if seats > r.RemainingSeats() {
		return fmt.Errorf("%w: requested %d, remaining %d", ErrCapacityExceeded, seats, r.RemainingSeats())
	}

	r.SeatsBooked += seats
	r.Status = RunActive
	if r.SeatsBooked == r.MaxSeats {
		r.Status = RunFull
	}

	return nil
}

// Release gives seats back before settlement and demotes FULL -> ACTIVE.
func (r *EventRun) Release(seats uint32) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: run %d is %s", ErrInvalidState, r.ID, r.Status)
	}

	if seats > r.SeatsBooked {
		return fmt.Errorf("%w: releasing %d of %d booked seats", ErrInvalidState, seats, r.SeatsBooked)
	}

	r.SeatsBooked -= seats
	if r.Status == RunFull && r.SeatsBooked < r.MaxSeats {
		r.Status = RunActive
	}

	return nil
}

func (r *EventRun) MarkTerminal(status RunStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %s is not a terminal status", ErrInvalidState, status)
	}

	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: run %d is already %s", ErrInvalidState, r.ID, r.Status)
	}

	r.Status = status
	r.HostStakeWithdrawn = true

	return nil
}
