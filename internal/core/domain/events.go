package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is a fact about the ledger that external collaborators may index or
// notify on.
type Event interface {
	EventName() string
}

type RunCreatedEvent struct {
	RunID         uint64    `json:"run_id"`
	Host          Account   `json:"host"`
	ExperienceRef string    `json:"experience_ref"`
	PricePerSeat  Amount    `json:"price_per_seat"`
	MaxSeats      uint32    `json:"max_seats"`
	HostStake     Amount    `json:"host_stake"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type BookingCreatedEvent struct {
	BookingID    uint64    `json:"booking_id"`
	RunID        uint64    `json:"run_id"`
	User         Account   `json:"user"`
	SeatCount    uint32    `json:"seat_count"`
	TotalPayment Amount    `json:"total_payment"`
	UserStake    Amount    `json:"user_stake"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type BookingCancelledEvent struct {
	BookingID  uint64    `json:"booking_id"`
	RunID      uint64    `json:"run_id"`
	User       Account   `json:"user"`
	Refund     Amount    `json:"refund"`
	OccurredAt time.Time `json:"occurred_at"`
}

type BookingCompletedEvent struct {
	BookingID     uint64    `json:"booking_id"`
	RunID         uint64    `json:"run_id"`
	User          Account   `json:"user"`
	StakeReturned Amount    `json:"stake_returned"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type BookingNoShowEvent struct {
	BookingID      uint64    `json:"booking_id"`
	RunID          uint64    `json:"run_id"`
	User           Account   `json:"user"`
	StakeForfeited Amount    `json:"stake_forfeited"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type RunCompletedEvent struct {
	RunID             uint64    `json:"run_id"`
	Host              Account   `json:"host"`
	GrossPayout       Amount    `json:"gross_payout"`
	PlatformFee       Amount    `json:"platform_fee"`
	HostPayout        Amount    `json:"host_payout"`
	HostStakeReturned Amount    `json:"host_stake_returned"`
	StakesForfeited   Amount    `json:"stakes_forfeited"`
	OccurredAt        time.Time `json:"occurred_at"`
}

type RunCancelledEvent struct {
	RunID             uint64    `json:"run_id"`
	Host              Account   `json:"host"`
	RefundsIssued     int       `json:"refunds_issued"`
	AmountRefunded    Amount    `json:"amount_refunded"`
	HostStakeReturned Amount    `json:"host_stake_returned"`
	OccurredAt        time.Time `json:"occurred_at"`
}

func (RunCreatedEvent) EventName() string       { return "RunCreated" }
func (BookingCreatedEvent) EventName() string   { return "BookingCreated" }
func (BookingCancelledEvent) EventName() string { return "BookingCancelled" }
func (BookingCompletedEvent) EventName() string { return "BookingCompleted" }
func (BookingNoShowEvent) EventName() string    { return "BookingNoShow" }
func (RunCompletedEvent) EventName() string     { return "RunCompleted" }
func (RunCancelledEvent) EventName() string     { return "RunCancelled" }

// OutboxMessage is the serialized form of an Event waiting to be published.
type OutboxMessage struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty" db:"published_at"`
}

func NewOutboxMessage(event Event, at time.Time) (OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("failed to marshal %s: %w", event.EventName(), err)
	}

	return OutboxMessage{
		ID:        uuid.New(),
		Name:      event.EventName(),
		Payload:   payload,
		CreatedAt: at,
	}, nil
}
