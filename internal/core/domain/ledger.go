package domain

import (
	"time"

	"github.com/google/uuid"
)

type EntryKind string

const (
	EntryHostStakeDeposit EntryKind = "HOST_STAKE_DEPOSIT"
	EntryBookingDeposit   EntryKind = "BOOKING_DEPOSIT"

	EntryHostPayout      EntryKind = "HOST_PAYOUT"
	EntryHostStakeReturn EntryKind = "HOST_STAKE_RETURN"
	EntryStakeReturn     EntryKind = "STAKE_RETURN"
	EntryBookingRefund   EntryKind = "BOOKING_REFUND"
	EntryPlatformFee     EntryKind = "PLATFORM_FEE"
	EntryStakeForfeit    EntryKind = "STAKE_FORFEIT"
)

// IsDeposit reports whether the entry credits custody rather than
// releasing funds out of it.
func (k EntryKind) IsDeposit() bool {
	return k == EntryHostStakeDeposit || k == EntryBookingDeposit
}

// LedgerEntry records a single movement into or out of custody.
type LedgerEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	RunID     uint64    `json:"run_id" db:"run_id"`
	BookingID uint64    `json:"booking_id,omitempty" db:"booking_id"`
	Account   Account   `json:"account" db:"account"`
	Kind      EntryKind `json:"kind" db:"kind"`
	Amount    Amount    `json:"amount" db:"amount"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func NewLedgerEntry(runID, bookingID uint64, account Account, kind EntryKind, amount Amount, at time.Time) LedgerEntry {
	return LedgerEntry{
		ID:        uuid.New(),
		RunID:     runID,
		BookingID: bookingID,
		Account:   account,
		Kind:      kind,
		Amount:    amount,
		CreatedAt: at,
	}
}
