package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/srgjo27/experience_escrow/internal/core/ports"
	"github.com/srgjo27/experience_escrow/internal/core/stake"
)

type CreateBookingRequest struct {
	RunID     uint64         `json:"-"`
	User      domain.Account `json:"-"`
	SeatCount uint32         `json:"seat_count"`
	Deposit   domain.Amount  `json:"deposit"`
}

type BookingReceipt struct {
	BookingID uint64        `json:"booking_id"`
	Payment   domain.Amount `json:"payment"`
	Stake     domain.Amount `json:"stake"`
	Total     domain.Amount `json:"total"`
	Change    domain.Amount `json:"change"`
}

type BookingLedger struct {
	exec       *executor
	registry   *RunRegistry
	settlement *EscrowSettlement
	bookings   ports.BookingRepository
	vault      ports.Vault
	calc       stake.Calculator
	operators  operatorSet
}

func (l *BookingLedger) Cost(ctx context.Context, runID uint64, seatCount uint32) (stake.Cost, error) {
	if seatCount == 0 {
		return stake.Cost{}, fmt.Errorf("%w: seat count must be at least 1", domain.ErrInvalidArgument)
	}

	run, err := l.registry.Get(ctx, runID)
	if err != nil {
		return stake.Cost{}, err
	}

	return l.calc.BookingCost(run.PricePerSeat, seatCount)
}

// CreateBooking reserves seats and takes the payment plus stake into custody
// in one step. Capacity is checked before the deposit so an oversized request
// reports CapacityExceeded whatever was paid.
func (l *BookingLedger) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingReceipt, error) {
	if req.User == "" {
		return nil, fmt.Errorf("%w: user is required", domain.ErrInvalidArgument)
	}

	if req.SeatCount == 0 {
		return nil, fmt.Errorf("%w: seat count must be at least 1", domain.ErrInvalidArgument)
	}

	var receipt *BookingReceipt
	err := l.exec.mutateRun(ctx, req.RunID, func(ctx context.Context) ([]domain.Event, error) {
		run, err := l.registry.Reserve(ctx, req.RunID, req.SeatCount)
		if err != nil {
			return nil, err
		}

		cost, err := l.calc.BookingCost(run.PricePerSeat, req.SeatCount)
		if err != nil {
			return nil, err
		}

		if req.Deposit < cost.Total {
			return nil, fmt.Errorf("%w: deposited %d, required %d", domain.ErrInsufficientPayment, req.Deposit, cost.Total)
		}

		now := l.exec.now()
		booking := &domain.Booking{
			RunID:        run.ID,
			User:         req.User,
			SeatCount:    req.SeatCount,
			TotalPayment: cost.Payment,
			UserStake:    cost.Stake,
			Status:       domain.BookingActive,
			BookedAt:     now,
		}

		if err := l.bookings.Create(ctx, booking); err != nil {
			return nil, fmt.Errorf("failed to store booking: %w", err)
		}

		entry := domain.NewLedgerEntry(run.ID, booking.ID, req.User, domain.EntryBookingDeposit, cost.Total, now)
		if err := l.vault.Deposit(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to take booking into custody: %w", err)
		}

		receipt = &BookingReceipt{
			BookingID: booking.ID,
			Payment:   cost.Payment,
			Stake:     cost.Stake,
			Total:     cost.Total,
			Change:    req.Deposit - cost.Total,
		}

		return []domain.Event{domain.BookingCreatedEvent{
			BookingID:    booking.ID,
			RunID:        run.ID,
			User:         booking.User,
			SeatCount:    booking.SeatCount,
			TotalPayment: booking.TotalPayment,
			UserStake:    booking.UserStake,
			OccurredAt:   now,
		}}, nil
	})
	if err != nil {
		return nil, err
	}

	l.exec.log.WithFields(logrus.Fields{
		"run_id":     req.RunID,
		"booking_id": receipt.BookingID,
		"seats":      req.SeatCount,
		"total":      receipt.Total,
	}).Info("Booking created")

	return receipt, nil
}

// CancelBooking refunds payment and stake in full and frees the seats. It is
// only possible while the run has not been settled.
func (l *BookingLedger) CancelBooking(ctx context.Context, bookingID uint64, requester domain.Account) error {
	booking, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	err = l.exec.mutateRun(ctx, booking.RunID, func(ctx context.Context) ([]domain.Event, error) {
		booking, err := l.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}

		if requester != booking.User && !l.operators.contains(requester) {
			return nil, fmt.Errorf("%w: %s may not cancel booking %d", domain.ErrUnauthorized, requester, bookingID)
		}

		if !booking.IsActive() {
			return nil, fmt.Errorf("%w: booking %d is %s", domain.ErrInvalidState, bookingID, booking.Status)
		}

		if _, err := l.registry.Release(ctx, booking.RunID, booking.SeatCount); err != nil {
			return nil, err
		}

		now := l.exec.now()
		if err := booking.Settle(domain.BookingCancelled, now); err != nil {
			return nil, err
		}

		if err := l.bookings.UpdateStatus(ctx, booking); err != nil {
			return nil, fmt.Errorf("failed to update booking: %w", err)
		}

		if err := l.settlement.refundBooking(ctx, booking); err != nil {
			return nil, err
		}

		return []domain.Event{domain.BookingCancelledEvent{
			BookingID:  booking.ID,
			RunID:      booking.RunID,
			User:       booking.User,
			Refund:     booking.Custody(),
			OccurredAt: now,
		}}, nil
	})
	if err != nil {
		return err
	}

	l.exec.log.WithFields(logrus.Fields{
		"run_id":     booking.RunID,
		"booking_id": bookingID,
		"requester":  requester,
	}).Info("Booking cancelled")

	return nil
}
