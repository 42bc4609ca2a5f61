package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/srgjo27/experience_escrow/internal/core/ports"
	"github.com/srgjo27/experience_escrow/internal/core/stake"
)

type ForfeitPolicy string

const (
	ForfeitToPlatform ForfeitPolicy = "platform"
	ForfeitToHost     ForfeitPolicy = "host"
)

// RunSettlement summarizes the fund movements of a completed or cancelled run.
type RunSettlement struct {
	RunID             uint64           `json:"run_id"`
	Status            domain.RunStatus `json:"status"`
	GrossPayout       domain.Amount    `json:"gross_payout"`
	PlatformFee       domain.Amount    `json:"platform_fee"`
	HostPayout        domain.Amount    `json:"host_payout"`
	HostStakeReturned domain.Amount    `json:"host_stake_returned"`
	StakesReturned    domain.Amount    `json:"stakes_returned"`
	StakesForfeited   domain.Amount    `json:"stakes_forfeited"`
	Refunded          domain.Amount    `json:"refunded"`
	Completed         []uint64         `json:"completed,omitempty"`
	NoShows           []uint64         `json:"no_shows,omitempty"`
	Cancelled         []uint64         `json:"cancelled,omitempty"`
}

// EscrowSettlement is the only component that releases funds out of
// custody. Every operation commits the new statuses before any release.
type EscrowSettlement struct {
	exec             *executor
	registry         *RunRegistry
	bookings         ports.BookingRepository
	vault            ports.Vault
	feePercentage    uint64
	platformAccount  domain.Account
	forfeitTo        ForfeitPolicy
	enforceEventTime bool
	operators        operatorSet
}

func (s *EscrowSettlement) CompleteRun(ctx context.Context, runID uint64, attended []uint64, caller domain.Account) (*RunSettlement, error) {
	attendedSet := make(map[uint64]bool, len(attended))
	for _, id := range attended {
		attendedSet[id] = true
	}

	var result *RunSettlement
	err := s.exec.mutateRun(ctx, runID, func(ctx context.Context) ([]domain.Event, error) {
		run, err := s.registry.Get(ctx, runID)
		if err != nil {
			return nil, err
		}

		if caller != run.Host {
			return nil, fmt.Errorf("%w: only the host may complete run %d", domain.ErrUnauthorized, runID)
		}

		if run.Status != domain.RunActive && run.Status != domain.RunFull {
			return nil, fmt.Errorf("%w: run %d is %s", domain.ErrInvalidState, runID, run.Status)
		}

		now := s.exec.now()
		if s.enforceEventTime && now.Before(run.EventTime) {
			return nil, fmt.Errorf("%w: run %d takes place at %s", domain.ErrInvalidState, runID, run.EventTime)
		}

		active, err := s.activeBookings(ctx, runID)
		if err != nil {
			return nil, err
		}

		payments := make([]domain.Amount, len(active))
		for i, b := range active {
			payments[i] = b.TotalPayment
		}

		result = &RunSettlement{RunID: runID, Status: domain.RunCompleted, HostStakeReturned: run.HostStake}
		if result.GrossPayout, err = stake.Sum(payments...); err != nil {
			return nil, err
		}

		if result.PlatformFee, err = stake.Percent(result.GrossPayout, s.feePercentage); err != nil {
			return nil, err
		}
		result.HostPayout = result.GrossPayout - result.PlatformFee

		var events []domain.Event
		for i := range active {
			b := &active[i]
			status := domain.BookingNoShow
			if attendedSet[b.ID] {
				status = domain.BookingCompleted
			}

			if err := s.settleBooking(ctx, b, status); err != nil {
				return nil, err
			}

			if status == domain.BookingCompleted {
				result.Completed = append(result.Completed, b.ID)
				result.StakesReturned += b.UserStake
				events = append(events, domain.BookingCompletedEvent{
					BookingID: b.ID, RunID: runID, User: b.User, StakeReturned: b.UserStake, OccurredAt: now,
				})
			} else {
				result.NoShows = append(result.NoShows, b.ID)
				result.StakesForfeited += b.UserStake
				events = append(events, domain.BookingNoShowEvent{
					BookingID: b.ID, RunID: runID, User: b.User, StakeForfeited: b.UserStake, OccurredAt: now,
				})
			}
		}

		if _, err := s.registry.MarkTerminal(ctx, runID, domain.RunCompleted); err != nil {
			return nil, err
		}

		forfeitAccount := s.platformAccount
		if s.forfeitTo == ForfeitToHost {
			forfeitAccount = run.Host
		}

		for _, b := range active {
			if attendedSet[b.ID] {
				err = s.release(ctx, runID, b.ID, b.User, domain.EntryStakeReturn, b.UserStake)
			} else {
				err = s.release(ctx, runID, b.ID, forfeitAccount, domain.EntryStakeForfeit, b.UserStake)
			}
			if err != nil {
				return nil, err
			}
		}

		if err := s.release(ctx, runID, 0, s.platformAccount, domain.EntryPlatformFee, result.PlatformFee); err != nil {
			return nil, err
		}

		if err := s.release(ctx, runID, 0, run.Host, domain.EntryHostPayout, result.HostPayout); err != nil {
			return nil, err
		}

		if err := s.release(ctx, runID, 0, run.Host, domain.EntryHostStakeReturn, run.HostStake); err != nil {
			return nil, err
		}

		return append(events, domain.RunCompletedEvent{
			RunID:             runID,
			Host:              run.Host,
			GrossPayout:       result.GrossPayout,
			PlatformFee:       result.PlatformFee,
			HostPayout:        result.HostPayout,
			HostStakeReturned: run.HostStake,
			StakesForfeited:   result.StakesForfeited,
			OccurredAt:        now,
		}), nil
	})
	if err != nil {
		return nil, err
	}

	s.exec.log.WithFields(logrus.Fields{
		"run_id":      runID,
		"attended":    len(result.Completed),
		"no_shows":    len(result.NoShows),
		"host_payout": result.HostPayout,
		"fee":         result.PlatformFee,
	}).Info("Run completed")

	return result, nil
}

func (s *EscrowSettlement) CancelRun(ctx context.Context, runID uint64, caller domain.Account) (*RunSettlement, error) {
	var result *RunSettlement
	err := s.exec.mutateRun(ctx, runID, func(ctx context.Context) ([]domain.Event, error) {
		run, err := s.registry.Get(ctx, runID)
		if err != nil {
			return nil, err
		}

		if caller != run.Host && !s.operators.contains(caller) {
			return nil, fmt.Errorf("%w: %s may not cancel run %d", domain.ErrUnauthorized, caller, runID)
		}

		if run.Status.IsTerminal() {
			return nil, fmt.Errorf("%w: run %d is %s", domain.ErrInvalidState, runID, run.Status)
		}

		active, err := s.activeBookings(ctx, runID)
		if err != nil {
			return nil, err
		}

		now := s.exec.now()
		result = &RunSettlement{RunID: runID, Status: domain.RunCancelled, HostStakeReturned: run.HostStake}

		var events []domain.Event
		for i := range active {
			b := &active[i]
			if err := s.settleBooking(ctx, b, domain.BookingCancelled); err != nil {
				return nil, err
			}

			result.Cancelled = append(result.Cancelled, b.ID)
			result.Refunded += b.Custody()
			events = append(events, domain.BookingCancelledEvent{
				BookingID: b.ID, RunID: runID, User: b.User, Refund: b.Custody(), OccurredAt: now,
			})
		}

		if _, err := s.registry.MarkTerminal(ctx, runID, domain.RunCancelled); err != nil {
			return nil, err
		}

		for i := range active {
			if err := s.refundBooking(ctx, &active[i]); err != nil {
				return nil, err
			}
		}

		if err := s.release(ctx, runID, 0, run.Host, domain.EntryHostStakeReturn, run.HostStake); err != nil {
			return nil, err
		}

		return append(events, domain.RunCancelledEvent{
			RunID:             runID,
			Host:              run.Host,
			RefundsIssued:     len(active),
			AmountRefunded:    result.Refunded,
			HostStakeReturned: run.HostStake,
			OccurredAt:        now,
		}), nil
	})
	if err != nil {
		return nil, err
	}

	s.exec.log.WithFields(logrus.Fields{
		"run_id":   runID,
		"caller":   caller,
		"refunds":  len(result.Cancelled),
		"refunded": result.Refunded,
	}).Info("Run cancelled")

	return result, nil
}

// refundBooking returns payment and stake of an already cancelled booking.
func (s *EscrowSettlement) refundBooking(ctx context.Context, b *domain.Booking) error {
	return s.release(ctx, b.RunID, b.ID, b.User, domain.EntryBookingRefund, b.Custody())
}

func (s *EscrowSettlement) settleBooking(ctx context.Context, b *domain.Booking, status domain.BookingStatus) error {
	if err := b.Settle(status, s.exec.now()); err != nil {
		return err
	}

	if err := s.bookings.UpdateStatus(ctx, b); err != nil {
		return fmt.Errorf("failed to update booking %d: %w", b.ID, err)
	}

	return nil
}

func (s *EscrowSettlement) activeBookings(ctx context.Context, runID uint64) ([]domain.Booking, error) {
	all, err := s.bookings.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings of run %d: %w", runID, err)
	}

	active := make([]domain.Booking, 0, len(all))
	for _, b := range all {
		if b.IsActive() {
			active = append(active, b)
		}
	}

	return active, nil
}

// release moves amount out of custody to account. Zero amounts are skipped.
func (s *EscrowSettlement) release(ctx context.Context, runID, bookingID uint64, account domain.Account, kind domain.EntryKind, amount domain.Amount) error {
	if amount == 0 {
		return nil
	}

	entry := domain.NewLedgerEntry(runID, bookingID, account, kind, amount, s.exec.now())
	if err := s.vault.Release(ctx, entry); err != nil {
		return fmt.Errorf("failed to release %s to %s: %w", kind, account, err)
	}

	return nil
}
