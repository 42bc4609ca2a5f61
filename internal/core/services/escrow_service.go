package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/srgjo27/experience_escrow/internal/core/ports"
	"github.com/srgjo27/experience_escrow/internal/core/stake"
)

type Config struct {
	StakePercentage       uint64
	PlatformFeePercentage uint64
	PlatformAccount       domain.Account
	Operators             []domain.Account
	ForfeitTo             ForfeitPolicy
	EnforceEventTime      bool
}

type Dependencies struct {
	Tx       ports.Transactor
	Runs     ports.RunRepository
	Bookings ports.BookingRepository
	Vault    ports.Vault
	Outbox   ports.Outbox
	Cache    ports.RunCache // optional
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

// EscrowService is the entry point for the surrounding application. Every
// mutating call is serialized per run and committed atomically with its
// outbox events.
type EscrowService struct {
	registry   *RunRegistry
	ledger     *BookingLedger
	settlement *EscrowSettlement

	exec     *executor
	runs     ports.RunRepository
	bookings ports.BookingRepository
	vault    ports.Vault
	cache    ports.RunCache
	calc     stake.Calculator
}

func NewEscrowService(cfg Config, deps Dependencies) *EscrowService {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}

	if cfg.PlatformAccount == "" {
		cfg.PlatformAccount = "platform"
	}

	calc := stake.NewCalculator(cfg.StakePercentage)
	operators := newOperatorSet(cfg.Operators)

	exec := &executor{
		tx:     deps.Tx,
		outbox: deps.Outbox,
		cache:  deps.Cache,
		locks:  NewRunLocks(),
		now:    deps.Now,
		log:    deps.Logger,
	}

	registry := NewRunRegistry(deps.Runs, calc, deps.Now)

	settlement := &EscrowSettlement{
		exec:             exec,
		registry:         registry,
		bookings:         deps.Bookings,
		vault:            deps.Vault,
		feePercentage:    cfg.PlatformFeePercentage,
		platformAccount:  cfg.PlatformAccount,
		forfeitTo:        cfg.ForfeitTo,
		enforceEventTime: cfg.EnforceEventTime,
		operators:        operators,
	}

	ledger := &BookingLedger{
		exec:       exec,
		registry:   registry,
		settlement: settlement,
		bookings:   deps.Bookings,
		vault:      deps.Vault,
		calc:       calc,
		operators:  operators,
	}

	return &EscrowService{
		registry:   registry,
		ledger:     ledger,
		settlement: settlement,
		exec:       exec,
		runs:       deps.Runs,
		bookings:   deps.Bookings,
		vault:      deps.Vault,
		cache:      deps.Cache,
		calc:       calc,
	}
}

func (s *EscrowService) CreateRun(ctx context.Context, req CreateRunRequest) (*RunReceipt, error) {
	var receipt *RunReceipt
	err := s.exec.commit(ctx, func(ctx context.Context) ([]domain.Event, error) {
		run, change, err := s.registry.Create(ctx, req)
		if err != nil {
			return nil, err
		}

		entry := domain.NewLedgerEntry(run.ID, 0, run.Host, domain.EntryHostStakeDeposit, run.HostStake, run.CreatedAt)
		if err := s.vault.Deposit(ctx, entry); err != nil {
			return nil, err
		}

		receipt = &RunReceipt{RunID: run.ID, HostStake: run.HostStake, Change: change}

		return []domain.Event{domain.RunCreatedEvent{
			RunID:         run.ID,
			Host:          run.Host,
			ExperienceRef: run.ExperienceRef,
			PricePerSeat:  run.PricePerSeat,
			MaxSeats:      run.MaxSeats,
			HostStake:     run.HostStake,
			OccurredAt:    run.CreatedAt,
		}}, nil
	})
	if err != nil {
		return nil, err
	}

	s.exec.log.WithFields(logrus.Fields{
		"run_id":     receipt.RunID,
		"host":       req.Host,
		"host_stake": receipt.HostStake,
	}).Info("Run created")

	return receipt, nil
}

func (s *EscrowService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingReceipt, error) {
	return s.ledger.CreateBooking(ctx, req)
}

func (s *EscrowService) CancelBooking(ctx context.Context, bookingID uint64, requester domain.Account) error {
	return s.ledger.CancelBooking(ctx, bookingID, requester)
}

func (s *EscrowService) CompleteRun(ctx context.Context, runID uint64, attended []uint64, caller domain.Account) (*RunSettlement, error) {
	return s.settlement.CompleteRun(ctx, runID, attended, caller)
}

func (s *EscrowService) CancelRun(ctx context.Context, runID uint64, caller domain.Account) (*RunSettlement, error) {
	return s.settlement.CancelRun(ctx, runID, caller)
}

func (s *EscrowService) BookingCost(ctx context.Context, runID uint64, seatCount uint32) (stake.Cost, error) {
	return s.ledger.Cost(ctx, runID, seatCount)
}

func (s *EscrowService) RequiredHostStake(price domain.Amount, maxSeats uint32) (domain.Amount, error) {
	return s.calc.RequiredHostStake(price, maxSeats)
}

// GetRun serves from the cache when one is configured and fills it on a miss.
// The fill holds the run lock, so a snapshot can never be written after the
// invalidation of a mutation that committed later than the snapshot was read.
func (s *EscrowService) GetRun(ctx context.Context, runID uint64) (*domain.EventRun, error) {
	if s.cache == nil {
		return s.runs.GetByID(ctx, runID)
	}

	run, err := s.cache.Get(ctx, runID)
	if err != nil {
		s.exec.log.WithError(err).WithField("run_id", runID).Warn("Failed to read run cache")
	} else if run != nil {
		return run, nil
	}

	unlock := s.exec.locks.Lock(runID)
	defer unlock()

	run, err = s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, run); err != nil {
		s.exec.log.WithError(err).WithField("run_id", runID).Warn("Failed to fill run cache")
	}

	return run, nil
}

func (s *EscrowService) GetBooking(ctx context.Context, bookingID uint64) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

func (s *EscrowService) RunBookings(ctx context.Context, runID uint64) ([]domain.Booking, error) {
	if _, err := s.runs.GetByID(ctx, runID); err != nil {
		return nil, err
	}

	return s.bookings.ListByRun(ctx, runID)
}

func (s *EscrowService) HostRuns(ctx context.Context, host domain.Account) ([]domain.EventRun, error) {
	return s.runs.ListByHost(ctx, host)
}

func (s *EscrowService) UserBookings(ctx context.Context, user domain.Account) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, user)
}

func (s *EscrowService) RunLedger(ctx context.Context, runID uint64) ([]domain.LedgerEntry, error) {
	if _, err := s.runs.GetByID(ctx, runID); err != nil {
		return nil, err
	}

	return s.vault.EntriesByRun(ctx, runID)
}

func (s *EscrowService) AccountBalance(ctx context.Context, account domain.Account) (domain.Amount, error) {
	return s.vault.AccountBalance(ctx, account)
}

func (s *EscrowService) CustodyBalance(ctx context.Context) (domain.Amount, error) {
	return s.vault.CustodyBalance(ctx)
}

type operatorSet map[domain.Account]struct{}

func newOperatorSet(accounts []domain.Account) operatorSet {
	set := make(operatorSet, len(accounts))
	for _, a := range accounts {
		if a != "" {
			set[a] = struct{}{}
		}
	}

	return set
}

func (s operatorSet) contains(account domain.Account) bool {
	_, ok := s[account]
	return ok
}
