package services

import (
	"context"
	"fmt"
	"time"

	"github.com/srgjo27/experience_escrow/internal/core/domain"
	"github.com/srgjo27/experience_escrow/internal/core/ports"
	"github.com/srgjo27/experience_escrow/internal/core/stake"
)

// RunRegistry owns run capacity and status. Its methods expect to be called
// inside a transaction opened by the executor while the run lock is held.
type RunRegistry struct {
	runs ports.RunRepository
	calc stake.Calculator
	now  func() time.Time
}

func NewRunRegistry(runs ports.RunRepository, calc stake.Calculator, now func() time.Time) *RunRegistry {
	return &RunRegistry{runs: runs, calc: calc, now: now}
}

type CreateRunRequest struct {
	Host          domain.Account `json:"-"`
	ExperienceRef string         `json:"experience_ref"`
	PricePerSeat  domain.Amount  `json:"price_per_seat"`
	MaxSeats      uint32         `json:"max_seats"`
	EventTime     time.Time      `json:"event_time"`
	Deposit       domain.Amount  `json:"deposit"`
}

type RunReceipt struct {
	RunID     uint64        `json:"run_id"`
	HostStake domain.Amount `json:"host_stake"`
	Change    domain.Amount `json:"change"`
}

// Create validates the host deposit and stores a new run. Only the required
// stake is captured; anything above it is reported back as change.
func (r *RunRegistry) Create(ctx context.Context, req CreateRunRequest) (*domain.EventRun, domain.Amount, error) {
	if req.Host == "" {
		return nil, 0, fmt.Errorf("%w: host is required", domain.ErrInvalidArgument)
	}

	if req.MaxSeats == 0 {
		return nil, 0, fmt.Errorf("%w: max seats must be at least 1", domain.ErrInvalidArgument)
	}

	required, err := r.calc.RequiredHostStake(req.PricePerSeat, req.MaxSeats)
	if err != nil {
		return nil, 0, err
	}

	if req.Deposit < required {
		return nil, 0, fmt.Errorf("%w: deposited %d, required %d", domain.ErrInsufficientStake, req.Deposit, required)
	}

	now := r.now()
	run := &domain.EventRun{
		Host:          req.Host,
		ExperienceRef: req.ExperienceRef,
		PricePerSeat:  req.PricePerSeat,
		MaxSeats:      req.MaxSeats,
		HostStake:     required,
		EventTime:     req.EventTime,
		Status:        domain.RunCreated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := r.runs.Create(ctx, run); err != nil {
		return nil, 0, fmt.Errorf("failed to store run: %w", err)
	}

	return run, req.Deposit - required, nil
}

func (r *RunRegistry) Get(ctx context.Context, runID uint64) (*domain.EventRun, error) {
	return r.runs.GetByID(ctx, runID)
}

func (r *RunRegistry) Reserve(ctx context.Context, runID uint64, seats uint32) (*domain.EventRun, error) {
	return r.update(ctx, runID, func(run *domain.EventRun) error {
		return run.Reserve(seats)
	})
}

func (r *RunRegistry) Release(ctx context.Context, runID uint64, seats uint32) (*domain.EventRun, error) {
	return r.update(ctx, runID, func(run *domain.EventRun) error {
		return run.Release(seats)
	})
}

// MarkTerminal is reserved for settlement.
func (r *RunRegistry) MarkTerminal(ctx context.Context, runID uint64, status domain.RunStatus) (*domain.EventRun, error) {
	return r.update(ctx, runID, func(run *domain.EventRun) error {
		return run.MarkTerminal(status)
	})
}

func (r *RunRegistry) update(ctx context.Context, runID uint64, apply func(run *domain.EventRun) error) (*domain.EventRun, error) {
	run, err := r.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if err := apply(run); err != nil {
		return nil, err
	}

	run.UpdatedAt = r.now()
	if err := r.runs.Update(ctx, run); err != nil {
		return nil, err
	}

	return run, nil
}
