package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

const runColumns = `id, host, experience_ref, price_per_seat, max_seats, seats_booked, host_stake,
	event_time, status, host_stake_withdrawn, created_at, updated_at, version`

type RunRepository struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, run *domain.EventRun) error {
	query := `
	INSERT INTO event_runs (host, experience_ref, price_per_seat, max_seats, seats_booked, host_stake,
		event_time, status, host_stake_withdrawn, created_at, updated_at, version)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
	RETURNING id
	`

	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		run.Host,
		run.ExperienceRef,
		run.PricePerSeat,
		run.MaxSeats,
		run.SeatsBooked,
		run.HostStake,
		run.EventTime,
		run.Status,
		run.HostStakeWithdrawn,
		run.CreatedAt,
		run.UpdatedAt,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	run.Version = 1

	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, runID uint64) (*domain.EventRun, error) {
	var run domain.EventRun
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &run, `SELECT `+runColumns+` FROM event_runs WHERE id = $1`, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: run %d", domain.ErrNotFound, runID)
		}

		return nil, err
	}

	return &run, nil
}

// Update writes the mutable columns if nobody bumped the version since run
// was read.
func (r *RunRepository) Update(ctx context.Context, run *domain.EventRun) error {
	query := `
	UPDATE event_runs
	SET seats_booked = $1,
		status = $2,
		host_stake_withdrawn = $3,
		updated_at = $4,
		version = version + 1
	WHERE id = $5 AND version = $6
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		run.SeatsBooked,
		run.Status,
		run.HostStakeWithdrawn,
		run.UpdatedAt,
		run.ID,
		run.Version,
	)
	if err != nil {
		return translate(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrConflict
	}

	run.Version++

	return nil
}

func (r *RunRepository) ListByHost(ctx context.Context, host domain.Account) ([]domain.EventRun, error) {
	var runs []domain.EventRun
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &runs, `SELECT `+runColumns+` FROM event_runs WHERE host = $1 ORDER BY id`, host)
	if err != nil {
		return nil, err
	}

	return runs, nil
}
