package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

const bookingColumns = `id, run_id, user_account, seat_count, total_payment, user_stake, status, booked_at, settled_at`

type BookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
	INSERT INTO bookings (run_id, user_account, seat_count, total_payment, user_stake, status, booked_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id
	`

	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		booking.RunID,
		booking.User,
		booking.SeatCount,
		booking.TotalPayment,
		booking.UserStake,
		booking.Status,
		booking.BookedAt,
	).Scan(&booking.ID)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID uint64) (*domain.Booking, error) {
	var booking domain.Booking
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking %d", domain.ErrNotFound, bookingID)
		}

		return nil, err
	}

	return &booking, nil
}

func (r *BookingRepository) ListByRun(ctx context.Context, runID uint64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE run_id = $1 ORDER BY id`, runID)
}

func (r *BookingRepository) ListByUser(ctx context.Context, user domain.Account) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_account = $1 ORDER BY id`, user)
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, booking *domain.Booking) error {
	query := `
	UPDATE bookings
	SET status = $1, settled_at = $2
	WHERE id = $3 AND status = $4
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, booking.Status, booking.SettledAt, booking.ID, domain.BookingActive)
	if err != nil {
		return translate(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: booking %d is no longer active", domain.ErrConflict, booking.ID)
	}

	return nil
}

func (r *BookingRepository) list(ctx context.Context, query string, arg any) ([]domain.Booking, error) {
	var bookings []domain.Booking
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &bookings, query, arg); err != nil {
		return nil, err
	}

	return bookings, nil
}
