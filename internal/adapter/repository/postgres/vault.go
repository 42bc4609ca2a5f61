package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/srgjo27/experience_escrow/internal/core/domain"
)

type Vault struct {
	db *sqlx.DB
}

func NewVault(db *sqlx.DB) *Vault {
	return &Vault{db: db}
}

func (v *Vault) Deposit(ctx context.Context, entry domain.LedgerEntry) error {
	if !entry.Kind.IsDeposit() {
		return fmt.Errorf("%w: %s is not a deposit", domain.ErrInvalidArgument, entry.Kind)
	}

	tx := conn(ctx, v.db)
	if _, err := tx.ExecContext(ctx, `UPDATE custody SET balance = balance + $1 WHERE id = 1`, entry.Amount); err != nil {
		return fmt.Errorf("failed to credit custody: %w", translate(err))
	}

	return v.record(ctx, tx, entry)
}

// Release debits custody and credits the entry's account. The custody row
// guards against going negative.
func (v *Vault) Release(ctx context.Context, entry domain.LedgerEntry) error {
	if entry.Kind.IsDeposit() {
		return fmt.Errorf("%w: %s is not a release", domain.ErrInvalidArgument, entry.Kind)
	}

	tx := conn(ctx, v.db)
	result, err := tx.ExecContext(ctx, `UPDATE custody SET balance = balance - $1 WHERE id = 1 AND balance >= $1`, entry.Amount)
	if err != nil {
		return fmt.Errorf("failed to debit custody: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: releasing %d", domain.ErrInsufficientCustody, entry.Amount)
	}

	query := `
	INSERT INTO account_balances (account, balance)
	VALUES ($1, $2)
	ON CONFLICT (account) DO UPDATE SET balance = account_balances.balance + EXCLUDED.balance
	`
	if _, err := tx.ExecContext(ctx, query, entry.Account, entry.Amount); err != nil {
		return fmt.Errorf("failed to credit %s: %w", entry.Account, translate(err))
	}

	return v.record(ctx, tx, entry)
}

func (v *Vault) record(ctx context.Context, tx sqlx.ExecerContext, entry domain.LedgerEntry) error {
	query := `
	INSERT INTO ledger_entries (id, run_id, booking_id, account, kind, amount, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(ctx, query,
		entry.ID,
		entry.RunID,
		entry.BookingID,
		entry.Account,
		entry.Kind,
		entry.Amount,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	return nil
}

func (v *Vault) CustodyBalance(ctx context.Context) (domain.Amount, error) {
	var balance domain.Amount
	if err := conn(ctx, v.db).QueryRowxContext(ctx, `SELECT balance FROM custody WHERE id = 1`).Scan(&balance); err != nil {
		return 0, err
	}

	return balance, nil
}

func (v *Vault) AccountBalance(ctx context.Context, account domain.Account) (domain.Amount, error) {
	var balance domain.Amount
	err := conn(ctx, v.db).QueryRowxContext(ctx, `SELECT balance FROM account_balances WHERE account = $1`, account).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return balance, nil
}

func (v *Vault) EntriesByRun(ctx context.Context, runID uint64) ([]domain.LedgerEntry, error) {
	query := `
	SELECT id, run_id, booking_id, account, kind, amount, created_at
	FROM ledger_entries
	WHERE run_id = $1
	ORDER BY seq
	`

	var entries []domain.LedgerEntry
	if err := sqlx.SelectContext(ctx, conn(ctx, v.db), &entries, query, runID); err != nil {
		return nil, err
	}

	return entries, nil
}
